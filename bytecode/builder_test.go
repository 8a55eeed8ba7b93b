package bytecode

import (
	"strings"
	"testing"
)

func TestBuilderResolvesLabels(t *testing.T) {
	b := NewBuilder("loop.cfgs")
	b.Label("top")
	b.Jump(OpJumpIfFalse, "done")
	b.Leave("top", 2)
	b.TryPush("catch", "")
	b.Label("catch")
	b.Label("done")
	b.Emit(OpHalt)

	p, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if got := p.Code[0].Operand.Int; got != 3 {
		t.Errorf("JUMP_IF_FALSE target = %d, want 3", got)
	}
	if got := p.Code[1].Operand; got.Int != 0 || got.Int2 != 2 {
		t.Errorf("LEAVE operand = %+v, want target 0 scopes 2", got)
	}
	if got := p.Code[2].Operand; got.Int != 3 || got.Int2 != -1 {
		t.Errorf("TRY_PUSH operand = %+v, want catch 3 finally -1", got)
	}
}

func TestBuilderUndefinedLabel(t *testing.T) {
	b := NewBuilder("x")
	b.Jump(OpJump, "nowhere")
	_, err := b.Build()
	if err == nil || !strings.Contains(err.Error(), "nowhere") {
		t.Fatalf("Build error = %v, want undefined label", err)
	}
}

func TestBuilderDuplicateLabel(t *testing.T) {
	b := NewBuilder("x")
	b.Label("a")
	b.Emit(OpNop)
	b.Label("a")
	if _, err := b.Build(); err == nil {
		t.Fatal("expected duplicate label error")
	}
}

func TestBuilderFunctionsAndPositions(t *testing.T) {
	b := NewBuilder("f.cfgs")
	b.EmitCall(OpCall, "add", 2)
	b.Emit(OpHalt)
	b.Function("add", "a", "b")
	b.At(3, 5)
	b.EmitName(OpLoadVar, "a")

	p := b.MustBuild()

	fn, ok := p.Functions["add"]
	if !ok {
		t.Fatal("add not registered")
	}
	if fn.Address != 2 || len(fn.Params) != 2 {
		t.Errorf("add = %+v", fn)
	}
	ins := p.Code[2]
	if ins.Line != 3 || ins.Col != 5 || ins.File != "f.cfgs" {
		t.Errorf("position = %s:%d:%d", ins.File, ins.Line, ins.Col)
	}
	if p.Code[0].Line != 0 {
		t.Errorf("instructions before At should have no line, got %d", p.Code[0].Line)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		prog *Program
		want string
	}{
		{
			name: "jump out of range",
			prog: &Program{Code: []Instruction{{Op: OpJump, Operand: Operand{Int: 9}}}},
			want: "out of range",
		},
		{
			name: "unknown opcode",
			prog: &Program{Code: []Instruction{{Op: Opcode(0xEE)}}},
			want: "unknown opcode",
		},
		{
			name: "missing literal",
			prog: &Program{Code: []Instruction{{Op: OpPushConst}}},
			want: "without literal",
		},
		{
			name: "unknown base",
			prog: &Program{
				Code:    []Instruction{{Op: OpHalt}},
				Classes: map[string]ClassInfo{"B": {Name: "B", Base: "A"}},
			},
			want: "unknown base",
		},
		{
			name: "inheritance cycle",
			prog: &Program{
				Code: []Instruction{{Op: OpHalt}},
				Classes: map[string]ClassInfo{
					"A": {Name: "A", Base: "B"},
					"B": {Name: "B", Base: "A"},
				},
			},
			want: "cycle",
		},
		{
			name: "method without function",
			prog: &Program{
				Code:    []Instruction{{Op: OpHalt}},
				Classes: map[string]ClassInfo{"A": {Name: "A", Methods: map[string]string{"m": "A.m"}}},
			},
			want: "unknown function",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.prog.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.want)
			}
		})
	}
}
