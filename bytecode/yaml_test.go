package bytecode

import (
	"strings"
	"testing"
)

const listing = `
file: demo.cfgs
enums:
  Color: [Red, Green, Blue]
classes:
  - name: Animal
    fields: [name]
    methods: {speak: Animal.speak}
  - name: Dog
    base: Animal
    statics: [count]
code:
  - {op: CALL, name: main, n: 0, line: 1, col: 1}
  - {op: HALT}
  - function: main
  - op: TRY_PUSH
    catch: handler
    finally: cleanup
  - {op: PUSH_CONST, decimal: "2.50", line: 4, col: 3}
  - {op: PUSH_CONST, char: "x"}
  - {op: PUSH_CONST, int32: 7}
  - {op: PUSH_CONST, nil: true}
  - {label: loop, op: LEAVE, to: out, scopes: 1}
  - {label: handler, op: POP}
  - {label: cleanup, op: END_FINALLY}
  - {label: out, op: LOAD_STATIC, name: Dog, member: count}
  - {op: RETURN}
  - function: Animal.speak
  - {op: PUSH_NULL}
  - {op: RETURN}
`

func TestParseYAML(t *testing.T) {
	p, err := ParseYAML([]byte(listing), "demo.yaml")
	if err != nil {
		t.Fatalf("ParseYAML: %v", err)
	}

	if p.File != "demo.cfgs" {
		t.Errorf("File = %q", p.File)
	}
	if got := p.Enums["Color"]; len(got) != 3 || got[2] != "Blue" {
		t.Errorf("Color = %v", got)
	}
	if p.Classes["Dog"].Base != "Animal" {
		t.Errorf("Dog base = %q", p.Classes["Dog"].Base)
	}
	if fn := p.Functions["main"]; fn.Address != 2 {
		t.Errorf("main at %d, want 2", fn.Address)
	}

	try := p.Code[2]
	if try.Op != OpTryPush || try.Operand.Int != 8 || try.Operand.Int2 != 9 {
		t.Errorf("TRY_PUSH = %s %+v", try.Op, try.Operand)
	}
	dec := p.Code[3]
	if dec.Operand.Lit.Kind != LitDecimal || dec.Operand.Lit.Str != "2.50" || dec.Line != 4 || dec.Col != 3 {
		t.Errorf("decimal const = %+v at %d:%d", dec.Operand.Lit, dec.Line, dec.Col)
	}
	if p.Code[4].Line != 4 {
		t.Errorf("position should carry over, got line %d", p.Code[4].Line)
	}
	if lit := p.Code[4].Operand.Lit; lit.Kind != LitChar || lit.Int != 'x' {
		t.Errorf("char const = %+v", lit)
	}
	if lit := p.Code[5].Operand.Lit; lit.Kind != LitInt32 || lit.Int != 7 {
		t.Errorf("int32 const = %+v", lit)
	}
	if lit := p.Code[6].Operand.Lit; lit.Kind != LitNull {
		t.Errorf("nil const = %+v", lit)
	}
	leave := p.Code[7]
	if leave.Op != OpLeave || leave.Operand.Int != 10 || leave.Operand.Int2 != 1 {
		t.Errorf("LEAVE = %+v", leave.Operand)
	}
	static := p.Code[10]
	if static.Operand.Name != "Dog" || static.Operand.Member != "count" {
		t.Errorf("LOAD_STATIC = %+v", static.Operand)
	}
}

func TestParseYAMLErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"unknown op", "code:\n  - op: FROB\n", "unknown opcode"},
		{"two literals", "code:\n  - {op: PUSH_CONST, int: 1, str: a}\n", "exactly one literal"},
		{"no literal", "code:\n  - {op: PUSH_CONST}\n", "exactly one literal"},
		{"bad char", "code:\n  - {op: PUSH_CONST, char: ab}\n", "single character"},
		{"missing name", "code:\n  - {op: LOAD_VAR}\n", "requires name"},
		{"missing target", "code:\n  - {op: JUMP}\n", "requires to"},
		{"undefined label", "code:\n  - {op: JUMP, to: nope}\n", "undefined label"},
		{"empty entry", "code:\n  - {}\n", "no op"},
		{"malformed", "code: [", "cannot parse"},
		{"bad base", "classes:\n  - {name: A, base: Z}\ncode:\n  - {op: HALT}\n", "unknown base"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseYAML([]byte(tt.src), "t.yaml")
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("ParseYAML() = %v, want error containing %q", err, tt.want)
			}
		})
	}
}
