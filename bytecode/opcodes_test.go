package bytecode

import (
	"strings"
	"testing"
)

func TestAllOpcodesHaveMetadata(t *testing.T) {
	for _, op := range AllOpcodes() {
		info := GetOpcodeInfo(op)
		if info.Name == "" || strings.HasPrefix(info.Name, "UNKNOWN") {
			t.Errorf("Opcode 0x%02X has no metadata", byte(op))
		}
	}
}

func TestOpcodeString(t *testing.T) {
	tests := []struct {
		op   Opcode
		want string
	}{
		{OpNop, "NOP"},
		{OpPushConst, "PUSH_CONST"},
		{OpVarDecl, "VAR_DECL"},
		{OpJumpIfFalse, "JUMP_IF_FALSE"},
		{OpCallIndirect, "CALL_INDIRECT"},
		{OpSliceGet, "SLICE_GET"},
		{OpLoadStatic, "LOAD_STATIC"},
		{OpEndFinally, "END_FINALLY"},
		{OpPrint, "PRINT"},
	}

	for _, tt := range tests {
		if got := tt.op.String(); got != tt.want {
			t.Errorf("Opcode(0x%02X).String() = %q, want %q", byte(tt.op), got, tt.want)
		}
	}
}

func TestUnknownOpcodeString(t *testing.T) {
	op := Opcode(0xEE)
	if got := op.String(); !strings.HasPrefix(got, "UNKNOWN") {
		t.Errorf("Unknown opcode should return UNKNOWN, got %q", got)
	}
	if op.Valid() {
		t.Error("0xEE should not be valid")
	}
}

func TestParseOpcodeRoundTrip(t *testing.T) {
	for _, op := range AllOpcodes() {
		got, ok := ParseOpcode(op.String())
		if !ok || got != op {
			t.Errorf("ParseOpcode(%q) = %v, %v; want %v", op.String(), got, ok, op)
		}
	}
	if _, ok := ParseOpcode("LOAD_INDEX"); ok {
		t.Error("ParseOpcode should reject unknown mnemonics")
	}
}

func TestIsJump(t *testing.T) {
	jumps := map[Opcode]bool{OpJump: true, OpJumpIfFalse: true, OpJumpIfTrue: true, OpLeave: true}
	for _, op := range AllOpcodes() {
		if op.IsJump() != jumps[op] {
			t.Errorf("%s.IsJump() = %v", op, op.IsJump())
		}
	}
}

func TestOpcodeCount(t *testing.T) {
	// 4 stack + 4 literal + 5 variable + 13 arithmetic + 5 control + 5 call
	// + 5 collection + 6 object + 4 exception + 1 output
	if got := len(AllOpcodes()); got != 52 {
		t.Errorf("len(AllOpcodes()) = %d, want 52", got)
	}
}
