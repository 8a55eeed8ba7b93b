package vm

import (
	"testing"

	"github.com/cfgs-lang/cfgs/bytecode"
)

func sampleDict() Value {
	d := NewDict()
	d.Set(FromString("a"), FromInt64(1))
	d.Set(FromString("b"), FromInt64(2))
	d.Set(FromInt64(3), FromString("three"))
	return FromDict(d)
}

func TestDictIntrinsics(t *testing.T) {
	it := intrinsicInterpreter(t)
	d := sampleDict()

	tests := []struct {
		name string
		args []Value
		want string
	}{
		{"len", nil, "3"},
		{"get", []Value{FromString("a")}, "1"},
		{"get", []Value{FromFloat64(3)}, "three"},
		{"get", []Value{FromString("zz")}, "null"},
		{"get", []Value{FromString("zz"), FromInt64(0)}, "0"},
		{"has", []Value{FromString("b")}, "true"},
		{"has", []Value{FromString("B")}, "false"},
		{"keys", nil, `["a", "b", 3]`},
		{"values", nil, `[1, 2, "three"]`},
	}
	for _, tt := range tests {
		if got := mustCall(t, it, d, tt.name, tt.args...).String(); got != tt.want {
			t.Errorf("%s%v = %s, want %s", tt.name, tt.args, got, tt.want)
		}
	}
}

func TestDictSetAndRemove(t *testing.T) {
	it := intrinsicInterpreter(t)
	d := sampleDict()

	mustCall(t, it, d, "set", FromString("c"), True)
	mustCall(t, it, d, "set", FromString("a"), FromInt64(10))
	if v := mustCall(t, it, d, "remove", FromString("b")); v.Int64() != 2 {
		t.Errorf("remove(b) = %v, want 2", v)
	}
	if v := mustCall(t, it, d, "remove", FromString("b")); !v.IsNull() {
		t.Errorf("second remove(b) = %v, want null", v)
	}
	if got := d.String(); got != `{"a": 10, 3: "three", "c": true}` {
		t.Errorf("dict = %s", got)
	}
}

func TestDictKeysIsSnapshot(t *testing.T) {
	it := intrinsicInterpreter(t)
	d := sampleDict()
	keys := mustCall(t, it, d, "keys")
	d.Dict().Set(FromString("new"), Null)
	if n := len(keys.Array().Elems); n != 3 {
		t.Errorf("keys array grew to %d after the dict changed", n)
	}
}

func TestDictMemberAccess(t *testing.T) {
	// Names that are not intrinsics read and write string keys; intrinsic
	// names win over keys of the same name.
	b := bytecode.NewBuilder("t.cfgs")
	b.EmitConst(bytecode.Str("len"))
	b.EmitConst(bytecode.Int(99))
	b.EmitInt(bytecode.OpMakeDict, 1)
	b.EmitName(bytecode.OpVarDecl, "d")

	b.EmitName(bytecode.OpLoadVar, "d")
	b.EmitConst(bytecode.Str("x"))
	b.EmitName(bytecode.OpStoreMember, "name")

	b.EmitName(bytecode.OpLoadVar, "d")
	b.EmitName(bytecode.OpLoadMember, "name")
	b.Emit(bytecode.OpPrint)

	b.EmitName(bytecode.OpLoadVar, "d")
	b.EmitName(bytecode.OpLoadMember, "missing")
	b.Emit(bytecode.OpPrint)

	b.EmitName(bytecode.OpLoadVar, "d")
	b.EmitCall(bytecode.OpCallMethod, "len", 0)
	b.Emit(bytecode.OpPrint)

	b.EmitName(bytecode.OpLoadVar, "d")
	b.EmitConst(bytecode.Str("len"))
	b.Emit(bytecode.OpIndexGet)
	b.Emit(bytecode.OpPrint)
	b.Emit(bytecode.OpHalt)

	if got, want := mustRun(t, b), "x\nnull\n2\n99\n"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestDictIndexSetNormalizesKeys(t *testing.T) {
	b := bytecode.NewBuilder("t.cfgs")
	b.EmitInt(bytecode.OpMakeDict, 0)
	b.EmitName(bytecode.OpVarDecl, "d")

	b.EmitName(bytecode.OpLoadVar, "d")
	b.EmitConst(bytecode.Int(1))
	b.EmitConst(bytecode.Str("one"))
	b.Emit(bytecode.OpIndexSet)

	b.EmitName(bytecode.OpLoadVar, "d")
	b.EmitConst(bytecode.Float(1))
	b.Emit(bytecode.OpIndexGet)
	b.Emit(bytecode.OpPrint)

	b.EmitName(bytecode.OpLoadVar, "d")
	b.EmitConst(bytecode.Decimal("1.0"))
	b.EmitConst(bytecode.Str("uno"))
	b.Emit(bytecode.OpIndexSet)

	b.EmitName(bytecode.OpLoadVar, "d")
	b.Emit(bytecode.OpPrint)
	b.Emit(bytecode.OpHalt)

	if got, want := mustRun(t, b), "one\n{1: \"uno\"}\n"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}
