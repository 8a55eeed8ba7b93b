package vm

import (
	"math"
	"testing"

	"github.com/cockroachdb/apd/v3"

	"github.com/cfgs-lang/cfgs/bytecode"
)

func dec(s string) Value {
	d, _, err := apd.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return FromDecimal(d)
}

func TestValueString(t *testing.T) {
	arr := NewArray([]Value{FromInt64(1), FromString("a"), FromChar('c'), Null})
	d := NewDict()
	d.Set(FromString("k"), FromFloat64(2))

	tests := []struct {
		v    Value
		want string
	}{
		{Null, "null"},
		{True, "true"},
		{FromInt64(-7), "-7"},
		{FromInt32(7), "7"},
		{FromFloat64(3), "3.0"},
		{FromFloat64(0.25), "0.25"},
		{FromFloat64(math.Inf(1)), "Infinity"},
		{FromFloat64(math.NaN()), "NaN"},
		{FromFloat32(1.5), "1.5"},
		{dec("2.50"), "2.50"},
		{FromString("hi"), "hi"},
		{FromChar('x'), "x"},
		{arr, `[1, "a", 'c', null]`},
		{FromDict(d), `{"k": 2.0}`},
		{FromException(NewException("TypeError", "bad")), "TypeError: bad"},
		{FromEnum(&EnumValue{Enum: "Color", Member: "Red"}), "Color.Red"},
	}
	for _, tt := range tests {
		if got := tt.v.String(); got != tt.want {
			t.Errorf("String(%s) = %q, want %q", tt.v.kind, got, tt.want)
		}
	}
}

func TestValueStringCycle(t *testing.T) {
	a := &Array{}
	v := FromArray(a)
	a.Elems = append(a.Elems, FromInt64(1), v)
	if got := v.String(); got != "[1, [...]]" {
		t.Errorf("cyclic array = %q", got)
	}
}

func TestTruthy(t *testing.T) {
	tests := []struct {
		v    Value
		want bool
	}{
		{Null, false},
		{False, false},
		{True, true},
		{FromInt64(0), false},
		{FromInt32(3), true},
		{FromFloat64(0), false},
		{dec("0.00"), false},
		{dec("0.1"), true},
		{FromString(""), false},
		{FromString("x"), true},
		{NewArray(nil), false},
		{FromDict(NewDict()), false},
		{FromClosure(&Closure{Name: "f"}), true},
	}
	for _, tt := range tests {
		if got := tt.v.Truthy(); got != tt.want {
			t.Errorf("Truthy(%s) = %v, want %v", tt.v.Repr(), got, tt.want)
		}
	}
}

func TestEqual(t *testing.T) {
	arr := NewArray(nil)
	tests := []struct {
		a, b Value
		want bool
	}{
		{FromInt64(1), FromInt32(1), true},
		{FromInt64(1), FromFloat64(1.0), true},
		{FromFloat64(0.5), dec("0.5"), true},
		{dec("1.0"), dec("1.00"), true},
		{FromFloat64(math.NaN()), FromFloat64(math.NaN()), false},
		{FromString("a"), FromString("a"), true},
		{FromString("1"), FromInt64(1), false},
		{Null, Null, true},
		{Null, False, false},
		{arr, arr, true},
		{arr, NewArray(nil), false},
		{FromEnum(&EnumValue{Enum: "C", Member: "R"}), FromEnum(&EnumValue{Enum: "C", Member: "R"}), true},
		{FromEnum(&EnumValue{Enum: "C", Member: "R"}), FromEnum(&EnumValue{Enum: "D", Member: "R"}), false},
	}
	for _, tt := range tests {
		if got := Equal(tt.a, tt.b); got != tt.want {
			t.Errorf("Equal(%s, %s) = %v, want %v", tt.a.Repr(), tt.b.Repr(), got, tt.want)
		}
	}
}

func TestArithPromotion(t *testing.T) {
	tests := []struct {
		op       bytecode.Opcode
		a, b     Value
		wantKind Kind
		want     string
	}{
		{bytecode.OpAdd, FromInt32(2), FromInt32(3), KindInt32, "5"},
		{bytecode.OpAdd, FromInt32(2), FromInt64(3), KindInt64, "5"},
		{bytecode.OpMul, FromInt64(2), FromFloat32(1.5), KindFloat32, "3.0"},
		{bytecode.OpDiv, FromInt64(7), FromInt64(2), KindInt64, "3"},
		{bytecode.OpDiv, FromInt64(7), FromFloat64(2), KindFloat64, "3.5"},
		{bytecode.OpMod, FromInt64(-7), FromInt64(3), KindInt64, "-1"},
		{bytecode.OpAdd, FromFloat64(0.1), dec("0.2"), KindDecimal, "0.3"},
		{bytecode.OpAdd, dec("0.1"), dec("0.2"), KindDecimal, "0.3"},
		{bytecode.OpDiv, dec("1"), dec("4"), KindDecimal, "0.25"},
		{bytecode.OpDiv, dec("100"), FromInt64(4), KindDecimal, "25"},
		{bytecode.OpDiv, dec("1"), dec("3"), KindDecimal, "0.3333333333333333333333333333333333"},
		{bytecode.OpSub, FromInt64(math.MinInt64), FromInt64(1), KindInt64, "9223372036854775807"},
		{bytecode.OpAdd, FromInt32(math.MaxInt32), FromInt32(1), KindInt32, "-2147483648"},
		{bytecode.OpDiv, FromInt64(math.MinInt64), FromInt64(-1), KindInt64, "-9223372036854775808"},
		{bytecode.OpDiv, FromFloat64(1), FromFloat64(0), KindFloat64, "Infinity"},
	}
	for _, tt := range tests {
		got, err := arith(tt.op, tt.a, tt.b)
		if err != nil {
			t.Errorf("%s %s %s: %v", tt.a.Repr(), tt.op, tt.b.Repr(), err)
			continue
		}
		if got.kind != tt.wantKind || got.String() != tt.want {
			t.Errorf("%s %s %s = %s %s, want %s %s",
				tt.a.Repr(), tt.op, tt.b.Repr(), got.kind, got, tt.wantKind, tt.want)
		}
	}
}

func TestArithErrors(t *testing.T) {
	tests := []struct {
		op   bytecode.Opcode
		a, b Value
		kind string
	}{
		{bytecode.OpDiv, FromInt64(1), FromInt64(0), ArithmeticError},
		{bytecode.OpMod, FromInt32(1), FromInt32(0), ArithmeticError},
		{bytecode.OpDiv, dec("1"), dec("0"), ArithmeticError},
		{bytecode.OpAdd, dec("1"), FromFloat64(math.Inf(1)), ArithmeticError},
		{bytecode.OpSub, FromString("a"), FromInt64(1), TypeError},
		{bytecode.OpAdd, Null, FromInt64(1), TypeError},
	}
	for _, tt := range tests {
		_, err := arith(tt.op, tt.a, tt.b)
		exc, ok := err.(*ExceptionValue)
		if !ok || exc.Kind != tt.kind {
			t.Errorf("%s %s %s: error = %v, want %s", tt.a.Repr(), tt.op, tt.b.Repr(), err, tt.kind)
		}
	}
}

func TestArithConcat(t *testing.T) {
	s, err := arith(bytecode.OpAdd, FromInt64(1), FromString("x"))
	if err != nil || s.Str() != "1x" {
		t.Errorf("1 + \"x\" = %v, %v", s, err)
	}
	a, err := arith(bytecode.OpAdd, NewArray([]Value{FromInt64(1)}), NewArray([]Value{FromInt64(2)}))
	if err != nil || a.String() != "[1, 2]" {
		t.Errorf("array concat = %v, %v", a, err)
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		op   bytecode.Opcode
		a, b Value
		want bool
	}{
		{bytecode.OpLt, FromInt32(1), FromFloat64(1.5), true},
		{bytecode.OpGe, dec("2.0"), FromInt64(2), true},
		{bytecode.OpLt, FromString("abc"), FromString("abd"), true},
		{bytecode.OpGt, FromChar('b'), FromChar('a'), true},
		{bytecode.OpLe, FromFloat64(math.NaN()), FromFloat64(1), false},
	}
	for _, tt := range tests {
		got, err := compare(tt.op, tt.a, tt.b)
		if err != nil || got != tt.want {
			t.Errorf("%s %s %s = %v, %v; want %v", tt.a.Repr(), tt.op, tt.b.Repr(), got, err, tt.want)
		}
	}
	if _, err := compare(bytecode.OpLt, FromString("a"), FromInt64(1)); err == nil {
		t.Error("comparing string with int should fail")
	}
}

func TestNegate(t *testing.T) {
	v, err := negate(dec("1.5"))
	if err != nil || v.String() != "-1.5" {
		t.Errorf("-1.5m = %v, %v", v, err)
	}
	if _, err := negate(FromString("x")); err == nil {
		t.Error("negating a string should fail")
	}
}

// ---------------------------------------------------------------------------
// Dict
// ---------------------------------------------------------------------------

func TestDictKeyNormalization(t *testing.T) {
	d := NewDict()
	d.Set(FromInt64(1), FromString("int"))
	d.Set(FromFloat64(1.0), FromString("float"))
	d.Set(dec("1.00"), FromString("decimal"))
	d.Set(FromInt32(1), FromString("int32"))

	if d.Len() != 1 {
		t.Fatalf("Len = %d, want 1 (all keys equal 1)", d.Len())
	}
	if v, _ := d.Get(FromInt64(1)); v.Str() != "int32" {
		t.Errorf("d[1] = %v, want last write", v)
	}
	if got := d.Keys()[0]; got.kind != KindInt64 {
		t.Errorf("first key kind = %s, want the original int key", got.kind)
	}

	d.Set(FromString("1"), FromString("string"))
	d.Set(FromFloat64(1.5), True)
	d.Set(dec("1.50"), False)
	if d.Len() != 4 {
		t.Errorf("Len = %d, want 4", d.Len())
	}
}

func TestDictOrderAndRemove(t *testing.T) {
	d := NewDict()
	for _, k := range []string{"a", "b", "c"} {
		d.Set(FromString(k), FromString(k+k))
	}
	d.Set(FromString("a"), FromString("again"))
	if v, ok := d.Remove(FromString("b")); !ok || v.Str() != "bb" {
		t.Errorf("Remove(b) = %v, %v", v, ok)
	}
	if _, ok := d.Remove(FromString("zz")); ok {
		t.Error("Remove of a missing key reported success")
	}
	if got := FromDict(d).String(); got != `{"a": "again", "c": "cc"}` {
		t.Errorf("dict = %s", got)
	}
	if !d.Has(FromString("c")) || d.Has(FromString("b")) {
		t.Error("Has disagrees with contents")
	}
}
