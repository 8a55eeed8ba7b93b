package vm

import (
	"math"
	"strconv"
	"strings"

	"github.com/cockroachdb/apd/v3"
)

// Kind identifies the variant a Value holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt64
	KindInt32
	KindFloat32
	KindFloat64
	KindDecimal
	KindString
	KindChar
	KindArray
	KindDict
	KindClosure
	KindBuiltin
	KindIntrinsic
	KindIntrinsicBound
	KindBoundMethod
	KindBoundType
	KindClass
	KindInstance
	KindStatic
	KindEnum
	KindException
	KindFile
)

var kindNames = [...]string{
	KindNull:           "null",
	KindBool:           "bool",
	KindInt64:          "int",
	KindInt32:          "int32",
	KindFloat32:        "float32",
	KindFloat64:        "float",
	KindDecimal:        "decimal",
	KindString:         "string",
	KindChar:           "char",
	KindArray:          "array",
	KindDict:           "dict",
	KindClosure:        "function",
	KindBuiltin:        "builtin",
	KindIntrinsic:      "intrinsic",
	KindIntrinsicBound: "intrinsic",
	KindBoundMethod:    "method",
	KindBoundType:      "type",
	KindClass:          "class",
	KindInstance:       "object",
	KindStatic:         "static",
	KindEnum:           "enum",
	KindException:      "exception",
	KindFile:           "file",
}

// String returns the name typeof reports for the kind.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// IsNumeric reports whether k takes part in arithmetic promotion.
func (k Kind) IsNumeric() bool {
	return k >= KindInt64 && k <= KindDecimal
}

// Value is a CFGS runtime value. Scalars live in bits; everything else in ref.
// The zero Value is Null.
type Value struct {
	kind Kind
	bits uint64
	ref  any
}

// Pre-defined values
var (
	Null  = Value{}
	True  = Value{kind: KindBool, bits: 1}
	False = Value{kind: KindBool}
)

// Array is a mutable ordered sequence with reference semantics.
type Array struct {
	Elems []Value
}

// NewArray wraps elems in a fresh array value.
func NewArray(elems []Value) Value {
	return FromArray(&Array{Elems: elems})
}

// ---------------------------------------------------------------------------
// Constructors
// ---------------------------------------------------------------------------

func FromBool(b bool) Value {
	if b {
		return True
	}
	return False
}

func FromInt64(n int64) Value     { return Value{kind: KindInt64, bits: uint64(n)} }
func FromInt32(n int32) Value     { return Value{kind: KindInt32, bits: uint64(int64(n))} }
func FromFloat64(f float64) Value { return Value{kind: KindFloat64, bits: math.Float64bits(f)} }
func FromFloat32(f float32) Value {
	return Value{kind: KindFloat32, bits: uint64(math.Float32bits(f))}
}
func FromChar(r rune) Value     { return Value{kind: KindChar, bits: uint64(r)} }
func FromString(s string) Value { return Value{kind: KindString, ref: s} }

// FromDecimal wraps d. Decimals are never mutated after wrapping.
func FromDecimal(d *apd.Decimal) Value { return Value{kind: KindDecimal, ref: d} }

func FromArray(a *Array) Value         { return Value{kind: KindArray, ref: a} }
func FromDict(d *Dict) Value           { return Value{kind: KindDict, ref: d} }
func FromClosure(c *Closure) Value     { return Value{kind: KindClosure, ref: c} }
func FromBuiltin(b *Builtin) Value     { return Value{kind: KindBuiltin, ref: b} }
func FromIntrinsic(m *Intrinsic) Value { return Value{kind: KindIntrinsic, ref: m} }
func FromIntrinsicBound(b *IntrinsicBound) Value {
	return Value{kind: KindIntrinsicBound, ref: b}
}
func FromBoundMethod(m *BoundMethod) Value  { return Value{kind: KindBoundMethod, ref: m} }
func FromBoundType(t *BoundType) Value      { return Value{kind: KindBoundType, ref: t} }
func FromClass(c *Class) Value              { return Value{kind: KindClass, ref: c} }
func FromInstance(o *Object) Value          { return Value{kind: KindInstance, ref: o} }
func FromStatic(o *Object) Value            { return Value{kind: KindStatic, ref: o} }
func FromEnum(e *EnumValue) Value           { return Value{kind: KindEnum, ref: e} }
func FromException(e *ExceptionValue) Value { return Value{kind: KindException, ref: e} }
func FromFile(f *FileHandle) Value          { return Value{kind: KindFile, ref: f} }

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }
func (v Value) Bool() bool   { return v.bits != 0 }
func (v Value) Int64() int64 { return int64(v.bits) }
func (v Value) Int32() int32 { return int32(int64(v.bits)) }
func (v Value) Char() rune   { return rune(v.bits) }
func (v Value) Float64() float64 {
	return math.Float64frombits(v.bits)
}
func (v Value) Float32() float32 {
	return math.Float32frombits(uint32(v.bits))
}

func (v Value) Str() string {
	s, _ := v.ref.(string)
	return s
}

func (v Value) Decimal() *apd.Decimal           { d, _ := v.ref.(*apd.Decimal); return d }
func (v Value) Array() *Array                   { a, _ := v.ref.(*Array); return a }
func (v Value) Dict() *Dict                     { d, _ := v.ref.(*Dict); return d }
func (v Value) Closure() *Closure               { c, _ := v.ref.(*Closure); return c }
func (v Value) Builtin() *Builtin               { b, _ := v.ref.(*Builtin); return b }
func (v Value) Intrinsic() *Intrinsic           { m, _ := v.ref.(*Intrinsic); return m }
func (v Value) IntrinsicBound() *IntrinsicBound { b, _ := v.ref.(*IntrinsicBound); return b }
func (v Value) BoundMethod() *BoundMethod       { m, _ := v.ref.(*BoundMethod); return m }
func (v Value) BoundType() *BoundType           { t, _ := v.ref.(*BoundType); return t }
func (v Value) Class() *Class                   { c, _ := v.ref.(*Class); return c }
func (v Value) Enum() *EnumValue                { e, _ := v.ref.(*EnumValue); return e }
func (v Value) Exception() *ExceptionValue      { e, _ := v.ref.(*ExceptionValue); return e }
func (v Value) File() *FileHandle               { f, _ := v.ref.(*FileHandle); return f }

// Object returns the field bag of an instance or static instance.
func (v Value) Object() *Object { o, _ := v.ref.(*Object); return o }

// ---------------------------------------------------------------------------
// Truthiness and equality
// ---------------------------------------------------------------------------

// Truthy implements the language's boolean coercion.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNull:
		return false
	case KindBool, KindInt64, KindInt32, KindChar:
		return v.bits != 0
	case KindFloat32:
		return v.Float32() != 0
	case KindFloat64:
		return v.Float64() != 0
	case KindDecimal:
		return !v.Decimal().IsZero()
	case KindString:
		return v.Str() != ""
	case KindArray:
		return len(v.Array().Elems) > 0
	case KindDict:
		return v.Dict().Len() > 0
	}
	return true
}

// Equal implements EQ. Numerics compare after promotion; containers, objects
// and handles compare by identity.
func Equal(a, b Value) bool {
	if a.kind.IsNumeric() && b.kind.IsNumeric() {
		return numericEqual(a, b)
	}
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindBool, KindChar:
		return a.bits == b.bits
	case KindString:
		return a.Str() == b.Str()
	case KindEnum:
		x, y := a.Enum(), b.Enum()
		return x.Enum == y.Enum && x.Member == y.Member
	case KindBoundType:
		return a.BoundType().Name == b.BoundType().Name
	case KindClass:
		return a.Class().Name == b.Class().Name
	case KindIntrinsicBound:
		x, y := a.IntrinsicBound(), b.IntrinsicBound()
		return x.Method == y.Method && Equal(x.Receiver, y.Receiver)
	case KindBoundMethod:
		x, y := a.BoundMethod(), b.BoundMethod()
		return x.Method.Entry == y.Method.Entry && Equal(x.Receiver, y.Receiver)
	}
	return a.ref == b.ref
}

// ---------------------------------------------------------------------------
// String conversion
// ---------------------------------------------------------------------------

// String renders v for PRINT and string concatenation.
func (v Value) String() string {
	var sb strings.Builder
	writeValue(&sb, v, false, nil)
	return sb.String()
}

// Repr renders v the way it appears nested in a container: strings and chars
// are quoted.
func (v Value) Repr() string {
	var sb strings.Builder
	writeValue(&sb, v, true, nil)
	return sb.String()
}

func writeValue(sb *strings.Builder, v Value, quote bool, seen map[any]bool) {
	switch v.kind {
	case KindNull:
		sb.WriteString("null")
	case KindBool:
		sb.WriteString(strconv.FormatBool(v.Bool()))
	case KindInt64, KindInt32:
		sb.WriteString(strconv.FormatInt(v.Int64(), 10))
	case KindFloat32:
		sb.WriteString(formatFloat(float64(v.Float32()), 32))
	case KindFloat64:
		sb.WriteString(formatFloat(v.Float64(), 64))
	case KindDecimal:
		sb.WriteString(v.Decimal().Text('f'))
	case KindString:
		if quote {
			sb.WriteString(strconv.Quote(v.Str()))
		} else {
			sb.WriteString(v.Str())
		}
	case KindChar:
		if quote {
			sb.WriteString(strconv.QuoteRune(v.Char()))
		} else {
			sb.WriteRune(v.Char())
		}
	case KindArray:
		a := v.Array()
		if seen[a] {
			sb.WriteString("[...]")
			return
		}
		seen = mark(seen, a)
		sb.WriteByte('[')
		for i, e := range a.Elems {
			if i > 0 {
				sb.WriteString(", ")
			}
			writeValue(sb, e, true, seen)
		}
		sb.WriteByte(']')
		delete(seen, a)
	case KindDict:
		d := v.Dict()
		if seen[d] {
			sb.WriteString("{...}")
			return
		}
		seen = mark(seen, d)
		sb.WriteByte('{')
		for i, e := range d.entries {
			if i > 0 {
				sb.WriteString(", ")
			}
			writeValue(sb, e.key, true, seen)
			sb.WriteString(": ")
			writeValue(sb, e.val, true, seen)
		}
		sb.WriteByte('}')
		delete(seen, d)
	case KindClosure:
		sb.WriteString("<function " + v.Closure().Name + ">")
	case KindBuiltin:
		sb.WriteString("<builtin " + v.Builtin().Name + ">")
	case KindIntrinsic:
		sb.WriteString("<intrinsic " + v.Intrinsic().Name + ">")
	case KindIntrinsicBound:
		sb.WriteString("<intrinsic " + v.IntrinsicBound().Method.Name + ">")
	case KindBoundMethod:
		m := v.BoundMethod()
		sb.WriteString("<method " + m.Method.Name + ">")
	case KindBoundType:
		sb.WriteString("<type " + v.BoundType().Name + ">")
	case KindClass:
		sb.WriteString("<class " + v.Class().Name + ">")
	case KindInstance:
		sb.WriteString("<" + v.Object().Class.Name + " instance>")
	case KindStatic:
		sb.WriteString("<" + v.Object().Class.Name + " static>")
	case KindEnum:
		e := v.Enum()
		sb.WriteString(e.Enum + "." + e.Member)
	case KindException:
		e := v.Exception()
		sb.WriteString(e.Kind + ": " + e.Message)
	case KindFile:
		f := v.File()
		sb.WriteString("<file " + f.Path + ">")
	default:
		sb.WriteString("<" + v.kind.String() + ">")
	}
}

func mark(seen map[any]bool, p any) map[any]bool {
	if seen == nil {
		seen = make(map[any]bool)
	}
	seen[p] = true
	return seen
}

func formatFloat(f float64, bitSize int) string {
	switch {
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case math.IsNaN(f):
		return "NaN"
	}
	s := strconv.FormatFloat(f, 'g', -1, bitSize)
	if !strings.ContainsAny(s, ".eN") {
		s += ".0"
	}
	return s
}
