package vm

import (
	"math"
	"strings"

	"github.com/cockroachdb/apd/v3"

	"github.com/cfgs-lang/cfgs/bytecode"
)

// decimalCtx carries decimal128 precision.
var decimalCtx = apd.BaseContext.WithPrecision(34)

// rank orders numeric kinds for promotion: Int32 < Int64 < Float32 < Float64 < Decimal.
func rank(k Kind) int {
	switch k {
	case KindInt32:
		return 0
	case KindInt64:
		return 1
	case KindFloat32:
		return 2
	case KindFloat64:
		return 3
	case KindDecimal:
		return 4
	}
	return -1
}

func promote(a, b Kind) Kind {
	if rank(a) >= rank(b) {
		return a
	}
	return b
}

func toFloat64(v Value) float64 {
	switch v.kind {
	case KindInt64, KindInt32:
		return float64(v.Int64())
	case KindFloat32:
		return float64(v.Float32())
	case KindFloat64:
		return v.Float64()
	case KindDecimal:
		f, _ := v.Decimal().Float64()
		return f
	case KindChar:
		return float64(v.Char())
	}
	return 0
}

func toDecimal(v Value) (*apd.Decimal, error) {
	switch v.kind {
	case KindDecimal:
		return v.Decimal(), nil
	case KindInt64, KindInt32:
		return new(apd.Decimal).SetInt64(v.Int64()), nil
	case KindFloat32, KindFloat64:
		f := toFloat64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, Errorf(ArithmeticError, "cannot convert %s to decimal", formatFloat(f, 64))
		}
		d, err := new(apd.Decimal).SetFloat64(f)
		if err != nil {
			return nil, Errorf(ArithmeticError, "cannot convert %s to decimal", formatFloat(f, 64))
		}
		return d, nil
	}
	return nil, Errorf(TypeError, "cannot convert %s to decimal", v.kind)
}

// ---------------------------------------------------------------------------
// Binary arithmetic
// ---------------------------------------------------------------------------

func opSymbol(op bytecode.Opcode) string {
	switch op {
	case bytecode.OpAdd:
		return "+"
	case bytecode.OpSub:
		return "-"
	case bytecode.OpMul:
		return "*"
	case bytecode.OpDiv:
		return "/"
	case bytecode.OpMod:
		return "%"
	case bytecode.OpLt:
		return "<"
	case bytecode.OpLe:
		return "<="
	case bytecode.OpGt:
		return ">"
	case bytecode.OpGe:
		return ">="
	}
	return op.String()
}

// arith implements ADD SUB MUL DIV MOD.
func arith(op bytecode.Opcode, a, b Value) (Value, error) {
	if op == bytecode.OpAdd {
		if a.kind == KindString || b.kind == KindString {
			var sb strings.Builder
			sb.WriteString(a.String())
			sb.WriteString(b.String())
			return FromString(sb.String()), nil
		}
		if a.kind == KindArray && b.kind == KindArray {
			x, y := a.Array().Elems, b.Array().Elems
			elems := make([]Value, 0, len(x)+len(y))
			elems = append(elems, x...)
			return NewArray(append(elems, y...)), nil
		}
	}
	if !a.kind.IsNumeric() || !b.kind.IsNumeric() {
		return Null, Errorf(TypeError, "unsupported operand types for %s: %s and %s", opSymbol(op), a.kind, b.kind)
	}

	switch promote(a.kind, b.kind) {
	case KindInt32:
		r, err := intOp(op, a.Int32(), b.Int32())
		return FromInt32(r), err
	case KindInt64:
		r, err := intOp(op, a.Int64(), b.Int64())
		return FromInt64(r), err
	case KindFloat32:
		return FromFloat32(floatOp(op, float32(toFloat64(a)), float32(toFloat64(b)))), nil
	case KindFloat64:
		return FromFloat64(floatOp(op, toFloat64(a), toFloat64(b))), nil
	default:
		return decimalOp(op, a, b)
	}
}

// intOp wraps on overflow at the width of T.
func intOp[T int32 | int64](op bytecode.Opcode, x, y T) (T, error) {
	switch op {
	case bytecode.OpAdd:
		return x + y, nil
	case bytecode.OpSub:
		return x - y, nil
	case bytecode.OpMul:
		return x * y, nil
	case bytecode.OpDiv:
		if y == 0 {
			return 0, Errorf(ArithmeticError, "integer division by zero")
		}
		if y == -1 {
			return -x, nil
		}
		return x / y, nil
	case bytecode.OpMod:
		if y == 0 {
			return 0, Errorf(ArithmeticError, "integer modulo by zero")
		}
		if y == -1 {
			return 0, nil
		}
		return x % y, nil
	}
	return 0, &VMFault{Op: op.String(), Message: "not an arithmetic opcode"}
}

func floatOp[T float32 | float64](op bytecode.Opcode, x, y T) T {
	switch op {
	case bytecode.OpAdd:
		return x + y
	case bytecode.OpSub:
		return x - y
	case bytecode.OpMul:
		return x * y
	case bytecode.OpDiv:
		return x / y
	case bytecode.OpMod:
		return T(math.Mod(float64(x), float64(y)))
	}
	return T(math.NaN())
}

func decimalOp(op bytecode.Opcode, a, b Value) (Value, error) {
	x, err := toDecimal(a)
	if err != nil {
		return Null, err
	}
	y, err := toDecimal(b)
	if err != nil {
		return Null, err
	}
	if (op == bytecode.OpDiv || op == bytecode.OpMod) && y.IsZero() {
		return Null, Errorf(ArithmeticError, "decimal division by zero")
	}

	d := new(apd.Decimal)
	switch op {
	case bytecode.OpAdd:
		_, err = decimalCtx.Add(d, x, y)
	case bytecode.OpSub:
		_, err = decimalCtx.Sub(d, x, y)
	case bytecode.OpMul:
		_, err = decimalCtx.Mul(d, x, y)
	case bytecode.OpDiv:
		// Quo pads exact quotients with zeros out to the full precision.
		if _, err = decimalCtx.Quo(d, x, y); err == nil {
			d.Reduce(d)
		}
	case bytecode.OpMod:
		_, err = decimalCtx.Rem(d, x, y)
	}
	if err != nil {
		return Null, Errorf(ArithmeticError, "decimal %s: %v", opSymbol(op), err)
	}
	return FromDecimal(d), nil
}

// negate implements NEG.
func negate(v Value) (Value, error) {
	switch v.kind {
	case KindInt64:
		return FromInt64(-v.Int64()), nil
	case KindInt32:
		return FromInt32(-v.Int32()), nil
	case KindFloat32:
		return FromFloat32(-v.Float32()), nil
	case KindFloat64:
		return FromFloat64(-v.Float64()), nil
	case KindDecimal:
		return FromDecimal(new(apd.Decimal).Neg(v.Decimal())), nil
	}
	return Null, Errorf(TypeError, "bad operand type for unary -: %s", v.kind)
}

// ---------------------------------------------------------------------------
// Comparison
// ---------------------------------------------------------------------------

// numericCompare compares two numeric values after promotion. ok is false
// when the values are unordered (NaN).
func numericCompare(a, b Value) (cmp int, ok bool) {
	switch promote(a.kind, b.kind) {
	case KindInt32, KindInt64:
		x, y := a.Int64(), b.Int64()
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	case KindFloat32:
		return floatCompare(float64(float32(toFloat64(a))), float64(float32(toFloat64(b))))
	case KindFloat64:
		return floatCompare(toFloat64(a), toFloat64(b))
	default:
		x, err := toDecimal(a)
		if err != nil {
			return 0, false
		}
		y, err := toDecimal(b)
		if err != nil {
			return 0, false
		}
		return x.Cmp(y), true
	}
}

func floatCompare(x, y float64) (int, bool) {
	switch {
	case x < y:
		return -1, true
	case x > y:
		return 1, true
	case x == y:
		return 0, true
	}
	return 0, false
}

func numericEqual(a, b Value) bool {
	cmp, ok := numericCompare(a, b)
	return ok && cmp == 0
}

// compare implements LT LE GT GE.
func compare(op bytecode.Opcode, a, b Value) (bool, error) {
	var cmp int
	switch {
	case a.kind.IsNumeric() && b.kind.IsNumeric():
		c, ok := numericCompare(a, b)
		if !ok {
			return false, nil
		}
		cmp = c
	case a.kind == KindString && b.kind == KindString:
		cmp = strings.Compare(a.Str(), b.Str())
	case a.kind == KindChar && b.kind == KindChar:
		cmp = int(a.Char()) - int(b.Char())
	default:
		return false, Errorf(TypeError, "cannot compare %s and %s with %s", a.kind, b.kind, opSymbol(op))
	}

	switch op {
	case bytecode.OpLt:
		return cmp < 0, nil
	case bytecode.OpLe:
		return cmp <= 0, nil
	case bytecode.OpGt:
		return cmp > 0, nil
	case bytecode.OpGe:
		return cmp >= 0, nil
	}
	return false, &VMFault{Op: op.String(), Message: "not a comparison opcode"}
}
