package vm

// Closure is a function value: an entry address plus the scope it closes over.
type Closure struct {
	Name   string
	Entry  int
	Params []string
	Env    *Environment
}

// NativeFunc implements a builtin. Returning an *ExceptionValue raises it in
// the running program.
type NativeFunc func(it *Interpreter, args []Value) (Value, error)

// AsyncFunc implements a builtin whose result arrives later. The interpreter
// blocks on the Deferred before continuing.
type AsyncFunc func(it *Interpreter, args []Value) *Deferred

// Builtin is a host function callable from bytecode. Max < 0 means variadic.
type Builtin struct {
	Name  string
	Min   int
	Max   int
	Fn    NativeFunc
	Async AsyncFunc
}

// IntrinsicFunc implements a method on a built-in value.
type IntrinsicFunc func(it *Interpreter, recv Value, args []Value) (Value, error)

// Intrinsic is a method of a built-in kind. Min and Max exclude the receiver.
// Called unbound, the receiver is passed as the first argument.
type Intrinsic struct {
	Name string
	Min  int
	Max  int
	Fn   IntrinsicFunc

	kind Kind // receiver kind, set on registration
}

// IntrinsicBound is an intrinsic with its receiver attached.
type IntrinsicBound struct {
	Method   *Intrinsic
	Receiver Value
}

// BoundMethod is a class method with its receiver attached. The receiver is
// declared as "self" in the callee's scope.
type BoundMethod struct {
	Method   *Closure
	Receiver Value
}

// TypeKind says what a BoundType refers to.
type TypeKind uint8

const (
	TypeClass TypeKind = iota
	TypeEnum
	TypeBuiltin // array, dict, string, file: members are unbound intrinsics
)

// BoundType names a class, enum or built-in kind for qualified static access.
// It is not callable.
type BoundType struct {
	Name string
	Kind TypeKind
	kind Kind // for TypeBuiltin
}

// arity reports the accepted argument range of a callable value.
func arity(callee Value) (min, max int, ok bool) {
	switch callee.kind {
	case KindClosure:
		n := len(callee.Closure().Params)
		return n, n, true
	case KindBoundMethod:
		n := len(callee.BoundMethod().Method.Params)
		return n, n, true
	case KindBuiltin:
		b := callee.Builtin()
		return b.Min, b.Max, true
	case KindIntrinsic:
		m := callee.Intrinsic()
		max = m.Max
		if max >= 0 {
			max++
		}
		return m.Min + 1, max, true
	case KindIntrinsicBound:
		m := callee.IntrinsicBound().Method
		return m.Min, m.Max, true
	}
	return 0, 0, false
}

func checkArity(name string, min, max, argc int) error {
	if argc < min || (max >= 0 && argc > max) {
		switch {
		case min == max:
			return Errorf(ArityError, "%s expects %d argument(s), got %d", name, min, argc)
		case max < 0:
			return Errorf(ArityError, "%s expects at least %d argument(s), got %d", name, min, argc)
		default:
			return Errorf(ArityError, "%s expects %d to %d arguments, got %d", name, min, max, argc)
		}
	}
	return nil
}

func calleeName(callee Value) string {
	switch callee.kind {
	case KindClosure:
		return callee.Closure().Name
	case KindBoundMethod:
		return callee.BoundMethod().Method.Name
	case KindBuiltin:
		return callee.Builtin().Name
	case KindIntrinsic:
		return callee.Intrinsic().Name
	case KindIntrinsicBound:
		return callee.IntrinsicBound().Method.Name
	}
	return callee.kind.String()
}
