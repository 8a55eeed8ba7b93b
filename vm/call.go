package vm

import (
	"context"
	"errors"
)

// dispatchCall invokes callee with the top argc stack values as arguments.
// extra further slots below the arguments (the callee or receiver) are
// dropped once the call is accepted. Arity is checked before anything is
// popped, so a rejected call leaves the stack and frames untouched.
func (it *Interpreter) dispatchCall(callee Value, argc, extra int) error {
	min, max, ok := arity(callee)
	if !ok {
		return Errorf(TypeError, "%s is not callable", describeCallee(callee))
	}
	if err := checkArity(calleeName(callee), min, max, argc); err != nil {
		return err
	}
	if err := it.checkReceiver(callee, argc); err != nil {
		return err
	}

	switch callee.kind {
	case KindClosure, KindBoundMethod:
		if len(it.frames) >= it.opts.MaxCallDepth {
			return Errorf(StackOverflowError, "maximum call depth %d exceeded", it.opts.MaxCallDepth)
		}
		args := it.popN(argc)
		it.popN(extra)
		return it.enterFrame(callee, args, false)
	}

	args := it.popN(argc)
	it.popN(extra)
	v, err := it.callNative(callee, args)
	if err != nil {
		return err
	}
	it.push(v)
	return nil
}

// checkReceiver rejects an unbound intrinsic whose first argument is of the
// wrong kind. Arguments are still on the stack.
func (it *Interpreter) checkReceiver(callee Value, argc int) error {
	if callee.kind != KindIntrinsic {
		return nil
	}
	m := callee.Intrinsic()
	recv := it.peek(argc - 1)
	if recv.kind != m.kind {
		return Errorf(TypeError, "%s.%s expects a %s receiver, got %s", m.kind, m.Name, m.kind, recv.kind)
	}
	return nil
}

func describeCallee(v Value) string {
	if v.kind == KindBoundType {
		return "type " + v.BoundType().Name
	}
	return v.kind.String()
}

// callValue calls fn from Go with the given arguments and returns its
// result. Bytecode callees run in a nested loop that stops when their frame
// returns; exceptions they do not catch come back as the error.
func (it *Interpreter) callValue(fn Value, args []Value) (Value, error) {
	min, max, ok := arity(fn)
	if !ok {
		return Null, Errorf(TypeError, "%s is not callable", describeCallee(fn))
	}
	if err := checkArity(calleeName(fn), min, max, len(args)); err != nil {
		return Null, err
	}

	switch fn.kind {
	case KindClosure, KindBoundMethod:
		savedIP, savedPC := it.ip, it.pc
		defer func() { it.ip, it.pc = savedIP, savedPC }()
		if err := it.enterFrame(fn, args, true); err != nil {
			return Null, err
		}
		return it.execute(len(it.frames))
	case KindIntrinsic:
		if m := fn.Intrinsic(); args[0].kind != m.kind {
			return Null, Errorf(TypeError, "%s.%s expects a %s receiver, got %s", m.kind, m.Name, m.kind, args[0].kind)
		}
	}
	return it.callNative(fn, args)
}

// callNative runs a builtin or intrinsic.
func (it *Interpreter) callNative(callee Value, args []Value) (Value, error) {
	var v Value
	var err error
	switch callee.kind {
	case KindBuiltin:
		b := callee.Builtin()
		if b.Async != nil {
			v, err = it.await(it.ctx, b.Async(it, args))
		} else {
			v, err = b.Fn(it, args)
		}
	case KindIntrinsic:
		m := callee.Intrinsic()
		v, err = m.Fn(it, args[0], args[1:])
	case KindIntrinsicBound:
		b := callee.IntrinsicBound()
		v, err = b.Method.Fn(it, b.Receiver, args)
	default:
		return Null, it.fault("%s is not a native callable", callee.kind)
	}
	if err != nil {
		return Null, nativeError(calleeName(callee), err)
	}
	return v, nil
}

// nativeError decides how an error from host code surfaces. Exceptions,
// faults, halts and cancellation pass through unchanged; any other Go error
// becomes a catchable exception.
func nativeError(name string, err error) error {
	var exc *ExceptionValue
	var fault *VMFault
	var halt *haltSignal
	switch {
	case errors.As(err, &exc), errors.As(err, &fault), errors.As(err, &halt):
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return Errorf(GenericError, "%s: %s", name, err.Error())
}
