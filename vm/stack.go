package vm

import "fmt"

// ---------------------------------------------------------------------------
// CallFrame: Execution state for a function invocation
// ---------------------------------------------------------------------------

// CallFrame records what a RETURN must restore in the caller.
type CallFrame struct {
	Name       string       // callee name, for stack traces
	ReturnIP   int          // instruction after the call
	CallPC     int          // the call instruction itself
	Env        *Environment // caller's scope
	ScopeDepth int          // caller's scope depth
	StackBase  int          // operand stack height after arguments were popped

	// native frames were entered from Go (map/filter callbacks); returning
	// from them ends the nested run loop instead of resuming the caller.
	native bool
}

// ---------------------------------------------------------------------------
// Operand stack
// ---------------------------------------------------------------------------

func (it *Interpreter) push(v Value) {
	it.stack = append(it.stack, v)
}

func (it *Interpreter) pop() Value {
	n := len(it.stack)
	if n == 0 {
		panic(it.fault("operand stack underflow"))
	}
	v := it.stack[n-1]
	it.stack[n-1] = Null
	it.stack = it.stack[:n-1]
	return v
}

// peek returns the value depth slots below the top.
func (it *Interpreter) peek(depth int) Value {
	n := len(it.stack)
	if depth < 0 || depth >= n {
		panic(it.fault("operand stack underflow"))
	}
	return it.stack[n-1-depth]
}

// popN pops n values and returns them in push order.
func (it *Interpreter) popN(n int) []Value {
	if n < 0 || n > len(it.stack) {
		panic(it.fault("operand stack underflow"))
	}
	base := len(it.stack) - n
	vals := make([]Value, n)
	copy(vals, it.stack[base:])
	it.truncateStack(base)
	return vals
}

func (it *Interpreter) truncateStack(height int) {
	for i := height; i < len(it.stack); i++ {
		it.stack[i] = Null
	}
	it.stack = it.stack[:height]
}

// ---------------------------------------------------------------------------
// Frames
// ---------------------------------------------------------------------------

// enterFrame starts executing a closure or bound method. Arguments have
// already been taken off the stack and checked against the arity.
func (it *Interpreter) enterFrame(callee Value, args []Value, native bool) error {
	if len(it.frames) >= it.opts.MaxCallDepth {
		return Errorf(StackOverflowError, "maximum call depth %d exceeded", it.opts.MaxCallDepth)
	}

	var fn *Closure
	var self Value
	bound := false
	switch callee.kind {
	case KindClosure:
		fn = callee.Closure()
	case KindBoundMethod:
		m := callee.BoundMethod()
		fn, self, bound = m.Method, m.Receiver, true
	default:
		return it.fault("cannot enter frame for %s", callee.kind)
	}

	it.frames = append(it.frames, &CallFrame{
		Name:       fn.Name,
		ReturnIP:   it.ip,
		CallPC:     it.pc,
		Env:        it.env,
		ScopeDepth: it.scopeDepth,
		StackBase:  len(it.stack),
		native:     native,
	})

	env := NewEnvironment(fn.Env)
	if bound {
		env.Declare("self", self)
	}
	for i, p := range fn.Params {
		env.Declare(p, args[i])
	}
	it.env = env
	it.scopeDepth++
	it.ip = fn.Entry
	return nil
}

// popFrame discards the innermost frame and restores the caller's scope and
// operand stack. The caller decides where execution resumes.
func (it *Interpreter) popFrame() *CallFrame {
	n := len(it.frames)
	f := it.frames[n-1]
	it.frames[n-1] = nil
	it.frames = it.frames[:n-1]
	it.env = f.Env
	it.scopeDepth = f.ScopeDepth
	if len(it.stack) > f.StackBase {
		it.truncateStack(f.StackBase)
	}
	return f
}

// ---------------------------------------------------------------------------
// Scopes
// ---------------------------------------------------------------------------

func (it *Interpreter) pushScope() {
	it.env = NewEnvironment(it.env)
	it.scopeDepth++
}

// scopeFloor is the lowest depth POP_SCOPE may reach in the current frame.
func (it *Interpreter) scopeFloor() int {
	if n := len(it.frames); n > 0 {
		return it.frames[n-1].ScopeDepth + 1
	}
	return 0
}

func (it *Interpreter) popScope() error {
	if it.scopeDepth <= it.scopeFloor() {
		return it.fault("POP_SCOPE without matching PUSH_SCOPE")
	}
	it.env = it.env.parent
	it.scopeDepth--
	return nil
}

func (it *Interpreter) popScopesTo(depth int) {
	for it.scopeDepth > depth {
		it.env = it.env.parent
		it.scopeDepth--
	}
}

func (it *Interpreter) fault(format string, args ...any) *VMFault {
	f := &VMFault{IP: it.pc, Message: fmt.Sprintf(format, args...)}
	if it.pc >= 0 && it.pc < len(it.code) {
		f.Op = it.code[it.pc].Op.String()
	}
	return f
}
