package vm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/dlclark/regexp2"
	"github.com/google/uuid"
	"github.com/tliron/commonlog"

	"github.com/cfgs-lang/cfgs/bytecode"
)

// ---------------------------------------------------------------------------
// Options
// ---------------------------------------------------------------------------

// Options configures an Interpreter.
type Options struct {
	// Stdout receives PRINT output. Defaults to os.Stdout.
	Stdout io.Writer

	// MaxCallDepth bounds the frame stack; deeper calls raise
	// StackOverflowError.
	MaxCallDepth int

	// Trace logs every instruction at Debug level.
	Trace bool

	// FileBufferSize is the bufio size of handles returned by open().
	FileBufferSize int

	// RegexTimeout bounds a single regex match; exceeding it raises Error.
	RegexTimeout time.Duration

	// Logger overrides the "cfgs.vm" logger.
	Logger commonlog.Logger
}

// DefaultOptions returns the options used when a field is left zero.
func DefaultOptions() Options {
	return Options{
		Stdout:         os.Stdout,
		MaxCallDepth:   1024,
		FileBufferSize: 4096,
		RegexTimeout:   time.Second,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Stdout == nil {
		o.Stdout = d.Stdout
	}
	if o.MaxCallDepth <= 0 {
		o.MaxCallDepth = d.MaxCallDepth
	}
	if o.FileBufferSize <= 0 {
		o.FileBufferSize = d.FileBufferSize
	}
	if o.RegexTimeout <= 0 {
		o.RegexTimeout = d.RegexTimeout
	}
	return o
}

// ---------------------------------------------------------------------------
// Interpreter: bytecode execution engine
// ---------------------------------------------------------------------------

// Interpreter executes one Program. It is not safe for concurrent use.
type Interpreter struct {
	prog    *bytecode.Program
	code    []bytecode.Instruction
	classes map[string]*Class
	enums   map[string][]string

	builtins map[string]*Builtin
	closures map[string]*Closure // function table entries, closed over globals
	regexps  map[string]*regexp2.Regexp
	files    map[string]*FileHandle
	tryEnds  map[int]int

	// Execution state
	globals    *Environment
	env        *Environment
	scopeDepth int
	stack      []Value
	frames     []*CallFrame
	handlers   []*TryHandler
	ip         int // next instruction
	pc         int // instruction being executed

	ctx   context.Context
	opts  Options
	out   io.Writer
	log   commonlog.Logger
	runID string
	steps uint64
}

// New prepares an interpreter for prog. The program is validated and its
// class table linked; errors here mean the input is malformed.
func New(prog *bytecode.Program, opts Options) (*Interpreter, error) {
	if err := prog.Validate(); err != nil {
		return nil, fmt.Errorf("vm: %w", err)
	}
	opts = opts.withDefaults()

	it := &Interpreter{
		prog:     prog,
		code:     prog.Code,
		classes:  make(map[string]*Class, len(prog.Classes)),
		enums:    prog.Enums,
		builtins: standardBuiltins(),
		closures: make(map[string]*Closure),
		regexps:  make(map[string]*regexp2.Regexp),
		files:    make(map[string]*FileHandle),
		tryEnds:  tryRegionEnds(prog.Code),
		ctx:      context.Background(),
		opts:     opts,
		out:      opts.Stdout,
		runID:    uuid.NewString(),
	}
	it.log = newRunLogger(opts.Logger, it.runID, prog.File)

	for name, info := range prog.Classes {
		it.classes[name] = newClass(info)
	}
	for name, info := range prog.Classes {
		if info.Base != "" {
			it.classes[name].Base = it.classes[info.Base]
		}
	}
	it.reset()
	return it, nil
}

func (it *Interpreter) reset() {
	it.globals = NewEnvironment(nil)
	it.env = it.globals
	it.scopeDepth = 0
	it.stack = it.stack[:0]
	it.frames = it.frames[:0]
	it.handlers = it.handlers[:0]
	it.ip, it.pc = 0, 0
	it.steps = 0
	it.closures = make(map[string]*Closure)
	for _, c := range it.classes {
		c.static = nil
	}
}

// RegisterBuiltin adds or replaces a host function visible to CALL and
// LOAD_VAR.
func (it *Interpreter) RegisterBuiltin(b *Builtin) {
	it.builtins[b.Name] = b
}

// RunID identifies this interpreter in log output.
func (it *Interpreter) RunID() string { return it.runID }

// Globals is the outermost scope.
func (it *Interpreter) Globals() *Environment { return it.globals }

// ScopeDepth is the number of scopes above the global scope.
func (it *Interpreter) ScopeDepth() int { return it.scopeDepth }

// CallDepth is the number of active call frames.
func (it *Interpreter) CallDepth() int { return len(it.frames) }

// HandlerDepth is the number of active try handlers.
func (it *Interpreter) HandlerDepth() int { return len(it.handlers) }

// StackHeight is the operand stack size.
func (it *Interpreter) StackHeight() int { return len(it.stack) }

// haltSignal ends the program from any nesting level.
type haltSignal struct {
	value Value
}

func (h *haltSignal) Error() string { return "halt" }

// Run executes the program from its first instruction until HALT, a
// top-level RETURN, or the end of the code. The error is an *ExceptionValue
// for an uncaught exception, a *VMFault for malformed bytecode, or the
// context's error on cancellation.
func (it *Interpreter) Run(ctx context.Context) (result Value, err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	it.ctx = ctx
	it.reset()

	start := time.Now()
	it.log.Info("run started", "instructions", len(it.code))

	defer func() {
		if r := recover(); r != nil {
			f, ok := r.(*VMFault)
			if !ok {
				panic(r)
			}
			result, err = Null, f
		}
		it.logOutcome(err, time.Since(start))
	}()

	result, err = it.execute(0)
	var halt *haltSignal
	if errors.As(err, &halt) {
		return halt.value, nil
	}
	return result, err
}

// execute runs instructions until the frame at depth boundary returns or the
// program ends. Exceptions are only dispatched to handlers opened at or above
// boundary; anything else propagates to the Go caller.
func (it *Interpreter) execute(boundary int) (Value, error) {
	for {
		if it.ip < 0 || it.ip >= len(it.code) {
			if it.ip == len(it.code) && len(it.frames) == 0 {
				return Null, nil
			}
			it.pc = it.ip
			return Null, it.fault("instruction pointer %d outside program", it.ip)
		}

		it.steps++
		if it.steps&0x3FF == 0 {
			if err := it.ctx.Err(); err != nil {
				return Null, err
			}
		}

		it.markFinalizing()
		it.pc = it.ip
		ins := &it.code[it.pc]
		it.ip++
		if it.opts.Trace {
			it.traceInstruction(ins)
		}

		v, done, err := it.step(ins)
		if err != nil {
			var exc *ExceptionValue
			if !errors.As(err, &exc) {
				return Null, err
			}
			if err := it.throw(exc, boundary); err != nil {
				return Null, err
			}
			continue
		}
		if done {
			return v, nil
		}
	}
}

// step executes one instruction. done is set when a native frame returned v.
func (it *Interpreter) step(ins *bytecode.Instruction) (v Value, done bool, err error) {
	op := &ins.Operand
	switch ins.Op {
	case bytecode.OpNop:

	case bytecode.OpPop:
		it.pop()
	case bytecode.OpDup:
		it.push(it.peek(0))
	case bytecode.OpSwap:
		b, a := it.pop(), it.pop()
		it.push(b)
		it.push(a)

	case bytecode.OpPushConst:
		lit, err := it.literal(op.Lit)
		if err != nil {
			return Null, false, err
		}
		it.push(lit)
	case bytecode.OpPushNull:
		it.push(Null)
	case bytecode.OpPushTrue:
		it.push(True)
	case bytecode.OpPushFalse:
		it.push(False)

	case bytecode.OpVarDecl:
		it.env.Declare(op.Name, it.pop())
	case bytecode.OpLoadVar:
		val, err := it.lookupName(op.Name)
		if err != nil {
			return Null, false, err
		}
		it.push(val)
	case bytecode.OpStoreVar:
		if !it.env.Assign(op.Name, it.pop()) {
			return Null, false, Errorf(NameError, "assignment to undeclared variable '%s'", op.Name)
		}
	case bytecode.OpPushScope:
		it.pushScope()
	case bytecode.OpPopScope:
		return Null, false, it.popScope()

	case bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv, bytecode.OpMod:
		b, a := it.pop(), it.pop()
		r, err := arith(ins.Op, a, b)
		if err != nil {
			return Null, false, err
		}
		it.push(r)
	case bytecode.OpNeg:
		r, err := negate(it.pop())
		if err != nil {
			return Null, false, err
		}
		it.push(r)
	case bytecode.OpNot:
		it.push(FromBool(!it.pop().Truthy()))
	case bytecode.OpEq:
		b, a := it.pop(), it.pop()
		it.push(FromBool(Equal(a, b)))
	case bytecode.OpNe:
		b, a := it.pop(), it.pop()
		it.push(FromBool(!Equal(a, b)))
	case bytecode.OpLt, bytecode.OpLe, bytecode.OpGt, bytecode.OpGe:
		b, a := it.pop(), it.pop()
		r, err := compare(ins.Op, a, b)
		if err != nil {
			return Null, false, err
		}
		it.push(FromBool(r))

	case bytecode.OpJump:
		it.ip = int(op.Int)
	case bytecode.OpJumpIfFalse:
		if !it.pop().Truthy() {
			it.ip = int(op.Int)
		}
	case bytecode.OpJumpIfTrue:
		if it.pop().Truthy() {
			it.ip = int(op.Int)
		}
	case bytecode.OpLeave:
		return Null, false, it.leave(int(op.Int), int(op.Int2))
	case bytecode.OpHalt:
		return Null, false, &haltSignal{value: Null}

	case bytecode.OpCall:
		callee, err := it.resolveCallee(op.Name)
		if err != nil {
			return Null, false, err
		}
		return Null, false, it.dispatchCall(callee, int(op.Int), 0)
	case bytecode.OpCallIndirect:
		argc := int(op.Int)
		return Null, false, it.dispatchCall(it.peek(argc), argc, 1)
	case bytecode.OpCallMethod:
		argc := int(op.Int)
		callee, err := it.loadMember(it.peek(argc), op.Name)
		if err != nil {
			return Null, false, err
		}
		return Null, false, it.dispatchCall(callee, argc, 1)
	case bytecode.OpPushClosure:
		fn, ok := it.prog.Functions[op.Name]
		if !ok {
			return Null, false, it.fault("undefined function %q", op.Name)
		}
		it.push(FromClosure(&Closure{Name: fn.Name, Entry: fn.Address, Params: fn.Params, Env: it.env}))
	case bytecode.OpReturn:
		return it.doReturn(it.pop())

	case bytecode.OpMakeArray:
		it.push(NewArray(it.popN(int(op.Int))))
	case bytecode.OpMakeDict:
		pairs := it.popN(2 * int(op.Int))
		d := NewDict()
		for i := 0; i < len(pairs); i += 2 {
			d.Set(pairs[i], pairs[i+1])
		}
		it.push(FromDict(d))
	case bytecode.OpIndexGet:
		idx, obj := it.pop(), it.pop()
		r, err := it.indexGet(obj, idx)
		if err != nil {
			return Null, false, err
		}
		it.push(r)
	case bytecode.OpIndexSet:
		val, idx, obj := it.pop(), it.pop(), it.pop()
		return Null, false, it.indexSet(obj, idx, val)
	case bytecode.OpSliceGet:
		end, start, obj := it.pop(), it.pop(), it.pop()
		r, err := sliceOf(obj, start, end)
		if err != nil {
			return Null, false, err
		}
		it.push(r)

	case bytecode.OpNewObject:
		c, ok := it.classes[op.Name]
		if !ok {
			return Null, false, it.fault("undefined class %q", op.Name)
		}
		it.push(FromInstance(c.NewInstance()))
	case bytecode.OpLoadMember:
		r, err := it.loadMember(it.pop(), op.Name)
		if err != nil {
			return Null, false, err
		}
		it.push(r)
	case bytecode.OpStoreMember:
		val, obj := it.pop(), it.pop()
		return Null, false, it.storeMember(obj, op.Name, val)
	case bytecode.OpLoadStatic:
		t, ok := it.resolveType(op.Name)
		if !ok {
			return Null, false, it.fault("undefined type %q", op.Name)
		}
		r, err := it.typeMember(t, op.Member)
		if err != nil {
			return Null, false, err
		}
		it.push(r)
	case bytecode.OpStoreStatic:
		t, ok := it.resolveType(op.Name)
		if !ok {
			return Null, false, it.fault("undefined type %q", op.Name)
		}
		return Null, false, it.storeMember(FromBoundType(t), op.Member, it.pop())
	case bytecode.OpPushType:
		t, ok := it.resolveType(op.Name)
		if !ok {
			return Null, false, it.fault("undefined type %q", op.Name)
		}
		it.push(FromBoundType(t))

	case bytecode.OpTryPush:
		it.pushHandler(int(op.Int), int(op.Int2))
	case bytecode.OpTryPop:
		if it.popHandler() == nil {
			return Null, false, it.fault("TRY_POP without active handler")
		}
	case bytecode.OpThrow:
		return Null, false, wrapThrown(it.pop())
	case bytecode.OpEndFinally:
		return it.endFinally()

	case bytecode.OpPrint:
		if _, err := fmt.Fprintln(it.out, it.pop().String()); err != nil {
			return Null, false, fmt.Errorf("vm: print: %w", err)
		}

	default:
		return Null, false, it.fault("unknown opcode 0x%02X", uint8(ins.Op))
	}
	return Null, false, nil
}

// literal converts a constant-pool literal into a runtime value.
func (it *Interpreter) literal(lit *bytecode.Literal) (Value, error) {
	if lit == nil {
		return Null, it.fault("missing literal")
	}
	switch lit.Kind {
	case bytecode.LitNull:
		return Null, nil
	case bytecode.LitBool:
		return FromBool(lit.Int != 0), nil
	case bytecode.LitInt64:
		return FromInt64(lit.Int), nil
	case bytecode.LitInt32:
		return FromInt32(int32(lit.Int)), nil
	case bytecode.LitFloat32:
		return FromFloat32(float32(lit.Float)), nil
	case bytecode.LitFloat64:
		return FromFloat64(lit.Float), nil
	case bytecode.LitDecimal:
		d, _, err := apd.NewFromString(lit.Str)
		if err != nil {
			return Null, it.fault("invalid decimal literal %q", lit.Str)
		}
		return FromDecimal(d), nil
	case bytecode.LitString:
		return FromString(lit.Str), nil
	case bytecode.LitChar:
		return FromChar(rune(lit.Int)), nil
	}
	return Null, it.fault("unknown literal kind %d", lit.Kind)
}

// lookupName resolves LOAD_VAR: scopes, then the function table, then
// builtins.
func (it *Interpreter) lookupName(name string) (Value, error) {
	if v, ok := it.env.Lookup(name); ok {
		return v, nil
	}
	if _, ok := it.prog.Functions[name]; ok {
		fn, err := it.functionClosure(name)
		if err != nil {
			return Null, err
		}
		return FromClosure(fn), nil
	}
	if b, ok := it.builtins[name]; ok {
		return FromBuiltin(b), nil
	}
	return Null, Errorf(NameError, "name '%s' is not defined", name)
}

// resolveCallee resolves CALL: the function table first, then scopes, then
// builtins.
func (it *Interpreter) resolveCallee(name string) (Value, error) {
	if _, ok := it.prog.Functions[name]; ok {
		fn, err := it.functionClosure(name)
		if err != nil {
			return Null, err
		}
		return FromClosure(fn), nil
	}
	if v, ok := it.env.Lookup(name); ok {
		return v, nil
	}
	if b, ok := it.builtins[name]; ok {
		return FromBuiltin(b), nil
	}
	return Null, Errorf(NameError, "name '%s' is not defined", name)
}

// functionClosure returns the function-table entry name as a closure over the
// global scope. Closures are cached per run so identity comparisons hold.
func (it *Interpreter) functionClosure(name string) (*Closure, error) {
	if c, ok := it.closures[name]; ok {
		return c, nil
	}
	fn, ok := it.prog.Functions[name]
	if !ok {
		return nil, it.fault("undefined function %q", name)
	}
	c := &Closure{Name: fn.Name, Entry: fn.Address, Params: fn.Params, Env: it.globals}
	it.closures[name] = c
	return c, nil
}

// Close releases every file handle still open, flushing pending writes. The
// first error is returned.
func (it *Interpreter) Close() error {
	var first error
	for id, f := range it.files {
		if err := f.Close(); err != nil && first == nil {
			first = err
		}
		delete(it.files, id)
	}
	return first
}
