package vm

import (
	"fmt"
	"strings"

	"github.com/cfgs-lang/cfgs/bytecode"
)

// ---------------------------------------------------------------------------
// TryHandler: one active protected region
// ---------------------------------------------------------------------------

type handlerState uint8

const (
	stateTry handlerState = iota
	stateCatching
	stateFinalizing
)

func (s handlerState) String() string {
	switch s {
	case stateTry:
		return "try"
	case stateCatching:
		return "catching"
	case stateFinalizing:
		return "finalizing"
	}
	return fmt.Sprintf("handlerState(%d)", uint8(s))
}

// PendingLeave is a break/continue deferred until a finally block completes.
type PendingLeave struct {
	TargetIP    int
	ScopesToPop int
}

// TryHandler is pushed by TRY_PUSH. The depth fields are snapshots taken at
// push time and are the unwind targets when the handler fires.
type TryHandler struct {
	CatchAddr   int // -1 if absent
	FinallyAddr int // -1 if absent

	// The protected region spans (TryAddr, EndAddr]: the try, catch and
	// finally bodies up to the closing END_FINALLY, or the catch's TRY_POP
	// when there is no finally.
	TryAddr int
	EndAddr int

	ScopeDepth  int
	CallDepth   int
	StackHeight int

	// Deferred work replayed by END_FINALLY, in priority order.
	Exception     *ExceptionValue
	PendingReturn *Value
	PendingLeave  *PendingLeave

	state handlerState
}

// InFinally reports whether the handler's finally block is running.
func (h *TryHandler) InFinally() bool { return h.state == stateFinalizing }

func (h *TryHandler) hasFinally() bool { return h.FinallyAddr >= 0 }

// finalize switches the handler into its finally block with exactly one
// deferred action recorded; any earlier one is discarded.
func (h *TryHandler) finalize(exc *ExceptionValue, ret *Value, leave *PendingLeave) {
	h.state = stateFinalizing
	h.Exception = exc
	h.PendingReturn = ret
	h.PendingLeave = leave
}

// covers reports whether addr lies inside the handler's protected region.
func (h *TryHandler) covers(addr int) bool {
	return addr > h.TryAddr && addr <= h.EndAddr
}

func (it *Interpreter) pushHandler(catchAddr, finallyAddr int) {
	end, ok := it.tryEnds[it.pc]
	if !ok {
		end = max(catchAddr, finallyAddr)
	}
	it.handlers = append(it.handlers, &TryHandler{
		CatchAddr:   catchAddr,
		FinallyAddr: finallyAddr,
		TryAddr:     it.pc,
		EndAddr:     end,
		ScopeDepth:  it.scopeDepth,
		CallDepth:   len(it.frames),
		StackHeight: len(it.stack),
	})
}

// tryRegionEnds maps every TRY_PUSH address to the last instruction of its
// region. A region with a finally ends at the END_FINALLY closing that block;
// one without ends at the TRY_POP closing its catch block. Nested regions
// are skipped whole while scanning.
func tryRegionEnds(code []bytecode.Instruction) map[int]int {
	ends := make(map[int]int)
	var end func(pc int) int
	end = func(pc int) int {
		if e, ok := ends[pc]; ok {
			return e
		}
		catchAddr, finallyAddr := int(code[pc].Operand.Int), int(code[pc].Operand.Int2)
		e := max(catchAddr, finallyAddr)
		ends[pc] = e

		from, closer := catchAddr, bytecode.OpTryPop
		if finallyAddr >= 0 {
			from, closer = finallyAddr, bytecode.OpEndFinally
		}
		if from <= pc {
			return e
		}
	scan:
		for i := from; i < len(code); i++ {
			switch code[i].Op {
			case bytecode.OpTryPush:
				if n := end(i); n > i {
					i = n
				}
			case closer:
				e = i
				break scan
			}
		}
		ends[pc] = e
		return e
	}
	for pc := range code {
		if code[pc].Op == bytecode.OpTryPush {
			end(pc)
		}
	}
	return ends
}

func (it *Interpreter) topHandler() *TryHandler {
	if n := len(it.handlers); n > 0 {
		return it.handlers[n-1]
	}
	return nil
}

func (it *Interpreter) popHandler() *TryHandler {
	n := len(it.handlers)
	if n == 0 {
		return nil
	}
	h := it.handlers[n-1]
	it.handlers[n-1] = nil
	it.handlers = it.handlers[:n-1]
	return h
}

// unwindTo discards frames, scopes and operand stack entries created since h
// was pushed.
func (it *Interpreter) unwindTo(h *TryHandler) {
	for len(it.frames) > h.CallDepth {
		it.popFrame()
	}
	it.popScopesTo(h.ScopeDepth)
	if len(it.stack) > h.StackHeight {
		it.truncateStack(h.StackHeight)
	}
}

// markFinalizing notices ordinary flow reaching the top handler's finally
// block (fallthrough from the try or catch body).
func (it *Interpreter) markFinalizing() {
	h := it.topHandler()
	if h != nil && h.FinallyAddr == it.ip && h.CallDepth == len(it.frames) && h.state != stateFinalizing {
		h.finalize(nil, nil, nil)
	}
}

// ---------------------------------------------------------------------------
// THROW
// ---------------------------------------------------------------------------

// throw raises exc at the current instruction. It returns nil when a handler
// at or above boundary took over, otherwise it unwinds every frame from
// boundary up and returns exc.
func (it *Interpreter) throw(exc *ExceptionValue, boundary int) error {
	if !exc.positioned {
		it.stamp(exc)
	}

	for len(it.handlers) > 0 {
		h := it.topHandler()
		if h.CallDepth < boundary {
			break
		}
		switch {
		case h.state == stateTry && h.CatchAddr >= 0:
			it.unwindTo(h)
			h.state = stateCatching
			it.push(FromException(exc))
			it.ip = h.CatchAddr
			return nil
		case h.state != stateFinalizing && h.hasFinally():
			it.unwindTo(h)
			h.finalize(exc, nil, nil)
			it.ip = h.FinallyAddr
			return nil
		}
		// Nothing left to run here: either the catch already ran and there
		// is no finally, or the throw came from inside the finally block.
		it.popHandler()
	}

	for len(it.frames) > 0 && len(it.frames) >= boundary {
		it.popFrame()
	}
	return exc
}

// stamp records the throw site and the call stack on exc.
func (it *Interpreter) stamp(exc *ExceptionValue) {
	exc.positioned = true
	if it.pc >= 0 && it.pc < len(it.code) {
		ins := &it.code[it.pc]
		exc.File, exc.Line, exc.Col = it.fileOf(ins.File), ins.Line, ins.Col
	}
	exc.StackTrace = it.stackTrace()
}

func (it *Interpreter) fileOf(file string) string {
	if file != "" {
		return file
	}
	return it.prog.File
}

// stackTrace lists the active frames innermost first, one line per frame.
func (it *Interpreter) stackTrace() string {
	var sb strings.Builder
	pc := it.pc
	for i := len(it.frames) - 1; i >= 0; i-- {
		f := it.frames[i]
		sb.WriteString("  at " + f.Name + " (" + it.position(pc) + ")\n")
		pc = f.CallPC
	}
	sb.WriteString("  at <main> (" + it.position(pc) + ")")
	return sb.String()
}

func (it *Interpreter) position(pc int) string {
	if pc < 0 || pc >= len(it.code) {
		return it.prog.File
	}
	ins := &it.code[pc]
	return fmt.Sprintf("%s:%d:%d", it.fileOf(ins.File), ins.Line, ins.Col)
}

// ---------------------------------------------------------------------------
// RETURN, LEAVE, END_FINALLY
// ---------------------------------------------------------------------------

// doReturn returns v from the current frame, first running every pending
// finally block of the frame's protected regions.
func (it *Interpreter) doReturn(v Value) (Value, bool, error) {
	depth := len(it.frames)
	for h := it.topHandler(); h != nil && h.CallDepth == depth; h = it.topHandler() {
		if h.hasFinally() && h.state != stateFinalizing {
			it.unwindTo(h)
			ret := v
			h.finalize(nil, &ret, nil)
			it.ip = h.FinallyAddr
			return Null, false, nil
		}
		it.popHandler()
	}

	if depth == 0 {
		return Null, false, &haltSignal{value: v}
	}
	f := it.popFrame()
	if f.native {
		return v, true, nil
	}
	it.ip = f.ReturnIP
	it.push(v)
	return Null, false, nil
}

// leave implements break/continue: pop scopes scopes and continue at target.
// A protected region of the current frame is exited when the target lies
// outside it and the destination depth is at or below its entry depth. The
// innermost exited region with a finally still to run defers the jump until
// that finally ends.
func (it *Interpreter) leave(target, scopes int) error {
	dest := it.scopeDepth - scopes
	if dest < it.scopeFloor() {
		return it.fault("LEAVE pops %d scopes past the frame", scopes)
	}
	depth := len(it.frames)
	for h := it.topHandler(); h != nil && h.CallDepth == depth && h.ScopeDepth >= dest && !h.covers(target); h = it.topHandler() {
		if h.hasFinally() && h.state != stateFinalizing {
			it.unwindTo(h)
			h.finalize(nil, nil, &PendingLeave{TargetIP: target, ScopesToPop: h.ScopeDepth - dest})
			it.ip = h.FinallyAddr
			return nil
		}
		it.popHandler()
	}
	it.popScopesTo(dest)
	it.ip = target
	return nil
}

// endFinally pops the finished handler and replays its deferred action:
// exception first, then return, then leave.
func (it *Interpreter) endFinally() (Value, bool, error) {
	h := it.popHandler()
	if h == nil {
		return Null, false, it.fault("END_FINALLY without active handler")
	}
	switch {
	case h.Exception != nil:
		return Null, false, h.Exception
	case h.PendingReturn != nil:
		return it.doReturn(*h.PendingReturn)
	case h.PendingLeave != nil:
		return Null, false, it.leave(h.PendingLeave.TargetIP, h.PendingLeave.ScopesToPop)
	}
	return Null, false, nil
}
