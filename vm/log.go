package vm

import (
	"context"
	"errors"
	"time"

	"github.com/tliron/commonlog"

	"github.com/cfgs-lang/cfgs/bytecode"
)

// LoggerName is the commonlog name used when Options.Logger is unset.
const LoggerName = "cfgs.vm"

// newRunLogger tags every line with the run id and program file.
func newRunLogger(base commonlog.Logger, runID, file string) commonlog.Logger {
	if base == nil {
		base = commonlog.GetLogger(LoggerName)
	}
	return commonlog.NewKeyValueLogger(base, "run", runID, "file", file)
}

func (it *Interpreter) logOutcome(err error, elapsed time.Duration) {
	var exc *ExceptionValue
	var fault *VMFault
	switch {
	case err == nil:
	case errors.As(err, &exc):
		it.log.Error("uncaught exception",
			"kind", exc.Kind,
			"message", exc.Message,
			"line", exc.Line,
			"col", exc.Col)
	case errors.As(err, &fault):
		it.log.Error("vm fault", "ip", fault.IP, "op", fault.Op, "message", fault.Message)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		it.log.Notice("run cancelled", "reason", err.Error())
	default:
		it.log.Error("run failed", "error", err.Error())
	}
	it.log.Info("run finished", "steps", it.steps, "elapsed", elapsed.String())
}

func (it *Interpreter) traceInstruction(ins *bytecode.Instruction) {
	if !it.log.AllowLevel(commonlog.Debug) {
		return
	}
	it.log.Debug("step",
		"ip", it.pc,
		"op", ins.Op.String(),
		"depth", len(it.frames),
		"stack", len(it.stack))
}
