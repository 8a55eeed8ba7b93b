package vm

import (
	"fmt"
	"strings"
)

// Exception kinds raised by the interpreter itself. Programs may throw any
// kind string through the Exception builtin.
const (
	TypeError          = "TypeError"
	ArityError         = "ArityError"
	MemberError        = "MemberError"
	IndexError         = "IndexError"
	ArithmeticError    = "ArithmeticError"
	NameError          = "NameError"
	StackOverflowError = "StackOverflowError"
	IOError            = "IOError"

	// GenericError wraps a thrown value that is not an exception.
	GenericError = "Error"
)

// ---------------------------------------------------------------------------
// ExceptionValue: catchable program-level errors
// ---------------------------------------------------------------------------

// ExceptionValue is a thrown CFGS exception. It doubles as the Go error
// returned from Run when nothing catches it.
type ExceptionValue struct {
	Kind       string
	Message    string
	File       string
	Line       int
	Col        int
	StackTrace string
	Payload    Value // original value when a non-exception was thrown

	positioned bool
}

// NewException creates an exception without position; the interpreter stamps
// the throw site when it is raised.
func NewException(kind, message string) *ExceptionValue {
	return &ExceptionValue{Kind: kind, Message: message}
}

// Errorf creates an exception of the given kind. Natives return it as their
// error to raise it in the running program.
func Errorf(kind, format string, args ...any) *ExceptionValue {
	return NewException(kind, fmt.Sprintf(format, args...))
}

// Error formats the exception as "Kind: message at file:line:col".
func (e *ExceptionValue) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Kind)
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	if e.positioned && (e.File != "" || e.Line > 0) {
		sb.WriteString(fmt.Sprintf(" at %s:%d:%d", e.File, e.Line, e.Col))
	}
	return sb.String()
}

// Positioned reports whether the throw site has been recorded.
func (e *ExceptionValue) Positioned() bool { return e.positioned }

// property implements read access to exception fields from bytecode.
func (e *ExceptionValue) property(name string) (Value, bool) {
	switch name {
	case "kind":
		return FromString(e.Kind), true
	case "message":
		return FromString(e.Message), true
	case "file":
		return FromString(e.File), true
	case "line":
		return FromInt64(int64(e.Line)), true
	case "col":
		return FromInt64(int64(e.Col)), true
	case "trace":
		return FromString(e.StackTrace), true
	case "payload":
		return e.Payload, true
	}
	return Null, false
}

// wrapThrown converts an arbitrary thrown value into an exception.
func wrapThrown(v Value) *ExceptionValue {
	if e := v.Exception(); e != nil {
		return e
	}
	return &ExceptionValue{Kind: GenericError, Message: v.String(), Payload: v}
}

// ---------------------------------------------------------------------------
// VMFault: malformed programs
// ---------------------------------------------------------------------------

// VMFault reports an instruction stream the interpreter cannot execute.
// Faults end the run immediately and are never visible to catch blocks.
type VMFault struct {
	IP      int
	Op      string
	Message string
}

func (f *VMFault) Error() string {
	if f.Op == "" {
		return fmt.Sprintf("vm fault at %04X: %s", f.IP, f.Message)
	}
	return fmt.Sprintf("vm fault at %04X (%s): %s", f.IP, f.Op, f.Message)
}
