package vm

import (
	"errors"
	"testing"

	"github.com/cfgs-lang/cfgs/bytecode"
)

func TestExceptionError(t *testing.T) {
	e := NewException(TypeError, "bad operand")
	if got := e.Error(); got != "TypeError: bad operand" {
		t.Errorf("unpositioned Error() = %q", got)
	}
	if e.Positioned() {
		t.Error("new exception reports a position")
	}
}

func TestExceptionProperties(t *testing.T) {
	e := &ExceptionValue{Kind: "ConfigError", Message: "m", File: "f.cfgs", Line: 3, Col: 9, Payload: FromInt64(5)}
	tests := map[string]string{
		"kind":    "ConfigError",
		"message": "m",
		"file":    "f.cfgs",
		"line":    "3",
		"col":     "9",
		"payload": "5",
	}
	for name, want := range tests {
		v, ok := e.property(name)
		if !ok || v.String() != want {
			t.Errorf("property(%s) = %v, %v; want %s", name, v, ok, want)
		}
	}
	if _, ok := e.property("nope"); ok {
		t.Error("unknown property resolved")
	}
}

func TestWrapThrown(t *testing.T) {
	orig := NewException(IOError, "disk")
	if got := wrapThrown(FromException(orig)); got != orig {
		t.Error("wrapping an exception value created a new exception")
	}
	w := wrapThrown(FromString("plain"))
	if w.Kind != GenericError || w.Message != "plain" || w.Payload.Str() != "plain" {
		t.Errorf("wrapThrown(string) = %+v", w)
	}
}

func TestVMFaultError(t *testing.T) {
	f := &VMFault{IP: 0x1A, Op: "POP_SCOPE", Message: "no scope to pop"}
	if got := f.Error(); got != "vm fault at 001A (POP_SCOPE): no scope to pop" {
		t.Errorf("Error() = %q", got)
	}
	f = &VMFault{IP: 3, Message: "ip outside program"}
	if got := f.Error(); got != "vm fault at 0003: ip outside program" {
		t.Errorf("Error() = %q", got)
	}
}

func TestExceptionBuiltinThrowAndCatch(t *testing.T) {
	b := bytecode.NewBuilder("t.cfgs")
	b.TryPush("catch", "")
	b.EmitConst(bytecode.Str("ConfigError"))
	b.EmitConst(bytecode.Str("missing key"))
	b.EmitConst(bytecode.Str("port"))
	b.EmitCall(bytecode.OpCall, "Exception", 3)
	b.At(4, 2)
	b.Emit(bytecode.OpThrow)
	b.Label("catch")
	b.At(5, 1)
	b.EmitName(bytecode.OpVarDecl, "e")
	for _, m := range []string{"kind", "message", "payload", "line"} {
		b.EmitName(bytecode.OpLoadVar, "e")
		b.EmitName(bytecode.OpLoadMember, m)
		b.Emit(bytecode.OpPrint)
	}
	b.Emit(bytecode.OpTryPop)
	b.Emit(bytecode.OpHalt)

	if got, want := mustRun(t, b), "ConfigError\nmissing key\nport\n4\n"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestUncaughtCustomException(t *testing.T) {
	b := bytecode.NewBuilder("t.cfgs")
	b.EmitConst(bytecode.Str("ConfigError"))
	b.EmitConst(bytecode.Str("bad"))
	b.EmitCall(bytecode.OpCall, "Exception", 2)
	b.At(7, 5)
	b.Emit(bytecode.OpThrow)

	_, _, err := run(t, b)
	var exc *ExceptionValue
	if !errors.As(err, &exc) {
		t.Fatalf("Run = %v, want exception", err)
	}
	if exc.Error() != "ConfigError: bad at t.cfgs:7:5" {
		t.Errorf("Error() = %q", exc.Error())
	}
}

func TestExceptionMemberUnknown(t *testing.T) {
	b := bytecode.NewBuilder("t.cfgs")
	b.EmitConst(bytecode.Str("E"))
	b.EmitConst(bytecode.Str("m"))
	b.EmitCall(bytecode.OpCall, "Exception", 2)
	b.EmitName(bytecode.OpLoadMember, "severity")
	b.Emit(bytecode.OpHalt)

	_, _, err := run(t, b)
	if got := exceptionKind(t, err); got != MemberError {
		t.Errorf("kind = %s, want MemberError", got)
	}
}
