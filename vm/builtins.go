package vm

import (
	"math"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cockroachdb/apd/v3"
	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Standard builtins
// ---------------------------------------------------------------------------

// standardBuiltins returns a fresh table; RegisterBuiltin edits only the
// owning interpreter's copy.
func standardBuiltins() map[string]*Builtin {
	bs := []*Builtin{
		{Name: "len", Min: 1, Max: 1, Fn: builtinLen},
		{Name: "typeof", Min: 1, Max: 1, Fn: func(_ *Interpreter, args []Value) (Value, error) {
			return FromString(args[0].kind.String()), nil
		}},
		{Name: "str", Min: 1, Max: 1, Fn: func(_ *Interpreter, args []Value) (Value, error) {
			return FromString(args[0].String()), nil
		}},
		{Name: "int", Min: 1, Max: 1, Fn: builtinInt},
		{Name: "float", Min: 1, Max: 1, Fn: builtinFloat},
		{Name: "decimal", Min: 1, Max: 1, Fn: builtinDecimal},
		{Name: "Exception", Min: 2, Max: 3, Fn: builtinException},
		{Name: "classOf", Min: 1, Max: 1, Fn: func(_ *Interpreter, args []Value) (Value, error) {
			switch args[0].kind {
			case KindInstance, KindStatic:
				return FromClass(args[0].Object().Class), nil
			}
			return Null, Errorf(TypeError, "classOf expects an object, got %s", args[0].kind)
		}},
		{Name: "open", Min: 1, Max: 2, Fn: builtinOpen},
		{Name: "uuid", Fn: func(_ *Interpreter, _ []Value) (Value, error) {
			return FromString(uuid.NewString()), nil
		}},
		{Name: "sleep", Min: 1, Max: 1, Async: asyncSleep},
		{Name: "readFileAsync", Min: 1, Max: 1, Async: asyncReadFile},
	}
	m := make(map[string]*Builtin, len(bs))
	for _, b := range bs {
		m[b.Name] = b
	}
	return m
}

func builtinLen(_ *Interpreter, args []Value) (Value, error) {
	v := args[0]
	switch v.kind {
	case KindString:
		return FromInt64(int64(utf8.RuneCountInString(v.Str()))), nil
	case KindArray:
		return FromInt64(int64(len(v.Array().Elems))), nil
	case KindDict:
		return FromInt64(int64(v.Dict().Len())), nil
	}
	return Null, Errorf(TypeError, "len() of %s", v.kind)
}

// builtinInt truncates toward zero.
func builtinInt(_ *Interpreter, args []Value) (Value, error) {
	v := args[0]
	switch v.kind {
	case KindInt64:
		return v, nil
	case KindInt32:
		return FromInt64(v.Int64()), nil
	case KindBool:
		if v.Bool() {
			return FromInt64(1), nil
		}
		return FromInt64(0), nil
	case KindChar:
		return FromInt64(int64(v.Char())), nil
	case KindFloat32, KindFloat64:
		f := math.Trunc(toFloat64(v))
		if math.IsNaN(f) || f < math.MinInt64 || f >= math.MaxInt64 {
			return Null, Errorf(ArithmeticError, "cannot convert %s to int", v.String())
		}
		return FromInt64(int64(f)), nil
	case KindDecimal:
		var integ, frac apd.Decimal
		v.Decimal().Modf(&integ, &frac)
		n, err := integ.Int64()
		if err != nil {
			return Null, Errorf(ArithmeticError, "cannot convert %s to int", v.String())
		}
		return FromInt64(n), nil
	case KindString:
		n, err := strconv.ParseInt(strings.TrimSpace(v.Str()), 10, 64)
		if err != nil {
			return Null, Errorf(TypeError, "cannot convert %q to int", v.Str())
		}
		return FromInt64(n), nil
	}
	return Null, Errorf(TypeError, "cannot convert %s to int", v.kind)
}

func builtinFloat(_ *Interpreter, args []Value) (Value, error) {
	v := args[0]
	switch {
	case v.kind == KindFloat64:
		return v, nil
	case v.kind.IsNumeric():
		return FromFloat64(toFloat64(v)), nil
	case v.kind == KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Str()), 64)
		if err != nil {
			return Null, Errorf(TypeError, "cannot convert %q to float", v.Str())
		}
		return FromFloat64(f), nil
	}
	return Null, Errorf(TypeError, "cannot convert %s to float", v.kind)
}

func builtinDecimal(_ *Interpreter, args []Value) (Value, error) {
	v := args[0]
	if v.kind == KindString {
		d, _, err := apd.NewFromString(strings.TrimSpace(v.Str()))
		if err != nil {
			return Null, Errorf(TypeError, "cannot convert %q to decimal", v.Str())
		}
		return FromDecimal(d), nil
	}
	d, err := toDecimal(v)
	if err != nil {
		return Null, err
	}
	return FromDecimal(d), nil
}

// builtinException builds Exception(kind, message[, payload]) without
// throwing it.
func builtinException(_ *Interpreter, args []Value) (Value, error) {
	kind, err := stringArg("Exception", args[0])
	if err != nil {
		return Null, err
	}
	exc := NewException(kind, args[1].String())
	if len(args) == 3 {
		exc.Payload = args[2]
	}
	return FromException(exc), nil
}

// builtinOpen implements open(path[, mode]); mode defaults to "r".
func builtinOpen(it *Interpreter, args []Value) (Value, error) {
	path, err := stringArg("open", args[0])
	if err != nil {
		return Null, err
	}
	mode := "r"
	if len(args) == 2 {
		if mode, err = stringArg("open", args[1]); err != nil {
			return Null, err
		}
	}
	h, err := OpenFile(path, mode, it.opts.FileBufferSize)
	if err != nil {
		return Null, ioError(path, err)
	}
	it.files[h.ID] = h
	it.log.Debug("file opened", "path", path, "mode", mode, "handle", h.ID)
	return FromFile(h), nil
}

// ---------------------------------------------------------------------------
// Async builtins
// ---------------------------------------------------------------------------

func asyncSleep(_ *Interpreter, args []Value) *Deferred {
	d := NewDeferred()
	ms, err := intArg("sleep", args[0])
	if err != nil {
		d.Reject(err)
		return d
	}
	time.AfterFunc(time.Duration(max(ms, 0))*time.Millisecond, func() { d.Resolve(Null) })
	return d
}

func asyncReadFile(_ *Interpreter, args []Value) *Deferred {
	path, err := stringArg("readFileAsync", args[0])
	if err != nil {
		d := NewDeferred()
		d.Reject(err)
		return d
	}
	return Go(func() (Value, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return Null, ioError(path, err)
		}
		return FromString(string(data)), nil
	})
}
