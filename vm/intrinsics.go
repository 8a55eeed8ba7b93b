package vm

import "unicode/utf8"

// ---------------------------------------------------------------------------
// Intrinsic registry
// ---------------------------------------------------------------------------

// intrinsics maps a receiver kind to its methods. Tables are filled by init
// functions and read-only afterwards.
var intrinsics = map[Kind]map[string]*Intrinsic{}

func registerIntrinsics(kind Kind, ms ...*Intrinsic) {
	table := intrinsics[kind]
	if table == nil {
		table = make(map[string]*Intrinsic, len(ms))
		intrinsics[kind] = table
	}
	for _, m := range ms {
		m.kind = kind
		table[m.Name] = m
	}
}

func lookupIntrinsic(kind Kind, name string) *Intrinsic {
	return intrinsics[kind][name]
}

// ---------------------------------------------------------------------------
// Argument helpers
// ---------------------------------------------------------------------------

// intIndex converts an Int64 or Int32 value to int.
func intIndex(v Value) (int, bool) {
	switch v.kind {
	case KindInt64:
		return int(v.Int64()), true
	case KindInt32:
		return int(v.Int32()), true
	}
	return 0, false
}

func intArg(name string, v Value) (int, error) {
	i, ok := intIndex(v)
	if !ok {
		return 0, Errorf(TypeError, "%s expects an integer, got %s", name, v.kind)
	}
	return i, nil
}

func stringArg(name string, v Value) (string, error) {
	if v.kind != KindString {
		return "", Errorf(TypeError, "%s expects a string, got %s", name, v.kind)
	}
	return v.Str(), nil
}

func checkBounds(i, n int) error {
	if i < 0 || i >= n {
		return Errorf(IndexError, "index %d out of range for length %d", i, n)
	}
	return nil
}

// ---------------------------------------------------------------------------
// INDEX_GET, INDEX_SET, SLICE_GET
// ---------------------------------------------------------------------------

func (it *Interpreter) indexGet(obj, idx Value) (Value, error) {
	switch obj.kind {
	case KindArray:
		i, err := intArg("array index", idx)
		if err != nil {
			return Null, err
		}
		elems := obj.Array().Elems
		if err := checkBounds(i, len(elems)); err != nil {
			return Null, err
		}
		return elems[i], nil
	case KindString:
		i, err := intArg("string index", idx)
		if err != nil {
			return Null, err
		}
		runes := []rune(obj.Str())
		if err := checkBounds(i, len(runes)); err != nil {
			return Null, err
		}
		return FromChar(runes[i]), nil
	case KindDict:
		v, _ := obj.Dict().Get(idx)
		return v, nil
	case KindInstance, KindStatic, KindClass, KindBoundType:
		if idx.kind == KindString {
			return it.loadMember(obj, idx.Str())
		}
	}
	return Null, Errorf(TypeError, "cannot index %s with %s", obj.kind, idx.kind)
}

func (it *Interpreter) indexSet(obj, idx, val Value) error {
	switch obj.kind {
	case KindArray:
		i, err := intArg("array index", idx)
		if err != nil {
			return err
		}
		a := obj.Array()
		if err := checkBounds(i, len(a.Elems)); err != nil {
			return err
		}
		a.Elems[i] = val
		return nil
	case KindDict:
		obj.Dict().Set(idx, val)
		return nil
	case KindString:
		return Errorf(TypeError, "strings are immutable")
	case KindInstance, KindStatic, KindClass, KindBoundType:
		if idx.kind == KindString {
			return it.storeMember(obj, idx.Str(), val)
		}
	}
	return Errorf(TypeError, "cannot index %s with %s", obj.kind, idx.kind)
}

// sliceBounds resolves [start:end] against length n. Null bounds are open,
// negative bounds count from the end, and both are clamped to [0, n].
func sliceBounds(start, end Value, n int) (lo, hi int, err error) {
	bound := func(v Value, open int) (int, error) {
		if v.IsNull() {
			return open, nil
		}
		i, err := intArg("slice bound", v)
		if err != nil {
			return 0, err
		}
		if i < 0 {
			i += n
		}
		return min(max(i, 0), n), nil
	}
	if lo, err = bound(start, 0); err != nil {
		return 0, 0, err
	}
	if hi, err = bound(end, n); err != nil {
		return 0, 0, err
	}
	if lo > hi {
		hi = lo
	}
	return lo, hi, nil
}

func sliceOf(obj, start, end Value) (Value, error) {
	switch obj.kind {
	case KindArray:
		elems := obj.Array().Elems
		lo, hi, err := sliceBounds(start, end, len(elems))
		if err != nil {
			return Null, err
		}
		out := make([]Value, hi-lo)
		copy(out, elems[lo:hi])
		return NewArray(out), nil
	case KindString:
		s := obj.Str()
		lo, hi, err := sliceBounds(start, end, utf8.RuneCountInString(s))
		if err != nil {
			return Null, err
		}
		return FromString(string([]rune(s)[lo:hi])), nil
	}
	return Null, Errorf(TypeError, "cannot slice %s", obj.kind)
}
