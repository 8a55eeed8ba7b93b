package vm

import (
	"slices"
	"strings"
)

// ---------------------------------------------------------------------------
// Array Intrinsics
// ---------------------------------------------------------------------------

func init() {
	registerIntrinsics(KindArray,
		// push - append values, return the new length
		&Intrinsic{Name: "push", Min: 1, Max: -1, Fn: func(_ *Interpreter, recv Value, args []Value) (Value, error) {
			a := recv.Array()
			a.Elems = append(a.Elems, args...)
			return FromInt64(int64(len(a.Elems))), nil
		}},

		// pop - remove and return the last element
		&Intrinsic{Name: "pop", Fn: func(_ *Interpreter, recv Value, _ []Value) (Value, error) {
			a := recv.Array()
			n := len(a.Elems)
			if n == 0 {
				return Null, Errorf(IndexError, "pop from empty array")
			}
			v := a.Elems[n-1]
			a.Elems[n-1] = Null
			a.Elems = a.Elems[:n-1]
			return v, nil
		}},

		&Intrinsic{Name: "len", Fn: func(_ *Interpreter, recv Value, _ []Value) (Value, error) {
			return FromInt64(int64(len(recv.Array().Elems))), nil
		}},

		&Intrinsic{Name: "get", Min: 1, Max: 1, Fn: func(it *Interpreter, recv Value, args []Value) (Value, error) {
			return it.indexGet(recv, args[0])
		}},

		// insert - insert before index; index == len appends
		&Intrinsic{Name: "insert", Min: 2, Max: 2, Fn: func(_ *Interpreter, recv Value, args []Value) (Value, error) {
			a := recv.Array()
			i, err := intArg("insert", args[0])
			if err != nil {
				return Null, err
			}
			if i < 0 || i > len(a.Elems) {
				return Null, Errorf(IndexError, "insert index %d out of range for length %d", i, len(a.Elems))
			}
			a.Elems = slices.Insert(a.Elems, i, args[1])
			return Null, nil
		}},

		// removeAt - remove and return the element at index
		&Intrinsic{Name: "removeAt", Min: 1, Max: 1, Fn: func(_ *Interpreter, recv Value, args []Value) (Value, error) {
			a := recv.Array()
			i, err := intArg("removeAt", args[0])
			if err != nil {
				return Null, err
			}
			if err := checkBounds(i, len(a.Elems)); err != nil {
				return Null, err
			}
			v := a.Elems[i]
			a.Elems = slices.Delete(a.Elems, i, i+1)
			return v, nil
		}},

		&Intrinsic{Name: "contains", Min: 1, Max: 1, Fn: func(_ *Interpreter, recv Value, args []Value) (Value, error) {
			return FromBool(indexOfValue(recv.Array().Elems, args[0]) >= 0), nil
		}},

		&Intrinsic{Name: "indexOf", Min: 1, Max: 1, Fn: func(_ *Interpreter, recv Value, args []Value) (Value, error) {
			return FromInt64(int64(indexOfValue(recv.Array().Elems, args[0]))), nil
		}},

		// join - elements' string forms separated by sep (default "")
		&Intrinsic{Name: "join", Max: 1, Fn: func(_ *Interpreter, recv Value, args []Value) (Value, error) {
			sep := ""
			if len(args) == 1 {
				s, err := stringArg("join", args[0])
				if err != nil {
					return Null, err
				}
				sep = s
			}
			parts := make([]string, len(recv.Array().Elems))
			for i, e := range recv.Array().Elems {
				parts[i] = e.String()
			}
			return FromString(strings.Join(parts, sep)), nil
		}},

		&Intrinsic{Name: "slice", Min: 1, Max: 2, Fn: func(_ *Interpreter, recv Value, args []Value) (Value, error) {
			end := Null
			if len(args) == 2 {
				end = args[1]
			}
			return sliceOf(recv, args[0], end)
		}},

		// map - new array of fn(elem)
		&Intrinsic{Name: "map", Min: 1, Max: 1, Fn: func(it *Interpreter, recv Value, args []Value) (Value, error) {
			src := slices.Clone(recv.Array().Elems)
			out := make([]Value, 0, len(src))
			for _, e := range src {
				v, err := it.callValue(args[0], []Value{e})
				if err != nil {
					return Null, err
				}
				out = append(out, v)
			}
			return NewArray(out), nil
		}},

		// filter - new array of elements for which fn(elem) is truthy
		&Intrinsic{Name: "filter", Min: 1, Max: 1, Fn: func(it *Interpreter, recv Value, args []Value) (Value, error) {
			src := slices.Clone(recv.Array().Elems)
			var out []Value
			for _, e := range src {
				keep, err := it.callValue(args[0], []Value{e})
				if err != nil {
					return Null, err
				}
				if keep.Truthy() {
					out = append(out, e)
				}
			}
			return NewArray(out), nil
		}},

		// reduce - fold with fn(acc, elem); without init the first element seeds
		&Intrinsic{Name: "reduce", Min: 1, Max: 2, Fn: func(it *Interpreter, recv Value, args []Value) (Value, error) {
			src := slices.Clone(recv.Array().Elems)
			var acc Value
			switch {
			case len(args) == 2:
				acc = args[1]
			case len(src) == 0:
				return Null, Errorf(IndexError, "reduce of empty array with no initial value")
			default:
				acc, src = src[0], src[1:]
			}
			for _, e := range src {
				v, err := it.callValue(args[0], []Value{acc, e})
				if err != nil {
					return Null, err
				}
				acc = v
			}
			return acc, nil
		}},

		// reverse - reverse in place and return the array
		&Intrinsic{Name: "reverse", Fn: func(_ *Interpreter, recv Value, _ []Value) (Value, error) {
			slices.Reverse(recv.Array().Elems)
			return recv, nil
		}},
	)
}

func indexOfValue(elems []Value, v Value) int {
	return slices.IndexFunc(elems, func(e Value) bool { return Equal(e, v) })
}
