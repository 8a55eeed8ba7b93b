package vm

// ---------------------------------------------------------------------------
// Dict Intrinsics
// ---------------------------------------------------------------------------

// Intrinsic names shadow dict keys for LOAD_MEMBER; other names read the
// key of that name.
func init() {
	registerIntrinsics(KindDict,
		// get - value for key, or the default (null) when absent
		&Intrinsic{Name: "get", Min: 1, Max: 2, Fn: func(_ *Interpreter, recv Value, args []Value) (Value, error) {
			if v, ok := recv.Dict().Get(args[0]); ok {
				return v, nil
			}
			if len(args) == 2 {
				return args[1], nil
			}
			return Null, nil
		}},

		&Intrinsic{Name: "set", Min: 2, Max: 2, Fn: func(_ *Interpreter, recv Value, args []Value) (Value, error) {
			recv.Dict().Set(args[0], args[1])
			return Null, nil
		}},

		&Intrinsic{Name: "has", Min: 1, Max: 1, Fn: func(_ *Interpreter, recv Value, args []Value) (Value, error) {
			return FromBool(recv.Dict().Has(args[0])), nil
		}},

		// remove - delete key, returning its value (null when absent)
		&Intrinsic{Name: "remove", Min: 1, Max: 1, Fn: func(_ *Interpreter, recv Value, args []Value) (Value, error) {
			v, _ := recv.Dict().Remove(args[0])
			return v, nil
		}},

		&Intrinsic{Name: "keys", Fn: func(_ *Interpreter, recv Value, _ []Value) (Value, error) {
			return NewArray(recv.Dict().Keys()), nil
		}},

		&Intrinsic{Name: "values", Fn: func(_ *Interpreter, recv Value, _ []Value) (Value, error) {
			return NewArray(recv.Dict().Values()), nil
		}},

		&Intrinsic{Name: "len", Fn: func(_ *Interpreter, recv Value, _ []Value) (Value, error) {
			return FromInt64(int64(recv.Dict().Len())), nil
		}},
	)
}
