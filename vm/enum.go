package vm

// EnumValue is one member of an enum. Members with the same enum and member
// name are equal wherever they come from.
type EnumValue struct {
	Enum    string
	Member  string
	Ordinal int
}

func (it *Interpreter) enumMember(enum, member string) (Value, error) {
	members := it.enums[enum]
	for i, m := range members {
		if m == member {
			return FromEnum(&EnumValue{Enum: enum, Member: m, Ordinal: i}), nil
		}
	}
	return Null, Errorf(MemberError, "enum %s has no member '%s'", enum, member)
}

func init() {
	registerIntrinsics(KindEnum,
		&Intrinsic{Name: "name", Fn: func(_ *Interpreter, recv Value, _ []Value) (Value, error) {
			return FromString(recv.Enum().Member), nil
		}},
		&Intrinsic{Name: "ordinal", Fn: func(_ *Interpreter, recv Value, _ []Value) (Value, error) {
			return FromInt64(int64(recv.Enum().Ordinal)), nil
		}},
	)
}
