package vm

import (
	"math"

	"github.com/cockroachdb/apd/v3"
)

// Dict is a mutable mapping with reference semantics. Iteration follows
// insertion order so printing is deterministic.
type Dict struct {
	entries []dictEntry
	index   map[dictKey]int
}

type dictEntry struct {
	key Value
	val Value
}

// dictKey normalizes a Value so that keys equal under Equal hash alike.
// Integral numbers of every kind collapse onto one int64 key.
type dictKey struct {
	kind Kind
	bits uint64
	str  string
	ref  any
}

// NewDict returns an empty dict.
func NewDict() *Dict {
	return &Dict{index: make(map[dictKey]int)}
}

func keyOf(v Value) dictKey {
	switch v.kind {
	case KindInt64, KindInt32:
		return dictKey{kind: KindInt64, bits: uint64(v.Int64())}
	case KindFloat32, KindFloat64:
		f := toFloat64(v)
		if f == math.Trunc(f) && math.Abs(f) < 1<<63 {
			return dictKey{kind: KindInt64, bits: uint64(int64(f))}
		}
		return dictKey{kind: KindFloat64, bits: math.Float64bits(f)}
	case KindDecimal:
		d := v.Decimal()
		var integ, frac apd.Decimal
		d.Modf(&integ, &frac)
		if frac.IsZero() {
			if n, err := integ.Int64(); err == nil {
				return dictKey{kind: KindInt64, bits: uint64(n)}
			}
		}
		var reduced apd.Decimal
		reduced.Reduce(d)
		return dictKey{kind: KindDecimal, str: reduced.String()}
	case KindNull, KindBool, KindChar:
		return dictKey{kind: v.kind, bits: v.bits}
	case KindString:
		return dictKey{kind: KindString, str: v.Str()}
	case KindEnum:
		e := v.Enum()
		return dictKey{kind: KindEnum, str: e.Enum + "." + e.Member}
	case KindBoundType:
		return dictKey{kind: KindBoundType, str: v.BoundType().Name}
	case KindClass:
		return dictKey{kind: KindClass, str: v.Class().Name}
	}
	return dictKey{kind: v.kind, ref: v.ref}
}

// Len returns the number of entries.
func (d *Dict) Len() int { return len(d.entries) }

// Get returns the value stored under key.
func (d *Dict) Get(key Value) (Value, bool) {
	if i, ok := d.index[keyOf(key)]; ok {
		return d.entries[i].val, true
	}
	return Null, false
}

// Set inserts or replaces the value under key. Replacing keeps the original
// insertion position.
func (d *Dict) Set(key, val Value) {
	k := keyOf(key)
	if i, ok := d.index[k]; ok {
		d.entries[i].val = val
		return
	}
	d.index[k] = len(d.entries)
	d.entries = append(d.entries, dictEntry{key: key, val: val})
}

// Has reports whether key is present.
func (d *Dict) Has(key Value) bool {
	_, ok := d.index[keyOf(key)]
	return ok
}

// Remove deletes key and returns the value it held.
func (d *Dict) Remove(key Value) (Value, bool) {
	k := keyOf(key)
	i, ok := d.index[k]
	if !ok {
		return Null, false
	}
	old := d.entries[i].val
	delete(d.index, k)
	d.entries = append(d.entries[:i], d.entries[i+1:]...)
	for j := i; j < len(d.entries); j++ {
		d.index[keyOf(d.entries[j].key)] = j
	}
	return old, true
}

// Keys returns the keys in insertion order.
func (d *Dict) Keys() []Value {
	keys := make([]Value, len(d.entries))
	for i, e := range d.entries {
		keys[i] = e.key
	}
	return keys
}

// Values returns the values in insertion order.
func (d *Dict) Values() []Value {
	vals := make([]Value, len(d.entries))
	for i, e := range d.entries {
		vals[i] = e.val
	}
	return vals
}
