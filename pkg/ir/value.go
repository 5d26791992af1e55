package ir

import "fmt"

// Value is a concrete element of some Ty: either a bit-vector payload masked
// to its width, or 0/1 for a boolean.
type Value struct {
	Ty   Ty
	Bits uint64
}

// BoolValue constructs a concrete boolean value.
func BoolValue(b bool) Value {
	if b {
		return Value{Ty: Bool(), Bits: 1}
	}
	return Value{Ty: Bool(), Bits: 0}
}

// BitVecValue constructs a concrete bit-vector value, masking v to w bits.
func BitVecValue(v uint64, w uint) Value {
	return Value{Ty: BitVec(w), Bits: mask(v, w)}
}

// EnumValue constructs a value of an internal enum sort.
func EnumValue(v uint64, card uint) Value {
	return Value{Ty: Enum(card), Bits: v}
}

// Bool extracts the boolean payload; panics if Ty is not Bool.
func (v Value) Bool() bool {
	if v.Ty.Kind != BoolKind {
		panic(fmt.Sprintf("Bool() on non-bool value of type %s", v.Ty))
	}
	return v.Bits != 0
}

// Uint extracts the raw bit pattern, valid for any Kind.
func (v Value) Uint() uint64 { return v.Bits }

// Int reinterprets the bit-vector payload as a signed two's-complement
// integer of its width.
func (v Value) Int() int64 {
	w := v.Ty.Width
	if w == 0 || w >= 64 {
		return int64(v.Bits)
	}
	sign := uint64(1) << (w - 1)
	if v.Bits&sign != 0 {
		return int64(v.Bits) - int64(uint64(1)<<w)
	}
	return int64(v.Bits)
}

// Equals compares two values for equality of both type and payload.
func (v Value) Equals(o Value) bool {
	return v.Ty.Equals(o.Ty) && v.Bits == o.Bits
}

// Cmp gives a total order over values of the *same* type, for use in sorted
// sets of constants (e.g. a const_set).
func (v Value) Cmp(o Value) int {
	if c := v.Ty.Cmp(o.Ty); c != 0 {
		return c
	}
	switch {
	case v.Bits < o.Bits:
		return -1
	case v.Bits > o.Bits:
		return 1
	default:
		return 0
	}
}

func (v Value) String() string {
	switch v.Ty.Kind {
	case BoolKind:
		return fmt.Sprintf("%v", v.Bool())
	default:
		return fmt.Sprintf("%d", v.Bits)
	}
}

func mask(v uint64, w uint) uint64 {
	if w == 0 {
		return 0
	}
	if w >= 64 {
		return v
	}
	return v & ((uint64(1) << w) - 1)
}
