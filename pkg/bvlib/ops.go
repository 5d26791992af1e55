// Package bvlib is the concrete bit-vector operator library: add/sub/and/or/
// xor/not/neg/shl/lshr/ashr/ult/uge/slt/sge/mul/udiv, grounded one-for-one on
// the Hacker's-Delight benchmark suite's operator list (Bv(width).add_,
// .sub_, ... ), exposed as ir.OpFamily values so pkg/downscale can rebuild
// the same named set at a different width.
package bvlib

import (
	"math/bits"

	"bvsynth/pkg/ir"
)

type binOp struct {
	name    string
	width   uint
	commut  bool
	fn      func(a, b uint64, width uint) uint64
	checked func(a, b uint64, width uint) (uint64, error)
}

func (o binOp) Name() string          { return o.name }
func (o binOp) InTypes() []ir.Ty      { return []ir.Ty{ir.BitVec(o.width), ir.BitVec(o.width)} }
func (o binOp) OutType() ir.Ty        { return ir.BitVec(o.width) }
func (o binOp) Arity() uint           { return 2 }
func (o binOp) IsCommutative() bool   { return o.commut }
func (o binOp) IsDeterministic() bool { return true }
func (o binOp) IsTotal() bool         { return o.checked == nil }
func (o binOp) Eval(ins []ir.Value) (ir.Value, error) {
	if err := ir.CheckArity(o, ins); err != nil {
		return ir.Value{}, err
	}
	a, b := ins[0].Uint(), ins[1].Uint()
	if o.checked != nil {
		v, err := o.checked(a, b, o.width)
		if err != nil {
			return ir.Value{}, err
		}
		return ir.BitVecValue(v, o.width), nil
	}
	return ir.BitVecValue(o.fn(a, b, o.width), o.width), nil
}

type unOp struct {
	name  string
	width uint
	fn    func(a uint64, width uint) uint64
}

func (o unOp) Name() string          { return o.name }
func (o unOp) InTypes() []ir.Ty      { return []ir.Ty{ir.BitVec(o.width)} }
func (o unOp) OutType() ir.Ty        { return ir.BitVec(o.width) }
func (o unOp) Arity() uint           { return 1 }
func (o unOp) IsCommutative() bool   { return false }
func (o unOp) IsDeterministic() bool { return true }
func (o unOp) IsTotal() bool         { return true }
func (o unOp) Eval(ins []ir.Value) (ir.Value, error) {
	if err := ir.CheckArity(o, ins); err != nil {
		return ir.Value{}, err
	}
	return ir.BitVecValue(o.fn(ins[0].Uint(), o.width), o.width), nil
}

// cmpOp evaluates to BitVecValue(1, width) / BitVecValue(0, width), matching
// hackdel.py's convention of comparison "operators" that return a full-width
// boolean-as-bitvector result (used directly as an operand, e.g. p16's
// "max of two ints" line built from one slt_ result).
type cmpOp struct {
	name   string
	width  uint
	fn     func(a, b int64, width uint) bool
	signed bool
}

func (o cmpOp) Name() string          { return o.name }
func (o cmpOp) InTypes() []ir.Ty      { return []ir.Ty{ir.BitVec(o.width), ir.BitVec(o.width)} }
func (o cmpOp) OutType() ir.Ty        { return ir.BitVec(o.width) }
func (o cmpOp) Arity() uint           { return 2 }
func (o cmpOp) IsCommutative() bool   { return false }
func (o cmpOp) IsDeterministic() bool { return true }
func (o cmpOp) IsTotal() bool         { return true }
func (o cmpOp) Eval(ins []ir.Value) (ir.Value, error) {
	if err := ir.CheckArity(o, ins); err != nil {
		return ir.Value{}, err
	}
	var a, b int64
	if o.signed {
		a, b = ins[0].Int(), ins[1].Int()
	} else {
		a, b = int64(ins[0].Uint()), int64(ins[1].Uint())
	}
	if o.fn(a, b, o.width) {
		return ir.BitVecValue(1, o.width), nil
	}
	return ir.BitVecValue(0, o.width), nil
}

func mask(width uint) uint64 {
	if width >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << width) - 1
}

// Add constructs the width-w "add" family member.
func Add(w uint) ir.Op {
	return binOp{name: "add", width: w, commut: true, fn: func(a, b uint64, w uint) uint64 { return (a + b) & mask(w) }}
}

// Sub constructs the width-w "sub" family member.
func Sub(w uint) ir.Op {
	return binOp{name: "sub", width: w, fn: func(a, b uint64, w uint) uint64 { return (a - b) & mask(w) }}
}

// And constructs the width-w "and" family member.
func And(w uint) ir.Op {
	return binOp{name: "and", width: w, commut: true, fn: func(a, b uint64, w uint) uint64 { return a & b }}
}

// Or constructs the width-w "or" family member.
func Or(w uint) ir.Op {
	return binOp{name: "or", width: w, commut: true, fn: func(a, b uint64, w uint) uint64 { return a | b }}
}

// Xor constructs the width-w "xor" family member.
func Xor(w uint) ir.Op {
	return binOp{name: "xor", width: w, commut: true, fn: func(a, b uint64, w uint) uint64 { return a ^ b }}
}

// Mul constructs the width-w "mul" family member.
func Mul(w uint) ir.Op {
	return binOp{name: "mul", width: w, commut: true, fn: func(a, b uint64, w uint) uint64 { return (a * b) & mask(w) }}
}

// Udiv constructs the width-w "udiv" family member. hackdel.py's SMT-LIB
// bvudiv returns all-ones on division by zero; mirrored here rather than
// treated as an error, since the reference backend's Eval path must stay
// total for every sample in the finite domain to be enumerable.
func Udiv(w uint) ir.Op {
	return binOp{name: "udiv", width: w, fn: func(a, b uint64, w uint) uint64 {
		if b == 0 {
			return mask(w)
		}
		return (a / b) & mask(w)
	}}
}

// Not constructs the width-w "not" family member (bitwise complement).
func Not(w uint) ir.Op {
	return unOp{name: "not", width: w, fn: func(a uint64, w uint) uint64 { return (^a) & mask(w) }}
}

// Neg constructs the width-w "neg" family member (two's-complement negation).
func Neg(w uint) ir.Op {
	return unOp{name: "neg", width: w, fn: func(a uint64, w uint) uint64 { return (-a) & mask(w) }}
}

// Shl constructs the width-w "shl" family member.
func Shl(w uint) ir.Op {
	return binOp{name: "shl", width: w, fn: func(a, b uint64, w uint) uint64 {
		if b >= uint64(w) {
			return 0
		}
		return (a << b) & mask(w)
	}}
}

// Lshr constructs the width-w "lshr" (logical right shift) family member.
func Lshr(w uint) ir.Op {
	return binOp{name: "lshr", width: w, fn: func(a, b uint64, w uint) uint64 {
		if b >= uint64(w) {
			return 0
		}
		return a >> b
	}}
}

// Ashr constructs the width-w "ashr" (arithmetic right shift) family member.
func Ashr(w uint) ir.Op {
	return binOp{name: "ashr", width: w, fn: func(a, b uint64, w uint) uint64 {
		signBit := uint64(1) << (w - 1)
		negative := a&signBit != 0
		if b >= uint64(w) {
			if negative {
				return mask(w)
			}
			return 0
		}
		shifted := a >> b
		if negative {
			shifted |= (mask(w) << (w - b)) & mask(w)
		}
		return shifted
	}}
}

// Ult constructs the width-w unsigned "ult" comparison family member.
func Ult(w uint) ir.Op {
	return cmpOp{name: "ult", width: w, fn: func(a, b int64, w uint) bool { return uint64(a) < uint64(b) }}
}

// Uge constructs the width-w unsigned "uge" comparison family member.
func Uge(w uint) ir.Op {
	return cmpOp{name: "uge", width: w, fn: func(a, b int64, w uint) bool { return uint64(a) >= uint64(b) }}
}

// Slt constructs the width-w signed "slt" comparison family member.
func Slt(w uint) ir.Op {
	return cmpOp{name: "slt", width: w, signed: true, fn: func(a, b int64, w uint) bool { return a < b }}
}

// Sge constructs the width-w signed "sge" comparison family member.
func Sge(w uint) ir.Op {
	return cmpOp{name: "sge", width: w, signed: true, fn: func(a, b int64, w uint) bool { return a >= b }}
}

// Popcount is a convenience helper for spec catalog entries (not itself an
// ir.Op — it is used to build expected-output closures for p22's spec,
// mirroring hackdel.py's BvBench.popcount helper).
func Popcount(x uint64, width uint) uint64 {
	return uint64(bits.OnesCount64(x & mask(width)))
}

// Families returns the full hackdel.py operator set as an ir.FamilyLibrary,
// ready for pkg/downscale.Downsize/Lift or direct pkg/cegis.Run use at a
// fixed width via Families(...).Build(width).
func Families() *ir.FamilyLibrary {
	return ir.NewFamilyLibrary().
		Add("add", Add, ir.Unbounded).
		Add("sub", Sub, ir.Unbounded).
		Add("and", And, ir.Unbounded).
		Add("or", Or, ir.Unbounded).
		Add("xor", Xor, ir.Unbounded).
		Add("mul", Mul, ir.Unbounded).
		Add("udiv", Udiv, ir.Unbounded).
		Add("not", Not, ir.Unbounded).
		Add("neg", Neg, ir.Unbounded).
		Add("shl", Shl, ir.Unbounded).
		Add("lshr", Lshr, ir.Unbounded).
		Add("ashr", Ashr, ir.Unbounded).
		Add("ult", Ult, ir.Unbounded).
		Add("uge", Uge, ir.Unbounded).
		Add("slt", Slt, ir.Unbounded).
		Add("sge", Sge, ir.Unbounded)
}
