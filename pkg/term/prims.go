package term

import (
	"fmt"

	"bvsynth/pkg/ir"
)

// primFn evaluates a primitive application given its declared result type
// (used for width masking) and already-evaluated argument values.
type primFn func(ty ir.Ty, args []ir.Value) (ir.Value, error)

// prims is the fixed table of primitive bit-vector and boolean operators a
// KApply term may name. This is the term-evaluation counterpart of
// pkg/bvlib's concrete Op implementations: pkg/bvlib's relational specs
// (p02, p24) build their Instantiate bodies out of these primitives. The
// bit-vector primitives compute the same bit pattern as the bvlib operator
// of the same name; the comparison primitives return a Bool, where bvlib's
// comparison operators return a bit-vector of the operand width.
var prims = map[string]primFn{
	"add": func(ty ir.Ty, a []ir.Value) (ir.Value, error) { return ir.BitVecValue(a[0].Uint()+a[1].Uint(), ty.Width), nil },
	"sub": func(ty ir.Ty, a []ir.Value) (ir.Value, error) { return ir.BitVecValue(a[0].Uint()-a[1].Uint(), ty.Width), nil },
	"mul": func(ty ir.Ty, a []ir.Value) (ir.Value, error) { return ir.BitVecValue(a[0].Uint()*a[1].Uint(), ty.Width), nil },
	"and": func(ty ir.Ty, a []ir.Value) (ir.Value, error) { return ir.BitVecValue(a[0].Uint()&a[1].Uint(), ty.Width), nil },
	"or":  func(ty ir.Ty, a []ir.Value) (ir.Value, error) { return ir.BitVecValue(a[0].Uint()|a[1].Uint(), ty.Width), nil },
	"xor": func(ty ir.Ty, a []ir.Value) (ir.Value, error) { return ir.BitVecValue(a[0].Uint()^a[1].Uint(), ty.Width), nil },
	"not": func(ty ir.Ty, a []ir.Value) (ir.Value, error) { return ir.BitVecValue(^a[0].Uint(), ty.Width), nil },
	"neg": func(ty ir.Ty, a []ir.Value) (ir.Value, error) { return ir.BitVecValue(-a[0].Uint(), ty.Width), nil },
	"shl": func(ty ir.Ty, a []ir.Value) (ir.Value, error) {
		return ir.BitVecValue(a[0].Uint()<<shiftAmount(a[1], ty.Width), ty.Width), nil
	},
	"lshr": func(ty ir.Ty, a []ir.Value) (ir.Value, error) {
		return ir.BitVecValue(a[0].Uint()>>shiftAmount(a[1], ty.Width), ty.Width), nil
	},
	"ashr": func(ty ir.Ty, a []ir.Value) (ir.Value, error) {
		amt := shiftAmount(a[1], ty.Width)
		return ir.BitVecValue(uint64(a[0].Int()>>amt), ty.Width), nil
	},
	"ult": func(_ ir.Ty, a []ir.Value) (ir.Value, error) { return ir.BoolValue(a[0].Uint() < a[1].Uint()), nil },
	"uge": func(_ ir.Ty, a []ir.Value) (ir.Value, error) { return ir.BoolValue(a[0].Uint() >= a[1].Uint()), nil },
	"slt": func(_ ir.Ty, a []ir.Value) (ir.Value, error) { return ir.BoolValue(a[0].Int() < a[1].Int()), nil },
	"sge": func(_ ir.Ty, a []ir.Value) (ir.Value, error) { return ir.BoolValue(a[0].Int() >= a[1].Int()), nil },
	"eq":  func(_ ir.Ty, a []ir.Value) (ir.Value, error) { return ir.BoolValue(a[0].Equals(a[1])), nil },
}

func shiftAmount(v ir.Value, width uint) uint64 {
	amt := v.Uint()
	if width > 0 && amt >= uint64(width) {
		return uint64(width) // a shift by >= width saturates to all-zero/sign-fill
	}
	return amt
}

// RegisterPrim installs an additional primitive, for operator libraries that
// need a primitive outside the built-in bit-vector/boolean set (e.g. a
// derived helper like popcount expressed directly as a term primitive rather
// than composed from the base set). Panics on an attempt to redefine a
// built-in name, since that would silently change the meaning of every term
// already built against it.
func RegisterPrim(name string, fn primFn) {
	if _, exists := prims[name]; exists {
		panic(fmt.Sprintf("term: primitive %q is already defined", name))
	}
	prims[name] = fn
}
