package bvlib

import (
	"fmt"

	"bvsynth/pkg/ir"
	"bvsynth/pkg/term"
)

// Benchmark packages one entry of the Hacker's-Delight catalog: a spec, the
// operator-frequency multiset the original synthesis run used to find it,
// and the max_const budget that made the search tractable. Field names and
// values are taken directly from the Hacker's-Delight benchmark suite's
// test methods.
type Benchmark struct {
	Name        string
	Description string
	Spec        ir.Spec
	OpFreqs     map[string]uint
	MaxConsts   int
	ConstSet    []ir.Value
}

// Library builds the ir.OpLibrary a Benchmark's CEGIS run should search
// over: the operators in b.OpFreqs, each registered with its recorded
// frequency as the library's usage cap, instantiated at width from families.
// pkg/encoder does not read the cap: a program may use a library operator on
// any number of lines.
func (b Benchmark) Library(families *ir.FamilyLibrary, width uint) *ir.OpLibrary {
	full := families.Build(width)
	lib := ir.NewOpLibrary()
	for name, freq := range b.OpFreqs {
		op, ok := full.Get(name)
		if !ok {
			continue
		}
		lib.Add(op, freq)
	}
	return lib
}

func unary(name string, width uint, fn func(x uint64) uint64) ir.Spec {
	return ir.NewFuncSpec(name, []ir.Ty{ir.BitVec(width)}, ir.BitVec(width), func(ins []ir.Value) (ir.Value, error) {
		return ir.BitVecValue(fn(ins[0].Uint())&mask(width), width), nil
	})
}

func binary(name string, width uint, fn func(x, y uint64) uint64) ir.Spec {
	return ir.NewFuncSpec(name, []ir.Ty{ir.BitVec(width), ir.BitVec(width)}, ir.BitVec(width), func(ins []ir.Value) (ir.Value, error) {
		return ir.BitVecValue(fn(ins[0].Uint(), ins[1].Uint())&mask(width), width), nil
	})
}

func asSigned(v uint64, width uint) int64 {
	signBit := uint64(1) << (width - 1)
	if v&signBit != 0 {
		return int64(v) - int64(uint64(1)<<width)
	}
	return int64(v)
}

// P01 is "turn off rightmost 1-bit": x & (x-1).
func P01(width uint) Benchmark {
	return Benchmark{
		Name: "p01", Description: "turn off rightmost bit",
		Spec:      unary("p01", width, func(x uint64) uint64 { return x & (x - 1) }),
		OpFreqs:   map[string]uint{"and": 1, "sub": 1},
		MaxConsts: 1,
	}
}

// powerOfTwoSpec is p02's genuinely relational shape: hackdel.py's own
// reference (`If(pt, o==0, o!=0)`, pt = x&-x==x) only pins o to zero when x
// is a power of 2; on any other x, every nonzero o is equally admissible, so
// this cannot be a FuncSpec (one canonical output per input) without
// silently narrowing the relation to whichever single nonzero value a
// hardcoded choice picks.
type powerOfTwoSpec struct {
	width uint
	ins   []ir.Ty
	out   ir.Ty
}

func newPowerOfTwoSpec(width uint) *powerOfTwoSpec {
	bv := ir.BitVec(width)
	return &powerOfTwoSpec{width: width, ins: []ir.Ty{bv}, out: bv}
}

func (s *powerOfTwoSpec) InTypes() []ir.Ty  { return s.ins }
func (s *powerOfTwoSpec) OutTypes() []ir.Ty { return []ir.Ty{s.out} }
func (s *powerOfTwoSpec) IsDeterministic() bool { return false }
func (s *powerOfTwoSpec) IsTotal() bool         { return true }

func (s *powerOfTwoSpec) isPow2(x uint64) bool { return x&(x-1) == 0 }

// Eval only answers on the deterministic half of the relation (x a power of
// 2, where o==0 is the sole admissible output); for every other x it reports
// the absence of a single canonical answer, per ir.Spec.Eval's contract.
func (s *powerOfTwoSpec) Eval(ins []ir.Value) ([]ir.Value, error) {
	x := ins[0].Uint()
	if !s.isPow2(x) {
		return nil, fmt.Errorf("bvlib: p02 is non-deterministic at x=%d (any nonzero output admits)", x)
	}
	return []ir.Value{ir.BitVecValue(0, s.width)}, nil
}

// Witness always has an answer, picking 1 as the witness nonzero output on
// the non-power-of-2 branch.
func (s *powerOfTwoSpec) Witness(ins []ir.Value) ([]ir.Value, error) {
	x := ins[0].Uint()
	if s.isPow2(x) {
		return []ir.Value{ir.BitVecValue(0, s.width)}, nil
	}
	return []ir.Value{ir.BitVecValue(1, s.width)}, nil
}

// Instantiate encodes hackdel.py's p02 relation directly: x&-x==x selects
// between o==0 and o!=0, with no further constraint pinning which nonzero
// value o takes on the latter branch.
func (s *powerOfTwoSpec) Instantiate(ins, outs []term.Term) (precond, body term.Term) {
	bvTy := s.out
	x, o := ins[0], outs[0]
	zero := term.Const(ir.BitVecValue(0, s.width))
	isPow2 := term.Eq(term.Apply("and", bvTy, x, term.Apply("neg", bvTy, x)), x)
	return term.True(), term.Ite(isPow2, term.Eq(o, zero), term.Ne(o, zero))
}

// P02 is the unsigned power-of-2 test: o==0 iff x is a power of 2, any
// nonzero o otherwise admissible.
func P02(width uint) Benchmark {
	return Benchmark{
		Name: "p02", Description: "unsigned test if power of 2",
		Spec:      newPowerOfTwoSpec(width),
		OpFreqs:   map[string]uint{"and": 1, "sub": 1},
		MaxConsts: 1,
	}
}

// P03 is "isolate rightmost 1-bit": x & -x.
func P03(width uint) Benchmark {
	return Benchmark{
		Name: "p03", Description: "isolate rightmost 1-bit",
		Spec:      unary("p03", width, func(x uint64) uint64 { return x & (-x & mask(width)) }),
		OpFreqs:   map[string]uint{"and": 1, "sub": 1},
		MaxConsts: 1,
	}
}

// P04 is "mask rightmost 1-bits": x ^ (x-1).
func P04(width uint) Benchmark {
	return Benchmark{
		Name: "p04", Description: "mask rightmost 1-bits",
		Spec:      unary("p04", width, func(x uint64) uint64 { return x ^ (x - 1) }),
		OpFreqs:   map[string]uint{"xor": 1, "sub": 1},
		MaxConsts: 1,
	}
}

// P05 is "right-propagate rightmost 1-bit": x | (x-1).
func P05(width uint) Benchmark {
	return Benchmark{
		Name: "p05", Description: "right-propagate rightmost 1-bit",
		Spec:      unary("p05", width, func(x uint64) uint64 { return x | (x - 1) }),
		OpFreqs:   map[string]uint{"or": 1, "sub": 1},
		MaxConsts: 1,
	}
}

// P06 is "turn on rightmost 0-bit": x | (x+1).
func P06(width uint) Benchmark {
	return Benchmark{
		Name: "p06", Description: "turn on rightmost 0-bit",
		Spec:      unary("p06", width, func(x uint64) uint64 { return x | (x + 1) }),
		OpFreqs:   map[string]uint{"or": 1, "add": 1},
		MaxConsts: 1,
	}
}

// P09 is the absolute-value function.
func P09(width uint) Benchmark {
	return Benchmark{
		Name: "p09", Description: "abs function",
		Spec: unary("p09", width, func(x uint64) uint64 {
			s := asSigned(x, width)
			if s < 0 {
				return uint64(-s)
			}
			return uint64(s)
		}),
		OpFreqs:   map[string]uint{"xor": 1, "sub": 1, "ashr": 1},
		MaxConsts: 1,
	}
}

// P16 is "max of two ints" (signed).
func P16(width uint) Benchmark {
	return Benchmark{
		Name: "p16", Description: "max of two ints",
		Spec: binary("p16", width, func(x, y uint64) uint64 {
			if asSigned(x, width) >= asSigned(y, width) {
				return x
			}
			return y
		}),
		OpFreqs:   map[string]uint{"and": 1, "xor": 2, "neg": 1, "slt": 1},
		MaxConsts: 3,
	}
}

// P22 is parity: popcount(x) & 1.
func P22(width uint) Benchmark {
	return Benchmark{
		Name: "p22", Description: "parity",
		Spec:      unary("p22", width, func(x uint64) uint64 { return Popcount(x, width) & 1 }),
		OpFreqs:   map[string]uint{"mul": 1, "xor": 2, "and": 2, "lshr": 3},
		MaxConsts: 5,
	}
}

// P17 is "turn off the rightmost string of 1-bits": (((x-1)|x)+1) & x.
func P17(width uint) Benchmark {
	return Benchmark{
		Name: "p17", Description: "turn off the rightmost string of 1-bits",
		Spec:      unary("p17", width, func(x uint64) uint64 { return (((x - 1) | x) + 1) & x }),
		OpFreqs:   map[string]uint{"sub": 1, "or": 1, "add": 1, "and": 1},
		MaxConsts: 2,
	}
}

// roundUpPow2Spec is p24's relation: phi = is_power_of_two(y) && x<=y<=2x,
// restricted by the precondition x < 2^(width-1). Like p02 this is a genuine
// Spec rather than a Func — several y can satisfy the relation at the
// boundary (x itself already a power of 2 makes y=x and y=2x both valid
// candidates a deterministic FuncSpec couldn't express without arbitrarily
// picking one).
type roundUpPow2Spec struct {
	width uint
	ins   []ir.Ty
	out   ir.Ty
}

func newRoundUpPow2Spec(width uint) *roundUpPow2Spec {
	bv := ir.BitVec(width)
	return &roundUpPow2Spec{width: width, ins: []ir.Ty{bv}, out: bv}
}

func (s *roundUpPow2Spec) InTypes() []ir.Ty      { return s.ins }
func (s *roundUpPow2Spec) OutTypes() []ir.Ty     { return []ir.Ty{s.out} }
func (s *roundUpPow2Spec) IsDeterministic() bool { return false }
func (s *roundUpPow2Spec) IsTotal() bool         { return false }

func (s *roundUpPow2Spec) inDomain(x uint64) bool {
	return x < uint64(1)<<(s.width-1)
}

func (s *roundUpPow2Spec) Eval(ins []ir.Value) ([]ir.Value, error) {
	return nil, fmt.Errorf("bvlib: p24 is non-deterministic at the power-of-2 boundary, use Witness")
}

// Witness rounds x up to the smallest power of 2 that is >= x (0 maps to
// itself, since is_power_of_two(0) holds under x&-x==x).
func (s *roundUpPow2Spec) Witness(ins []ir.Value) ([]ir.Value, error) {
	x := ins[0].Uint()
	if !s.inDomain(x) {
		return nil, fmt.Errorf("bvlib: p24 precondition violated, x=%d not < 2^%d", x, s.width-1)
	}
	y := uint64(1)
	for y < x {
		y <<= 1
	}
	if x == 0 {
		y = 0
	}
	return []ir.Value{ir.BitVecValue(y, s.width)}, nil
}

func (s *roundUpPow2Spec) Instantiate(ins, outs []term.Term) (precond, body term.Term) {
	bvTy := s.out
	boolTy := ir.Bool()
	x, y := ins[0], outs[0]
	one := term.Const(ir.BitVecValue(1, s.width))
	half := term.Const(ir.BitVecValue(uint64(1)<<(s.width-1), s.width))
	ule := func(a, b term.Term) term.Term {
		return term.Not(term.Apply("ult", boolTy, b, a))
	}

	precond = term.Apply("ult", boolTy, x, half)
	isPow2Y := term.Eq(term.Apply("and", bvTy, y, term.Apply("neg", bvTy, y)), y)
	twoX := term.Apply("shl", bvTy, x, one)
	body = term.And(isPow2Y, ule(x, y), ule(y, twoX))
	return precond, body
}

// P24 is "round up to next power of 2".
func P24(width uint) Benchmark {
	l := 0
	for w := width; w > 1; w >>= 1 {
		l++
	}
	return Benchmark{
		Name: "p24", Description: "round up to next power of 2",
		Spec:      newRoundUpPow2Spec(width),
		OpFreqs:   map[string]uint{"add": 1, "sub": 1, "or": uint(l), "lshr": uint(l)},
		MaxConsts: l + 2,
	}
}

// S6 is P01's spec with an operator multiset that cannot
// realize it ({or:1} only), used to exercise ErrUnrealizable/ErrExhausted.
func S6(width uint) Benchmark {
	b := P01(width)
	b.Name = "s6-unsat"
	b.Description = "turn-off-rightmost-1 restricted to {or:1}, provably unrealizable"
	b.OpFreqs = map[string]uint{"or": 1}
	return b
}

// Catalog returns every benchmark above, in the order hackdel.py defines
// them, for pkg/cmd's run command.
func Catalog(width uint) []Benchmark {
	return []Benchmark{
		P01(width), P02(width), P03(width), P04(width), P05(width),
		P06(width), P09(width), P16(width), P17(width), P22(width),
		P24(width), S6(width),
	}
}
