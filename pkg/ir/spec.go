package ir

import (
	"fmt"
	"math/rand"
)

// Spec is the synthesis target: a (possibly multi-output, possibly
// non-deterministic or partial) relation between an input vector and an
// output vector, over the sorts this domain supports. A Spec plays the same
// structural role as Op but is never itself placed on a program line — it is
// the thing Prg.Eval is checked against.
type Spec interface {
	// InTypes gives the declared sort of each input, in order.
	InTypes() []Ty

	// OutTypes gives the declared sort of each output, in order. Allowing
	// more than one distinguishes a Spec from a single Op.
	OutTypes() []Ty

	// IsDeterministic reports whether, for every input in-domain, there is at
	// most one admissible output vector.
	IsDeterministic() bool

	// IsTotal reports whether every input in InTypes' product domain is
	// admissible (has at least one admissible output).
	IsTotal() bool

	// Eval computes ONE admissible output vector for ins, when the spec is
	// deterministic and total on ins. Non-deterministic or partial specs
	// return a non-nil error from Eval when no canonical single answer
	// exists for ins; callers needing relational semantics should use a
	// solver-backed check instead (the spec's Instantiate formula, not
	// Eval) — the functional fast path is distinct from the relational
	// ground truth.
	Eval(ins []Value) ([]Value, error)
}

// Witness is implemented by a Spec that can always produce *some* admissible
// output vector for an in-domain input, even when it is non-deterministic or
// partial (where Eval itself returns an error rather than picking arbitrarily
// among several admissible answers). pkg/cegis and pkg/downscale use Witness
// to seed the sample set and to manufacture a concrete counterexample output
// once a solver query has found a counterexample input — the functional
// shortcut behind the relational ground truth, same role Eval plays for a
// deterministic/total Spec.
type Witness interface {
	Witness(ins []Value) ([]Value, error)
}

// Witness satisfies ir.Witness trivially: FuncSpec is already deterministic
// and total, so Eval itself is always an admissible witness.
func (s *FuncSpec) Witness(ins []Value) ([]Value, error) { return s.Eval(ins) }

// SampleN draws n independent, uniformly random input vectors from spec's
// declared input domain, using rng. Nothing in this module calls it:
// pkg/cegis seeds its sample set with the all-zero input vector.
func SampleN(spec Spec, n int, rng *rand.Rand) [][]Value {
	tys := spec.InTypes()
	out := make([][]Value, n)
	for i := 0; i < n; i++ {
		row := make([]Value, len(tys))
		for j, ty := range tys {
			row[j] = randomValue(ty, rng)
		}
		out[i] = row
	}
	return out
}

func randomValue(ty Ty, rng *rand.Rand) Value {
	switch ty.Kind {
	case BoolKind:
		return BoolValue(rng.Intn(2) == 1)
	case BitVecKind:
		return BitVecValue(rng.Uint64(), ty.Width)
	case EnumKind:
		card := ty.Cardinality()
		if card == 0 {
			return EnumValue(rng.Uint64(), ty.Width)
		}
		return EnumValue(uint64(rng.Int63n(int64(card))), ty.Width)
	default:
		panic(fmt.Sprintf("randomValue: unknown kind %v", ty.Kind))
	}
}

// FuncSpec is the common case: a total, deterministic, single-output Spec
// backed directly by a Go function. Every benchmark in pkg/bvlib's catalog
// except the relational p02 and p24 is a FuncSpec.
type FuncSpec struct {
	ins  []Ty
	out  Ty
	fn   func(ins []Value) (Value, error)
	name string
}

// NewFuncSpec constructs a total, deterministic, single-output Spec from a
// Go closure. fn is trusted to be total over the declared input domain; if
// it isn't, Eval's error propagates rather than panicking.
func NewFuncSpec(name string, ins []Ty, out Ty, fn func(ins []Value) (Value, error)) *FuncSpec {
	return &FuncSpec{ins: ins, out: out, fn: fn, name: name}
}

func (s *FuncSpec) Name() string           { return s.name }
func (s *FuncSpec) InTypes() []Ty          { return s.ins }
func (s *FuncSpec) OutTypes() []Ty         { return []Ty{s.out} }
func (s *FuncSpec) IsDeterministic() bool  { return true }
func (s *FuncSpec) IsTotal() bool          { return true }

func (s *FuncSpec) Eval(ins []Value) ([]Value, error) {
	if len(ins) != len(s.ins) {
		return nil, &ErrArityMismatch{Op: s.name, Want: len(s.ins), Got: len(ins)}
	}
	for i, v := range ins {
		if !v.Ty.Equals(s.ins[i]) {
			return nil, &ErrTypeMismatch{Op: s.name, Slot: i, Want: s.ins[i], Got: v.Ty}
		}
	}
	v, err := s.fn(ins)
	if err != nil {
		return nil, err
	}
	return []Value{v}, nil
}
