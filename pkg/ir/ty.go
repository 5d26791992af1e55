// Package ir defines the core data model of the synthesizer: types, typed
// operators, specifications, the operator library (with per-operator usage
// caps) and the straight-line program representation itself.
package ir

import "fmt"

// Kind distinguishes the handful of sorts the encoder ever has to reason
// about.
type Kind uint8

const (
	// BoolKind is the sort of logical truth values.
	BoolKind Kind = iota
	// BitVecKind is the sort of fixed-width two's-complement integers.
	BitVecKind
	// EnumKind is a bounded range of integers [0,Card), used internally by
	// the encoder for the operator-slot and operand-reference variables
	// (op_sort, operand_ref).  It is not a sort a Spec or Op is ever declared over.
	EnumKind
)

// Ty is a nominal handle for a sort.  Equality is structural: two Ty values
// are the same sort iff their (Kind, Width) pairs match.
type Ty struct {
	Kind Kind
	// Width is the bit-vector width when Kind==BitVecKind, or the
	// cardinality when Kind==EnumKind.  Meaningless for BoolKind.
	Width uint
}

// Bool constructs the boolean sort.
func Bool() Ty { return Ty{Kind: BoolKind} }

// BitVec constructs the sort of w-bit two's-complement integers.
func BitVec(w uint) Ty { return Ty{Kind: BitVecKind, Width: w} }

// Enum constructs a bounded range sort [0,card) for internal encoder use.
func Enum(card uint) Ty { return Ty{Kind: EnumKind, Width: card} }

// Equals checks structural equality of two types.
func (t Ty) Equals(o Ty) bool { return t == o }

// Cmp gives a total order over types, so they can live in sorted sets.
func (t Ty) Cmp(o Ty) int {
	if t.Kind != o.Kind {
		if t.Kind < o.Kind {
			return -1
		}
		return 1
	}
	switch {
	case t.Width < o.Width:
		return -1
	case t.Width > o.Width:
		return 1
	default:
		return 0
	}
}

// Cardinality returns the number of distinct values this sort admits.  Used
// by the finite-domain reference solver to enumerate a variable's domain.
func (t Ty) Cardinality() uint64 {
	switch t.Kind {
	case BoolKind:
		return 2
	case BitVecKind:
		if t.Width >= 64 {
			return 0 // 0 is used as a sentinel for "too large to enumerate"
		}
		return uint64(1) << t.Width
	case EnumKind:
		return uint64(t.Width)
	default:
		panic(fmt.Sprintf("unknown type kind %v", t.Kind))
	}
}

// String renders the type the way a benchmark spec would name it, e.g.
// "bv8" or "bool".
func (t Ty) String() string {
	switch t.Kind {
	case BoolKind:
		return "bool"
	case BitVecKind:
		return fmt.Sprintf("bv%d", t.Width)
	case EnumKind:
		return fmt.Sprintf("enum%d", t.Width)
	default:
		return "?"
	}
}
