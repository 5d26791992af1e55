package term

import "bvsynth/pkg/ir"

// idOpName is the reserved name of the identity pseudo-operator: a program
// line that copies an earlier line's value forward unchanged. It must be
// available at every line so the encoder can represent "this line is
// unused" without a separate no-op bit; OpSort gives it a stable code
// alongside the library's real operators.
const idOpName = "id"

// OpSort is a closed enumeration over an OpLibrary's operators plus the
// reserved "id" operator, with a stable integer code for each. This backs
// the encoder's op_sort symbolic variable and is what makes the finite-
// domain reference solver's enumeration over "which operator occupies line
// i" tractable: a bounded int range instead of an open string comparison.
type OpSort struct {
	names []string // names[code] = operator name, names[0] == "id"
	codes map[string]int
}

// NewOpSort builds the enumeration for lib, prepending the reserved "id"
// entry at code 0.
func NewOpSort(lib *ir.OpLibrary) *OpSort {
	ops := lib.Ops()
	s := &OpSort{
		names: make([]string, 0, len(ops)+1),
		codes: make(map[string]int, len(ops)+1),
	}
	s.add(idOpName)
	for _, op := range ops {
		s.add(op.Name())
	}
	return s
}

func (s *OpSort) add(name string) {
	if _, exists := s.codes[name]; exists {
		return
	}
	s.codes[name] = len(s.names)
	s.names = append(s.names, name)
}

// Card is the cardinality of the enumeration, i.e. the domain size of the
// op_sort variable at every program line.
func (s *OpSort) Card() uint { return uint(len(s.names)) }

// Ty is the ir.Ty (an EnumKind sort) backing this enumeration, suitable for
// a pkg/term.Context variable allocation.
func (s *OpSort) Ty() ir.Ty { return ir.Enum(s.Card()) }

// IsID reports whether code names the reserved identity pseudo-operator.
func (s *OpSort) IsID(code uint) bool { return code == 0 }

// CodeOf returns the stable integer code for an operator name (item_to_cons
// in the original's terms), or ok=false if name isn't in the enumeration.
func (s *OpSort) CodeOf(name string) (code uint, ok bool) {
	c, present := s.codes[name]
	return uint(c), present
}

// NameOf is the inverse of CodeOf (cons_to_item).
func (s *OpSort) NameOf(code uint) (string, bool) {
	if int(code) >= len(s.names) {
		return "", false
	}
	return s.names[code], true
}
