package encoder

import (
	"bvsynth/pkg/ir"
	"bvsynth/pkg/term"
)

// arityOf returns the arity of the operator named by op_sort code, treating
// code 0 (the reserved "id" pseudo-operator) as arity 1.
func (p *Problem) arityOf(code uint) int {
	if p.sort.IsID(code) {
		return 1
	}
	name, _ := p.sort.NameOf(code)
	op, _ := p.Lib.Get(name)
	return int(op.Arity())
}

func (p *Problem) isCommutative(code uint) bool {
	if p.sort.IsID(code) {
		return false
	}
	name, _ := p.sort.NameOf(code)
	op, _ := p.Lib.Get(name)
	return op.IsCommutative()
}

func (p *Problem) opEq(i int, code uint) term.Term {
	return term.Eq(p.opVarTerm(i), term.Const(ir.EnumValue(uint64(code), p.sort.Card())))
}

// refConst builds a literal operand-ref value, sharing refTy()'s cardinality.
func (p *Problem) refConst(v uint) term.Term {
	return term.Const(ir.EnumValue(uint64(v), uint(p.refTy().Cardinality())))
}

// Structural builds the well-formedness constraints: every
// operand slot in use (slot < the chosen operator's arity) must reference an
// earlier line or be marked constant; every slot *not* in use is canonically
// pinned to "reference line 0, not constant" so distinct assignments of an
// unused slot's don't-care bits don't multiply out the search space.
func (p *Problem) Structural() term.Term {
	var conj []term.Term
	card := p.sort.Card()

	for i := 0; i < p.Opts.Length; i++ {
		lineCard := p.Opts.NumInputs + i
		for code := uint(0); code < card; code++ {
			arity := p.arityOf(code)
			var perCode []term.Term
			for s := 0; s < p.maxArity; s++ {
				if s < arity {
					inUse := term.Or(
						p.isConstTerm(i, s),
						term.Apply("ult", ir.Bool(), p.refTerm(i, s), p.refConst(uint(lineCard))),
					)
					perCode = append(perCode, inUse)
				} else {
					// const_val is also pinned here, not just is_const/ref: an
					// unused slot's value is otherwise a genuine don't-care, so
					// the backtracking search would still iterate over the
					// slot's whole bit-vector domain even though every choice
					// satisfies this conjunct equally (forward-checking only
					// prunes on violation, not indifference).
					unused := term.And(
						term.Not(p.isConstTerm(i, s)),
						term.Eq(p.refTerm(i, s), p.refConst(0)),
						term.Eq(p.constValTerm(i, s), term.Const(ir.BitVecValue(0, p.Opts.Width))),
					)
					perCode = append(perCode, unused)
				}
			}
			conj = append(conj, term.Implies(p.opEq(i, code), term.And(perCode...)))
		}
	}
	return term.And(conj...)
}

// CommutativeSymmetry constrains a commutative operator's two operands to be
// in non-decreasing reference order (const operands sort after line
// operands, by convention isConst=false < isConst=true), eliminating the
// symmetric duplicate where only the operand order differs (the
// commutativity canonicalization pruning rule).
func (p *Problem) CommutativeSymmetry() term.Term {
	var conj []term.Term
	card := p.sort.Card()
	for i := 0; i < p.Opts.Length; i++ {
		if p.maxArity < 2 {
			continue
		}
		for code := uint(0); code < card; code++ {
			if p.arityOf(code) != 2 || !p.isCommutative(code) {
				continue
			}
			ordered := term.Or(
				term.And(term.Not(p.isConstTerm(i, 0)), p.isConstTerm(i, 1)),
				term.And(
					term.Eq(p.isConstTerm(i, 0), p.isConstTerm(i, 1)),
					term.Apply("uge", ir.Bool(), p.refTerm(i, 1), p.refTerm(i, 0)),
				),
			)
			conj = append(conj, term.Implies(p.opEq(i, code), ordered))
		}
	}
	return term.And(conj...)
}

// ConstCount bounds the total number of inline-constant operand slots across
// the whole program to Opts.MaxConsts (a no-op conjunct of True() when
// MaxConsts is negative). Implemented as an arithmetic sum over a wide
// enough bit-vector rather than a propositional cardinality encoding, since
// pkg/term.Eval interprets arithmetic directly rather than requiring CNF.
func (p *Problem) ConstCount() term.Term {
	if p.Opts.MaxConsts < 0 {
		return term.True()
	}
	width := countWidth(max(p.Opts.Length*p.maxArity, p.Opts.MaxConsts+1))
	sumTy := ir.BitVec(width)
	var sum term.Term = term.Const(ir.BitVecValue(0, width))
	for i := 0; i < p.Opts.Length; i++ {
		for s := 0; s < p.maxArity; s++ {
			bit := term.Ite(p.isConstTerm(i, s), term.Const(ir.BitVecValue(1, width)), term.Const(ir.BitVecValue(0, width)))
			sum = term.Apply("add", sumTy, sum, bit)
		}
	}
	limit := term.Const(ir.BitVecValue(uint64(p.Opts.MaxConsts+1), width))
	return term.Apply("ult", ir.Bool(), sum, limit)
}

// ConstSetMembership restricts every constant operand slot's value to
// Opts.ConstSet (a no-op True() when ConstSet is nil). Applied
// unconditionally, regardless of which operator occupies the line.
func (p *Problem) ConstSetMembership() term.Term {
	if p.Opts.ConstSet == nil {
		return term.True()
	}
	var conj []term.Term
	for i := 0; i < p.Opts.Length; i++ {
		for s := 0; s < p.maxArity; s++ {
			var alts []term.Term
			for _, v := range p.Opts.ConstSet {
				alts = append(alts, term.Eq(p.constValTerm(i, s), term.Const(v)))
			}
			conj = append(conj, term.Implies(p.isConstTerm(i, s), term.Or(alts...)))
		}
	}
	return term.And(conj...)
}

// NoCSE forbids two lines from computing the literal same subexpression: for
// any pair of lines sharing an operator code, at least one operand position
// must differ (either in const-ness, in the constant's value, or in which
// earlier line it references). Lines carrying the reserved "id" pseudo-
// operator are exempt — a run of trailing id lines is exactly how unused
// program length is represented (see IdTail), and two id lines agreeing is
// not a real common subexpression.
func (p *Problem) NoCSE() term.Term {
	var conj []term.Term
	card := p.sort.Card()
	for i := 0; i < p.Opts.Length; i++ {
		for j := i + 1; j < p.Opts.Length; j++ {
			for code := uint(0); code < card; code++ {
				if p.sort.IsID(code) {
					continue
				}
				arity := p.arityOf(code)
				var same []term.Term
				for s := 0; s < arity; s++ {
					same = append(same,
						term.Eq(p.isConstTerm(i, s), p.isConstTerm(j, s)),
						term.Implies(p.isConstTerm(i, s), term.Eq(p.constValTerm(i, s), p.constValTerm(j, s))),
						term.Implies(term.Not(p.isConstTerm(i, s)), term.Eq(p.refTerm(i, s), p.refTerm(j, s))),
					)
				}
				conj = append(conj, term.Implies(term.And(p.opEq(i, code), p.opEq(j, code)), term.Not(term.And(same...))))
			}
		}
	}
	return term.And(conj...)
}

// ConstDiscipline forbids an operator line from having every operand
// constant at once (an operator applied to an all-constant argument list is
// itself a constant, so folding it away never loses a realizable program).
// The companion half of the rule — a commutative operator's first operand
// must be non-constant — is already enforced by CommutativeSymmetry's
// const-sorts-after-line ordering. The reserved "id" line is exempt: its
// sole operand is allowed to be constant (see ConstantIdFirst).
func (p *Problem) ConstDiscipline() term.Term {
	var conj []term.Term
	card := p.sort.Card()
	for i := 0; i < p.Opts.Length; i++ {
		for code := uint(0); code < card; code++ {
			if p.sort.IsID(code) {
				continue
			}
			arity := p.arityOf(code)
			if arity == 0 {
				continue
			}
			var allConst []term.Term
			for s := 0; s < arity; s++ {
				allConst = append(allConst, p.isConstTerm(i, s))
			}
			conj = append(conj, term.Implies(p.opEq(i, code), term.Not(term.And(allConst...))))
		}
	}
	return term.And(conj...)
}

// IdTail enforces that once a line is the reserved "id" operator, every
// following line is too: "all lines following the first id are also id".
// Combined with ConstantIdFirst, this canonicalizes the many equivalent ways
// a program shorter than Length can be padded out with no-ops down to one.
func (p *Problem) IdTail() term.Term {
	var conj []term.Term
	// OpSort reserves code 0 for "id" at every line (see IsID); arityOf and
	// Structural already rely on that same invariant rather than looking the
	// code up by name.
	const idCode = uint(0)
	for i := 0; i+1 < p.Opts.Length; i++ {
		conj = append(conj, term.Implies(p.opEq(i, idCode), p.opEq(i+1, idCode)))
	}
	return term.And(conj...)
}

// ConstantIdFirst enforces: if an id line has a constant operand, no earlier
// line is id. Without it, a tail of id lines could smuggle the same padding
// value in at any position in the tail instead of only the first, which
// IdTail alone does not rule out.
func (p *Problem) ConstantIdFirst() term.Term {
	var conj []term.Term
	const idCode = uint(0)
	for i := 0; i < p.Opts.Length; i++ {
		if i == 0 {
			continue
		}
		var earlierID []term.Term
		for j := 0; j < i; j++ {
			earlierID = append(earlierID, p.opEq(j, idCode))
		}
		conj = append(conj, term.Implies(
			term.And(p.opEq(i, idCode), p.isConstTerm(i, 0)),
			term.Not(term.Or(earlierID...)),
		))
	}
	return term.And(conj...)
}

// operandMask builds line i's operand-set as a Length-bit bitvector: bit k is
// set iff some in-use, non-constant operand slot of line i references
// operator line k (global index NumInputs+k). Used by InstructionOrder; the
// mask only ever needs arithmetic on refTerm's raw integer value (its Ty is
// the encoder-internal Enum sort, not BitVec, but every pkg/term primitive
// here only reads Value.Uint(), which is representation-agnostic — the same
// looseness CommutativeSymmetry already relies on when comparing two refTerm
// values with "uge").
func (p *Problem) operandMask(i int) term.Term {
	maskTy := ir.BitVec(uint(p.Opts.Length))
	zero := term.Const(ir.BitVecValue(0, uint(p.Opts.Length)))
	one := term.Const(ir.BitVecValue(1, uint(p.Opts.Length)))
	numInputs := p.refConst(uint(p.Opts.NumInputs))

	bits := zero
	for s := 0; s < p.maxArity; s++ {
		ref := p.refTerm(i, s)
		isOperatorLine := term.Not(term.Apply("ult", ir.Bool(), ref, numInputs))
		amt := term.Apply("sub", maskTy, ref, numInputs)
		bit := term.Apply("shl", maskTy, one, amt)
		contributes := term.And(term.Not(p.isConstTerm(i, s)), isOperatorLine)
		bits = term.Apply("or", maskTy, bits, term.Ite(contributes, bit, zero))
	}
	return bits
}

// InstructionOrder breaks the symmetry among permutable instruction orders:
// treating each operator line's operand-set as a bitmask over [0, Length),
// successive operator lines must have non-decreasing masks.
func (p *Problem) InstructionOrder() term.Term {
	if p.Opts.Length < 2 {
		return term.True()
	}
	var conj []term.Term
	for i := 0; i+1 < p.Opts.Length; i++ {
		lo, hi := p.operandMask(i), p.operandMask(i+1)
		conj = append(conj, term.Not(term.Apply("ult", ir.Bool(), hi, lo)))
	}
	return term.And(conj...)
}

// Base conjoins every sample-independent constraint family: the structural,
// commutativity, constant-budget and search-pruning constraints pkg/cegis
// asserts once per Problem, before any per-sample RegisterSample constraint.
func (p *Problem) Base() term.Term {
	return term.And(
		p.Structural(),
		p.CommutativeSymmetry(),
		p.ConstCount(),
		p.ConstSetMembership(),
		p.NoCSE(),
		p.ConstDiscipline(),
		p.InstructionOrder(),
		p.IdTail(),
		p.ConstantIdFirst(),
	)
}

func countWidth(maxCount int) uint {
	w := uint(1)
	for (uint64(1) << w) <= uint64(maxCount) {
		w++
	}
	return w
}
