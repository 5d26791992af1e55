package encoder

import (
	"github.com/bits-and-blooms/bitset"

	"bvsynth/pkg/ir"
	"bvsynth/pkg/term"
)

// LiveMask computes the set of global line indices prg's outputs
// transitively depend on, as a bitset over [0, NumLines()) — the concrete
// form of the no-dead-code pruning rule, representing each line's
// reachability as a bitmask bit rather than a bool slice so it composes
// directly with the operand-set bitmask used for instruction-order
// canonicalization.
func (p *Problem) LiveMask(prg *ir.Prg) *bitset.BitSet {
	live := bitset.New(uint(p.NumLines()))
	var mark func(idx uint)
	n := uint(p.Opts.NumInputs)
	mark = func(idx uint) {
		if live.Test(idx) {
			return
		}
		live.Set(idx)
		if idx < n {
			return
		}
		for _, ref := range prg.Lines[idx-n].Args {
			if !ref.IsConst {
				mark(ref.Line)
			}
		}
	}
	for _, o := range prg.Outputs {
		mark(o)
	}
	return live
}

// HasDeadCode reports whether prg has any operator line outside its
// LiveMask — a candidate the solver returned that Structural() alone didn't
// rule out (the no-dead-code rule is enforced here as a per-model check
// rather than folded into the base formula, to keep Structural()'s
// propositional structure small; see BlockDeadCode for how a violation is
// turned into feedback).
func (p *Problem) HasDeadCode(prg *ir.Prg) bool {
	live := p.LiveMask(prg)
	n := uint(p.Opts.NumInputs)
	for i := range prg.Lines {
		if !live.Test(n + uint(i)) {
			return true
		}
	}
	return false
}

// BlockDeadCode builds a blocking clause excluding every candidate that
// shares model's (op_var, is_const) assignment on the dead lines identified
// by LiveMask; operand_ref and const_val are not part of the clause, so such
// a candidate is excluded whatever its operands — asserted by pkg/cegis so the
// solver is forced to pick a different operator (or route of the "id"
// pseudo-operator) at those lines on the next Check, rather than re-deriving
// the same dead code over and over.
func (p *Problem) BlockDeadCode(model term.Env, prg *ir.Prg) term.Term {
	live := p.LiveMask(prg)
	n := uint(p.Opts.NumInputs)
	var diffs []term.Term
	for i := range prg.Lines {
		global := n + uint(i)
		if live.Test(global) {
			continue
		}
		codeVal, ok := model[p.opVar[i]]
		if ok {
			diffs = append(diffs, term.Ne(p.opVarTerm(i), term.Const(codeVal)))
		}
		for s := 0; s < p.maxArity; s++ {
			if cv, ok := model[p.isConst[i][s]]; ok {
				diffs = append(diffs, term.Ne(p.isConstTerm(i, s), term.Const(cv)))
			}
		}
	}
	if len(diffs) == 0 {
		return term.True()
	}
	return term.Or(diffs...)
}
