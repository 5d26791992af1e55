package encoder

import (
	"fmt"

	"bvsynth/pkg/ir"
	"bvsynth/pkg/term"
)

// FixSkeleton builds the constraint pinning every line's operator choice and
// operand references (but NOT its constant values) to skeleton's structure.
// This is how pkg/downscale's lifted-constant-resynthesis reuses the same
// Problem/solver machinery as ordinary CEGIS: the structural search space
// collapses to exactly skeleton's shape, leaving only const_val variables
// free — keep the structure, re-derive the constants.
// skeleton must have the same Length, NumInputs and NumOutputs as p.
func (p *Problem) FixSkeleton(skeleton *ir.Prg) (term.Term, error) {
	if skeleton.Len() != p.NumLines() {
		return term.Term{}, fmt.Errorf("encoder: skeleton has %d lines, problem expects %d", skeleton.Len(), p.NumLines())
	}
	var conj []term.Term
	for i, line := range skeleton.Lines {
		code, ok := p.sort.CodeOf(line.Op.Name())
		if !ok {
			return term.Term{}, fmt.Errorf("encoder: skeleton operator %q is not in this problem's library", line.Op.Name())
		}
		conj = append(conj, p.opEq(i, code))

		for s := 0; s < p.maxArity; s++ {
			if s < len(line.Args) {
				ref := line.Args[s]
				if ref.IsConst {
					conj = append(conj, p.isConstTerm(i, s))
					// const_val is deliberately left free: that's what's
					// being resynthesized.
				} else {
					conj = append(conj,
						term.Not(p.isConstTerm(i, s)),
						term.Eq(p.refTerm(i, s), p.refConst(ref.Line)),
					)
				}
			} else {
				conj = append(conj,
					term.Not(p.isConstTerm(i, s)),
					term.Eq(p.refTerm(i, s), p.refConst(0)),
				)
			}
		}
	}
	return term.And(conj...), nil
}
