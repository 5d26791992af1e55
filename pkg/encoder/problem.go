// Package encoder builds the symbolic variable schema and constraint
// families a fixed program length needs: one op_sort variable, one
// is_const/operand_ref/const_val triple per operand slot, per line, plus the
// structural, typing, search-pruning, and per-sample constraints over them.
// pkg/cegis drives a Problem across samples; pkg/downscale reuses it for
// constant resynthesis.
package encoder

import (
	"fmt"

	"bvsynth/pkg/ir"
	"bvsynth/pkg/term"
)

// Options configures one encoding instance. All fields are explicit — there
// is no package-level mutable option state anywhere in this module.
type Options struct {
	// Width is the bit-vector width every input, output, and intermediate
	// line shares. Every benchmark in this module's catalog is single-width.
	Width uint
	// NumInputs is the number of input lines (global indices [0,NumInputs)).
	NumInputs int
	// NumOutputs is how many of the program's trailing lines are outputs
	// (global indices [NumInputs+Length-NumOutputs, NumInputs+Length)).
	NumOutputs int
	// Length is the number of operator lines to place.
	Length int
	// MaxConsts bounds the total number of inline constant operands across
	// the whole program; negative means unbounded.
	MaxConsts int
	// ConstSet, if non-nil, restricts every constant operand's value to this
	// set.
	ConstSet []ir.Value
}

// Problem is one symbolic encoding instance: a program skeleton of fixed
// Length over a fixed Options.Width, with every control variable allocated
// but not yet constrained to any particular sample.
type Problem struct {
	Opts Options
	Lib  *ir.OpLibrary
	Ctx  *term.Context
	sort *term.OpSort

	bvTy ir.Ty

	// opVar[i] is the operator chosen for global operator-line i (0-based
	// within the operator lines, i.e. global index NumInputs+i).
	opVar []term.VarID
	// operandRef[i][slot] ranges over [0, NumInputs+Length) and is only
	// meaningful when isConst[i][slot] is false.
	operandRef [][]term.VarID
	isConst    [][]term.VarID
	constVal   [][]term.VarID

	maxArity int
}

// NewProblem allocates every symbolic control variable for a Length-line
// program over lib. lib's operators must all take and return BitVec(Width).
func NewProblem(lib *ir.OpLibrary, opts Options) (*Problem, error) {
	if opts.Length <= 0 {
		return nil, fmt.Errorf("encoder: Length must be positive, got %d", opts.Length)
	}
	if opts.NumOutputs <= 0 || opts.NumOutputs > opts.Length {
		return nil, fmt.Errorf("encoder: NumOutputs must be in [1,Length], got %d", opts.NumOutputs)
	}
	bvTy := ir.BitVec(opts.Width)
	for _, op := range lib.Ops() {
		if !op.OutType().Equals(bvTy) {
			return nil, fmt.Errorf("encoder: operator %q has out type %s, want %s", op.Name(), op.OutType(), bvTy)
		}
		for i, in := range op.InTypes() {
			if !in.Equals(bvTy) {
				return nil, fmt.Errorf("encoder: operator %q operand %d has type %s, want %s", op.Name(), i, in, bvTy)
			}
		}
	}

	ctx := term.NewContext()
	sort := term.NewOpSort(lib)
	maxArity := int(lib.MaxArity())
	if maxArity < 1 {
		maxArity = 1 // the reserved "id" operator always needs one operand slot
	}

	p := &Problem{
		Opts:     opts,
		Lib:      lib,
		Ctx:      ctx,
		sort:     sort,
		bvTy:     bvTy,
		maxArity: maxArity,
	}

	opSortTy := sort.Ty()
	// Every operand-ref variable shares one domain sized to the whole
	// program (inputs + operator lines). A given line's *valid* references
	// are a prefix of that domain ([0, NumInputs+i)); Structural()'s
	// validity constraint enforces the prefix explicitly, which keeps every
	// operand-ref variable's Ty identical rather than needing a distinct
	// Enum cardinality per line (and avoids a degenerate Enum(0) domain for
	// the very first operator line when NumInputs==0).
	refTy := ir.Enum(uint(opts.NumInputs + opts.Length))
	for i := 0; i < opts.Length; i++ {
		opID, _ := ctx.NewVar(opSortTy)
		p.opVar = append(p.opVar, opID)

		refs := make([]term.VarID, maxArity)
		isC := make([]term.VarID, maxArity)
		cvs := make([]term.VarID, maxArity)
		for s := 0; s < maxArity; s++ {
			refID, _ := ctx.NewVar(refTy)
			refs[s] = refID
			cID, _ := ctx.NewVar(ir.Bool())
			isC[s] = cID
			vID, _ := ctx.NewVar(bvTy)
			cvs[s] = vID
		}
		p.operandRef = append(p.operandRef, refs)
		p.isConst = append(p.isConst, isC)
		p.constVal = append(p.constVal, cvs)
	}

	return p, nil
}

// OpSort exposes the closed operator enumeration backing op_sort, e.g. so a
// caller can decode a solver Model's raw Enum codes back into operator
// names.
func (p *Problem) OpSort() *term.OpSort { return p.sort }

// NumLines is the number of global lines (inputs plus operator lines).
func (p *Problem) NumLines() int { return p.Opts.NumInputs + p.Opts.Length }

// OutputLines returns the global line indices that are this problem's
// outputs (the trailing NumOutputs operator lines).
func (p *Problem) OutputLines() []uint {
	out := make([]uint, p.Opts.NumOutputs)
	last := p.NumLines()
	for i := range out {
		out[i] = uint(last - p.Opts.NumOutputs + i)
	}
	return out
}

func (p *Problem) refTy() ir.Ty {
	return ir.Enum(uint(p.Opts.NumInputs + p.Opts.Length))
}

func (p *Problem) opVarTerm(i int) term.Term  { return term.VarOf(p.opVar[i], p.sort.Ty()) }
func (p *Problem) refTerm(i, s int) term.Term { return term.VarOf(p.operandRef[i][s], p.refTy()) }
func (p *Problem) isConstTerm(i, s int) term.Term {
	return term.VarOf(p.isConst[i][s], ir.Bool())
}
func (p *Problem) constValTerm(i, s int) term.Term {
	return term.VarOf(p.constVal[i][s], p.bvTy)
}
