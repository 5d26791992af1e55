// Package fd implements pkg/smt.Solver as a finite-domain backtracking
// search: every variable's domain is a bounded range (bool, bv(w) for small
// w, or an internal enum), so satisfiability reduces to trying assignments
// until one satisfies every asserted term, or the search is exhausted. This
// is the concrete reference decision procedure: the solver is treated as an
// abstract oracle elsewhere in this module, and every benchmark here is over
// a finite (QF_FD) domain. search is forward-checking rather than naive
// brute force: each formula is evaluated as soon as the variables it reads
// are bound (see scheduleByDepth), so a violated constraint prunes a branch
// long before every variable in the problem has a value.
package fd

import (
	"context"
	"fmt"
	"time"

	"bvsynth/pkg/ir"
	"bvsynth/pkg/smt"
	"bvsynth/pkg/term"
)

// maxCardinality bounds how large a single variable's domain may be before
// Check gives up with smt.Unknown rather than attempting to enumerate it;
// 2^20 keeps a worst-case single-variable sweep at about a million values,
// still well beyond anything this module's small bit-widths ask for.
const maxCardinality = 1 << 20

// Solver is a finite-domain reference implementation of smt.Solver.
type Solver struct {
	ctx     *term.Context
	asserts []term.Term
	frames  []int // stack-depth snapshot of len(asserts) at each Push
	timeout time.Duration
	nodeCap int64 // search nodes visited before giving up as Unknown; 0 = unbounded
}

// New constructs an empty solver bound to ctx.
func New(ctx *term.Context) *Solver {
	return &Solver{ctx: ctx, nodeCap: 50_000_000}
}

func (s *Solver) Context() *term.Context { return s.ctx }

func (s *Solver) Assert(f term.Term) error {
	if err := s.ctx.Check(f); err != nil {
		return err
	}
	if !f.Ty().Equals(ir.Bool()) {
		return fmt.Errorf("smt/fd: Assert requires a bool-sorted term, got %s", f.Ty())
	}
	s.asserts = append(s.asserts, f)
	return nil
}

func (s *Solver) Push() {
	s.frames = append(s.frames, len(s.asserts))
}

func (s *Solver) Pop() {
	if len(s.frames) == 0 {
		return
	}
	n := s.frames[len(s.frames)-1]
	s.frames = s.frames[:len(s.frames)-1]
	s.asserts = s.asserts[:n]
}

func (s *Solver) Reset() {
	s.asserts = nil
	s.frames = nil
}

func (s *Solver) SetTimeout(d time.Duration) { s.timeout = d }

func (s *Solver) Check(ctx context.Context) (smt.Status, smt.Model, error) {
	return s.search(ctx, s.asserts)
}

func (s *Solver) CheckForall(ctx context.Context, universal []term.VarID, body term.Term) (smt.Status, smt.Model, error) {
	for _, id := range universal {
		if !s.ctx.Contains(id) {
			return smt.Unknown, nil, fmt.Errorf("%w: universal variable not from this solver's context", term.ErrContextMismatch)
		}
	}
	if err := s.ctx.Check(body); err != nil {
		return smt.Unknown, nil, err
	}
	// Validity of "forall universal. body" (relative to the solver's
	// permanent assertions, which pin every non-universal free variable) is
	// checked by searching for a satisfying assignment to its negation: any
	// such assignment is a counterexample.
	query := append(append([]term.Term{}, s.asserts...), term.Not(body))
	status, model, err := s.search(ctx, query)
	switch status {
	case smt.Sat:
		return smt.Sat, model, err // counterexample found: forall does not hold
	case smt.Unsat:
		return smt.Unsat, nil, err // no counterexample: forall holds
	default:
		return smt.Unknown, nil, err
	}
}

// search performs backtracking over every variable in s.ctx, looking for an
// assignment satisfying the conjunction of formulas. It is forward-checking,
// not brute-force: each formula is scheduled at the depth of the last
// variable (in Context.AllVars' allocation order) it reads, via
// scheduleByDepth, and is evaluated the moment that depth is reached rather
// than only once every variable in the whole problem is bound. pkg/encoder's
// NewProblem allocates a program's control variables one line at a time, so
// a line's own structural/arity constraints become checkable — and can prune
// the branch — as soon as that line's handful of variables are set, long
// before the remaining lines' domains are ever explored.
func (s *Solver) search(ctx context.Context, formulas []term.Term) (smt.Status, smt.Model, error) {
	formulas = flattenConjuncts(formulas)

	vars := s.ctx.AllVars()
	domains := make([]uint64, len(vars))
	for i, v := range vars {
		ty, err := s.ctx.TypeOf(v)
		if err != nil {
			return smt.Unknown, nil, err
		}
		card := ty.Cardinality()
		if card == 0 || card > maxCardinality {
			return smt.Unknown, nil, nil
		}
		domains[i] = card
	}

	checksAt := scheduleByDepth(vars, formulas)

	env := make(term.Env, len(vars))
	var nodes int64
	deadline := time.Time{}
	if s.timeout > 0 {
		deadline = time.Now().Add(s.timeout)
	}

	var backtrack func(i int) (bool, error)
	backtrack = func(i int) (bool, error) {
		nodes++
		if s.nodeCap > 0 && nodes > s.nodeCap {
			return false, errSearchBudgetExceeded
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return false, errSearchBudgetExceeded
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		default:
		}

		for _, f := range checksAt[i] {
			v, err := f.Eval(env)
			if err != nil {
				return false, err
			}
			if !v.Bool() {
				return false, nil
			}
		}

		if i == len(vars) {
			return true, nil
		}

		v := vars[i]
		ty, _ := s.ctx.TypeOf(v)
		card := domains[i]
		for val := uint64(0); val < card; val++ {
			env[v] = domainValue(ty, val)
			ok, err := backtrack(i + 1)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		delete(env, v)
		return false, nil
	}

	ok, err := backtrack(0)
	if err == errSearchBudgetExceeded {
		return smt.Unknown, nil, nil
	}
	if err != nil {
		return smt.Unknown, nil, err
	}
	if !ok {
		return smt.Unsat, nil, nil
	}
	model := make(fdModel, len(env))
	for k, v := range env {
		model[k] = v
	}
	return smt.Sat, model, nil
}

// flattenConjuncts splits every top-level (and recursively nested) KAnd node
// out of formulas into its individual conjuncts. Callers like pkg/encoder's
// Base() build one large And(...) tree rather than issuing many small
// Asserts, which would otherwise defeat scheduleByDepth: a single formula
// spanning most of the problem's variables gets bucketed at the deepest
// variable it touches, so none of its actually-independent conjuncts could
// prune a branch early. Flattening first recovers the per-conjunct
// granularity forward-checking depends on, regardless of how callers chose
// to structure their Assert calls.
func flattenConjuncts(formulas []term.Term) []term.Term {
	var out []term.Term
	var walk func(t term.Term)
	walk = func(t term.Term) {
		if t.Kind() == term.KAnd {
			for _, a := range t.Args() {
				walk(a)
			}
			return
		}
		out = append(out, t)
	}
	for _, f := range formulas {
		walk(f)
	}
	return out
}

// scheduleByDepth buckets formulas by the backtracking depth at which every
// variable they read is bound: a formula depending only on vars[0:k] is
// placed in bucket k, so backtrack can evaluate it right after the k-th
// variable is assigned instead of waiting for the whole assignment. A
// formula with no free variables (a closed term) lands in bucket 0 and is
// checked before any variable is bound at all.
func scheduleByDepth(vars []term.VarID, formulas []term.Term) [][]term.Term {
	depthOf := make(map[term.VarID]int, len(vars))
	for i, v := range vars {
		depthOf[v] = i
	}
	checksAt := make([][]term.Term, len(vars)+1)
	for _, f := range formulas {
		depth := 0
		for _, id := range f.Vars() {
			if d, ok := depthOf[id]; ok && d+1 > depth {
				depth = d + 1
			}
		}
		checksAt[depth] = append(checksAt[depth], f)
	}
	return checksAt
}

func domainValue(ty ir.Ty, val uint64) ir.Value {
	switch ty.Kind {
	case ir.BoolKind:
		return ir.BoolValue(val != 0)
	case ir.BitVecKind:
		return ir.BitVecValue(val, ty.Width)
	default:
		return ir.EnumValue(val, ty.Width)
	}
}

type searchBudgetError struct{}

func (searchBudgetError) Error() string { return "smt/fd: search budget exceeded" }

var errSearchBudgetExceeded error = searchBudgetError{}

// fdModel is a concrete satisfying assignment found by search.
type fdModel map[term.VarID]ir.Value

func (m fdModel) Eval(id term.VarID) (ir.Value, bool) {
	v, ok := m[id]
	return v, ok
}
