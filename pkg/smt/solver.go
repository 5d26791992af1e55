// Package smt defines the abstract decision-oracle interface: the boundary
// pkg/encoder and pkg/cegis build formulas against, without committing to
// any particular solving strategy. pkg/smt/fd provides one concrete
// implementation (a finite-domain enumerative/backtracking search), since
// every benchmark this module targets is over finite (QF_FD) domains and no
// ecosystem SMT binding fits this domain well enough to wire in its place.
package smt

import (
	"context"
	"time"

	"bvsynth/pkg/ir"
	"bvsynth/pkg/term"
)

// Status is the three-valued outcome of a solver check.
type Status uint8

const (
	// Unknown means the solver could not determine satisfiability within
	// its resource bounds (e.g. SetTimeout elapsed).
	Unknown Status = iota
	// Sat means a satisfying model was found.
	Sat
	// Unsat means no satisfying assignment exists.
	Unsat
)

func (s Status) String() string {
	switch s {
	case Sat:
		return "sat"
	case Unsat:
		return "unsat"
	default:
		return "unknown"
	}
}

// Model is a satisfying assignment returned by a successful Check.
type Model interface {
	// Eval returns the value a satisfying assignment gives to id, or false
	// if id is not a variable this model assigns (e.g. it never appeared in
	// any asserted formula).
	Eval(id term.VarID) (ir.Value, bool)
}

// Solver is the abstract decision procedure pkg/encoder and pkg/cegis are
// written against. A Solver is always bound to exactly one term.Context;
// asserting a Term built from a different Context must return
// term.ErrContextMismatch rather than silently misbehaving.
type Solver interface {
	// Context returns the term universe this solver's variables and
	// assertions are drawn from.
	Context() *term.Context

	// Assert adds f (which must be Bool-sorted) to the solver's permanent
	// constraint set.
	Assert(f term.Term) error

	// Check determines satisfiability of the conjunction of all asserted
	// formulas, honoring ctx cancellation and any timeout set via
	// SetTimeout. On Sat, the returned Model is valid until the next Push,
	// Pop, Assert, or Check call.
	Check(ctx context.Context) (Status, Model, error)

	// CheckForall checks the validity of "forall universal. body" by
	// internally checking satisfiability of its negation. On Unsat the
	// formula is valid; on Sat, the returned Model gives a counterexample
	// assignment to the universal variables — exactly the shape pkg/cegis's
	// verify step and pkg/downscale's CEGIS constant-resynthesis mode need
	// (both through pkg/encoder.Verify).
	CheckForall(ctx context.Context, universal []term.VarID, body term.Term) (Status, Model, error)

	// Push saves the current assertion stack, so a later Pop can discard
	// everything asserted since.
	Push()

	// Pop restores the assertion stack to its state at the matching Push.
	Pop()

	// SetTimeout bounds the wall-clock time any subsequent Check /
	// CheckForall call may take before returning Unknown.
	SetTimeout(d time.Duration)

	// Reset discards all assertions and the push/pop stack, returning the
	// solver to its initial state (but keeping its Context).
	Reset()
}

// ModelEnv materializes every variable ctx allocated into a term.Env, using
// m to resolve each one. Variables m has no binding for are simply absent
// from the result (e.g. a variable that never appeared in any asserted
// formula). Used at the boundary where a solver's raw Model needs to be
// handed to code (like pkg/encoder's dead-code blocking-clause builder)
// written against plain term.Env rather than the Model interface.
func ModelEnv(ctx *term.Context, m Model) term.Env {
	env := make(term.Env)
	for _, id := range ctx.AllVars() {
		if v, ok := m.Eval(id); ok {
			env[id] = v
		}
	}
	return env
}
