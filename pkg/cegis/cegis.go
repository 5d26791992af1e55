// Package cegis implements the counterexample-guided inductive synthesis
// driver: alternate a synthesis query (find a candidate
// program consistent with every sample seen so far) with a verification
// step (does the candidate actually match the spec everywhere?), growing the
// sample set by one counterexample each time verification fails, until
// either a program verifies or a resource bound is hit.
package cegis

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"bvsynth/pkg/encoder"
	"bvsynth/pkg/ir"
	"bvsynth/pkg/smt"
	"bvsynth/pkg/term"
	"bvsynth/pkg/util"
)

// Options configures a CEGIS run. Reified explicitly rather than as package-
// level mutable state, following go-corset's CompilationConfig/LoweringConfig
// pattern.
type Options struct {
	// MaxIterations bounds how many synthesize/verify rounds Run attempts
	// before giving up with ErrExhausted.
	MaxIterations int
	// Incremental selects between reusing one solver instance across
	// iterations (Assert per new sample) and rebuilding a fresh solver
	// every iteration (incremental-vs-reset modes). Reset
	// mode is simpler to reason about and is what Run uses when false;
	// incremental mode amortizes re-parsing cost at the expense of solver
	// state growing without bound across iterations.
	Incremental bool
	// CheckTimeout bounds each individual solver Check call.
	CheckTimeout time.Duration
}

// ErrExhausted is returned when MaxIterations elapses without a verified
// program.
type ErrExhausted struct {
	Iterations int
	Samples    int
}

func (e *ErrExhausted) Error() string {
	return fmt.Sprintf("cegis: exhausted %d iterations with %d samples without finding a verified program", e.Iterations, e.Samples)
}

// ErrUnrealizable is returned when the synthesis query itself is unsat: no
// program of the attempted Length (consistent with the operator library and
// constant budget) can satisfy even the samples seen so far, which by
// monotonicity of sample accumulation means no program of this Length
// satisfies the full spec either.
type ErrUnrealizable struct {
	Length  int
	Samples int
}

func (e *ErrUnrealizable) Error() string {
	return fmt.Sprintf("cegis: no length-%d program is consistent with the %d samples gathered so far", e.Length, e.Samples)
}

// Stats records one Run's progress, independent of its outcome.
type Stats struct {
	Iterations  int
	SamplesUsed int
	Elapsed     time.Duration
}

// NewSolver constructs a fresh smt.Solver bound to ctx; pkg/smt/fd.New
// satisfies this directly.
type NewSolver func(ctx *term.Context) smt.Solver

// Run drives the CEGIS loop for one fixed program Length (pkg/synth's outer
// loop is what varies Length across calls). spec need not be deterministic
// or total: Run's verification step checks the candidate against spec's own
// relation via encoder.Verify (a CheckForall query), which is how a
// non-deterministic or partial spec enters the loop at all — its samples and
// counterexamples go through problem.RegisterSampleAuto rather than a
// concrete-output comparison.
func Run(ctx context.Context, spec ir.Spec, lib *ir.OpLibrary, encOpts encoder.Options, newSolver NewSolver, opts Options) (*ir.Prg, *Stats, error) {
	problem, err := encoder.NewProblem(lib, encOpts)
	if err != nil {
		return nil, nil, err
	}

	perf := util.NewPerfStats()
	started := time.Now()
	stats := &Stats{}

	var solver smt.Solver
	samples := 0

	resetSolver := func() {
		solver = newSolver(problem.Ctx)
		if opts.CheckTimeout > 0 {
			solver.SetTimeout(opts.CheckTimeout)
		}
		if err := solver.Assert(problem.Base()); err != nil {
			panic(fmt.Sprintf("cegis: Base() produced an ill-typed formula: %v", err))
		}
	}
	resetSolver()

	var sampleIns [][]ir.Value

	reassertAllSamples := func() error {
		for _, in := range sampleIns {
			f, err := problem.RegisterSampleAuto(spec, in)
			if err != nil {
				return err
			}
			if err := solver.Assert(f); err != nil {
				return err
			}
		}
		return nil
	}

	addSample := func(in []ir.Value) error {
		sampleIns = append(sampleIns, in)
		samples++
		if opts.Incremental {
			f, err := problem.RegisterSampleAuto(spec, in)
			if err != nil {
				return err
			}
			return solver.Assert(f)
		}
		resetSolver()
		return reassertAllSamples()
	}

	// Seed with the all-zero input vector so the very first synthesis query
	// is non-trivial; unlike enumerating the whole domain, this needs no
	// bound on NumInputs/Width.
	seedIn := make([]ir.Value, encOpts.NumInputs)
	for i := range seedIn {
		seedIn[i] = ir.BitVecValue(0, encOpts.Width)
	}
	if err := addSample(seedIn); err != nil {
		return nil, nil, err
	}

	maxIter := opts.MaxIterations
	if maxIter <= 0 {
		maxIter = 1000
	}

	for iter := 1; iter <= maxIter; iter++ {
		stats.Iterations = iter
		log.Debugf("cegis: iteration %d, %d samples, length=%d", iter, samples, encOpts.Length)

		status, model, err := solver.Check(ctx)
		if err != nil {
			return nil, stats, err
		}
		if status == smt.Unsat {
			return nil, stats, &ErrUnrealizable{Length: encOpts.Length, Samples: samples}
		}
		if status == smt.Unknown {
			return nil, stats, fmt.Errorf("cegis: solver returned unknown at iteration %d", iter)
		}

		prg, err := problem.Reconstruct(model)
		if err != nil {
			return nil, stats, err
		}

		if problem.HasDeadCode(prg) {
			log.Debugf("cegis: iteration %d candidate has dead code, blocking and retrying", iter)
			env := smt.ModelEnv(problem.Ctx, model)
			if err := solver.Assert(problem.BlockDeadCode(env, prg)); err != nil {
				return nil, stats, err
			}
			continue
		}

		cexIn, _, ok, err := encoder.Verify(ctx, newSolver, opts.CheckTimeout, prg, spec)
		if err != nil {
			return nil, stats, err
		}
		if !ok {
			stats.SamplesUsed = samples
			stats.Elapsed = time.Since(started)
			perf.Log("cegis.Run")
			return prg, stats, nil
		}

		if err := addSample(cexIn); err != nil {
			return nil, stats, err
		}
	}

	stats.SamplesUsed = samples
	stats.Elapsed = time.Since(started)
	return nil, stats, &ErrExhausted{Iterations: stats.Iterations, Samples: samples}
}
