// Package downscale implements the bit-width downscaler/lifter: run the
// (expensive) synthesis search at a small bit-width where the finite-domain
// search space is tiny, then lift the resulting program's *structure* (which
// operators, which operand references) back up to the target width and
// re-derive only the inline constants there.
package downscale

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"bvsynth/pkg/encoder"
	"bvsynth/pkg/ir"
	"bvsynth/pkg/smt"
	"bvsynth/pkg/term"
)

// Downsize builds the narrow-width spec and operator library a first-pass
// synthesis search should run against. The returned Spec takes newWidth-bit
// inputs, evaluates spec on them zero-extended to spec's native input widths,
// and truncates the result to newWidth; families is rebuilt at newWidth via
// FamilyLibrary.Build.
func Downsize(spec ir.Spec, families *ir.FamilyLibrary, newWidth uint) (ir.Spec, *ir.OpLibrary, error) {
	ins := spec.InTypes()
	outs := spec.OutTypes()
	if len(outs) != 1 {
		return nil, nil, fmt.Errorf("downscale: Downsize only supports single-output specs, got %d outputs", len(outs))
	}
	newIns := make([]ir.Ty, len(ins))
	for i := range ins {
		newIns[i] = ir.BitVec(newWidth)
	}

	narrow := ir.NewFuncSpec("downsized", newIns, ir.BitVec(newWidth), func(args []ir.Value) (ir.Value, error) {
		full := make([]ir.Value, len(args))
		for i, a := range args {
			full[i] = ir.BitVecValue(a.Uint(), ins[i].Width)
		}
		outsV, err := spec.Eval(full)
		if err != nil {
			return ir.Value{}, err
		}
		return ir.BitVecValue(outsV[0].Uint(), newWidth), nil
	})

	return narrow, families.Build(newWidth), nil
}

// Lift rewrites skeleton (a program synthesized at skeleton's own width) to
// operate at fullWidth, preserving every line's operator family and operand
// references exactly, but clearing every inline constant to the zero value
// of the new width — a placeholder for ResynthesizeConstants* to fill in.
// families must contain, by name, every operator skeleton's lines use.
func Lift(skeleton *ir.Prg, families *ir.FamilyLibrary, fullWidth uint) (*ir.Prg, error) {
	fullLib := families.Build(fullWidth)
	lines := make([]ir.Line, len(skeleton.Lines))
	for i, line := range skeleton.Lines {
		op, ok := fullLib.Get(line.Op.Name())
		if !ok {
			return nil, fmt.Errorf("downscale: operator %q not found in the full-width library", line.Op.Name())
		}
		args := make([]ir.Ref, len(line.Args))
		for s, ref := range line.Args {
			if ref.IsConst {
				args[s] = ir.ConstRef(ir.BitVecValue(0, fullWidth))
			} else {
				args[s] = ref
			}
		}
		lines[i] = ir.Line{Op: op, Args: args}
	}
	inTypes := make([]ir.Ty, len(skeleton.InTypes))
	for i := range inTypes {
		inTypes[i] = ir.BitVec(fullWidth)
	}
	return &ir.Prg{Lib: fullLib, InTypes: inTypes, Lines: lines, Outputs: skeleton.Outputs}, nil
}

// problemFor builds the fixed-skeleton encoder.Problem shared by both
// resynthesis modes: Base() (structural/const-count/const-set constraints)
// conjoined with FixSkeleton(skeleton), so only const_val variables are
// actually free.
func problemFor(skeleton *ir.Prg, lib *ir.OpLibrary, fullWidth uint, maxConsts int, constSet []ir.Value) (*encoder.Problem, term.Term, error) {
	problem, err := encoder.NewProblem(lib, encoder.Options{
		Width:      fullWidth,
		NumInputs:  len(skeleton.InTypes),
		NumOutputs: len(skeleton.Outputs),
		Length:     len(skeleton.Lines),
		MaxConsts:  maxConsts,
		ConstSet:   constSet,
	})
	if err != nil {
		return nil, term.Term{}, err
	}
	fix, err := problem.FixSkeleton(skeleton)
	if err != nil {
		return nil, term.Term{}, err
	}
	return problem, term.And(problem.Base(), fix), nil
}

// ResynthesizeConstantsDirect realizes the "direct ∀∃" mode: a single query
// asserting every sample in the full input domain at once, rather than
// growing the sample set lazily from counterexamples. Because pkg/smt/fd's
// reference backend only ever targets finite (QF_FD) domains, "∀ inputs" and
// "the conjunction of every concrete input's sample constraint" coincide
// exactly, so one Check call here is a faithful one-shot realization of the
// ∀-quantified query a real solver's native quantifier support would
// otherwise be needed to perform.
func ResynthesizeConstantsDirect(ctx context.Context, skeleton *ir.Prg, fullSpec ir.Spec, lib *ir.OpLibrary, newSolver func(*term.Context) smt.Solver, maxConsts int, constSet []ir.Value) (*ir.Prg, error) {
	width := skeleton.InTypes[0].Width
	problem, base, err := problemFor(skeleton, lib, width, maxConsts, constSet)
	if err != nil {
		return nil, err
	}

	solver := newSolver(problem.Ctx)
	if err := solver.Assert(base); err != nil {
		return nil, err
	}

	domain, err := fullDomain(len(skeleton.InTypes), width)
	if err != nil {
		return nil, err
	}
	for _, in := range domain {
		sample, err := problem.RegisterSampleAuto(fullSpec, in)
		if err != nil {
			return nil, fmt.Errorf("downscale: spec rejected an in-domain input during direct resynthesis: %w", err)
		}
		if err := solver.Assert(sample); err != nil {
			return nil, err
		}
	}

	status, model, err := solver.Check(ctx)
	if err != nil {
		return nil, err
	}
	if status != smt.Sat {
		return nil, fmt.Errorf("downscale: direct constant resynthesis found no satisfying assignment (status=%s)", status)
	}
	return problem.Reconstruct(model)
}

// ResynthesizeConstantsCEGIS realizes the CEGIS-over-samples mode: grow the
// sample set one counterexample at a time, exactly like pkg/cegis.Run, but
// with the skeleton's structure held fixed so only const_val varies.
func ResynthesizeConstantsCEGIS(ctx context.Context, skeleton *ir.Prg, fullSpec ir.Spec, lib *ir.OpLibrary, newSolver func(*term.Context) smt.Solver, maxConsts int, constSet []ir.Value, maxIterations int) (*ir.Prg, error) {
	width := skeleton.InTypes[0].Width
	problem, base, err := problemFor(skeleton, lib, width, maxConsts, constSet)
	if err != nil {
		return nil, err
	}

	solver := newSolver(problem.Ctx)
	if err := solver.Assert(base); err != nil {
		return nil, err
	}

	seedIn := make([]ir.Value, len(skeleton.InTypes))
	for i := range seedIn {
		seedIn[i] = ir.BitVecValue(0, width)
	}
	seedSample, err := problem.RegisterSampleAuto(fullSpec, seedIn)
	if err != nil {
		return nil, err
	}
	if err := solver.Assert(seedSample); err != nil {
		return nil, err
	}

	if maxIterations <= 0 {
		maxIterations = 1000
	}
	for iter := 1; iter <= maxIterations; iter++ {
		status, model, err := solver.Check(ctx)
		if err != nil {
			return nil, err
		}
		if status != smt.Sat {
			return nil, fmt.Errorf("downscale: CEGIS constant resynthesis found no satisfying assignment at iteration %d (status=%s)", iter, status)
		}

		prg, err := problem.Reconstruct(model)
		if err != nil {
			return nil, err
		}

		cexIn, _, counterexampleFound, err := encoder.Verify(ctx, newSolver, 0, prg, fullSpec)
		if err != nil {
			return nil, err
		}
		if !counterexampleFound {
			return prg, nil
		}

		log.Debugf("downscale: iteration %d counterexample at input %v", iter, cexIn)
		sample, err := problem.RegisterSampleAuto(fullSpec, cexIn)
		if err != nil {
			return nil, err
		}
		if err := solver.Assert(sample); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("downscale: CEGIS constant resynthesis exhausted %d iterations", maxIterations)
}

// fullDomain materializes every input vector of width width, one entry per
// input, in lexicographic order. Only ResynthesizeConstantsDirect uses this
// now; ResynthesizeConstantsCEGIS verifies via encoder.Verify's CheckForall
// query instead of enumerating.
func fullDomain(numInputs int, width uint) ([][]ir.Value, error) {
	card := uint64(1) << width
	total := uint64(1)
	for i := 0; i < numInputs; i++ {
		total *= card
		if total > 1<<24 {
			return nil, fmt.Errorf("downscale: input domain too large to enumerate exhaustively")
		}
	}
	out := make([][]ir.Value, 0, total)
	idx := make([]uint64, numInputs)
	for {
		row := make([]ir.Value, numInputs)
		for i, v := range idx {
			row[i] = ir.BitVecValue(v, width)
		}
		out = append(out, row)
		pos := numInputs - 1
		for pos >= 0 {
			idx[pos]++
			if idx[pos] < card {
				break
			}
			idx[pos] = 0
			pos--
		}
		if pos < 0 {
			break
		}
	}
	return out, nil
}
