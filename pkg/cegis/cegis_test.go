package cegis_test

import (
	"context"
	"testing"

	"bvsynth/pkg/cegis"
	"bvsynth/pkg/encoder"
	"bvsynth/pkg/ir"
	"bvsynth/pkg/smt"
	"bvsynth/pkg/smt/fd"
	"bvsynth/pkg/term"
)

type notOp struct{ width uint }

func (n notOp) Name() string          { return "not" }
func (n notOp) InTypes() []ir.Ty      { return []ir.Ty{ir.BitVec(n.width)} }
func (n notOp) OutType() ir.Ty        { return ir.BitVec(n.width) }
func (n notOp) Arity() uint           { return 1 }
func (n notOp) IsCommutative() bool   { return false }
func (n notOp) IsDeterministic() bool { return true }
func (n notOp) IsTotal() bool         { return true }
func (n notOp) Eval(ins []ir.Value) (ir.Value, error) {
	if err := ir.CheckArity(n, ins); err != nil {
		return ir.Value{}, err
	}
	return ir.BitVecValue(^ins[0].Uint(), n.width), nil
}

type xorOp struct{ width uint }

func (x xorOp) Name() string          { return "xor" }
func (x xorOp) InTypes() []ir.Ty      { return []ir.Ty{ir.BitVec(x.width), ir.BitVec(x.width)} }
func (x xorOp) OutType() ir.Ty        { return ir.BitVec(x.width) }
func (x xorOp) Arity() uint           { return 2 }
func (x xorOp) IsCommutative() bool   { return true }
func (x xorOp) IsDeterministic() bool { return true }
func (x xorOp) IsTotal() bool         { return true }
func (x xorOp) Eval(ins []ir.Value) (ir.Value, error) {
	if err := ir.CheckArity(x, ins); err != nil {
		return ir.Value{}, err
	}
	return ir.BitVecValue(ins[0].Uint()^ins[1].Uint(), x.width), nil
}

func TestRunSynthesizesNot(t *testing.T) {
	width := uint(3)
	lib := ir.NewOpLibrary().Add(notOp{width}, ir.Unbounded).Add(xorOp{width}, ir.Unbounded)

	spec := ir.NewFuncSpec("not", []ir.Ty{ir.BitVec(width)}, ir.BitVec(width), func(ins []ir.Value) (ir.Value, error) {
		return ir.BitVecValue(^ins[0].Uint(), width), nil
	})

	newSolver := func(ctx *term.Context) smt.Solver { return fd.New(ctx) }

	prg, stats, err := cegis.Run(context.Background(), spec, lib, encoder.Options{
		Width: width, NumInputs: 1, NumOutputs: 1, Length: 1, MaxConsts: -1,
	}, newSolver, cegis.Options{MaxIterations: 20})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Iterations == 0 {
		t.Fatal("expected at least one iteration to be recorded")
	}

	for x := uint64(0); x < (1 << width); x++ {
		outs, err := prg.Eval([]ir.Value{ir.BitVecValue(x, width)})
		if err != nil {
			t.Fatalf("Eval(%d): %v", x, err)
		}
		want, _ := spec.Eval([]ir.Value{ir.BitVecValue(x, width)})
		if !outs[0].Equals(want[0]) {
			t.Fatalf("synthesized program disagrees with spec at x=%d: got %d want %d", x, outs[0].Uint(), want[0].Uint())
		}
	}
}

func TestRunUnrealizableAtGivenLength(t *testing.T) {
	width := uint(3)
	// A library with only "xor" cannot realize NOT (xor is never enough to
	// invert every bit of a free variable against nothing but itself at
	// length 1 with no constants allowed).
	lib := ir.NewOpLibrary().Add(xorOp{width}, ir.Unbounded)

	spec := ir.NewFuncSpec("not", []ir.Ty{ir.BitVec(width)}, ir.BitVec(width), func(ins []ir.Value) (ir.Value, error) {
		return ir.BitVecValue(^ins[0].Uint(), width), nil
	})

	newSolver := func(ctx *term.Context) smt.Solver { return fd.New(ctx) }

	_, _, err := cegis.Run(context.Background(), spec, lib, encoder.Options{
		Width: width, NumInputs: 1, NumOutputs: 1, Length: 1, MaxConsts: 0,
	}, newSolver, cegis.Options{MaxIterations: 20})
	if err == nil {
		t.Fatal("expected an unrealizable error")
	}
	if _, ok := err.(*cegis.ErrUnrealizable); !ok {
		t.Fatalf("expected ErrUnrealizable, got %T: %v", err, err)
	}
}
