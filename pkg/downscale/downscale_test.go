package downscale_test

import (
	"context"
	"testing"

	"bvsynth/pkg/downscale"
	"bvsynth/pkg/ir"
	"bvsynth/pkg/smt"
	"bvsynth/pkg/smt/fd"
	"bvsynth/pkg/term"
)

func addFamily(width uint) ir.Op { return addOp{width} }

type addOp struct{ width uint }

func (a addOp) Name() string          { return "add" }
func (a addOp) InTypes() []ir.Ty      { return []ir.Ty{ir.BitVec(a.width), ir.BitVec(a.width)} }
func (a addOp) OutType() ir.Ty        { return ir.BitVec(a.width) }
func (a addOp) Arity() uint           { return 2 }
func (a addOp) IsCommutative() bool   { return true }
func (a addOp) IsDeterministic() bool { return true }
func (a addOp) IsTotal() bool         { return true }
func (a addOp) Eval(ins []ir.Value) (ir.Value, error) {
	if err := ir.CheckArity(a, ins); err != nil {
		return ir.Value{}, err
	}
	return ir.BitVecValue(ins[0].Uint()+ins[1].Uint(), a.width), nil
}

// addConstFive is "x -> x + 5", synthesizable at any width as one "add"
// line with a constant operand.
func addConstFive(width uint) ir.Spec {
	return ir.NewFuncSpec("plus5", []ir.Ty{ir.BitVec(width)}, ir.BitVec(width), func(ins []ir.Value) (ir.Value, error) {
		return ir.BitVecValue(ins[0].Uint()+5, width), nil
	})
}

func skeletonPlusConst(width uint, k uint64) *ir.Prg {
	lib := ir.NewOpLibrary().Add(addOp{width}, ir.Unbounded)
	return &ir.Prg{
		Lib:     lib,
		InTypes: []ir.Ty{ir.BitVec(width)},
		Lines: []ir.Line{
			{Op: addOp{width}, Args: []ir.Ref{ir.LineRef(0), ir.ConstRef(ir.BitVecValue(k, width))}},
		},
		Outputs: []ir.Ref{ir.LineRef(1)},
	}
}

func newSolver(ctx *term.Context) smt.Solver { return fd.New(ctx) }

func TestLiftPreservesStructureAndClearsConstants(t *testing.T) {
	families := ir.NewFamilyLibrary().Add("add", addFamily, ir.Unbounded)
	skeleton := skeletonPlusConst(3, 5)

	lifted, err := downscale.Lift(skeleton, families, 8)
	if err != nil {
		t.Fatalf("Lift: %v", err)
	}
	if lifted.InTypes[0].Width != 8 {
		t.Fatalf("expected lifted width 8, got %d", lifted.InTypes[0].Width)
	}
	if lifted.Lines[0].Op.Name() != "add" {
		t.Fatalf("expected the add operator to survive lifting, got %q", lifted.Lines[0].Op.Name())
	}
	arg1 := lifted.Lines[0].Args[1]
	if !arg1.IsConst || arg1.Const.Uint() != 0 {
		t.Fatalf("expected the constant operand to be cleared to zero, got %+v", arg1)
	}
}

func TestResynthesizeConstantsDirectRecoversLiftedConstant(t *testing.T) {
	families := ir.NewFamilyLibrary().Add("add", addFamily, ir.Unbounded)
	narrowSkeleton := skeletonPlusConst(3, 5)

	lifted, err := downscale.Lift(narrowSkeleton, families, 8)
	if err != nil {
		t.Fatalf("Lift: %v", err)
	}

	fullSpec := addConstFive(8)
	fullLib := families.Build(8)

	prg, err := downscale.ResynthesizeConstantsDirect(context.Background(), lifted, fullSpec, fullLib, newSolver, -1, nil)
	if err != nil {
		t.Fatalf("ResynthesizeConstantsDirect: %v", err)
	}

	for x := uint64(0); x < 32; x++ {
		want, _ := fullSpec.Eval([]ir.Value{ir.BitVecValue(x, 8)})
		got, err := prg.Eval([]ir.Value{ir.BitVecValue(x, 8)})
		if err != nil {
			t.Fatalf("Eval(%d): %v", x, err)
		}
		if !got[0].Equals(want[0]) {
			t.Fatalf("resynthesized program disagrees with spec at x=%d: got %d want %d", x, got[0].Uint(), want[0].Uint())
		}
	}
}

func TestResynthesizeConstantsCEGISRecoversLiftedConstant(t *testing.T) {
	families := ir.NewFamilyLibrary().Add("add", addFamily, ir.Unbounded)
	narrowSkeleton := skeletonPlusConst(3, 5)

	lifted, err := downscale.Lift(narrowSkeleton, families, 8)
	if err != nil {
		t.Fatalf("Lift: %v", err)
	}

	fullSpec := addConstFive(8)
	fullLib := families.Build(8)

	prg, err := downscale.ResynthesizeConstantsCEGIS(context.Background(), lifted, fullSpec, fullLib, newSolver, -1, nil, 50)
	if err != nil {
		t.Fatalf("ResynthesizeConstantsCEGIS: %v", err)
	}

	for x := uint64(0); x < 32; x++ {
		want, _ := fullSpec.Eval([]ir.Value{ir.BitVecValue(x, 8)})
		got, err := prg.Eval([]ir.Value{ir.BitVecValue(x, 8)})
		if err != nil {
			t.Fatalf("Eval(%d): %v", x, err)
		}
		if !got[0].Equals(want[0]) {
			t.Fatalf("resynthesized program disagrees with spec at x=%d: got %d want %d", x, got[0].Uint(), want[0].Uint())
		}
	}
}

func TestDownsizeBuildsNarrowSpecAndLibrary(t *testing.T) {
	families := ir.NewFamilyLibrary().Add("add", addFamily, ir.Unbounded)
	full := addConstFive(8)

	narrow, lib, err := downscale.Downsize(full, families, 3)
	if err != nil {
		t.Fatalf("Downsize: %v", err)
	}
	if narrow.InTypes()[0].Width != 3 {
		t.Fatalf("expected narrow width 3, got %d", narrow.InTypes()[0].Width)
	}
	if _, ok := lib.Get("add"); !ok {
		t.Fatal("expected the narrow library to contain \"add\"")
	}
}
