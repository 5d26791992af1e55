package bvlib_test

import (
	"context"
	"testing"

	"bvsynth/pkg/bvlib"
	"bvsynth/pkg/cegis"
	"bvsynth/pkg/encoder"
	"bvsynth/pkg/ir"
	"bvsynth/pkg/smt"
	"bvsynth/pkg/smt/fd"
	"bvsynth/pkg/term"
)

func newFDSolver(ctx *term.Context) smt.Solver { return fd.New(ctx) }

func runBenchmark(t *testing.T, b bvlib.Benchmark, width uint, length int) (*ir.Prg, error) {
	t.Helper()
	lib := b.Library(bvlib.Families(), width)
	prg, _, err := cegis.Run(context.Background(), b.Spec, lib, encoder.Options{
		Width:      width,
		NumInputs:  len(b.Spec.InTypes()),
		NumOutputs: 1,
		Length:     length,
		MaxConsts:  b.MaxConsts,
		ConstSet:   b.ConstSet,
	}, newFDSolver, cegis.Options{MaxIterations: 200})
	return prg, err
}

// TestP01TurnOffRightmostBit exercises the turn-off-rightmost-bit benchmark.
func TestP01TurnOffRightmostBit(t *testing.T) {
	width := uint(8)
	b := bvlib.P01(width)
	prg, err := runBenchmark(t, b, width, 2)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for x := uint64(0); x < 256; x++ {
		want, _ := b.Spec.Eval([]ir.Value{ir.BitVecValue(x, width)})
		got, err := prg.Eval([]ir.Value{ir.BitVecValue(x, width)})
		if err != nil {
			t.Fatalf("Eval(%d): %v", x, err)
		}
		if !got[0].Equals(want[0]) {
			t.Fatalf("x=%d: got %d want %d", x, got[0].Uint(), want[0].Uint())
		}
	}
}

// TestP09AbsFunction exercises the abs-function benchmark.
func TestP09AbsFunction(t *testing.T) {
	width := uint(8)
	b := bvlib.P09(width)
	prg, err := runBenchmark(t, b, width, 3)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for x := uint64(0); x < 256; x++ {
		want, _ := b.Spec.Eval([]ir.Value{ir.BitVecValue(x, width)})
		got, err := prg.Eval([]ir.Value{ir.BitVecValue(x, width)})
		if err != nil {
			t.Fatalf("Eval(%d): %v", x, err)
		}
		if !got[0].Equals(want[0]) {
			t.Fatalf("x=%d: got %d want %d", x, got[0].Uint(), want[0].Uint())
		}
	}
}

// TestS6Unrealizable exercises a benchmark that cannot be realized
// from {or:1} alone, so Run must report ErrUnrealizable within the bound.
func TestS6Unrealizable(t *testing.T) {
	width := uint(8)
	b := bvlib.S6(width)
	_, err := runBenchmark(t, b, width, 1)
	if err == nil {
		t.Fatal("expected an unrealizable error")
	}
	if _, ok := err.(*cegis.ErrUnrealizable); !ok {
		t.Fatalf("expected ErrUnrealizable, got %T: %v", err, err)
	}
}

func TestCatalogCoversEveryEntry(t *testing.T) {
	entries := bvlib.Catalog(8)
	if len(entries) == 0 {
		t.Fatal("expected a non-empty catalog")
	}
	seen := map[string]bool{}
	for _, b := range entries {
		if seen[b.Name] {
			t.Fatalf("duplicate catalog entry %q", b.Name)
		}
		seen[b.Name] = true
		if b.Spec == nil {
			t.Fatalf("entry %q has a nil spec", b.Name)
		}
	}
}
