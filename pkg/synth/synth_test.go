package synth_test

import (
	"context"
	"testing"

	"bvsynth/pkg/bvlib"
	"bvsynth/pkg/encoder"
	"bvsynth/pkg/ir"
	"bvsynth/pkg/smt"
	"bvsynth/pkg/smt/fd"
	"bvsynth/pkg/synth"
	"bvsynth/pkg/term"
)

func newFDSolver(ctx *term.Context) smt.Solver { return fd.New(ctx) }

func optionsFor(b bvlib.Benchmark) synth.Options {
	return synth.Options{
		OpFreqs:     b.OpFreqs,
		EncoderBase: encoder.Options{MaxConsts: b.MaxConsts, ConstSet: b.ConstSet},
	}
}

func TestSynthFindsFirstRealizableLength(t *testing.T) {
	width := uint(8)
	b := bvlib.P01(width)

	opts := optionsFor(b)
	prg, stats, err := synth.Synth(context.Background(), b.Spec, bvlib.Families(), []int{1, 2, 3}, newFDSolver, opts)
	if err != nil {
		t.Fatalf("Synth: %v", err)
	}
	if prg == nil {
		t.Fatal("expected a synthesized program")
	}
	if len(stats.Lengths) == 0 {
		t.Fatal("expected per-length stats to be recorded")
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

func TestSynthReturnsNoProgramWithoutError(t *testing.T) {
	width := uint(8)
	b := bvlib.S6(width)

	opts := optionsFor(b)
	prg, stats, err := synth.Synth(context.Background(), b.Spec, bvlib.Families(), []int{1}, newFDSolver, opts)
	if err != nil {
		t.Fatalf("expected NoProgram (nil error), got %v", err)
	}
	if prg != nil {
		t.Fatal("expected a nil program for an unrealizable spec")
	}
	if len(stats.Lengths) == 0 || stats.Lengths[0].Outcome != "unrealizable" {
		t.Fatalf("expected outcome %q, got %+v", "unrealizable", stats.Lengths)
	}
}

func TestSynthDownsizeRecordsAnAttempt(t *testing.T) {
	width := uint(8)
	b := bvlib.P01(width)

	opts := optionsFor(b)
	opts.Downsize = true
	opts.DownsizeWidths = []uint{4}

	_, stats, err := synth.Synth(context.Background(), b.Spec, bvlib.Families(), []int{2}, newFDSolver, opts)
	if err != nil {
		t.Fatalf("Synth: %v", err)
	}
	if !stats.DownsizeTried {
		t.Fatal("expected DownsizeTried to be recorded")
	}
}
