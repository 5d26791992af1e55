package bvlib_test

import (
	"testing"

	"bvsynth/pkg/bvlib"
	"bvsynth/pkg/ir"
)

func evalBin(t *testing.T, op ir.Op, a, b uint64, width uint) uint64 {
	t.Helper()
	out, err := op.Eval([]ir.Value{ir.BitVecValue(a, width), ir.BitVecValue(b, width)})
	if err != nil {
		t.Fatalf("Eval(%d,%d): %v", a, b, err)
	}
	return out.Uint()
}

func TestArithmeticWraps(t *testing.T) {
	width := uint(4)
	if got := evalBin(t, bvlib.Add(width), 15, 1, width); got != 0 {
		t.Fatalf("add(15,1) at width 4 = %d, want 0", got)
	}
	if got := evalBin(t, bvlib.Sub(width), 0, 1, width); got != 15 {
		t.Fatalf("sub(0,1) at width 4 = %d, want 15", got)
	}
}

func TestShiftsSaturateAtWidth(t *testing.T) {
	width := uint(4)
	if got := evalBin(t, bvlib.Shl(width), 1, 4, width); got != 0 {
		t.Fatalf("shl(1,4) at width 4 = %d, want 0", got)
	}
	if got := evalBin(t, bvlib.Lshr(width), 8, 4, width); got != 0 {
		t.Fatalf("lshr(8,4) at width 4 = %d, want 0", got)
	}
}

func TestAshrSignExtends(t *testing.T) {
	width := uint(4)
	// 0b1000 = -8 at width 4; ashr by 1 should sign-extend to 0b1100 = 12.
	if got := evalBin(t, bvlib.Ashr(width), 8, 1, width); got != 12 {
		t.Fatalf("ashr(8,1) at width 4 = %d, want 12", got)
	}
}

func TestComparisonsMatchSignedness(t *testing.T) {
	width := uint(4)
	// 0b1000 (unsigned 8) is negative as a signed 4-bit value (-8); 1 is positive.
	if got := evalBin(t, bvlib.Ult(width), 8, 1, width); got != 0 {
		t.Fatalf("ult(8,1) unsigned at width 4 = %d, want 0 (8 > 1 unsigned)", got)
	}
	if got := evalBin(t, bvlib.Slt(width), 8, 1, width); got != 1 {
		t.Fatalf("slt(8,1) signed at width 4 = %d, want 1 (-8 < 1)", got)
	}
}

func TestFamiliesBuildsEveryOperatorAtWidth(t *testing.T) {
	lib := bvlib.Families().Build(8)
	for _, name := range []string{"add", "sub", "and", "or", "xor", "mul", "udiv", "not", "neg", "shl", "lshr", "ashr", "ult", "uge", "slt", "sge"} {
		if _, ok := lib.Get(name); !ok {
			t.Fatalf("expected Families().Build(8) to contain %q", name)
		}
	}
}
