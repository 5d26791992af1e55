package encoder_test

import (
	"context"
	"testing"

	"bvsynth/pkg/encoder"
	"bvsynth/pkg/ir"
	"bvsynth/pkg/smt"
	"bvsynth/pkg/smt/fd"
)

// addOp is a minimal 2-bit-vector addition operator for encoder tests,
// independent of pkg/bvlib.
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

// notOp is a unary bitwise-not operator.
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

// synthesizes a 1-line program computing NOT(x) over bv3, given only the
// single-output sample set and a library containing both add and not, and
// checks the reconstructed program computes NOT(x) on every bv3 input.
func TestEncoderSynthesizesNot(t *testing.T) {
	width := uint(3)
	lib := ir.NewOpLibrary().Add(addOp{width}, ir.Unbounded).Add(notOp{width}, ir.Unbounded)

	p, err := encoder.NewProblem(lib, encoder.Options{
		Width: width, NumInputs: 1, NumOutputs: 1, Length: 1, MaxConsts: -1,
	})
	if err != nil {
		t.Fatalf("NewProblem: %v", err)
	}

	solver := fd.New(p.Ctx)
	if err := solver.Assert(p.Base()); err != nil {
		t.Fatalf("Assert(Base): %v", err)
	}

	for x := uint64(0); x < (1 << width); x++ {
		in := ir.BitVecValue(x, width)
		out := ir.BitVecValue(^x, width)
		sample, err := p.RegisterSample([]ir.Value{in}, []ir.Value{out})
		if err != nil {
			t.Fatalf("RegisterSample(%d): %v", x, err)
		}
		if err := solver.Assert(sample); err != nil {
			t.Fatalf("Assert(sample %d): %v", x, err)
		}
	}

	status, model, err := solver.Check(context.Background())
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if status != smt.Sat {
		t.Fatalf("expected sat, got %s", status)
	}

	prg, err := p.Reconstruct(model)
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	for x := uint64(0); x < (1 << width); x++ {
		outs, err := prg.Eval([]ir.Value{ir.BitVecValue(x, width)})
		if err != nil {
			t.Fatalf("Eval(%d): %v", x, err)
		}
		if outs[0].Uint() != (^x)&((1<<width)-1) {
			t.Fatalf("reconstructed program disagrees with spec at x=%d: got %d", x, outs[0].Uint())
		}
	}
}

func TestConstCountForbidsAnyConstant(t *testing.T) {
	width := uint(3)
	lib := ir.NewOpLibrary().Add(addOp{width}, ir.Unbounded)

	p, err := encoder.NewProblem(lib, encoder.Options{
		Width: width, NumInputs: 1, NumOutputs: 1, Length: 1, MaxConsts: 0,
	})
	if err != nil {
		t.Fatalf("NewProblem: %v", err)
	}
	solver := fd.New(p.Ctx)
	if err := solver.Assert(p.Base()); err != nil {
		t.Fatalf("Assert(Base): %v", err)
	}
	// x+1 requires a constant operand; with MaxConsts=0 and only "add" (needs
	// a second operand, and there's no second earlier line) this must be unsat.
	sample, err := p.RegisterSample([]ir.Value{ir.BitVecValue(0, width)}, []ir.Value{ir.BitVecValue(1, width)})
	if err != nil {
		t.Fatalf("RegisterSample: %v", err)
	}
	if err := solver.Assert(sample); err != nil {
		t.Fatalf("Assert(sample): %v", err)
	}
	status, _, err := solver.Check(context.Background())
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if status != smt.Unsat {
		t.Fatalf("expected unsat with MaxConsts=0 and no second input line, got %s", status)
	}
}
