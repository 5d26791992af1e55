package ir_test

import (
	"testing"

	"bvsynth/pkg/ir"
)

// addOp is a minimal concrete Op used only to exercise pkg/ir's structural
// invariants, independent of pkg/bvlib.
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

func twoInputAddProgram(width uint) *ir.Prg {
	lib := ir.NewOpLibrary().Add(addOp{width: width}, ir.Unbounded)
	return &ir.Prg{
		Lib:     lib,
		InTypes: []ir.Ty{ir.BitVec(width), ir.BitVec(width)},
		Lines: []ir.Line{
			{Op: addOp{width: width}, Args: []ir.Ref{ir.LineRef(0), ir.LineRef(1)}},
		},
		Outputs: []uint{2},
	}
}

func TestPrgEval(t *testing.T) {
	p := twoInputAddProgram(8)
	if err := p.Validate(-1, nil); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	outs, err := p.Eval([]ir.Value{ir.BitVecValue(3, 8), ir.BitVecValue(4, 8)})
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if len(outs) != 1 || outs[0].Uint() != 7 {
		t.Fatalf("expected [7], got %v", outs)
	}
}

func TestPrgEvalWraps(t *testing.T) {
	p := twoInputAddProgram(8)
	outs, err := p.Eval([]ir.Value{ir.BitVecValue(250, 8), ir.BitVecValue(10, 8)})
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if outs[0].Uint() != 4 { // (250+10) mod 256 == 4
		t.Fatalf("expected wraparound to 4, got %d", outs[0].Uint())
	}
}

func TestPrgValidateRejectsCyclicReference(t *testing.T) {
	width := uint(8)
	lib := ir.NewOpLibrary().Add(addOp{width: width}, ir.Unbounded)
	p := &ir.Prg{
		Lib:     lib,
		InTypes: []ir.Ty{ir.BitVec(width), ir.BitVec(width)},
		Lines: []ir.Line{
			// line 2 refers to itself (global index 2): not acyclic.
			{Op: addOp{width: width}, Args: []ir.Ref{ir.LineRef(0), ir.LineRef(2)}},
		},
		Outputs: []uint{2},
	}
	if err := p.Validate(-1, nil); err == nil {
		t.Fatal("expected acyclicity violation to be rejected")
	}
}

func TestPrgValidateRejectsArityMismatch(t *testing.T) {
	width := uint(8)
	lib := ir.NewOpLibrary().Add(addOp{width: width}, ir.Unbounded)
	p := &ir.Prg{
		Lib:     lib,
		InTypes: []ir.Ty{ir.BitVec(width)},
		Lines: []ir.Line{
			{Op: addOp{width: width}, Args: []ir.Ref{ir.LineRef(0)}},
		},
		Outputs: []uint{1},
	}
	if err := p.Validate(-1, nil); err == nil {
		t.Fatal("expected arity mismatch to be rejected")
	}
}

func TestPrgValidateEnforcesMaxConstsAndConstSet(t *testing.T) {
	width := uint(8)
	lib := ir.NewOpLibrary().Add(addOp{width: width}, ir.Unbounded)
	p := &ir.Prg{
		Lib:     lib,
		InTypes: []ir.Ty{ir.BitVec(width)},
		Lines: []ir.Line{
			{Op: addOp{width: width}, Args: []ir.Ref{ir.LineRef(0), ir.ConstRef(ir.BitVecValue(1, width))}},
		},
		Outputs: []uint{1},
	}
	if err := p.Validate(0, nil); err == nil {
		t.Fatal("expected max-consts violation to be rejected")
	}
	if err := p.Validate(-1, []ir.Value{ir.BitVecValue(2, width)}); err == nil {
		t.Fatal("expected const-set violation to be rejected")
	}
	if err := p.Validate(-1, []ir.Value{ir.BitVecValue(1, width)}); err != nil {
		t.Fatalf("expected const-set membership to pass, got %v", err)
	}
}

func TestPrgLiveLinesDetectsDeadCode(t *testing.T) {
	width := uint(8)
	op := addOp{width: width}
	lib := ir.NewOpLibrary().Add(op, ir.Unbounded)
	p := &ir.Prg{
		Lib:     lib,
		InTypes: []ir.Ty{ir.BitVec(width), ir.BitVec(width)},
		Lines: []ir.Line{
			{Op: op, Args: []ir.Ref{ir.LineRef(0), ir.LineRef(1)}}, // line 2: live (output)
			{Op: op, Args: []ir.Ref{ir.LineRef(0), ir.LineRef(0)}}, // line 3: dead
		},
		Outputs: []uint{2},
	}
	live := p.LiveLines()
	if !live[2] {
		t.Fatal("line 2 should be live (it's the output)")
	}
	if live[3] {
		t.Fatal("line 3 should be dead (nothing depends on it)")
	}
}
