package term_test

import (
	"testing"

	"bvsynth/pkg/ir"
	"bvsynth/pkg/term"
)

func TestEvalArithmetic(t *testing.T) {
	ctx := term.NewContext()
	xID, x := ctx.NewVar(ir.BitVec(8))
	yID, y := ctx.NewVar(ir.BitVec(8))

	sum := term.Apply("add", ir.BitVec(8), x, y)
	env := term.Env{xID: ir.BitVecValue(200, 8), yID: ir.BitVecValue(100, 8)}

	v, err := sum.Eval(env)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if v.Uint() != 44 { // (200+100) mod 256
		t.Fatalf("expected 44, got %d", v.Uint())
	}
}

func TestEvalIteAndLogic(t *testing.T) {
	ctx := term.NewContext()
	cID, c := ctx.NewVar(ir.Bool())
	aID, a := ctx.NewVar(ir.BitVec(4))
	bID, b := ctx.NewVar(ir.BitVec(4))

	ite := term.Ite(c, a, b)

	v, err := ite.Eval(term.Env{cID: ir.BoolValue(true), aID: ir.BitVecValue(3, 4), bID: ir.BitVecValue(5, 4)})
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if v.Uint() != 3 {
		t.Fatalf("expected 3, got %d", v.Uint())
	}

	v, err = ite.Eval(term.Env{cID: ir.BoolValue(false), aID: ir.BitVecValue(3, 4), bID: ir.BitVecValue(5, 4)})
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if v.Uint() != 5 {
		t.Fatalf("expected 5, got %d", v.Uint())
	}
}

func TestContextMismatchDetected(t *testing.T) {
	c1 := term.NewContext()
	c2 := term.NewContext()

	_, x := c1.NewVar(ir.BitVec(8))
	_, y := c2.NewVar(ir.BitVec(8))

	mixed := term.Apply("add", ir.BitVec(8), x, y)
	if err := c1.Check(mixed); err == nil {
		t.Fatal("expected context mismatch to be detected")
	}
}

func TestVarsCollectsDistinctVariables(t *testing.T) {
	ctx := term.NewContext()
	xID, x := ctx.NewVar(ir.BitVec(8))
	_, y := ctx.NewVar(ir.BitVec(8))

	e := term.And(term.Eq(x, y), term.Eq(x, term.Const(ir.BitVecValue(1, 8))))
	vars := e.Vars()
	if len(vars) != 2 {
		t.Fatalf("expected 2 distinct variables, got %d", len(vars))
	}
	found := false
	for _, v := range vars {
		if v == xID {
			found = true
		}
	}
	if !found {
		t.Fatal("expected x's VarID among collected variables")
	}
}

func TestOpSortReservesIDAtZero(t *testing.T) {
	lib := ir.NewOpLibrary()
	lib.Add(stubOp{"add"}, ir.Unbounded)
	lib.Add(stubOp{"xor"}, ir.Unbounded)

	sort := term.NewOpSort(lib)
	if code, ok := sort.CodeOf("id"); !ok || code != 0 {
		t.Fatalf("expected id at code 0, got %d ok=%v", code, ok)
	}
	if sort.Card() != 3 {
		t.Fatalf("expected cardinality 3 (id, add, xor), got %d", sort.Card())
	}
	name, ok := sort.NameOf(1)
	if !ok || name != "add" {
		t.Fatalf("expected code 1 to name add, got %q ok=%v", name, ok)
	}
}

type stubOp struct{ name string }

func (s stubOp) Name() string          { return s.name }
func (s stubOp) InTypes() []ir.Ty      { return []ir.Ty{ir.BitVec(8), ir.BitVec(8)} }
func (s stubOp) OutType() ir.Ty        { return ir.BitVec(8) }
func (s stubOp) Arity() uint           { return 2 }
func (s stubOp) IsCommutative() bool   { return false }
func (s stubOp) IsDeterministic() bool { return true }
func (s stubOp) IsTotal() bool         { return true }
func (s stubOp) Eval(ins []ir.Value) (ir.Value, error) { return ins[0], nil }
