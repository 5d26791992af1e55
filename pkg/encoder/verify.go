package encoder

import (
	"context"
	"fmt"
	"time"

	"bvsynth/pkg/ir"
	"bvsynth/pkg/smt"
	"bvsynth/pkg/term"
)

// EncodeProgram builds each line of a concrete candidate program as a term
// over fresh symbolic inputs, reusing tableEncode (already generic over any
// finite-domain ir.Op) for each operator line. Unlike RegisterSample, prg's
// structure — which operator, which operand refs/consts — is already fixed,
// so there is no op_sort/is_const/const_val enumeration here: just a direct
// line-by-line term build mirroring ir.Prg.Eval, but over symbolic rather
// than concrete inputs.
func EncodeProgram(prg *ir.Prg, insTerms []term.Term) ([]term.Term, error) {
	if len(insTerms) != prg.NumInputs() {
		return nil, fmt.Errorf("encoder: expected %d inputs, got %d", prg.NumInputs(), len(insTerms))
	}
	values := make([]term.Term, 0, prg.Len())
	values = append(values, insTerms...)
	for _, line := range prg.Lines {
		args := make([]term.Term, len(line.Args))
		for s, ref := range line.Args {
			if ref.IsConst {
				args[s] = term.Const(ref.Const)
			} else {
				args[s] = values[ref.Line]
			}
		}
		if line.Op.Name() == "id" {
			values = append(values, args[0])
			continue
		}
		v, err := tableEncode(line.Op, args)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	outs := make([]term.Term, len(prg.Outputs))
	for i, o := range prg.Outputs {
		outs[i] = values[o]
	}
	return outs, nil
}

// EncodeSpec builds spec's output vector as a term over fresh symbolic
// inputs, for specs that describe themselves only functionally (ir.Witness,
// no term.SpecInstantiator): it enumerates spec's entire finite input
// domain, calls Witness on each row, and selects among the results with
// nested Ite chains — the same finite-domain table technique tableEncode
// uses for an ir.Op, generalized to a Spec's possibly-multi-output shape.
func EncodeSpec(witness ir.Witness, ins []ir.Ty, insTerms []term.Term) ([]term.Term, error) {
	if len(insTerms) != len(ins) {
		return nil, fmt.Errorf("encoder: expected %d inputs, got %d", len(ins), len(insTerms))
	}
	cards := make([]uint64, len(ins))
	total := uint64(1)
	for i, ty := range ins {
		c := ty.Cardinality()
		if c == 0 {
			return nil, fmt.Errorf("encoder: spec input %d has an unenumerable domain (width too large)", i)
		}
		cards[i] = c
		total *= c
		if total > tableCap {
			return nil, fmt.Errorf("encoder: spec's input domain (%d rows) exceeds the table-encoding cap", total)
		}
	}

	type row struct {
		vals []ir.Value
		out  []ir.Value
	}
	var rows []row
	combo := make([]uint64, len(ins))
	var gen func(idx int) error
	gen = func(idx int) error {
		if idx == len(ins) {
			vals := make([]ir.Value, len(ins))
			for i, ty := range ins {
				vals[i] = domainValue(ty, combo[i])
			}
			out, err := witness.Witness(vals)
			if err != nil {
				return fmt.Errorf("encoder: tabulating spec: %w", err)
			}
			rows = append(rows, row{vals: vals, out: out})
			return nil
		}
		for v := uint64(0); v < cards[idx]; v++ {
			combo[idx] = v
			if err := gen(idx + 1); err != nil {
				return err
			}
		}
		return nil
	}
	if err := gen(0); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("encoder: spec has an empty input domain")
	}

	numOuts := len(rows[0].out)
	outs := make([]term.Term, numOuts)
	for o := 0; o < numOuts; o++ {
		result := term.Const(rows[len(rows)-1].out[o])
		for i := len(rows) - 2; i >= 0; i-- {
			r := rows[i]
			var conds []term.Term
			for j, v := range r.vals {
				conds = append(conds, term.Eq(insTerms[j], term.Const(v)))
			}
			result = term.Ite(term.And(conds...), term.Const(r.out[o]), result)
		}
		outs[o] = result
	}
	return outs, nil
}

// Verify checks a candidate program against spec the way a CEGIS verify step
// must: with a fresh solver and universally-bound inputs, assert the
// negation of "the program's output, on these inputs, satisfies the spec's
// relation" and check for a model. A fresh term.Context is used (not the
// encoder.Problem's own) so the query's variable set is exactly the spec's
// inputs, not dragged through the whole synthesis problem's control
// variables the way reusing the Problem's context would.
//
// On Unsat, prg is correct (counterexampleFound is false). On Sat, the
// model's binding of the fresh input variables is a genuine counterexample;
// its corresponding output (via ir.Witness, when available) is returned
// alongside it so the caller can feed both straight into a new sample.
func Verify(ctx context.Context, newSolver func(*term.Context) smt.Solver, timeout time.Duration, prg *ir.Prg, spec ir.Spec) (cexIn, cexOut []ir.Value, counterexampleFound bool, err error) {
	vctx := term.NewContext()
	ins := spec.InTypes()
	universal := make([]term.VarID, len(ins))
	insTerms := make([]term.Term, len(ins))
	for i, ty := range ins {
		id, t := vctx.NewVar(ty)
		universal[i] = id
		insTerms[i] = t
	}

	progOuts, err := EncodeProgram(prg, insTerms)
	if err != nil {
		return nil, nil, false, err
	}

	var precond, body term.Term
	if inst, isRelational := spec.(term.SpecInstantiator); isRelational {
		precond, body = inst.Instantiate(insTerms, progOuts)
	} else {
		w, isWitness := spec.(ir.Witness)
		if !isWitness {
			return nil, nil, false, fmt.Errorf("encoder: spec %T implements neither term.SpecInstantiator nor ir.Witness", spec)
		}
		specOuts, err := EncodeSpec(w, ins, insTerms)
		if err != nil {
			return nil, nil, false, err
		}
		var eqs []term.Term
		for i := range specOuts {
			eqs = append(eqs, term.Eq(progOuts[i], specOuts[i]))
		}
		precond, body = term.True(), term.And(eqs...)
	}

	solver := newSolver(vctx)
	if timeout > 0 {
		solver.SetTimeout(timeout)
	}
	status, model, err := solver.CheckForall(ctx, universal, term.Implies(precond, body))
	if err != nil {
		return nil, nil, false, err
	}
	if status == smt.Unknown {
		return nil, nil, false, fmt.Errorf("encoder: verification query returned unknown")
	}
	if status == smt.Unsat {
		return nil, nil, false, nil
	}

	in := make([]ir.Value, len(ins))
	for i, id := range universal {
		v, ok := model.Eval(id)
		if !ok {
			return nil, nil, false, fmt.Errorf("encoder: counterexample model assigns no value to input %d", i)
		}
		in[i] = v
	}

	var out []ir.Value
	if w, isWitness := spec.(ir.Witness); isWitness {
		out, err = w.Witness(in)
		if err != nil {
			return nil, nil, false, fmt.Errorf("encoder: spec rejected its own counterexample input: %w", err)
		}
	}
	return in, out, true, nil
}
