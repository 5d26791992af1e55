package encoder

import (
	"fmt"

	"bvsynth/pkg/ir"
	"bvsynth/pkg/smt"
	"bvsynth/pkg/term"
)

// tableCap bounds how many (argument combination -> output) rows
// selectTable will materialize as nested Ite branches for one operator
// application. 2^16 keeps a binary bv8 operator (256*256 = 65536 rows)
// right at the edge; wider operators cannot be encoded, since the table is
// the encoder's only operator encoding (none of this module's benchmarks
// exceed bv8).
const tableCap = 1 << 16

// selectOperand builds the term selecting line i/slot s's operand value: its
// constant value if isConst is set, otherwise whichever earlier line's
// already-built value term operandRef points to. values holds every earlier
// global line's value term, values[0:len(values)] == lines [0,len(values)).
func (p *Problem) selectOperand(i, s int, values []term.Term) term.Term {
	if len(values) == 0 {
		// Structural() forces isConst=true here (ult(ref,0) is unsatisfiable),
		// so the non-const branch is unreachable; still needs a well-typed term.
		return p.constValTerm(i, s)
	}
	chain := values[len(values)-1]
	for k := len(values) - 2; k >= 0; k-- {
		chain = term.Ite(term.Eq(p.refTerm(i, s), p.refConst(uint(k))), values[k], chain)
	}
	return term.Ite(p.isConstTerm(i, s), p.constValTerm(i, s), chain)
}

// tableEncode builds op's result as a term, by enumerating every combination
// of op's (finite) operand domains and emitting a nested Ite selecting the
// precomputed Eval output for whichever combination args actually takes.
// This lets pkg/encoder support any ir.Op using only Eval — no operator
// needs to separately describe itself in term primitives — at the cost of a
// table sized to the operator's full input domain.
func tableEncode(op ir.Op, args []term.Term) (term.Term, error) {
	ins := op.InTypes()
	cards := make([]uint64, len(ins))
	total := uint64(1)
	for i, ty := range ins {
		c := ty.Cardinality()
		if c == 0 {
			return term.Term{}, fmt.Errorf("encoder: operator %q operand %d has an unenumerable domain (width too large)", op.Name(), i)
		}
		cards[i] = c
		total *= c
		if total > tableCap {
			return term.Term{}, fmt.Errorf("encoder: operator %q's input domain (%d rows) exceeds the table-encoding cap", op.Name(), total)
		}
	}

	type row struct {
		vals []ir.Value
		out  ir.Value
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
			out, err := op.Eval(vals)
			if err != nil {
				return fmt.Errorf("encoder: tabulating %q: %w", op.Name(), err)
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
		return term.Term{}, err
	}
	if len(rows) == 0 {
		return term.Term{}, fmt.Errorf("encoder: operator %q has an empty input domain", op.Name())
	}

	result := term.Const(rows[len(rows)-1].out)
	for i := len(rows) - 2; i >= 0; i-- {
		r := rows[i]
		var conds []term.Term
		for j, v := range r.vals {
			conds = append(conds, term.Eq(args[j], term.Const(v)))
		}
		result = term.Ite(term.And(conds...), term.Const(r.out), result)
	}
	return result, nil
}

func domainValue(ty ir.Ty, v uint64) ir.Value {
	switch ty.Kind {
	case ir.BoolKind:
		return ir.BoolValue(v != 0)
	case ir.BitVecKind:
		return ir.BitVecValue(v, ty.Width)
	default:
		return ir.EnumValue(v, ty.Width)
	}
}

// encodeLines builds every global line's value term under the shared control
// variables, given concrete input values: each input line is just its own
// constant, and each operator line is a nested Ite over every possible
// op_sort code, selecting that code's table-encoded (or "id" passthrough)
// result. Shared by RegisterSample (which asserts the trailing lines equal a
// concrete output vector) and RegisterRelationalSample (which hands the
// trailing lines to a Spec's own Instantiate as fresh output terms instead).
func (p *Problem) encodeLines(inputs []ir.Value) ([]term.Term, error) {
	values := make([]term.Term, 0, p.NumLines())
	for _, v := range inputs {
		values = append(values, term.Const(v))
	}

	card := p.sort.Card()
	for i := 0; i < p.Opts.Length; i++ {
		codeVals := make([]term.Term, card)
		for code := uint(0); code < card; code++ {
			arity := p.arityOf(code)
			args := make([]term.Term, arity)
			for s := 0; s < arity; s++ {
				args[s] = p.selectOperand(i, s, values)
			}
			if p.sort.IsID(code) {
				codeVals[code] = args[0]
				continue
			}
			name, _ := p.sort.NameOf(code)
			op, _ := p.Lib.Get(name)
			v, err := tableEncode(op, args)
			if err != nil {
				return nil, err
			}
			codeVals[code] = v
		}
		value := codeVals[card-1]
		for code := int(card) - 2; code >= 0; code-- {
			value = term.Ite(p.opEq(i, uint(code)), codeVals[code], value)
		}
		values = append(values, value)
	}
	return values, nil
}

func (p *Problem) checkSampleInputs(inputs []ir.Value) error {
	if len(inputs) != p.Opts.NumInputs {
		return fmt.Errorf("encoder: expected %d inputs, got %d", p.Opts.NumInputs, len(inputs))
	}
	for i, v := range inputs {
		if !v.Ty.Equals(p.bvTy) {
			return fmt.Errorf("encoder: input %d has type %s, want %s", i, v.Ty, p.bvTy)
		}
	}
	return nil
}

// RegisterSample builds the per-sample constraint for a deterministic,
// total spec: the symbolic program, interpreted line by line under the
// shared control variables, must map inputs to the given concrete outputs.
// The returned term is meant to be Assert-ed alongside Base() (and every
// other sample's per-sample term) in the same solver instance.
func (p *Problem) RegisterSample(inputs []ir.Value, outputs []ir.Value) (term.Term, error) {
	if err := p.checkSampleInputs(inputs); err != nil {
		return term.Term{}, err
	}
	if len(outputs) != p.Opts.NumOutputs {
		return term.Term{}, fmt.Errorf("encoder: expected %d outputs, got %d", p.Opts.NumOutputs, len(outputs))
	}

	values, err := p.encodeLines(inputs)
	if err != nil {
		return term.Term{}, err
	}

	var eqs []term.Term
	for idx, line := range p.OutputLines() {
		eqs = append(eqs, term.Eq(values[line], term.Const(outputs[idx])))
	}
	return term.And(eqs...), nil
}

// RegisterRelationalSample builds the per-sample constraint for a
// non-deterministic or partial spec: the sample-output constraint becomes
// "spec.precondition(ins, outs) => spec.body(ins, outs)", with outs bound to
// the symbolic program's own output-line terms rather than to one concrete
// answer — any program whose output satisfies the relation on this input is
// accepted, not just one that reproduces a single canonical value.
func (p *Problem) RegisterRelationalSample(inputs []ir.Value, inst term.SpecInstantiator) (term.Term, error) {
	if err := p.checkSampleInputs(inputs); err != nil {
		return term.Term{}, err
	}

	values, err := p.encodeLines(inputs)
	if err != nil {
		return term.Term{}, err
	}

	insTerms := make([]term.Term, len(inputs))
	for i, v := range inputs {
		insTerms[i] = term.Const(v)
	}
	outTerms := make([]term.Term, p.Opts.NumOutputs)
	for idx, line := range p.OutputLines() {
		outTerms[idx] = values[line]
	}

	precond, body := inst.Instantiate(insTerms, outTerms)
	return term.Implies(precond, body), nil
}

// RegisterSampleAuto dispatches to RegisterRelationalSample when spec
// describes its own relation via term.SpecInstantiator, falling back to
// ir.Witness + RegisterSample otherwise. This is the one entry point
// pkg/cegis and pkg/downscale use, so neither needs to know which shape a
// given benchmark's Spec actually is.
func (p *Problem) RegisterSampleAuto(spec ir.Spec, inputs []ir.Value) (term.Term, error) {
	if inst, ok := spec.(term.SpecInstantiator); ok {
		return p.RegisterRelationalSample(inputs, inst)
	}
	w, ok := spec.(ir.Witness)
	if !ok {
		return term.Term{}, fmt.Errorf("encoder: spec %T implements neither term.SpecInstantiator nor ir.Witness", spec)
	}
	outputs, err := w.Witness(inputs)
	if err != nil {
		return term.Term{}, err
	}
	return p.RegisterSample(inputs, outputs)
}

// Reconstruct decodes a satisfying Model into a concrete ir.Prg: for each
// line, which operator (or the reserved id) was chosen and the concrete
// operand references/constants for that operator's actual arity.
func (p *Problem) Reconstruct(model smt.Model) (*ir.Prg, error) {
	lines := make([]ir.Line, p.Opts.Length)
	for i := 0; i < p.Opts.Length; i++ {
		codeVal, ok := model.Eval(p.opVar[i])
		if !ok {
			return nil, fmt.Errorf("encoder: model assigns no value to op_var[%d]", i)
		}
		code := uint(codeVal.Uint())
		name, ok := p.sort.NameOf(code)
		if !ok {
			return nil, fmt.Errorf("encoder: model assigns op_var[%d] an out-of-range code %d", i, code)
		}
		var op ir.Op
		if p.sort.IsID(code) {
			op = ir.NewIdOp(p.bvTy)
		} else {
			op, _ = p.Lib.Get(name)
		}

		args := make([]ir.Ref, op.Arity())
		for s := range args {
			isC, ok := model.Eval(p.isConst[i][s])
			if !ok {
				return nil, fmt.Errorf("encoder: model assigns no value to is_const[%d][%d]", i, s)
			}
			if isC.Bool() {
				cv, ok := model.Eval(p.constVal[i][s])
				if !ok {
					return nil, fmt.Errorf("encoder: model assigns no value to const_val[%d][%d]", i, s)
				}
				args[s] = ir.ConstRef(cv)
				continue
			}
			rv, ok := model.Eval(p.operandRef[i][s])
			if !ok {
				return nil, fmt.Errorf("encoder: model assigns no value to operand_ref[%d][%d]", i, s)
			}
			args[s] = ir.LineRef(uint(rv.Uint()))
		}
		lines[i] = ir.Line{Op: op, Args: args}
	}

	inTypes := make([]ir.Ty, p.Opts.NumInputs)
	for i := range inTypes {
		inTypes[i] = p.bvTy
	}

	return &ir.Prg{
		Lib:     p.Lib,
		InTypes: inTypes,
		Lines:   lines,
		Outputs: p.OutputLines(),
	}, nil
}
