package term

import (
	"fmt"

	"bvsynth/pkg/ir"
)

// Env maps variables to concrethe values for evaluation. A nil Env is valid
// for a ground (variable-free) term.
type Env map[VarID]ir.Value

// Eval concretely evaluates t under env. Returns an error if t references a
// variable absent from env, or applies a primitive Apply names that isn't
// registered (see RegisterPrim) — both treated as a MalformedInput error
// rather than a panic, since a Term assembled by the encoder
// from solver-model data is exactly the kind of boundary where malformed
// input must be reported, not trusted.
func (t Term) Eval(env Env) (ir.Value, error) {
	switch t.kind {
	case KConst:
		return t.val, nil

	case KVar:
		v, ok := env[t.id]
		if !ok {
			return ir.Value{}, fmt.Errorf("term: no binding for variable %s", t.name)
		}
		return v, nil

	case KApply:
		if t.prim == "eq" {
			l, err := t.args[0].Eval(env)
			if err != nil {
				return ir.Value{}, err
			}
			r, err := t.args[1].Eval(env)
			if err != nil {
				return ir.Value{}, err
			}
			return ir.BoolValue(l.Equals(r)), nil
		}
		fn, ok := prims[t.prim]
		if !ok {
			return ir.Value{}, fmt.Errorf("term: unknown primitive %q", t.prim)
		}
		args := make([]ir.Value, len(t.args))
		for i, a := range t.args {
			v, err := a.Eval(env)
			if err != nil {
				return ir.Value{}, err
			}
			args[i] = v
		}
		return fn(t.ty, args)

	case KIte:
		c, err := t.args[0].Eval(env)
		if err != nil {
			return ir.Value{}, err
		}
		if c.Bool() {
			return t.args[1].Eval(env)
		}
		return t.args[2].Eval(env)

	case KAnd:
		for _, a := range t.args {
			v, err := a.Eval(env)
			if err != nil {
				return ir.Value{}, err
			}
			if !v.Bool() {
				return ir.BoolValue(false), nil
			}
		}
		return ir.BoolValue(true), nil

	case KOr:
		for _, a := range t.args {
			v, err := a.Eval(env)
			if err != nil {
				return ir.Value{}, err
			}
			if v.Bool() {
				return ir.BoolValue(true), nil
			}
		}
		return ir.BoolValue(false), nil

	case KNot:
		v, err := t.args[0].Eval(env)
		if err != nil {
			return ir.Value{}, err
		}
		return ir.BoolValue(!v.Bool()), nil

	default:
		return ir.Value{}, fmt.Errorf("term: unknown term kind %v", t.kind)
	}
}
