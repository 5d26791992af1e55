// Package term provides the symbolic term representation used to describe
// operator and specification relations (their "(precondition, body)"
// pairs), and the building blocks the encoder composes into a full
// synthesis formula. It mirrors the sealed-type-switch style of go-corset's
// pkg/ir/term, generalized from a single prime field to the bit-vector/bool
// sorts this domain needs.
package term

import (
	"fmt"
	"strings"

	"bvsynth/pkg/ir"
)

// Kind identifies which case of the Term sum type a value represents.
type Kind uint8

const (
	// KConst is a literal value.
	KConst Kind = iota
	// KVar is a free variable (its value comes from an Env at evaluation time).
	KVar
	// KApply is the application of a named primitive (see prims.go) to zero
	// or more argument terms.
	KApply
	// KIte is "if cond then t else e".
	KIte
	// KAnd is n-ary logical conjunction.
	KAnd
	// KOr is n-ary logical disjunction.
	KOr
	// KNot is logical negation.
	KNot
)

// Term is an immutable symbolic expression, sealed over Kind.
type Term struct {
	kind Kind
	ty   ir.Ty
	val  ir.Value
	id   VarID
	name string
	prim string
	args []Term
}

// VarID uniquely identifies a free variable *within a single Context*.
// Mixing VarIDs allocated from different Contexts is the ContextMismatch
// error; see Context.Check.
type VarID struct {
	ctx uint64
	idx uint64
}

// Ty returns the sort this term evaluates to.
func (t Term) Ty() ir.Ty { return t.ty }

// Kind returns which case of the sum type this term is.
func (t Term) Kind() Kind { return t.kind }

// Const constructs a literal term.
func Const(v ir.Value) Term {
	return Term{kind: KConst, ty: v.Ty, val: v}
}

// Var constructs a reference to a free variable of the given id/type/name.
// The name is used only for String(); identity is carried entirely by id.
func Var(id VarID, ty ir.Ty, name string) Term {
	return Term{kind: KVar, ty: ty, id: id, name: name}
}

// VarOf is a convenience for building a Var term directly from a Context
// allocation (see Context.NewVar).
func VarOf(id VarID, ty ir.Ty) Term {
	return Var(id, ty, fmt.Sprintf("v%d_%d", id.ctx, id.idx))
}

// Apply constructs the application of a named primitive operator to the
// given arguments, with declared result type ty.  The primitive's arity and
// argument types are the caller's responsibility (enforced by ir.Op at a
// higher layer); Eval returns an error for a primitive name it does not
// know, and panics on an argument list the named primitive cannot take,
// since that indicates an encoder bug rather than a user-facing error.
func Apply(prim string, ty ir.Ty, args ...Term) Term {
	return Term{kind: KApply, ty: ty, prim: prim, args: args}
}

// Eq constructs an equality atom between two terms of the same type.
func Eq(l, r Term) Term {
	return Term{kind: KApply, ty: ir.Bool(), prim: "eq", args: []Term{l, r}}
}

// Ne constructs a disequality atom.
func Ne(l, r Term) Term {
	return Not(Eq(l, r))
}

// Ite constructs "if cond then t else e"; t and e must share a type.
func Ite(cond, t, e Term) Term {
	return Term{kind: KIte, ty: t.ty, args: []Term{cond, t, e}}
}

// And constructs n-ary logical conjunction; an empty And is true.
func And(args ...Term) Term {
	return Term{kind: KAnd, ty: ir.Bool(), args: args}
}

// Or constructs n-ary logical disjunction; an empty Or is false.
func Or(args ...Term) Term {
	return Term{kind: KOr, ty: ir.Bool(), args: args}
}

// Not constructs logical negation.
func Not(a Term) Term {
	return Term{kind: KNot, ty: ir.Bool(), args: []Term{a}}
}

// True is the constant boolean truth.
func True() Term { return Const(ir.BoolValue(true)) }

// False is the constant boolean falsehood.
func False() Term { return Const(ir.BoolValue(false)) }

// Implies constructs logical implication p => q as (!p || q).
func Implies(p, q Term) Term {
	return Or(Not(p), q)
}

// Args returns the sub-terms of an KApply/KIte/KAnd/KOr/KNot term.
func (t Term) Args() []Term { return t.args }

// Prim returns the primitive name of a KApply term.
func (t Term) Prim() string { return t.prim }

// VarID returns the variable identity of a KVar term.
func (t Term) VarID() VarID { return t.id }

// Value returns the literal payload of a KConst term.
func (t Term) Value() ir.Value { return t.val }

// Vars collects the set of distinct free variables occurring in this term.
func (t Term) Vars() []VarID {
	seen := make(map[VarID]bool)
	var out []VarID
	var walk func(Term)
	walk = func(u Term) {
		switch u.kind {
		case KVar:
			if !seen[u.id] {
				seen[u.id] = true
				out = append(out, u.id)
			}
		default:
			for _, a := range u.args {
				walk(a)
			}
		}
	}
	walk(t)
	return out
}

func (t Term) String() string {
	switch t.kind {
	case KConst:
		return t.val.String()
	case KVar:
		return t.name
	case KApply:
		parts := make([]string, len(t.args))
		for i, a := range t.args {
			parts[i] = a.String()
		}
		return fmt.Sprintf("(%s %s)", t.prim, strings.Join(parts, " "))
	case KIte:
		return fmt.Sprintf("(ite %s %s %s)", t.args[0], t.args[1], t.args[2])
	case KAnd:
		return joinLisp("and", t.args)
	case KOr:
		return joinLisp("or", t.args)
	case KNot:
		return fmt.Sprintf("(not %s)", t.args[0])
	default:
		return "?"
	}
}

func joinLisp(head string, args []Term) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}
	return fmt.Sprintf("(%s %s)", head, strings.Join(parts, " "))
}
