package term

// Instantiator is implemented by operators that can describe their own
// semantics directly as term combinators. Precond captures partiality — True()
// for a total operator, a real formula for one that isn't defined everywhere;
// body is the result term given the already-built argument terms. pkg/encoder
// does not consult this interface: it encodes every operator line with its
// table-based encoding, which enumerates the operator's finite input domain
// via ir.Op.Eval.
//
// Kept as a separate interface from ir.Op, rather than a method on ir.Op
// itself, since pkg/ir cannot import pkg/term without an import cycle
// (pkg/term already depends on pkg/ir for Ty/Value).
type Instantiator interface {
	Instantiate(args []Term) (precond, body Term)
}

// SpecInstantiator is the specification-level analog of Instantiator: a Spec
// that can describe its own input/output relation directly as term
// combinators, rather than relying on pkg/encoder's generic table-based
// fallback (which tabulates the spec's ir.Witness output over a finite
// domain). ins and outs are the already-built argument and
// fresh-output terms, in the order ir.Spec.InTypes/OutTypes declares; precond
// is True() for a total relation. A Spec implementing this is how
// non-deterministic or partial specifications (e.g. "any nonzero output is
// acceptable") enter the encoder at all — ir.Spec.Eval alone cannot express
// that shape.
//
// Kept in pkg/term rather than pkg/ir for the same import-cycle reason as
// Instantiator.
type SpecInstantiator interface {
	Instantiate(ins, outs []Term) (precond, body Term)
}
