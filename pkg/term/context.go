package term

import (
	"errors"
	"fmt"

	"bvsynth/pkg/ir"
)

// ErrContextMismatch is returned when a Term built from one Context's
// variable allocations is evaluated, translated, or combined against another
// Context — reported explicitly rather than permitting silent VarID
// collisions across unrelated term universes.
var ErrContextMismatch = errors.New("term: context mismatch")

// Context is a term universe: the source of fresh VarIDs for one synthesis
// problem (one encoder instance, one CEGIS run). Two Contexts never produce
// equal VarIDs, so mixing terms from different Contexts is always detectable.
type Context struct {
	id   uint64
	next uint64
	// names records the declared type of every variable this Context has
	// allocated, for bounds/consistency checks (Contains, TypeOf).
	names map[uint64]ir.Ty
}

var contextCounter uint64

// NewContext allocates a fresh, empty term universe.
func NewContext() *Context {
	contextCounter++
	return &Context{id: contextCounter, names: make(map[uint64]ir.Ty)}
}

// NewVar allocates a fresh variable of the given sort and returns both its
// VarID and the Term referencing it.
func (c *Context) NewVar(ty ir.Ty) (VarID, Term) {
	id := VarID{ctx: c.id, idx: c.next}
	c.next++
	c.names[id.idx] = ty
	return id, VarOf(id, ty)
}

// AllVars returns every VarID this Context has allocated, in allocation
// order. Used by pkg/smt/fd to size its enumerative search over the full
// variable set of a query.
func (c *Context) AllVars() []VarID {
	out := make([]VarID, 0, len(c.names))
	for idx := uint64(0); idx < c.next; idx++ {
		if _, ok := c.names[idx]; ok {
			out = append(out, VarID{ctx: c.id, idx: idx})
		}
	}
	return out
}

// Contains reports whether id was allocated by this Context.
func (c *Context) Contains(id VarID) bool {
	if id.ctx != c.id {
		return false
	}
	_, ok := c.names[id.idx]
	return ok
}

// TypeOf returns the declared sort of a variable this Context allocated.
func (c *Context) TypeOf(id VarID) (ir.Ty, error) {
	if id.ctx != c.id {
		return ir.Ty{}, fmt.Errorf("%w: variable from context %d, expected %d", ErrContextMismatch, id.ctx, c.id)
	}
	ty, ok := c.names[id.idx]
	if !ok {
		return ir.Ty{}, fmt.Errorf("term: unknown variable %v in context %d", id, c.id)
	}
	return ty, nil
}

// Check walks t and returns ErrContextMismatch if any KVar subterm was not
// allocated from this Context. Call this at the boundary where a formula
// assembled from terms originating in multiple components is handed to
// pkg/encoder or pkg/smt, so a mismatched term universe is caught before it
// can silently produce a meaningless solver query.
func (c *Context) Check(t Term) error {
	for _, id := range t.Vars() {
		if !c.Contains(id) {
			return fmt.Errorf("%w: variable %v not allocated from this context", ErrContextMismatch, id)
		}
	}
	return nil
}
