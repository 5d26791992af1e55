package ir

import (
	"fmt"
	"strings"
)

// Ref is an operand reference within a Prg: either an earlier line's result
// (Line) or an inline constant (IsConst). Using a global line numbering
// (inputs occupy lines [0,NumInputs), operator lines occupy
// [NumInputs,NumInputs+len(Lines))) means a Ref is always "earlier", which is
// what makes acyclicity a numbering invariant rather than something Prg must
// check by graph traversal.
type Ref struct {
	IsConst bool
	Line    uint   // valid iff !IsConst: index into the global line numbering
	Const   Value  // valid iff IsConst
}

// LineRef constructs a reference to an earlier program line (or input).
func LineRef(line uint) Ref { return Ref{Line: line} }

// ConstRef constructs an inline constant operand.
func ConstRef(v Value) Ref { return Ref{IsConst: true, Const: v} }

// Line is one operator application within a Prg's body: the operator and its
// operand references, in order.
type Line struct {
	Op   Op
	Args []Ref
}

// Prg is a straight-line program over an OpLibrary: a fixed number of typed
// inputs followed by a sequence of operator lines, each consuming only
// earlier lines (inputs or prior operator results) or inline constants, with
// a designated subsequence of lines as outputs.
type Prg struct {
	Lib       *OpLibrary
	InTypes   []Ty
	Lines     []Line
	// Outputs names which global line indices (>= len(InTypes)) are the
	// program's outputs, in order.
	Outputs []uint
}

// NumInputs is the count of input lines occupying the start of the global
// line numbering.
func (p *Prg) NumInputs() int { return len(p.InTypes) }

// NumLines is the count of operator lines (excluding inputs).
func (p *Prg) NumLines() int { return len(p.Lines) }

// Len is the total count of global lines, inputs included.
func (p *Prg) Len() int { return p.NumInputs() + p.NumLines() }

// lineType returns the declared output sort of global line index idx (an
// input's declared type, or an operator line's OutType).
func (p *Prg) lineType(idx uint) (Ty, error) {
	n := uint(p.NumInputs())
	if idx < n {
		return p.InTypes[idx], nil
	}
	j := idx - n
	if int(j) >= len(p.Lines) {
		return Ty{}, fmt.Errorf("line reference %d out of range (program has %d lines)", idx, p.Len())
	}
	return p.Lines[j].Op.OutType(), nil
}

// Validate checks every structural invariant a well-formed Prg must satisfy:
// acyclicity (every Ref.Line is strictly less than its own line's global
// index), arity consistency (each line's Args length matches its Op's
// arity), operand/output well-typing, and — when maxConsts is non-negative —
// that the number of inline constants does not exceed it. constSet, if
// non-nil, additionally restricts which constant Values may appear inline
// (applied unconditionally).
func (p *Prg) Validate(maxConsts int, constSet []Value) error {
	n := uint(p.NumInputs())
	numConsts := 0

	for i, line := range p.Lines {
		global := n + uint(i)
		want := line.Op.InTypes()
		if len(line.Args) != len(want) {
			return &ErrArityMismatch{Op: line.Op.Name(), Want: len(want), Got: len(line.Args)}
		}
		for slot, ref := range line.Args {
			if ref.IsConst {
				numConsts++
				if !ref.Const.Ty.Equals(want[slot]) {
					return &ErrTypeMismatch{Op: line.Op.Name(), Slot: slot, Want: want[slot], Got: ref.Const.Ty}
				}
				if constSet != nil && !containsValue(constSet, ref.Const) {
					return fmt.Errorf("line %d operand %d: constant %s not in const_set", global, slot, ref.Const)
				}
				continue
			}
			if ref.Line >= global {
				return fmt.Errorf("line %d operand %d: reference to line %d is not acyclic (must be < %d)", global, slot, ref.Line, global)
			}
			ty, err := p.lineType(ref.Line)
			if err != nil {
				return err
			}
			if !ty.Equals(want[slot]) {
				return &ErrTypeMismatch{Op: line.Op.Name(), Slot: slot, Want: want[slot], Got: ty}
			}
		}
	}

	if maxConsts >= 0 && numConsts > maxConsts {
		return fmt.Errorf("program uses %d inline constants, exceeding the limit of %d", numConsts, maxConsts)
	}

	if len(p.Outputs) == 0 {
		return fmt.Errorf("program declares no outputs")
	}
	for _, o := range p.Outputs {
		if o < n {
			return fmt.Errorf("output line %d refers to an input, not a computed line", o)
		}
		if _, err := p.lineType(o); err != nil {
			return fmt.Errorf("output %w", err)
		}
	}

	return nil
}

func containsValue(set []Value, v Value) bool {
	for _, s := range set {
		if s.Equals(v) {
			return true
		}
	}
	return false
}

// Eval interprets the program on a concrete input vector, returning the
// values of its declared Outputs in order. Returns an error if any line's Op
// is partial and its Eval rejects the (by-construction well-typed)
// arguments it's fed.
func (p *Prg) Eval(inputs []Value) ([]Value, error) {
	if len(inputs) != p.NumInputs() {
		return nil, fmt.Errorf("expected %d inputs, got %d", p.NumInputs(), len(inputs))
	}
	vals := make([]Value, p.Len())
	copy(vals, inputs)

	n := uint(p.NumInputs())
	for i, line := range p.Lines {
		args := make([]Value, len(line.Args))
		for slot, ref := range line.Args {
			if ref.IsConst {
				args[slot] = ref.Const
			} else {
				args[slot] = vals[ref.Line]
			}
		}
		v, err := line.Op.Eval(args)
		if err != nil {
			return nil, fmt.Errorf("line %d (%s): %w", n+uint(i), line.Op.Name(), err)
		}
		vals[n+uint(i)] = v
	}

	outs := make([]Value, len(p.Outputs))
	for i, o := range p.Outputs {
		outs[i] = vals[o]
	}
	return outs, nil
}

// LiveLines computes the set of global line indices the program's outputs
// transitively depend on. A program with NumLines() lines but a smaller live
// set has dead code; tests use LiveLines to check for it independently of
// the encoder's no-dead-code rule.
func (p *Prg) LiveLines() map[uint]bool {
	live := make(map[uint]bool)
	var mark func(uint)
	n := uint(p.NumInputs())
	mark = func(idx uint) {
		if live[idx] {
			return
		}
		live[idx] = true
		if idx < n {
			return
		}
		for _, ref := range p.Lines[idx-n].Args {
			if !ref.IsConst {
				mark(ref.Line)
			}
		}
	}
	for _, o := range p.Outputs {
		mark(o)
	}
	return live
}

func (p *Prg) String() string {
	var b strings.Builder
	n := uint(p.NumInputs())
	for i := range p.InTypes {
		fmt.Fprintf(&b, "in%d : %s\n", i, p.InTypes[i])
	}
	for i, line := range p.Lines {
		args := make([]string, len(line.Args))
		for j, ref := range line.Args {
			if ref.IsConst {
				args[j] = ref.Const.String()
			} else {
				args[j] = refName(ref.Line, n)
			}
		}
		fmt.Fprintf(&b, "%s = %s(%s)\n", refName(n+uint(i), n), line.Op.Name(), strings.Join(args, ", "))
	}
	outs := make([]string, len(p.Outputs))
	for i, o := range p.Outputs {
		outs[i] = refName(o, n)
	}
	fmt.Fprintf(&b, "return %s\n", strings.Join(outs, ", "))
	return b.String()
}

func refName(idx, numInputs uint) string {
	if idx < numInputs {
		return fmt.Sprintf("in%d", idx)
	}
	return fmt.Sprintf("l%d", idx-numInputs)
}
