package scev

import (
	"github.com/nickng/polyscop/loop"
	"golang.org/x/tools/go/ssa"
)

// Region is the part of a function an expression is checked against.
type Region interface {
	Contains(b *ssa.BasicBlock) bool
	ContainsLoop(l *loop.Info) bool
}

type kind int

const (
	invalid kind = iota
	intKind      // Constant.
	paramKind    // Constant in the region.
	ivKind       // Depends on an induction variable of the region.
)

func (k kind) merge(o kind) kind {
	if k == invalid || o == invalid {
		return invalid
	}
	if o > k {
		return o
	}
	return k
}

type validator struct {
	r      Region
	base   ssa.Value
	params []Expr
	seen   map[Expr]bool
}

func (v *validator) addParam(e Expr) {
	if !v.seen[e] {
		v.seen[e] = true
		v.params = append(v.params, e)
	}
}

// opaque visits ops and, if they are all valid and none is an induction
// variable, makes e a single parameter instead of its operands.
func (v *validator) opaque(e Expr, ops ...Expr) kind {
	mark := len(v.params)
	k := intKind
	for _, op := range ops {
		k = k.merge(v.visit(op))
	}
	if k == invalid || k == ivKind {
		return invalid
	}
	for _, p := range v.params[mark:] {
		delete(v.seen, p)
	}
	v.params = v.params[:mark]
	v.addParam(e)
	return paramKind
}

func (v *validator) visit(e Expr) kind {
	switch e := e.(type) {
	case *Constant:
		return intKind

	case *Unknown:
		if v.base != nil && e.Value == v.base {
			return invalid
		}
		if b := DefBlock(e.Value); b != nil && v.r.Contains(b) {
			return invalid
		}
		v.addParam(e)
		return paramKind

	case *SignExtend:
		return v.visit(e.Op)

	case *ZeroExtend:
		return v.opaque(e, e.Op)
	case *Truncate:
		return v.opaque(e, e.Op)
	case *UDiv:
		return v.opaque(e, e.LHS, e.RHS)
	case *UMax:
		return v.opaque(e, e.Ops...)

	case *Add:
		k := intKind
		for _, op := range e.Ops {
			k = k.merge(v.visit(op))
		}
		return k

	case *SMax:
		k := intKind
		for _, op := range e.Ops {
			k = k.merge(v.visit(op))
		}
		return k

	case *Mul:
		k := intKind
		for _, op := range e.Ops {
			ok := v.visit(op)
			if ok == intKind {
				continue
			}
			if ok == invalid || k != intKind {
				return invalid
			}
			k = ok
		}
		return k

	case *AddRec:
		if _, ok := e.Step.(*Constant); !ok {
			return invalid
		}
		if !v.r.ContainsLoop(e.Loop) {
			// The recurrence is fixed for the whole region.
			mark := len(v.params)
			start := v.visit(e.Start)
			if start == invalid || start == ivKind {
				return invalid
			}
			for _, p := range v.params[mark:] {
				delete(v.seen, p)
			}
			v.params = v.params[:mark]
			v.addParam(e)
			return paramKind
		}
		start := v.visit(e.Start)
		if start == invalid {
			return invalid
		}
		return start.merge(ivKind)
	}
	return invalid
}

// IsAffineExpr returns true if e is an affine function of the induction
// variables of r and of values that are constant in r. base, if non-nil, is
// an address that must not appear in e.
func IsAffineExpr(r Region, e Expr, base ssa.Value) bool {
	v := &validator{r: r, base: base, seen: make(map[Expr]bool)}
	return v.visit(e) != invalid
}

// ParamsInAffineExpr returns the expressions that are constant in r and that
// e is an affine function of, in the order they appear. It returns nil if e
// is not affine in r.
func ParamsInAffineExpr(r Region, e Expr) []Expr {
	v := &validator{r: r, seen: make(map[Expr]bool)}
	if v.visit(e) == invalid {
		return nil
	}
	return v.params
}
