package scop

import (
	"github.com/nickng/polyscop/poly"
	"github.com/nickng/polyscop/scev"
)

// affinator translates an expression over the iteration vector of one
// statement. Values fixed for the whole region become parameters of the
// Scop; values computed inside it are unsupported.
type affinator struct {
	s    *Scop
	stmt *Stmt
}

// PwAff returns e as a piecewise-affine function over the iteration vector of
// stmt and the parameters of its Scop. The values e is affine in are added to
// the parameters of the Scop first.
func PwAff(stmt *Stmt, e scev.Expr) *poly.PwAff {
	s := stmt.parent
	s.AddParams(scev.ParamsInAffineExpr(s.region, e))
	a := &affinator{s: s, stmt: stmt}
	return a.visit(e)
}

func (a *affinator) space(params ...poly.ID) poly.Space {
	return poly.NewSetSpace(params, a.stmt.NumIterators())
}

func (a *affinator) param(e scev.Expr) (*poly.PwAff, bool) {
	id, ok := a.s.IDForParam(e)
	if !ok {
		return nil, false
	}
	return poly.PwAffFromAff(poly.ZeroAff(a.space(id)).SetCoefficient(poly.Param, 0, 1)), true
}

func (a *affinator) visit(e scev.Expr) *poly.PwAff {
	if p, ok := a.param(e); ok {
		return p
	}
	switch e := e.(type) {
	case *scev.Constant:
		return poly.PwAffFromAff(poly.ZeroAff(a.space()).AddConstant(e.Value))

	case *scev.SignExtend:
		// Values are signed throughout.
		return a.visit(e.Op)

	case *scev.ZeroExtend, *scev.Truncate, *scev.UDiv, *scev.UMax:
		unsupportedf("unsigned or narrowing expression %s", e)

	case *scev.Add:
		sum := a.visit(e.Ops[0])
		for _, op := range e.Ops[1:] {
			sum = sum.Add(a.visit(op))
		}
		return sum

	case *scev.SMax:
		hi := a.visit(e.Ops[0])
		for _, op := range e.Ops[1:] {
			hi = hi.Max(a.visit(op))
		}
		return hi

	case *scev.Mul:
		prod := a.visit(e.Ops[0])
		for _, op := range e.Ops[1:] {
			var err error
			if prod, err = prod.Mul(a.visit(op)); err != nil {
				unsupportedf("%s: %v", e, err)
			}
		}
		return prod

	case *scev.AddRec:
		return a.visitAddRec(e)

	case *scev.Unknown:
		if b := scev.DefBlock(e.Value); b != nil && a.s.region.Contains(b) {
			unsupportedf("%s is computed inside %s", e, a.s.NameStr())
		}
		a.s.AddParams([]scev.Expr{e})
		p, _ := a.param(e)
		return p

	case *scev.CouldNotCompute:
		unsupportedf("expression could not be computed in %s", a.stmt.BaseName())
	}
	unsupportedf("expression %s", e)
	return nil
}

func (a *affinator) visitAddRec(e *scev.AddRec) *poly.PwAff {
	r := a.s.region
	if !r.ContainsLoop(e.Loop) {
		unsupportedf("%s recurs in loop %s outside %s", e, e.Loop.NameStr(), r.NameStr())
	}
	dim := e.Loop.Depth() - r.OutermostLoopInRegion(e.Loop).Depth()
	if dim >= a.stmt.NumIterators() || a.stmt.LoopForDimension(dim) != e.Loop {
		unsupportedf("%s is used outside loop %s in %s", e, e.Loop.NameStr(), a.stmt.BaseName())
	}
	start := a.visit(e.Start)
	step := a.visit(e.Step)
	iv := poly.PwAffFromAff(poly.ZeroAff(a.space()).SetCoefficient(poly.SetDim, dim, 1))
	inc, err := step.Mul(iv)
	if err != nil {
		unsupportedf("%s: %v", e, err)
	}
	return start.Add(inc)
}
