package scev

import (
	"go/token"

	"github.com/nickng/polyscop/loop"
	"golang.org/x/tools/go/ssa"
)

// BackedgeTakenCount returns the number of times the back edges of l are
// taken once the loop is entered, or CouldNotCompute.
//
// The count is computed for loops that leave only through the header, whose
// terminator compares a recurrence of l with step ±1 (any constant step when
// all operands are constant) against a value invariant in l.
func (ev *Evolution) BackedgeTakenCount(l *loop.Info) Expr {
	if e, ok := ev.btc[l]; ok {
		return e
	}
	e := ev.computeBTC(l)
	ev.btc[l] = e
	return e
}

func (ev *Evolution) computeBTC(l *loop.Info) Expr {
	exiting := l.ExitingBlocks()
	if len(exiting) != 1 || exiting[0] != l.Header() {
		return ev.cnc
	}
	h := l.Header()
	br, ok := h.Instrs[len(h.Instrs)-1].(*ssa.If)
	if !ok {
		return ev.cnc
	}
	cmp, ok := br.Cond.(*ssa.BinOp)
	if !ok || !isInteger(cmp.X.Type()) {
		return ev.cnc
	}
	op := cmp.Op
	switch {
	case l.Contains(h.Succs[0]) && !l.Contains(h.Succs[1]):
	case !l.Contains(h.Succs[0]) && l.Contains(h.Succs[1]):
		op = negate(op)
	default:
		return ev.cnc
	}

	lhs, rhs := ev.SCEV(cmp.X), ev.SCEV(cmp.Y)
	if _, ok := lhs.(*AddRec); !ok {
		lhs, rhs = rhs, lhs
		op = swap(op)
	}
	rec, ok := lhs.(*AddRec)
	if !ok || rec.Loop != l || !ev.IsLoopInvariant(rhs, l) {
		return ev.cnc
	}
	step, ok := rec.Step.(*Constant)
	if !ok {
		return ev.cnc
	}
	if c := ev.constantBTC(op, rec.Start, step.Value, rhs); c != nil {
		return c
	}

	s := rec.Start
	zero := ev.Constant(0)
	switch {
	case op == token.LSS && step.Value == 1:
		return ev.SMaxExpr(ev.Minus(rhs, s), zero)
	case op == token.LEQ && step.Value == 1:
		return ev.SMaxExpr(ev.AddExpr(ev.Minus(rhs, s), ev.Constant(1)), zero)
	case op == token.GTR && step.Value == -1:
		return ev.SMaxExpr(ev.Minus(s, rhs), zero)
	case op == token.GEQ && step.Value == -1:
		return ev.SMaxExpr(ev.AddExpr(ev.Minus(s, rhs), ev.Constant(1)), zero)
	case op == token.NEQ && (step.Value == 1 || step.Value == -1):
		return ev.MulExpr(ev.Minus(rhs, s), step)
	}
	return ev.cnc
}

// constantBTC counts iterations when start and bound are constants.
func (ev *Evolution) constantBTC(op token.Token, start Expr, step int64, bound Expr) Expr {
	s, ok1 := start.(*Constant)
	b, ok2 := bound.(*Constant)
	if !ok1 || !ok2 {
		return nil
	}
	d := b.Value - s.Value
	var n int64
	switch {
	case op == token.LSS && step > 0:
		n = ceilDiv(d, step)
	case op == token.LEQ && step > 0:
		n = floorDiv(d, step) + 1
	case op == token.GTR && step < 0:
		n = ceilDiv(-d, -step)
	case op == token.GEQ && step < 0:
		n = floorDiv(-d, -step) + 1
	case op == token.NEQ:
		if d%step != 0 || d/step < 0 {
			return ev.cnc
		}
		n = d / step
	default:
		return ev.cnc
	}
	if n < 0 {
		n = 0
	}
	return ev.Constant(n)
}

func negate(op token.Token) token.Token {
	switch op {
	case token.LSS:
		return token.GEQ
	case token.LEQ:
		return token.GTR
	case token.GTR:
		return token.LEQ
	case token.GEQ:
		return token.LSS
	case token.EQL:
		return token.NEQ
	case token.NEQ:
		return token.EQL
	}
	return op
}

func swap(op token.Token) token.Token {
	switch op {
	case token.LSS:
		return token.GTR
	case token.LEQ:
		return token.GEQ
	case token.GTR:
		return token.LSS
	case token.GEQ:
		return token.LEQ
	}
	return op
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

func ceilDiv(a, b int64) int64 {
	return -floorDiv(-a, b)
}

// SCEVAtScope returns the evolution of v as seen from inside l, or from
// outside every loop if l is nil. Recurrences of loops that do not enclose l
// are replaced by their value after the loop exits, when its trip count is
// known.
func (ev *Evolution) SCEVAtScope(v ssa.Value, l *loop.Info) Expr {
	return ev.AtScope(ev.SCEV(v), l)
}

// AtScope is SCEVAtScope for an expression.
func (ev *Evolution) AtScope(e Expr, l *loop.Info) Expr {
	switch e := e.(type) {
	case *Constant, *Unknown, *CouldNotCompute:
		return e
	case *AddRec:
		start := ev.AtScope(e.Start, l)
		if l != nil && e.Loop.ContainsLoop(l) {
			return ev.AddRecExpr(start, e.Step, e.Loop)
		}
		n := ev.BackedgeTakenCount(e.Loop)
		if isCNC(n) {
			return ev.AddRecExpr(start, e.Step, e.Loop)
		}
		return ev.AddExpr(start, ev.MulExpr(e.Step, n))
	case *SignExtend:
		return ev.SignExtendExpr(ev.AtScope(e.Op, l), e.Bits)
	case *ZeroExtend:
		return ev.ZeroExtendExpr(ev.AtScope(e.Op, l), e.Bits)
	case *Truncate:
		return ev.TruncateExpr(ev.AtScope(e.Op, l), e.Bits)
	case *UDiv:
		return ev.UDivExpr(ev.AtScope(e.LHS, l), ev.AtScope(e.RHS, l))
	case *Add:
		return ev.AddExpr(ev.atScopeAll(e.Ops, l)...)
	case *Mul:
		return ev.MulExpr(ev.atScopeAll(e.Ops, l)...)
	case *SMax:
		return ev.SMaxExpr(ev.atScopeAll(e.Ops, l)...)
	case *UMax:
		return ev.UMaxExpr(ev.atScopeAll(e.Ops, l)...)
	}
	return e
}

func (ev *Evolution) atScopeAll(ops []Expr, l *loop.Info) []Expr {
	out := make([]Expr, len(ops))
	for i, op := range ops {
		out[i] = ev.AtScope(op, l)
	}
	return out
}
