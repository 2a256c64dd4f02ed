package loop

import (
	"fmt"
	"go/constant"
	"go/token"

	"golang.org/x/tools/go/ssa"
)

// exprToString converts a conditional expression to string.
func exprToString(expr ssa.Value) string {
	switch expr := expr.(type) {
	case *ssa.Const:
		if !expr.IsNil() && expr.Value.Kind() == constant.Int {
			return fmt.Sprintf("%d", expr.Int64())
		}
		return expr.String() // not supported
	case *ssa.BinOp:
		switch expr.Op {
		case token.ADD, token.SUB, token.MUL, token.QUO, token.REM,
			token.EQL, token.LSS, token.GTR, token.NEQ, token.LEQ, token.GEQ,
			token.LAND, token.LOR:
			return fmt.Sprintf("(%s%s%s)", exprToString(expr.X), expr.Op, exprToString(expr.Y))
		default:
			return expr.Name() // not supported
		}
	case *ssa.UnOp:
		switch expr.Op {
		case token.SUB, token.NOT:
			return fmt.Sprintf("(%s%s)", expr.Op, exprToString(expr.X))
		default:
			return expr.Name() // not supported
		}
	case *ssa.Call:
		if b, ok := expr.Call.Value.(*ssa.Builtin); ok && b.Name() == "len" {
			return fmt.Sprintf("len(%s)", exprToString(expr.Call.Args[0]))
		}
		return expr.Name()
	default:
		return expr.Name() // not supported
	}
}
