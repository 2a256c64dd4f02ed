package tempscop

import (
	"bytes"
	"fmt"
	"go/token"

	"github.com/nickng/polyscop/scev"
)

// Pred is an integer comparison predicate.
type Pred int

const (
	EQ Pred = iota
	NE
	SLT
	SLE
	SGT
	SGE
	ULT
	ULE
	UGT
	UGE
)

var predStr = [...]string{"==", "!=", "<", "<=", ">", ">=", "<u", "<=u", ">u", ">=u"}

func (p Pred) String() string {
	if int(p) < len(predStr) {
		return predStr[p]
	}
	return fmt.Sprintf("Pred(%d)", int(p))
}

// Inverse returns the predicate that holds exactly when p does not.
func (p Pred) Inverse() Pred {
	switch p {
	case EQ:
		return NE
	case NE:
		return EQ
	case SLT:
		return SGE
	case SLE:
		return SGT
	case SGT:
		return SLE
	case SGE:
		return SLT
	case ULT:
		return UGE
	case ULE:
		return UGT
	case UGT:
		return ULE
	case UGE:
		return ULT
	}
	return p
}

// IsUnsigned returns true for unsigned predicates.
func (p Pred) IsUnsigned() bool { return p >= ULT }

// predFor returns the predicate of a Go comparison operator.
func predFor(op token.Token, unsigned bool) (Pred, bool) {
	var p Pred
	switch op {
	case token.EQL:
		return EQ, true
	case token.NEQ:
		return NE, true
	case token.LSS:
		p = SLT
	case token.LEQ:
		p = SLE
	case token.GTR:
		p = SGT
	case token.GEQ:
		p = SGE
	default:
		return 0, false
	}
	if unsigned {
		p += ULT - SLT
	}
	return p, true
}

// Comparison is the condition LHS Pred RHS.
type Comparison struct {
	LHS, RHS scev.Expr
	Pred     Pred
}

func (c Comparison) String() string {
	return fmt.Sprintf("%s %s %s", c.LHS, c.Pred, c.RHS)
}

// BBCond is the conjunction of conditions for a block to execute.
type BBCond []Comparison

func (c BBCond) String() string {
	var buf bytes.Buffer
	for i, cmp := range c {
		if i > 0 {
			buf.WriteString(" && ")
		}
		buf.WriteString(cmp.String())
	}
	return buf.String()
}
