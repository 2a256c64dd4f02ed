// Package scev provides symbolic scalar evolution over Go SSA values.
//
// An Expr is one of a closed set of node types. Expressions are built through
// an Evolution, which interns them: two structurally equal expressions built
// by the same Evolution are the same pointer, so expressions can be compared
// and used as map keys directly.
package scev

import (
	"bytes"
	"fmt"
	"go/types"
	"strings"

	"github.com/nickng/polyscop/loop"
	"golang.org/x/tools/go/ssa"
)

// Expr is a symbolic scalar expression.
type Expr interface {
	String() string
	seq() int
	expr()
}

type node struct{ n int }

func (e *node) seq() int { return e.n }
func (*node) expr()      {}

// Constant is an integer constant.
type Constant struct {
	node
	Value int64
}

func (e *Constant) String() string { return fmt.Sprintf("%d", e.Value) }

// Unknown is an opaque value.
type Unknown struct {
	node
	Value ssa.Value
	name  string
}

// Name returns a name for the value usable as an identifier, or "" if the
// value has none.
func (e *Unknown) Name() string { return e.name }

// IsPointer returns true if the value is a pointer or a slice.
func (e *Unknown) IsPointer() bool { return isPointer(e.Value.Type()) }

func (e *Unknown) String() string { return "%" + e.name }

// SignExtend widens a signed integer to Bits bits.
type SignExtend struct {
	node
	Op   Expr
	Bits int
}

func (e *SignExtend) String() string { return fmt.Sprintf("(sext %s to i%d)", e.Op, e.Bits) }

// ZeroExtend widens an unsigned integer to Bits bits.
type ZeroExtend struct {
	node
	Op   Expr
	Bits int
}

func (e *ZeroExtend) String() string { return fmt.Sprintf("(zext %s to i%d)", e.Op, e.Bits) }

// Truncate narrows an integer to Bits bits.
type Truncate struct {
	node
	Op   Expr
	Bits int
}

func (e *Truncate) String() string { return fmt.Sprintf("(trunc %s to i%d)", e.Op, e.Bits) }

// Add is a sum of two or more operands.
type Add struct {
	node
	Ops []Expr
}

func (e *Add) String() string { return joinOps(e.Ops, " + ") }

// Mul is a product of two or more operands. A constant factor comes first.
type Mul struct {
	node
	Ops []Expr
}

func (e *Mul) String() string { return joinOps(e.Ops, " * ") }

// UDiv is an unsigned division.
type UDiv struct {
	node
	LHS, RHS Expr
}

func (e *UDiv) String() string { return fmt.Sprintf("(%s /u %s)", e.LHS, e.RHS) }

// SMax is the signed maximum of two or more operands.
type SMax struct {
	node
	Ops []Expr
}

func (e *SMax) String() string { return joinOps(e.Ops, " smax ") }

// UMax is the unsigned maximum of two or more operands.
type UMax struct {
	node
	Ops []Expr
}

func (e *UMax) String() string { return joinOps(e.Ops, " umax ") }

// AddRec is the affine recurrence Start + Step·k, where k counts the
// iterations of Loop.
type AddRec struct {
	node
	Start, Step Expr
	Loop        *loop.Info
}

func (e *AddRec) String() string {
	return fmt.Sprintf("{%s,+,%s}<%s>", e.Start, e.Step, e.Loop.NameStr())
}

// CouldNotCompute is the result of an analysis that failed.
type CouldNotCompute struct {
	node
}

func (e *CouldNotCompute) String() string { return "***COULDNOTCOMPUTE***" }

// Operands returns the direct sub-expressions of e.
func Operands(e Expr) []Expr {
	switch e := e.(type) {
	case *SignExtend:
		return []Expr{e.Op}
	case *ZeroExtend:
		return []Expr{e.Op}
	case *Truncate:
		return []Expr{e.Op}
	case *Add:
		return e.Ops
	case *Mul:
		return e.Ops
	case *UDiv:
		return []Expr{e.LHS, e.RHS}
	case *SMax:
		return e.Ops
	case *UMax:
		return e.Ops
	case *AddRec:
		return []Expr{e.Start, e.Step}
	}
	return nil
}

func joinOps(ops []Expr, sep string) string {
	var buf bytes.Buffer
	buf.WriteString("(")
	strs := make([]string, len(ops))
	for i, op := range ops {
		strs[i] = op.String()
	}
	buf.WriteString(strings.Join(strs, sep))
	buf.WriteString(")")
	return buf.String()
}

// rank orders operands of commutative expressions.
func rank(e Expr) int {
	switch e.(type) {
	case *Constant:
		return 0
	case *Unknown:
		return 1
	case *SignExtend, *ZeroExtend, *Truncate:
		return 2
	case *UDiv:
		return 3
	case *Mul:
		return 4
	case *Add:
		return 5
	case *SMax, *UMax:
		return 6
	case *AddRec:
		return 7
	}
	return 8
}

func isInteger(t types.Type) bool {
	b, ok := t.Underlying().(*types.Basic)
	return ok && b.Info()&types.IsInteger != 0
}

func isUnsigned(t types.Type) bool {
	b, ok := t.Underlying().(*types.Basic)
	return ok && b.Info()&types.IsUnsigned != 0
}

func isPointer(t types.Type) bool {
	switch t := t.Underlying().(type) {
	case *types.Pointer, *types.Slice:
		return true
	case *types.Basic:
		return t.Kind() == types.UnsafePointer
	}
	return false
}
