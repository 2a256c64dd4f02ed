package tempscop

import (
	"bytes"
	"fmt"
	"io"

	"github.com/nickng/polyscop/loop"
	"github.com/nickng/polyscop/region"
	"github.com/nickng/polyscop/scev"
	"golang.org/x/tools/go/ssa"
)

// TempScop is what the collector found in a region.
type TempScop struct {
	r            *region.Region
	maxLoopDepth int

	loopBounds map[*loop.Info]scev.Expr
	bbConds    map[*ssa.BasicBlock]BBCond
	accFuncs   map[*ssa.BasicBlock]AccFuncs
}

func newTempScop(r *region.Region) *TempScop {
	return &TempScop{
		r:          r,
		loopBounds: make(map[*loop.Info]scev.Expr),
		bbConds:    make(map[*ssa.BasicBlock]BBCond),
		accFuncs:   make(map[*ssa.BasicBlock]AccFuncs),
	}
}

// MaxRegion returns the region the TempScop was built for.
func (t *TempScop) MaxRegion() *region.Region { return t.r }

// MaxLoopDepth returns the deepest loop nesting in the region, counted from
// the outermost loop in the region.
func (t *TempScop) MaxLoopDepth() int { return t.maxLoopDepth }

// LoopBound returns the backedge-taken count of l, which must be in the
// region.
func (t *TempScop) LoopBound(l *loop.Info) scev.Expr {
	e, ok := t.loopBounds[l]
	if !ok {
		Unsupportedf("no bound for loop %s", l.NameStr())
	}
	return e
}

// BBCond returns the conditions for b to execute from the region entry, or
// nil if b always executes.
func (t *TempScop) BBCond(b *ssa.BasicBlock) BBCond { return t.bbConds[b] }

// AccessFunctions returns the accesses of b, or nil if b has none.
func (t *TempScop) AccessFunctions(b *ssa.BasicBlock) AccFuncs { return t.accFuncs[b] }

// Print writes the accesses of every non-trivial block of the region.
func (t *TempScop) Print(w io.Writer) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Scop: %s, Max Loop Depth: %d\n", t.r.NameStr(), t.maxLoopDepth)
	for _, b := range t.r.Blocks() {
		accs, ok := t.accFuncs[b]
		if !ok {
			continue
		}
		fmt.Fprintf(&buf, "BB: %s\n", region.BlockName(b))
		if cond := t.bbConds[b]; len(cond) > 0 {
			fmt.Fprintf(&buf, "  Cond: %s\n", cond)
		}
		for _, acc := range accs {
			buf.WriteString("  ")
			acc.Access.Print(&buf)
		}
	}
	buf.WriteTo(w)
}
