package tempscop

import (
	"go/constant"
	"go/token"
	"go/types"

	"github.com/fatih/color"
	"github.com/nickng/polyscop/internal/logger"
	"github.com/nickng/polyscop/loop"
	"github.com/nickng/polyscop/region"
	"github.com/nickng/polyscop/scev"
	"golang.org/x/tools/go/ssa"
)

// Collector builds TempScops for the regions of one function.
type Collector struct {
	ri    *region.Info
	loops *loop.Detector
	se    *scev.Evolution
	dl    DataLayout

	*logger.Logger
}

// New returns a Collector over the analyses of one function. A nil dl uses
// DefaultLayout.
func New(ri *region.Info, loops *loop.Detector, se *scev.Evolution, dl DataLayout) *Collector {
	if dl == nil {
		dl = DefaultLayout()
	}
	c := &Collector{ri: ri, loops: loops, se: se, dl: dl}
	c.SetLogger(logger.Nop())
	return c
}

// SetLogger sets logger for Collector.
func (c *Collector) SetLogger(l *logger.Logger) {
	c.Logger = l.For(color.YellowString("tmpscop"))
}

// Build collects the loop bounds, conditions and accesses of r.
func (c *Collector) Build(r *region.Region) (ts *TempScop, err error) {
	defer RecoverUnsupported(&err)
	ts = newTempScop(r)
	for _, b := range r.Blocks() {
		c.buildAccessFunctions(ts, r, b)
		c.buildCondition(ts, b, r.Entry())
	}
	c.buildLoopBounds(ts)
	c.Debugf("%s Built %s: max loop depth %d, %d non-trivial blocks",
		c.Module(), r.NameStr(), ts.maxLoopDepth, len(ts.accFuncs))
	return ts, nil
}

func (c *Collector) buildLoopBounds(ts *TempScop) {
	r := ts.r
	for _, b := range r.Blocks() {
		l := c.loops.ForLoopAt(b)
		if l == nil || !r.ContainsLoop(l) {
			continue
		}
		if _, ok := ts.loopBounds[l]; ok {
			continue
		}
		ts.loopBounds[l] = c.se.BackedgeTakenCount(l)
		c.Debugf("%s Loop %s: backedge-taken count %s", c.Module(), l.NameStr(), ts.loopBounds[l])

		ol := r.OutermostLoopInRegion(l)
		if depth := l.Depth() - ol.Depth() + 1; depth > ts.maxLoopDepth {
			ts.maxLoopDepth = depth
		}
	}
}

func (c *Collector) buildAccessFunctions(ts *TempScop, r *region.Region, b *ssa.BasicBlock) {
	var accs AccFuncs
	l := c.loops.ForLoopAt(b)
	for _, instr := range b.Instrs[:len(b.Instrs)-1] {
		switch instr := instr.(type) {
		case *ssa.UnOp:
			if instr.Op == token.MUL {
				accs = append(accs, AccessPair{c.buildIRAccess(instr.X, instr.Type(), Read, l, r), instr})
			}
		case *ssa.Store:
			accs = append(accs, AccessPair{c.buildIRAccess(instr.Addr, instr.Val.Type(), Write, l, r), instr})
			continue
		}
		v, ok := instr.(ssa.Value)
		if !ok {
			continue
		}
		if c.buildScalarDependences(ts, v, r) {
			// Used outside the block, so the block writes it.
			acc := &IRAccess{Kind: ScalarWrite, Base: v, Offset: c.se.Constant(0), ElemSize: 1, Affine: true}
			accs = append(accs, AccessPair{acc, instr})
		}
	}
	if len(accs) == 0 {
		return
	}
	ts.accFuncs[b] = append(ts.accFuncs[b], accs...)
}

func (c *Collector) buildIRAccess(ptr ssa.Value, t types.Type, kind AccessKind, l *loop.Info, r *region.Region) *IRAccess {
	fn := c.se.SCEVAtScope(ptr, l)
	base, ok := c.se.PointerBase(fn).(*scev.Unknown)
	if !ok {
		Unsupportedf("cannot find base pointer of %s", fn)
	}
	if b := scev.DefBlock(base.Value); b != nil && r.Contains(b) {
		Unsupportedf("base pointer %s is computed inside %s", base, r.NameStr())
	}
	off := c.se.Minus(fn, base)
	return &IRAccess{
		Kind:     kind,
		Base:     base.Value,
		Offset:   off,
		ElemSize: c.dl.StoreSize(t),
		Affine:   scev.IsAffineExpr(r, off, base.Value),
	}
}

// buildScalarDependences records a scalar read of v in every other block of
// r that needs v, and returns true if v is needed outside its own block.
func (c *Collector) buildScalarDependences(ts *TempScop, v ssa.Value, r *region.Region) bool {
	if c.CanSynthesize(v, r) {
		return false
	}
	refs := v.Referrers()
	if refs == nil {
		return false
	}
	def := v.(ssa.Instruction).Block()
	anyCrossStmtUse := false
	for _, user := range *refs {
		useBlock := user.Block()
		if useBlock == def {
			continue
		}
		if uv, ok := user.(ssa.Value); ok && c.CanSynthesize(uv, r) {
			continue
		}
		anyCrossStmtUse = true
		if !r.Contains(useBlock) {
			continue
		}
		if _, ok := user.(*ssa.Phi); ok {
			Unsupportedf("non-synthesizable phi %s in %s", user.(*ssa.Phi).Name(), r.NameStr())
		}
		acc := &IRAccess{Kind: ScalarRead, Base: v, Offset: c.se.Constant(0), ElemSize: 1, Affine: true}
		ts.accFuncs[useBlock] = append(ts.accFuncs[useBlock], AccessPair{acc, user})
	}
	return anyCrossStmtUse
}

// CanSynthesize returns true if v can be recomputed from the induction
// variables of r and values constant in r, so it needs no scalar access.
func (c *Collector) CanSynthesize(v ssa.Value, r *region.Region) bool {
	switch t := v.Type().Underlying().(type) {
	case *types.Basic:
		if t.Info()&types.IsInteger == 0 && t.Kind() != types.UnsafePointer {
			return false
		}
	case *types.Pointer, *types.Slice:
	default:
		return false
	}
	var l *loop.Info
	if b := scev.DefBlock(v); b != nil {
		l = c.loops.ForLoopAt(b)
	}
	e := c.se.SCEVAtScope(v, l)
	if _, ok := e.(*scev.CouldNotCompute); ok {
		return false
	}
	return scev.IsAffineExpr(r, e, nil)
}

// buildCondition walks up the dominator tree from b to entry and collects
// the branch conditions that decide whether b executes.
func (c *Collector) buildCondition(ts *TempScop, b, entry *ssa.BasicBlock) {
	var cond BBCond
	node := b
	for node != entry {
		cur := node
		node = c.ri.IDom(node)
		if node == nil {
			Unsupportedf("%s is not dominated by the region entry %s", region.BlockName(b), region.BlockName(entry))
		}
		if c.ri.PostDominates(cur, node) {
			continue
		}
		br, ok := node.Instrs[len(node.Instrs)-1].(*ssa.If)
		if !ok {
			// Only an If selects a successor. Return and Panic have none,
			// so they never dominate b.
			if _, jump := node.Instrs[len(node.Instrs)-1].(*ssa.Jump); jump {
				continue
			}
			Unsupportedf("terminator %s of %s", node.Instrs[len(node.Instrs)-1], region.BlockName(node))
		}
		// Is b on the else side of the branch?
		inverted := c.ri.Dominates(node.Succs[1], b)
		cond = append(BBCond{c.buildAffineCondition(br.Cond, inverted)}, cond...)
	}
	if len(cond) > 0 {
		ts.bbConds[b] = cond
	}
}

func (c *Collector) buildAffineCondition(v ssa.Value, inverted bool) Comparison {
	if k, ok := v.(*ssa.Const); ok && k.Value != nil && k.Value.Kind() == constant.Bool {
		// Always true is 0 <= 1, never true is 0 >= 1.
		lhs, rhs := c.se.Constant(0), c.se.Constant(1)
		if constant.BoolVal(k.Value) == !inverted {
			return Comparison{LHS: lhs, RHS: rhs, Pred: SLE}
		}
		return Comparison{LHS: lhs, RHS: rhs, Pred: SGE}
	}
	cmp, ok := v.(*ssa.BinOp)
	if !ok || !isInteger(cmp.X.Type()) {
		Unsupportedf("condition %s is not an integer comparison", v.Name())
	}
	unsigned := false
	if b, ok := cmp.X.Type().Underlying().(*types.Basic); ok {
		unsigned = b.Info()&types.IsUnsigned != 0
	}
	pred, ok := predFor(cmp.Op, unsigned)
	if !ok {
		Unsupportedf("condition %s", cmp)
	}
	if inverted {
		pred = pred.Inverse()
	}
	l := c.loops.ForLoopAt(cmp.Block())
	return Comparison{
		LHS:  c.se.SCEVAtScope(cmp.X, l),
		RHS:  c.se.SCEVAtScope(cmp.Y, l),
		Pred: pred,
	}
}

func isInteger(t types.Type) bool {
	b, ok := t.Underlying().(*types.Basic)
	return ok && b.Info()&types.IsInteger != 0
}
