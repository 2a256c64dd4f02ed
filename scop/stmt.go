package scop

import (
	"bytes"
	"fmt"
	"io"

	"github.com/nickng/polyscop/loop"
	"github.com/nickng/polyscop/poly"
	"github.com/nickng/polyscop/region"
	"github.com/nickng/polyscop/tempscop"
	"golang.org/x/tools/go/ssa"
)

// IV is an induction variable of a statement.
type IV struct {
	Phi  *ssa.Phi // Index variable of Loop, nil if it has none.
	Loop *loop.Info
}

// Stmt is a block of a Scop with its iteration domain, its schedule and its
// accesses.
type Stmt struct {
	parent  *Scop
	block   *ssa.BasicBlock
	name    string
	ivs     []IV
	scatter []int64 // Position at each loop depth.

	domain     *poly.Set
	scattering *poly.Map
	accesses   []*MemoryAccess
	byInstr    map[ssa.Instruction]*MemoryAccess
}

func newStmt(parent *Scop, tmp *tempscop.TempScop, cur *region.Region, b *ssa.BasicBlock, nest []*loop.Info, scatter []int64) *Stmt {
	st := &Stmt{
		parent:  parent,
		block:   b,
		name:    "Stmt_" + islName(region.BlockName(b)),
		ivs:     make([]IV, len(nest)),
		scatter: append([]int64(nil), scatter[:len(nest)+1]...),
		byInstr: make(map[ssa.Instruction]*MemoryAccess),
	}
	for i, l := range nest {
		st.ivs[i] = IV{Phi: l.IndexVar(), Loop: l}
	}
	st.domain = st.buildDomain(tmp, cur)
	st.buildScattering()
	st.buildAccesses(tmp)
	return st
}

func (st *Stmt) buildDomain(tmp *tempscop.TempScop, cur *region.Region) *poly.Set {
	dom := poly.Universe(poly.NewSetSpace(nil, st.NumIterators()))
	dom = st.addLoopBounds(dom, tmp)
	dom = st.addConditions(dom, tmp, cur)
	return dom.SetTupleName(st.name)
}

// addLoopBounds bounds each dimension by 0 and the backedge-taken count of
// its loop: the header runs once more than the body.
func (st *Stmt) addLoopBounds(dom *poly.Set, tmp *tempscop.TempScop) *poly.Set {
	space := poly.NewSetSpace(nil, st.NumIterators())
	for i := range st.ivs {
		iv := poly.PwAffFromAff(poly.ZeroAff(space).SetCoefficient(poly.SetDim, i, 1))
		dom = dom.Intersect(iv.NonnegSet())
		ub := PwAff(st, tmp.LoopBound(st.LoopForDimension(i)))
		dom = dom.Intersect(iv.LeSet(ub))
	}
	return dom
}

// addConditions adds the conditions of the block, and of the entry of every
// region enclosing it up to the region of the Scop.
func (st *Stmt) addConditions(dom *poly.Set, tmp *tempscop.TempScop, cur *region.Region) *poly.Set {
	top := tmp.MaxRegion().Parent()
	branching := st.block
	for r := cur; r != top; r = r.Parent() {
		if branching != r.Entry() {
			for _, cmp := range tmp.BBCond(branching) {
				dom = dom.Intersect(st.buildConditionSet(cmp))
			}
		}
		branching = r.Entry()
	}
	return dom
}

func (st *Stmt) buildConditionSet(cmp tempscop.Comparison) *poly.Set {
	if cmp.Pred.IsUnsigned() {
		unsupportedf("unsigned comparison %s", cmp)
	}
	lhs, rhs := PwAff(st, cmp.LHS), PwAff(st, cmp.RHS)
	switch cmp.Pred {
	case tempscop.EQ:
		return lhs.EqSet(rhs)
	case tempscop.NE:
		return lhs.NeSet(rhs)
	case tempscop.SLT:
		return lhs.LtSet(rhs)
	case tempscop.SLE:
		return lhs.LeSet(rhs)
	case tempscop.SGT:
		return lhs.GtSet(rhs)
	case tempscop.SGE:
		return lhs.GeSet(rhs)
	}
	unsupportedf("comparison %s", cmp)
	return nil
}

// buildScattering interleaves the positions of the statement at each loop
// depth with its induction variables, and pads to the depth of the Scop.
func (st *Stmt) buildScattering() {
	n := st.NumIterators()
	dims := st.parent.NumScattering()
	m := poly.MapUniverse(poly.NewMapSpace(nil, n, dims)).
		SetTupleName(poly.In, st.name).
		SetTupleName(poly.Out, "scattering")
	for i := 0; i < n; i++ {
		m = m.Equate(2*i+1, i)
	}
	for i := 0; i <= n; i++ {
		m = m.FixOut(2*i, st.scatter[i])
	}
	for i := 2*n + 1; i < dims; i++ {
		m = m.FixOut(i, 0)
	}
	st.scattering = m.AlignParams(st.parent.ParamSpace())
}

func (st *Stmt) buildAccesses(tmp *tempscop.TempScop) {
	for _, acc := range tmp.AccessFunctions(st.block) {
		m := newMemoryAccess(acc.Access, acc.Instr, st)
		st.accesses = append(st.accesses, m)
		if _, ok := st.byInstr[acc.Instr]; !ok {
			st.byInstr[acc.Instr] = m
		}
	}
}

func (st *Stmt) realignParams() {
	space := st.parent.ParamSpace()
	for _, m := range st.accesses {
		m.realignParams()
	}
	st.domain = st.domain.AlignParams(space)
	st.scattering = st.scattering.AlignParams(space)
}

// Parent returns the Scop of st.
func (st *Stmt) Parent() *Scop { return st.parent }

// Block returns the block of st.
func (st *Stmt) Block() *ssa.BasicBlock { return st.block }

// BaseName returns the tuple name of st.
func (st *Stmt) BaseName() string { return st.name }

// NumIterators returns the number of loops around st in the Scop.
func (st *Stmt) NumIterators() int { return len(st.ivs) }

// NumParams returns the number of parameters of the domain.
func (st *Stmt) NumParams() int { return st.domain.NParams() }

// NumScattering returns the number of scattering dimensions.
func (st *Stmt) NumScattering() int { return st.scattering.NOut() }

// IVs returns the induction variables of st, outermost first.
func (st *Stmt) IVs() []IV {
	ivs := make([]IV, len(st.ivs))
	copy(ivs, st.ivs)
	return ivs
}

// IVForDimension returns the index variable of dimension i, which may be nil.
func (st *Stmt) IVForDimension(i int) *ssa.Phi { return st.ivs[i].Phi }

// LoopForDimension returns the loop of dimension i.
func (st *Stmt) LoopForDimension(i int) *loop.Info { return st.ivs[i].Loop }

func (st *Stmt) position(depth int) int64 {
	if depth < len(st.scatter) {
		return st.scatter[depth]
	}
	return 0
}

// Domain returns a copy of the iteration domain.
func (st *Stmt) Domain() *poly.Set { return st.domain.Copy() }

// Scattering returns a copy of the scattering function.
func (st *Stmt) Scattering() *poly.Map { return st.scattering.Copy() }

// SetScattering replaces the scattering function.
func (st *Stmt) SetScattering(m *poly.Map) { st.scattering = m }

// Accesses returns the accesses of st in instruction order.
func (st *Stmt) Accesses() []*MemoryAccess {
	accs := make([]*MemoryAccess, len(st.accesses))
	copy(accs, st.accesses)
	return accs
}

// AccessFor returns the first access of instr, or nil.
func (st *Stmt) AccessFor(instr ssa.Instruction) *MemoryAccess { return st.byInstr[instr] }

// Print writes the domain, scattering and accesses of st.
func (st *Stmt) Print(w io.Writer) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "\t%s\n", st.name)
	fmt.Fprintf(&buf, "%*sDomain :=\n%*s%s;\n", 12, "", 16, "", st.domain)
	fmt.Fprintf(&buf, "%*sScattering :=\n%*s%s;\n", 12, "", 16, "", st.scattering)
	for _, m := range st.accesses {
		m.Print(&buf)
	}
	buf.WriteTo(w)
}
