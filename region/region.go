// Package region builds the region tree of a function: the function body as
// the top-level region, with one nested region per natural loop.
package region

import (
	"bytes"
	"fmt"
	"io"

	"github.com/nickng/polyscop/block"
	"github.com/nickng/polyscop/loop"
	"golang.org/x/tools/go/ssa"
)

// Info is the region tree of a function together with the dominance queries
// over its blocks.
type Info struct {
	fn     *ssa.Function
	loops  *loop.Detector
	pdt    *block.PostDomTree
	top    *Region
	byLoop map[*loop.Info]*Region
}

// Element is a block or a sub-region, exactly one of which is set.
type Element struct {
	Block  *ssa.BasicBlock
	Region *Region
}

func (e Element) String() string {
	if e.Region != nil {
		return e.Region.NameStr()
	}
	return BlockName(e.Block)
}

// Region is a single-entry part of a function.
type Region struct {
	info     *Info
	entry    *ssa.BasicBlock
	exit     *ssa.BasicBlock
	parent   *Region
	children []*Region
	loop     *loop.Info
	blocks   map[*ssa.BasicBlock]bool
	elements []Element
}

// Build returns the region tree of fn. loops must have been detected on fn.
func Build(fn *ssa.Function, loops *loop.Detector) *Info {
	ri := &Info{
		fn:     fn,
		loops:  loops,
		pdt:    block.NewPostDomTree(fn),
		byLoop: make(map[*loop.Info]*Region),
	}
	order := block.ProgramOrder(fn)
	ri.top = &Region{info: ri, blocks: make(map[*ssa.BasicBlock]bool)}
	if len(fn.Blocks) > 0 {
		ri.top.entry = fn.Blocks[0]
	}
	for _, b := range order {
		ri.top.blocks[b] = true
	}
	for _, l := range loops.Loops() {
		ri.top.children = append(ri.top.children, ri.buildLoop(ri.top, l))
	}
	ri.top.collect(order)
	return ri
}

func (ri *Info) buildLoop(parent *Region, l *loop.Info) *Region {
	r := &Region{
		info:   ri,
		entry:  l.Header(),
		exit:   uniqueExit(l),
		parent: parent,
		loop:   l,
		blocks: make(map[*ssa.BasicBlock]bool),
	}
	for _, b := range l.Blocks() {
		r.blocks[b] = true
	}
	ri.byLoop[l] = r
	for _, c := range l.Children() {
		r.children = append(r.children, ri.buildLoop(r, c))
	}
	return r
}

// uniqueExit returns the only block outside l that l branches to, or nil.
func uniqueExit(l *loop.Info) *ssa.BasicBlock {
	var exit *ssa.BasicBlock
	for _, b := range l.ExitingBlocks() {
		for _, succ := range b.Succs {
			if l.Contains(succ) {
				continue
			}
			if exit != nil && exit != succ {
				return nil
			}
			exit = succ
		}
	}
	return exit
}

// collect orders the elements of r and its sub-regions after order, with
// each sub-region taking the place of its entry.
func (r *Region) collect(order []*ssa.BasicBlock) {
	for _, b := range order {
		if !r.blocks[b] {
			continue
		}
		if c := r.childFor(b); c != nil {
			if b == c.entry {
				r.elements = append(r.elements, Element{Region: c})
			}
			continue
		}
		r.elements = append(r.elements, Element{Block: b})
	}
	for _, c := range r.children {
		c.collect(order)
	}
}

func (r *Region) childFor(b *ssa.BasicBlock) *Region {
	for _, c := range r.children {
		if c.blocks[b] {
			return c
		}
	}
	return nil
}

// Func returns the function of the region tree.
func (ri *Info) Func() *ssa.Function { return ri.fn }

// Loops returns the loop analysis the regions are built on.
func (ri *Info) Loops() *loop.Detector { return ri.loops }

// TopLevel returns the region of the whole function.
func (ri *Info) TopLevel() *Region { return ri.top }

// RegionFor returns the innermost region containing b.
func (ri *Info) RegionFor(b *ssa.BasicBlock) *Region {
	if l := ri.loops.ForLoopAt(b); l != nil {
		return ri.byLoop[l]
	}
	return ri.top
}

// RegionForLoop returns the region of l, or nil.
func (ri *Info) RegionForLoop(l *loop.Info) *Region { return ri.byLoop[l] }

// Dominates returns true if every path from the entry to b goes through a.
func (ri *Info) Dominates(a, b *ssa.BasicBlock) bool { return a.Dominates(b) }

// IDom returns the immediate dominator of b, or nil for the entry.
func (ri *Info) IDom(b *ssa.BasicBlock) *ssa.BasicBlock { return b.Idom() }

// PostDominates returns true if every path from b to the function exit goes
// through a.
func (ri *Info) PostDominates(a, b *ssa.BasicBlock) bool { return ri.pdt.PostDominates(a, b) }

// Entry returns the entry block.
func (r *Region) Entry() *ssa.BasicBlock { return r.entry }

// Exit returns the block control reaches when leaving r, or nil when r is
// left by returning or through more than one block.
func (r *Region) Exit() *ssa.BasicBlock { return r.exit }

// Parent returns the enclosing region, or nil for the top level.
func (r *Region) Parent() *Region { return r.parent }

// Children returns the regions directly nested in r.
func (r *Region) Children() []*Region { return r.children }

// Loop returns the loop of a loop region, or nil.
func (r *Region) Loop() *loop.Info { return r.loop }

// IsTopLevel returns true for the region of the whole function.
func (r *Region) IsTopLevel() bool { return r.parent == nil }

// Elements returns the blocks and sub-regions of r in program order.
func (r *Region) Elements() []Element { return r.elements }

// Blocks returns every block of r, nested ones included, in program order.
func (r *Region) Blocks() []*ssa.BasicBlock {
	var blocks []*ssa.BasicBlock
	for _, e := range r.elements {
		if e.Region != nil {
			blocks = append(blocks, e.Region.Blocks()...)
			continue
		}
		blocks = append(blocks, e.Block)
	}
	return blocks
}

// Contains returns true if b is in r.
func (r *Region) Contains(b *ssa.BasicBlock) bool { return r.blocks[b] }

// ContainsLoop returns true if l is entirely in r.
func (r *Region) ContainsLoop(l *loop.Info) bool {
	return l != nil && r.blocks[l.Header()]
}

// OutermostLoopInRegion returns the outermost loop enclosing l that is still
// in r, or nil if l is not in r.
func (r *Region) OutermostLoopInRegion(l *loop.Info) *loop.Info {
	if !r.ContainsLoop(l) {
		return nil
	}
	for l.Parent() != nil && r.ContainsLoop(l.Parent()) {
		l = l.Parent()
	}
	return l
}

// NameStr returns "entry---exit" after the names of the boundary blocks.
func (r *Region) NameStr() string {
	exit := "FunctionExit"
	if r.exit != nil {
		exit = BlockName(r.exit)
	}
	return BlockName(r.entry) + "---" + exit
}

// Print writes the region tree rooted at r.
func (r *Region) Print(w io.Writer) {
	var buf bytes.Buffer
	r.print(&buf, 0)
	buf.WriteTo(w)
}

func (r *Region) print(buf *bytes.Buffer, indent int) {
	fmt.Fprintf(buf, "%*s[%s]\n", indent*2, "", r.NameStr())
	for _, e := range r.elements {
		if e.Region != nil {
			e.Region.print(buf, indent+1)
			continue
		}
		fmt.Fprintf(buf, "%*s%s\n", indent*2+2, "", BlockName(e.Block))
	}
}

// BlockName returns the name of b, its comment followed by its index.
func BlockName(b *ssa.BasicBlock) string {
	if b == nil {
		return ""
	}
	return fmt.Sprintf("%s.%d", b.Comment, b.Index)
}
