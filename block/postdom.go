package block

import (
	"golang.org/x/tools/go/ssa"
)

// PostDomTree is the post-dominator tree of a function.
//
// The root is a virtual exit joining every block without successors, so a
// block whose immediate post-dominator is the virtual exit reports nil.
type PostDomTree struct {
	fn    *ssa.Function
	ipdom []int // Index of the immediate post-dominator, exit for the virtual exit.
	order []int // Postorder number on the reversed graph, -1 if unreached.
}

// NewPostDomTree computes the post-dominator tree of fn.
func NewPostDomTree(fn *ssa.Function) *PostDomTree {
	n := len(fn.Blocks)
	exit := n
	t := &PostDomTree{fn: fn, ipdom: make([]int, n+1), order: make([]int, n+1)}
	for i := range t.order {
		t.order[i] = -1
		t.ipdom[i] = -1
	}

	// Reversed graph: the successors of the virtual exit are the blocks
	// without successors, and the successors of a block are its predecessors.
	rsuccs := func(i int) []int {
		var out []int
		if i == exit {
			for _, b := range fn.Blocks {
				if len(b.Succs) == 0 {
					out = append(out, b.Index)
				}
			}
			return out
		}
		for _, p := range fn.Blocks[i].Preds {
			out = append(out, p.Index)
		}
		return out
	}
	// Predecessors of block i on the reversed graph.
	rpreds := func(i int) []int {
		b := fn.Blocks[i]
		out := make([]int, 0, len(b.Succs)+1)
		for _, s := range b.Succs {
			out = append(out, s.Index)
		}
		if len(b.Succs) == 0 {
			out = append(out, exit)
		}
		return out
	}

	var po []int
	visited := make([]bool, n+1)
	var dfs func(int)
	dfs = func(i int) {
		visited[i] = true
		for _, s := range rsuccs(i) {
			if !visited[s] {
				dfs(s)
			}
		}
		t.order[i] = len(po)
		po = append(po, i)
	}
	dfs(exit)

	intersect := func(a, b int) int {
		for a != b {
			for t.order[a] < t.order[b] {
				a = t.ipdom[a]
			}
			for t.order[b] < t.order[a] {
				b = t.ipdom[b]
			}
		}
		return a
	}

	t.ipdom[exit] = exit
	for changed := true; changed; {
		changed = false
		for k := len(po) - 2; k >= 0; k-- {
			b := po[k]
			idom := -1
			for _, p := range rpreds(b) {
				if t.order[p] < 0 || t.ipdom[p] < 0 {
					continue
				}
				if idom < 0 {
					idom = p
				} else {
					idom = intersect(p, idom)
				}
			}
			if idom >= 0 && t.ipdom[b] != idom {
				t.ipdom[b] = idom
				changed = true
			}
		}
	}
	// Blocks that cannot reach an exit, such as the body of an endless loop.
	for i := 0; i < n; i++ {
		if t.ipdom[i] < 0 {
			t.ipdom[i] = exit
		}
	}
	return t
}

// IPostDom returns the immediate post-dominator of b, or nil if it is the
// virtual exit.
func (t *PostDomTree) IPostDom(b *ssa.BasicBlock) *ssa.BasicBlock {
	p := t.ipdom[b.Index]
	if p == len(t.fn.Blocks) {
		return nil
	}
	return t.fn.Blocks[p]
}

// PostDominates returns true if every path from b to the exit of the function
// passes through a. A block post-dominates itself.
func (t *PostDomTree) PostDominates(a, b *ssa.BasicBlock) bool {
	exit := len(t.fn.Blocks)
	for i := b.Index; ; i = t.ipdom[i] {
		if i == a.Index {
			return true
		}
		if i == exit {
			return false
		}
	}
}
