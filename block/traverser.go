// Package block provides traversal orders and the post-dominator tree for the
// basic blocks of a function.
package block

import (
	"golang.org/x/tools/go/ssa"
)

// TraverseEdges takes a Function and apply visit to each edge in breadth-first
// order, the first time its target block is reached. The entry block is
// visited with a nil from.
func TraverseEdges(fn *ssa.Function, visit func(from, to *ssa.BasicBlock)) {
	if len(fn.Blocks) == 0 {
		return
	}
	type Edge struct {
		From, To *ssa.BasicBlock
	}
	visited := make([]bool, len(fn.Blocks))
	queue := []Edge{{To: fn.Blocks[0]}}
	for len(queue) > 0 {
		e := queue[0]
		queue = queue[1:]
		if visited[e.To.Index] {
			continue
		}
		visited[e.To.Index] = true
		visit(e.From, e.To)
		for _, succ := range e.To.Succs {
			queue = append(queue, Edge{From: e.To, To: succ})
		}
	}
}

// Postorder returns the blocks reachable from the entry of fn in depth-first
// postorder, visiting successors in order.
func Postorder(fn *ssa.Function) []*ssa.BasicBlock {
	return postorder(fn, false)
}

func postorder(fn *ssa.Function, lastFirst bool) []*ssa.BasicBlock {
	if len(fn.Blocks) == 0 {
		return nil
	}
	var order []*ssa.BasicBlock
	visited := make([]bool, len(fn.Blocks))
	type frame struct {
		b    *ssa.BasicBlock
		next int
	}
	stack := []frame{{b: fn.Blocks[0]}}
	visited[0] = true
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next < len(top.b.Succs) {
			succ := top.b.Succs[top.next]
			if lastFirst {
				succ = top.b.Succs[len(top.b.Succs)-1-top.next]
			}
			top.next++
			if !visited[succ.Index] {
				visited[succ.Index] = true
				stack = append(stack, frame{b: succ})
			}
			continue
		}
		order = append(order, top.b)
		stack = stack[:len(stack)-1]
	}
	return order
}

func reversed(bs []*ssa.BasicBlock) []*ssa.BasicBlock {
	for i, j := 0, len(bs)-1; i < j; i, j = i+1, j-1 {
		bs[i], bs[j] = bs[j], bs[i]
	}
	return bs
}

// ReversePostorder returns the blocks reachable from the entry of fn in
// reverse postorder: every block comes before its successors except along
// back edges.
func ReversePostorder(fn *ssa.Function) []*ssa.BasicBlock {
	return reversed(postorder(fn, false))
}

// ProgramOrder is a reverse postorder that follows the source: the true
// branch of an If comes before the false branch, and a loop body comes
// before the code after the loop.
func ProgramOrder(fn *ssa.Function) []*ssa.BasicBlock {
	return reversed(postorder(fn, true))
}
