package loop

import (
	"bytes"
	"fmt"
	"go/token"
	"sort"

	"golang.org/x/tools/go/ssa"
)

// Info is a data structure to hold loop information,
// for tracking blocks, nesting, condition and index variable.
type Info struct {
	header  *ssa.BasicBlock
	latches []*ssa.BasicBlock
	blocks  map[*ssa.BasicBlock]bool

	parent   *Info
	children []*Info
	depth    int

	indexVar *ssa.Phi  // Variable holding the index (phi).
	cond     ssa.Value // Header condition.

	initVal int64 // initial value.
	stepVal int64 // step value.

	indexOK, condOK bool // Sanity check to ensure index/condition is valid.
}

// New returns the natural loop with the given header and latches.
func New(header *ssa.BasicBlock, latches []*ssa.BasicBlock) *Info {
	l := &Info{
		header:  header,
		latches: latches,
		blocks:  map[*ssa.BasicBlock]bool{header: true},
	}
	var worklist []*ssa.BasicBlock
	for _, b := range latches {
		if !l.blocks[b] {
			l.blocks[b] = true
			worklist = append(worklist, b)
		}
	}
	for len(worklist) > 0 {
		b := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		for _, pred := range b.Preds {
			if !l.blocks[pred] {
				l.blocks[pred] = true
				worklist = append(worklist, pred)
			}
		}
	}
	return l
}

// Header returns the loop header.
func (i *Info) Header() *ssa.BasicBlock { return i.header }

// Latch returns the first block with a back edge to the header.
func (i *Info) Latch() *ssa.BasicBlock { return i.latches[0] }

// Latches returns all blocks with a back edge to the header.
func (i *Info) Latches() []*ssa.BasicBlock { return i.latches }

// Contains returns true if b is part of the loop, nested loops included.
func (i *Info) Contains(b *ssa.BasicBlock) bool { return i.blocks[b] }

// ContainsLoop returns true if o is i or nested in i.
func (i *Info) ContainsLoop(o *Info) bool {
	return o != nil && i.blocks[o.header]
}

// Blocks returns the blocks of the loop in index order.
func (i *Info) Blocks() []*ssa.BasicBlock {
	blocks := make([]*ssa.BasicBlock, 0, len(i.blocks))
	for b := range i.blocks {
		blocks = append(blocks, b)
	}
	sort.Slice(blocks, func(x, y int) bool { return blocks[x].Index < blocks[y].Index })
	return blocks
}

// ExitingBlocks returns the blocks of the loop with a successor outside it.
func (i *Info) ExitingBlocks() []*ssa.BasicBlock {
	var exits []*ssa.BasicBlock
	for _, b := range i.Blocks() {
		for _, succ := range b.Succs {
			if !i.blocks[succ] {
				exits = append(exits, b)
				break
			}
		}
	}
	return exits
}

// Depth returns the nesting depth, 1 for an outermost loop.
func (i *Info) Depth() int { return i.depth }

// Parent returns the enclosing loop, or nil.
func (i *Info) Parent() *Info { return i.parent }

// Children returns the loops directly nested in i.
func (i *Info) Children() []*Info { return i.children }

// IndexVar returns the header phi updated by a constant step on every back
// edge, or nil.
func (i *Info) IndexVar() *ssa.Phi { return i.indexVar }

// InitVal returns the initial value of the index, if constant.
func (i *Info) InitVal() int64 { return i.initVal }

// StepVal returns the step of the index.
func (i *Info) StepVal() int64 { return i.stepVal }

// CanonicalIndex returns the index variable if it starts at 0 and steps by 1.
func (i *Info) CanonicalIndex() *ssa.Phi {
	if i.indexVar != nil && i.indexOK && i.initVal == 0 && i.stepVal == 1 {
		return i.indexVar
	}
	return nil
}

// Cond returns the condition of the header terminator, or nil.
func (i *Info) Cond() ssa.Value { return i.cond }

// ParamsOK returns true iff both index and cond are detected correctly.
func (i *Info) ParamsOK() bool {
	return i.indexVar != nil && i.indexOK && i.cond != nil && i.condOK
}

// extractIndex looks at the header phis to work out the index variable,
// initial value and increment. A phi used by the header condition is
// preferred.
func (i *Info) extractIndex() {
	for _, instr := range i.header.Instrs {
		phi, ok := instr.(*ssa.Phi)
		if !ok {
			break
		}
		var init ssa.Value
		var step int64
		valid := true
		for k, edge := range phi.Edges {
			if !i.blocks[i.header.Preds[k]] {
				if init != nil && init != edge {
					valid = false
				}
				init = edge
				continue
			}
			s, ok := stepOf(phi, edge)
			if !ok || (step != 0 && s != step) {
				valid = false
				continue
			}
			step = s
		}
		if !valid || step == 0 || init == nil {
			continue
		}
		if i.indexVar != nil && (i.cond == nil || !usesIndexVar(i.cond, phi) || usesIndexVar(i.cond, i.indexVar)) {
			continue
		}
		i.indexVar = phi
		i.stepVal = step
		i.initVal = 0
		i.indexOK = false
		if c, ok := init.(*ssa.Const); ok {
			if val, err := getIntConst(c); err == nil {
				i.initVal = val
				i.indexOK = true
			}
		}
	}
	if i.indexVar != nil && i.cond != nil && usesIndexVar(i.cond, i.indexVar) {
		i.condOK = true
	}
}

// stepOf matches edge against phi + c or phi - c.
func stepOf(phi *ssa.Phi, edge ssa.Value) (int64, bool) {
	binop, ok := edge.(*ssa.BinOp)
	if !ok {
		return 0, false
	}
	var other ssa.Value
	switch {
	case binop.X == phi:
		other = binop.Y
	case binop.Y == phi && binop.Op == token.ADD:
		other = binop.X
	default:
		return 0, false
	}
	c, ok := other.(*ssa.Const)
	if !ok {
		return 0, false
	}
	val, err := getIntConst(c)
	if err != nil {
		return 0, false
	}
	switch binop.Op {
	case token.ADD:
		return val, true
	case token.SUB:
		return -val, true
	}
	return 0, false
}

func (i *Info) extractCond() {
	if len(i.header.Instrs) == 0 {
		return
	}
	if ifelse, ok := i.header.Instrs[len(i.header.Instrs)-1].(*ssa.If); ok {
		i.cond = ifelse.Cond
	}
}

// NameStr returns the name of the loop, after its header.
func (i *Info) NameStr() string {
	return fmt.Sprintf("%s.%d", i.header.Comment, i.header.Index)
}

func (i *Info) String() string {
	var buf bytes.Buffer
	if i.indexVar != nil {
		buf.WriteString(fmt.Sprintf("%s = %d; ", i.indexVar.Name(), i.initVal))
		if i.cond != nil {
			buf.WriteString(fmt.Sprintf("%s; ", exprToString(i.cond)))
		}
		if i.stepVal > 0 {
			buf.WriteString(fmt.Sprintf("%s = %s + %d", i.indexVar.Name(), i.indexVar.Name(), i.stepVal))
		} else {
			buf.WriteString(fmt.Sprintf("%s = %s - %d", i.indexVar.Name(), i.indexVar.Name(), -i.stepVal))
		}
		return buf.String()
	}
	return "loop@" + i.NameStr()
}
