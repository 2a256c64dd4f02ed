package loop

import (
	"go/constant"
	"go/token"
	"io"
	"io/ioutil"
	"log"
	"sort"

	"github.com/pkg/errors"
	"golang.org/x/tools/go/ssa"
)

// ErrIdxNotInt is returned when a loop bound or step is not an integer
// constant.
var ErrIdxNotInt = errors.New("index is not int")

// Detector finds the natural loops of a function and answers block-to-loop
// queries.
type Detector struct {
	fn       *ssa.Function
	loops    []*Info // Top-level loops in header order.
	all      []*Info // All loops, outer loops before inner loops.
	byHeader map[*ssa.BasicBlock]*Info
	logger   *log.Logger

	blockScope map[*ssa.BasicBlock]*Info // Innermost loop of each block.
}

func NewDetector() *Detector {
	return &Detector{
		byHeader:   make(map[*ssa.BasicBlock]*Info),
		logger:     log.New(ioutil.Discard, "loopdetect: ", 0),
		blockScope: make(map[*ssa.BasicBlock]*Info),
	}
}

func (d *Detector) SetLog(w io.Writer) {
	d.logger.SetOutput(w)
}

// Detect finds the loops of fn, replacing any previous result.
func (d *Detector) Detect(fn *ssa.Function) {
	d.fn = fn
	d.loops, d.all = nil, nil
	d.byHeader = make(map[*ssa.BasicBlock]*Info)
	d.blockScope = make(map[*ssa.BasicBlock]*Info)
	if len(fn.Blocks) == 0 {
		return
	}

	latches := make(map[*ssa.BasicBlock][]*ssa.BasicBlock)
	var headers []*ssa.BasicBlock
	for _, b := range fn.Blocks {
		for _, succ := range b.Succs {
			if succ == fn.Recover {
				continue
			}
			if succ.Dominates(b) {
				if _, exists := latches[succ]; !exists {
					headers = append(headers, succ)
				}
				latches[succ] = append(latches[succ], b)
				d.logger.Printf("Detect: back edge #%d → #%d", b.Index, succ.Index)
			}
		}
	}
	sort.Slice(headers, func(i, j int) bool { return headers[i].Index < headers[j].Index })

	var loops []*Info
	for _, header := range headers {
		l := New(header, latches[header])
		loops = append(loops, l)
		d.byHeader[header] = l
	}

	// The parent of a loop is the smallest other loop containing its header.
	for _, child := range loops {
		var parent *Info
		for _, cand := range loops {
			if cand == child || !cand.blocks[child.header] {
				continue
			}
			if parent == nil || len(cand.blocks) < len(parent.blocks) {
				parent = cand
			}
		}
		if parent != nil {
			child.parent = parent
			parent.children = append(parent.children, child)
		} else {
			d.loops = append(d.loops, child)
		}
	}

	var walk func(l *Info, depth int)
	walk = func(l *Info, depth int) {
		l.depth = depth
		d.all = append(d.all, l)
		for b := range l.blocks {
			// Inner loops are visited later and overwrite their blocks.
			d.blockScope[b] = l
		}
		for _, c := range l.children {
			walk(c, depth+1)
		}
	}
	for _, l := range d.loops {
		walk(l, 1)
	}
	for _, l := range d.all {
		l.extractCond()
		l.extractIndex()
		d.logger.Printf("Detect: loop at #%d depth %d: %s", l.header.Index, l.depth, l.String())
	}
}

// Func returns the function analysed by the last Detect.
func (d *Detector) Func() *ssa.Function { return d.fn }

// ForLoopAt returns the innermost loop containing b, or nil.
func (d *Detector) ForLoopAt(b *ssa.BasicBlock) *Info {
	return d.blockScope[b]
}

// LoopWithHeader returns the loop whose header is b, or nil.
func (d *Detector) LoopWithHeader(b *ssa.BasicBlock) *Info {
	return d.byHeader[b]
}

// Loops returns the top-level loops in header order.
func (d *Detector) Loops() []*Info { return d.loops }

// AllLoops returns every loop, each loop before the loops nested in it.
func (d *Detector) AllLoops() []*Info { return d.all }

// getIntConst is a helper function to extract constant int value.
func getIntConst(c *ssa.Const) (int64, error) {
	if !c.IsNil() && c.Value.Kind() == constant.Int {
		return c.Int64(), nil
	}
	return 0, ErrIdxNotInt
}

// usesIndexVar checks if the cond expression involves index.
func usesIndexVar(cond, index ssa.Value) bool {
	switch cond := cond.(type) {
	case *ssa.BinOp:
		return usesIndexVar(cond.X, index) || usesIndexVar(cond.Y, index)

	case *ssa.UnOp:
		if cond.Op == token.MUL { // A load is opaque.
			return false
		}
		return usesIndexVar(cond.X, index)

	default:
		return cond == index
	}
}
