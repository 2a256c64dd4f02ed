// Package scop builds the polyhedral model of a region: the iteration
// domain, scattering and access relations of every statement, over a shared
// list of parameters.
//
// A Scop is built from the TempScop the tempscop package collected for the
// region. Expressions the model cannot express make New fail with an
// *UnsupportedError, and the region is abandoned as a whole.
package scop

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/nickng/polyscop/internal/logger"
	"github.com/nickng/polyscop/loop"
	"github.com/nickng/polyscop/poly"
	"github.com/nickng/polyscop/region"
	"github.com/nickng/polyscop/scev"
	"github.com/nickng/polyscop/tempscop"
	"github.com/pkg/errors"
	"golang.org/x/tools/go/ssa"
)

// Scop is the polyhedral model of a region.
type Scop struct {
	region *region.Region
	ri     *region.Info
	loops  *loop.Detector
	se     *scev.Evolution

	context      *poly.Set
	params       []scev.Expr
	paramIDs     map[scev.Expr]int
	maxLoopDepth int
	stmts        []*Stmt

	*logger.Logger
}

// Option configures a Scop before it is built.
type Option func(*Scop)

// WithLogger logs the construction to l.
func WithLogger(l *logger.Logger) Option {
	return func(s *Scop) { s.SetLogger(l) }
}

// New builds the Scop of the region of tmp.
func New(tmp *tempscop.TempScop, ri *region.Info, loops *loop.Detector, se *scev.Evolution, opts ...Option) (*Scop, error) {
	s := &Scop{
		region:       tmp.MaxRegion(),
		ri:           ri,
		loops:        loops,
		se:           se,
		paramIDs:     make(map[scev.Expr]int),
		maxLoopDepth: tmp.MaxLoopDepth(),
	}
	s.SetLogger(logger.Nop())
	for _, opt := range opts {
		opt(s)
	}
	if err := s.build(tmp); err != nil {
		return nil, errors.Wrapf(err, "cannot build scop %s", s.NameStr())
	}
	return s, nil
}

// SetLogger sets logger for Scop.
func (s *Scop) SetLogger(l *logger.Logger) {
	s.Logger = l.For(color.GreenString("scop"))
}

func (s *Scop) build(tmp *tempscop.TempScop) (err error) {
	defer tempscop.RecoverUnsupported(&err)
	s.context = poly.Universe(poly.NewParamSpace(nil))

	nest := loop.NewStack()
	scatter := make([]int64, s.maxLoopDepth+1)
	s.buildScop(tmp, s.region, nest, scatter)
	if !nest.IsEmpty() {
		unsupportedf("%d loops left open in %s", nest.Len(), s.NameStr())
	}
	s.RealignParams()
	s.Debugf("%s Built %s: %d statements, %d parameters",
		s.Module(), s.NameStr(), len(s.stmts), len(s.params))
	return nil
}

// buildScop creates a statement for every block of r with accesses, in
// program order. scatter holds the position of the next statement at each
// loop depth.
func (s *Scop) buildScop(tmp *tempscop.TempScop, r *region.Region, nest *loop.Stack, scatter []int64) {
	l := r.Loop()
	if l != nil {
		nest.Push(l)
	}
	depth := nest.Len()
	if depth >= len(scatter) {
		unsupportedf("loop %s nested deeper than %d", l.NameStr(), s.maxLoopDepth)
	}
	for _, e := range r.Elements() {
		if e.Region != nil {
			s.buildScop(tmp, e.Region, nest, scatter)
			continue
		}
		if tmp.AccessFunctions(e.Block) == nil {
			continue
		}
		inner, _ := nest.Peek()
		if got := s.loops.ForLoopAt(e.Block); got != inner {
			unsupportedf("%s is in loop %v, not in %v", region.BlockName(e.Block), got, inner)
		}
		st := newStmt(s, tmp, r, e.Block, nest.Slice(), scatter)
		s.stmts = append(s.stmts, st)
		s.Debugf("%s Statement %s at %v", s.Module(), st.BaseName(), st.scatter)
		scatter[depth]++
	}
	if l == nil {
		return
	}
	scatter[depth] = 0
	nest.Pop()
	scatter[depth-1]++
}

// Func returns the function of the Scop.
func (s *Scop) Func() *ssa.Function {
	if s.ri == nil {
		return nil
	}
	return s.ri.Func()
}

// Region returns the region of the Scop.
func (s *Scop) Region() *region.Region { return s.region }

// SE returns the scalar evolution the Scop was built with.
func (s *Scop) SE() *scev.Evolution { return s.se }

// Context returns a copy of the constraints on the parameters.
func (s *Scop) Context() *poly.Set { return s.context.Copy() }

// SetContext replaces the constraints on the parameters.
func (s *Scop) SetContext(ctx *poly.Set) {
	s.context = ctx.AlignParams(s.ParamSpace())
}

// Params returns the parameters in id order.
func (s *Scop) Params() []scev.Expr {
	ps := make([]scev.Expr, len(s.params))
	copy(ps, s.params)
	return ps
}

// NumParams returns the number of parameters.
func (s *Scop) NumParams() int { return len(s.params) }

// AddParams adds the expressions of ps that are not parameters yet, with
// the next ids.
func (s *Scop) AddParams(ps []scev.Expr) {
	for _, p := range ps {
		if _, ok := s.paramIDs[p]; ok {
			continue
		}
		s.paramIDs[p] = len(s.params)
		s.params = append(s.params, p)
	}
}

// IDForParam returns the dimension ID of parameter p, named after the value
// of p. It returns false if p is not a parameter.
func (s *Scop) IDForParam(p scev.Expr) (poly.ID, bool) {
	id, ok := s.paramIDs[p]
	if !ok {
		return poly.ID{}, false
	}
	var name string
	if u, ok := p.(*scev.Unknown); ok {
		name = u.Name()
	}
	if name == "" || strings.HasPrefix(name, "p_") {
		name = fmt.Sprintf("p_%d", id)
	}
	return poly.ID{Name: islName(name), Ref: p}, true
}

// ParamSpace returns the parameter space of the context.
func (s *Scop) ParamSpace() poly.Space { return s.context.Space() }

// RealignParams expresses the context and every domain, scattering and
// access relation over the parameters of the Scop, in id order.
func (s *Scop) RealignParams() {
	ids := make([]poly.ID, len(s.params))
	for i, p := range s.params {
		ids[i], _ = s.IDForParam(p)
	}
	s.context = s.context.AlignParams(poly.NewParamSpace(ids))
	for _, st := range s.stmts {
		st.realignParams()
	}
}

// MaxLoopDepth returns the deepest loop nesting in the Scop.
func (s *Scop) MaxLoopDepth() int { return s.maxLoopDepth }

// NumScattering returns the number of scattering dimensions of every
// statement.
func (s *Scop) NumScattering() int { return 2*s.maxLoopDepth + 1 }

// Stmts returns the statements in program order.
func (s *Scop) Stmts() []*Stmt {
	stmts := make([]*Stmt, len(s.stmts))
	copy(stmts, s.stmts)
	return stmts
}

// Domains returns a copy of the domain of every statement.
func (s *Scop) Domains() []*poly.Set {
	doms := make([]*poly.Set, len(s.stmts))
	for i, st := range s.stmts {
		doms[i] = st.Domain()
	}
	return doms
}

// NameStr returns the name of the region of the Scop.
func (s *Scop) NameStr() string { return s.region.NameStr() }

// Print writes the context, the parameters and the statements.
func (s *Scop) Print(w io.Writer) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%4sContext:\n%4s%s\n", "", "", s.context)
	for i, p := range s.params {
		fmt.Fprintf(&buf, "%4sp%d: %s\n", "", i, p)
	}
	fmt.Fprintf(&buf, "%4sStatements {\n", "")
	for _, st := range s.stmts {
		buf.WriteString("    ")
		st.Print(&buf)
	}
	fmt.Fprintf(&buf, "%4s}\n", "")
	buf.WriteTo(w)
}
