package scev

import (
	"fmt"
	"go/constant"
	"go/token"
	"go/types"
	"runtime"
	"sort"
	"strings"

	"github.com/nickng/polyscop/loop"
	"golang.org/x/tools/go/ssa"
)

// Evolution computes and interns scalar evolutions for the values of one
// function.
type Evolution struct {
	fn    *ssa.Function
	loops *loop.Detector
	sizes types.Sizes

	next     int
	interned map[string]Expr
	unknowns map[interface{}]*Unknown
	cache    map[ssa.Value]Expr
	visiting map[ssa.Value]bool
	btc      map[*loop.Info]Expr
	cnc      *CouldNotCompute
}

// New returns the scalar evolution analysis of fn. loops must have been
// detected on fn. A nil sizes uses the gc sizes of the host architecture.
func New(fn *ssa.Function, loops *loop.Detector, sizes types.Sizes) *Evolution {
	if sizes == nil {
		sizes = types.SizesFor("gc", runtime.GOARCH)
	}
	ev := &Evolution{
		fn:       fn,
		loops:    loops,
		sizes:    sizes,
		interned: make(map[string]Expr),
		unknowns: make(map[interface{}]*Unknown),
		cache:    make(map[ssa.Value]Expr),
		visiting: make(map[ssa.Value]bool),
		btc:      make(map[*loop.Info]Expr),
	}
	ev.cnc = &CouldNotCompute{node{ev.seq()}}
	return ev
}

// Func returns the analysed function.
func (ev *Evolution) Func() *ssa.Function { return ev.fn }

// Loops returns the loop analysis the evolution is computed over.
func (ev *Evolution) Loops() *loop.Detector { return ev.loops }

// Sizes returns the type sizes used for address arithmetic.
func (ev *Evolution) Sizes() types.Sizes { return ev.sizes }

func (ev *Evolution) seq() int {
	ev.next++
	return ev.next
}

func (ev *Evolution) intern(key string, mk func(n node) Expr) Expr {
	if e, ok := ev.interned[key]; ok {
		return e
	}
	e := mk(node{ev.seq()})
	ev.interned[key] = e
	return e
}

func key(kind string, ops ...Expr) string {
	var b strings.Builder
	b.WriteString(kind)
	for _, op := range ops {
		fmt.Fprintf(&b, ",%d", op.seq())
	}
	return b.String()
}

// CouldNotCompute returns the failed-analysis marker.
func (ev *Evolution) CouldNotCompute() Expr { return ev.cnc }

// Constant returns the constant c.
func (ev *Evolution) Constant(c int64) Expr {
	return ev.intern(fmt.Sprintf("c%d", c), func(n node) Expr { return &Constant{node: n, Value: c} })
}

// unknownKey identifies values that always evaluate to the same thing.
// len and cap of the same value are one unknown wherever they are computed.
type builtinOf struct {
	name string
	arg  ssa.Value
}

func unknownKey(v ssa.Value) interface{} {
	if name, arg, ok := lenOrCap(v); ok {
		return builtinOf{name, arg}
	}
	return v
}

func lenOrCap(v ssa.Value) (string, ssa.Value, bool) {
	call, ok := v.(*ssa.Call)
	if !ok {
		return "", nil, false
	}
	b, ok := call.Call.Value.(*ssa.Builtin)
	if !ok || len(call.Call.Args) != 1 {
		return "", nil, false
	}
	switch b.Name() {
	case "len", "cap":
		return b.Name(), call.Call.Args[0], true
	}
	return "", nil, false
}

// Unknown returns the opaque expression for v.
func (ev *Evolution) Unknown(v ssa.Value) *Unknown {
	k := unknownKey(v)
	if u, ok := ev.unknowns[k]; ok {
		return u
	}
	u := &Unknown{node: node{ev.seq()}, Value: v, name: valueName(v)}
	ev.unknowns[k] = u
	return u
}

func valueName(v ssa.Value) string {
	if name, arg, ok := lenOrCap(v); ok {
		return name + "_" + valueName(arg)
	}
	return v.Name()
}

// DefBlock returns the block that determines where v is computed, or nil if
// v is the same everywhere in the function. The length of a value is
// computed where the value is.
func DefBlock(v ssa.Value) *ssa.BasicBlock {
	if _, arg, ok := lenOrCap(v); ok {
		return DefBlock(arg)
	}
	if instr, ok := v.(ssa.Instruction); ok {
		return instr.Block()
	}
	return nil
}

// SignExtendExpr returns e sign-extended to bits.
func (ev *Evolution) SignExtendExpr(e Expr, bits int) Expr {
	switch e := e.(type) {
	case *Constant, *CouldNotCompute:
		return e
	case *SignExtend:
		return ev.SignExtendExpr(e.Op, bits)
	}
	return ev.intern(key(fmt.Sprintf("sext%d", bits), e), func(n node) Expr {
		return &SignExtend{node: n, Op: e, Bits: bits}
	})
}

// ZeroExtendExpr returns e zero-extended to bits.
func (ev *Evolution) ZeroExtendExpr(e Expr, bits int) Expr {
	switch e := e.(type) {
	case *Constant:
		if e.Value >= 0 {
			return e
		}
	case *CouldNotCompute:
		return e
	}
	return ev.intern(key(fmt.Sprintf("zext%d", bits), e), func(n node) Expr {
		return &ZeroExtend{node: n, Op: e, Bits: bits}
	})
}

// TruncateExpr returns e truncated to bits.
func (ev *Evolution) TruncateExpr(e Expr, bits int) Expr {
	switch e := e.(type) {
	case *Constant:
		if bits >= 64 {
			return e
		}
		shift := uint(64 - bits)
		return ev.Constant(e.Value << shift >> shift)
	case *CouldNotCompute:
		return e
	}
	return ev.intern(key(fmt.Sprintf("trunc%d", bits), e), func(n node) Expr {
		return &Truncate{node: n, Op: e, Bits: bits}
	})
}

// UDivExpr returns the unsigned quotient a /u b.
func (ev *Evolution) UDivExpr(a, b Expr) Expr {
	if isCNC(a) || isCNC(b) {
		return ev.cnc
	}
	if c, ok := b.(*Constant); ok && c.Value == 1 {
		return a
	}
	ca, ok1 := a.(*Constant)
	cb, ok2 := b.(*Constant)
	if ok1 && ok2 && cb.Value != 0 {
		return ev.Constant(int64(uint64(ca.Value) / uint64(cb.Value)))
	}
	return ev.intern(key("udiv", a, b), func(n node) Expr { return &UDiv{node: n, LHS: a, RHS: b} })
}

// AddRecExpr returns the recurrence {start,+,step} of l. A zero step is
// just start.
func (ev *Evolution) AddRecExpr(start, step Expr, l *loop.Info) Expr {
	if isCNC(start) || isCNC(step) {
		return ev.cnc
	}
	if isZero(step) {
		return start
	}
	k := key(fmt.Sprintf("rec%p", l), start, step)
	return ev.intern(k, func(n node) Expr { return &AddRec{node: n, Start: start, Step: step, Loop: l} })
}

// AddExpr returns the canonical sum of ops.
func (ev *Evolution) AddExpr(ops ...Expr) Expr {
	var flat []Expr
	for _, op := range ops {
		if a, ok := op.(*Add); ok {
			flat = append(flat, a.Ops...)
			continue
		}
		flat = append(flat, op)
	}

	type term struct {
		e Expr
		c int64
	}
	type rec struct{ start, step Expr }
	var (
		cst      int64
		terms    []*term
		byExpr   = make(map[Expr]*term)
		recLoops []*loop.Info
		recs     = make(map[*loop.Info]*rec)
	)
	for _, op := range flat {
		switch op := op.(type) {
		case *CouldNotCompute:
			return op
		case *Constant:
			cst += op.Value
		case *AddRec:
			r, ok := recs[op.Loop]
			if !ok {
				recs[op.Loop] = &rec{op.Start, op.Step}
				recLoops = append(recLoops, op.Loop)
				continue
			}
			r.start = ev.AddExpr(r.start, op.Start)
			r.step = ev.AddExpr(r.step, op.Step)
		default:
			c, x := ev.splitCoef(op)
			if t, ok := byExpr[x]; ok {
				t.c += c
				continue
			}
			t := &term{e: x, c: c}
			byExpr[x] = t
			terms = append(terms, t)
		}
	}

	// Everything invariant in the innermost recurrence goes into its start.
	if len(recLoops) > 0 {
		inner := recLoops[0]
		for _, l := range recLoops[1:] {
			if l.Depth() > inner.Depth() {
				inner = l
			}
		}
		var absorbed []Expr
		if cst != 0 {
			absorbed = append(absorbed, ev.Constant(cst))
			cst = 0
		}
		var keep []*term
		for _, t := range terms {
			if t.c != 0 && ev.IsLoopInvariant(t.e, inner) {
				absorbed = append(absorbed, ev.scaled(t.c, t.e))
				continue
			}
			keep = append(keep, t)
		}
		terms = keep
		var keepLoops []*loop.Info
		for _, l := range recLoops {
			if l != inner && !inner.ContainsLoop(l) {
				r := recs[l]
				absorbed = append(absorbed, ev.AddRecExpr(r.start, r.step, l))
				continue
			}
			keepLoops = append(keepLoops, l)
		}
		recLoops = keepLoops
		if len(absorbed) > 0 {
			r := recs[inner]
			r.start = ev.AddExpr(append([]Expr{r.start}, absorbed...)...)
		}
	}

	var out []Expr
	if cst != 0 {
		out = append(out, ev.Constant(cst))
	}
	for _, t := range terms {
		if t.c != 0 {
			out = append(out, ev.scaled(t.c, t.e))
		}
	}
	collapsed := false
	for _, l := range recLoops {
		r := recs[l]
		e := ev.AddRecExpr(r.start, r.step, l)
		if _, ok := e.(*AddRec); !ok {
			collapsed = true
		}
		out = append(out, e)
	}
	if collapsed {
		return ev.AddExpr(out...)
	}
	switch len(out) {
	case 0:
		return ev.Constant(0)
	case 1:
		return out[0]
	}
	sortOps(out)
	return ev.intern(key("add", out...), func(n node) Expr { return &Add{node: n, Ops: out} })
}

// splitCoef separates the constant factor of e.
func (ev *Evolution) splitCoef(e Expr) (int64, Expr) {
	m, ok := e.(*Mul)
	if !ok {
		return 1, e
	}
	c, ok := m.Ops[0].(*Constant)
	if !ok {
		return 1, e
	}
	if len(m.Ops) == 2 {
		return c.Value, m.Ops[1]
	}
	rest := append([]Expr{}, m.Ops[1:]...)
	return c.Value, ev.intern(key("mul", rest...), func(n node) Expr { return &Mul{node: n, Ops: rest} })
}

func (ev *Evolution) scaled(c int64, e Expr) Expr {
	if c == 1 {
		return e
	}
	return ev.MulExpr(ev.Constant(c), e)
}

// MulExpr returns the canonical product of ops.
func (ev *Evolution) MulExpr(ops ...Expr) Expr {
	var (
		cst    int64 = 1
		others []Expr
	)
	var flatten func(ops []Expr)
	flatten = func(ops []Expr) {
		for _, op := range ops {
			switch op := op.(type) {
			case *Mul:
				flatten(op.Ops)
			case *Constant:
				cst *= op.Value
			default:
				others = append(others, op)
			}
		}
	}
	flatten(ops)
	for _, op := range others {
		if isCNC(op) {
			return ev.cnc
		}
	}
	if cst == 0 {
		return ev.Constant(0)
	}
	if len(others) == 0 {
		return ev.Constant(cst)
	}
	if len(others) == 1 {
		switch x := others[0].(type) {
		case *Add:
			if cst != 1 {
				dist := make([]Expr, len(x.Ops))
				for i, op := range x.Ops {
					dist[i] = ev.MulExpr(ev.Constant(cst), op)
				}
				return ev.AddExpr(dist...)
			}
		case *AddRec:
			if cst != 1 {
				c := ev.Constant(cst)
				return ev.AddRecExpr(ev.MulExpr(c, x.Start), ev.MulExpr(c, x.Step), x.Loop)
			}
		}
		if cst == 1 {
			return others[0]
		}
	}

	// A recurrence times factors invariant in its loop is a recurrence.
	var (
		rec     *AddRec
		factors []Expr
	)
	for _, op := range others {
		if r, ok := op.(*AddRec); ok && rec == nil {
			rec = r
			continue
		}
		factors = append(factors, op)
	}
	if rec != nil && len(factors) > 0 {
		invariant := true
		for _, f := range factors {
			if !ev.IsLoopInvariant(f, rec.Loop) {
				invariant = false
				break
			}
		}
		if invariant {
			f := ev.MulExpr(append([]Expr{ev.Constant(cst)}, factors...)...)
			return ev.AddRecExpr(ev.MulExpr(f, rec.Start), ev.MulExpr(f, rec.Step), rec.Loop)
		}
	}

	sortOps(others)
	out := others
	if cst != 1 {
		out = append([]Expr{ev.Constant(cst)}, others...)
	}
	return ev.intern(key("mul", out...), func(n node) Expr { return &Mul{node: n, Ops: out} })
}

// Minus returns a - b.
func (ev *Evolution) Minus(a, b Expr) Expr {
	return ev.AddExpr(a, ev.MulExpr(ev.Constant(-1), b))
}

// SMaxExpr returns the signed maximum of ops.
func (ev *Evolution) SMaxExpr(ops ...Expr) Expr {
	return ev.maxExpr("smax", ops, func(a, b int64) bool { return a > b },
		func(n node, ops []Expr) Expr { return &SMax{node: n, Ops: ops} })
}

// UMaxExpr returns the unsigned maximum of ops.
func (ev *Evolution) UMaxExpr(ops ...Expr) Expr {
	return ev.maxExpr("umax", ops, func(a, b int64) bool { return uint64(a) > uint64(b) },
		func(n node, ops []Expr) Expr { return &UMax{node: n, Ops: ops} })
}

func (ev *Evolution) maxExpr(kind string, ops []Expr, gt func(a, b int64) bool, mk func(node, []Expr) Expr) Expr {
	var (
		cst    *Constant
		others []Expr
		seen   = make(map[Expr]bool)
	)
	var flatten func(ops []Expr)
	flatten = func(ops []Expr) {
		for _, op := range ops {
			switch o := op.(type) {
			case *SMax:
				if kind == "smax" {
					flatten(o.Ops)
					continue
				}
			case *UMax:
				if kind == "umax" {
					flatten(o.Ops)
					continue
				}
			case *Constant:
				if cst == nil || gt(o.Value, cst.Value) {
					cst = o
				}
				continue
			case *CouldNotCompute:
				others = append(others, op)
				continue
			}
			if !seen[op] {
				seen[op] = true
				others = append(others, op)
			}
		}
	}
	flatten(ops)
	for _, op := range others {
		if isCNC(op) {
			return ev.cnc
		}
	}
	var out []Expr
	if cst != nil {
		out = append(out, cst)
	}
	out = append(out, others...)
	if len(out) == 1 {
		return out[0]
	}
	sortOps(out)
	return ev.intern(key(kind, out...), func(n node) Expr { return mk(n, out) })
}

func sortOps(ops []Expr) {
	sort.SliceStable(ops, func(i, j int) bool {
		ri, rj := rank(ops[i]), rank(ops[j])
		if ri != rj {
			return ri < rj
		}
		return ops[i].seq() < ops[j].seq()
	})
}

func isCNC(e Expr) bool {
	_, ok := e.(*CouldNotCompute)
	return ok
}

func isZero(e Expr) bool {
	c, ok := e.(*Constant)
	return ok && c.Value == 0
}

// IsLoopInvariant returns true if e has the same value in every iteration of
// l.
func (ev *Evolution) IsLoopInvariant(e Expr, l *loop.Info) bool {
	switch e := e.(type) {
	case *Constant:
		return true
	case *Unknown:
		b := DefBlock(e.Value)
		return b == nil || !l.Contains(b)
	case *AddRec:
		if e.Loop == l || l.ContainsLoop(e.Loop) {
			return false
		}
	case *CouldNotCompute:
		return false
	}
	for _, op := range Operands(e) {
		if !ev.IsLoopInvariant(op, l) {
			return false
		}
	}
	return true
}

// SCEV returns the scalar evolution of v.
func (ev *Evolution) SCEV(v ssa.Value) Expr {
	if e, ok := ev.cache[v]; ok {
		return e
	}
	if ev.visiting[v] {
		return ev.Unknown(v)
	}
	ev.visiting[v] = true
	e := ev.create(v)
	delete(ev.visiting, v)
	ev.cache[v] = e
	return e
}

func (ev *Evolution) create(v ssa.Value) Expr {
	switch v := v.(type) {
	case *ssa.Const:
		if v.Value != nil && v.Value.Kind() == constant.Int && isInteger(v.Type()) {
			if c, exact := constant.Int64Val(v.Value); exact {
				return ev.Constant(c)
			}
		}

	case *ssa.Phi:
		if isInteger(v.Type()) {
			if e := ev.createAddRec(v); e != nil {
				return e
			}
		}

	case *ssa.BinOp:
		if !isInteger(v.Type()) {
			break
		}
		switch v.Op {
		case token.ADD:
			return ev.AddExpr(ev.SCEV(v.X), ev.SCEV(v.Y))
		case token.SUB:
			return ev.Minus(ev.SCEV(v.X), ev.SCEV(v.Y))
		case token.MUL:
			return ev.MulExpr(ev.SCEV(v.X), ev.SCEV(v.Y))
		case token.QUO:
			if isUnsigned(v.Type()) {
				return ev.UDivExpr(ev.SCEV(v.X), ev.SCEV(v.Y))
			}
		case token.SHL:
			if c, ok := ev.SCEV(v.Y).(*Constant); ok && c.Value >= 0 && c.Value < 63 {
				return ev.MulExpr(ev.SCEV(v.X), ev.Constant(1<<uint(c.Value)))
			}
		}

	case *ssa.UnOp:
		if v.Op == token.SUB && isInteger(v.Type()) {
			return ev.MulExpr(ev.Constant(-1), ev.SCEV(v.X))
		}

	case *ssa.Convert:
		from, to := v.X.Type(), v.Type()
		if !isInteger(from) || !isInteger(to) {
			break
		}
		fb, tb := int(ev.sizes.Sizeof(from)*8), int(ev.sizes.Sizeof(to)*8)
		x := ev.SCEV(v.X)
		switch {
		case tb > fb && isUnsigned(from):
			return ev.ZeroExtendExpr(x, tb)
		case tb > fb:
			return ev.SignExtendExpr(x, tb)
		case tb < fb:
			return ev.TruncateExpr(x, tb)
		}
		return x

	case *ssa.IndexAddr:
		var elem types.Type
		switch t := v.X.Type().Underlying().(type) {
		case *types.Slice:
			elem = t.Elem()
		case *types.Pointer:
			if a, ok := t.Elem().Underlying().(*types.Array); ok {
				elem = a.Elem()
			}
		}
		if elem == nil || !isInteger(v.Index.Type()) {
			break
		}
		size := ev.Constant(ev.sizes.Sizeof(elem))
		return ev.AddExpr(ev.SCEV(v.X), ev.MulExpr(ev.SCEV(v.Index), size))

	case *ssa.FieldAddr:
		p, ok := v.X.Type().Underlying().(*types.Pointer)
		if !ok {
			break
		}
		st, ok := p.Elem().Underlying().(*types.Struct)
		if !ok {
			break
		}
		fields := make([]*types.Var, st.NumFields())
		for i := range fields {
			fields[i] = st.Field(i)
		}
		off := ev.sizes.Offsetsof(fields)[v.Field]
		return ev.AddExpr(ev.SCEV(v.X), ev.Constant(off))

	case *ssa.Call:
		b, ok := v.Call.Value.(*ssa.Builtin)
		if !ok || !isInteger(v.Type()) || len(v.Call.Args) < 2 {
			break
		}
		ops := make([]Expr, len(v.Call.Args))
		for i, arg := range v.Call.Args {
			ops[i] = ev.SCEV(arg)
		}
		switch b.Name() {
		case "max":
			if isUnsigned(v.Type()) {
				return ev.UMaxExpr(ops...)
			}
			return ev.SMaxExpr(ops...)
		case "min":
			if isUnsigned(v.Type()) {
				break
			}
			// min(a, b) = -max(-a, -b)
			for i, op := range ops {
				ops[i] = ev.MulExpr(ev.Constant(-1), op)
			}
			return ev.MulExpr(ev.Constant(-1), ev.SMaxExpr(ops...))
		}
	}
	return ev.Unknown(v)
}

// createAddRec recognises a header phi whose value on every back edge is
// phi plus a loop invariant step.
func (ev *Evolution) createAddRec(phi *ssa.Phi) Expr {
	l := ev.loops.LoopWithHeader(phi.Block())
	if l == nil {
		return nil
	}
	var (
		start ssa.Value
		step  Expr
	)
	for i, edge := range phi.Edges {
		if !l.Contains(phi.Block().Preds[i]) {
			if start != nil && start != edge {
				return nil
			}
			start = edge
			continue
		}
		bin, ok := edge.(*ssa.BinOp)
		if !ok {
			return nil
		}
		var s Expr
		switch {
		case bin.Op == token.ADD && bin.X == phi:
			s = ev.SCEV(bin.Y)
		case bin.Op == token.ADD && bin.Y == phi:
			s = ev.SCEV(bin.X)
		case bin.Op == token.SUB && bin.X == phi:
			s = ev.MulExpr(ev.Constant(-1), ev.SCEV(bin.Y))
		default:
			return nil
		}
		if !ev.IsLoopInvariant(s, l) {
			return nil
		}
		if step != nil && step != s {
			return nil
		}
		step = s
	}
	if start == nil || step == nil {
		return nil
	}
	return ev.AddRecExpr(ev.SCEV(start), step, l)
}

// PointerBase returns the pointer the address e is computed from, or e if
// there is none.
func (ev *Evolution) PointerBase(e Expr) Expr {
	switch e := e.(type) {
	case *AddRec:
		return ev.PointerBase(e.Start)
	case *Add:
		for i := len(e.Ops) - 1; i >= 0; i-- {
			if u, ok := ev.PointerBase(e.Ops[i]).(*Unknown); ok && u.IsPointer() {
				return u
			}
		}
	}
	return e
}
