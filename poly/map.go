package poly

import (
	"bytes"
)

// Map is a finite union of integer relations between an input and an output
// tuple.
type Map struct {
	space Space
	parts []basic
}

// MapUniverse returns the relation between every pair of points of space.
func MapUniverse(space Space) *Map {
	return &Map{space: space.clone(), parts: []basic{{}}}
}

// MapFromPwAff returns the single-output relation { x -> [floor(p(x))] }.
// The input tuple takes the dimensions and name of the domain of p.
func MapFromPwAff(p *PwAff) *Map {
	np, n := p.space.NParams(), p.space.nOut
	space := NewMapSpace(p.space.params, n, 1).SetTupleName(In, p.space.outName)
	m := &Map{space: space}
	for _, pc := range p.pieces {
		dom := pc.dom.insertCols(np+n, 1)
		num := pc.aff.coef
		den := pc.aff.den
		row := make([]int64, len(num)+1)
		copy(row, num)
		var cs []constraint
		if den == 1 {
			// o - num = 0
			eq := constraint{eq: true, coef: negated(row), cst: -pc.aff.cst}
			eq.coef[len(row)-1] = 1
			cs = append(cs, eq)
		} else {
			// num - den*o >= 0 and den*o + den - 1 - num >= 0
			lo := constraint{coef: append([]int64{}, row...), cst: pc.aff.cst}
			lo.coef[len(row)-1] = -den
			hi := constraint{coef: negated(row), cst: den - 1 - pc.aff.cst}
			hi.coef[len(row)-1] = den
			cs = append(cs, lo, hi)
		}
		if b, ok := dom.add(cs...); ok {
			m.parts = append(m.parts, b)
		}
	}
	return m
}

func negated(row []int64) []int64 {
	out := make([]int64, len(row))
	for i, a := range row {
		out[i] = -a
	}
	return out
}

// Copy returns an independent copy of m.
func (m *Map) Copy() *Map {
	parts := make([]basic, len(m.parts))
	for i, p := range m.parts {
		parts[i] = p.clone()
	}
	return &Map{space: m.space.clone(), parts: parts}
}

// Space returns the space of m.
func (m *Map) Space() Space { return m.space }

// NIn returns the number of input dimensions.
func (m *Map) NIn() int { return m.space.nIn }

// NOut returns the number of output dimensions.
func (m *Map) NOut() int { return m.space.nOut }

// NParams returns the number of parameter dimensions.
func (m *Map) NParams() int { return m.space.NParams() }

// TupleName returns the name of the In or Out tuple.
func (m *Map) TupleName(t DimType) string { return m.space.TupleName(t) }

// IsEmpty returns true if m has no disjuncts left. A disjunct is dropped as
// soon as eliminating its dimensions derives a contradiction.
func (m *Map) IsEmpty() bool { return len(m.parts) == 0 }

// IsUniverse returns true if m has an unconstrained disjunct.
func (m *Map) IsUniverse() bool {
	for _, p := range m.parts {
		if len(p.cons) == 0 {
			return true
		}
	}
	return false
}

// SetTupleName returns m with the In or Out tuple named.
func (m *Map) SetTupleName(t DimType, name string) *Map {
	c := m.Copy()
	c.space = c.space.SetTupleName(t, name)
	return c
}

// AlignParams returns m expressed over the parameters of model, followed by
// any parameters of m that model does not have.
func (m *Map) AlignParams(model Space) *Map {
	space, pos := m.space.alignedTo(model.params)
	out := &Map{space: space, parts: make([]basic, len(m.parts))}
	for i, p := range m.parts {
		out.parts[i] = p.remap(m.space.NParams(), pos, space.ncols())
	}
	return out
}

func (m *Map) addConstraint(c constraint) *Map {
	out := &Map{space: m.space.clone()}
	for _, p := range m.parts {
		if r, ok := p.add(c); ok {
			out.parts = append(out.parts, r)
		}
	}
	return out
}

// Equate returns m restricted to output dimension out = input dimension in.
func (m *Map) Equate(out, in int) *Map {
	c := constraint{eq: true, coef: make([]int64, m.space.ncols())}
	c.coef[m.space.col(Out, out)] = 1
	c.coef[m.space.col(In, in)] = -1
	return m.addConstraint(c)
}

// FixOut returns m restricted to output dimension dim = v.
func (m *Map) FixOut(dim int, v int64) *Map {
	c := constraint{eq: true, coef: make([]int64, m.space.ncols()), cst: -v}
	c.coef[m.space.col(Out, dim)] = 1
	return m.addConstraint(c)
}

// Contains reports whether (in, out) is related by m for the given
// parameter values.
func (m *Map) Contains(params, in, out []int64) bool {
	vals := append(append(append([]int64{}, params...), in...), out...)
	if len(vals) != m.space.ncols() {
		return false
	}
	for _, p := range m.parts {
		if p.contains(vals) {
			return true
		}
	}
	return false
}

// OutputDelta returns how much output dimension out changes when input
// dimension in increases by one. It is only known when every disjunct pins
// out by an integral equality that involves no other output dimension, and
// all disjuncts agree.
func (m *Map) OutputDelta(out, in int) (int64, bool) {
	if len(m.parts) == 0 {
		return 0, false
	}
	oc, ic := m.space.col(Out, out), m.space.col(In, in)
	var delta int64
	for i, p := range m.parts {
		d, ok := deltaIn(p, m.space, oc, ic)
		if !ok || (i > 0 && d != delta) {
			return 0, false
		}
		delta = d
	}
	return delta, true
}

func deltaIn(p basic, space Space, oc, ic int) (int64, bool) {
	first := space.col(Out, 0)
	for _, c := range p.cons {
		if !c.eq || c.coef[oc] == 0 {
			continue
		}
		other := false
		for j := first; j < first+space.nOut; j++ {
			if j != oc && c.coef[j] != 0 {
				other = true
				break
			}
		}
		if other {
			continue
		}
		// a*o + b*i + ... = 0, so o changes by -b/a.
		if c.coef[ic]%c.coef[oc] != 0 {
			return 0, false
		}
		return -c.coef[ic] / c.coef[oc], true
	}
	return 0, false
}

func (m *Map) String() string {
	var buf bytes.Buffer
	buf.WriteString(m.space.paramPrefix())
	buf.WriteString("{ ")
	names := m.space.names()
	for i, p := range m.parts {
		if i > 0 {
			buf.WriteString("; ")
		}
		buf.WriteString(m.space.tuple(In))
		buf.WriteString(" -> ")
		buf.WriteString(m.space.tuple(Out))
		if len(p.cons) > 0 {
			buf.WriteString(" : ")
			buf.WriteString(p.format(names))
		}
	}
	buf.WriteString(" }")
	return buf.String()
}
