package poly

import (
	"bytes"
)

// Set is a finite union of integer polyhedra over a set space.
type Set struct {
	space Space
	parts []basic
}

// Universe returns the set containing every point of space.
func Universe(space Space) *Set {
	return &Set{space: space, parts: []basic{{}}}
}

// EmptySet returns the set with no points.
func EmptySet(space Space) *Set {
	return &Set{space: space}
}

// Copy returns an independent copy of s.
func (s *Set) Copy() *Set {
	parts := make([]basic, len(s.parts))
	for i, p := range s.parts {
		parts[i] = p.clone()
	}
	return &Set{space: s.space.clone(), parts: parts}
}

// Space returns the space of s.
func (s *Set) Space() Space { return s.space }

// NDim returns the number of set dimensions.
func (s *Set) NDim() int { return s.space.nOut }

// NParams returns the number of parameter dimensions.
func (s *Set) NParams() int { return s.space.NParams() }

// TupleName returns the name of the set tuple.
func (s *Set) TupleName() string { return s.space.outName }

// IsEmpty returns true if s has no disjuncts left. A disjunct is dropped as
// soon as eliminating its dimensions derives a contradiction.
func (s *Set) IsEmpty() bool { return len(s.parts) == 0 }

// IsUniverse returns true if s has an unconstrained disjunct.
func (s *Set) IsUniverse() bool {
	for _, p := range s.parts {
		if len(p.cons) == 0 {
			return true
		}
	}
	return false
}

// SetTupleName returns s with its tuple named.
func (s *Set) SetTupleName(name string) *Set {
	c := s.Copy()
	c.space = c.space.SetTupleName(SetDim, name)
	return c
}

// AlignParams returns s expressed over the parameters of model, followed by
// any parameters of s that model does not have.
func (s *Set) AlignParams(model Space) *Set {
	space, pos := s.space.alignedTo(model.params)
	out := &Set{space: space, parts: make([]basic, len(s.parts))}
	for i, p := range s.parts {
		out.parts[i] = p.remap(s.space.NParams(), pos, space.ncols())
	}
	return out
}

func (s *Set) alignPair(o *Set) (*Set, *Set) {
	if s.space.paramsEqual(o.space) {
		return s, o
	}
	params := NewParamSpace(unionParams(s.space.params, o.space.params))
	return s.AlignParams(params), o.AlignParams(params)
}

// Intersect returns s ∩ o. Both must have the same number of dimensions.
func (s *Set) Intersect(o *Set) *Set {
	a, b := s.alignPair(o)
	if !a.space.sameDims(b.space) {
		panic("poly: intersecting sets of different dimensions")
	}
	out := &Set{space: a.space}
	for _, p := range a.parts {
		for _, q := range b.parts {
			if r, ok := p.and(q); ok {
				out.parts = append(out.parts, r)
			}
		}
	}
	return out
}

// Union returns s ∪ o.
func (s *Set) Union(o *Set) *Set {
	a, b := s.alignPair(o)
	if !a.space.sameDims(b.space) {
		panic("poly: union of sets of different dimensions")
	}
	out := a.Copy()
	for _, q := range b.parts {
		out.parts = append(out.parts, q.clone())
	}
	return out
}

func (s *Set) addConstraint(c constraint) *Set {
	out := &Set{space: s.space}
	for _, p := range s.parts {
		if r, ok := p.add(c); ok {
			out.parts = append(out.parts, r)
		}
	}
	return out
}

// FixDim returns s restricted to dimension dim = v.
func (s *Set) FixDim(dim int, v int64) *Set {
	c := constraint{eq: true, coef: make([]int64, s.space.ncols()), cst: -v}
	c.coef[s.space.col(SetDim, dim)] = 1
	return s.addConstraint(c)
}

// LowerBound returns s restricted to dimension dim >= v.
func (s *Set) LowerBound(dim int, v int64) *Set {
	c := constraint{coef: make([]int64, s.space.ncols()), cst: -v}
	c.coef[s.space.col(SetDim, dim)] = 1
	return s.addConstraint(c)
}

// UpperBound returns s restricted to dimension dim <= v.
func (s *Set) UpperBound(dim int, v int64) *Set {
	c := constraint{coef: make([]int64, s.space.ncols()), cst: v}
	c.coef[s.space.col(SetDim, dim)] = -1
	return s.addConstraint(c)
}

// Contains reports whether the point with the given parameter values and
// dimension values lies in s.
func (s *Set) Contains(params, point []int64) bool {
	vals := append(append([]int64{}, params...), point...)
	if len(vals) != s.space.ncols() {
		return false
	}
	for _, p := range s.parts {
		if p.contains(vals) {
			return true
		}
	}
	return false
}

// FixedValue returns v if every disjunct of s fixes dimension dim to v
// by an equality.
func (s *Set) FixedValue(dim int) (int64, bool) {
	if len(s.parts) == 0 {
		return 0, false
	}
	col := s.space.col(SetDim, dim)
	var val int64
	for i, p := range s.parts {
		v, ok := fixedIn(p, col)
		if !ok || (i > 0 && v != val) {
			return 0, false
		}
		val = v
	}
	return val, true
}

// fixedIn looks for an equality a*x + c = 0 on the single column col.
func fixedIn(p basic, col int) (int64, bool) {
	for _, c := range p.cons {
		if !c.eq || c.coef[col] == 0 {
			continue
		}
		only := true
		for i, a := range c.coef {
			if i != col && a != 0 {
				only = false
				break
			}
		}
		if only && c.cst%c.coef[col] == 0 {
			return -c.cst / c.coef[col], true
		}
	}
	return 0, false
}

func (s *Set) String() string {
	var buf bytes.Buffer
	buf.WriteString(s.space.paramPrefix())
	buf.WriteString("{ ")
	tuple := s.space.tuple(SetDim)
	if s.space.nOut == 0 && s.space.outName == "" {
		tuple = ""
	}
	names := s.space.names()
	for i, p := range s.parts {
		if i > 0 {
			buf.WriteString("; ")
		}
		buf.WriteString(tuple)
		if len(p.cons) > 0 {
			if tuple != "" {
				buf.WriteString(" ")
			}
			buf.WriteString(": ")
			buf.WriteString(p.format(names))
		}
	}
	buf.WriteString(" }")
	return buf.String()
}
