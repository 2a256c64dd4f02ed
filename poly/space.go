// Package poly provides the integer-linear algebra used by the polyhedral
// model: spaces with named parameter dimensions, affine and piecewise-affine
// functions, and finite unions of conjunctions of affine constraints (sets and
// maps).
//
// All operations are functional: they return a new object and leave the
// receiver and arguments untouched. An object stored in a struct field is
// owned by that struct; accessors hand out a Copy.
//
// Objects with different parameter lists are combined by aligning both to
// the union of their parameters (receiver's parameters first), so an object
// built before a parameter was discovered can still be intersected with one
// built after.
package poly

import (
	"bytes"
	"fmt"
	"strings"
)

// DimType selects a group of dimensions in a Space.
type DimType int

const (
	Param DimType = iota // Parameter dimensions.
	In                   // Input dimensions of a map.
	Out                  // Output dimensions of a map.

	SetDim = Out // Dimensions of a set.
)

// ID identifies a parameter dimension.
//
// Two IDs are the same parameter if their Refs are equal, or, when neither
// carries a Ref, if their names are equal. Ref must be comparable.
type ID struct {
	Name string
	Ref  interface{}
}

func (id ID) same(o ID) bool {
	if id.Ref != nil || o.Ref != nil {
		return id.Ref == o.Ref
	}
	return id.Name == o.Name
}

func (id ID) String() string { return id.Name }

// Space describes the dimensions of a set, a map, or a parameter domain.
type Space struct {
	params  []ID
	nIn     int
	nOut    int
	isMap   bool
	inName  string
	outName string
}

// NewParamSpace returns a space with only parameter dimensions.
func NewParamSpace(params []ID) Space {
	return Space{params: copyIDs(params)}
}

// NewSetSpace returns a set space with dims set dimensions.
func NewSetSpace(params []ID, dims int) Space {
	return Space{params: copyIDs(params), nOut: dims}
}

// NewMapSpace returns a map space from in to out dimensions.
func NewMapSpace(params []ID, in, out int) Space {
	return Space{params: copyIDs(params), nIn: in, nOut: out, isMap: true}
}

func (s Space) clone() Space {
	s.params = copyIDs(s.params)
	return s
}

// Params returns the parameter IDs in dimension order.
func (s Space) Params() []ID { return copyIDs(s.params) }

// NParams returns the number of parameter dimensions.
func (s Space) NParams() int { return len(s.params) }

// IsMap returns true if the space has an input tuple.
func (s Space) IsMap() bool { return s.isMap }

// Dim returns the number of dimensions of type t.
func (s Space) Dim(t DimType) int {
	switch t {
	case Param:
		return len(s.params)
	case In:
		return s.nIn
	default:
		return s.nOut
	}
}

// TupleName returns the name of the In or Out (set) tuple.
func (s Space) TupleName(t DimType) string {
	if t == In {
		return s.inName
	}
	return s.outName
}

// SetTupleName returns a copy of s with the In or Out (set) tuple named.
func (s Space) SetTupleName(t DimType, name string) Space {
	s.params = copyIDs(s.params)
	if t == In {
		s.inName = name
	} else {
		s.outName = name
	}
	return s
}

// ParamIndex returns the position of the parameter called name, or -1.
func (s Space) ParamIndex(name string) int {
	for i, id := range s.params {
		if id.Name == name {
			return i
		}
	}
	return -1
}

// ParamPos returns the position of parameter id, or -1.
func (s Space) ParamPos(id ID) int {
	for i, p := range s.params {
		if p.same(id) {
			return i
		}
	}
	return -1
}

// ncols is the width of a constraint row: params, in, out.
func (s Space) ncols() int { return len(s.params) + s.nIn + s.nOut }

func (s Space) col(t DimType, pos int) int {
	switch t {
	case Param:
		return pos
	case In:
		return len(s.params) + pos
	default:
		return len(s.params) + s.nIn + pos
	}
}

// sameDims reports whether s and o have the same tuple shape.
func (s Space) sameDims(o Space) bool {
	return s.nIn == o.nIn && s.nOut == o.nOut && s.isMap == o.isMap
}

// names returns a display name per column.
func (s Space) names() []string {
	names := make([]string, 0, s.ncols())
	for _, id := range s.params {
		names = append(names, id.Name)
	}
	for i := 0; i < s.nIn; i++ {
		names = append(names, fmt.Sprintf("i%d", i))
	}
	for i := 0; i < s.nOut; i++ {
		if s.isMap {
			names = append(names, fmt.Sprintf("o%d", i))
		} else {
			names = append(names, fmt.Sprintf("i%d", i))
		}
	}
	return names
}

// alignedTo returns the space with parameters target followed by any of the
// parameters of s not in target, and the new position of each old parameter.
func (s Space) alignedTo(target []ID) (Space, []int) {
	params := copyIDs(target)
	pos := make([]int, len(s.params))
	for i, p := range s.params {
		pos[i] = -1
		for j, q := range params {
			if p.same(q) {
				pos[i] = j
				break
			}
		}
		if pos[i] < 0 {
			pos[i] = len(params)
			params = append(params, p)
		}
	}
	aligned := s
	aligned.params = params
	return aligned, pos
}

// paramsEqual reports whether both spaces list the same parameters in order.
func (s Space) paramsEqual(o Space) bool {
	if len(s.params) != len(o.params) {
		return false
	}
	for i := range s.params {
		if !s.params[i].same(o.params[i]) {
			return false
		}
	}
	return true
}

func (s Space) paramPrefix() string {
	if len(s.params) == 0 {
		return ""
	}
	names := make([]string, len(s.params))
	for i, id := range s.params {
		names[i] = id.Name
	}
	return "[" + strings.Join(names, ", ") + "] -> "
}

func (s Space) tuple(t DimType) string {
	var buf bytes.Buffer
	buf.WriteString(s.TupleName(t))
	n := s.Dim(t)
	names := s.names()
	buf.WriteString("[")
	for i := 0; i < n; i++ {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(names[s.col(t, i)])
	}
	buf.WriteString("]")
	return buf.String()
}

func (s Space) String() string {
	if s.isMap {
		return s.paramPrefix() + "{ " + s.tuple(In) + " -> " + s.tuple(Out) + " }"
	}
	return s.paramPrefix() + "{ " + s.tuple(SetDim) + " }"
}

// unionParams returns a followed by the parameters of b missing from a.
func unionParams(a, b []ID) []ID {
	out := copyIDs(a)
	for _, p := range b {
		found := false
		for _, q := range out {
			if p.same(q) {
				found = true
				break
			}
		}
		if !found {
			out = append(out, p)
		}
	}
	return out
}

func copyIDs(ids []ID) []ID {
	if ids == nil {
		return nil
	}
	out := make([]ID, len(ids))
	copy(out, ids)
	return out
}
