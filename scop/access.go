package scop

import (
	"fmt"
	"io"

	"github.com/nickng/polyscop/poly"
	"github.com/nickng/polyscop/tempscop"
	"golang.org/x/tools/go/ssa"
)

// AccessType is the kind of a MemoryAccess.
type AccessType int

const (
	Read AccessType = iota
	Write
	MayWrite // A write to an element that is not known.
)

func (t AccessType) String() string {
	switch t {
	case Read:
		return "Read"
	case Write:
		return "Write"
	case MayWrite:
		return "MayWrite"
	}
	return fmt.Sprintf("AccessType(%d)", int(t))
}

// MemoryAccess is an access of a statement, as a relation from the
// iteration vector of the statement to the element accessed.
type MemoryAccess struct {
	kind     AccessType
	instr    ssa.Instruction
	base     ssa.Value
	baseName string
	stmt     *Stmt

	rel    *poly.Map
	newRel *poly.Map
}

func newMemoryAccess(acc *tempscop.IRAccess, instr ssa.Instruction, st *Stmt) *MemoryAccess {
	m := &MemoryAccess{
		kind:     Read,
		instr:    instr,
		base:     acc.Base,
		baseName: "MemRef_" + islName(acc.Base.Name()),
		stmt:     st,
	}
	if acc.IsWrite() {
		m.kind = Write
	}
	if !acc.Affine {
		if m.kind == Write {
			m.kind = MayWrite
		}
		space := poly.NewMapSpace(st.domain.Space().Params(), st.NumIterators(), 1)
		m.rel = poly.MapUniverse(space).
			SetTupleName(poly.In, st.BaseName()).
			SetTupleName(poly.Out, m.baseName)
		return m
	}
	if acc.ElemSize <= 0 {
		unsupportedf("access to %s with element size %d", acc.Base.Name(), acc.ElemSize)
	}
	// Offsets are in bytes, a[i] is i*size from a.
	off := PwAff(st, acc.Offset).ScaleDown(acc.ElemSize)
	m.rel = poly.MapFromPwAff(off).
		SetTupleName(poly.In, st.BaseName()).
		SetTupleName(poly.Out, m.baseName)
	return m
}

// Type returns the kind of access.
func (m *MemoryAccess) Type() AccessType { return m.kind }

// IsRead returns true if m reads.
func (m *MemoryAccess) IsRead() bool { return m.kind == Read }

// IsWrite returns true if m writes or may write.
func (m *MemoryAccess) IsWrite() bool { return m.kind != Read }

// Instr returns the instruction of the access.
func (m *MemoryAccess) Instr() ssa.Instruction { return m.instr }

// BaseAddr returns the base address accessed, or the value of a scalar
// access.
func (m *MemoryAccess) BaseAddr() ssa.Value { return m.base }

// BaseName returns the name of the array accessed.
func (m *MemoryAccess) BaseName() string { return m.baseName }

// Statement returns the statement m belongs to.
func (m *MemoryAccess) Statement() *Stmt { return m.stmt }

// AccessRelation returns a copy of the access relation.
func (m *MemoryAccess) AccessRelation() *poly.Map { return m.rel.Copy() }

// NewAccessRelation returns a copy of the replacement access relation, or nil
// if none was set.
func (m *MemoryAccess) NewAccessRelation() *poly.Map {
	if m.newRel == nil {
		return nil
	}
	return m.newRel.Copy()
}

// SetNewAccessRelation sets a replacement for the access relation.
func (m *MemoryAccess) SetNewAccessRelation(rel *poly.Map) {
	m.newRel = rel
}

// Stride returns the difference in the element accessed between an instance
// of the statement and the next one in the last dimension of prefix. prefix
// is a set over the leading scattering dimensions. The result is empty if no
// instance has a successor there, and unconstrained if the difference is not
// known.
func (m *MemoryAccess) Stride(prefix *poly.Set) *poly.Set {
	space := poly.NewSetSpace(m.rel.Space().Params(), 1)
	n := prefix.NDim()
	if n == 0 || n > m.stmt.NumScattering() || prefix.IsEmpty() {
		return poly.EmptySet(space)
	}
	// Position dimensions of the statement must match prefix.
	for d := 0; d < n; d += 2 {
		if v, ok := prefix.FixedValue(d); ok && v != m.stmt.position(d/2) {
			return poly.EmptySet(space)
		}
	}
	last := n - 1
	if last%2 == 0 || last/2 >= m.stmt.NumIterators() {
		// Fixed for every instance.
		return poly.EmptySet(space)
	}
	if m.rel.IsUniverse() {
		return poly.Universe(space)
	}
	d, ok := m.rel.OutputDelta(0, last/2)
	if !ok {
		return poly.Universe(space)
	}
	return poly.Universe(space).FixDim(0, d)
}

// strideIs returns true if the stride is exactly { [v] }. An empty stride
// is none.
func (m *MemoryAccess) strideIs(prefix *poly.Set, v int64) bool {
	d, ok := m.Stride(prefix).FixedValue(0)
	return ok && d == v
}

// IsStrideZero returns true if consecutive instances in prefix access the
// same element. It is false if no instance has a successor in prefix.
func (m *MemoryAccess) IsStrideZero(prefix *poly.Set) bool { return m.strideIs(prefix, 0) }

// IsStrideOne returns true if consecutive instances in prefix access
// adjacent elements. It is false if no instance has a successor in prefix.
func (m *MemoryAccess) IsStrideOne(prefix *poly.Set) bool { return m.strideIs(prefix, 1) }

func (m *MemoryAccess) realignParams() {
	space := m.stmt.parent.ParamSpace()
	m.rel = m.rel.AlignParams(space)
	if m.newRel != nil {
		m.newRel = m.newRel.AlignParams(space)
	}
}

// Print writes the access relation.
func (m *MemoryAccess) Print(w io.Writer) {
	op := "Write"
	if m.IsRead() {
		op = "Read"
	}
	fmt.Fprintf(w, "%*s%sAccess :=\n%*s%s;\n", 12, "", op, 16, "", m.rel)
}
