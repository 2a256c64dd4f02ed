package tempscop

import (
	"fmt"
	"io"

	"github.com/nickng/polyscop/scev"
	"golang.org/x/tools/go/ssa"
)

// AccessKind is the kind of an IRAccess.
type AccessKind int

const (
	Read AccessKind = iota
	Write
	ScalarRead
	ScalarWrite
)

func (k AccessKind) String() string {
	switch k {
	case Read:
		return "Read"
	case Write:
		return "Write"
	case ScalarRead:
		return "ScalarRead"
	case ScalarWrite:
		return "ScalarWrite"
	}
	return fmt.Sprintf("AccessKind(%d)", int(k))
}

// IRAccess is a memory access, or a scalar value passed between blocks.
type IRAccess struct {
	Kind     AccessKind
	Base     ssa.Value // Base address, or the value of a scalar access.
	Offset   scev.Expr // Byte offset from Base.
	ElemSize int64
	Affine   bool // Offset is affine in the region.
}

// IsRead returns true for reads and scalar reads.
func (a *IRAccess) IsRead() bool { return a.Kind == Read || a.Kind == ScalarRead }

// IsWrite returns true for writes and scalar writes.
func (a *IRAccess) IsWrite() bool { return !a.IsRead() }

// IsScalar returns true for accesses of a scalar value.
func (a *IRAccess) IsScalar() bool { return a.Kind == ScalarRead || a.Kind == ScalarWrite }

// Print writes the access as "Read base[offset]".
func (a *IRAccess) Print(w io.Writer) {
	op := "Write"
	if a.IsRead() {
		op = "Read"
	}
	fmt.Fprintf(w, "%s %s[%s]\n", op, a.Base.Name(), a.Offset)
}

// AccessPair is an access with the instruction it comes from.
type AccessPair struct {
	Access *IRAccess
	Instr  ssa.Instruction
}

// AccFuncs is the ordered list of accesses of a block.
type AccFuncs []AccessPair
