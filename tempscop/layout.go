package tempscop

import (
	"go/types"
	"runtime"
)

// DataLayout gives the in-memory size of values.
type DataLayout interface {
	StoreSize(t types.Type) int64
}

// Sizes is a DataLayout backed by go/types sizes.
type Sizes struct {
	types.Sizes
}

// StoreSize returns the number of bytes a value of type t occupies.
func (s Sizes) StoreSize(t types.Type) int64 {
	return s.Sizeof(t)
}

// DefaultLayout returns the layout of the gc compiler on the host
// architecture.
func DefaultLayout() DataLayout {
	return Sizes{types.SizesFor("gc", runtime.GOARCH)}
}
