package scop

import (
	"strings"

	"github.com/nickng/polyscop/tempscop"
)

// UnsupportedError reports a construct in a region that the polyhedral model
// cannot express.
type UnsupportedError = tempscop.UnsupportedError

func unsupportedf(format string, args ...interface{}) {
	tempscop.Unsupportedf(format, args...)
}

// islName makes s usable as a tuple name.
func islName(s string) string {
	return strings.NewReplacer(".", "_", "\"", "_").Replace(s)
}
