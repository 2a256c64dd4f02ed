// Package ssa is a library to build and work with SSA.
// For most part the package contains helper or wrapper functions to use the
// packages in Go project's extra tools.
//
// In particular, the SSA IR is from golang.org/x/tools/go/ssa, and the
// polyhedral analyses in this module work directly on its functions.
//
package ssa

import (
	"go/token"
	"io"
	"log"

	"golang.org/x/tools/go/ssa"
)

// Info holds the results of a SSA build for analysis.
// To populate this structure, the 'build' subpackage should be used.
//
type Info struct {
	IgnoredPkgs []string // Record of ignored package during the build process.

	FSet    *token.FileSet  // FileSet for parsed source files.
	Prog    *ssa.Program    // SSA IR for whole program.
	SrcPkgs []*ssa.Package // Packages built from the given sources.

	BldLog io.Writer   // Build log.
	Logger *log.Logger // Build logger.
}
