package ssa

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

// FuncNotFoundError is returned by FindFunc if no function matches.
type FuncNotFoundError struct {
	Path string
}

func (e FuncNotFoundError) Error() string {
	return "function not found: " + e.Path
}

// FindFunc parses path (e.g. "github.com/nickng/polyscop/ssa".MainPkgs or
// main.kernel) and returns Function body in SSA IR. A bare function name is
// looked up in the source packages.
func (info *Info) FindFunc(path string) (*ssa.Function, error) {
	pkgPath, fnName := parseFuncPath(path)
	if pkgPath == "" {
		for _, pkg := range info.SrcPkgs {
			if f := pkg.Func(fnName); f != nil {
				return f, nil
			}
		}
		return nil, errors.WithStack(FuncNotFoundError{Path: path})
	}
	for f := range ssautil.AllFunctions(info.Prog) {
		if f.Pkg == nil || f.Parent() != nil {
			continue
		}
		if (f.Pkg.Pkg.Path() == pkgPath || f.Pkg.Pkg.Name() == pkgPath) && f.Name() == fnName {
			return f, nil
		}
	}
	return nil, errors.WithStack(FuncNotFoundError{Path: path})
}

// SrcFuncs returns the top-level functions and methods with a body declared
// in the source packages, in source order.
func (info *Info) SrcFuncs() []*ssa.Function {
	var fns members
	for f := range ssautil.AllFunctions(info.Prog) {
		if f.Blocks == nil || f.Synthetic != "" || f.Parent() != nil {
			continue
		}
		for _, pkg := range info.SrcPkgs {
			if f.Pkg == pkg {
				fns = append(fns, f)
				break
			}
		}
	}
	sortMembers(fns)
	out := make([]*ssa.Function, len(fns))
	for i, m := range fns {
		out[i] = m.(*ssa.Function)
	}
	return out
}

// parseFuncPath splits path to package and function segments.
// Does not handle complex functions with receivers.
func parseFuncPath(path string) (pkgPath, fnName string) {
	if len(path) < 1 {
		return "", ""
	}
	switch path[0] {
	case '(':
		regex := regexp.MustCompile(`\((?P<pkg>[^)]+)\).(?P<fn>.+)`)
		submatches := regex.FindStringSubmatch(path)
		if len(submatches) >= 3 {
			return submatches[1], submatches[2]
		}
	case '"':
		regex := regexp.MustCompile(`"(?P<pkg>[^)]+)".(?P<fn>.+)`)
		submatches := regex.FindStringSubmatch(path)
		if len(submatches) >= 3 {
			return submatches[1], submatches[2]
		}
	default:
		if i := strings.LastIndex(path, "."); i > 0 {
			return path[:i], path[i+1:]
		}
	}
	return "", path
}
