package ssa

import (
	"io"
	"sort"

	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

// members is slice of ssa.Member. Used only for sorting by Pos.
type members []ssa.Member

func (m members) Len() int           { return len(m) }
func (m members) Less(i, j int) bool { return m[i].Pos() < m[j].Pos() }
func (m members) Swap(i, j int)      { m[i], m[j] = m[j], m[i] }

func sortMembers(m members) { sort.Stable(m) }

// WriteTo writes Functions of the source packages to w in human readable SSA
// IR instruction format.
func (info *Info) WriteTo(w io.Writer) (int64, error) {
	var n int64
	for _, f := range info.SrcFuncs() {
		written, err := f.WriteTo(w)
		if err != nil {
			return n, err
		}
		n += written
	}
	return n, nil
}

// WriteAll writes all Functions found in the Program to w in human readable SSA
// IR instruction format.
func (info *Info) WriteAll(w io.Writer) (int64, error) {
	pkgFuncs := make(map[*ssa.Package]members)
	var pkgs []*ssa.Package
	for f := range ssautil.AllFunctions(info.Prog) {
		if f.Blocks == nil {
			continue
		}
		if _, ok := pkgFuncs[f.Pkg]; !ok {
			pkgs = append(pkgs, f.Pkg)
		}
		pkgFuncs[f.Pkg] = append(pkgFuncs[f.Pkg], f)
	}
	sort.Slice(pkgs, func(i, j int) bool { return pkgPath(pkgs[i]) < pkgPath(pkgs[j]) })
	var n int64
	for _, pkg := range pkgs {
		sortMembers(pkgFuncs[pkg])
		for _, f := range pkgFuncs[pkg] {
			written, err := f.(*ssa.Function).WriteTo(w)
			if err != nil {
				return n, err
			}
			n += written
		}
	}
	return n, nil
}

func pkgPath(pkg *ssa.Package) string {
	if pkg == nil || pkg.Pkg == nil {
		return ""
	}
	return pkg.Pkg.Path()
}
