package build

import (
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"io"
	"io/ioutil"
	"log"

	"github.com/nickng/polyscop/ssa"
	"github.com/pkg/errors"
	"golang.org/x/tools/go/packages"
	gossa "golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

// Configurer is a Builder that can be configured in a chain.
type Configurer interface {
	Builder
	Default() Configurer
	AddBadPkg(pkg, reason string) Configurer
	WithBuildLog(l io.Writer, flags int) Configurer
	WithMode(mode gossa.BuilderMode) Configurer
}

// Config represents a build configuration.
type Config struct {
	badPkgs map[string]string
	mode    gossa.BuilderMode

	bldLog    io.Writer // Build log.
	bldLFlags int       // Build log flags.

	src interface{} // src points to the program source.
}

func newConfig(src interface{}) *Config {
	return &Config{
		badPkgs:   make(map[string]string),
		mode:      gossa.SanityCheckFunctions,
		bldLog:    ioutil.Discard,
		bldLFlags: log.LstdFlags,
		src:       src,
	}
}

// WithBuildLog adds build log to config.
func (c *Config) WithBuildLog(l io.Writer, flags int) Configurer {
	c.bldLog = l
	c.bldLFlags = flags
	return c
}

// WithMode sets the SSA builder mode.
func (c *Config) WithMode(mode gossa.BuilderMode) Configurer {
	c.mode = mode
	return c
}

// AddBadPkg marks a package 'bad' to avoid building its function bodies.
func (c *Config) AddBadPkg(pkg, reason string) Configurer {
	c.badPkgs[pkg] = reason
	return c
}

// Build parses, type checks and builds the SSA of the configured source.
func (c *Config) Build() (*ssa.Info, error) {
	bldLog := log.New(c.bldLog, "ssabuild: ", c.bldLFlags)
	switch src := c.src.(type) {
	case *PkgSrc:
		return c.buildPackages(src, bldLog)
	case *FileSrc:
		fset := token.NewFileSet()
		var files []*ast.File
		for _, name := range src.Files {
			f, err := parser.ParseFile(fset, name, nil, parser.ParseComments)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to parse file: %s", name)
			}
			files = append(files, f)
		}
		return c.buildFiles(fset, files, bldLog)
	case *CachedSrc:
		fset := token.NewFileSet()
		f, err := parser.ParseFile(fset, "tmp", src.NewReader(), parser.ParseComments)
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse source")
		}
		return c.buildFiles(fset, []*ast.File{f}, bldLog)
	}
	return nil, errors.Errorf("unknown source type %T", c.src)
}

// buildFiles builds a single package from parsed files. Imports are type
// checked from source but only the given package gets function bodies.
func (c *Config) buildFiles(fset *token.FileSet, files []*ast.File, bldLog *log.Logger) (*ssa.Info, error) {
	if len(files) == 0 {
		return nil, errors.New("no source files")
	}
	pkg := types.NewPackage(files[0].Name.Name, files[0].Name.Name)
	tc := &types.Config{Importer: importer.ForCompiler(fset, "source", nil)}
	ssaPkg, _, err := ssautil.BuildPackage(tc, fset, pkg, files, c.mode)
	if err != nil {
		return nil, errors.Wrap(err, "failed to type check")
	}
	bldLog.Print("Program loaded and type checked")
	return &ssa.Info{
		FSet:    fset,
		Prog:    ssaPkg.Prog,
		SrcPkgs: []*gossa.Package{ssaPkg},
		BldLog:  c.bldLog,
		Logger:  bldLog,
	}, nil
}

func (c *Config) buildPackages(src *PkgSrc, bldLog *log.Logger) (*ssa.Info, error) {
	cfg := &packages.Config{
		Dir:  src.Dir,
		Mode: packages.LoadAllSyntax,
		Fset: token.NewFileSet(),
	}
	initial, err := packages.Load(cfg, src.Patterns...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load packages")
	}
	if n := packages.PrintErrors(initial); n > 0 {
		return nil, errors.Errorf("%d errors loading packages", n)
	}
	bldLog.Print("Program loaded and type checked")

	prog, pkgs := ssautil.AllPackages(initial, c.mode)
	var ignoredPkgs []string
	for _, pkg := range prog.AllPackages() {
		if reason, badPkg := c.badPkgs[pkg.Pkg.Name()]; badPkg {
			bldLog.Printf("Skip package: %s (%s)", pkg.Pkg.Name(), reason)
			ignoredPkgs = append(ignoredPkgs, pkg.Pkg.Name())
			continue
		}
		pkg.Build()
	}
	var srcPkgs []*gossa.Package
	for _, pkg := range pkgs {
		if pkg != nil {
			srcPkgs = append(srcPkgs, pkg)
		}
	}
	return &ssa.Info{
		IgnoredPkgs: ignoredPkgs,
		FSet:        cfg.Fset,
		Prog:        prog,
		SrcPkgs:     srcPkgs,
		BldLog:      c.bldLog,
		Logger:      bldLog,
	}, nil
}

// Default returns a default configuration for static analysis.
func (c *Config) Default() Configurer {
	return c.
		AddBadPkg("reflect", "Reflection is not supported").
		AddBadPkg("runtime", "Runtime is ignored for static analysis")
}
