// Package polyinfo finds the static control parts of the functions of a
// program and prints their polyhedral model.
package polyinfo

import (
	"context"
	"fmt"
	"go/types"
	"io"
	"io/ioutil"
	"runtime"
	"strings"

	"github.com/fatih/color"
	"github.com/nickng/polyscop/internal/logger"
	"github.com/nickng/polyscop/loop"
	"github.com/nickng/polyscop/region"
	"github.com/nickng/polyscop/scev"
	"github.com/nickng/polyscop/scop"
	"github.com/nickng/polyscop/ssa"
	"github.com/nickng/polyscop/tempscop"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	gossa "golang.org/x/tools/go/ssa"
	"golang.org/x/sync/errgroup"
)

// Format is the output format of an Analyser.
type Format int

const (
	Text     Format = iota // Polyhedral model of every Scop.
	YAML                   // Exported Scops, one document each.
	TempScop               // Loop bounds, conditions and accesses collected.
	Regions                // Region tree of every function.
)

var formatNames = []string{"text", "yaml", "tempscop", "regions"}

func (f Format) String() string {
	if int(f) < len(formatNames) {
		return formatNames[f]
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// ParseFormat returns the Format named s.
func ParseFormat(s string) (Format, error) {
	for i, name := range formatNames {
		if strings.EqualFold(s, name) {
			return Format(i), nil
		}
	}
	return Text, errors.Errorf("unknown format %q (want one of %s)", s, strings.Join(formatNames, ", "))
}

// Result is the outcome of one region.
type Result struct {
	Region   *region.Region
	TempScop *tempscop.TempScop // nil if collection failed.
	Scop     *scop.Scop         // nil if the region was rejected.
	Err      error              // Reason the region was rejected.
}

// funcResult holds the results of one function, in the order tried.
type funcResult struct {
	fn      *gossa.Function
	ri      *region.Info
	results []*Result
}

// Stats counts the outcome of an analysis.
type Stats struct {
	Funcs     int // Functions analysed.
	Regions   int // Regions tried.
	Scops     int // Scops with at least one statement.
	RichScops int // Scops with at least one loop.
	Rejected  int // Regions rejected.
}

// Analyser is the main entry point of the analysis.
type Analyser struct {
	Info        *ssa.Info // SSA IR.
	EntryFunc   string
	Format      Format
	LoopRegions bool // Also try the loops of a rejected region.
	Jobs        int  // Functions analysed at once, no limit if <= 0.

	sizes     types.Sizes
	stats     Stats
	rejected  error
	outWriter io.Writer // Output stream.
	errWriter io.Writer // Error stream.
	*logger.Logger
}

// New returns a new Analyser, and uses w for logging messages.
func New(info *ssa.Info, w io.Writer) *Analyser {
	a := Analyser{
		Info:      info,
		Format:    Text,
		Jobs:      runtime.NumCPU(),
		sizes:     types.SizesFor("gc", runtime.GOARCH),
		outWriter: ioutil.Discard,
		errWriter: ioutil.Discard,
		Logger:    newLogger(),
	}
	if w != nil {
		a.errWriter = w
	}
	return &a
}

// SetEntryFunc limits the analysis to the function at path.
func (a *Analyser) SetEntryFunc(path string) {
	a.EntryFunc = path
}

// SetArch sets the architecture that decides the size of values.
func (a *Analyser) SetArch(arch string) error {
	sizes := types.SizesFor("gc", arch)
	if sizes == nil {
		return errors.Errorf("unknown architecture %q", arch)
	}
	a.sizes = sizes
	return nil
}

// AddLogFiles extends current Logger and writes additional log to files.
func (a *Analyser) AddLogFiles(file ...string) {
	a.Logger = newFileLogger(file...)
}

// SetOutput sets the stream the results are written to.
func (a *Analyser) SetOutput(w io.Writer) {
	if w != nil {
		a.outWriter = w
	}
}

// Stats returns the counts of the last analysis.
func (a *Analyser) Stats() Stats { return a.stats }

// Rejected returns the reasons every region of the last analysis was
// rejected, or nil.
func (a *Analyser) Rejected() error { return a.rejected }

// Analyse builds the Scops of the functions and writes them out in function
// order.
func (a *Analyser) Analyse(ctx context.Context) error {
	// Sync error ignored. See https://github.com/uber-go/zap/issues/328
	defer a.Logger.Sync()

	fns, err := a.funcs()
	if err != nil {
		return err
	}
	a.stats, a.rejected = Stats{Funcs: len(fns)}, nil

	results := make([]*funcResult, len(fns))
	g, ctx := errgroup.WithContext(ctx)
	if a.Jobs > 0 {
		g.SetLimit(a.Jobs)
	}
	for i, fn := range fns {
		i, fn := i, fn
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = a.analyseFunc(fn)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return errors.Wrap(err, "analysis interrupted")
	}

	for _, fr := range results {
		a.count(fr)
		if err := a.write(fr); err != nil {
			return errors.Wrapf(err, "cannot write results of %s", fr.fn)
		}
	}
	a.Infof("%s %d functions: %d regions, %d scops, %d with loops, %d rejected",
		a.Module(), a.stats.Funcs, a.stats.Regions, a.stats.Scops, a.stats.RichScops, a.stats.Rejected)
	return nil
}

func (a *Analyser) funcs() ([]*gossa.Function, error) {
	if a.EntryFunc == "" {
		return a.Info.SrcFuncs(), nil
	}
	fn, err := a.Info.FindFunc(a.EntryFunc)
	if err != nil {
		return nil, errors.Wrap(err, "cannot find entry function")
	}
	return []*gossa.Function{fn}, nil
}

func (a *Analyser) analyseFunc(fn *gossa.Function) *funcResult {
	d := loop.NewDetector()
	d.SetLog(a.errWriter)
	d.Detect(fn)
	ri := region.Build(fn, d)
	se := scev.New(fn, d, a.sizes)
	c := tempscop.New(ri, d, se, tempscop.Sizes{Sizes: a.sizes})
	a.attach(c)

	fr := &funcResult{fn: fn, ri: ri}
	a.tryRegion(fr, ri.TopLevel(), c, d, se)
	return fr
}

// tryRegion builds the Scop of r, and of its loops if r is rejected and
// LoopRegions is set.
func (a *Analyser) tryRegion(fr *funcResult, r *region.Region, c *tempscop.Collector, d *loop.Detector, se *scev.Evolution) {
	res := &Result{Region: r}
	fr.results = append(fr.results, res)
	res.TempScop, res.Err = c.Build(r)
	if res.Err == nil {
		res.Scop, res.Err = scop.New(res.TempScop, fr.ri, d, se, scop.WithLogger(a.Logger))
	}
	if res.Err == nil {
		a.Debugf("%s Found %s in %s", a.Module(), r.NameStr(), fr.fn)
		return
	}
	a.Infof("%s Rejected %s in %s: %v", a.Module(), r.NameStr(), fr.fn, res.Err)
	if !a.LoopRegions {
		return
	}
	loops := d.Loops()
	if r.Loop() != nil {
		loops = r.Loop().Children()
	}
	for _, l := range loops {
		if child := fr.ri.RegionForLoop(l); child != nil {
			a.tryRegion(fr, child, c, d, se)
		}
	}
}

// attach makes the analyses log through the Logger of a.
func (a *Analyser) attach(ls ...logger.LogSetter) {
	for _, l := range ls {
		l.SetLogger(a.Logger)
	}
}

func (a *Analyser) count(fr *funcResult) {
	for _, res := range fr.results {
		a.stats.Regions++
		if res.Err != nil {
			a.stats.Rejected++
			a.rejected = multierr.Append(a.rejected, errors.Wrapf(res.Err, "%s", fr.fn))
			continue
		}
		if len(res.Scop.Stmts()) == 0 {
			continue
		}
		a.stats.Scops++
		if res.Scop.MaxLoopDepth() > 0 {
			a.stats.RichScops++
		}
	}
}

func (a *Analyser) write(fr *funcResult) error {
	w := a.outWriter
	if a.Format == Regions {
		fmt.Fprintf(w, "Function %s:\n", color.CyanString(fr.fn.String()))
		fr.ri.TopLevel().Print(w)
		return nil
	}
	for _, res := range fr.results {
		switch a.Format {
		case Text:
			if res.Err == nil && len(res.Scop.Stmts()) == 0 {
				continue
			}
			a.header(fr, res)
			if res.Err != nil {
				fmt.Fprintf(w, "%4sInvalid Scop: %v\n", "", res.Err)
				continue
			}
			res.Scop.Print(w)
		case YAML:
			if res.Err != nil || len(res.Scop.Stmts()) == 0 {
				continue
			}
			if _, err := io.WriteString(w, "---\n"); err != nil {
				return err
			}
			if err := res.Scop.WriteYAML(w); err != nil {
				return err
			}
		case TempScop:
			if res.TempScop == nil {
				continue
			}
			a.header(fr, res)
			res.TempScop.Print(w)
		default:
			return errors.Errorf("unknown format %v", a.Format)
		}
	}
	return nil
}

func (a *Analyser) header(fr *funcResult, res *Result) {
	fmt.Fprintf(a.outWriter, "Region %s in function %s:\n",
		color.CyanString(res.Region.NameStr()), color.CyanString(fr.fn.String()))
}
