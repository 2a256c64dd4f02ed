// Command polyinfo is the command line entry point to the polyhedral
// analysis of Go source code.
package main

import (
	"context"
	"flag"
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/nickng/polyscop/polyinfo"
	"github.com/nickng/polyscop/ssa/build"
	"go.uber.org/multierr"
)

const (
	Usage = `polyinfo is a tool for finding the static control parts of Go functions
and printing their polyhedral model.

Usage:

  polyinfo [options] file.go [files.go...]
  polyinfo [options] -pkg pattern [patterns...]

Options:

`
)

var (
	logPath     string
	entryFunc   string
	format      string
	arch        string
	jobs        int
	loopRegions bool
	fromPkgs    bool
	showSSA     bool
	showAllSSA  bool
	useColor    bool
	strict      bool
	logFile     string
	logWriter   = ioutil.Discard
)

func init() {
	flag.StringVar(&logPath, "log", "", "Specify analysis log file (use '-' for stderr)")
	flag.StringVar(&entryFunc, "func", "", "Analyse only this function (e.g. main.kernel)")
	flag.StringVar(&format, "format", "text", "Output format: text, yaml, tempscop or regions")
	flag.StringVar(&arch, "arch", "", "Architecture for the size of values (default host)")
	flag.IntVar(&jobs, "j", 0, "Functions analysed at once (default number of CPUs)")
	flag.BoolVar(&loopRegions, "loops", false, "Try each loop of a rejected function")
	flag.BoolVar(&fromPkgs, "pkg", false, "Arguments are package patterns")
	flag.BoolVar(&showSSA, "ssa", false, "Print SSA IR of the source packages first")
	flag.BoolVar(&showAllSSA, "ssa-all", false, "Print SSA IR of every package, dependencies included, first")
	flag.BoolVar(&useColor, "color", false, "Colour output on a terminal")
	flag.BoolVar(&strict, "strict", false, "Exit with status 1 if any region is rejected")
}

func main() {
	flag.Parse()
	if flag.NArg() == 0 {
		fmt.Fprintf(os.Stderr, Usage)
		flag.PrintDefaults()
		os.Exit(0)
	}
	outFormat, err := polyinfo.ParseFormat(format)
	if err != nil {
		log.Fatal(err)
	}

	conf := build.FromFiles(flag.Args()).Default()
	if fromPkgs {
		conf = build.FromPackages(".", flag.Args()...).Default()
	}
	switch logPath {
	case "":
	case "-":
		logWriter = os.Stderr
		conf = conf.WithBuildLog(logWriter, log.LstdFlags)
	default:
		f, err := os.Create(logPath)
		if err != nil {
			log.Fatalf("Cannot create log %s: %v", logPath, err)
		}
		defer f.Close()
		conf = conf.WithBuildLog(f, log.LstdFlags)
		logWriter = f
		logFile = f.Name()
	}
	info, err := conf.Build()
	if err != nil {
		log.Fatal("Build failed:", err)
	}
	switch {
	case showAllSSA:
		if _, err := info.WriteAll(os.Stdout); err != nil {
			log.Fatal("Cannot write SSA:", err)
		}
	case showSSA:
		if _, err := info.WriteTo(os.Stdout); err != nil {
			log.Fatal("Cannot write SSA:", err)
		}
	}

	analyser := polyinfo.New(info, logWriter)
	if logFile != "" {
		analyser.AddLogFiles(logFile)
	}
	color.NoColor = !useColor || !isatty.IsTerminal(os.Stdout.Fd())
	analyser.SetOutput(os.Stdout)
	analyser.SetEntryFunc(entryFunc)
	analyser.Format = outFormat
	analyser.LoopRegions = loopRegions
	if jobs > 0 {
		analyser.Jobs = jobs
	}
	if arch != "" {
		if err := analyser.SetArch(arch); err != nil {
			log.Fatal(err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := analyser.Analyse(ctx); err != nil {
		log.Fatal("Analysis failed:", err)
	}
	if strict && analyser.Rejected() != nil {
		for _, err := range multierr.Errors(analyser.Rejected()) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
