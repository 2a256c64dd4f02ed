package tempscop

import (
	"bytes"
	"go/token"
	"go/types"
	"strings"
	"testing"

	"github.com/nickng/polyscop/loop"
	"github.com/nickng/polyscop/region"
	"github.com/nickng/polyscop/scev"
	"github.com/nickng/polyscop/ssa/build"
	"golang.org/x/tools/go/ssa"
)

type fixture struct {
	fn    *ssa.Function
	loops *loop.Detector
	ri    *region.Info
	c     *Collector
}

func setup(t *testing.T, src, name string) *fixture {
	info, err := build.FromReader(strings.NewReader(src)).Default().Build()
	if err != nil {
		t.Fatalf("cannot build SSA: %v", err)
	}
	fn, err := info.FindFunc(name)
	if err != nil {
		t.Fatalf("cannot find function %s: %v", name, err)
	}
	d := loop.NewDetector()
	d.Detect(fn)
	sizes := types.SizesFor("gc", "amd64")
	ri := region.Build(fn, d)
	se := scev.New(fn, d, sizes)
	return &fixture{fn: fn, loops: d, ri: ri, c: New(ri, d, se, Sizes{sizes})}
}

func (f *fixture) block(comment string) *ssa.BasicBlock {
	for _, b := range f.fn.Blocks {
		if b.Comment == comment {
			return b
		}
	}
	return nil
}

func TestSingleLoop(t *testing.T) {
	src := `package main
	func f(a []int, n int) {
		for i := 0; i < n; i++ {
			a[i] = 0
		}
	}
	func main() {}`
	f := setup(t, src, "f")
	ts, err := f.c.Build(f.ri.TopLevel())
	if err != nil {
		t.Fatalf("cannot build: %v", err)
	}
	l := f.loops.Loops()[0]
	if want, got := 1, ts.MaxLoopDepth(); want != got {
		t.Errorf("max loop depth want: %d got: %d", want, got)
	}
	if want, got := "(0 smax %n)", ts.LoopBound(l).String(); want != got {
		t.Errorf("loop bound want: %s got: %s", want, got)
	}
	body := f.block("for.body")
	accs := ts.AccessFunctions(body)
	if want, got := 1, len(accs); want != got {
		t.Fatalf("expects %d access in body, got %d", want, got)
	}
	acc := accs[0].Access
	if acc.Kind != Write || !acc.Affine || acc.ElemSize != 8 || acc.Base != f.fn.Params[0] {
		t.Errorf("unexpected access %+v", acc)
	}
	if _, ok := accs[0].Instr.(*ssa.Store); !ok {
		t.Errorf("access should come from the store, got %s", accs[0].Instr)
	}

	var buf bytes.Buffer
	ts.Print(&buf)
	lname := l.NameStr()
	want := "Scop: entry.0---FunctionExit, Max Loop Depth: 1\n" +
		"BB: " + region.BlockName(body) + "\n" +
		"  Cond: {0,+,1}<" + lname + "> < %n\n" +
		"  Write a[{0,+,8}<" + lname + ">]\n"
	if got := buf.String(); want != got {
		t.Errorf("TempScop not printed correctly, want:\n%s\ngot:\n%s\n", want, got)
	}
	for _, b := range []*ssa.BasicBlock{f.fn.Blocks[0], l.Header(), f.block("for.done")} {
		if ts.AccessFunctions(b) != nil {
			t.Errorf("%s should be trivial", region.BlockName(b))
		}
		if ts.BBCond(b) != nil {
			t.Errorf("%s should execute unconditionally, got %s", region.BlockName(b), ts.BBCond(b))
		}
	}
}

func TestConditions(t *testing.T) {
	src := `package main
	func f(a []int, n int) {
		for i := 0; i < n; i++ {
			if i > 2 {
				a[i] = 1
			} else {
				a[i] = 2
			}
		}
	}
	func main() {}`
	f := setup(t, src, "f")
	ts, err := f.c.Build(f.ri.TopLevel())
	if err != nil {
		t.Fatalf("cannot build: %v", err)
	}
	iv := "{0,+,1}<" + f.loops.Loops()[0].NameStr() + ">"
	tests := []struct {
		block string
		want  string
	}{
		{"for.body", iv + " < %n"},
		{"if.then", iv + " < %n && " + iv + " > 2"},
		{"if.else", iv + " < %n && " + iv + " <= 2"},
		{"if.done", iv + " < %n"},
		{"for.post", iv + " < %n"},
	}
	for _, test := range tests {
		b := f.block(test.block)
		if b == nil {
			t.Fatalf("no block %s", test.block)
		}
		if got := ts.BBCond(b).String(); test.want != got {
			t.Errorf("condition of %s want:\n%s\ngot:\n%s\n", test.block, test.want, got)
		}
	}
}

func TestScalarDependence(t *testing.T) {
	src := `package main
	func f(a []int, p *int, n int) {
		x := *p
		for i := 0; i < n; i++ {
			a[i] = x
		}
	}
	func main() {}`
	f := setup(t, src, "f")
	ts, err := f.c.Build(f.ri.TopLevel())
	if err != nil {
		t.Fatalf("cannot build: %v", err)
	}
	entry := ts.AccessFunctions(f.fn.Blocks[0])
	if want, got := 2, len(entry); want != got {
		t.Fatalf("expects %d accesses in entry, got %d", want, got)
	}
	if entry[0].Access.Kind != Read || entry[0].Access.Base != f.fn.Params[1] {
		t.Errorf("entry should read p first, got %+v", entry[0].Access)
	}
	write := entry[1].Access
	if write.Kind != ScalarWrite || !write.IsScalar() || write.ElemSize != 1 || !write.Affine {
		t.Errorf("entry should write x as a scalar, got %+v", write)
	}
	body := ts.AccessFunctions(f.block("for.body"))
	if want, got := 2, len(body); want != got {
		t.Fatalf("expects %d accesses in body, got %d", want, got)
	}
	read := body[0].Access
	if read.Kind != ScalarRead || read.Base != write.Base {
		t.Errorf("body should read the scalar written by entry, got %+v", read)
	}
	if body[1].Access.Kind != Write {
		t.Errorf("body should then write a, got %+v", body[1].Access)
	}
}

func TestSynthesizable(t *testing.T) {
	src := `package main
	func f(a []int, n int) {
		m := n * 2
		for i := 0; i < n; i++ {
			a[i] = m + i
		}
	}
	func main() {}`
	f := setup(t, src, "f")
	ts, err := f.c.Build(f.ri.TopLevel())
	if err != nil {
		t.Fatalf("cannot build: %v", err)
	}
	if accs := ts.AccessFunctions(f.fn.Blocks[0]); accs != nil {
		t.Errorf("n * 2 can be recomputed and needs no scalar write, got %d accesses", len(accs))
	}
	body := ts.AccessFunctions(f.block("for.body"))
	if want, got := 1, len(body); want != got {
		t.Errorf("expects only the store in body, got %d accesses", got)
	}
}

func TestReductionUnsupported(t *testing.T) {
	src := `package main
	func f(a []int) int {
		s := 0
		for i := 0; i < len(a); i++ {
			s += a[i]
		}
		return s
	}
	func main() {}`
	f := setup(t, src, "f")
	_, err := f.c.Build(f.ri.TopLevel())
	if _, ok := err.(*UnsupportedError); !ok {
		t.Errorf("a reduction through a phi should be unsupported, got %v", err)
	}
}

func TestNestedDepth(t *testing.T) {
	src := `package main
	func f(a *[16][16]int, n, m int) {
		for i := 0; i < n; i++ {
			for j := 0; j < m; j++ {
				a[i][j] = 0
			}
		}
	}
	func main() {}`
	f := setup(t, src, "f")
	ts, err := f.c.Build(f.ri.TopLevel())
	if err != nil {
		t.Fatalf("cannot build: %v", err)
	}
	if want, got := 2, ts.MaxLoopDepth(); want != got {
		t.Errorf("max loop depth want: %d got: %d", want, got)
	}
	inner := f.ri.TopLevel().Children()[0].Children()[0]
	ts, err = f.c.Build(inner)
	if err != nil {
		t.Fatalf("cannot build inner region: %v", err)
	}
	if want, got := 1, ts.MaxLoopDepth(); want != got {
		t.Errorf("max loop depth of the inner region want: %d got: %d", want, got)
	}
}

// a[i] is loaded on every iteration, so a[i][j] has no fixed base.
func TestBaseInRegion(t *testing.T) {
	src := `package main
	func f(a [][]int, n, m int) {
		for i := 0; i < n; i++ {
			for j := 0; j < m; j++ {
				a[i][j] = 0
			}
		}
	}
	func main() {}`
	f := setup(t, src, "f")
	_, err := f.c.Build(f.ri.TopLevel())
	u, ok := err.(*UnsupportedError)
	if !ok {
		t.Fatalf("a base loaded inside the region should be unsupported, got %v", err)
	}
	if !strings.Contains(u.Msg, "base pointer") {
		t.Errorf("error should name the base pointer, got %s", u.Msg)
	}
	inner := f.ri.TopLevel().Children()[0].Children()[0]
	if _, err := f.c.Build(inner); err == nil {
		t.Errorf("the inner loop loads a[i] too and should be unsupported")
	}
}

func TestPred(t *testing.T) {
	for p := EQ; p <= UGE; p++ {
		if p.Inverse().Inverse() != p {
			t.Errorf("inverse of inverse of %s should be itself", p)
		}
	}
	if p, ok := predFor(token.LSS, true); !ok || p != ULT {
		t.Errorf("unsigned < want: %s got: %s", ULT, p)
	}
	if _, ok := predFor(token.ADD, false); ok {
		t.Errorf("+ is not a comparison")
	}
	if want, got := "<u", ULT.String(); want != got {
		t.Errorf("want: %s got: %s", want, got)
	}
}
