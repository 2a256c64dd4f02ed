package region

import (
	"bytes"
	"strings"
	"testing"

	"github.com/nickng/polyscop/loop"
	"github.com/nickng/polyscop/ssa/build"
	"golang.org/x/tools/go/ssa"
)

func buildRegions(t *testing.T, src, name string) (*Info, *loop.Detector) {
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
	return Build(fn, d), d
}

func comments(elems []Element) []string {
	var out []string
	for _, e := range elems {
		if e.Region != nil {
			out = append(out, "["+e.Region.Entry().Comment+"]")
			continue
		}
		out = append(out, e.Block.Comment)
	}
	return out
}

func TestNestedRegions(t *testing.T) {
	src := `package main
	func f(a [][]int, n, m int) {
		for i := 0; i < n; i++ {
			for j := 0; j < m; j++ {
				a[i][j] = 0
			}
		}
		a[0][0] = 1
	}
	func main() {}`
	ri, d := buildRegions(t, src, "f")
	top := ri.TopLevel()
	if !top.IsTopLevel() || top.Exit() != nil {
		t.Errorf("top-level region should have no exit")
	}
	if want, got := "entry [for.loop] for.done", strings.Join(comments(top.Elements()), " "); want != got {
		t.Errorf("top-level elements want:\n%s\ngot:\n%s\n", want, got)
	}
	if want, got := 1, len(top.Children()); want != got {
		t.Fatalf("expects %d loop region, got %d", want, got)
	}
	outer := top.Children()[0]
	if outer.Loop() != d.Loops()[0] || outer.Parent() != top {
		t.Errorf("outer region should be the region of the outer loop")
	}
	if want, got := "for.done", outer.Exit().Comment; want != got {
		t.Errorf("outer exit want: %s got: %s", want, got)
	}
	if want, got := 1, len(outer.Children()); want != got {
		t.Fatalf("expects %d nested region, got %d", want, got)
	}
	inner := outer.Children()[0]
	innerLoop := inner.Loop()
	if want, got := innerLoop, ri.RegionFor(innerLoop.Header()).Loop(); want != got {
		t.Errorf("innermost region of the inner header should be the inner loop")
	}
	if got := outer.OutermostLoopInRegion(innerLoop); got != outer.Loop() {
		t.Errorf("outermost loop of inner in the outer region should be the outer loop")
	}
	if got := inner.OutermostLoopInRegion(innerLoop); got != innerLoop {
		t.Errorf("outermost loop of inner in its own region should be itself")
	}
	if got := inner.OutermostLoopInRegion(outer.Loop()); got != nil {
		t.Errorf("outer loop is not in the inner region")
	}
	if !outer.ContainsLoop(innerLoop) || inner.ContainsLoop(outer.Loop()) {
		t.Errorf("loop containment is wrong")
	}
	if want, got := len(ri.Func().Blocks), len(top.Blocks()); want != got {
		t.Errorf("top-level region should hold every block, want: %d got: %d", want, got)
	}
	var buf bytes.Buffer
	top.Print(&buf)
	if !strings.Contains(buf.String(), "[entry.0---FunctionExit]") {
		t.Errorf("region print should start with the top-level region, got:\n%s", buf.String())
	}
}

func TestBranchOrder(t *testing.T) {
	src := `package main
	func f(a []int, c bool) {
		if c {
			a[0] = 1
		} else {
			a[0] = 2
		}
		a[1] = 3
	}
	func main() {}`
	ri, _ := buildRegions(t, src, "f")
	if want, got := "entry if.then if.else if.done", strings.Join(comments(ri.TopLevel().Elements()), " "); want != got {
		t.Errorf("elements want:\n%s\ngot:\n%s\n", want, got)
	}
	var then, done *ssa.BasicBlock
	for _, b := range ri.Func().Blocks {
		switch b.Comment {
		case "if.then":
			then = b
		case "if.done":
			done = b
		}
	}
	entry := ri.Func().Blocks[0]
	if ri.IDom(done) != entry || !ri.Dominates(entry, then) {
		t.Errorf("entry should dominate both arms and the join")
	}
	if !ri.PostDominates(done, entry) || ri.PostDominates(then, entry) {
		t.Errorf("only the join post-dominates the entry")
	}
}
