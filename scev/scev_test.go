package scev

import (
	"go/types"
	"strings"
	"testing"

	"github.com/nickng/polyscop/loop"
	"github.com/nickng/polyscop/ssa/build"
	"golang.org/x/tools/go/ssa"
)

func analyse(t *testing.T, src, name string) (*Evolution, *loop.Detector, *ssa.Function) {
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
	return New(fn, d, types.SizesFor("gc", "amd64")), d, fn
}

// wholeFunc is a region covering every block of a function.
type wholeFunc struct{}

func (wholeFunc) Contains(b *ssa.BasicBlock) bool { return true }
func (wholeFunc) ContainsLoop(l *loop.Info) bool  { return true }

func firstStoreAddr(fn *ssa.Function) ssa.Value {
	for _, b := range fn.Blocks {
		for _, instr := range b.Instrs {
			if st, ok := instr.(*ssa.Store); ok {
				return st.Addr
			}
		}
	}
	return nil
}

func TestInterning(t *testing.T) {
	src := `package main
	func f(n int) int { return n }
	func main() {}`
	ev, _, fn := analyse(t, src, "f")
	n := ev.SCEV(fn.Params[0])
	one, two := ev.Constant(1), ev.Constant(2)

	if got := ev.AddExpr(one, ev.Constant(2)); got != ev.Constant(3) {
		t.Errorf("1 + 2 want: 3 got: %s", got)
	}
	if ev.AddExpr(n, one) != ev.AddExpr(one, n) {
		t.Errorf("n + 1 and 1 + n should be the same expression")
	}
	if want, got := "(1 + %n)", ev.AddExpr(n, one).String(); want != got {
		t.Errorf("constant should come first, want: %s got: %s", want, got)
	}
	if got := ev.AddExpr(n, n); got != ev.MulExpr(two, n) {
		t.Errorf("n + n want: (2 * %%n) got: %s", got)
	}
	if got := ev.Minus(n, n); got != ev.Constant(0) {
		t.Errorf("n - n want: 0 got: %s", got)
	}
	if got := ev.MulExpr(two, ev.AddExpr(n, one)); got != ev.AddExpr(two, ev.MulExpr(two, n)) {
		t.Errorf("2 * (n + 1) should distribute, got: %s", got)
	}
	if got := ev.SMaxExpr(ev.Constant(-3), ev.Constant(4)); got != ev.Constant(4) {
		t.Errorf("smax(-3, 4) want: 4 got: %s", got)
	}
}

func TestAddRec(t *testing.T) {
	src := `package main
	func f(a []int, n int) {
		for i := 0; i < n; i++ {
			a[i] = 0
		}
	}
	func main() {}`
	ev, d, fn := analyse(t, src, "f")
	if want, got := 1, len(d.Loops()); want != got {
		t.Fatalf("expects %d loop, got %d", want, got)
	}
	l := d.Loops()[0]
	iv := ev.SCEV(l.IndexVar())
	if want, got := "{0,+,1}<"+l.NameStr()+">", iv.String(); want != got {
		t.Errorf("index evolution want:\n%s\ngot:\n%s\n", want, got)
	}
	if want, got := "(0 smax %n)", ev.BackedgeTakenCount(l).String(); want != got {
		t.Errorf("backedge-taken count want:\n%s\ngot:\n%s\n", want, got)
	}

	addr := firstStoreAddr(fn)
	e := ev.SCEVAtScope(addr, d.ForLoopAt(addr.(ssa.Instruction).Block()))
	if want, got := "{%a,+,8}<"+l.NameStr()+">", e.String(); want != got {
		t.Errorf("address evolution want:\n%s\ngot:\n%s\n", want, got)
	}
	base := ev.PointerBase(e)
	if want, got := "%a", base.String(); want != got {
		t.Fatalf("pointer base want: %s got: %s", want, got)
	}
	off := ev.Minus(e, base)
	if want, got := "{0,+,8}<"+l.NameStr()+">", off.String(); want != got {
		t.Errorf("offset want:\n%s\ngot:\n%s\n", want, got)
	}
	a := fn.Params[0]
	if !IsAffineExpr(wholeFunc{}, off, a) {
		t.Errorf("%s should be affine", off)
	}
	if IsAffineExpr(wholeFunc{}, e, a) {
		t.Errorf("%s uses the base address and should not be affine", e)
	}
}

func TestBackedgeTakenCount(t *testing.T) {
	src := `package main
	func up() {
		for i := 0; i < 10; i++ {
		}
	}
	func upto() {
		for i := 3; i <= 10; i += 2 {
		}
	}
	func down(n int) {
		for i := n; i > 0; i-- {
		}
	}
	func rng(a []int) {
		for i := range a {
			a[i] = i
		}
	}
	func brk(n int) {
		for i := 0; i < n; i++ {
			if i == 5 {
				break
			}
		}
	}
	func main() {}`
	tests := []struct {
		name string
		want string
	}{
		{"up", "10"},
		{"upto", "4"},
		{"down", "(0 smax %n)"},
		{"rng", "(0 smax %len_a)"},
		{"brk", "***COULDNOTCOMPUTE***"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			ev, d, _ := analyse(t, src, test.name)
			if len(d.Loops()) != 1 {
				t.Fatalf("expects 1 loop, got %d", len(d.Loops()))
			}
			if got := ev.BackedgeTakenCount(d.Loops()[0]).String(); test.want != got {
				t.Errorf("backedge-taken count want:\n%s\ngot:\n%s\n", test.want, got)
			}
		})
	}
}

func TestAtScope(t *testing.T) {
	src := `package main
	func f() int {
		i := 0
		for ; i < 10; i++ {
		}
		return i
	}
	func main() {}`
	ev, _, fn := analyse(t, src, "f")
	var ret *ssa.Return
	for _, b := range fn.Blocks {
		if r, ok := b.Instrs[len(b.Instrs)-1].(*ssa.Return); ok {
			ret = r
		}
	}
	if ret == nil {
		t.Fatal("no return found")
	}
	if want, got := "10", ev.SCEVAtScope(ret.Results[0], nil).String(); want != got {
		t.Errorf("exit value want: %s got: %s", want, got)
	}
}

func TestNonAffine(t *testing.T) {
	src := `package main
	func f(a []int, n int) {
		for i := 0; i < n; i++ {
			a[i*n] = 0
		}
	}
	func main() {}`
	ev, d, fn := analyse(t, src, "f")
	addr := firstStoreAddr(fn)
	e := ev.SCEVAtScope(addr, d.ForLoopAt(addr.(ssa.Instruction).Block()))
	off := ev.Minus(e, ev.PointerBase(e))
	if IsAffineExpr(wholeFunc{}, off, fn.Params[0]) {
		t.Errorf("%s has a parametric stride and should not be affine", off)
	}

	btc := ev.BackedgeTakenCount(d.Loops()[0])
	params := ParamsInAffineExpr(wholeFunc{}, btc)
	if want, got := 1, len(params); want != got {
		t.Fatalf("expects %d parameter in %s, got %d", want, btc, got)
	}
	if want, got := "%n", params[0].String(); want != got {
		t.Errorf("parameter want: %s got: %s", want, got)
	}
}
