package scop

import (
	"strings"
	"testing"

	"github.com/nickng/polyscop/scev"
	"github.com/nickng/polyscop/tempscop"
	"github.com/pkg/errors"
)

// translate runs PwAff and returns the UnsupportedError it raises, if any.
func translate(st *Stmt, e scev.Expr) (err error) {
	defer tempscop.RecoverUnsupported(&err)
	PwAff(st, e)
	return nil
}

func TestTranslate(t *testing.T) {
	src := `package main
	func f(a []int, n, m int) {
		for i := 0; i < n; i++ {
			a[i] = 0
		}
	}
	func main() {}`
	f := setup(t, src, "f")
	s := f.mustScop(t)
	st := f.stmt(t, s, "for.body")
	se := f.se
	iv := se.SCEV(f.loops.Loops()[0].IndexVar())
	if _, ok := iv.(*scev.AddRec); !ok {
		t.Fatalf("index variable should be a recurrence, got %s", iv)
	}
	n, m := se.Unknown(f.fn.Params[1]), se.Unknown(f.fn.Params[2])

	p := PwAff(st, se.AddExpr(iv, n, se.Constant(3)))
	if v, ok := p.Eval([]int64{10}, []int64{4}); !ok || v != 17 {
		t.Errorf("i + n + 3 at i = 4, n = 10 want: 17 got: %d (%v)", v, ok)
	}

	tests := []struct {
		name string
		expr scev.Expr
	}{
		{"ZeroExtend", se.ZeroExtendExpr(iv, 128)},
		{"Truncate", se.TruncateExpr(iv, 32)},
		{"UDiv", se.UDivExpr(iv, se.Constant(2))},
		{"UMax", se.UMaxExpr(iv, n)},
		{"ProductOfParams", se.MulExpr(n, m)},
		{"CouldNotCompute", se.CouldNotCompute()},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := translate(st, test.expr)
			if _, ok := err.(*UnsupportedError); !ok {
				t.Errorf("%s should be unsupported, got %v", test.expr, err)
			}
		})
	}
}

func TestUnsupportedRegions(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string // In the error message.
	}{
		{"ValueInRegion", `package main
	func f(a []int, n int) {
		for i := 0; i < n; i++ {
			if a[i] > 0 {
				a[i] = 0
			}
		}
	}
	func main() {}`, "is computed inside"},
		{"UnsignedCondition", `package main
	func f(a []int, n int, x, y uint) {
		for i := 0; i < n; i++ {
			if x < y {
				a[i] = 0
			}
		}
	}
	func main() {}`, "unsigned comparison"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			f := setup(t, test.src, "f")
			s, err := f.scop()
			if err == nil {
				var buf strings.Builder
				s.Print(&buf)
				t.Fatalf("region should be rejected, got:\n%s\n", buf.String())
			}
			if _, ok := errors.Cause(err).(*UnsupportedError); !ok {
				t.Errorf("expects *UnsupportedError, got %T: %v", errors.Cause(err), err)
			}
			if !strings.Contains(err.Error(), test.want) {
				t.Errorf("error should contain %q, got %v", test.want, err)
			}
		})
	}
}
