package poly

import (
	"testing"

	"github.com/pkg/errors"
)

func TestSetString(t *testing.T) {
	n := ID{Name: "n"}
	s := Universe(NewSetSpace([]ID{n}, 1)).SetTupleName("Stmt_body").LowerBound(0, 0)
	aff := ZeroAff(s.Space()).SetCoefficient(Param, 0, 1).AddConstant(-1)
	iv := ZeroAff(s.Space()).SetCoefficient(SetDim, 0, 1)
	s = s.Intersect(PwAffFromAff(iv).LeSet(PwAffFromAff(aff)))
	if want, got := "[n] -> { Stmt_body[i0] : i0 >= 0 and n >= i0 + 1 }", s.String(); want != got {
		t.Errorf("Set not printed correctly, want:\n%s\ngot:\n%s\n", want, got)
	}
}

func TestSetContains(t *testing.T) {
	s := Universe(NewSetSpace(nil, 2)).LowerBound(0, 0).UpperBound(0, 9).FixDim(1, 3)
	cases := []struct {
		point []int64
		want  bool
	}{
		{[]int64{0, 3}, true},
		{[]int64{9, 3}, true},
		{[]int64{10, 3}, false},
		{[]int64{-1, 3}, false},
		{[]int64{4, 2}, false},
	}
	for _, c := range cases {
		if got := s.Contains(nil, c.point); got != c.want {
			t.Errorf("Contains(%v) want: %v got: %v", c.point, c.want, got)
		}
	}
	if v, ok := s.FixedValue(1); !ok || v != 3 {
		t.Errorf("FixedValue(1) want: 3 got: %d (%v)", v, ok)
	}
	if _, ok := s.FixedValue(0); ok {
		t.Errorf("FixedValue(0) should not be fixed")
	}
}

func TestSetEmpty(t *testing.T) {
	s := Universe(NewSetSpace(nil, 1)).LowerBound(0, 5).UpperBound(0, 4)
	if !s.IsEmpty() {
		t.Errorf("i0 >= 5 and i0 <= 4 should be empty, got %s", s)
	}
	if Universe(NewSetSpace(nil, 1)).IsEmpty() {
		t.Errorf("universe should not be empty")
	}
}

// Emptiness that no pair of constraints shows on its own.
func TestSetEmptyElimination(t *testing.T) {
	n := ID{Name: "n"}
	space := NewSetSpace([]ID{n}, 1)
	iv := PwAffFromAff(ZeroAff(space).SetCoefficient(SetDim, 0, 1))
	param := PwAffFromAff(ZeroAff(space).SetCoefficient(Param, 0, 1))
	zero := PwAffFromAff(ZeroAff(space))

	s := Universe(space).LowerBound(0, 0).UpperBound(0, 0).
		Intersect(param.LeSet(zero)).
		Intersect(iv.LtSet(param))
	if !s.IsEmpty() {
		t.Errorf("i0 = 0 and n <= 0 and n >= i0 + 1 should be empty, got %s", s)
	}

	s = Universe(space).LowerBound(0, 0).Intersect(iv.LtSet(param))
	if s.IsEmpty() {
		t.Errorf("i0 >= 0 and n >= i0 + 1 should not be empty")
	}

	// 0 <= 2*i0 - n <= 0 and n = 1 has rational points only.
	two := PwAffFromAff(ZeroAff(space).SetCoefficient(SetDim, 0, 2))
	s = Universe(space).Intersect(two.EqSet(param)).
		Intersect(param.EqSet(PwAffFromAff(ZeroAff(space).AddConstant(1))))
	if !s.IsEmpty() {
		t.Errorf("2*i0 = n = 1 has no integer point, got %s", s)
	}
}

func TestMaxDropsEmptyPieces(t *testing.T) {
	n := ID{Name: "n"}
	space := NewSetSpace([]ID{n}, 1)
	iv := PwAffFromAff(ZeroAff(space).SetCoefficient(SetDim, 0, 1))
	param := PwAffFromAff(ZeroAff(space).SetCoefficient(Param, 0, 1))
	zero := PwAffFromAff(ZeroAff(space))

	// 0 <= i0 <= max(0, n) and i0 < n
	dom := Universe(space).Intersect(iv.NonnegSet()).
		Intersect(iv.LeSet(zero.Max(param))).
		Intersect(iv.LtSet(param))
	if want, got := 1, len(dom.parts); want != got {
		t.Errorf("expects %d disjunct, got %d: %s", want, got, dom)
	}
	for v := int64(-2); v <= 3; v++ {
		for i := int64(-1); i <= 4; i++ {
			if want, got := i >= 0 && i < v, dom.Contains([]int64{v}, []int64{i}); want != got {
				t.Errorf("n = %d, i0 = %d in %s want: %v got: %v", v, i, dom, want, got)
			}
		}
	}
}

func TestAlignParams(t *testing.T) {
	n, m := ID{Name: "n", Ref: 1}, ID{Name: "m", Ref: 2}
	a := Universe(NewSetSpace([]ID{n}, 1))
	a = a.Intersect(PwAffFromAff(ZeroAff(a.Space()).SetCoefficient(SetDim, 0, 1)).
		LtSet(PwAffFromAff(ZeroAff(a.Space()).SetCoefficient(Param, 0, 1))))
	b := Universe(NewSetSpace([]ID{m}, 1))
	b = b.Intersect(PwAffFromAff(ZeroAff(b.Space()).SetCoefficient(SetDim, 0, 1)).
		LtSet(PwAffFromAff(ZeroAff(b.Space()).SetCoefficient(Param, 0, 1))))

	ab := a.Intersect(b)
	if want, got := 2, ab.NParams(); want != got {
		t.Fatalf("intersection should carry both params, want: %d got: %d", want, got)
	}
	// n = 5, m = 3
	if !ab.Contains([]int64{5, 3}, []int64{2}) {
		t.Errorf("2 < min(5, 3) should be in %s", ab)
	}
	if ab.Contains([]int64{5, 3}, []int64{4}) {
		t.Errorf("4 < min(5, 3) should not be in %s", ab)
	}

	model := NewParamSpace([]ID{m, n})
	aligned := ab.AlignParams(model)
	if want, got := "m", aligned.Space().Params()[0].Name; want != got {
		t.Errorf("aligned params should follow the model, want: %s got: %s", want, got)
	}
	if !aligned.Contains([]int64{3, 5}, []int64{2}) {
		t.Errorf("alignment should keep points, %s", aligned)
	}
}

func TestPwAffMul(t *testing.T) {
	sp := NewSetSpace([]ID{{Name: "n"}}, 1)
	iv := PwAffFromAff(ZeroAff(sp).SetCoefficient(SetDim, 0, 1))
	four := PwAffFromAff(ZeroAff(sp).AddConstant(4))
	p, err := iv.Mul(four)
	if err != nil {
		t.Fatalf("constant product failed: %v", err)
	}
	if v, ok := p.Eval([]int64{0}, []int64{3}); !ok || v != 12 {
		t.Errorf("4*i0 at 3 want: 12 got: %d (%v)", v, ok)
	}
	n := PwAffFromAff(ZeroAff(sp).SetCoefficient(Param, 0, 1))
	if _, err := iv.Mul(n); errors.Cause(err) != ErrNonAffineProduct {
		t.Errorf("i0*n want: %v got: %v", ErrNonAffineProduct, err)
	}
}

func TestPwAffMax(t *testing.T) {
	sp := NewSetSpace([]ID{{Name: "n"}}, 0)
	n := PwAffFromAff(ZeroAff(sp).SetCoefficient(Param, 0, 1))
	zero := PwAffFromAff(ZeroAff(sp))
	m := n.Max(zero)
	if want, got := 2, m.NPieces(); want != got {
		t.Fatalf("smax(n, 0) should have %d pieces, got %d: %s", want, got, m)
	}
	for _, c := range []struct{ n, want int64 }{{-3, 0}, {0, 0}, {7, 7}} {
		if v, ok := m.Eval([]int64{c.n}, nil); !ok || v != c.want {
			t.Errorf("smax(%d, 0) want: %d got: %d (%v)", c.n, c.want, v, ok)
		}
	}
}

func TestPwAffScaleDown(t *testing.T) {
	sp := NewSetSpace(nil, 1)
	off := PwAffFromAff(ZeroAff(sp).SetCoefficient(SetDim, 0, 8)).ScaleDown(8)
	if want, got := "{ [i0] -> [i0] }", off.String(); want != got {
		t.Errorf("8*i0/8 want:\n%s\ngot:\n%s\n", want, got)
	}
	odd := PwAffFromAff(ZeroAff(sp).SetCoefficient(SetDim, 0, 2).AddConstant(1)).ScaleDown(2)
	if _, ok := odd.Eval(nil, []int64{1}); ok {
		t.Errorf("(2*i0+1)/2 should not be integral")
	}
}

func TestMapFromPwAff(t *testing.T) {
	sp := NewSetSpace(nil, 2).SetTupleName(SetDim, "Stmt_S")
	off := ZeroAff(sp).SetCoefficient(SetDim, 0, 10).SetCoefficient(SetDim, 1, 1)
	m := MapFromPwAff(PwAffFromAff(off)).SetTupleName(Out, "MemRef_a")
	if want, got := "{ Stmt_S[i0, i1] -> MemRef_a[o0] : 10*i0 + i1 = o0 }", m.String(); want != got {
		t.Errorf("access map want:\n%s\ngot:\n%s\n", want, got)
	}
	if !m.Contains(nil, []int64{2, 3}, []int64{23}) {
		t.Errorf("[2, 3] -> [23] should be in %s", m)
	}
	if d, ok := m.OutputDelta(0, 1); !ok || d != 1 {
		t.Errorf("delta of o0 over i1 want: 1 got: %d (%v)", d, ok)
	}
	if d, ok := m.OutputDelta(0, 0); !ok || d != 10 {
		t.Errorf("delta of o0 over i0 want: 10 got: %d (%v)", d, ok)
	}
	u := MapUniverse(NewMapSpace(nil, 2, 1))
	if _, ok := u.OutputDelta(0, 0); ok {
		t.Errorf("universe map has no delta")
	}
}

func TestMapScattering(t *testing.T) {
	m := MapUniverse(NewMapSpace(nil, 1, 5)).FixOut(0, 0).Equate(1, 0).FixOut(2, 1).FixOut(3, 0).FixOut(4, 0)
	if !m.Contains(nil, []int64{4}, []int64{0, 4, 1, 0, 0}) {
		t.Errorf("[4] -> [0, 4, 1, 0, 0] should be in %s", m)
	}
	if m.Contains(nil, []int64{4}, []int64{0, 3, 1, 0, 0}) {
		t.Errorf("[4] -> [0, 3, 1, 0, 0] should not be in %s", m)
	}
}
