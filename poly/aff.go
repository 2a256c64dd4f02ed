package poly

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrNonAffineProduct is returned when multiplying two non-constant
// piecewise-affine functions.
var ErrNonAffineProduct = errors.New("poly: product of two non-constant affine functions")

// Aff is an affine function (coef·x + cst) / den over a set space, where x
// ranges over the parameters and the set dimensions. den is positive.
type Aff struct {
	space Space
	coef  []int64
	cst   int64
	den   int64
}

// ZeroAff returns the constant 0 on the set space.
func ZeroAff(space Space) *Aff {
	return &Aff{space: space.clone(), coef: make([]int64, space.ncols()), den: 1}
}

func (a *Aff) clone() *Aff {
	coef := make([]int64, len(a.coef))
	copy(coef, a.coef)
	return &Aff{space: a.space.clone(), coef: coef, cst: a.cst, den: a.den}
}

// Space returns the domain space of a.
func (a *Aff) Space() Space { return a.space }

// AddConstant returns a + v.
func (a *Aff) AddConstant(v int64) *Aff {
	out := a.clone()
	out.cst += v * out.den
	return out.normalize()
}

// SetCoefficient returns a with the coefficient of a parameter or set
// dimension replaced by v.
func (a *Aff) SetCoefficient(t DimType, pos int, v int64) *Aff {
	out := a.clone()
	out.coef[out.space.col(t, pos)] = v * out.den
	return out.normalize()
}

// Coefficient returns the coefficient of a dimension as num/den.
func (a *Aff) Coefficient(t DimType, pos int) (num, den int64) {
	return a.coef[a.space.col(t, pos)], a.den
}

// Constant returns the constant term as num/den.
func (a *Aff) Constant() (num, den int64) { return a.cst, a.den }

// IsCst returns true if a does not depend on any dimension.
func (a *Aff) IsCst() bool {
	for _, c := range a.coef {
		if c != 0 {
			return false
		}
	}
	return true
}

func (a *Aff) normalize() *Aff {
	g := abs(a.den)
	g = gcd(g, abs(a.cst))
	for _, c := range a.coef {
		g = gcd(g, abs(c))
	}
	if g > 1 {
		for i := range a.coef {
			a.coef[i] /= g
		}
		a.cst /= g
		a.den /= g
	}
	return a
}

func (a *Aff) alignTo(params []ID) *Aff {
	space, pos := a.space.alignedTo(params)
	c := constraint{coef: a.coef, cst: a.cst}.remap(a.space.NParams(), pos, space.ncols())
	return &Aff{space: space, coef: c.coef, cst: a.cst, den: a.den}
}

func (a *Aff) add(b *Aff) *Aff {
	out := &Aff{space: a.space.clone(), coef: make([]int64, len(a.coef)), den: a.den * b.den}
	for i := range a.coef {
		out.coef[i] = a.coef[i]*b.den + b.coef[i]*a.den
	}
	out.cst = a.cst*b.den + b.cst*a.den
	return out.normalize()
}

// scale returns a·num/den.
func (a *Aff) scale(num, den int64) *Aff {
	out := a.clone()
	for i := range out.coef {
		out.coef[i] *= num
	}
	out.cst *= num
	out.den *= den
	if out.den < 0 {
		for i := range out.coef {
			out.coef[i] = -out.coef[i]
		}
		out.cst = -out.cst
		out.den = -out.den
	}
	return out.normalize()
}

// diff returns the constraint row den_b·a − den_a·b, which has the sign of
// a − b at every point.
func (a *Aff) diff(b *Aff) constraint {
	c := constraint{coef: make([]int64, len(a.coef))}
	for i := range a.coef {
		c.coef[i] = a.coef[i]*b.den - b.coef[i]*a.den
	}
	c.cst = a.cst*b.den - b.cst*a.den
	return c
}

func (a *Aff) eval(vals []int64) (num, den int64) {
	return constraint{coef: a.coef, cst: a.cst}.eval(vals), a.den
}

func (a *Aff) format(names []string) string {
	var terms []string
	for i, c := range a.coef {
		switch {
		case c == 1:
			terms = append(terms, names[i])
		case c == -1:
			terms = append(terms, "-"+names[i])
		case c != 0:
			terms = append(terms, fmt.Sprintf("%d*%s", c, names[i]))
		}
	}
	if a.cst != 0 || len(terms) == 0 {
		terms = append(terms, fmt.Sprintf("%d", a.cst))
	}
	s := strings.Replace(strings.Join(terms, " + "), "+ -", "- ", -1)
	if a.den != 1 {
		return fmt.Sprintf("(%s)/%d", s, a.den)
	}
	return s
}

func (a *Aff) String() string {
	return a.space.paramPrefix() + "{ " + a.space.tuple(SetDim) + " -> [" + a.format(a.space.names()) + "] }"
}

// piece is one case of a piecewise-affine function.
type piece struct {
	dom basic
	aff *Aff
}

// PwAff is a piecewise-affine function: a finite list of disjoint-domain
// cases over one set space.
type PwAff struct {
	space  Space
	pieces []piece
}

// PwAffFromAff returns a defined everywhere on its space.
func PwAffFromAff(a *Aff) *PwAff {
	return &PwAff{space: a.space.clone(), pieces: []piece{{aff: a.clone()}}}
}

// Copy returns an independent copy of p.
func (p *PwAff) Copy() *PwAff {
	out := &PwAff{space: p.space.clone(), pieces: make([]piece, len(p.pieces))}
	for i, pc := range p.pieces {
		out.pieces[i] = piece{dom: pc.dom.clone(), aff: pc.aff.clone()}
	}
	return out
}

// Space returns the domain space of p.
func (p *PwAff) Space() Space { return p.space }

// NPieces returns the number of cases.
func (p *PwAff) NPieces() int { return len(p.pieces) }

// Aff returns the affine function of case i.
func (p *PwAff) Aff(i int) *Aff { return p.pieces[i].aff.clone() }

// IsCst returns true if every case is constant.
func (p *PwAff) IsCst() bool {
	for _, pc := range p.pieces {
		if !pc.aff.IsCst() {
			return false
		}
	}
	return true
}

// AlignParams returns p expressed over the parameters of model, followed by
// any parameters of p that model does not have.
func (p *PwAff) AlignParams(model Space) *PwAff {
	space, pos := p.space.alignedTo(model.params)
	out := &PwAff{space: space, pieces: make([]piece, len(p.pieces))}
	for i, pc := range p.pieces {
		out.pieces[i] = piece{
			dom: pc.dom.remap(p.space.NParams(), pos, space.ncols()),
			aff: pc.aff.alignTo(model.params),
		}
	}
	return out
}

func (p *PwAff) alignPair(q *PwAff) (*PwAff, *PwAff) {
	if p.space.nOut != q.space.nOut {
		panic("poly: combining affine functions of different dimensions")
	}
	if p.space.paramsEqual(q.space) {
		return p, q
	}
	params := NewParamSpace(unionParams(p.space.params, q.space.params))
	return p.AlignParams(params), q.AlignParams(params)
}

// combine applies fn to every pair of cases whose domains intersect.
func (p *PwAff) combine(q *PwAff, fn func(dom basic, a, b *Aff) []piece) *PwAff {
	a, b := p.alignPair(q)
	out := &PwAff{space: a.space.clone()}
	for _, pa := range a.pieces {
		for _, pb := range b.pieces {
			dom, ok := pa.dom.and(pb.dom)
			if !ok {
				continue
			}
			out.pieces = append(out.pieces, fn(dom, pa.aff, pb.aff)...)
		}
	}
	return out
}

// Add returns p + q.
func (p *PwAff) Add(q *PwAff) *PwAff {
	return p.combine(q, func(dom basic, a, b *Aff) []piece {
		return []piece{{dom: dom, aff: a.add(b)}}
	})
}

// Mul returns p · q. In every pair of cases at least one side must be
// constant, otherwise ErrNonAffineProduct is returned.
func (p *PwAff) Mul(q *PwAff) (*PwAff, error) {
	var err error
	out := p.combine(q, func(dom basic, a, b *Aff) []piece {
		switch {
		case a.IsCst():
			return []piece{{dom: dom, aff: b.scale(a.cst, a.den)}}
		case b.IsCst():
			return []piece{{dom: dom, aff: a.scale(b.cst, b.den)}}
		}
		err = ErrNonAffineProduct
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Max returns the pointwise maximum of p and q.
func (p *PwAff) Max(q *PwAff) *PwAff {
	return p.combine(q, func(dom basic, a, b *Aff) []piece {
		var pcs []piece
		ge := a.diff(b)
		if d, ok := dom.add(ge); ok {
			pcs = append(pcs, piece{dom: d, aff: a.clone()})
		}
		lt := b.diff(a)
		lt.cst--
		if d, ok := dom.add(lt); ok {
			pcs = append(pcs, piece{dom: d, aff: b.clone()})
		}
		return pcs
	})
}

// ScaleDown returns p / d.
func (p *PwAff) ScaleDown(d int64) *PwAff {
	out := p.Copy()
	for i := range out.pieces {
		out.pieces[i].aff = out.pieces[i].aff.scale(1, d)
	}
	return out
}

// Eval returns the value of p at the given point if it is defined there and
// integral.
func (p *PwAff) Eval(params, point []int64) (int64, bool) {
	vals := append(append([]int64{}, params...), point...)
	if len(vals) != p.space.ncols() {
		return 0, false
	}
	for _, pc := range p.pieces {
		if !pc.dom.contains(vals) {
			continue
		}
		num, den := pc.aff.eval(vals)
		if num%den != 0 {
			return 0, false
		}
		return num / den, true
	}
	return 0, false
}

// cmpSet returns the set where rel(p, q) holds; rel builds the constraints
// from the row that has the sign of a − b.
func (p *PwAff) cmpSet(q *PwAff, rel func(ab, ba constraint) []constraint) *Set {
	a, b := p.alignPair(q)
	out := &Set{space: a.space.clone()}
	for _, pa := range a.pieces {
		for _, pb := range b.pieces {
			dom, ok := pa.dom.and(pb.dom)
			if !ok {
				continue
			}
			for _, c := range rel(pa.aff.diff(pb.aff), pb.aff.diff(pa.aff)) {
				if d, ok := dom.add(c); ok {
					out.parts = append(out.parts, d)
				}
			}
		}
	}
	return out
}

func strict(c constraint) constraint {
	c.cst--
	return c
}

// LeSet returns { x : p(x) <= q(x) }.
func (p *PwAff) LeSet(q *PwAff) *Set {
	return p.cmpSet(q, func(ab, ba constraint) []constraint { return []constraint{ba} })
}

// LtSet returns { x : p(x) < q(x) }.
func (p *PwAff) LtSet(q *PwAff) *Set {
	return p.cmpSet(q, func(ab, ba constraint) []constraint { return []constraint{strict(ba)} })
}

// GeSet returns { x : p(x) >= q(x) }.
func (p *PwAff) GeSet(q *PwAff) *Set {
	return p.cmpSet(q, func(ab, ba constraint) []constraint { return []constraint{ab} })
}

// GtSet returns { x : p(x) > q(x) }.
func (p *PwAff) GtSet(q *PwAff) *Set {
	return p.cmpSet(q, func(ab, ba constraint) []constraint { return []constraint{strict(ab)} })
}

// EqSet returns { x : p(x) = q(x) }.
func (p *PwAff) EqSet(q *PwAff) *Set {
	return p.cmpSet(q, func(ab, ba constraint) []constraint {
		ab.eq = true
		return []constraint{ab}
	})
}

// NeSet returns { x : p(x) != q(x) } as the union of < and >.
func (p *PwAff) NeSet(q *PwAff) *Set {
	return p.cmpSet(q, func(ab, ba constraint) []constraint {
		return []constraint{strict(ba), strict(ab)}
	})
}

// NonnegSet returns { x : p(x) >= 0 }.
func (p *PwAff) NonnegSet() *Set {
	return p.GeSet(PwAffFromAff(ZeroAff(p.space)))
}

func (p *PwAff) String() string {
	var buf bytes.Buffer
	buf.WriteString(p.space.paramPrefix())
	buf.WriteString("{ ")
	names := p.space.names()
	for i, pc := range p.pieces {
		if i > 0 {
			buf.WriteString("; ")
		}
		buf.WriteString(p.space.tuple(SetDim))
		buf.WriteString(" -> [")
		buf.WriteString(pc.aff.format(names))
		buf.WriteString("]")
		if len(pc.dom.cons) > 0 {
			buf.WriteString(" : ")
			buf.WriteString(pc.dom.format(names))
		}
	}
	buf.WriteString(" }")
	return buf.String()
}
