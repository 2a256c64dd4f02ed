package poly

import (
	"bytes"
	"fmt"
	"strings"
)

// constraint is coef·x + cst = 0 (eq) or coef·x + cst >= 0.
// Columns follow Space.col: params, then in, then out dimensions.
type constraint struct {
	eq   bool
	coef []int64
	cst  int64
}

type normStatus int

const (
	keep normStatus = iota
	tautology
	contradiction
)

func (c constraint) clone() constraint {
	coef := make([]int64, len(c.coef))
	copy(coef, c.coef)
	return constraint{eq: c.eq, coef: coef, cst: c.cst}
}

func (c constraint) eval(vals []int64) int64 {
	v := c.cst
	for i, a := range c.coef {
		if a != 0 {
			v += a * vals[i]
		}
	}
	return v
}

func (c constraint) holds(vals []int64) bool {
	if c.eq {
		return c.eval(vals) == 0
	}
	return c.eval(vals) >= 0
}

// normalize divides by the gcd of the coefficients (flooring the constant of
// an inequality, which keeps every integer point) and fixes the sign of
// equalities so equal constraints compare equal.
func (c constraint) normalize() (constraint, normStatus) {
	var g int64
	for _, a := range c.coef {
		g = gcd(g, abs(a))
	}
	if g == 0 {
		if (c.eq && c.cst == 0) || (!c.eq && c.cst >= 0) {
			return c, tautology
		}
		return c, contradiction
	}
	n := c.clone()
	if g > 1 {
		if n.eq {
			if n.cst%g != 0 {
				return c, contradiction
			}
			n.cst /= g
		} else {
			n.cst = floorDiv(n.cst, g)
		}
		for i := range n.coef {
			n.coef[i] /= g
		}
	}
	if n.eq {
		for _, a := range n.coef {
			if a == 0 {
				continue
			}
			if a < 0 {
				for i := range n.coef {
					n.coef[i] = -n.coef[i]
				}
				n.cst = -n.cst
			}
			break
		}
	}
	return n, keep
}

func (c constraint) equal(o constraint) bool {
	if c.eq != o.eq || c.cst != o.cst || len(c.coef) != len(o.coef) {
		return false
	}
	for i := range c.coef {
		if c.coef[i] != o.coef[i] {
			return false
		}
	}
	return true
}

// opposes returns true if c and o are inequalities with negated coefficients.
func (c constraint) opposes(o constraint) bool {
	if c.eq || o.eq || len(c.coef) != len(o.coef) {
		return false
	}
	for i := range c.coef {
		if c.coef[i] != -o.coef[i] {
			return false
		}
	}
	return true
}

// remap moves parameter columns to pos and widens the row to ncols.
func (c constraint) remap(np int, pos []int, ncols int) constraint {
	coef := make([]int64, ncols)
	for i, a := range c.coef {
		if i < np {
			coef[pos[i]] = a
		} else {
			coef[ncols-(len(c.coef)-i)] = a
		}
	}
	return constraint{eq: c.eq, coef: coef, cst: c.cst}
}

func (c constraint) format(names []string) string {
	var lhs, rhs []string
	lhsVars, rhsVars := 0, 0
	for i, a := range c.coef {
		switch {
		case a > 0:
			lhs = append(lhs, term(a, names[i]))
			lhsVars++
		case a < 0:
			rhs = append(rhs, term(-a, names[i]))
			rhsVars++
		}
	}
	if c.cst > 0 {
		lhs = append(lhs, fmt.Sprintf("%d", c.cst))
	} else if c.cst < 0 {
		rhs = append(rhs, fmt.Sprintf("%d", -c.cst))
	}
	if len(lhs) == 0 {
		lhs = []string{"0"}
	}
	if len(rhs) == 0 {
		rhs = []string{"0"}
	}
	op, rop := ">=", "<="
	if c.eq {
		op, rop = "=", "="
	}
	if lhsVars == 0 && rhsVars > 0 {
		return strings.Join(rhs, " + ") + " " + rop + " " + strings.Join(lhs, " + ")
	}
	return strings.Join(lhs, " + ") + " " + op + " " + strings.Join(rhs, " + ")
}

func term(a int64, name string) string {
	if a == 1 {
		return name
	}
	return fmt.Sprintf("%d*%s", a, name)
}

// basic is a conjunction of constraints.
type basic struct {
	cons []constraint
}

func (b basic) clone() basic {
	cons := make([]constraint, len(b.cons))
	for i, c := range b.cons {
		cons[i] = c.clone()
	}
	return basic{cons: cons}
}

// add returns b ∧ c. The result is false if the conjunction is infeasible.
func (b basic) add(cs ...constraint) (basic, bool) {
	out := basic{cons: make([]constraint, 0, len(b.cons)+len(cs))}
	out.cons = append(out.cons, b.cons...)
	for _, c := range cs {
		n, st := c.normalize()
		switch st {
		case tautology:
			continue
		case contradiction:
			return basic{}, false
		}
		dup := false
		for _, e := range out.cons {
			if e.equal(n) {
				dup = true
				break
			}
			// x + c1 >= 0 and -x + c2 >= 0 need c1 + c2 >= 0.
			if e.opposes(n) && e.cst+n.cst < 0 {
				return basic{}, false
			}
		}
		if !dup {
			out.cons = append(out.cons, n)
		}
	}
	if !out.feasible() {
		return basic{}, false
	}
	return out, true
}

// maxElimRows bounds the rows of one elimination step. A conjunction that
// grows past it is kept as feasible.
const maxElimRows = 1024

// feasible eliminates the columns of b one at a time (Fourier-Motzkin) and
// returns false if a contradiction is derived. Every derived row is
// tightened to integers, so b has no integer point when it returns false.
func (b basic) feasible() bool {
	var rows []constraint
	for _, c := range b.cons {
		if !c.eq {
			rows = append(rows, c)
			continue
		}
		// a = 0 is a >= 0 and -a >= 0.
		neg := constraint{coef: make([]int64, len(c.coef)), cst: -c.cst}
		for i, a := range c.coef {
			neg.coef[i] = -a
		}
		rows = append(rows, constraint{coef: c.coef, cst: c.cst}, neg)
	}
	if len(rows) == 0 {
		return true
	}
	ncols := len(rows[0].coef)
	for col := 0; col < ncols; col++ {
		var lower, upper, next []constraint
		for _, r := range rows {
			switch {
			case r.coef[col] > 0:
				lower = append(lower, r)
			case r.coef[col] < 0:
				upper = append(upper, r)
			default:
				next = append(next, r)
			}
		}
		if len(next)+len(lower)*len(upper) > maxElimRows {
			return true
		}
		for _, l := range lower {
			for _, u := range upper {
				a, c := l.coef[col], -u.coef[col]
				comb := constraint{coef: make([]int64, ncols), cst: c*l.cst + a*u.cst}
				for i := range comb.coef {
					comb.coef[i] = c*l.coef[i] + a*u.coef[i]
				}
				n, st := comb.normalize()
				switch st {
				case contradiction:
					return false
				case tautology:
					continue
				}
				dup := false
				for _, e := range next {
					if e.equal(n) {
						dup = true
						break
					}
				}
				if !dup {
					next = append(next, n)
				}
			}
		}
		rows = next
	}
	return true
}

func (b basic) and(o basic) (basic, bool) {
	return b.add(o.cons...)
}

func (b basic) contains(vals []int64) bool {
	for _, c := range b.cons {
		if !c.holds(vals) {
			return false
		}
	}
	return true
}

func (b basic) remap(np int, pos []int, ncols int) basic {
	out := basic{cons: make([]constraint, len(b.cons))}
	for i, c := range b.cons {
		out.cons[i] = c.remap(np, pos, ncols)
	}
	return out
}

func (b basic) format(names []string) string {
	var buf bytes.Buffer
	for i, c := range b.cons {
		if i > 0 {
			buf.WriteString(" and ")
		}
		buf.WriteString(c.format(names))
	}
	return buf.String()
}

// insertCols inserts n zero columns before column at.
func (b basic) insertCols(at, n int) basic {
	out := basic{cons: make([]constraint, len(b.cons))}
	for i, c := range b.cons {
		coef := make([]int64, 0, len(c.coef)+n)
		coef = append(coef, c.coef[:at]...)
		coef = append(coef, make([]int64, n)...)
		coef = append(coef, c.coef[at:]...)
		out.cons[i] = constraint{eq: c.eq, coef: coef, cst: c.cst}
	}
	return out
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func abs(a int64) int64 {
	if a < 0 {
		return -a
	}
	return a
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
