package strategy

import "math"

// exp returns e**x rounded to the nearest float64. math.Exp is only good to
// an ulp, and the solver's argmax can turn on that last bit.
//
// The reduction and series run in double-double arithmetic: x = k*ln2 + r,
// r is scaled by 2**-8, e**r is summed by Horner and then squared back up.
func exp(x float64) float64 {
	switch {
	case math.IsNaN(x):
		return x
	case x > 709.782712893384:
		return math.Inf(1)
	case x < -745.1332191019412:
		return 0
	case x == 0:
		return 1
	}
	k := math.Round(x / ln2.hi)
	r := ln2.mulF(-k).add(dd{x, 0})
	r = dd{math.Ldexp(r.hi, -expSquarings), math.Ldexp(r.lo, -expSquarings)}

	t := dd{1, 0}
	for n := expTerms; n >= 1; n-- {
		t = r.mul(t).divF(float64(n)).add(dd{1, 0})
	}
	for i := 0; i < expSquarings; i++ {
		t = t.mul(t)
	}
	return math.Ldexp(t.hi+t.lo, int(k))
}

const (
	expTerms     = 12
	expSquarings = 8
)

var ln2 = dd{0.6931471805599453, 2.3190468138462996e-17}

// dd is an unevaluated sum hi+lo with |lo| <= ulp(hi)/2.
type dd struct {
	hi, lo float64
}

func twoSum(a, b float64) (float64, float64) {
	s := a + b
	bb := s - a
	return s, (a - (s - bb)) + (b - bb)
}

func quickTwoSum(a, b float64) dd {
	s := a + b
	return dd{s, b - (s - a)}
}

func twoProd(a, b float64) (float64, float64) {
	p := a * b
	return p, math.FMA(a, b, -p)
}

func (x dd) add(y dd) dd {
	s, e := twoSum(x.hi, y.hi)
	t, f := twoSum(x.lo, y.lo)
	e += t
	r := quickTwoSum(s, e)
	r.lo += f
	return quickTwoSum(r.hi, r.lo)
}

func (x dd) mul(y dd) dd {
	p, e := twoProd(x.hi, y.hi)
	e += float64(x.hi*y.lo) + float64(x.lo*y.hi)
	return quickTwoSum(p, e)
}

func (x dd) mulF(f float64) dd {
	p, e := twoProd(x.hi, f)
	e += float64(x.lo * f)
	return quickTwoSum(p, e)
}

func (x dd) divF(f float64) dd {
	q1 := x.hi / f
	p, e := twoProd(q1, f)
	s, t := twoSum(x.hi, -p)
	t -= e
	t += x.lo
	q2 := (s + t) / f
	return quickTwoSum(q1, q2)
}
