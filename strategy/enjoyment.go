package strategy

import "fmt"

// ExponentialEnjoyment saturates exponentially in the investment. The
// ceiling is C*(Beta*health/100 + Mu), so healthier players enjoy more.
type ExponentialEnjoyment struct {
	Alpha float64
	Beta  float64
	Mu    float64
	C     float64
}

func (e ExponentialEnjoyment) Enjoy(investment, health int) float64 {
	if investment <= 0 {
		return 0
	}
	return e.C * (float64(e.Beta*(float64(health)/100.0)) + e.Mu) *
		(1 - exp(-e.Alpha*float64(investment)))
}

func (e ExponentialEnjoyment) String() string {
	return fmt.Sprintf("exponential(alpha=%v,beta=%v,mu=%v,c=%v)", e.Alpha, e.Beta, e.Mu, e.C)
}

// HyperbolicEnjoyment returns health * i/(i+J).
type HyperbolicEnjoyment struct {
	J float64
}

func (h HyperbolicEnjoyment) Enjoy(investment, health int) float64 {
	if investment <= 0 {
		return 0
	}
	inv := float64(investment)
	return float64(health) * (inv / (inv + h.J))
}

func (h HyperbolicEnjoyment) String() string {
	return fmt.Sprintf("hyperbolic(j=%v)", h.J)
}
