package strategy

import "fmt"

// SigmoidRegeneration is a logistic curve with a saturation of Gamma points.
// R is the investment at which the curve reaches its midpoint, and Sigma
// controls its steepness.
type SigmoidRegeneration struct {
	Gamma float64
	Sigma float64
	R     float64
}

func (s SigmoidRegeneration) Regenerate(investment, health int) int {
	if investment <= 0 {
		return 0
	}
	inv := float64(investment)
	regain := int(s.Gamma * ((1 - exp(-s.Sigma*inv)) /
		(1 + exp(-s.Sigma*(inv-s.R)))))
	return max(regain, 0)
}

func (s SigmoidRegeneration) String() string {
	return fmt.Sprintf("sigmoid(gamma=%v,sigma=%v,r=%v)", s.Gamma, s.Sigma, s.R)
}

// DeficitRegeneration scales the regained health with the deficit below 100.
// D penalises investment at low health and K is the half-saturation
// investment.
type DeficitRegeneration struct {
	D float64
	K float64
}

func (d DeficitRegeneration) Regenerate(investment, health int) int {
	if investment <= 0 {
		return 0
	}
	inv := float64(investment)
	h := float64(health)
	regain := int((100 - h) * ((inv - float64(d.D*(1-(h/100)))) / (inv + d.K)))
	return max(regain, 0)
}

func (d DeficitRegeneration) ReadsHealth() bool { return true }

func (d DeficitRegeneration) String() string {
	return fmt.Sprintf("deficit(d=%v,k=%v)", d.D, d.K)
}
