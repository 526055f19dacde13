package strategy

import (
	"fmt"
	"math"
	"slices"
)

// LinearDegeneration removes round(Intercept + Slope*round) health each
// round. Past the Threshold round the slope doubles.
type LinearDegeneration struct {
	Intercept float64
	Slope     float64
	Threshold int
}

func (l LinearDegeneration) Degenerate(health, round int) int {
	var loss float64
	if round <= l.Threshold {
		loss = l.Intercept + (l.Slope * float64(round))
	} else {
		loss = l.Intercept + (2 * l.Slope * float64(round))
	}
	return max(health-int(math.RoundToEven(loss)), 0)
}

func (l LinearDegeneration) String() string {
	return fmt.Sprintf("linear(intercept=%v,slope=%v,threshold=%d)", l.Intercept, l.Slope, l.Threshold)
}

// ShockRoundDegeneration removes a flat Base each round, plus Extra on each
// of the listed shock rounds.
type ShockRoundDegeneration struct {
	Base   int
	Extra  int
	Rounds []int
}

func (s ShockRoundDegeneration) Degenerate(health, round int) int {
	if slices.Contains(s.Rounds, round) {
		return max(health-(s.Base+s.Extra), 0)
	}
	return max(health-s.Base, 0)
}

func (s ShockRoundDegeneration) String() string {
	return fmt.Sprintf("shockround(base=%d,extra=%d,rounds=%v)", s.Base, s.Extra, s.Rounds)
}

// ProportionalHarvest earns Max cash at full health, scaled linearly.
type ProportionalHarvest struct {
	Max float64
}

func (p ProportionalHarvest) Harvest(health int) int {
	return int(math.RoundToEven(p.Max * float64(health) / 100))
}

func (p ProportionalHarvest) String() string {
	return fmt.Sprintf("proportional(max=%v)", p.Max)
}
