package strategy

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrIncompleteSet    = errors.New("strategy set is missing a function")
	ErrUnknownKind      = errors.New("unknown formula kind")
	ErrUnknownPreset    = errors.New("unknown calibration preset")
	ErrMalformedParams  = errors.New("malformed parameter file")
	ErrInvalidStart     = errors.New("start state must have exactly three values")
	ErrInvalidHorizon   = errors.New("horizon must be positive")
	ErrInvalidShockProb = errors.New("shock probability must be within [0, 1]")
)

const (
	PolicyPlateau = "plateau"
	PolicyBanked  = "banked"
)

// Params holds the coefficients of one formula. Only the fields relevant
// to Kind are read.
type Params struct {
	Kind string `yaml:"kind" json:"kind"`

	// sigmoid regeneration
	Gamma float64 `yaml:"gamma,omitempty" json:"gamma,omitempty"`
	Sigma float64 `yaml:"sigma,omitempty" json:"sigma,omitempty"`
	R     float64 `yaml:"r,omitempty" json:"r,omitempty"`
	// deficit regeneration
	D float64 `yaml:"d,omitempty" json:"d,omitempty"`
	K float64 `yaml:"k,omitempty" json:"k,omitempty"`
	// exponential enjoyment
	Alpha float64 `yaml:"alpha,omitempty" json:"alpha,omitempty"`
	Beta  float64 `yaml:"beta,omitempty" json:"beta,omitempty"`
	Mu    float64 `yaml:"mu,omitempty" json:"mu,omitempty"`
	C     float64 `yaml:"c,omitempty" json:"c,omitempty"`
	// hyperbolic enjoyment
	J float64 `yaml:"j,omitempty" json:"j,omitempty"`
	// linear degeneration
	Intercept float64 `yaml:"intercept,omitempty" json:"intercept,omitempty"`
	Slope     float64 `yaml:"slope,omitempty" json:"slope,omitempty"`
	Threshold int     `yaml:"threshold,omitempty" json:"threshold,omitempty"`
	// shock-round degeneration
	Base   int   `yaml:"base,omitempty" json:"base,omitempty"`
	Extra  int   `yaml:"extra,omitempty" json:"extra,omitempty"`
	Rounds []int `yaml:"rounds,omitempty" json:"rounds,omitempty"`
	// proportional harvest
	Max float64 `yaml:"max,omitempty" json:"max,omitempty"`
}

// Shock describes the stochastic adverse event: with Probability per round,
// health drops by a further Size points.
type Shock struct {
	Probability float64 `yaml:"probability" json:"probability"`
	Size        int     `yaml:"size" json:"size"`
}

// Calibration is everything needed to build a solver: the strategy
// coefficients, horizon, starting state and enumeration policy.
type Calibration struct {
	Name         string `yaml:"name" json:"name"`
	Horizon      int    `yaml:"horizon" json:"horizon"`
	Start        []int  `yaml:"start" json:"start"`
	Policy       string `yaml:"policy" json:"policy"`
	Regeneration Params `yaml:"regeneration" json:"regeneration"`
	Enjoyment    Params `yaml:"enjoyment" json:"enjoyment"`
	Degeneration Params `yaml:"degeneration" json:"degeneration"`
	Harvest      Params `yaml:"harvest" json:"harvest"`
	Shock        *Shock `yaml:"shock,omitempty" json:"shock,omitempty"`
}

// Validate checks the structural fields. Coefficients themselves are trusted.
func (c *Calibration) Validate() error {
	if c.Horizon <= 0 {
		return ErrInvalidHorizon
	}
	if len(c.Start) != 3 {
		return ErrInvalidStart
	}
	switch c.Policy {
	case "", PolicyPlateau, PolicyBanked:
	default:
		return fmt.Errorf("%w: policy %q", ErrUnknownKind, c.Policy)
	}
	if c.Shock != nil && (c.Shock.Probability < 0 || c.Shock.Probability > 1) {
		return ErrInvalidShockProb
	}
	_, err := c.Set()
	return err
}

// Stochastic reports whether the calibration carries a shock model.
func (c *Calibration) Stochastic() bool {
	return c.Shock != nil
}

// Set builds the strategy functions described by the calibration.
func (c *Calibration) Set() (*Set, error) {
	set := &Set{}
	var err error
	if set.Regeneration, err = c.Regeneration.regenerator(); err != nil {
		return nil, err
	}
	if set.Enjoyment, err = c.Enjoyment.enjoyer(); err != nil {
		return nil, err
	}
	if set.Degeneration, err = c.Degeneration.degenerator(); err != nil {
		return nil, err
	}
	if set.Harvest, err = c.Harvest.harvester(); err != nil {
		return nil, err
	}
	return set, set.validate()
}

func (p Params) regenerator() (Regenerator, error) {
	switch p.Kind {
	case "sigmoid":
		return SigmoidRegeneration{Gamma: p.Gamma, Sigma: p.Sigma, R: p.R}, nil
	case "deficit":
		return DeficitRegeneration{D: p.D, K: p.K}, nil
	}
	return nil, fmt.Errorf("%w: regeneration %q", ErrUnknownKind, p.Kind)
}

func (p Params) enjoyer() (Enjoyer, error) {
	switch p.Kind {
	case "exponential":
		return ExponentialEnjoyment{Alpha: p.Alpha, Beta: p.Beta, Mu: p.Mu, C: p.C}, nil
	case "hyperbolic":
		return HyperbolicEnjoyment{J: p.J}, nil
	}
	return nil, fmt.Errorf("%w: enjoyment %q", ErrUnknownKind, p.Kind)
}

func (p Params) degenerator() (Degenerator, error) {
	switch p.Kind {
	case "linear":
		return LinearDegeneration{Intercept: p.Intercept, Slope: p.Slope, Threshold: p.Threshold}, nil
	case "shockround":
		rounds := append([]int(nil), p.Rounds...)
		sort.Ints(rounds)
		return ShockRoundDegeneration{Base: p.Base, Extra: p.Extra, Rounds: rounds}, nil
	}
	return nil, fmt.Errorf("%w: degeneration %q", ErrUnknownKind, p.Kind)
}

func (p Params) harvester() (Harvester, error) {
	switch p.Kind {
	case "proportional", "":
		return ProportionalHarvest{Max: p.Max}, nil
	}
	return nil, fmt.Errorf("%w: harvest %q", ErrUnknownKind, p.Kind)
}
