package solver

import (
	"github.com/healthgame/hcdp/cache"
	"github.com/healthgame/hcdp/investgen"
	"github.com/healthgame/hcdp/mechanics"
	"github.com/healthgame/hcdp/state"
	"github.com/healthgame/hcdp/strategy"
)

// Branches is the stochastic memo entry. Normal is the best move when no
// shock happens this period, Hit the best move after a shock, and Expected
// the probability-weighted value of the two.
type Branches struct {
	Normal   Solution `json:"normal" yaml:"normal"`
	Hit      Solution `json:"hit" yaml:"hit"`
	Expected float64  `json:"expected" yaml:"expected"`
}

// StochasticSolver extends the deterministic model with a per-period shock.
// After the period transition, with probability p health drops by a further
// fixed amount before the player decides.
type StochasticSolver struct {
	rules       *mechanics.Rules
	gen         investgen.Generator
	horizon     int
	shock       strategy.Shock
	table       *cache.Table[state.State, Branches]
	fingerprint uint64
}

func NewStochasticSolver(rules *mechanics.Rules, gen investgen.Generator, horizon int,
	shock strategy.Shock) *StochasticSolver {

	return &StochasticSolver{
		rules:       rules,
		gen:         gen,
		horizon:     horizon,
		shock:       shock,
		table:       cache.NewTable[state.State, Branches](),
		fingerprint: fingerprint(rules.Set(), gen, horizon, &shock),
	}
}

// NewStochastic builds the stochastic solver for a calibration. A
// calibration without a shock model yields a solver that never shocks.
func NewStochastic(cal *strategy.Calibration, opts investgen.Options) (*StochasticSolver, error) {
	rules, gen, err := build(cal, opts)
	if err != nil {
		return nil, err
	}
	var shock strategy.Shock
	if cal.Shock != nil {
		shock = *cal.Shock
	}
	return NewStochasticSolver(rules, gen, cal.Horizon, shock), nil
}

func (s *StochasticSolver) Horizon() int            { return s.horizon }
func (s *StochasticSolver) Fingerprint() uint64     { return s.fingerprint }
func (s *StochasticSolver) Shock() strategy.Shock   { return s.shock }
func (s *StochasticSolver) Rules() *mechanics.Rules { return s.rules }
func (s *StochasticSolver) Stats() cache.TableStats { return s.table.Stats() }

func (s *StochasticSolver) SetMultiThreadedMode() {
	s.table.SetMultiThreadedMode()
	s.gen.SetMultiThreadedMode()
}

// Branches solves both branches from st. The future value of every
// candidate move is the child's blended expectation, never a single
// branch's value.
func (s *StochasticSolver) Branches(st state.State) Branches {
	next := s.rules.Transition(st)
	hit := mechanics.Hit(next, s.shock.Size)
	if next.Terminal(s.horizon) {
		return Branches{Normal: Solution{Next: next}, Hit: Solution{Next: hit}}
	}
	return s.table.GetOrCompute(next, func() Branches {
		normal := s.solveBranch(next)
		// The hit state is played like any other, even at zero health:
		// the round's investment can still regenerate the player.
		hb := s.solveBranch(hit)
		p := s.shock.Probability
		return Branches{
			Normal:   normal,
			Hit:      hb,
			Expected: (1-p)*normal.Value + p*hb.Value,
		}
	})
}

func (s *StochasticSolver) solveBranch(post state.State) Solution {
	return argmax(s.gen.Outcomes(post), func(o state.State) float64 {
		return s.Branches(o).Expected
	})
}

// Best reports the no-shock move with the expected value of st.
func (s *StochasticSolver) Best(st state.State) Solution {
	b := s.Branches(st)
	return Solution{Next: b.Normal.Next, Value: b.Expected, Immediate: b.Normal.Immediate}
}

// BestAfterShock reports the move taken when the shock does hit, with the
// expected value of st.
func (s *StochasticSolver) BestAfterShock(st state.State) Solution {
	b := s.Branches(st)
	return Solution{Next: b.Hit.Next, Value: b.Expected, Immediate: b.Hit.Immediate}
}
