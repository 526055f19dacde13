// Package solver computes the optimal allocation strategy by memoized
// backward induction over (period, health, cash) states.
package solver

import (
	"errors"
	"fmt"
	"hash"
	"strconv"

	"github.com/cespare/xxhash"

	"github.com/healthgame/hcdp/cache"
	"github.com/healthgame/hcdp/investgen"
	"github.com/healthgame/hcdp/mechanics"
	"github.com/healthgame/hcdp/state"
	"github.com/healthgame/hcdp/strategy"
)

var ErrCalibrationMismatch = errors.New("snapshot was computed under a different calibration")

// Solution is the result of solving a state: the best state to move to,
// the total enjoyment obtainable from here to the end of the game, and the
// enjoyment earned by the first move (rounded to one decimal).
type Solution struct {
	Next      state.State `json:"next" yaml:"next"`
	Value     float64     `json:"value" yaml:"value"`
	Immediate float64     `json:"immediate" yaml:"immediate"`
}

// Policy is what trajectory extraction and deviation analysis need from a
// solver. For stochastic solvers, Value is the expectation over shocks.
type Policy interface {
	Best(s state.State) Solution
	Horizon() int
	Fingerprint() uint64
}

// Solver is the deterministic solver. Its memo table is keyed by the
// post-transition state and belongs to this instance alone; a different
// calibration needs a different Solver.
type Solver struct {
	rules       *mechanics.Rules
	gen         investgen.Generator
	horizon     int
	table       *cache.Table[state.State, Solution]
	fingerprint uint64
}

// NewSolver builds a deterministic solver from its parts.
func NewSolver(rules *mechanics.Rules, gen investgen.Generator, horizon int) *Solver {
	return &Solver{
		rules:       rules,
		gen:         gen,
		horizon:     horizon,
		table:       cache.NewTable[state.State, Solution](),
		fingerprint: fingerprint(rules.Set(), gen, horizon, nil),
	}
}

// New builds the deterministic solver for a calibration.
func New(cal *strategy.Calibration, opts investgen.Options) (*Solver, error) {
	rules, gen, err := build(cal, opts)
	if err != nil {
		return nil, err
	}
	return NewSolver(rules, gen, cal.Horizon), nil
}

// NewPolicy returns a stochastic solver when the calibration has a shock
// model and a deterministic one otherwise.
func NewPolicy(cal *strategy.Calibration, opts investgen.Options) (Policy, error) {
	if cal.Stochastic() {
		ss, err := NewStochastic(cal, opts)
		if err != nil {
			return nil, err
		}
		return ss, nil
	}
	s, err := New(cal, opts)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func build(cal *strategy.Calibration, opts investgen.Options) (*mechanics.Rules, investgen.Generator, error) {
	if err := cal.Validate(); err != nil {
		return nil, nil, err
	}
	set, err := cal.Set()
	if err != nil {
		return nil, nil, err
	}
	rules := mechanics.NewRules(set)
	gen, err := investgen.New(cal.Policy, rules, opts)
	if err != nil {
		return nil, nil, err
	}
	return rules, gen, nil
}

func fingerprint(set *strategy.Set, gen investgen.Generator, horizon int, shock *strategy.Shock) uint64 {
	var h hash.Hash64 = xxhash.New()
	h.Write([]byte(set.String()))
	h.Write([]byte(";policy=" + gen.String()))
	h.Write([]byte(";horizon=" + strconv.Itoa(horizon)))
	if shock != nil {
		h.Write([]byte(fmt.Sprintf(";shock=%v/%d", shock.Probability, shock.Size)))
	}
	return h.Sum64()
}

func (s *Solver) Horizon() int        { return s.horizon }
func (s *Solver) Fingerprint() uint64 { return s.fingerprint }
func (s *Solver) Rules() *mechanics.Rules {
	return s.rules
}

// SetMultiThreadedMode makes the solver safe to call from several
// goroutines. Each state is still solved at most once.
func (s *Solver) SetMultiThreadedMode() {
	s.table.SetMultiThreadedMode()
	s.gen.SetMultiThreadedMode()
}

// Stats reports the memo table counters.
func (s *Solver) Stats() cache.TableStats {
	return s.table.Stats()
}

// Solve advances st by one period and picks the investment that maximizes
// immediate plus future enjoyment. If the advanced state is terminal, the
// solution carries it with zero value.
func (s *Solver) Solve(st state.State) Solution {
	next := s.rules.Transition(st)
	if next.Terminal(s.horizon) {
		return Solution{Next: next}
	}
	return s.table.GetOrCompute(next, func() Solution {
		return argmax(s.gen.Outcomes(next), func(o state.State) float64 {
			return s.Solve(o).Value
		})
	})
}

// Best is Solve; it lets the deterministic solver act as a Policy.
func (s *Solver) Best(st state.State) Solution {
	return s.Solve(st)
}

// argmax scans outcomes in order and keeps the first one with the strictly
// greatest immediate-plus-future value, so ties go to the earliest outcome.
func argmax(outcomes []state.Outcome, future func(state.State) float64) Solution {
	var best Solution
	for i, o := range outcomes {
		total := o.Utility + future(o.State)
		if i == 0 || total > best.Value {
			best = Solution{Next: o.State, Value: total, Immediate: o.Utility}
		}
	}
	best.Immediate = RoundTenth(best.Immediate)
	return best
}

// RoundTenth rounds to one decimal place. The exact binary value is rounded,
// and exact halves go to the even digit.
func RoundTenth(x float64) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(x, 'f', 1, 64), 64)
	if err != nil {
		return x
	}
	return r
}
