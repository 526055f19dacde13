// Package montecarlo plays the stochastic optimal policy many times with
// random shocks, to check the solver's expected value against realized
// outcomes.
package montecarlo

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"lukechampine.com/frand"

	"github.com/healthgame/hcdp/config"
	"github.com/healthgame/hcdp/solver"
	"github.com/healthgame/hcdp/state"
	"github.com/healthgame/hcdp/stats"
)

/*
	How to simulate:

	For iteration in iterations:
		seed an RNG from (seed, iteration)
		state = start
		For round in 1..horizon:
			solve state; draw u
			if u < p take the move for the shocked branch, else the normal one
			add the move's exact enjoyment to the total
			stop if the game is over

	Each iteration owns its RNG, so the totals do not depend on the number
	of threads or the order in which they run.
*/

// Options controls a simulation.
type Options struct {
	Iterations int
	Threads    int
	Seed       uint64
	// CI is the confidence level, in percent, of the reported interval.
	CI float64
}

func DefaultOptions() Options {
	return Options{Iterations: 1000, Threads: 1, Seed: frand.Uint64n(math.MaxUint64), CI: 99}
}

// OptionsFromConfig reads iterations, threads and seed from cfg. An empty
// seed picks a random one.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	opts := DefaultOptions()
	if n := cfg.GetInt(config.ConfigSimIterations); n > 0 {
		opts.Iterations = n
	}
	if t := cfg.GetInt(config.ConfigThreads); t > 0 {
		opts.Threads = t
	}
	if s := cfg.GetString(config.ConfigSimSeed); s != "" {
		seed, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return opts, fmt.Errorf("bad %s %q: %w", config.ConfigSimSeed, s, err)
		}
		opts.Seed = seed
	}
	return opts, nil
}

// Play is the outcome of one simulated game.
type Play struct {
	Total  float64 `json:"total" yaml:"total"`
	Shocks int     `json:"shocks" yaml:"shocks"`
	Died   bool    `json:"died" yaml:"died"`
	Final  state.State `json:"final" yaml:"final"`
}

// Result summarizes a simulation.
type Result struct {
	Start      state.State    `json:"start" yaml:"start"`
	Iterations int            `json:"iterations" yaml:"iterations"`
	Seed       uint64         `json:"seed" yaml:"seed"`
	Expected   float64        `json:"expected" yaml:"expected"`
	Mean       float64        `json:"mean" yaml:"mean"`
	Stdev      float64        `json:"stdev" yaml:"stdev"`
	Min        float64        `json:"min" yaml:"min"`
	Max        float64        `json:"max" yaml:"max"`
	CI         stats.Interval `json:"ci" yaml:"ci"`
	MeanShocks float64        `json:"mean_shocks" yaml:"mean_shocks"`
	Deaths     int            `json:"deaths" yaml:"deaths"`
	// Totals holds each iteration's realized enjoyment, in iteration order.
	Totals []float64 `json:"-" yaml:"-"`
}

// ExpectedInInterval reports whether the solver's expectation falls inside
// the simulated confidence interval.
func (r *Result) ExpectedInInterval() bool {
	return r.CI.Contains(r.Expected)
}

// Simulator plays a stochastic policy.
type Simulator struct {
	policy *solver.StochasticSolver
	opts   Options

	iterationCount atomic.Uint64
}

func New(policy *solver.StochasticSolver, opts Options) *Simulator {
	if opts.Threads < 1 {
		opts.Threads = 1
	}
	if opts.CI <= 0 {
		opts.CI = 99
	}
	return &Simulator{policy: policy, opts: opts}
}

func (s *Simulator) Iterations() int {
	return int(s.iterationCount.Load())
}

// rngFor derives the RNG of one iteration.
func (s *Simulator) rngFor(iteration uint64) *frand.RNG {
	var seed [32]byte
	binary.LittleEndian.PutUint64(seed[0:8], s.opts.Seed)
	binary.LittleEndian.PutUint64(seed[8:16], iteration)
	return frand.NewCustom(seed[:], 1024, 12)
}

// PlayOnce plays a single game from start, drawing shocks from rng.
func (s *Simulator) PlayOnce(rng *frand.RNG, start state.State) Play {
	p := s.policy.Shock().Probability
	horizon := s.policy.Horizon()
	cur := start
	var play Play
	for cur.Period < horizon {
		b := s.policy.Branches(cur)
		chosen := b.Normal
		if rng.Float64() < p {
			chosen = b.Hit
			play.Shocks++
		}
		cur = chosen.Next
		// Immediate is rounded for reporting; the exact enjoyment is what
		// is left once the child's expectation is taken out. A dead child
		// expects nothing.
		play.Total += chosen.Value - s.policy.Branches(cur).Expected
		if cur.Terminal(horizon) {
			play.Died = cur.Health <= 0
			break
		}
	}
	play.Final = cur
	return play
}

// Simulate runs the configured number of iterations on a worker pool.
func (s *Simulator) Simulate(ctx context.Context, start state.State) (*Result, error) {
	logger := zerolog.Ctx(ctx)
	if s.opts.Threads > 1 {
		s.policy.SetMultiThreadedMode()
	}
	n := s.opts.Iterations
	plays := make([]Play, n)
	s.iterationCount.Store(0)

	logger.Debug().Int("threads", s.opts.Threads).Int("iterations", n).
		Uint64("seed", s.opts.Seed).Msg("simulating")
	tstart := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	for t := 0; t < s.opts.Threads; t++ {
		g.Go(func() error {
			for {
				if err := gctx.Err(); err != nil {
					return err
				}
				it := s.iterationCount.Add(1) - 1
				if it >= uint64(n) {
					return nil
				}
				plays[it] = s.PlayOnce(s.rngFor(it), start)
			}
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	s.iterationCount.Store(uint64(n))

	res := &Result{
		Start:      start,
		Iterations: n,
		Seed:       s.opts.Seed,
		Expected:   s.policy.Best(start).Value,
		Totals:     make([]float64, n),
	}
	var total, shocks stats.Statistic
	for i, p := range plays {
		total.Push(p.Total)
		shocks.Push(float64(p.Shocks))
		res.Totals[i] = p.Total
		if p.Died {
			res.Deaths++
		}
	}
	res.Mean = total.Mean()
	res.Stdev = total.Stdev()
	res.Min, res.Max = total.Min(), total.Max()
	res.CI = total.ConfidenceInterval(s.opts.CI)
	res.MeanShocks = shocks.Mean()

	logger.Info().Float64("elapsed", time.Since(tstart).Seconds()).
		Float64("expected", res.Expected).Float64("mean", res.Mean).
		Bool("expected-in-ci", res.ExpectedInInterval()).Msg("sim-ended")
	return res, nil
}
