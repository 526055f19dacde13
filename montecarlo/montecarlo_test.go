package montecarlo

import (
	"context"
	"math"
	"testing"

	"github.com/matryer/is"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthgame/hcdp/config"
	"github.com/healthgame/hcdp/investgen"
	"github.com/healthgame/hcdp/solver"
	"github.com/healthgame/hcdp/state"
	"github.com/healthgame/hcdp/strategy"
)

func stochastic(t *testing.T, horizon int, shock strategy.Shock) *solver.StochasticSolver {
	t.Helper()
	cal, err := strategy.Preset("deficit9")
	require.NoError(t, err)
	cal.Horizon = horizon
	cal.Shock = &shock
	s, err := solver.NewStochastic(cal, investgen.DefaultOptions())
	require.NoError(t, err)
	return s
}

func TestNoShockPlaysTheDeterministicPath(t *testing.T) {
	s := stochastic(t, 4, strategy.Shock{Probability: 0, Size: 50})
	sim := New(s, Options{Iterations: 20, Threads: 2, Seed: 7})
	start := state.New(0, 85, 0)
	res, err := sim.Simulate(context.Background(), start)
	require.NoError(t, err)

	assert.Equal(t, 20, res.Iterations)
	assert.Equal(t, 20, sim.Iterations())
	assert.InDelta(t, 64.99326621150577, res.Expected, 1e-9)
	for _, total := range res.Totals {
		assert.InDelta(t, res.Expected, total, 1e-9)
	}
	assert.InDelta(t, 0, res.Stdev, 1e-9)
	assert.Equal(t, 0.0, res.MeanShocks)
	assert.Equal(t, 0, res.Deaths)
}

func TestCertainShockIsDeterministic(t *testing.T) {
	s := stochastic(t, 4, strategy.Shock{Probability: 1, Size: 10})
	res, err := New(s, Options{Iterations: 10, Seed: 1}).Simulate(context.Background(), state.New(0, 85, 0))
	require.NoError(t, err)
	for _, total := range res.Totals {
		assert.InDelta(t, res.Expected, total, 1e-9)
	}
	assert.Greater(t, res.MeanShocks, 0.0)
}

func TestSimulationMatchesExpectation(t *testing.T) {
	s := stochastic(t, 5, strategy.Shock{Probability: 0.3, Size: 30})
	res, err := New(s, Options{Iterations: 3000, Threads: 4, Seed: 42}).
		Simulate(context.Background(), state.New(0, 85, 0))
	require.NoError(t, err)
	se := res.Stdev / math.Sqrt(float64(res.Iterations))
	assert.InDelta(t, res.Expected, res.Mean, 6*se+1e-9)
	assert.Greater(t, res.MeanShocks, 0.0)
	assert.LessOrEqual(t, res.Min, res.Mean)
	assert.GreaterOrEqual(t, res.Max, res.Mean)
}

func TestSeededRunsRepeat(t *testing.T) {
	is := is.New(t)
	start := state.New(0, 85, 0)
	shock := strategy.Shock{Probability: 0.4, Size: 40}

	a, err := New(stochastic(t, 4, shock), Options{Iterations: 200, Threads: 1, Seed: 99}).
		Simulate(context.Background(), start)
	is.NoErr(err)
	b, err := New(stochastic(t, 4, shock), Options{Iterations: 200, Threads: 3, Seed: 99}).
		Simulate(context.Background(), start)
	is.NoErr(err)
	// the thread count does not change any iteration
	is.Equal(a.Totals, b.Totals)
	is.Equal(a.Deaths, b.Deaths)
}

func TestZeroHealthShockIsSurvivable(t *testing.T) {
	is := is.New(t)
	s := stochastic(t, 4, strategy.Shock{Probability: 1, Size: 100})
	sim := New(s, Options{Iterations: 5, Seed: 3})
	start := state.New(0, 85, 0)
	// every shock drops health to zero, and the round's investment may
	// still bring the player back
	play := sim.PlayOnce(sim.rngFor(0), start)
	is.True(play.Shocks > 0)
	is.Equal(play.Died, play.Final.Health <= 0)
	assert.Greater(t, play.Total, 0.0)
	assert.InDelta(t, s.Best(start).Value, play.Total, 1e-9)

	res, err := sim.Simulate(context.Background(), start)
	require.NoError(t, err)
	for _, total := range res.Totals {
		assert.InDelta(t, s.Best(start).Value, total, 1e-9)
	}
}

func TestDegenerationCountsDeaths(t *testing.T) {
	s := stochastic(t, 4, strategy.Shock{Probability: 0.5, Size: 20})
	res, err := New(s, Options{Iterations: 5, Seed: 3}).Simulate(context.Background(), state.New(0, 5, 0))
	require.NoError(t, err)
	assert.Equal(t, 5, res.Deaths)
	for _, total := range res.Totals {
		assert.Equal(t, 0.0, total)
	}
	assert.Equal(t, 0.0, res.Expected)
}

func TestSimulateCancelled(t *testing.T) {
	s := stochastic(t, 4, strategy.Shock{Probability: 0.2, Size: 20})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(s, Options{Iterations: 100, Seed: 1}).Simulate(ctx, state.New(0, 85, 0))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOptionsFromConfig(t *testing.T) {
	is := is.New(t)
	cfg := config.DefaultConfig()
	cfg.Set(config.ConfigSimSeed, "12345")
	cfg.Set(config.ConfigThreads, 3)
	opts, err := OptionsFromConfig(cfg)
	is.NoErr(err)
	is.Equal(opts.Seed, uint64(12345))
	is.Equal(opts.Threads, 3)
	is.Equal(opts.Iterations, 1000)

	cfg.Set(config.ConfigSimSeed, "abc")
	_, err = OptionsFromConfig(cfg)
	is.True(err != nil)
}
