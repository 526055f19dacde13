package solver

import (
	"math"
	"testing"

	"github.com/matryer/is"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthgame/hcdp/cache"
	"github.com/healthgame/hcdp/config"
	"github.com/healthgame/hcdp/investgen"
	"github.com/healthgame/hcdp/mechanics"
	"github.com/healthgame/hcdp/state"
	"github.com/healthgame/hcdp/strategy"
)

func newStochastic(t *testing.T, horizon int, shock strategy.Shock) *StochasticSolver {
	t.Helper()
	cal := calibration(t, "deficit9", horizon)
	cal.Shock = &shock
	s, err := NewStochastic(cal, investgen.DefaultOptions())
	require.NoError(t, err)
	return s
}

func TestStochasticBound(t *testing.T) {
	s := newStochastic(t, 5, strategy.Shock{Probability: 0.2, Size: 50})
	for _, h := range []int{40, 60, 85, 100} {
		st := state.New(0, h, 0)
		b := s.Branches(st)
		lo := math.Min(b.Normal.Value, b.Hit.Value)
		hi := math.Max(b.Normal.Value, b.Hit.Value)
		assert.GreaterOrEqual(t, b.Expected, lo-1e-12)
		assert.LessOrEqual(t, b.Expected, hi+1e-12)
		assert.InDelta(t, 0.8*b.Normal.Value+0.2*b.Hit.Value, b.Expected, 1e-12)
	}
	// every memoized entry obeys the bound too
	for _, e := range s.Snapshot().Entries {
		b := e.Result
		lo := math.Min(b.Normal.Value, b.Hit.Value)
		hi := math.Max(b.Normal.Value, b.Hit.Value)
		assert.True(t, b.Expected >= lo-1e-12 && b.Expected <= hi+1e-12, "state %v", e.State)
	}
}

func TestStochasticFutureUsesExpectation(t *testing.T) {
	s := newStochastic(t, 4, strategy.Shock{Probability: 0.3, Size: 40})
	st := state.New(1, 78, 0)
	b := s.Branches(st)
	child := s.Branches(b.Normal.Next)
	// value of the chosen move = its enjoyment + the child's expectation
	post := s.Rules().Transition(st)
	found := false
	for _, o := range s.gen.Outcomes(post) {
		if o.State == b.Normal.Next && math.Abs(o.Utility+child.Expected-b.Normal.Value) < 1e-9 {
			found = true
		}
		// no candidate beats the chosen one
		assert.LessOrEqual(t, o.Utility+s.Branches(o.State).Expected, b.Normal.Value+1e-9)
	}
	assert.True(t, found)
}

func TestZeroProbabilityMatchesDeterministic(t *testing.T) {
	is := is.New(t)
	det := newSolver(t, "deficit9", 4)
	sto := newStochastic(t, 4, strategy.Shock{Probability: 0, Size: 50})
	for _, h := range []int{30, 60, 85} {
		st := state.New(0, h, 0)
		is.Equal(det.Best(st), sto.Best(st))
	}
	start := state.New(0, 85, 0)
	is.Equal(FindStrategy(det, start), FindStrategy(sto, start))
	is.True(det.Fingerprint() != sto.Fingerprint())
}

func TestShockLowersValue(t *testing.T) {
	det := newSolver(t, "deficit9", 4)
	sto := newStochastic(t, 4, strategy.Shock{Probability: 0.5, Size: 30})
	st := state.New(0, 85, 0)
	assert.LessOrEqual(t, sto.Best(st).Value, det.Best(st).Value+1e-9)
}

func TestZeroHealthShockIsPlayed(t *testing.T) {
	is := is.New(t)
	s := newStochastic(t, 4, strategy.Shock{Probability: 0.2, Size: 100})
	st := state.New(0, 85, 0)
	b := s.Branches(st)

	hit := mechanics.Hit(s.Rules().Transition(st), 100)
	is.Equal(hit.Health, 0)

	// a fresh generator and a plain first-seen argmax over the hit state
	gen, err := investgen.New(strategy.PolicyBanked, s.Rules(), investgen.DefaultOptions())
	require.NoError(t, err)
	var want state.Outcome
	best := math.Inf(-1)
	for _, o := range gen.Outcomes(hit) {
		if v := o.Utility + s.Branches(o.State).Expected; v > best {
			best, want = v, o
		}
	}
	is.Equal(b.Hit.Next, want.State)
	assert.InDelta(t, best, b.Hit.Value, 1e-12)

	// regeneration lifts the player off zero, so the hit branch is worth
	// something
	is.True(b.Hit.Next.Health > 0)
	assert.Greater(t, b.Hit.Value, 0.0)
	assert.Equal(t, state.New(1, 25, 0), b.Hit.Next)
	assert.InDelta(t, 6.49, b.Hit.Value, 0.01)
	assert.InDelta(t, 0.8*b.Normal.Value+0.2*b.Hit.Value, b.Expected, 1e-12)
	assert.InDelta(t, 47.33, b.Expected, 0.01)

	after := s.BestAfterShock(st)
	is.Equal(after.Next, b.Hit.Next)
	is.Equal(after.Value, b.Expected)
}

func TestStochasticSnapshotGuard(t *testing.T) {
	is := is.New(t)
	a := newStochastic(t, 4, strategy.Shock{Probability: 0.2, Size: 50})
	a.Branches(state.New(0, 85, 0))
	snap := a.Snapshot()

	same := newStochastic(t, 4, strategy.Shock{Probability: 0.2, Size: 50})
	is.NoErr(same.Restore(snap))
	is.Equal(same.Stats().Entries, a.Stats().Entries)

	diff := newStochastic(t, 4, strategy.Shock{Probability: 0.25, Size: 50})
	is.True(diff.Restore(snap) != nil)
}

func TestNewPolicy(t *testing.T) {
	is := is.New(t)
	cal := calibration(t, "deficit9", 3)
	p, err := NewPolicy(cal, investgen.DefaultOptions())
	is.NoErr(err)
	_, ok := p.(*Solver)
	is.True(ok)

	cal.Shock = &strategy.Shock{Probability: 0.1, Size: 20}
	p, err = NewPolicy(cal, investgen.DefaultOptions())
	is.NoErr(err)
	_, ok = p.(*StochasticSolver)
	is.True(ok)
}

func TestLoadSharesSolvers(t *testing.T) {
	is := is.New(t)
	t.Cleanup(cache.Purge)
	cfg := config.DefaultConfig()

	a, err := Load(cfg, calibration(t, "deficit9", 4), investgen.DefaultOptions())
	is.NoErr(err)
	b, err := Load(cfg, calibration(t, "deficit9", 4), investgen.DefaultOptions())
	is.NoErr(err)
	is.True(a == b)
	is.Equal(a.Fingerprint(), b.Fingerprint())

	c, err := Load(cfg, calibration(t, "deficit9", 5), investgen.DefaultOptions())
	is.NoErr(err)
	is.True(a != c)

	cal := calibration(t, "deficit9", 4)
	cal.Shock = &strategy.Shock{Probability: 0.2, Size: 30}
	d, err := Load(cfg, cal, investgen.DefaultOptions())
	is.NoErr(err)
	_, ok := d.(*StochasticSolver)
	is.True(ok)
}
