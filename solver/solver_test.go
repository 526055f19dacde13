package solver

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/matryer/is"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/healthgame/hcdp/investgen"
	"github.com/healthgame/hcdp/state"
	"github.com/healthgame/hcdp/strategy"
)

type expectedStep struct {
	from      state.State
	next      state.State
	value     float64
	immediate float64
}

func calibration(t *testing.T, preset string, horizon int) *strategy.Calibration {
	t.Helper()
	cal, err := strategy.Preset(preset)
	require.NoError(t, err)
	if horizon > 0 {
		cal.Horizon = horizon
	}
	return cal
}

func newSolver(t *testing.T, preset string, horizon int) *Solver {
	t.Helper()
	s, err := New(calibration(t, preset, horizon), investgen.DefaultOptions())
	require.NoError(t, err)
	return s
}

func checkSteps(t *testing.T, s *Solver, steps []expectedStep) {
	t.Helper()
	for _, st := range steps {
		sol := s.Solve(st.from)
		assert.Equal(t, st.next, sol.Next, "next state from %v", st.from)
		assert.InDelta(t, st.value, sol.Value, 1e-9, "value from %v", st.from)
		assert.Equal(t, st.immediate, sol.Immediate, "immediate from %v", st.from)
	}
}

func TestStandardNineRounds(t *testing.T) {
	s := newSolver(t, "standard9", 0)
	start := state.New(0, 85, 0)

	steps := []expectedStep{
		{state.New(0, 85, 0), state.New(1, 97, 0), 63.31798485690174, 3.7},
		{state.New(1, 97, 0), state.New(2, 100, 0), 59.6191633446863, 7.2},
		{state.New(2, 100, 0), state.New(3, 100, 4), 52.401391837700466, 7.4},
		{state.New(3, 100, 4), state.New(4, 100, 5), 44.99610646940181, 7.5},
		{state.New(4, 100, 5), state.New(5, 100, 5), 37.4998396556186, 7.5},
		{state.New(5, 100, 5), state.New(6, 100, 4), 30.003572841835393, 7.4},
		{state.New(6, 100, 4), state.New(7, 100, 0), 22.598287473536736, 7.5},
		{state.New(7, 100, 0), state.New(8, 97, 0), 15.102020659753533, 7.3},
		{state.New(8, 97, 0), state.New(9, 73, 0), 7.7931605163149085, 7.8},
		{state.New(9, 73, 0), state.New(10, 38, 68), 0, 0},
	}
	path := FindStrategy(s, start)
	require.Len(t, path, 9)
	for i, st := range path {
		assert.Equal(t, steps[i].next, st)
	}
	checkSteps(t, s, steps)
	assert.Equal(t, 11281, s.Stats().Entries)

	total := 0.0
	for _, row := range OptimalReport(s, start) {
		assert.GreaterOrEqual(t, row.Earned, 0.0)
		total += row.Earned
	}
	assert.InDelta(t, 63.3, total, 0.5)
}

func TestDeficitNineRounds(t *testing.T) {
	s := newSolver(t, "deficit9", 0)
	steps := []expectedStep{
		{state.New(0, 85, 0), state.New(1, 75, 30), 84.42161788555387, 12.5},
		{state.New(1, 75, 30), state.New(2, 65, 60), 71.92161788555387, 5.9},
		{state.New(2, 65, 60), state.New(3, 47, 30), 66.01252697646296, 2.7},
		{state.New(3, 47, 30), state.New(4, 61, 0), 63.3521496179724, 11.0},
		{state.New(4, 61, 0), state.New(5, 61, 0), 52.3521496179724, 10.2},
		{state.New(5, 61, 0), state.New(6, 61, 0), 42.18548295130574, 10.2},
		{state.New(6, 61, 0), state.New(7, 51, 0), 32.01881628463907, 18.7},
		{state.New(7, 51, 0), state.New(8, 41, 0), 13.297297297297298, 13.3},
		// the round-9 shock takes the remaining 41 health
		{state.New(8, 41, 0), state.New(9, 0, 19), 0, 0},
		{state.New(9, 0, 19), state.New(10, 0, 19), 0, 0},
	}
	checkSteps(t, s, steps)
	assert.Equal(t, 2214, s.Stats().Entries)

	path := FindStrategy(s, state.New(0, 85, 0))
	require.Len(t, path, 9)
	assert.Equal(t, state.New(9, 0, 19), path[8])

	rows := OptimalReport(s, state.New(0, 85, 0))
	require.Len(t, rows, 9)
	assert.Equal(t, 1, rows[0].Round)
	assert.Equal(t, 75, rows[0].Health)
	assert.Equal(t, 30, rows[0].Cash)
	assert.InDelta(t, 84.42161788555387, rows[0].Remaining, 1e-9)
	assert.Equal(t, 12.5, rows[0].Earned)
	assert.Equal(t, 9, rows[8].Round)
	assert.Equal(t, 0.0, rows[8].Remaining)
}

func TestDeficitFourRounds(t *testing.T) {
	s := newSolver(t, "deficit9", 4)
	checkSteps(t, s, []expectedStep{
		{state.New(0, 85, 0), state.New(1, 78, 0), 64.99326621150577, 29.2},
		{state.New(1, 78, 0), state.New(2, 68, 0), 35.74326621150577, 28.9},
		{state.New(2, 68, 0), state.New(3, 27, 0), 6.8237259816207185, 3.3},
		{state.New(3, 27, 0), state.New(4, 17, 0), 3.507936507936508, 3.5},
		{state.New(4, 17, 0), state.New(5, 7, 8), 0, 0},
	})
	assert.Equal(t, 460, s.Stats().Entries)
}

func TestIdempotence(t *testing.T) {
	is := is.New(t)
	s := newSolver(t, "deficit9", 4)
	start := state.New(0, 85, 0)
	first := s.Solve(start)
	entries := s.Stats().Entries
	hits := s.Stats().Hits
	second := s.Solve(start)
	is.Equal(first, second)
	is.Equal(s.Stats().Entries, entries)
	is.True(s.Stats().Hits > hits)
}

func TestTerminal(t *testing.T) {
	is := is.New(t)
	s := newSolver(t, "deficit9", 4)
	for _, st := range []state.State{
		state.New(4, 90, 10),
		state.New(7, 90, 10),
		state.New(2, 0, 35),
	} {
		sol := s.Solve(st)
		is.Equal(sol.Value, 0.0)
		is.Equal(sol.Immediate, 0.0)
		is.True(sol.Next.Terminal(s.Horizon()))
	}
	is.Equal(s.Stats().Entries, 0)
}

func TestMonotoneInStartingHealth(t *testing.T) {
	for _, tc := range []struct {
		preset  string
		horizon int
	}{
		{"deficit9", 4},
		{"standard9", 3},
	} {
		s := newSolver(t, tc.preset, tc.horizon)
		prev := -1.0
		for h := 0; h <= 100; h += 5 {
			v := s.Solve(state.New(0, h, 0)).Value
			assert.GreaterOrEqual(t, v, prev, "%s health %d", tc.preset, h)
			prev = v
		}
	}
}

func TestDeterminism(t *testing.T) {
	is := is.New(t)
	a := newSolver(t, "deficit9", 5)
	b := newSolver(t, "deficit9", 5)
	start := state.New(0, 85, 0)
	is.Equal(FindStrategy(a, start), FindStrategy(b, start))
	is.Equal(a.Fingerprint(), b.Fingerprint())

	ja, err := json.Marshal(a.Snapshot())
	is.NoErr(err)
	jb, err := json.Marshal(b.Snapshot())
	is.NoErr(err)
	is.Equal(string(ja), string(jb))
}

func TestSnapshotRestore(t *testing.T) {
	is := is.New(t)
	a := newSolver(t, "deficit9", 4)
	start := state.New(0, 85, 0)
	want := a.Solve(start)

	bts, err := json.Marshal(a.Snapshot())
	is.NoErr(err)
	var snap Snapshot[Solution]
	is.NoErr(json.Unmarshal(bts, &snap))

	b := newSolver(t, "deficit9", 4)
	is.NoErr(b.Restore(snap))
	is.Equal(b.Stats().Entries, a.Stats().Entries)
	is.Equal(b.Solve(start), want)
	is.Equal(b.Stats().Entries, a.Stats().Entries)

	other := newSolver(t, "deficit9", 5)
	err = other.Restore(snap)
	is.True(errors.Is(err, ErrCalibrationMismatch))
	is.Equal(other.Stats().Entries, 0)
}

func TestConcurrentSolveMatchesSerial(t *testing.T) {
	serial := newSolver(t, "deficit9", 5)
	parallel := newSolver(t, "deficit9", 5)
	parallel.SetMultiThreadedMode()

	healths := []int{35, 50, 65, 85, 100}
	results := make([]Solution, len(healths))
	g := errgroup.Group{}
	for i, h := range healths {
		i, h := i, h
		g.Go(func() error {
			results[i] = parallel.Solve(state.New(0, h, 0))
			return nil
		})
	}
	require.NoError(t, g.Wait())
	for i, h := range healths {
		assert.Equal(t, serial.Solve(state.New(0, h, 0)), results[i])
	}
	assert.Equal(t, serial.Stats().Entries, parallel.Stats().Entries)
	// no key was inserted twice
	assert.Equal(t, uint64(parallel.Stats().Entries), parallel.Stats().Created)
}

func TestRoundTenth(t *testing.T) {
	is := is.New(t)
	is.Equal(RoundTenth(3.7499), 3.7)
	is.Equal(RoundTenth(12.46), 12.5)
	is.Equal(RoundTenth(0.25), 0.2)
	is.Equal(RoundTenth(0.75), 0.8)
	is.Equal(RoundTenth(0), 0.0)
}
