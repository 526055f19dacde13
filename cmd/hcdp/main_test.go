package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/matryer/is"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthgame/hcdp/gameanalysis"
	"github.com/healthgame/hcdp/recorder"
)

var deficit4 = []string{"--calibration", "deficit9", "--horizon", "4", "--start-health", "85", "--start-cash", "0"}

func withCalibration(extra ...string) []string {
	return append(append([]string(nil), extra...), deficit4...)
}

func TestSolveWritesCSV(t *testing.T) {
	is := is.New(t)
	out := filepath.Join(t.TempDir(), "optimal.csv")
	is.NoErr(run(context.Background(), "", withCalibration("solve", "--out", out)))

	f, err := os.Open(out)
	is.NoErr(err)
	defer f.Close()
	sc := bufio.NewScanner(f)
	is.True(sc.Scan())
	is.Equal(sc.Text(), "Round,Health,CashonHand,LERemaining,LEEarned")
	lines := 0
	for sc.Scan() {
		lines++
	}
	is.True(lines > 0)
}

func TestSolveRecordsRun(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")
	require.NoError(t, run(context.Background(), "", withCalibration("solve", "--db-path", db, "--out", os.DevNull)))
	// a second solve restores the recorded snapshot
	require.NoError(t, run(context.Background(), "", withCalibration("solve", "--db-path", db, "--out", os.DevNull)))

	rec, err := recorder.NewSQLiteRecorder(db)
	require.NoError(t, err)
	defer rec.Close()
	runs, err := rec.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, recorder.KindSolve, runs[0].Kind)
	assert.Equal(t, 4, runs[0].Horizon)
	assert.InDelta(t, 64.99326621150577, runs[0].Value, 1e-9)

	_, ok, err := rec.LoadSnapshot(runs[0].Fingerprint)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAnalyzeOptimal(t *testing.T) {
	out := filepath.Join(t.TempDir(), "analysis.json")
	require.NoError(t, run(context.Background(), "", withCalibration("analyze", "--optimal", "--out", out)))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var res gameanalysis.AnalysisResult
	require.NoError(t, json.Unmarshal(data, &res))
	require.Len(t, res.Rounds, 4)
	assert.InDelta(t, 1.0, res.Summary.Efficiency, 1e-12)
	assert.Equal(t, 4, res.Summary.OptimalRounds)
}

func TestAnalyzeNeedsInput(t *testing.T) {
	err := run(context.Background(), "", withCalibration("analyze"))
	assert.Error(t, err)
}

func TestSimulateNeedsShock(t *testing.T) {
	err := run(context.Background(), "", withCalibration("simulate"))
	assert.True(t, errors.Is(err, errNotStochastic), "got %v", err)
}

func TestSimulate(t *testing.T) {
	out := filepath.Join(t.TempDir(), "sim.json")
	require.NoError(t, run(context.Background(), "", withCalibration("simulate",
		"--shock-probability", "0.2", "--shock-size", "30",
		"--sim-iterations", "200", "--sim-seed", "7", "--out", out)))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var res struct {
		Iterations int     `json:"iterations"`
		Seed       uint64  `json:"seed"`
		Expected   float64 `json:"expected"`
	}
	require.NoError(t, json.Unmarshal(data, &res))
	assert.Equal(t, 200, res.Iterations)
	assert.Equal(t, uint64(7), res.Seed)
	assert.Greater(t, res.Expected, 0.0)
}

type failingCloser struct {
	bytes.Buffer
	err error
}

func (f *failingCloser) Close() error { return f.err }

func TestCloseErrorIsReported(t *testing.T) {
	is := is.New(t)
	errFlush := errors.New("disk full")
	errWrite := errors.New("short write")

	w := &failingCloser{err: errFlush}
	err := closeAfter(w, func(w io.Writer) error {
		_, err := io.WriteString(w, "report")
		return err
	})
	is.True(errors.Is(err, errFlush))
	is.Equal(w.String(), "report")

	err = closeAfter(&failingCloser{err: errFlush}, func(io.Writer) error { return errWrite })
	is.True(errors.Is(err, errWrite))
	is.True(errors.Is(err, errFlush))

	is.NoErr(closeAfter(&failingCloser{}, func(io.Writer) error { return nil }))
}
