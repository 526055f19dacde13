// Package recorder persists solver runs, comparison reports, simulation
// results and solver snapshots.
package recorder

import (
	"time"

	"github.com/healthgame/hcdp/gameanalysis"
	"github.com/healthgame/hcdp/montecarlo"
	"github.com/healthgame/hcdp/solver"
	"github.com/healthgame/hcdp/state"
)

// Run kinds.
const (
	KindSolve    = "solve"
	KindAnalyze  = "analyze"
	KindSimulate = "simulate"
)

// Run describes one invocation of the tool.
type Run struct {
	ID          int64
	Kind        string
	Calibration string
	Fingerprint uint64
	Horizon     int
	Policy      string
	Start       state.State
	Value       float64 // optimal value at Start
	CreatedAt   time.Time
}

// Recorder persists results for later analysis.
type Recorder interface {
	// StartRun stores run and returns its id.
	StartRun(run *Run) (int64, error)
	RecordOptimal(runID int64, rows []solver.ReportRow) error
	RecordComparison(runID int64, res *gameanalysis.AnalysisResult) error
	RecordSimulation(runID int64, res *montecarlo.Result) error
	// SaveSnapshot stores an encoded solver snapshot under its
	// calibration fingerprint, replacing any earlier one.
	SaveSnapshot(fingerprint uint64, data []byte) error
	// LoadSnapshot returns the snapshot for fingerprint, if there is one.
	LoadSnapshot(fingerprint uint64) ([]byte, bool, error)
	Runs() ([]Run, error)
	Close() error
}
