package recorder

import (
	"github.com/healthgame/hcdp/gameanalysis"
	"github.com/healthgame/hcdp/montecarlo"
	"github.com/healthgame/hcdp/solver"
)

// NoopRecorder is a no-op implementation used when no database is configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) StartRun(_ *Run) (int64, error)                                 { return 0, nil }
func (n *NoopRecorder) RecordOptimal(_ int64, _ []solver.ReportRow) error              { return nil }
func (n *NoopRecorder) RecordComparison(_ int64, _ *gameanalysis.AnalysisResult) error { return nil }
func (n *NoopRecorder) RecordSimulation(_ int64, _ *montecarlo.Result) error           { return nil }
func (n *NoopRecorder) SaveSnapshot(_ uint64, _ []byte) error                          { return nil }
func (n *NoopRecorder) LoadSnapshot(_ uint64) ([]byte, bool, error)                    { return nil, false, nil }
func (n *NoopRecorder) Runs() ([]Run, error)                                           { return nil, nil }
func (n *NoopRecorder) Close() error                                                   { return nil }
