package reporting

import (
	"bytes"
	"encoding/csv"
	"errors"
	"strings"
	"testing"

	"github.com/matryer/is"
	"gopkg.in/yaml.v3"

	"github.com/healthgame/hcdp/gameanalysis"
	"github.com/healthgame/hcdp/montecarlo"
	"github.com/healthgame/hcdp/solver"
	"github.com/healthgame/hcdp/state"
	"github.com/healthgame/hcdp/stats"
)

func sampleResult() *gameanalysis.AnalysisResult {
	return &gameanalysis.AnalysisResult{
		PlayerID:     "1043",
		Life:         2,
		Start:        state.New(0, 85, 0),
		OptimalValue: 84.42,
		Rounds: []*gameanalysis.RoundAnalysis{{
			Period: 1, OptimalHealth: 75, OptimalCash: 30, OptimalUtility: 12.5, RemainingMax: 84.42,
			RealizedHealth: 70, RealizedCash: 0, CurrentRemaining: 60, RealizedUtility: 14,
			RemainingAvailable: 80.9, Loss: -0.04169, CumulativeLoss: -0.04169,
			MistakeCategory: gameanalysis.MistakeMedium,
		}},
		Summary: &gameanalysis.PlayerSummary{PlayerID: "1043", Life: 2, RoundsPlayed: 1,
			MediumMistakes: 1, MistakeIndex: 0.5, FinalLoss: -0.04169, Efficiency: 0.95831},
	}
}

func TestWriteOptimalCSV(t *testing.T) {
	is := is.New(t)
	var buf bytes.Buffer
	is.NoErr(WriteOptimalCSV(&buf, []solver.ReportRow{
		{Round: 1, Health: 75, Cash: 30, Remaining: 84.42161788555387, Earned: 12.5},
		{Round: 9, Health: 0, Cash: 19, Remaining: 0, Earned: 0},
	}))
	is.Equal(buf.String(), "Round,Health,CashonHand,LERemaining,LEEarned\n"+
		"1,75,30,84.42161788555387,12.5\n"+
		"9,0,19,0,0\n")
}

func TestComparisonWriter(t *testing.T) {
	is := is.New(t)
	var buf bytes.Buffer
	cw := NewComparisonWriter(&buf)
	is.NoErr(cw.Write(sampleResult()))
	is.NoErr(cw.Write(sampleResult()))

	recs, err := csv.NewReader(&buf).ReadAll()
	is.NoErr(err)
	is.Equal(len(recs), 3) // one header for both
	is.Equal(recs[0], ComparisonColumns)
	is.Equal(recs[1], []string{"1043", "2", "1", "75", "30", "84", "12.5", "70", "0", "60", "14", "80",
		"-0.042", "-0.042"})
}

func TestFormatFor(t *testing.T) {
	is := is.New(t)
	is.Equal(FormatFor("out/report.CSV", FormatText), FormatCSV)
	is.Equal(FormatFor("report.yml", FormatText), FormatYAML)
	is.Equal(FormatFor("report.json", FormatText), FormatJSON)
	is.Equal(FormatFor("report", FormatJSON), FormatJSON)
}

func TestWriteYAML(t *testing.T) {
	is := is.New(t)
	var buf bytes.Buffer
	is.NoErr(WriteYAML(&buf, sampleResult()))
	var back map[string]any
	is.NoErr(yaml.Unmarshal(buf.Bytes(), &back))
	is.Equal(back["player_id"], "1043")
	is.Equal(back["start"], []any{0, 85, 0})
}

func TestWriteJSON(t *testing.T) {
	is := is.New(t)
	var buf bytes.Buffer
	is.NoErr(WriteJSON(&buf, sampleResult().Summary))
	is.True(strings.Contains(buf.String(), `"mistake_index": 0.5`))
}

func TestHistogram(t *testing.T) {
	is := is.New(t)
	var buf bytes.Buffer
	is.NoErr(Histogram(&buf, "final loss", []float64{-0.1, -0.05, -0.05, 0, 0}, 4))
	out := buf.String()
	is.True(strings.HasPrefix(out, "final loss\n"))
	is.True(strings.Count(out, "\n") >= 5)

	buf.Reset()
	is.NoErr(Histogram(&buf, "empty", nil, 4))
	is.Equal(buf.String(), "empty: no data\n")
}

func TestFormatBatchResults(t *testing.T) {
	is := is.New(t)
	batch := gameanalysis.NewBatchAnalysisResult()
	batch.AddGameResult(&gameanalysis.BatchGameResult{ID: "1043/2", PlayerID: "1043", Life: 2, Result: sampleResult()})
	batch.AddGameResult(&gameanalysis.BatchGameResult{ID: "9/1", LoadError: errors.New("short")})
	batch.CalculateAverages()

	full := FormatBatchResults(batch, false)
	is.True(strings.Contains(full, "[1043/2] player 1043 life 2"))
	is.True(strings.Contains(full, "Error loading trajectory: short"))
	is.True(strings.Contains(full, "BATCH SUMMARY"))
	is.True(strings.Contains(full, "Failed: 1"))

	summary := FormatBatchResults(batch, true)
	is.True(!strings.Contains(summary, "Error loading"))
	is.True(strings.Contains(summary, "1043"))
}

func TestFormatSimulation(t *testing.T) {
	is := is.New(t)
	out := FormatSimulation(&montecarlo.Result{
		Start: state.New(0, 85, 0), Iterations: 10, Seed: 4, Expected: 60, Mean: 59,
		CI: stats.Interval{Mean: 59, Low: 58, High: 61, Level: 99},
	})
	is.True(strings.Contains(out, "Simulated 10 games from (0, 85, 0)"))
	is.True(strings.Contains(out, "expectation inside: true"))
}
