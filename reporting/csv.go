// Package reporting renders optimal-trajectory and comparison reports as
// CSV, JSON, YAML and plain text.
package reporting

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/healthgame/hcdp/gameanalysis"
	"github.com/healthgame/hcdp/solver"
)

var OptimalColumns = []string{"Round", "Health", "CashonHand", "LERemaining", "LEEarned"}

var ComparisonColumns = []string{
	"ID", "Lifetime", "Period", "Optimal Health", "Optimal Cash on Hand", "Remaining Max",
	"Optimal Earnings This Period", "Realized Health", "Realized Cash on Hand", "Current LE",
	"Earned This Period", "Remaining Available", "% Loss", "Accumulated Loss",
}

func ftoa(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// WriteOptimalCSV writes the optimal-trajectory report with a header.
func WriteOptimalCSV(w io.Writer, rows []solver.ReportRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(OptimalColumns); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			strconv.Itoa(r.Round), strconv.Itoa(r.Health), strconv.Itoa(r.Cash),
			ftoa(r.Remaining), ftoa(r.Earned),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ComparisonWriter writes comparison rows for any number of analyzed
// trajectories under a single header.
type ComparisonWriter struct {
	cw      *csv.Writer
	started bool
}

func NewComparisonWriter(w io.Writer) *ComparisonWriter {
	return &ComparisonWriter{cw: csv.NewWriter(w)}
}

func (c *ComparisonWriter) Write(res *gameanalysis.AnalysisResult) error {
	if !c.started {
		if err := c.cw.Write(ComparisonColumns); err != nil {
			return err
		}
		c.started = true
	}
	for _, r := range res.Rounds {
		rec := []string{
			res.PlayerID,
			strconv.Itoa(res.Life),
			strconv.Itoa(r.Period),
			strconv.Itoa(r.OptimalHealth),
			strconv.Itoa(r.OptimalCash),
			strconv.Itoa(int(r.RemainingMax)),
			ftoa(r.OptimalUtility),
			strconv.Itoa(r.RealizedHealth),
			strconv.Itoa(r.RealizedCash),
			ftoa(r.CurrentRemaining),
			ftoa(r.RealizedUtility),
			strconv.Itoa(int(r.RemainingAvailable)),
			fmt.Sprintf("%.3f", r.Loss),
			fmt.Sprintf("%.3f", r.CumulativeLoss),
		}
		if err := c.cw.Write(rec); err != nil {
			return err
		}
	}
	c.cw.Flush()
	return c.cw.Error()
}
