package reporting

import (
	"fmt"
	"slices"
	"strings"

	"github.com/samber/lo"

	"github.com/healthgame/hcdp/gameanalysis"
	"github.com/healthgame/hcdp/montecarlo"
	"github.com/healthgame/hcdp/solver"
)

// FormatOptimal renders the optimal-trajectory report as a table.
func FormatOptimal(rows []solver.ReportRow) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-6s  %-6s  %-6s  %-12s  %-8s\n",
		"Round", "Health", "Cash", "LE Remaining", "Earned"))
	sb.WriteString(strings.Repeat("-", 46))
	sb.WriteString("\n")
	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("%-6d  %-6d  %-6d  %-12.4f  %-8.1f\n",
			r.Round, r.Health, r.Cash, r.Remaining, r.Earned))
	}
	return sb.String()
}

// FormatAnalysis renders one trajectory's round-by-round comparison.
func FormatAnalysis(result *gameanalysis.AnalysisResult) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-6s  %-14s  %-14s  %-8s  %-8s  %-8s  %-8s\n",
		"Round", "Optimal (h,c)", "Played (h,c)", "Opt LE", "Earned", "Loss", "Mistake"))
	sb.WriteString(strings.Repeat("-", 84))
	sb.WriteString("\n")
	for _, r := range result.Rounds {
		opt := fmt.Sprintf("(%d, %d)", r.OptimalHealth, r.OptimalCash)
		played := fmt.Sprintf("(%d, %d)", r.RealizedHealth, r.RealizedCash)
		mistake := r.MistakeCategory
		if r.WasOptimal {
			mistake = "-"
		}
		sb.WriteString(fmt.Sprintf("%-6d  %-14s  %-14s  %-8.1f  %-8.1f  %-8.3f  %-8s\n",
			r.Period, opt, played, r.OptimalUtility, r.RealizedUtility, r.Loss, mistake))
	}
	if s := result.Summary; s != nil {
		sb.WriteString(fmt.Sprintf("\nOptimal value %.3f, final loss %.3f, efficiency %.1f%%, mistake index %.1f\n",
			result.OptimalValue, s.FinalLoss, 100*s.Efficiency, s.MistakeIndex))
	}
	return sb.String()
}

// FormatBatchResults renders a batch: each trajectory unless summaryOnly,
// then per-player aggregates and the loss distribution.
func FormatBatchResults(batch *gameanalysis.BatchAnalysisResult, summaryOnly bool) string {
	var sb strings.Builder

	if !summaryOnly {
		for _, gr := range batch.Games {
			sb.WriteString(fmt.Sprintf("[%s] player %s life %d\n", gr.ID, gr.PlayerID, gr.Life))
			sb.WriteString(strings.Repeat("=", 80))
			sb.WriteString("\n")
			if gr.LoadError != nil {
				sb.WriteString(fmt.Sprintf("Error loading trajectory: %v\n\n", gr.LoadError))
				continue
			}
			if gr.AnalysisErr != nil {
				sb.WriteString(fmt.Sprintf("Error analyzing trajectory: %v\n\n", gr.AnalysisErr))
				continue
			}
			sb.WriteString(FormatAnalysis(gr.Result))
			sb.WriteString("\n")
		}
	}

	sb.WriteString(strings.Repeat("=", 80))
	sb.WriteString("\n")
	sb.WriteString("BATCH SUMMARY\n")
	sb.WriteString(strings.Repeat("=", 80))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Total lives: %d\n", batch.TotalGames))
	sb.WriteString(fmt.Sprintf("Successful: %d\n", batch.SuccessfulGames))
	sb.WriteString(fmt.Sprintf("Failed: %d\n\n", batch.FailedGames))

	if len(batch.PlayerStats) > 0 {
		sb.WriteString("Aggregate by Player:\n")
		sb.WriteString(fmt.Sprintf("%-15s  %-6s  %-6s  %-8s  %-6s  %-6s  %-6s  %-8s  %-10s\n",
			"Player", "Lives", "Rounds", "Optimal", "Small", "Medium", "Large", "Avg MI", "Avg Loss"))
		sb.WriteString(strings.Repeat("-", 90))
		sb.WriteString("\n")

		ids := lo.Keys(batch.PlayerStats)
		slices.Sort(ids)
		for _, id := range ids {
			stats := batch.PlayerStats[id]
			name := id
			if len(name) > 15 {
				name = name[:12] + "..."
			}
			sb.WriteString(fmt.Sprintf("%-15s  %-6d  %-6d  %-8d  %-6d  %-6d  %-6d  %-8.1f  %-10.3f\n",
				name,
				stats.LivesPlayed,
				stats.TotalRounds,
				stats.TotalOptimal,
				stats.TotalSmall,
				stats.TotalMedium,
				stats.TotalLarge,
				stats.AvgMistakeIndex,
				stats.AvgFinalLoss))
		}
		sb.WriteString("\n")
	}

	if batch.SuccessfulGames > 0 {
		sb.WriteString(fmt.Sprintf("Final loss: mean %.3f, stdev %.3f\n", batch.MeanFinalLoss, batch.StdevFinalLoss))
		for _, q := range gameanalysis.LossQuantiles {
			sb.WriteString(fmt.Sprintf("  p%-3.0f %.3f\n", q*100, batch.FinalLossQuants[q]))
		}
	}
	return sb.String()
}

// FormatSimulation renders a Monte-Carlo summary.
func FormatSimulation(res *montecarlo.Result) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Simulated %d games from %v (seed %d)\n", res.Iterations, res.Start, res.Seed))
	sb.WriteString(fmt.Sprintf("Solver expectation: %.4f\n", res.Expected))
	sb.WriteString(fmt.Sprintf("Simulated mean:     %.4f  (stdev %.4f, min %.2f, max %.2f)\n",
		res.Mean, res.Stdev, res.Min, res.Max))
	sb.WriteString(fmt.Sprintf("%.0f%% interval:       [%.4f, %.4f]  expectation inside: %v\n",
		res.CI.Level, res.CI.Low, res.CI.High, res.ExpectedInInterval()))
	sb.WriteString(fmt.Sprintf("Shocks per game: %.2f, games ended by death: %d\n", res.MeanShocks, res.Deaths))
	return sb.String()
}
