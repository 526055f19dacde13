package gameanalysis

import (
	"context"
	"slices"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

// BatchInput is one trajectory to analyze. Loaders that fail to build a
// trajectory still hand it over with LoadError set, so the failure shows up
// in the batch result.
type BatchInput struct {
	ID         string
	Trajectory Trajectory
	LoadError  error
}

// BatchGameResult represents the results for a single trajectory in a batch analysis
type BatchGameResult struct {
	ID          string          // e.g. "1043/2"
	PlayerID    string          // experiment subject id
	Life        int             // which of the subject's lives
	LoadError   error           // Error while building the trajectory
	AnalysisErr error           // Error during analysis
	Result      *AnalysisResult // Analysis result if successful
}

// BatchPlayerStats represents aggregate statistics for a player across several lives
type BatchPlayerStats struct {
	PlayerID        string
	LivesPlayed     int
	TotalRounds     int
	TotalOptimal    int
	TotalSmall      int     // Small mistakes count
	TotalMedium     int     // Medium mistakes count
	TotalLarge      int     // Large mistakes count
	TotalMistakeIdx float64 // Sum of mistake indices
	AvgMistakeIndex float64 // Average mistake index
	AvgFinalLoss    float64
	AvgEfficiency   float64
}

// BatchAnalysisResult represents the aggregate results of analyzing many trajectories
type BatchAnalysisResult struct {
	Games           []*BatchGameResult
	PlayerStats     map[string]*BatchPlayerStats
	TotalGames      int
	SuccessfulGames int
	FailedGames     int

	// Distribution of final cumulative loss over successful games.
	MeanFinalLoss   float64
	StdevFinalLoss  float64
	FinalLossQuants map[float64]float64
}

// LossQuantiles are the quantiles reported by CalculateAverages.
var LossQuantiles = []float64{0.1, 0.25, 0.5, 0.75, 0.9}

// NewBatchAnalysisResult creates a new BatchAnalysisResult
func NewBatchAnalysisResult() *BatchAnalysisResult {
	return &BatchAnalysisResult{
		Games:       make([]*BatchGameResult, 0),
		PlayerStats: make(map[string]*BatchPlayerStats),
	}
}

// AddGameResult adds a game result to the batch and updates aggregate statistics
func (b *BatchAnalysisResult) AddGameResult(gameResult *BatchGameResult) {
	b.Games = append(b.Games, gameResult)
	b.TotalGames++

	if gameResult.LoadError != nil || gameResult.AnalysisErr != nil {
		b.FailedGames++
		return
	}
	b.SuccessfulGames++

	if gameResult.Result == nil || gameResult.Result.Summary == nil {
		return
	}
	summary := gameResult.Result.Summary
	stats, exists := b.PlayerStats[summary.PlayerID]
	if !exists {
		stats = &BatchPlayerStats{PlayerID: summary.PlayerID}
		b.PlayerStats[summary.PlayerID] = stats
	}
	stats.LivesPlayed++
	stats.TotalRounds += summary.RoundsPlayed
	stats.TotalOptimal += summary.OptimalRounds
	stats.TotalSmall += summary.SmallMistakes
	stats.TotalMedium += summary.MediumMistakes
	stats.TotalLarge += summary.LargeMistakes
	stats.TotalMistakeIdx += summary.MistakeIndex
}

// CalculateAverages calculates average statistics for all players and the
// loss distribution over the whole batch.
func (b *BatchAnalysisResult) CalculateAverages() {
	ok := lo.Filter(b.Games, func(g *BatchGameResult, _ int) bool {
		return g.LoadError == nil && g.AnalysisErr == nil && g.Result != nil
	})
	byPlayer := lo.GroupBy(ok, func(g *BatchGameResult) string {
		return g.Result.PlayerID
	})
	for id, stats := range b.PlayerStats {
		if stats.LivesPlayed == 0 {
			continue
		}
		n := float64(stats.LivesPlayed)
		games := byPlayer[id]
		stats.AvgMistakeIndex = stats.TotalMistakeIdx / n
		stats.AvgFinalLoss = lo.SumBy(games, func(g *BatchGameResult) float64 {
			return g.Result.Summary.FinalLoss
		}) / n
		stats.AvgEfficiency = lo.SumBy(games, func(g *BatchGameResult) float64 {
			return g.Result.Summary.Efficiency
		}) / n
	}

	losses := lo.Map(ok, func(g *BatchGameResult, _ int) float64 {
		return g.Result.Summary.FinalLoss
	})
	b.FinalLossQuants = make(map[float64]float64, len(LossQuantiles))
	if len(losses) == 0 {
		return
	}
	slices.Sort(losses)
	b.MeanFinalLoss = stat.Mean(losses, nil)
	if len(losses) > 1 {
		b.StdevFinalLoss = stat.StdDev(losses, nil)
	}
	for _, q := range LossQuantiles {
		b.FinalLossQuants[q] = stat.Quantile(q, stat.Empirical, losses, nil)
	}
}

// FinalLosses returns the final cumulative loss of every successful game,
// in batch order.
func (b *BatchAnalysisResult) FinalLosses() []float64 {
	return lo.FilterMap(b.Games, func(g *BatchGameResult, _ int) (float64, bool) {
		if g.Result == nil || g.Result.Summary == nil {
			return 0, false
		}
		return g.Result.Summary.FinalLoss, true
	})
}

// BatchAnalyzer runs an Analyzer over many trajectories on a worker pool.
type BatchAnalyzer struct {
	analyzer *Analyzer
}

func NewBatchAnalyzer(a *Analyzer) *BatchAnalyzer {
	return &BatchAnalyzer{analyzer: a}
}

type multiThreader interface {
	SetMultiThreadedMode()
}

// Analyze analyzes every input and aggregates the results. Per-trajectory
// failures are recorded in the result; the returned error is only set when
// ctx is cancelled.
func (b *BatchAnalyzer) Analyze(ctx context.Context, inputs []BatchInput) (*BatchAnalysisResult, error) {
	threads := max(b.analyzer.analysisCfg.Threads, 1)
	if mt, ok := b.analyzer.policy.(multiThreader); ok && threads > 1 {
		mt.SetMultiThreadedMode()
	}
	logger := zerolog.Ctx(ctx)

	games := make([]*BatchGameResult, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(threads)
	for i, in := range inputs {
		i, in := i, in
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			gr := &BatchGameResult{
				ID:        in.ID,
				PlayerID:  in.Trajectory.PlayerID,
				Life:      in.Trajectory.Life,
				LoadError: in.LoadError,
			}
			if in.LoadError == nil {
				gr.Result, gr.AnalysisErr = b.analyzer.Analyze(gctx, in.Trajectory)
			}
			if gr.LoadError != nil || gr.AnalysisErr != nil {
				logger.Warn().Str("id", in.ID).AnErr("load", gr.LoadError).
					AnErr("analysis", gr.AnalysisErr).Msg("trajectory-failed")
			}
			games[i] = gr
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := NewBatchAnalysisResult()
	for _, gr := range games {
		result.AddGameResult(gr)
	}
	result.CalculateAverages()
	logger.Info().Int("games", result.TotalGames).Int("failed", result.FailedGames).
		Float64("mean-final-loss", result.MeanFinalLoss).Msg("batch-analysis-done")
	return result, nil
}
