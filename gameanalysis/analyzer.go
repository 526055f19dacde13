// Package gameanalysis scores played games against the optimal policy,
// round by round, and aggregates the results per player.
package gameanalysis

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/healthgame/hcdp/config"
	"github.com/healthgame/hcdp/solver"
)

// AnalysisConfig holds configuration for game analysis
type AnalysisConfig struct {
	// Mistake thresholds, as a fraction of the game's optimal value.
	// A round losing at most SmallLoss is Small, at most MediumLoss is
	// Medium, and anything worse is Large.
	SmallLoss  float64
	MediumLoss float64
	// Losses at or below Epsilon count as optimal play.
	Epsilon float64

	Threads int
}

// DefaultAnalysisConfig returns sensible defaults
func DefaultAnalysisConfig() *AnalysisConfig {
	return &AnalysisConfig{
		SmallLoss:  0.02,
		MediumLoss: 0.05,
		Epsilon:    1e-9,
		Threads:    1,
	}
}

// AnalysisConfigFromConfig starts from the defaults and takes the thread
// count from cfg.
func AnalysisConfigFromConfig(cfg *config.Config) *AnalysisConfig {
	ac := DefaultAnalysisConfig()
	if t := cfg.GetInt(config.ConfigThreads); t > 0 {
		ac.Threads = t
	}
	return ac
}

// Analyzer compares trajectories against a policy.
type Analyzer struct {
	policy      solver.Policy
	analysisCfg *AnalysisConfig
}

// New creates a new Analyzer
func New(policy solver.Policy, analysisCfg *AnalysisConfig) *Analyzer {
	if analysisCfg == nil {
		analysisCfg = DefaultAnalysisConfig()
	}
	return &Analyzer{
		policy:      policy,
		analysisCfg: analysisCfg,
	}
}

func (a *Analyzer) Policy() solver.Policy { return a.policy }

// Analyze scores every round of traj. Round i compares the move the player
// made from observation i against the policy's best move from the same
// state:
//
//	loss_i = (V(i+1) + earned(i+1) - V(i)) / V(0)
//
// where V is the policy value at an observation and earned(i+1) is the drop
// in remaining enjoyment between observations i and i+1.
func (a *Analyzer) Analyze(ctx context.Context, traj Trajectory) (*AnalysisResult, error) {
	if err := traj.Validate(a.policy.Horizon()); err != nil {
		return nil, err
	}
	obs := traj.Observations
	rounds := len(obs) - 2

	best := make([]solver.Solution, rounds+1)
	for i := range best {
		best[i] = a.policy.Best(obs[i].State)
	}
	v0 := best[0].Value
	if v0 == 0 {
		return nil, fmt.Errorf("%w: from %v", ErrDegenerateOptimum, obs[0].State)
	}

	result := &AnalysisResult{
		PlayerID:     traj.PlayerID,
		Life:         traj.Life,
		Start:        obs[0].State,
		OptimalValue: v0,
		Rounds:       make([]*RoundAnalysis, 0, rounds),
	}
	cum := 0.0
	for i := 0; i < rounds; i++ {
		realized := obs[i+1]
		earned := obs[i].Remaining - realized.Remaining
		available := best[i+1].Value + earned
		loss := (available - best[i].Value) / v0
		cum += loss

		ra := &RoundAnalysis{
			Period:             best[i].Next.Period,
			OptimalHealth:      best[i].Next.Health,
			OptimalCash:        best[i].Next.Cash,
			OptimalUtility:     best[i].Immediate,
			RemainingMax:       best[i].Value,
			RealizedHealth:     realized.State.Health,
			RealizedCash:       realized.State.Cash,
			CurrentRemaining:   obs[i].Remaining,
			RealizedUtility:    earned,
			RemainingAvailable: available,
			Loss:               loss,
			CumulativeLoss:     cum,
			SameState:          realized.State == best[i].Next,
		}
		ra.MistakeCategory = a.categorizeMistake(ra)
		ra.WasOptimal = ra.MistakeCategory == "" && -loss <= a.analysisCfg.Epsilon
		result.Rounds = append(result.Rounds, ra)
	}
	result.Summary = a.summarize(result)

	zerolog.Ctx(ctx).Debug().
		Str("player", traj.PlayerID).
		Int("life", traj.Life).
		Float64("optimal", v0).
		Float64("final-loss", cum).
		Msg("analyzed-trajectory")
	return result, nil
}

// categorizeMistake categorizes a round as Small, Medium, or Large by how
// much of the optimal value it gave up.
func (a *Analyzer) categorizeMistake(ra *RoundAnalysis) string {
	deficit := -ra.Loss
	if deficit <= a.analysisCfg.Epsilon {
		return ""
	}
	if deficit <= a.analysisCfg.SmallLoss {
		return MistakeSmall
	} else if deficit <= a.analysisCfg.MediumLoss {
		return MistakeMedium
	}
	return MistakeLarge
}

// mistakePoints returns the point value for a mistake category
func mistakePoints(category string) float64 {
	switch category {
	case MistakeSmall:
		return 0.2
	case MistakeMedium:
		return 0.5
	case MistakeLarge:
		return 1.0
	default:
		return 0.0
	}
}

func (a *Analyzer) summarize(result *AnalysisResult) *PlayerSummary {
	summary := &PlayerSummary{
		PlayerID:     result.PlayerID,
		Life:         result.Life,
		RoundsPlayed: len(result.Rounds),
	}
	worst := 0.0
	for _, r := range result.Rounds {
		if r.WasOptimal {
			summary.OptimalRounds++
		}
		switch r.MistakeCategory {
		case MistakeSmall:
			summary.SmallMistakes++
		case MistakeMedium:
			summary.MediumMistakes++
		case MistakeLarge:
			summary.LargeMistakes++
		}
		summary.MistakeIndex += mistakePoints(r.MistakeCategory)
		if r.Loss < worst {
			worst = r.Loss
			summary.WorstRound = r.Period
		}
	}
	if n := len(result.Rounds); n > 0 {
		summary.FinalLoss = result.Rounds[n-1].CumulativeLoss
		summary.AvgLoss = summary.FinalLoss / float64(n)
	}
	summary.Efficiency = 1 + summary.FinalLoss
	return summary
}
