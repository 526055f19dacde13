package gameanalysis

import "github.com/healthgame/hcdp/state"

const (
	MistakeSmall  = "Small"
	MistakeMedium = "Medium"
	MistakeLarge  = "Large"
)

// RoundAnalysis compares one round of play against the optimal move from
// the same starting point.
type RoundAnalysis struct {
	Period int `json:"period" yaml:"period"`

	// The optimal move from the previous observed state
	OptimalHealth  int     `json:"optimal_health" yaml:"optimal_health"`
	OptimalCash    int     `json:"optimal_cash" yaml:"optimal_cash"`
	OptimalUtility float64 `json:"optimal_utility" yaml:"optimal_utility"`
	RemainingMax   float64 `json:"remaining_max" yaml:"remaining_max"`

	// What the player actually did
	RealizedHealth     int     `json:"realized_health" yaml:"realized_health"`
	RealizedCash       int     `json:"realized_cash" yaml:"realized_cash"`
	CurrentRemaining   float64 `json:"current_remaining" yaml:"current_remaining"`
	RealizedUtility    float64 `json:"realized_utility" yaml:"realized_utility"`
	RemainingAvailable float64 `json:"remaining_available" yaml:"remaining_available"`

	// Loss is a fraction of the optimal value at the start of the game.
	// Non-positive whenever the play is consistent with the model.
	Loss           float64 `json:"loss" yaml:"loss"`
	CumulativeLoss float64 `json:"cumulative_loss" yaml:"cumulative_loss"`

	WasOptimal      bool   `json:"was_optimal" yaml:"was_optimal"`
	SameState       bool   `json:"same_state" yaml:"same_state"` // realized state equals the optimal one
	MistakeCategory string `json:"mistake_category,omitempty" yaml:"mistake_category,omitempty"`
}

// PlayerSummary aggregates the rounds of one trajectory.
type PlayerSummary struct {
	PlayerID      string `json:"player_id" yaml:"player_id"`
	Life          int    `json:"life" yaml:"life"`
	RoundsPlayed  int    `json:"rounds_played" yaml:"rounds_played"`
	OptimalRounds int    `json:"optimal_rounds" yaml:"optimal_rounds"`

	SmallMistakes  int `json:"small_mistakes" yaml:"small_mistakes"`
	MediumMistakes int `json:"medium_mistakes" yaml:"medium_mistakes"`
	LargeMistakes  int `json:"large_mistakes" yaml:"large_mistakes"`

	MistakeIndex float64 `json:"mistake_index" yaml:"mistake_index"` // 0.2 per small, 0.5 per medium, 1.0 per large
	FinalLoss    float64 `json:"final_loss" yaml:"final_loss"`
	AvgLoss      float64 `json:"avg_loss" yaml:"avg_loss"`
	// Efficiency is the share of the optimal value the player captured.
	Efficiency float64 `json:"efficiency" yaml:"efficiency"`
	WorstRound int     `json:"worst_round" yaml:"worst_round"`
}

// AnalysisResult is the full comparison for one trajectory.
type AnalysisResult struct {
	PlayerID     string           `json:"player_id" yaml:"player_id"`
	Life         int              `json:"life" yaml:"life"`
	Start        state.State      `json:"start" yaml:"start"`
	OptimalValue float64          `json:"optimal_value" yaml:"optimal_value"`
	Rounds       []*RoundAnalysis `json:"rounds" yaml:"rounds"`
	Summary      *PlayerSummary   `json:"summary" yaml:"summary"`
}
