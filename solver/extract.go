package solver

import (
	"github.com/rs/zerolog/log"

	"github.com/healthgame/hcdp/state"
)

// FindStrategy follows the chosen moves from start for exactly horizon
// periods and returns the states visited, excluding start. Once the game
// has ended the chain keeps reporting terminal states.
func FindStrategy(p Policy, start state.State) []state.State {
	cur := start
	path := make([]state.State, 0, p.Horizon())
	for i, n := 0, p.Horizon(); i < n; i++ {
		cur = p.Best(cur).Next
		path = append(path, cur)
	}
	log.Debug().Stringer("start", start).Int("steps", len(path)).
		Stringer("end", cur).Msg("extracted-strategy")
	return path
}

// ReportRow is one line of the optimal-trajectory report.
type ReportRow struct {
	Round     int     `json:"round" yaml:"round"`
	Health    int     `json:"health" yaml:"health"`
	Cash      int     `json:"cash" yaml:"cash"`
	Remaining float64 `json:"remaining" yaml:"remaining"`
	Earned    float64 `json:"earned" yaml:"earned"`
}

// OptimalReport solves start and every state on its optimal path, and
// reports the decisions that land inside the game: the state chosen for
// each round, the enjoyment still obtainable from the previous state, and
// the enjoyment earned by the move.
func OptimalReport(p Policy, start state.State) []ReportRow {
	var rows []ReportRow
	for _, st := range append([]state.State{start}, FindStrategy(p, start)...) {
		sol := p.Best(st)
		if sol.Next.Period >= p.Horizon()+1 {
			continue
		}
		rows = append(rows, ReportRow{
			Round:     sol.Next.Period,
			Health:    sol.Next.Health,
			Cash:      sol.Next.Cash,
			Remaining: sol.Value,
			Earned:    sol.Immediate,
		})
	}
	return rows
}
