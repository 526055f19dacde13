package gameanalysis

import (
	"errors"
	"fmt"

	"github.com/healthgame/hcdp/solver"
	"github.com/healthgame/hcdp/state"
)

var (
	ErrShortTrajectory      = errors.New("trajectory is shorter than the horizon")
	ErrMisalignedTrajectory = errors.New("trajectory periods do not follow the solver's period indexing")
	ErrMalformedTrajectory  = errors.New("trajectory must end with a zero-remaining sentinel at period horizon+1")
	ErrDegenerateOptimum    = errors.New("optimal value at the first observation is zero")
)

// Observation is a post-decision state together with the enjoyment the
// player still had to earn from that point to the end of the game.
type Observation struct {
	State     state.State `json:"state" yaml:"state"`
	Remaining float64     `json:"remaining" yaml:"remaining"`
}

// Trajectory is one play of the game by one player. Observations[0] is the
// starting state, one observation follows per round, and the last element is
// the sentinel.
type Trajectory struct {
	PlayerID     string        `json:"player_id" yaml:"player_id"`
	Life         int           `json:"life" yaml:"life"`
	Observations []Observation `json:"observations" yaml:"observations"`
}

// Sentinel is the closing observation for a game of the given horizon.
func Sentinel(horizon int) Observation {
	return Observation{State: state.New(horizon+1, 0, 0)}
}

// Rounds is the number of rounds the trajectory covers, not counting the
// start or the sentinel.
func (t Trajectory) Rounds() int {
	return max(len(t.Observations)-2, 0)
}

// Validate checks that t lines up with a game of the given horizon.
func (t Trajectory) Validate(horizon int) error {
	obs := t.Observations
	if len(obs) == 0 {
		return fmt.Errorf("%w: no observations", ErrShortTrajectory)
	}
	first := obs[0].State.Period
	want := horizon - first + 2
	if want < 2 {
		return fmt.Errorf("%w: start period %d is past horizon %d", ErrMisalignedTrajectory, first, horizon)
	}
	if len(obs) < want {
		return fmt.Errorf("%w: have %d observations, need %d", ErrShortTrajectory, len(obs), want)
	}
	if len(obs) > want {
		return fmt.Errorf("%w: have %d observations, expected %d", ErrMalformedTrajectory, len(obs), want)
	}
	for i, o := range obs[:len(obs)-1] {
		if o.State.Period != first+i {
			return fmt.Errorf("%w: observation %d has period %d, expected %d",
				ErrMisalignedTrajectory, i, o.State.Period, first+i)
		}
	}
	last := obs[len(obs)-1]
	if last.State.Period != horizon+1 || last.Remaining != 0 {
		return fmt.Errorf("%w: got period %d remaining %v", ErrMalformedTrajectory,
			last.State.Period, last.Remaining)
	}
	return nil
}

// OptimalTrajectory is the trajectory a player following p would produce:
// each observation's remaining enjoyment is exactly the policy's value there.
func OptimalTrajectory(p solver.Policy, playerID string, start state.State) Trajectory {
	obs := []Observation{{State: start, Remaining: p.Best(start).Value}}
	for _, st := range solver.FindStrategy(p, start) {
		obs = append(obs, Observation{State: st, Remaining: p.Best(st).Value})
	}
	obs = append(obs, Sentinel(p.Horizon()))
	return Trajectory{PlayerID: playerID, Observations: obs}
}

// FromBalances builds a trajectory from per-round post-decision states and
// the player's cumulative enjoyment balance after each round. The last
// balance is taken as the total earned over the game.
func FromBalances(playerID string, life int, start state.State, states []state.State,
	balances []float64, horizon int) (Trajectory, error) {

	if len(states) != len(balances) {
		return Trajectory{}, fmt.Errorf("%w: %d states but %d balances",
			ErrMalformedTrajectory, len(states), len(balances))
	}
	total := 0.0
	if len(balances) > 0 {
		total = balances[len(balances)-1]
	}
	obs := make([]Observation, 0, len(states)+2)
	obs = append(obs, Observation{State: start, Remaining: total})
	for i, st := range states {
		obs = append(obs, Observation{State: st, Remaining: max(total-balances[i], 0)})
	}
	obs = append(obs, Sentinel(horizon))
	return Trajectory{PlayerID: playerID, Life: life, Observations: obs}, nil
}
