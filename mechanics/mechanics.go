// Package mechanics implements the rules of the health/wealth game: the
// passage of a period, and the effect of an investment.
package mechanics

import (
	"github.com/healthgame/hcdp/state"
	"github.com/healthgame/hcdp/strategy"
)

// Rules applies a strategy set to states.
type Rules struct {
	set *strategy.Set
}

func NewRules(set *strategy.Set) *Rules {
	return &Rules{set: set}
}

func (r *Rules) Set() *strategy.Set {
	return r.set
}

// Transition advances s by one period before any investment is made. Health
// decays according to the new period number, and the harvest is computed
// from the health the player entered the period with.
func (r *Rules) Transition(s state.State) state.State {
	next := s.Period + 1
	return state.State{
		Period: next,
		Health: r.set.Degeneration.Degenerate(s.Health, next),
		Cash:   s.Cash + r.set.Harvest.Harvest(s.Health),
	}
}

// Hit is s after a shock of the given size.
func Hit(s state.State, size int) state.State {
	return state.State{Period: s.Period, Health: max(s.Health-size, 0), Cash: s.Cash}
}

// Invest applies inv to a post-transition state. Regeneration is capped at
// full health, and enjoyment is evaluated at the regenerated health level.
// The banked part becomes the cash carried forward.
func (r *Rules) Invest(s state.State, inv state.Investment) state.Outcome {
	endHealth := min(state.MaxHealth, s.Health+r.set.Regeneration.Regenerate(inv.Health, s.Health))
	return state.Outcome{
		State:   state.State{Period: s.Period, Health: endHealth, Cash: inv.Banked},
		Utility: r.set.Enjoyment.Enjoy(inv.Life, endHealth),
	}
}
