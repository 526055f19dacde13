package investgen

import (
	"fmt"

	"github.com/healthgame/hcdp/mechanics"
	"github.com/healthgame/hcdp/state"
)

// PlateauGenerator walks every health expenditure but skips those that
// regain exactly as much as the last one kept, so flat stretches of the
// regeneration curve contribute a single candidate. For each kept health
// expenditure, only the top window of life expenditures is tried; the rest
// is banked. It trades exhaustiveness for tractability.
type PlateauGenerator struct {
	base
	window      int
	readsHealth bool
}

func NewPlateauGenerator(rules *mechanics.Rules, window int) *PlateauGenerator {
	return &PlateauGenerator{
		base:        newBase(rules),
		window:      window,
		readsHealth: rules.Set().RegenReadsHealth(),
	}
}

func (p *PlateauGenerator) Investments(cash, health int) []state.Investment {
	key := enumKey{cash: cash}
	if p.readsHealth {
		key.health = health
	}
	return p.table.GetOrCompute(key, func() []state.Investment {
		regen := p.rules.Set().Regeneration
		var invs []state.Investment
		prev := -1
		for he := 0; he <= cash; he++ {
			hr := regen.Regenerate(he, health)
			if hr == prev {
				continue
			}
			prev = hr
			for life := max(cash-he-p.window, 0); life <= cash-he; life++ {
				invs = append(invs, state.Investment{Health: he, Life: life, Banked: cash - he - life})
			}
		}
		return invs
	})
}

func (p *PlateauGenerator) Outcomes(s state.State) []state.Outcome {
	return p.outcomes(s, p.Investments(s.Cash, s.Health))
}

func (p *PlateauGenerator) String() string {
	return fmt.Sprintf("plateau(window=%d)", p.window)
}
