package investgen

import (
	"fmt"

	"github.com/healthgame/hcdp/mechanics"
	"github.com/healthgame/hcdp/state"
)

// BankedGenerator tries every health expenditure, banks a multiple of step
// up to limit, and spends whatever is left on life enjoyment.
type BankedGenerator struct {
	base
	step  int
	limit int
}

func NewBankedGenerator(rules *mechanics.Rules, step, limit int) *BankedGenerator {
	if step <= 0 {
		step = 1
	}
	return &BankedGenerator{base: newBase(rules), step: step, limit: limit}
}

// Investments does not depend on health, so it is keyed on cash alone.
func (b *BankedGenerator) Investments(cash, _ int) []state.Investment {
	return b.table.GetOrCompute(enumKey{cash: cash}, func() []state.Investment {
		var invs []state.Investment
		for he := 0; he <= cash; he++ {
			for banked := 0; banked <= min(b.limit, cash-he); banked += b.step {
				invs = append(invs, state.Investment{Health: he, Life: cash - he - banked, Banked: banked})
			}
		}
		return invs
	})
}

func (b *BankedGenerator) Outcomes(s state.State) []state.Outcome {
	return b.outcomes(s, b.Investments(s.Cash, s.Health))
}

func (b *BankedGenerator) String() string {
	return fmt.Sprintf("banked(step=%d,cap=%d)", b.step, b.limit)
}
