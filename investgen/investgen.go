// Package investgen enumerates the investments available in a period and
// the distinct outcomes they lead to.
package investgen

import (
	"errors"
	"fmt"

	"github.com/samber/lo"

	"github.com/healthgame/hcdp/cache"
	"github.com/healthgame/hcdp/config"
	"github.com/healthgame/hcdp/mechanics"
	"github.com/healthgame/hcdp/state"
	"github.com/healthgame/hcdp/strategy"
)

var ErrUnknownPolicy = errors.New("unknown enumeration policy")

// Generator produces the decision set for a state. The slices it returns
// are shared with its cache and must not be modified.
type Generator interface {
	// Investments lists every investment considered for the given cash.
	// Health matters only for policies whose pruning depends on it.
	Investments(cash, health int) []state.Investment
	// Outcomes applies Investments to s, dropping repeated (state, utility)
	// pairs while keeping the first-seen order.
	Outcomes(s state.State) []state.Outcome
	// String names the policy and its parameters.
	String() string
	SetMultiThreadedMode()
	Stats() cache.TableStats
}

// Options tunes the enumeration policies. The defaults reproduce the
// laboratory model.
type Options struct {
	// Window bounds the life expenditures tried by the plateau policy to
	// the top Window values below the remaining cash.
	Window int
	// BankStep and BankCap set the banked amounts tried by the banked
	// policy: 0, BankStep, ... up to BankCap.
	BankStep int
	BankCap  int
}

func DefaultOptions() Options {
	return Options{Window: 20, BankStep: 10, BankCap: 110}
}

// OptionsFromConfig reads the enumeration settings, keeping the default for
// any that are not positive.
func OptionsFromConfig(cfg *config.Config) Options {
	opts := DefaultOptions()
	if w := cfg.GetInt(config.ConfigEnumWindow); w > 0 {
		opts.Window = w
	}
	if s := cfg.GetInt(config.ConfigBankStep); s > 0 {
		opts.BankStep = s
	}
	if c := cfg.GetInt(config.ConfigBankCap); c > 0 {
		opts.BankCap = c
	}
	return opts
}

// New returns the generator for a policy name.
func New(policy string, rules *mechanics.Rules, opts Options) (Generator, error) {
	switch policy {
	case strategy.PolicyPlateau, "":
		return NewPlateauGenerator(rules, opts.Window), nil
	case strategy.PolicyBanked:
		return NewBankedGenerator(rules, opts.BankStep, opts.BankCap), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, policy)
}

type enumKey struct {
	cash   int
	health int
}

type base struct {
	rules *mechanics.Rules
	table *cache.Table[enumKey, []state.Investment]
}

func newBase(rules *mechanics.Rules) base {
	return base{rules: rules, table: cache.NewTable[enumKey, []state.Investment]()}
}

func (b *base) outcomes(s state.State, invs []state.Investment) []state.Outcome {
	outs := lo.Map(invs, func(inv state.Investment, _ int) state.Outcome {
		return b.rules.Invest(s, inv)
	})
	return lo.Uniq(outs)
}

func (b *base) SetMultiThreadedMode() {
	b.table.SetMultiThreadedMode()
}

func (b *base) Stats() cache.TableStats {
	return b.table.Stats()
}
