package investgen

import (
	"errors"
	"testing"

	"github.com/matryer/is"

	"github.com/healthgame/hcdp/config"
	"github.com/healthgame/hcdp/mechanics"
	"github.com/healthgame/hcdp/state"
	"github.com/healthgame/hcdp/strategy"
)

func rulesFor(t *testing.T, preset string) *mechanics.Rules {
	t.Helper()
	cal, err := strategy.Preset(preset)
	if err != nil {
		t.Fatal(err)
	}
	set, err := cal.Set()
	if err != nil {
		t.Fatal(err)
	}
	return mechanics.NewRules(set)
}

func TestConservation(t *testing.T) {
	is := is.New(t)
	opts := DefaultOptions()
	for _, preset := range []string{"standard9", "deficit9"} {
		rules := rulesFor(t, preset)
		for _, policy := range []string{strategy.PolicyPlateau, strategy.PolicyBanked} {
			gen, err := New(policy, rules, opts)
			is.NoErr(err)
			for c := 0; c <= 150; c++ {
				for _, h := range []int{1, 50, 100} {
					invs := gen.Investments(c, h)
					is.True(len(invs) > 0)
					for _, inv := range invs {
						is.True(inv.Health >= 0)
						is.True(inv.Life >= 0)
						is.True(inv.Banked >= 0)
						is.Equal(inv.Total(), c)
					}
				}
			}
		}
	}
}

func TestPlateauEnumeration(t *testing.T) {
	is := is.New(t)
	gen := NewPlateauGenerator(rulesFor(t, "standard9"), 20)
	// Regeneration is 0 for expenditures 0..3 and 1 for 4..7, so only 0 and
	// 4 are kept as health expenditures.
	is.Equal(gen.Investments(5, 50), []state.Investment{
		{Health: 0, Life: 0, Banked: 5}, {Health: 0, Life: 1, Banked: 4}, {Health: 0, Life: 2, Banked: 3}, {Health: 0, Life: 3, Banked: 2}, {Health: 0, Life: 4, Banked: 1}, {Health: 0, Life: 5, Banked: 0},
		{Health: 4, Life: 0, Banked: 1}, {Health: 4, Life: 1, Banked: 0},
	})
	is.Equal(len(gen.Investments(30, 50)), 157)
	// keyed on cash only, since the sigmoid ignores health
	is.Equal(len(gen.Investments(30, 90)), 157)
	is.Equal(gen.Stats().Entries, 2)
	is.Equal(gen.String(), "plateau(window=20)")
}

func TestPlateauHealthKeyed(t *testing.T) {
	is := is.New(t)
	gen := NewPlateauGenerator(rulesFor(t, "deficit9"), 20)
	is.Equal(len(gen.Investments(30, 50)), 229)
	is.Equal(len(gen.Investments(30, 90)), 67)
	is.Equal(gen.Stats().Entries, 2)
}

func TestBankedEnumeration(t *testing.T) {
	is := is.New(t)
	gen := NewBankedGenerator(rulesFor(t, "deficit9"), 10, 110)
	is.Equal(gen.Investments(0, 50), []state.Investment{{Health: 0, Life: 0, Banked: 0}})
	// he 0..5 can bank 0/10/20, he 6..15 can bank 0/10, he 16..25 only 0
	is.Equal(len(gen.Investments(25, 50)), 48)
	invs := gen.Investments(300, 50)
	for _, inv := range invs {
		is.True(inv.Banked <= 110)
		is.Equal(inv.Banked%10, 0)
	}
	is.Equal(invs[0], state.Investment{Health: 0, Life: 300, Banked: 0})
	is.Equal(invs[1], state.Investment{Health: 0, Life: 290, Banked: 10})
	// health does not change the key
	gen.Investments(25, 90)
	is.Equal(gen.Stats().Entries, 3)
}

func TestOutcomesDeduplicated(t *testing.T) {
	is := is.New(t)
	rules := rulesFor(t, "standard9")
	gen := NewPlateauGenerator(rules, 20)
	s := state.New(1, 69, 80)
	outs := gen.Outcomes(s)
	invs := gen.Investments(s.Cash, s.Health)
	is.True(len(outs) <= len(invs))
	is.Equal(outs[0], rules.Invest(s, invs[0]))

	seen := map[state.Outcome]bool{}
	for _, o := range outs {
		is.True(!seen[o])
		seen[o] = true
		is.Equal(o.State.Period, s.Period)
	}
	// every investment's outcome is represented
	for _, inv := range invs {
		is.True(seen[rules.Invest(s, inv)])
	}
}

func TestUnknownPolicy(t *testing.T) {
	is := is.New(t)
	_, err := New("greedy", rulesFor(t, "standard9"), DefaultOptions())
	is.True(errors.Is(err, ErrUnknownPolicy))
}

func TestOptionsFromConfig(t *testing.T) {
	is := is.New(t)
	cfg := config.DefaultConfig()
	is.Equal(OptionsFromConfig(cfg), DefaultOptions())
	cfg.Set(config.ConfigBankStep, 5)
	cfg.Set(config.ConfigEnumWindow, 0)
	opts := OptionsFromConfig(cfg)
	is.Equal(opts.BankStep, 5)
	is.Equal(opts.Window, 20)
}
