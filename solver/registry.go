package solver

import (
	"fmt"

	"github.com/healthgame/hcdp/cache"
	"github.com/healthgame/hcdp/config"
	"github.com/healthgame/hcdp/investgen"
	"github.com/healthgame/hcdp/strategy"
)

// Load returns the process-wide policy for cal. Calibrations with the same
// fingerprint share one solver, and with it one memo table.
func Load(cfg *config.Config, cal *strategy.Calibration, opts investgen.Options) (Policy, error) {
	rules, gen, err := build(cal, opts)
	if err != nil {
		return nil, err
	}
	var shock *strategy.Shock
	if cal.Stochastic() {
		shock = cal.Shock
	}
	fp := fingerprint(rules.Set(), gen, cal.Horizon, shock)
	key := fmt.Sprintf("solver:%016x", fp)
	obj, err := cache.Load(cfg, key, func(*config.Config, string) (any, error) {
		if shock != nil {
			return NewStochasticSolver(rules, gen, cal.Horizon, *shock), nil
		}
		return NewSolver(rules, gen, cal.Horizon), nil
	})
	if err != nil {
		return nil, err
	}
	return obj.(Policy), nil
}
