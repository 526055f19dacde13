package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/healthgame/hcdp/montecarlo"
	"github.com/healthgame/hcdp/recorder"
	"github.com/healthgame/hcdp/reporting"
	"github.com/healthgame/hcdp/solver"
)

var errNotStochastic = errors.New("simulation needs a shock model; set --shock-probability and --shock-size")

func (a *app) simulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Play the stochastic optimal policy with random shocks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cal, start, err := a.calibration()
			if err != nil {
				return err
			}
			p, err := a.policy(cal)
			if err != nil {
				return err
			}
			ss, ok := p.(*solver.StochasticSolver)
			if !ok {
				return errNotStochastic
			}
			opts, err := montecarlo.OptionsFromConfig(a.cfg)
			if err != nil {
				return err
			}
			if ci, _ := cmd.Flags().GetFloat64("ci"); ci > 0 {
				opts.CI = ci
			}
			res, err := montecarlo.New(ss, opts).Simulate(cmd.Context(), start)
			if err != nil {
				return err
			}

			runID, err := a.startRun(recorder.KindSimulate, cal, p, start)
			if err != nil {
				return err
			}
			if err := a.rec.RecordSimulation(runID, res); err != nil {
				return err
			}
			if err := a.saveSnapshot(p); err != nil {
				return err
			}

			return writeOutput(cmd, func(w io.Writer, path string) error {
				switch format := outputFormat(cmd, path); format {
				case reporting.FormatText:
					if _, err := io.WriteString(w, reporting.FormatSimulation(res)); err != nil {
						return err
					}
					bins, _ := cmd.Flags().GetInt("bins")
					if bins <= 0 {
						return nil
					}
					return reporting.Histogram(w, "Realized enjoyment", res.Totals, bins)
				case reporting.FormatJSON:
					return reporting.WriteJSON(w, res)
				case reporting.FormatYAML:
					return reporting.WriteYAML(w, res)
				default:
					return fmt.Errorf("unknown format %q", format)
				}
			})
		},
	}
	cmd.Flags().Float64("ci", 99, "confidence level of the reported interval, in percent")
	cmd.Flags().Int("bins", 10, "histogram bins for realized enjoyment (0 to skip)")
	addOutputFlags(cmd, "text, json, yaml")
	return cmd
}
