package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/healthgame/hcdp/dataloaders"
	"github.com/healthgame/hcdp/gameanalysis"
	"github.com/healthgame/hcdp/recorder"
	"github.com/healthgame/hcdp/reporting"
	"github.com/healthgame/hcdp/solver"
	"github.com/healthgame/hcdp/state"
	"github.com/healthgame/hcdp/strategy"
)

// loadInputs reads a cleaned record file and splits it into trajectories
// for the calibration's horizon.
func (a *app) loadInputs(name string, cal *strategy.Calibration, start state.State) ([]gameanalysis.BatchInput, error) {
	rc, err := dataloaders.Open(a.cfg, name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	recs, err := dataloaders.ReadCleaned(rc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return dataloaders.Trajectories(recs, start, cal.Horizon), nil
}

func (a *app) analyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <cleaned.json>",
		Short: "Score one recorded life against the optimal policy",
		Long: `Score one recorded life against the optimal policy. The life is picked
with --life as "subject/life"; without it the first life in the file is used.
With --optimal, the policy's own trajectory is scored instead and no file is read.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cal, start, err := a.calibration()
			if err != nil {
				return err
			}
			p, err := a.policy(cal)
			if err != nil {
				return err
			}
			traj, err := a.pickTrajectory(cmd, args, cal, p, start)
			if err != nil {
				return err
			}

			an := gameanalysis.New(p, gameanalysis.AnalysisConfigFromConfig(a.cfg))
			res, err := an.Analyze(cmd.Context(), traj)
			if err != nil {
				return err
			}
			runID, err := a.startRun(recorder.KindAnalyze, cal, p, start)
			if err != nil {
				return err
			}
			if err := a.rec.RecordComparison(runID, res); err != nil {
				return err
			}

			return writeOutput(cmd, func(w io.Writer, path string) error {
				return writeAnalysis(w, outputFormat(cmd, path), res)
			})
		},
	}
	cmd.Flags().String("life", "", `life to analyze, as "subject/life"`)
	cmd.Flags().Bool("optimal", false, "score the optimal trajectory itself")
	addOutputFlags(cmd, "text, csv, json, yaml")
	return cmd
}

func (a *app) pickTrajectory(cmd *cobra.Command, args []string, cal *strategy.Calibration,
	p solver.Policy, start state.State) (gameanalysis.Trajectory, error) {

	if opt, _ := cmd.Flags().GetBool("optimal"); opt {
		return gameanalysis.OptimalTrajectory(p, "optimal", start), nil
	}
	if len(args) == 0 {
		return gameanalysis.Trajectory{}, fmt.Errorf("need a cleaned record file or --optimal")
	}
	inputs, err := a.loadInputs(args[0], cal, start)
	if err != nil {
		return gameanalysis.Trajectory{}, err
	}
	if len(inputs) == 0 {
		return gameanalysis.Trajectory{}, fmt.Errorf("%s holds no lives", args[0])
	}
	want, _ := cmd.Flags().GetString("life")
	for _, in := range inputs {
		if want == "" || in.ID == want {
			return in.Trajectory, in.LoadError
		}
	}
	return gameanalysis.Trajectory{}, fmt.Errorf("life %s not found in %s", want, args[0])
}

func writeAnalysis(w io.Writer, format string, res *gameanalysis.AnalysisResult) error {
	switch format {
	case reporting.FormatText:
		_, err := io.WriteString(w, reporting.FormatAnalysis(res))
		return err
	case reporting.FormatCSV:
		return reporting.NewComparisonWriter(w).Write(res)
	case reporting.FormatJSON:
		return reporting.WriteJSON(w, res)
	case reporting.FormatYAML:
		return reporting.WriteYAML(w, res)
	}
	return fmt.Errorf("unknown format %q", format)
}
