package main

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/healthgame/hcdp/gameanalysis"
	"github.com/healthgame/hcdp/recorder"
	"github.com/healthgame/hcdp/reporting"
)

func (a *app) batchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch <cleaned.json>...",
		Short: "Score every recorded life in one or more cleaned record files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cal, start, err := a.calibration()
			if err != nil {
				return err
			}
			p, err := a.policy(cal)
			if err != nil {
				return err
			}
			var inputs []gameanalysis.BatchInput
			for _, name := range args {
				in, err := a.loadInputs(name, cal, start)
				if err != nil {
					return err
				}
				inputs = append(inputs, in...)
			}
			zerolog.Ctx(ctx).Info().Int("lives", len(inputs)).Int("files", len(args)).Msg("loaded-lives")

			an := gameanalysis.New(p, gameanalysis.AnalysisConfigFromConfig(a.cfg))
			res, err := gameanalysis.NewBatchAnalyzer(an).Analyze(ctx, inputs)
			if err != nil {
				return err
			}

			runID, err := a.startRun(recorder.KindAnalyze, cal, p, start)
			if err != nil {
				return err
			}
			for _, g := range res.Games {
				if g.Result == nil {
					continue
				}
				if err := a.rec.RecordComparison(runID, g.Result); err != nil {
					return err
				}
			}
			if path, _ := cmd.Flags().GetString("csv"); path != "" {
				if err := writeComparisons(path, res); err != nil {
					return err
				}
			}

			summaryOnly, _ := cmd.Flags().GetBool("summary")
			bins, _ := cmd.Flags().GetInt("bins")
			return writeOutput(cmd, func(w io.Writer, _ string) error {
				if _, err := io.WriteString(w, reporting.FormatBatchResults(res, summaryOnly)); err != nil {
					return err
				}
				if bins <= 0 {
					return nil
				}
				return reporting.Histogram(w, "Final cumulative loss", res.FinalLosses(), bins)
			})
		},
	}
	cmd.Flags().String("out", "", "write the report to this file instead of stdout")
	cmd.Flags().String("csv", "", "also write every analyzed round to this CSV file")
	cmd.Flags().Bool("summary", false, "only print the batch summary")
	cmd.Flags().Int("bins", 10, "histogram bins for the final-loss distribution (0 to skip)")
	return cmd
}

func writeComparisons(path string, res *gameanalysis.BatchAnalysisResult) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	cw := reporting.NewComparisonWriter(f)
	for _, g := range res.Games {
		if g.Result == nil {
			continue
		}
		if err := cw.Write(g.Result); err != nil {
			return err
		}
	}
	return f.Close()
}
