package main

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/healthgame/hcdp/recorder"
	"github.com/healthgame/hcdp/reporting"
	"github.com/healthgame/hcdp/solver"
)

func addOutputFlags(cmd *cobra.Command, formats string) {
	cmd.Flags().String("out", "", "write the report to this file instead of stdout")
	cmd.Flags().String("format", "", "report format: "+formats+" (default from the --out extension, else text)")
}

func outputFormat(cmd *cobra.Command, path string) string {
	if f, _ := cmd.Flags().GetString("format"); f != "" {
		return f
	}
	return reporting.FormatFor(path, reporting.FormatText)
}

func (a *app) solveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Solve the configured calibration and print the optimal trajectory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := zerolog.Ctx(cmd.Context())
			cal, start, err := a.calibration()
			if err != nil {
				return err
			}
			p, err := a.policy(cal)
			if err != nil {
				return err
			}
			rows := solver.OptimalReport(p, start)
			logger.Info().Str("calibration", cal.Name).Stringer("start", start).
				Float64("value", p.Best(start).Value).Int("rows", len(rows)).Msg("solved")

			runID, err := a.startRun(recorder.KindSolve, cal, p, start)
			if err != nil {
				return err
			}
			if err := a.rec.RecordOptimal(runID, rows); err != nil {
				return err
			}
			if err := a.saveSnapshot(p); err != nil {
				return err
			}

			return writeOutput(cmd, func(w io.Writer, path string) error {
				return writeOptimal(w, outputFormat(cmd, path), rows)
			})
		},
	}
	addOutputFlags(cmd, "text, csv, json, yaml")
	return cmd
}

func writeOptimal(w io.Writer, format string, rows []solver.ReportRow) error {
	switch format {
	case reporting.FormatText:
		_, err := io.WriteString(w, reporting.FormatOptimal(rows))
		return err
	case reporting.FormatCSV:
		return reporting.WriteOptimalCSV(w, rows)
	case reporting.FormatJSON:
		return reporting.WriteJSON(w, rows)
	case reporting.FormatYAML:
		return reporting.WriteYAML(w, rows)
	}
	return fmt.Errorf("unknown format %q", format)
}
