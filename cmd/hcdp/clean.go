package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/healthgame/hcdp/dataloaders"
)

func (a *app) cleanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean <raw.csv>",
		Short: "Turn a raw experiment export into cleaned 9- and 18-round record files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := dataloaders.Open(a.cfg, args[0])
			if err != nil {
				return err
			}
			defer rc.Close()
			comma := ','
			if tabs, _ := cmd.Flags().GetBool("tabs"); tabs {
				comma = '\t'
			}
			raw, err := dataloaders.ReadRaw(rc, comma)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			cond := dataloaders.BaselineCondition()
			cond.Flat, _ = cmd.Flags().GetInt("flat")
			nine, eighteen := dataloaders.Clean(raw, cond)

			dir, _ := cmd.Flags().GetString("out-dir")
			if dir == "" {
				dir = dataloaders.ExperimentPath(a.cfg)
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
			for name, recs := range map[string][]dataloaders.Record{
				"cleaned9.json":  nine,
				"cleaned18.json": eighteen,
			} {
				if err := writeCleaned(filepath.Join(dir, name), recs); err != nil {
					return err
				}
			}
			zerolog.Ctx(cmd.Context()).Info().Int("raw", len(raw)).Int("nine", len(nine)).
				Int("eighteen", len(eighteen)).Str("dir", dir).Msg("cleaned")
			return nil
		},
	}
	cmd.Flags().Bool("tabs", false, "the export is tab-separated")
	cmd.Flags().Int("flat", 1, "value of the flat column to keep")
	cmd.Flags().String("out-dir", "", "directory for the cleaned files (default: the experiment directory)")
	return cmd
}

func writeCleaned(path string, recs []dataloaders.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := dataloaders.WriteCleaned(f, recs); err != nil {
		return err
	}
	return f.Close()
}
