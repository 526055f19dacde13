package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/pprof"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/healthgame/hcdp/config"
	"github.com/healthgame/hcdp/investgen"
	"github.com/healthgame/hcdp/recorder"
	"github.com/healthgame/hcdp/solver"
	"github.com/healthgame/hcdp/state"
	"github.com/healthgame/hcdp/strategy"
)

// app holds what every subcommand shares: the loaded config, the recorder
// and the CPU profile, if one is being written.
type app struct {
	exPath  string
	cfg     *config.Config
	rec     recorder.Recorder
	profile *os.File
}

func run(ctx context.Context, exPath string, args []string) error {
	a := &app{exPath: exPath, cfg: config.DefaultConfig(), rec: recorder.NewNoopRecorder()}
	root := a.rootCmd()
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	return errors.Join(err, a.close())
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "hcdp",
		Short: "Optimal health/wealth strategies and scoring of played games",
		Long: `hcdp solves the health/cash investment game by backward induction,
reports the optimal trajectory, and scores recorded play against it.`,
		Version:           GitVersion,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	root.PersistentFlags().AddFlagSet(config.FlagSet("hcdp"))
	root.AddCommand(
		a.solveCmd(),
		a.analyzeCmd(),
		a.batchCmd(),
		a.simulateCmd(),
		a.cleanCmd(),
		a.runsCmd(),
	)
	return root
}

func newLogger(debug bool) zerolog.Logger {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	output.FormatLevel = func(i interface{}) string {
		return strings.ToUpper(fmt.Sprintf("| %-6s|", i))
	}
	output.FormatMessage = func(i interface{}) string {
		return fmt.Sprintf("%s", i)
	}
	output.FormatFieldName = func(i interface{}) string {
		return fmt.Sprintf("%s:", i)
	}
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		return zerolog.New(output).Level(zerolog.DebugLevel).With().Timestamp().Logger()
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	return zerolog.New(output).Level(zerolog.InfoLevel).With().Timestamp().Logger()
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if err := a.cfg.LoadFlags(cmd.Flags()); err != nil {
		return err
	}
	logger := newLogger(a.cfg.GetBool(config.ConfigDebug))
	zerolog.DefaultContextLogger = &logger
	log.Logger = logger
	logger.Debug().Msg("Debug logging is on")
	cmd.SetContext(logger.WithContext(cmd.Context()))

	a.cfg.AdjustRelativePaths(a.exPath)
	logger.Debug().Msgf("Loaded config: %v", a.cfg.SanitizedSettings())

	if p := a.cfg.GetString(config.ConfigCPUProfile); p != "" {
		f, err := os.Create(p)
		if err != nil {
			return fmt.Errorf("could not create CPU profile: %w", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			f.Close()
			return fmt.Errorf("could not start CPU profile: %w", err)
		}
		a.profile = f
	}

	if db := a.cfg.GetString(config.ConfigDBPath); db != "" {
		rec, err := recorder.NewSQLiteRecorder(db)
		if err != nil {
			return err
		}
		a.rec = rec
	}
	return nil
}

func (a *app) close() error {
	var errs []error
	if a.profile != nil {
		pprof.StopCPUProfile()
		errs = append(errs, a.profile.Close())
	}
	errs = append(errs, a.rec.Close())
	return errors.Join(errs...)
}

// calibration loads the configured calibration and its starting state.
func (a *app) calibration() (*strategy.Calibration, state.State, error) {
	cal, err := strategy.Load(a.cfg)
	if err != nil {
		return nil, state.State{}, err
	}
	return cal, state.New(cal.Start[0], cal.Start[1], cal.Start[2]), nil
}

// policy returns the shared solver for cal, warmed from a recorded snapshot
// when there is one.
func (a *app) policy(cal *strategy.Calibration) (solver.Policy, error) {
	p, err := solver.Load(a.cfg, cal, investgen.OptionsFromConfig(a.cfg))
	if err != nil {
		return nil, err
	}
	data, ok, err := a.rec.LoadSnapshot(p.Fingerprint())
	if err != nil || !ok {
		return p, err
	}
	switch s := p.(type) {
	case *solver.Solver:
		var snap solver.Snapshot[solver.Solution]
		if err := json.Unmarshal(data, &snap); err != nil {
			return nil, fmt.Errorf("decoding snapshot: %w", err)
		}
		err = s.Restore(snap)
	case *solver.StochasticSolver:
		var snap solver.Snapshot[solver.Branches]
		if err := json.Unmarshal(data, &snap); err != nil {
			return nil, fmt.Errorf("decoding snapshot: %w", err)
		}
		err = s.Restore(snap)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (a *app) saveSnapshot(p solver.Policy) error {
	var snap any
	switch s := p.(type) {
	case *solver.Solver:
		snap = s.Snapshot()
	case *solver.StochasticSolver:
		snap = s.Snapshot()
	default:
		return nil
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return a.rec.SaveSnapshot(p.Fingerprint(), data)
}

func (a *app) startRun(kind string, cal *strategy.Calibration, p solver.Policy, start state.State) (int64, error) {
	return a.rec.StartRun(&recorder.Run{
		Kind:        kind,
		Calibration: cal.Name,
		Fingerprint: p.Fingerprint(),
		Horizon:     p.Horizon(),
		Policy:      cal.Policy,
		Start:       start,
		Value:       p.Best(start).Value,
		CreatedAt:   time.Now(),
	})
}

// output opens the destination named by the command's --out flag, or
// stdout.
func output(cmd *cobra.Command) (io.WriteCloser, string, error) {
	path, _ := cmd.Flags().GetString("out")
	if path == "" {
		return nopCloser{cmd.OutOrStdout()}, "", nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, "", err
	}
	return f, path, nil
}

// writeOutput runs write against the command's output and reports the error
// from closing it along with any write error.
func writeOutput(cmd *cobra.Command, write func(w io.Writer, path string) error) error {
	w, path, err := output(cmd)
	if err != nil {
		return err
	}
	return closeAfter(w, func(w io.Writer) error { return write(w, path) })
}

func closeAfter(w io.WriteCloser, write func(io.Writer) error) error {
	err := write(w)
	return errors.Join(err, w.Close())
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
