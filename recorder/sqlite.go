package recorder

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/healthgame/hcdp/gameanalysis"
	"github.com/healthgame/hcdp/montecarlo"
	"github.com/healthgame/hcdp/solver"
	"github.com/healthgame/hcdp/state"
)

const (
	sqliteBusy   = 5
	sqliteLocked = 6
)

// SQLiteRecorder persists results to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Pragmas are per connection, and writes are serialized anyway.
	db.SetMaxOpenConns(1)

	// WAL lets a report reader look at the database while a batch writes.
	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=2000", "PRAGMA foreign_keys=ON"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite-recorder-opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp    INTEGER NOT NULL,
			kind         TEXT NOT NULL,
			calibration  TEXT,
			fingerprint  TEXT NOT NULL,
			horizon      INTEGER,
			policy       TEXT,
			start_period INTEGER,
			start_health INTEGER,
			start_cash   INTEGER,
			value        REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_fp ON runs(fingerprint)`,

		`CREATE TABLE IF NOT EXISTS optimal_rounds (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id    INTEGER NOT NULL REFERENCES runs(id),
			round     INTEGER,
			health    INTEGER,
			cash      INTEGER,
			remaining REAL,
			earned    REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_optimal_run ON optimal_rounds(run_id)`,

		`CREATE TABLE IF NOT EXISTS comparison_rounds (
			id                  INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id              INTEGER NOT NULL REFERENCES runs(id),
			player_id           TEXT,
			life                INTEGER,
			period              INTEGER,
			optimal_health      INTEGER,
			optimal_cash        INTEGER,
			optimal_utility     REAL,
			remaining_max       REAL,
			realized_health     INTEGER,
			realized_cash       INTEGER,
			realized_utility    REAL,
			remaining_available REAL,
			loss                REAL,
			cumulative_loss     REAL,
			mistake             TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_comparison_run ON comparison_rounds(run_id, player_id, life)`,

		`CREATE TABLE IF NOT EXISTS simulations (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id      INTEGER NOT NULL REFERENCES runs(id),
			iterations  INTEGER,
			seed        TEXT,
			expected    REAL,
			mean        REAL,
			stdev       REAL,
			ci_low      REAL,
			ci_high     REAL,
			mean_shocks REAL,
			deaths      INTEGER
		)`,

		`CREATE TABLE IF NOT EXISTS snapshots (
			fingerprint TEXT PRIMARY KEY,
			timestamp   INTEGER NOT NULL,
			data        BLOB NOT NULL
		)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func isBusy(err error) bool {
	var coded interface{ Code() int }
	if errors.As(err, &coded) {
		c := coded.Code() & 0xff
		return c == sqliteBusy || c == sqliteLocked
	}
	return strings.Contains(err.Error(), "database is locked")
}

// withRetry runs f, retrying while another connection holds the write lock.
func withRetry(f func() error) error {
	return retry.Do(f,
		retry.Attempts(5),
		retry.Delay(20*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.RetryIf(isBusy),
		retry.DelayType(func(n uint, err error, config *retry.Config) time.Duration {
			log.Debug().Err(err).Uint("n", n).Msg("sqlite-busy-try-again")
			return retry.BackOffDelay(n, err, config)
		}),
	)
}

// inTx runs f in a transaction, retrying the whole transaction when busy.
func (r *SQLiteRecorder) inTx(f func(tx *sql.Tx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return withRetry(func() error {
		tx, err := r.db.Begin()
		if err != nil {
			return err
		}
		if err := f(tx); err != nil {
			tx.Rollback()
			return err
		}
		return tx.Commit()
	})
}

func fpString(fp uint64) string {
	return strconv.FormatUint(fp, 16)
}

func (r *SQLiteRecorder) StartRun(run *Run) (int64, error) {
	var id int64
	err := r.inTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(`INSERT INTO runs
			(timestamp, kind, calibration, fingerprint, horizon, policy,
			 start_period, start_health, start_cash, value)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			time.Now().Unix(), run.Kind, run.Calibration, fpString(run.Fingerprint),
			run.Horizon, run.Policy, run.Start.Period, run.Start.Health, run.Start.Cash, run.Value)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	run.ID = id
	return id, nil
}

func (r *SQLiteRecorder) RecordOptimal(runID int64, rows []solver.ReportRow) error {
	return r.inTx(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`INSERT INTO optimal_rounds
			(run_id, round, health, cash, remaining, earned) VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, row := range rows {
			if _, err := stmt.Exec(runID, row.Round, row.Health, row.Cash, row.Remaining, row.Earned); err != nil {
				return fmt.Errorf("insert optimal round %d: %w", row.Round, err)
			}
		}
		return nil
	})
}

func (r *SQLiteRecorder) RecordComparison(runID int64, res *gameanalysis.AnalysisResult) error {
	return r.inTx(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`INSERT INTO comparison_rounds
			(run_id, player_id, life, period, optimal_health, optimal_cash, optimal_utility,
			 remaining_max, realized_health, realized_cash, realized_utility,
			 remaining_available, loss, cumulative_loss, mistake)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, ra := range res.Rounds {
			_, err := stmt.Exec(runID, res.PlayerID, res.Life, ra.Period,
				ra.OptimalHealth, ra.OptimalCash, ra.OptimalUtility, ra.RemainingMax,
				ra.RealizedHealth, ra.RealizedCash, ra.RealizedUtility,
				ra.RemainingAvailable, ra.Loss, ra.CumulativeLoss, ra.MistakeCategory)
			if err != nil {
				return fmt.Errorf("insert comparison round %d: %w", ra.Period, err)
			}
		}
		return nil
	})
}

func (r *SQLiteRecorder) RecordSimulation(runID int64, res *montecarlo.Result) error {
	return r.inTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO simulations
			(run_id, iterations, seed, expected, mean, stdev, ci_low, ci_high, mean_shocks, deaths)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, res.Iterations, strconv.FormatUint(res.Seed, 10), res.Expected, res.Mean,
			res.Stdev, res.CI.Low, res.CI.High, res.MeanShocks, res.Deaths)
		return err
	})
}

func (r *SQLiteRecorder) SaveSnapshot(fingerprint uint64, data []byte) error {
	return r.inTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO snapshots (fingerprint, timestamp, data) VALUES (?, ?, ?)
			ON CONFLICT(fingerprint) DO UPDATE SET timestamp = excluded.timestamp, data = excluded.data`,
			fpString(fingerprint), time.Now().Unix(), data)
		return err
	})
}

func (r *SQLiteRecorder) LoadSnapshot(fingerprint uint64) ([]byte, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var data []byte
	err := withRetry(func() error {
		return r.db.QueryRow(`SELECT data FROM snapshots WHERE fingerprint = ?`,
			fpString(fingerprint)).Scan(&data)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load snapshot: %w", err)
	}
	return data, true, nil
}

// Runs lists every recorded run, oldest first.
func (r *SQLiteRecorder) Runs() ([]Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rows, err := r.db.Query(`SELECT id, timestamp, kind, calibration, fingerprint, horizon, policy,
		start_period, start_health, start_cash, value FROM runs ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var ts int64
		var fp string
		var p, h, c int
		if err := rows.Scan(&run.ID, &ts, &run.Kind, &run.Calibration, &fp, &run.Horizon,
			&run.Policy, &p, &h, &c, &run.Value); err != nil {
			return nil, err
		}
		run.CreatedAt = time.Unix(ts, 0)
		run.Start = state.New(p, h, c)
		if run.Fingerprint, err = strconv.ParseUint(fp, 16, 64); err != nil {
			return nil, fmt.Errorf("run %d: bad fingerprint %q", run.ID, fp)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// CountRows returns the number of rows in one of the result tables.
func (r *SQLiteRecorder) CountRows(table string) (int, error) {
	switch table {
	case "runs", "optimal_rounds", "comparison_rounds", "simulations", "snapshots":
	default:
		return 0, fmt.Errorf("unknown table %q", table)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int
	err := r.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n)
	return n, err
}

func (r *SQLiteRecorder) Close() error {
	return r.db.Close()
}
