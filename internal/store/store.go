package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/cryptotax-uk/cryptotax/internal/ledger"
)

// ErrRunNotFound is returned when a run ID is not in the store.
var ErrRunNotFound = errors.New("run not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	started_at  TEXT NOT NULL,
	finished_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS run_assets (
	run_id        TEXT NOT NULL,
	asset         TEXT NOT NULL,
	error         TEXT NOT NULL DEFAULT '',
	pool_quantity TEXT NOT NULL DEFAULT '0',
	pool_cost     TEXT NOT NULL DEFAULT '0',
	PRIMARY KEY (run_id, asset),
	FOREIGN KEY (run_id) REFERENCES runs(id)
);

CREATE TABLE IF NOT EXISTS match_records (
	run_id           TEXT NOT NULL,
	seq              INTEGER NOT NULL,
	line_id          TEXT NOT NULL,
	asset            TEXT NOT NULL,
	method           TEXT NOT NULL,
	disposal_date    TEXT NOT NULL,
	acquisition_date TEXT NOT NULL,
	quantity         TEXT NOT NULL,
	allowable_cost   TEXT NOT NULL,
	proceeds         TEXT NOT NULL,
	gain             TEXT NOT NULL,
	disposal_ref     TEXT NOT NULL,
	acquisition_ref  TEXT NOT NULL,
	fees             TEXT NOT NULL,
	PRIMARY KEY (run_id, asset, seq),
	FOREIGN KEY (run_id) REFERENCES runs(id)
);
`

const timeFormat = time.RFC3339Nano

// recordColumns follow the report CSV header so rows go through the
// ledger codec unchanged.
var recordColumns = strings.Split(ledger.Header, ",")

// Run is one compute run and its per-asset outcomes.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Assets     []AssetResult
}

// AssetResult is the outcome of one asset within a run. Lines is empty
// when Error is set.
type AssetResult struct {
	Asset        string
	Error        string
	PoolQuantity decimal.Decimal
	PoolCost     decimal.Decimal
	Lines        []ledger.Line
}

// RunSummary is a row of ListRuns.
type RunSummary struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Assets     int
	Failed     int
	Records    int
}

// Store persists runs in a SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the SQLite store at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating store dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening store %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun writes a run and all its records in one transaction.
func (s *Store) SaveRun(ctx context.Context, run Run) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, finished_at) VALUES (?, ?, ?)`,
		run.ID, run.StartedAt.UTC().Format(timeFormat), run.FinishedAt.UTC().Format(timeFormat),
	); err != nil {
		return fmt.Errorf("inserting run %s: %w", run.ID, err)
	}

	insertRecord := fmt.Sprintf(
		`INSERT INTO match_records (run_id, seq, %s) VALUES (?, ?%s)`,
		strings.Join(recordColumns, ", "),
		strings.Repeat(", ?", len(recordColumns)),
	)

	for _, a := range run.Assets {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO run_assets (run_id, asset, error, pool_quantity, pool_cost) VALUES (?, ?, ?, ?, ?)`,
			run.ID, a.Asset, a.Error, a.PoolQuantity.String(), a.PoolCost.String(),
		); err != nil {
			return fmt.Errorf("inserting asset %s: %w", a.Asset, err)
		}

		for seq, line := range a.Lines {
			args := []any{run.ID, seq}
			for _, v := range ledger.MarshalRecord(line) {
				args = append(args, v)
			}
			if _, err := tx.ExecContext(ctx, insertRecord, args...); err != nil {
				return fmt.Errorf("inserting record %s: %w", line.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing run %s: %w", run.ID, err)
	}
	return nil
}

// ListRuns returns the most recent runs first. limit <= 0 means all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	query := `
SELECT r.id, r.started_at, r.finished_at,
	(SELECT COUNT(*) FROM run_assets a WHERE a.run_id = r.id),
	(SELECT COUNT(*) FROM run_assets a WHERE a.run_id = r.id AND a.error != ''),
	(SELECT COUNT(*) FROM match_records m WHERE m.run_id = r.id)
FROM runs r
ORDER BY r.id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var (
			rs              RunSummary
			started, ending string
		)
		if err := rows.Scan(&rs.ID, &started, &ending, &rs.Assets, &rs.Failed, &rs.Records); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if rs.StartedAt, err = time.Parse(timeFormat, started); err != nil {
			return nil, fmt.Errorf("parsing started_at %q: %w", started, err)
		}
		if rs.FinishedAt, err = time.Parse(timeFormat, ending); err != nil {
			return nil, fmt.Errorf("parsing finished_at %q: %w", ending, err)
		}
		out = append(out, rs)
	}
	return out, rows.Err()
}

// LoadRun returns a run with its per-asset outcomes and records.
func (s *Store) LoadRun(ctx context.Context, runID string) (Run, error) {
	var started, ending string
	err := s.db.QueryRowContext(ctx,
		`SELECT started_at, finished_at FROM runs WHERE id = ?`, runID,
	).Scan(&started, &ending)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return Run{}, fmt.Errorf("loading run %s: %w", runID, err)
	}

	run := Run{ID: runID}
	if run.StartedAt, err = time.Parse(timeFormat, started); err != nil {
		return Run{}, fmt.Errorf("parsing started_at %q: %w", started, err)
	}
	if run.FinishedAt, err = time.Parse(timeFormat, ending); err != nil {
		return Run{}, fmt.Errorf("parsing finished_at %q: %w", ending, err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT asset, error, pool_quantity, pool_cost FROM run_assets WHERE run_id = ? ORDER BY asset`, runID)
	if err != nil {
		return Run{}, fmt.Errorf("loading assets of run %s: %w", runID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			a         AssetResult
			qty, cost string
		)
		if err := rows.Scan(&a.Asset, &a.Error, &qty, &cost); err != nil {
			return Run{}, fmt.Errorf("scanning asset: %w", err)
		}
		if a.PoolQuantity, err = decimal.NewFromString(qty); err != nil {
			return Run{}, fmt.Errorf("parsing pool_quantity %q: %w", qty, err)
		}
		if a.PoolCost, err = decimal.NewFromString(cost); err != nil {
			return Run{}, fmt.Errorf("parsing pool_cost %q: %w", cost, err)
		}
		run.Assets = append(run.Assets, a)
	}
	if err := rows.Err(); err != nil {
		return Run{}, err
	}

	for i := range run.Assets {
		lines, err := s.LoadRecords(ctx, runID, run.Assets[i].Asset)
		if err != nil {
			return Run{}, err
		}
		run.Assets[i].Lines = lines
	}
	return run, nil
}

// LoadRecords returns the report lines of a run in report order. An empty
// asset loads every asset.
func (s *Store) LoadRecords(ctx context.Context, runID, asset string) ([]ledger.Line, error) {
	query := fmt.Sprintf(`SELECT %s FROM match_records WHERE run_id = ?`, strings.Join(recordColumns, ", "))
	args := []any{runID}
	if asset != "" {
		query += ` AND asset = ?`
		args = append(args, strings.ToUpper(asset))
	}
	query += ` ORDER BY asset, seq`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("loading records of run %s: %w", runID, err)
	}
	defer rows.Close()

	var lines []ledger.Line
	for rows.Next() {
		fields := make([]string, len(recordColumns))
		dest := make([]any, len(fields))
		for i := range fields {
			dest[i] = &fields[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		line, err := ledger.UnmarshalRecord(fields)
		if err != nil {
			return nil, fmt.Errorf("decoding record %s: %w", fields[0], err)
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}
