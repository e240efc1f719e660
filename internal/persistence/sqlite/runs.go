// SPDX-License-Identifier: MIT

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a run id does not exist.
var ErrNotFound = errors.New("run not found")

// Run is one row of the analysis run ledger.
type Run struct {
	ID         string
	Repository string
	Branch     string
	Algorithm  string
	Binning    string
	ChangesMin float64
	FreqMin    float64
	Status     string
	StartedAt  time.Time
	FinishedAt time.Time
	DurationMS int64
	Files      int
	Commits    int
	Error      string
}

// RunStore records analysis runs in SQLite.
type RunStore struct {
	db *sql.DB
}

// NewRunStore wraps an open database handle.
func NewRunStore(db *sql.DB) *RunStore {
	return &RunStore{db: db}
}

// Init creates the schema if it does not exist.
func (s *RunStore) Init(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	repository  TEXT NOT NULL,
	branch      TEXT NOT NULL,
	algorithm   TEXT NOT NULL,
	binning     TEXT NOT NULL,
	changes_min REAL NOT NULL,
	freq_min    REAL NOT NULL,
	status      TEXT NOT NULL,
	started_at  INTEGER NOT NULL,
	finished_at INTEGER NOT NULL DEFAULT 0,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	files       INTEGER NOT NULL DEFAULT 0,
	commits     INTEGER NOT NULL DEFAULT 0,
	error       TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at DESC);`

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("init runs schema: %w", err)
	}
	return nil
}

// Insert records the start of a run.
func (s *RunStore) Insert(ctx context.Context, r Run) error {
	const q = `
INSERT INTO runs (id, repository, branch, algorithm, binning, changes_min, freq_min, status, started_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, q,
		r.ID, r.Repository, r.Branch, r.Algorithm, r.Binning,
		r.ChangesMin, r.FreqMin, r.Status, r.StartedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert run %s: %w", r.ID, err)
	}
	return nil
}

// Finish updates a run with its terminal state.
func (s *RunStore) Finish(ctx context.Context, r Run) error {
	const q = `
UPDATE runs SET status = ?, finished_at = ?, duration_ms = ?, files = ?, commits = ?, error = ?
WHERE id = ?`

	res, err := s.db.ExecContext(ctx, q,
		r.Status, r.FinishedAt.UnixMilli(), r.DurationMS, r.Files, r.Commits, r.Error, r.ID)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", r.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run %s: %w", r.ID, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Get returns a single run by id.
func (s *RunStore) Get(ctx context.Context, id string) (Run, error) {
	const q = `
SELECT id, repository, branch, algorithm, binning, changes_min, freq_min,
       status, started_at, finished_at, duration_ms, files, commits, error
FROM runs WHERE id = ?`

	r, err := scanRun(s.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, ErrNotFound
		}
		return Run{}, fmt.Errorf("get run %s: %w", id, err)
	}
	return r, nil
}

// List returns up to limit runs, newest first.
func (s *RunStore) List(ctx context.Context, limit int) ([]Run, error) {
	const q = `
SELECT id, repository, branch, algorithm, binning, changes_min, freq_min,
       status, started_at, finished_at, duration_ms, files, commits, error
FROM runs ORDER BY started_at DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var r Run
	var started, finished int64
	err := row.Scan(&r.ID, &r.Repository, &r.Branch, &r.Algorithm, &r.Binning,
		&r.ChangesMin, &r.FreqMin, &r.Status, &started, &finished,
		&r.DurationMS, &r.Files, &r.Commits, &r.Error)
	if err != nil {
		return Run{}, err
	}
	r.StartedAt = time.UnixMilli(started).UTC()
	if finished > 0 {
		r.FinishedAt = time.UnixMilli(finished).UTC()
	}
	return r, nil
}
