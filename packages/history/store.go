// Package history persists runs and attempts to SQLite so past device
// behavior can be queried after the text logs rotate away.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// SQLite driver
	_ "github.com/mattn/go-sqlite3"

	"github.com/hbruhn/devprobe/packages/http"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	kind       TEXT NOT NULL,
	state      TEXT NOT NULL DEFAULT 'running',
	ok         INTEGER NOT NULL DEFAULT 0,
	errors     INTEGER NOT NULL DEFAULT 0,
	started_at TIMESTAMP NOT NULL,
	ended_at   TIMESTAMP
);
CREATE TABLE IF NOT EXISTS attempts (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      TEXT NOT NULL REFERENCES runs(id),
	preset      TEXT NOT NULL,
	tag         TEXT NOT NULL,
	status_code INTEGER NOT NULL DEFAULT 0,
	url         TEXT NOT NULL,
	detail      TEXT NOT NULL DEFAULT '',
	elapsed_ms  INTEGER NOT NULL DEFAULT 0,
	recorded_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_attempts_run ON attempts(run_id);
`

const queryTimeout = 5 * time.Second

// Store is a SQLite-backed run history.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the history database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening history db: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to history db: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating history schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// BeginRun inserts a new run row in the running state.
func (s *Store) BeginRun(id, kind string, started time.Time) error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, kind, started_at) VALUES (?, ?, ?)`,
		id, kind, started.UTC())
	if err != nil {
		return fmt.Errorf("recording run start: %w", err)
	}
	return nil
}

// FinishRun records the terminal state and counters of a run.
func (s *Store) FinishRun(id, state string, ok, errors int, ended time.Time) error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET state = ?, ok = ?, errors = ?, ended_at = ? WHERE id = ?`,
		state, ok, errors, ended.UTC(), id)
	if err != nil {
		return fmt.Errorf("recording run end: %w", err)
	}
	return nil
}

// RecordAttempt inserts one attempt row for the run.
func (s *Store) RecordAttempt(runID, presetName string, d *http.Descriptor, res *http.ExecutionResult) error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	ts := res.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO attempts (run_id, preset, tag, status_code, url, detail, elapsed_ms, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, presetName, string(res.Tag), res.StatusCode, d.URL, res.Detail,
		res.Elapsed.Milliseconds(), ts.UTC())
	if err != nil {
		return fmt.Errorf("recording attempt: %w", err)
	}
	return nil
}

// Run is one row from the runs table.
type Run struct {
	ID      string
	Kind    string
	State   string
	OK      int
	Errors  int
	Started time.Time
	Ended   sql.NullTime
}

// RecentRuns returns the most recent runs, newest first.
func (s *Store) RecentRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, state, ok, errors, started_at, ended_at
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Kind, &r.State, &r.OK, &r.Errors, &r.Started, &r.Ended); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Attempt is one row from the attempts table.
type Attempt struct {
	Preset     string
	Tag        string
	StatusCode int
	URL        string
	Detail     string
	ElapsedMS  int64
	Recorded   time.Time
}

// Attempts returns the attempts of a run in recording order.
func (s *Store) Attempts(runID string) ([]Attempt, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		`SELECT preset, tag, status_code, url, detail, elapsed_ms, recorded_at
		 FROM attempts WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying attempts: %w", err)
	}
	defer rows.Close()

	var attempts []Attempt
	for rows.Next() {
		var a Attempt
		if err := rows.Scan(&a.Preset, &a.Tag, &a.StatusCode, &a.URL, &a.Detail, &a.ElapsedMS, &a.Recorded); err != nil {
			return nil, fmt.Errorf("scanning attempt: %w", err)
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// RunRecorder adapts the store to the batch runner's Recorder interface for
// a single run.
type RunRecorder struct {
	store *Store
	runID string
}

// NewRunRecorder binds attempt recording to a run id.
func (s *Store) NewRunRecorder(runID string) *RunRecorder {
	return &RunRecorder{store: s, runID: runID}
}

// Record inserts the attempt under the recorder's run.
func (r *RunRecorder) Record(presetName string, d *http.Descriptor, res *http.ExecutionResult) error {
	return r.store.RecordAttempt(r.runID, presetName, d, res)
}
