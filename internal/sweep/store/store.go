// Package store persists parameter-sweep run summaries to a local SQLite
// database, so a researcher can compare runs after the sweep command
// exits without re-running the simulation.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS sweep_runs (
	id                      INTEGER PRIMARY KEY AUTOINCREMENT,
	seed                    INTEGER NOT NULL,
	population_size         INTEGER NOT NULL,
	ticks                   INTEGER NOT NULL,
	total_matches_formed    INTEGER NOT NULL,
	mean_search_wait_secs   REAL NOT NULL,
	blowout_mild            INTEGER NOT NULL,
	blowout_moderate        INTEGER NOT NULL,
	blowout_severe          INTEGER NOT NULL,
	error                   TEXT NOT NULL DEFAULT '',
	created_at              TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
);
`

// RunSummary is one sweep arm's persisted result row.
type RunSummary struct {
	Seed               uint64
	PopulationSize     int
	Ticks              int
	TotalMatchesFormed int
	MeanSearchWaitSecs float64
	BlowoutMild        int
	BlowoutModerate    int
	BlowoutSevere      int
	Error              string
}

// Store is a SQLite-backed store for sweep run summaries.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) a SQLite store at path and applies
// the schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	dsn := path + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// InsertRun persists one run summary and returns its assigned row id.
func (s *Store) InsertRun(ctx context.Context, r RunSummary) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO sweep_runs (
			seed, population_size, ticks, total_matches_formed,
			mean_search_wait_secs, blowout_mild, blowout_moderate, blowout_severe, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		int64(r.Seed), r.PopulationSize, r.Ticks, r.TotalMatchesFormed,
		r.MeanSearchWaitSecs, r.BlowoutMild, r.BlowoutModerate, r.BlowoutSevere, r.Error,
	)
	if err != nil {
		return 0, fmt.Errorf("insert sweep run: %w", err)
	}
	return res.LastInsertId()
}

// CountRuns returns the total number of persisted run summaries.
func (s *Store) CountRuns(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sweep_runs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count sweep runs: %w", err)
	}
	return n, nil
}
