// Package history persists build records in SQLite.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Record is one persisted build.
type Record struct {
	ID        string
	Mode      string // html, prod, clean
	Outcome   string // success, failed, canceled
	Error     string
	StartedAt time.Time
	Duration  time.Duration
}

// Store is a SQLite-backed build history.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens (and initializes) the history database. Use ":memory:" for
// an in-memory database.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS builds (
		id TEXT PRIMARY KEY,
		mode TEXT NOT NULL,
		outcome TEXT NOT NULL,
		error TEXT,
		started_at INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_builds_started_at ON builds(started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts a build record.
func (s *Store) Record(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO builds (id, mode, outcome, error, started_at, duration_ms) VALUES (?, ?, ?, ?, ?, ?)",
		rec.ID, rec.Mode, rec.Outcome, rec.Error, rec.StartedAt.UnixMilli(), rec.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert build record: %w", err)
	}
	return nil
}

// Recent returns the most recent builds, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, mode, outcome, error, started_at, duration_ms FROM builds ORDER BY started_at DESC, id LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query builds: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var startedMS, durationMS int64
		var errText sql.NullString
		if err := rows.Scan(&rec.ID, &rec.Mode, &rec.Outcome, &errText, &startedMS, &durationMS); err != nil {
			return nil, fmt.Errorf("scan build record: %w", err)
		}
		rec.Error = errText.String
		rec.StartedAt = time.UnixMilli(startedMS)
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Prune removes records older than the cutoff, returning the number removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM builds WHERE started_at < ?", cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune builds: %w", err)
	}
	return res.RowsAffected()
}
