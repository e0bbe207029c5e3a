// Package storage persists the observer's snapshot to sqlite so the event
// history survives restarts. Persistence failures never propagate into the
// engine: callers log them to the diagnostic channel and continue in memory.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite"

	"github.com/modwatch/citywatch/internal/eventlog"
	"github.com/modwatch/citywatch/internal/lifecycle"
)

// Store is the sqlite-backed snapshot store.
type Store struct {
	db *sql.DB
}

// Persisted is the snapshot layout restored on start: the archived events
// plus the two counters and the time of the last save.
type Persisted struct {
	Events           []eventlog.Record
	ValidTransitions int
	ErrorCount       int
	SavedAt          time.Time
}

// Open creates or opens the snapshot database at path. ":memory:" is
// supported for tests.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// The store is touched from the persist loop and the CLI; sqlite
	// serializes writers, a single connection avoids lock contention.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveSnapshot persists the snapshot in one transaction. Event records are
// appended by ID, so repeated saves of an overlapping window are idempotent.
func (s *Store) SaveSnapshot(ctx context.Context, snap lifecycle.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin snapshot transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	insert, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO event_records
			(id, relative_ms, message, category, is_error, state, context)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare event insert: %w", err)
	}
	defer func() { _ = insert.Close() }()

	for _, rec := range snap.Events {
		if _, err := insert.ExecContext(ctx,
			rec.ID, rec.RelativeMs, rec.Message, string(rec.Category),
			boolToInt(rec.IsError), rec.State, rec.Context,
		); err != nil {
			return fmt.Errorf("failed to store event record %s: %w", rec.ID, err)
		}
	}

	meta := map[string]string{
		metaValidTransitions: strconv.Itoa(snap.Counters.ValidTransitions),
		metaErrorCount:       strconv.Itoa(snap.Counters.Errors),
		metaSavedAt:          snap.SavedAt.UTC().Format(time.RFC3339Nano),
	}
	for key, value := range meta {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO snapshot_meta (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value
		`, key, value); err != nil {
			return fmt.Errorf("failed to store snapshot meta %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot restores the persisted snapshot, bounded to the most recent
// limit records. Returns nil when nothing has ever been saved.
func (s *Store) LoadSnapshot(ctx context.Context, limit int) (*Persisted, error) {
	var savedAt string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM snapshot_meta WHERE key = ?", metaSavedAt).Scan(&savedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot meta: %w", err)
	}

	p := &Persisted{}
	if p.SavedAt, err = time.Parse(time.RFC3339Nano, savedAt); err != nil {
		return nil, fmt.Errorf("failed to parse saved_at %q: %w", savedAt, err)
	}
	if p.ValidTransitions, err = s.metaInt(ctx, metaValidTransitions); err != nil {
		return nil, err
	}
	if p.ErrorCount, err = s.metaInt(ctx, metaErrorCount); err != nil {
		return nil, err
	}
	if p.Events, err = s.RecentEvents(ctx, limit); err != nil {
		return nil, err
	}
	return p, nil
}

// RecentEvents returns the last n archived records in insertion order.
func (s *Store) RecentEvents(ctx context.Context, n int) ([]eventlog.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, relative_ms, message, category, is_error, state, context
		FROM event_records
		ORDER BY seq DESC
		LIMIT ?
	`, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query event records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []eventlog.Record
	for rows.Next() {
		var rec eventlog.Record
		var category string
		var isError int
		if err := rows.Scan(&rec.ID, &rec.RelativeMs, &rec.Message,
			&category, &isError, &rec.State, &rec.Context); err != nil {
			return nil, fmt.Errorf("failed to scan event record: %w", err)
		}
		rec.Category = eventlog.Category(category)
		rec.IsError = isError != 0
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate event records: %w", err)
	}

	// Newest-first from the query; callers expect insertion order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// CountEvents returns the number of archived event records.
func (s *Store) CountEvents(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM event_records").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count event records: %w", err)
	}
	return n, nil
}

// CleanupByLimit deletes the oldest archived records until at most maxRows
// remain, working in batches to keep transactions short. Returns the number
// of rows deleted.
func (s *Store) CleanupByLimit(ctx context.Context, maxRows, batchSize int) (int, error) {
	if maxRows <= 0 {
		return 0, nil
	}
	if batchSize <= 0 {
		batchSize = 500
	}

	deleted := 0
	for {
		total, err := s.CountEvents(ctx)
		if err != nil {
			return deleted, err
		}
		excess := total - maxRows
		if excess <= 0 {
			return deleted, nil
		}
		if excess > batchSize {
			excess = batchSize
		}
		res, err := s.db.ExecContext(ctx, `
			DELETE FROM event_records WHERE seq IN (
				SELECT seq FROM event_records ORDER BY seq ASC LIMIT ?
			)
		`, excess)
		if err != nil {
			return deleted, fmt.Errorf("failed to delete old event records: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return deleted, fmt.Errorf("failed to read delete count: %w", err)
		}
		deleted += int(n)
		if n == 0 {
			return deleted, nil
		}
	}
}

// ClearAll removes every archived record and the snapshot meta, matching the
// engine's atomic clear semantics for the persisted side.
func (s *Store) ClearAll(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin clear transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM event_records"); err != nil {
		return fmt.Errorf("failed to clear event records: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM snapshot_meta"); err != nil {
		return fmt.Errorf("failed to clear snapshot meta: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit clear: %w", err)
	}
	return nil
}

func (s *Store) metaInt(ctx context.Context, key string) (int, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM snapshot_meta WHERE key = ?", key).Scan(&raw)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read snapshot meta %s: %w", key, err)
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("failed to parse snapshot meta %s=%q: %w", key, raw, err)
	}
	return n, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
