package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// ErrBuildNotFound is returned when a build id has no record.
var ErrBuildNotFound = errors.New("build not found")

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteStore creates a SQLite-backed history store. Use ":memory:" for an
// in-memory database, or a file path for persistent storage.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS builds (
		id TEXT PRIMARY KEY,
		project TEXT NOT NULL,
		ref TEXT,
		commit_hash TEXT,
		outcome TEXT NOT NULL,
		error TEXT,
		started INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_builds_started ON builds(started);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		build_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		payload BLOB,
		metadata TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_events_build_id ON events(build_id);
	CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events(timestamp);
	`
	_, err := s.db.Exec(schema)
	return err
}

// AppendEvent adds a lifecycle event for a build.
func (s *SQLiteStore) AppendEvent(ctx context.Context, buildID, eventType string, payload []byte, metadata map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var metadataJSON []byte
	if metadata != nil {
		var err error
		metadataJSON, err = json.Marshal(metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO events (build_id, event_type, timestamp, payload, metadata) VALUES (?, ?, ?, ?, ?)",
		buildID, eventType, time.Now().UnixMilli(), payload, metadataJSON,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// Events returns a build's events in append order.
func (s *SQLiteStore) Events(ctx context.Context, buildID string) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, build_id, event_type, timestamp, payload, metadata FROM events WHERE build_id = ? ORDER BY id",
		buildID,
	)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			ev           Event
			ts           int64
			metadataJSON sql.NullString
		)
		if err := rows.Scan(&ev.ID, &ev.BuildID, &ev.Type, &ts, &ev.Payload, &metadataJSON); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Timestamp = time.UnixMilli(ts)
		if metadataJSON.Valid && metadataJSON.String != "" {
			if err := json.Unmarshal([]byte(metadataJSON.String), &ev.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal metadata: %w", err)
			}
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// RecordBuild inserts or replaces a build summary.
func (s *SQLiteStore) RecordBuild(ctx context.Context, rec BuildRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO builds (id, project, ref, commit_hash, outcome, error, started, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Project, rec.Ref, rec.Commit, rec.Outcome, rec.Error,
		rec.Started.UnixMilli(), rec.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert build: %w", err)
	}
	return nil
}

// GetBuild returns one build summary by id.
func (s *SQLiteStore) GetBuild(ctx context.Context, id string) (*BuildRecord, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, project, ref, commit_hash, outcome, error, started, duration_ms FROM builds WHERE id = ?", id)

	rec, err := scanBuild(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBuildNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan build: %w", err)
	}
	return rec, nil
}

// ListBuilds returns the newest builds first, capped at limit (default 50).
func (s *SQLiteStore) ListBuilds(ctx context.Context, limit int) ([]BuildRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, project, ref, commit_hash, outcome, error, started, duration_ms FROM builds ORDER BY started DESC, id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query builds: %w", err)
	}
	defer rows.Close()

	var records []BuildRecord
	for rows.Next() {
		rec, err := scanBuild(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan build: %w", err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// Prune removes builds (and their events) older than the cutoff. It returns
// the number of builds removed.
func (s *SQLiteStore) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := olderThan.UnixMilli()
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM events WHERE build_id IN (SELECT id FROM builds WHERE started < ?)", cutoff); err != nil {
		return 0, fmt.Errorf("prune events: %w", err)
	}
	res, err := s.db.ExecContext(ctx, "DELETE FROM builds WHERE started < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune builds: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanBuild(scan func(...any) error) (*BuildRecord, error) {
	var (
		rec        BuildRecord
		started    int64
		durationMS int64
		ref        sql.NullString
		commit     sql.NullString
		errText    sql.NullString
	)
	if err := scan(&rec.ID, &rec.Project, &ref, &commit, &rec.Outcome, &errText, &started, &durationMS); err != nil {
		return nil, err
	}
	rec.Ref = ref.String
	rec.Commit = commit.String
	rec.Error = errText.String
	rec.Started = time.UnixMilli(started)
	rec.Duration = time.Duration(durationMS) * time.Millisecond
	return &rec, nil
}
