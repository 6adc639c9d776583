// Package store persists room snapshots in SQLite. Each room is one
// whole record: the coordinator reads and writes the full snapshot blob
// so a state transition and its persisted delta succeed or fail
// together. No other component touches a room's record.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SnapshotVersion is written into every record and checked on load, so
// stale blobs fail loudly instead of resuming into garbage state.
const SnapshotVersion = 1

// ErrNotFound is returned when no record exists for a room code.
var ErrNotFound = errors.New("room not found")

// Record is one persisted room.
type Record struct {
	Code      string
	Version   int
	Phase     string
	UpdatedAt time.Time
	WakeAt    *time.Time // next alarm deadline, nil when no alarm is armed
	Snapshot  json.RawMessage
}

// Store is a SQLite-backed room snapshot store.
type Store struct {
	sqlDB *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS rooms (
    code       TEXT PRIMARY KEY,
    version    INTEGER NOT NULL,
    phase      TEXT NOT NULL,
    updated_at INTEGER NOT NULL,
    wake_at    INTEGER,
    snapshot   BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS rooms_wake_at ON rooms(wake_at) WHERE wake_at IS NOT NULL;
`

// Open opens (creating if needed) the store at path and applies the
// schema. Use ":memory:" for an in-memory store in tests.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := path
	if path != ":memory:" {
		dsn = filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	}
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the underlying handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Save upserts the whole record for a room.
func (s *Store) Save(ctx context.Context, rec Record) error {
	if rec.Code == "" {
		return fmt.Errorf("room code is required")
	}
	if len(rec.Snapshot) == 0 {
		return fmt.Errorf("snapshot is required")
	}
	var wakeAt any
	if rec.WakeAt != nil {
		wakeAt = rec.WakeAt.UTC().UnixMilli()
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO rooms (code, version, phase, updated_at, wake_at, snapshot)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(code) DO UPDATE SET
		   version = excluded.version,
		   phase = excluded.phase,
		   updated_at = excluded.updated_at,
		   wake_at = excluded.wake_at,
		   snapshot = excluded.snapshot`,
		rec.Code, SnapshotVersion, rec.Phase, rec.UpdatedAt.UTC().UnixMilli(), wakeAt, []byte(rec.Snapshot))
	if err != nil {
		return fmt.Errorf("save room %s: %w", rec.Code, err)
	}
	return nil
}

// Load reads the whole record for a room code.
func (s *Store) Load(ctx context.Context, code string) (Record, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT code, version, phase, updated_at, wake_at, snapshot FROM rooms WHERE code = ?`, code)

	var rec Record
	var updatedAt int64
	var wakeAt sql.NullInt64
	var blob []byte
	if err := row.Scan(&rec.Code, &rec.Version, &rec.Phase, &updatedAt, &wakeAt, &blob); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("load room %s: %w", code, err)
	}
	if rec.Version != SnapshotVersion {
		return Record{}, fmt.Errorf("room %s: unsupported snapshot version %d", code, rec.Version)
	}
	rec.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	if wakeAt.Valid {
		t := time.UnixMilli(wakeAt.Int64).UTC()
		rec.WakeAt = &t
	}
	rec.Snapshot = json.RawMessage(blob)
	return rec, nil
}

// Delete removes a room record. Deleting a missing room is not an error.
func (s *Store) Delete(ctx context.Context, code string) error {
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM rooms WHERE code = ?`, code); err != nil {
		return fmt.Errorf("delete room %s: %w", code, err)
	}
	return nil
}

// DueWakes returns the codes of rooms whose persisted alarm deadline
// has passed. The manager uses this to resume evicted rooms whose
// timers fired while they were out of memory.
func (s *Store) DueWakes(ctx context.Context, now time.Time) ([]string, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT code FROM rooms WHERE wake_at IS NOT NULL AND wake_at <= ?`, now.UTC().UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("query due wakes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("scan due wake: %w", err)
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

// Sweep deletes rooms not updated since the cutoff, returning how many
// were removed. Ended and abandoned rooms age out this way.
func (s *Store) Sweep(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.sqlDB.ExecContext(ctx,
		`DELETE FROM rooms WHERE updated_at < ?`, cutoff.UTC().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("sweep rooms: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
