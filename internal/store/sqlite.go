package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"
	_ "modernc.org/sqlite"

	"github.com/i474232898/airport-weather/internal/weather"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS snapshots (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    timestamp TEXT NOT NULL,
    run_id TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL,
    UNIQUE(timestamp)
);
CREATE TABLE IF NOT EXISTS weather_data (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    snapshot_id INTEGER NOT NULL,
    airport_code TEXT NOT NULL,
    airport_name TEXT NOT NULL,
    data_json TEXT NOT NULL,
    FOREIGN KEY (snapshot_id) REFERENCES snapshots(id)
);
CREATE INDEX IF NOT EXISTS idx_airport_code ON weather_data(airport_code);
`

// createdAtLayout has a fixed width so the text column sorts chronologically.
const createdAtLayout = "2006-01-02T15:04:05.000000Z"

// SQLiteStore keeps history snapshots in a SQLite database.
type SQLiteStore struct {
	db    *sql.DB
	clock clockwork.Clock
}

// OpenSQLite opens (creating if needed) the database at path and applies the schema.
func OpenSQLite(path string, clock clockwork.Clock) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA encoding = 'UTF-8'"); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure sqlite: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db, clock: clock}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveSnapshot stores a batch under its snapshot key, replacing the rows of an existing key.
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, runID string, airports []weather.AirportSnapshot) (int64, error) {
	now := s.clock.Now()
	key := SnapshotKey(airports, now)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO snapshots (timestamp, run_id, created_at) VALUES (?, ?, ?)`,
		key, runID, now.UTC().Format(createdAtLayout),
	); err != nil {
		return 0, fmt.Errorf("insert snapshot: %w", err)
	}

	var id int64
	if err := tx.QueryRowContext(ctx, `SELECT id FROM snapshots WHERE timestamp = ?`, key).Scan(&id); err != nil {
		return 0, fmt.Errorf("lookup snapshot %q: %w", key, err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE snapshots SET run_id = ? WHERE id = ?`, runID, id); err != nil {
		return 0, fmt.Errorf("update snapshot run id: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM weather_data WHERE snapshot_id = ?`, id); err != nil {
		return 0, fmt.Errorf("clear snapshot rows: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO weather_data (snapshot_id, airport_code, airport_name, data_json) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare airport insert: %w", err)
	}
	defer stmt.Close()

	for _, a := range airports {
		raw, err := json.Marshal(a)
		if err != nil {
			return 0, fmt.Errorf("encode %s: %w", a.Code, err)
		}
		if _, err := stmt.ExecContext(ctx, id, a.Code, a.Name, string(raw)); err != nil {
			return 0, fmt.Errorf("insert %s: %w", a.Code, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit save: %w", err)
	}
	return id, nil
}

// ListSnapshots returns all snapshots, newest first.
func (s *SQLiteStore) ListSnapshots(ctx context.Context) ([]weather.HistorySnapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, timestamp, created_at FROM snapshots ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	out := []weather.HistorySnapshot{}
	for rows.Next() {
		var (
			snap    weather.HistorySnapshot
			created string
		)
		if err := rows.Scan(&snap.ID, &snap.RunID, &snap.Timestamp, &created); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snap.CreatedAt = parseCreatedAt(created)
		out = append(out, snap)
	}
	return out, rows.Err()
}

// SnapshotData returns the airport records of one snapshot ordered by airport name.
func (s *SQLiteStore) SnapshotData(ctx context.Context, id int64) ([]weather.AirportSnapshot, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM snapshots WHERE id = ?`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup snapshot %d: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT data_json FROM weather_data WHERE snapshot_id = ? ORDER BY airport_name, id`, id)
	if err != nil {
		return nil, fmt.Errorf("query snapshot %d: %w", id, err)
	}
	defer rows.Close()

	out := []weather.AirportSnapshot{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		var a weather.AirportSnapshot
		if err := json.Unmarshal([]byte(raw), &a); err != nil {
			return nil, fmt.Errorf("decode snapshot row: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// AirportHistory returns every stored record of one airport, newest snapshot first.
func (s *SQLiteStore) AirportHistory(ctx context.Context, code string) ([]weather.AirportHistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT s.timestamp, s.created_at, w.data_json
FROM weather_data w
JOIN snapshots s ON w.snapshot_id = s.id
WHERE w.airport_code = ?
ORDER BY s.created_at DESC, s.id DESC`, code)
	if err != nil {
		return nil, fmt.Errorf("query airport history %s: %w", code, err)
	}
	defer rows.Close()

	out := []weather.AirportHistoryEntry{}
	for rows.Next() {
		var (
			entry   weather.AirportHistoryEntry
			created string
			raw     string
		)
		if err := rows.Scan(&entry.SnapshotTimestamp, &created, &raw); err != nil {
			return nil, fmt.Errorf("scan airport history: %w", err)
		}
		if err := json.Unmarshal([]byte(raw), &entry.AirportSnapshot); err != nil {
			return nil, fmt.Errorf("decode airport history: %w", err)
		}
		entry.SnapshotCreatedAt = parseCreatedAt(created)
		out = append(out, entry)
	}
	return out, rows.Err()
}

func parseCreatedAt(v string) time.Time {
	t, err := time.Parse(createdAtLayout, v)
	if err != nil {
		return time.Time{}
	}
	return t
}
