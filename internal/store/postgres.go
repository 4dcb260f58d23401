package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/i474232898/airport-weather/internal/weather"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS weather_latest (
    id INTEGER PRIMARY KEY,
    data JSONB NOT NULL,
    special_reports JSONB NOT NULL DEFAULT '[]'::jsonb,
    updated_at TIMESTAMPTZ NOT NULL
)`

const upsertLatest = `
INSERT INTO weather_latest (id, data, special_reports, updated_at)
VALUES (1, $1::jsonb, $2::jsonb, $3)
ON CONFLICT (id) DO UPDATE SET
    data = EXCLUDED.data,
    special_reports = EXCLUDED.special_reports,
    updated_at = EXCLUDED.updated_at`

const selectLatest = `SELECT data, special_reports, updated_at FROM weather_latest WHERE id = 1`

type pgConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresLatest mirrors the latest snapshot into the single-row weather_latest table.
type PostgresLatest struct {
	conn pgConn
	pool *pgxpool.Pool
}

// OpenPostgresLatest connects to databaseURL and ensures the weather_latest table exists.
func OpenPostgresLatest(ctx context.Context, databaseURL string) (*PostgresLatest, error) {
	pool, err := pgxpool.New(ctx, normalizePostgresURL(databaseURL))
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create weather_latest: %w", err)
	}
	return &PostgresLatest{conn: pool, pool: pool}, nil
}

// Name identifies the sink in logs and metrics.
func (p *PostgresLatest) Name() string { return "postgres" }

// PublishLatest upserts the snapshot into row id=1.
func (p *PostgresLatest) PublishLatest(ctx context.Context, snap weather.Snapshot, updatedAt time.Time) error {
	rec := newLatestRecord(snap, updatedAt)
	data, err := json.Marshal(rec.Data)
	if err != nil {
		return fmt.Errorf("encode latest data: %w", err)
	}
	reports, err := json.Marshal(rec.SpecialReports)
	if err != nil {
		return fmt.Errorf("encode latest special reports: %w", err)
	}
	if _, err := p.conn.Exec(ctx, upsertLatest, string(data), string(reports), rec.UpdatedAt); err != nil {
		return fmt.Errorf("upsert weather_latest: %w", err)
	}
	return nil
}

// Latest reads the mirrored snapshot back. ErrNotFound means nothing was published yet.
func (p *PostgresLatest) Latest(ctx context.Context) (LatestRecord, error) {
	var (
		rec           LatestRecord
		data, reports []byte
	)
	err := p.conn.QueryRow(ctx, selectLatest).Scan(&data, &reports, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return LatestRecord{}, ErrNotFound
	}
	if err != nil {
		return LatestRecord{}, fmt.Errorf("read weather_latest: %w", err)
	}
	if err := json.Unmarshal(data, &rec.Data); err != nil {
		return LatestRecord{}, fmt.Errorf("decode latest data: %w", err)
	}
	if err := json.Unmarshal(reports, &rec.SpecialReports); err != nil {
		return LatestRecord{}, fmt.Errorf("decode latest special reports: %w", err)
	}
	return rec, nil
}

// Close releases the connection pool.
func (p *PostgresLatest) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}

// normalizePostgresURL rewrites the legacy postgres:// scheme some hosts still hand out.
func normalizePostgresURL(u string) string {
	if strings.HasPrefix(u, "postgres://") {
		return "postgresql://" + strings.TrimPrefix(u, "postgres://")
	}
	return u
}
