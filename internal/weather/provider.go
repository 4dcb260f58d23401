package weather

import (
	"context"
	"errors"
	"time"

	"github.com/PuerkitoBio/goquery"
)

var (
	// ErrFetch marks a navigation failure: transport error, timeout or bad status.
	ErrFetch = errors.New("document fetch failed")
	// ErrSelectorTimeout marks a structural element that never appeared in the page.
	ErrSelectorTimeout = errors.New("expected element not found")
	// ErrNoAirports is returned when a directory page parsed but yielded no airports.
	ErrNoAirports = errors.New("no airport observations extracted")
)

// DocumentSource fetches a page and returns its parsed element tree.
// Implementations share one underlying session; every Open is an independent page.
type DocumentSource interface {
	Open(ctx context.Context, url string) (*goquery.Document, error)
}

// HistorySnapshot describes one saved snapshot batch.
type HistorySnapshot struct {
	ID        int64     `json:"id"`
	RunID     string    `json:"run_id,omitempty"`
	Timestamp string    `json:"timestamp"`
	CreatedAt time.Time `json:"created_at"`
}

// AirportHistoryEntry is one airport record annotated with the snapshot it came from.
type AirportHistoryEntry struct {
	AirportSnapshot
	SnapshotTimestamp string    `json:"snapshot_timestamp"`
	SnapshotCreatedAt time.Time `json:"snapshot_created_at"`
}

// HistoryStore persists immutable snapshot batches keyed by their observation timestamp.
type HistoryStore interface {
	SaveSnapshot(ctx context.Context, runID string, airports []AirportSnapshot) (int64, error)
	ListSnapshots(ctx context.Context) ([]HistorySnapshot, error)
	SnapshotData(ctx context.Context, id int64) ([]AirportSnapshot, error)
	AirportHistory(ctx context.Context, code string) ([]AirportHistoryEntry, error)
}

// LatestPublisher mirrors the most recent successful snapshot to an external store.
type LatestPublisher interface {
	Name() string
	PublishLatest(ctx context.Context, snap Snapshot, updatedAt time.Time) error
}
