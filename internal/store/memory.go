package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/i474232898/airport-weather/internal/weather"
)

type memorySnapshot struct {
	meta     weather.HistorySnapshot
	airports []weather.AirportSnapshot
}

// MemoryStore is a concurrency-safe in-memory history store.
type MemoryStore struct {
	mu sync.RWMutex

	// ordered by creation, oldest first
	snapshots []memorySnapshot
	nextID    int64

	// retention configuration
	maxHistory int           // max number of snapshots kept
	maxAge     time.Duration // optional max age for snapshots

	clock clockwork.Clock
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxHistory is <= 0, it is treated as unlimited.
func NewMemoryStore(maxHistory int, maxAge time.Duration, clock clockwork.Clock) *MemoryStore {
	return &MemoryStore{
		maxHistory: maxHistory,
		maxAge:     maxAge,
		clock:      clock,
	}
}

// SaveSnapshot stores a batch under its snapshot key, replacing the rows of an existing key.
func (s *MemoryStore) SaveSnapshot(_ context.Context, runID string, airports []weather.AirportSnapshot) (int64, error) {
	now := s.clock.Now()
	key := SnapshotKey(airports, now)
	rows := append([]weather.AirportSnapshot(nil), airports...)

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.snapshots {
		if s.snapshots[i].meta.Timestamp == key {
			s.snapshots[i].airports = rows
			s.snapshots[i].meta.RunID = runID
			return s.snapshots[i].meta.ID, nil
		}
	}

	s.nextID++
	s.snapshots = append(s.snapshots, memorySnapshot{
		meta: weather.HistorySnapshot{
			ID:        s.nextID,
			RunID:     runID,
			Timestamp: key,
			CreatedAt: now,
		},
		airports: rows,
	})
	id := s.nextID

	// Enforce retention by count.
	if s.maxHistory > 0 && len(s.snapshots) > s.maxHistory {
		over := len(s.snapshots) - s.maxHistory
		s.snapshots = s.snapshots[over:]
	}

	// Enforce retention by age.
	if s.maxAge > 0 {
		cutoff := now.Add(-s.maxAge)
		i := 0
		for ; i < len(s.snapshots); i++ {
			if !s.snapshots[i].meta.CreatedAt.Before(cutoff) {
				break
			}
		}
		s.snapshots = s.snapshots[i:]
	}

	return id, nil
}

// ListSnapshots returns all snapshots, newest first.
func (s *MemoryStore) ListSnapshots(_ context.Context) ([]weather.HistorySnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]weather.HistorySnapshot, 0, len(s.snapshots))
	for i := len(s.snapshots) - 1; i >= 0; i-- {
		out = append(out, s.snapshots[i].meta)
	}
	return out, nil
}

// SnapshotData returns the airport records of one snapshot ordered by airport name.
func (s *MemoryStore) SnapshotData(_ context.Context, id int64) ([]weather.AirportSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, snap := range s.snapshots {
		if snap.meta.ID == id {
			out := append([]weather.AirportSnapshot(nil), snap.airports...)
			sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
			return out, nil
		}
	}
	return nil, ErrNotFound
}

// AirportHistory returns every stored record of one airport, newest snapshot first.
func (s *MemoryStore) AirportHistory(_ context.Context, code string) ([]weather.AirportHistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []weather.AirportHistoryEntry{}
	for i := len(s.snapshots) - 1; i >= 0; i-- {
		snap := s.snapshots[i]
		for _, a := range snap.airports {
			if a.Code == code {
				out = append(out, weather.AirportHistoryEntry{
					AirportSnapshot:   a,
					SnapshotTimestamp: snap.meta.Timestamp,
					SnapshotCreatedAt: snap.meta.CreatedAt,
				})
			}
		}
	}
	return out, nil
}
