package weather

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/airport-weather/internal/observability"
)

// Syncer records refreshed snapshots in the history store and the latest mirrors.
type Syncer struct {
	history    HistoryStore
	publishers []LatestPublisher
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewSyncer creates a Syncer. history may be nil.
func NewSyncer(history HistoryStore, publishers []LatestPublisher, logger *slog.Logger, metrics *observability.Metrics) *Syncer {
	return &Syncer{
		history:    history,
		publishers: publishers,
		logger:     logger,
		metrics:    metrics,
	}
}

// Sync saves the snapshot and publishes it everywhere. Every sink is attempted;
// the first error is returned.
func (s *Syncer) Sync(ctx context.Context, snap Snapshot, at time.Time) error {
	if len(snap.Airports) == 0 {
		s.logger.Warn("no weather data to sync")
		return ErrNoAirports
	}

	runID := uuid.NewString()
	var firstErr error

	if s.history != nil {
		id, err := s.history.SaveSnapshot(ctx, runID, snap.Airports)
		if err != nil {
			s.logger.Error("history save failed", "run_id", runID, "error", err)
			firstErr = err
		} else {
			s.logger.Info("history snapshot saved", "run_id", runID, "snapshot_id", id)
		}
	}

	for _, p := range s.publishers {
		if err := p.PublishLatest(ctx, snap, at); err != nil {
			s.logger.Error("latest publish failed", "sink", p.Name(), "run_id", runID, "error", err)
			s.metrics.PublishErrors.WithLabelValues(p.Name()).Inc()
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		s.logger.Debug("latest published", "sink", p.Name(), "run_id", runID)
	}
	return firstErr
}

// Listener adapts Sync to a RefreshListener, logging instead of returning errors.
func (s *Syncer) Listener() RefreshListener {
	return func(ctx context.Context, snap Snapshot, at time.Time) {
		if err := s.Sync(ctx, snap, at); err != nil {
			s.logger.Warn("post-refresh sync incomplete", "error", err)
		}
	}
}
