package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/google/uuid"

	"github.com/i474232898/airport-weather/internal/weather"
)

// Refresher is the cache the warming job keeps fresh.
type Refresher interface {
	Get(ctx context.Context, force bool) weather.Envelope
}

// Scheduler periodically refreshes the snapshot cache so requests rarely pay for a scrape.
type Scheduler struct {
	scheduler *gocron.Scheduler
	refresher Refresher
	interval  time.Duration
	timeout   time.Duration
	logger    *slog.Logger
}

// New creates a new Scheduler. timeout bounds one warming run.
func New(refresher Refresher, interval, timeout time.Duration, logger *slog.Logger) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		refresher: refresher,
		interval:  interval,
		timeout:   timeout,
		logger:    logger,
	}
}

// Start schedules the warming job, which also runs once right away.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		s.logger.Info("scheduler: refresh interval disabled; cache refreshes on demand only")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).Do(s.warm)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.logger.Info("scheduler: started", "interval", s.interval)
	return nil
}

func (s *Scheduler) warm() {
	runID := uuid.NewString()
	logger := s.logger.With("run_id", runID)
	logger.Debug("scheduler: running cache warm job")

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	env := s.refresher.Get(ctx, false)
	switch {
	case env.Error != nil:
		logger.Warn("scheduler: cache warm finished with error", "error", *env.Error, "cached", env.Cached)
	case env.Cached:
		logger.Debug("scheduler: cache still fresh")
	default:
		logger.Info("scheduler: cache refreshed", "airports", len(env.Data))
	}
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
