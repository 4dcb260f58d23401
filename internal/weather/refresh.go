package weather

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/i474232898/airport-weather/internal/observability"
)

// CacheTTL is how long a refreshed snapshot is served before it becomes stale.
const CacheTTL = 600 * time.Second

// LastUpdatedLayout formats the refresh time reported to callers (UTC).
const LastUpdatedLayout = "2006-01-02T15:04:05Z"

// Scraper produces a full snapshot.
type Scraper interface {
	Scrape(ctx context.Context) (Snapshot, error)
}

// RefreshListener is called after every successful refresh, outside the cache lock.
type RefreshListener func(ctx context.Context, snap Snapshot, refreshedAt time.Time)

type cacheEntry struct {
	fetchedAt   time.Time
	lastUpdated *string
	data        []AirportSnapshot
	reports     []SpecialReportRecord
}

// Coordinator serves the cached snapshot and refreshes it at most once at a time.
type Coordinator struct {
	mu    sync.Mutex
	entry cacheEntry

	scraper   Scraper
	clock     clockwork.Clock
	listeners []RefreshListener
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewCoordinator creates a Coordinator with an empty cache.
func NewCoordinator(scraper Scraper, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Coordinator {
	return &Coordinator{
		scraper: scraper,
		clock:   clock,
		logger:  logger,
		metrics: metrics,
	}
}

// OnRefresh registers a listener. It must be called before the coordinator is shared.
func (c *Coordinator) OnRefresh(l RefreshListener) {
	c.listeners = append(c.listeners, l)
}

// Get returns the cached snapshot, refreshing it first when it is stale.
// A forced refresh is refused while the cache is fresh. Failures are reported in Error.
func (c *Coordinator) Get(ctx context.Context, force bool) Envelope {
	env, refreshed, at := c.get(ctx, force)
	if refreshed != nil {
		lctx := context.WithoutCancel(ctx)
		for _, l := range c.listeners {
			l(lctx, *refreshed, at)
		}
	}
	return env
}

func (c *Coordinator) get(ctx context.Context, force bool) (Envelope, *Snapshot, time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	if c.entry.data != nil {
		age := now.Sub(c.entry.fetchedAt)
		if age < CacheTTL {
			if !force {
				c.metrics.CacheRequests.WithLabelValues("hit").Inc()
				return c.cachedEnvelope(nil), nil, time.Time{}
			}
			wait := int(math.Floor((CacheTTL - age).Seconds()))
			if wait < 0 {
				wait = 0
			}
			c.metrics.CacheRequests.WithLabelValues("refused").Inc()
			note := fmt.Sprintf("갱신은 10분마다 가능합니다. 약 %d초 후 다시 시도하세요.", wait)
			return c.cachedEnvelope(&note), nil, time.Time{}
		}
	}

	// The refresh is shared by every waiting caller, so one caller going away must not abort it.
	snap, err := c.scraper.Scrape(context.WithoutCancel(ctx))
	if err != nil {
		reason := err.Error()
		if c.entry.data != nil {
			c.logger.Warn("refresh failed; serving previous snapshot", "error", err)
			c.metrics.CacheRequests.WithLabelValues("fallback").Inc()
			note := fmt.Sprintf("갱신 실패로 이전 데이터를 표시합니다: %s", reason)
			return c.cachedEnvelope(&note), nil, time.Time{}
		}
		c.logger.Error("refresh failed with no previous snapshot", "error", err)
		c.metrics.CacheRequests.WithLabelValues("failed").Inc()
		return Envelope{
			Data:           []AirportSnapshot{},
			SpecialReports: []SpecialReportRecord{},
			Error:          &reason,
			Cached:         false,
		}, nil, time.Time{}
	}

	refreshedAt := c.clock.Now()
	lastUpdated := refreshedAt.UTC().Format(LastUpdatedLayout)
	c.entry = cacheEntry{
		fetchedAt:   refreshedAt,
		lastUpdated: &lastUpdated,
		data:        nonNilAirports(snap.Airports),
		reports:     nonNilReports(snap.SpecialReports),
	}
	c.metrics.CacheRequests.WithLabelValues("refreshed").Inc()
	c.metrics.LastRefresh.Set(float64(refreshedAt.Unix()))
	c.logger.Info("snapshot refreshed", "airports", len(c.entry.data), "last_updated", lastUpdated)

	snap.Airports, snap.SpecialReports = c.entry.data, c.entry.reports
	return Envelope{
		Data:           c.entry.data,
		SpecialReports: c.entry.reports,
		Cached:         false,
		LastUpdated:    c.entry.lastUpdated,
	}, &snap, refreshedAt
}

func (c *Coordinator) cachedEnvelope(note *string) Envelope {
	return Envelope{
		Data:           c.entry.data,
		SpecialReports: c.entry.reports,
		Error:          note,
		Cached:         true,
		LastUpdated:    c.entry.lastUpdated,
	}
}

func nonNilAirports(a []AirportSnapshot) []AirportSnapshot {
	if a == nil {
		return []AirportSnapshot{}
	}
	return a
}

func nonNilReports(r []SpecialReportRecord) []SpecialReportRecord {
	if r == nil {
		return []SpecialReportRecord{}
	}
	return r
}
