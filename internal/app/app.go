// Package app assembles the scraper, cache, history and mirrors from configuration.
package app

import (
	"context"
	"io"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/i474232898/airport-weather/internal/config"
	"github.com/i474232898/airport-weather/internal/observability"
	"github.com/i474232898/airport-weather/internal/store"
	"github.com/i474232898/airport-weather/internal/weather"
	"github.com/i474232898/airport-weather/internal/weather/providers"
)

// Runtime holds the wired components shared by the server and the CLI.
type Runtime struct {
	Service     *weather.Service
	Coordinator *weather.Coordinator
	History     weather.HistoryStore
	Syncer      *weather.Syncer
	Clock       clockwork.Clock

	closers []func()
}

// Build wires every component from cfg. Mirrors are only opened when configured.
func Build(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger, metrics *observability.Metrics) (*Runtime, error) {
	rt := &Runtime{Clock: clockwork.NewRealClock()}

	tables := weather.DefaultTables()
	if cfg.RegionTablePath != "" {
		var err error
		if tables, err = weather.LoadTables(cfg.RegionTablePath); err != nil {
			return nil, err
		}
		logger.Info("loaded region table", "path", cfg.RegionTablePath, "airports", len(tables.Airports))
	}

	client, err := providers.NewSessionClient()
	if err != nil {
		return nil, err
	}
	source := providers.NewKMASource(client, cfg.UserAgent, providers.DefaultBreakerConfig(), logger)

	rt.Service = weather.NewService(weather.ServiceConfig{
		ObservationURL:      cfg.ObservationURL,
		ForecastURLFormat:   cfg.ForecastURLFormat,
		SpecialReportURL:    cfg.SpecialReportURL,
		PageTimeout:         cfg.PageTimeout,
		DetailTimeout:       cfg.DetailTimeout,
		ForecastConcurrency: cfg.ForecastConcurrency,
	}, source, tables, logger, metrics)

	if cfg.HistoryDBPath != "" {
		db, err := store.OpenSQLite(cfg.HistoryDBPath, rt.Clock)
		if err != nil {
			return nil, err
		}
		rt.History = db
		rt.closers = append(rt.closers, func() { _ = db.Close() })
		logger.Info("history store: sqlite", "path", cfg.HistoryDBPath)
	} else {
		rt.History = store.NewMemoryStore(cfg.StoreMaxHistory, cfg.StoreMaxAge, rt.Clock)
		logger.Info("history store: memory", "max_history", cfg.StoreMaxHistory, "max_age", cfg.StoreMaxAge)
	}

	var publishers []weather.LatestPublisher
	if cfg.DatabaseURL != "" {
		pg, err := store.OpenPostgresLatest(ctx, cfg.DatabaseURL)
		if err != nil {
			rt.Close()
			return nil, err
		}
		publishers = append(publishers, pg)
		rt.closers = append(rt.closers, pg.Close)
	}
	if cfg.RedisAddr != "" {
		rc, err := store.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			rt.Close()
			return nil, err
		}
		if c, ok := rc.(io.Closer); ok {
			rt.closers = append(rt.closers, func() { _ = c.Close() })
		}
		publishers = append(publishers, store.NewRedisLatest(rc, cfg.RedisKey))
	}
	for _, p := range publishers {
		logger.Info("latest mirror enabled", "sink", p.Name())
	}

	rt.Syncer = weather.NewSyncer(rt.History, publishers, logger, metrics)
	rt.Coordinator = weather.NewCoordinator(rt.Service, rt.Clock, logger, metrics)
	rt.Coordinator.OnRefresh(rt.Syncer.Listener())

	return rt, nil
}

// Close releases store connections in reverse order of opening.
func (rt *Runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
	rt.closers = nil
}
