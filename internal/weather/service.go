package weather

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/i474232898/airport-weather/internal/observability"
)

// ServiceConfig holds the source URLs and fetch budgets.
type ServiceConfig struct {
	ObservationURL      string
	ForecastURLFormat   string
	SpecialReportURL    string
	PageTimeout         time.Duration
	DetailTimeout       time.Duration
	ForecastConcurrency int
}

// Service runs the extraction pipeline against one shared DocumentSource.
type Service struct {
	cfg       ServiceConfig
	source    DocumentSource
	tables    Tables
	matcher   *Matcher
	forecasts *ForecastAggregator
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewService creates a new Service.
func NewService(cfg ServiceConfig, source DocumentSource, tables Tables, logger *slog.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		cfg:       cfg,
		source:    source,
		tables:    tables,
		matcher:   NewMatcher(tables),
		forecasts: NewForecastAggregator(source, cfg.ForecastURLFormat, cfg.DetailTimeout, cfg.ForecastConcurrency, logger, metrics),
		logger:    logger,
		metrics:   metrics,
	}
}

// Observations fetches the airport directory page and extracts one snapshot per airport.
func (s *Service) Observations(ctx context.Context) ([]AirportSnapshot, error) {
	start := time.Now()
	defer func() {
		s.metrics.ScrapeDuration.WithLabelValues("observations").Observe(time.Since(start).Seconds())
	}()

	airports, err := s.observations(ctx)
	if err != nil {
		s.metrics.ScrapeErrors.WithLabelValues("observations").Inc()
		return nil, err
	}
	s.metrics.AirportsExtracted.Set(float64(len(airports)))
	return airports, nil
}

func (s *Service) observations(ctx context.Context) ([]AirportSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.PageTimeout)
	defer cancel()

	doc, err := s.source.Open(ctx, s.cfg.ObservationURL)
	if err != nil {
		return nil, fmt.Errorf("observations: %w", err)
	}
	airports, err := ExtractObservations(doc, s.tables)
	if err != nil {
		return nil, fmt.Errorf("observations: %w", err)
	}
	if len(airports) == 0 {
		return nil, ErrNoAirports
	}
	return airports, nil
}

// SpecialReports fetches the advisory overview page and matches it against the region table.
func (s *Service) SpecialReports(ctx context.Context) ([]SpecialReportRecord, error) {
	start := time.Now()
	defer func() {
		s.metrics.ScrapeDuration.WithLabelValues("advisories").Observe(time.Since(start).Seconds())
	}()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.PageTimeout)
	defer cancel()

	doc, err := s.source.Open(ctx, s.cfg.SpecialReportURL)
	if err != nil {
		s.metrics.ScrapeErrors.WithLabelValues("advisories").Inc()
		return nil, fmt.Errorf("special reports: %w", err)
	}
	lines, err := AdvisoryLines(doc)
	if err != nil {
		s.metrics.ScrapeErrors.WithLabelValues("advisories").Inc()
		return nil, fmt.Errorf("special reports: %w", err)
	}
	return s.matcher.Match(lines), nil
}

// Forecast returns the full detail forecast (up to three days) for one airport.
func (s *Service) Forecast(ctx context.Context, icao string) ([]ForecastDay, error) {
	days, err := s.forecasts.Days(ctx, icao, s.cfg.PageTimeout)
	if err != nil {
		return nil, fmt.Errorf("forecast %s: %w", icao, err)
	}
	return days, nil
}

// Scrape runs a full extraction: observations with their 12h trends, plus special reports.
// Only an observation failure fails the scrape; advisory failures leave the reports empty.
func (s *Service) Scrape(ctx context.Context) (Snapshot, error) {
	var (
		wg         sync.WaitGroup
		reports    []SpecialReportRecord
		reportsErr error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		reports, reportsErr = s.SpecialReports(ctx)
	}()

	airports, err := s.Observations(ctx)
	if err == nil {
		codes := make([]string, len(airports))
		for i, a := range airports {
			codes[i] = a.Code
		}
		for i, trend := range s.forecasts.Aggregate(ctx, codes) {
			airports[i].Forecast12h = trend
		}
	}

	wg.Wait()

	if err != nil {
		s.logger.Error("observation extraction failed", "error", err)
		return Snapshot{}, err
	}
	if reportsErr != nil {
		s.logger.Warn("special report extraction failed; reporting none", "error", reportsErr)
		reports = []SpecialReportRecord{}
	}

	s.logger.Info("scrape complete", "airports", len(airports), "special_reports", len(reports))
	return Snapshot{Airports: airports, SpecialReports: reports}, nil
}
