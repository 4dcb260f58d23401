package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for scraping and cache behaviour.
type Metrics struct {
	// Scrape metrics.
	ScrapeDuration    *prometheus.HistogramVec // labels: stage={observations,forecast,advisories}
	ScrapeErrors      *prometheus.CounterVec   // labels: stage
	ForecastFallbacks prometheus.Counter
	AirportsExtracted prometheus.Gauge

	// Cache metrics.
	CacheRequests *prometheus.CounterVec // labels: outcome={hit,refused,refreshed,fallback,failed}
	LastRefresh   prometheus.Gauge

	// Latest mirror metrics.
	PublishErrors *prometheus.CounterVec // labels: sink
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.ScrapeDuration,
		m.ScrapeErrors,
		m.ForecastFallbacks,
		m.AirportsExtracted,
		m.CacheRequests,
		m.LastRefresh,
		m.PublishErrors,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics so tests can build as many as they need.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		ScrapeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "airport_weather",
			Name:      "scrape_duration_seconds",
			Help:      "Duration of one scrape stage.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"stage"}),
		ScrapeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "airport_weather",
			Name:      "scrape_errors_total",
			Help:      "Scrape stages that ended in an error.",
		}, []string{"stage"}),
		ForecastFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "airport_weather",
			Name:      "forecast_placeholders_total",
			Help:      "Airports whose 12h trend fell back to the placeholder.",
		}),
		AirportsExtracted: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "airport_weather",
			Name:      "airports_extracted",
			Help:      "Airports in the most recent observation extraction.",
		}),
		CacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "airport_weather",
			Name:      "cache_requests_total",
			Help:      "Snapshot requests by cache outcome.",
		}, []string{"outcome"}),
		LastRefresh: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "airport_weather",
			Name:      "last_refresh_timestamp_seconds",
			Help:      "Unix time of the last successful cache refresh.",
		}),
		PublishErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "airport_weather",
			Name:      "latest_publish_errors_total",
			Help:      "Failed writes of the latest snapshot by sink.",
		}, []string{"sink"}),
	}
}
