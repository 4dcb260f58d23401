package weather

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"github.com/i474232898/airport-weather/internal/observability"
)

const (
	selectorForecastWidget = ".ts-wrap"
	selectorDailyItem      = ".ts-daily-item"
	selectorDailyHead      = ".ts-daily-head h3"
	selectorHourlyItem     = ".ts-hourly-item"
	selectorWeatherIcon    = ".ts-wicon"

	forecastDays     = 3
	hourlyCells      = 8
	trendWindowHours = 12
)

// ParseForecast reads up to three daily buckets from an airport detail page.
// Hourly rows with fewer than eight cells are skipped.
func ParseForecast(doc *goquery.Document) []ForecastDay {
	daily := doc.Find(selectorDailyItem)
	if daily.Length() > forecastDays {
		daily = daily.Slice(0, forecastDays)
	}

	days := make([]ForecastDay, 0, daily.Length())
	daily.Each(func(_ int, day *goquery.Selection) {
		fd := ForecastDay{
			Date:      textOf(day.Find(selectorDailyHead).First()),
			Forecasts: []ForecastHour{},
		}
		day.Find(selectorHourlyItem).Each(func(_ int, hour *goquery.Selection) {
			cells := hour.Find("li")
			if cells.Length() < hourlyCells {
				return
			}
			fd.Forecasts = append(fd.Forecasts, ForecastHour{
				Time:       textOf(cells.Eq(1)),
				Condition:  forecastCondition(cells.Eq(2)),
				Temp:       textOf(cells.Eq(3)),
				WindDir:    textOf(cells.Eq(4)),
				WindSpeed:  textOf(cells.Eq(5)),
				Cloud:      textOf(cells.Eq(6)),
				Visibility: textOf(cells.Eq(7)),
			})
		})
		days = append(days, fd)
	})
	return days
}

func forecastCondition(cell *goquery.Selection) string {
	if icon := textOf(cell.Find(selectorWeatherIcon).First()); icon != "" {
		return icon
	}
	return strings.TrimSpace(strings.Replace(cell.Text(), "날씨", "", 1))
}

// ReduceTrend flattens the days in order and reports the conditions at hours 4, 8 and 12.
func ReduceTrend(days []ForecastDay) string {
	var hours []ForecastHour
	for _, d := range days {
		hours = append(hours, d.Forecasts...)
	}
	if len(hours) < trendWindowHours {
		return PlaceholderTrend
	}
	return fmt.Sprintf("%s > %s > %s", hours[3].Condition, hours[7].Condition, hours[11].Condition)
}

// ForecastAggregator fetches detail pages for many airports in parallel over one DocumentSource.
type ForecastAggregator struct {
	source      DocumentSource
	urlFormat   string
	timeout     time.Duration
	concurrency int
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// NewForecastAggregator creates an aggregator. urlFormat must contain one %s for the ICAO code.
// concurrency <= 0 runs one goroutine per code.
func NewForecastAggregator(source DocumentSource, urlFormat string, timeout time.Duration, concurrency int, logger *slog.Logger, metrics *observability.Metrics) *ForecastAggregator {
	return &ForecastAggregator{
		source:      source,
		urlFormat:   urlFormat,
		timeout:     timeout,
		concurrency: concurrency,
		logger:      logger,
		metrics:     metrics,
	}
}

// Aggregate returns the 12h trend for every code, index-aligned with codes.
// A failing code yields the placeholder and never affects the others.
func (a *ForecastAggregator) Aggregate(ctx context.Context, codes []string) []string {
	start := time.Now()
	defer func() {
		a.metrics.ScrapeDuration.WithLabelValues("forecast").Observe(time.Since(start).Seconds())
	}()

	trends := make([]string, len(codes))

	var g errgroup.Group
	if a.concurrency > 0 {
		g.SetLimit(a.concurrency)
	}
	for i, code := range codes {
		i, code := i, code
		g.Go(func() error {
			trends[i] = a.trend(ctx, code)
			return nil
		})
	}
	_ = g.Wait()

	return trends
}

func (a *ForecastAggregator) trend(ctx context.Context, code string) string {
	days, err := a.Days(ctx, code, a.timeout)
	if err != nil {
		a.logger.Debug("forecast unavailable", "icao", code, "error", err)
		a.metrics.ForecastFallbacks.Inc()
		return PlaceholderTrend
	}
	trend := ReduceTrend(days)
	if trend == PlaceholderTrend {
		a.metrics.ForecastFallbacks.Inc()
	}
	return trend
}

// Days opens the detail page of one airport and parses its daily buckets.
func (a *ForecastAggregator) Days(ctx context.Context, code string, timeout time.Duration) ([]ForecastDay, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	doc, err := a.source.Open(ctx, fmt.Sprintf(a.urlFormat, url.QueryEscape(code)))
	if err != nil {
		return nil, err
	}
	if doc.Find(selectorForecastWidget).Length() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrSelectorTimeout, selectorForecastWidget)
	}
	return ParseForecast(doc), nil
}
