package weather

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"github.com/i474232898/airport-weather/internal/observability"
)

// pageSource serves canned HTML by URL. Unknown URLs fail like a navigation error.
type pageSource struct {
	mu    sync.Mutex
	pages map[string]string
	errs  map[string]error
	opens map[string]int
}

func newPageSource() *pageSource {
	return &pageSource{
		pages: map[string]string{},
		errs:  map[string]error{},
		opens: map[string]int{},
	}
}

func (s *pageSource) Open(ctx context.Context, url string) (*goquery.Document, error) {
	s.mu.Lock()
	s.opens[url]++
	page, ok := s.pages[url]
	err := s.errs[url]
	s.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: no page for %s", ErrFetch, url)
	}
	return goquery.NewDocumentFromReader(strings.NewReader(page))
}

func (s *pageSource) openCount(url string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opens[url]
}

func mustDoc(html string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		panic(err)
	}
	return doc
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testMetrics() *observability.Metrics {
	return observability.NewMetricsForTesting()
}

// airportItem renders one li.ca-item of the directory page.
func airportItem(name, code, weather, airText string) string {
	return fmt.Sprintf(`<li class="ca-item">
  <div class="main_air_name">%s<span>%s</span></div>
  <div class="main_air_wthr">%s</div>
  <div class="main_air_text">%s</div>
  <div class="main_air_info"><ul><li>풍향 NW</li><li>풍속 7kt</li><li>시정 10km</li><li>운고 3000ft</li><li>일강수 0.0mm</li></ul></div>
  <span class="info_time">2026.01.10 12:00</span>
</li>`, name, code, weather, airText)
}

func directoryPage(items ...string) string {
	return `<html><body><ul class="ca-list">` + strings.Join(items, "\n") + `</ul></body></html>`
}

// forecastPage renders a detail page with one daily bucket per entry of conditions.
func forecastPage(days ...[]string) string {
	var b strings.Builder
	b.WriteString(`<html><body><div class="ts-wrap">`)
	for d, conds := range days {
		fmt.Fprintf(&b, `<div class="ts-daily-item"><div class="ts-daily-head"><h3>Day %d</h3></div>`, d+1)
		for h, cond := range conds {
			fmt.Fprintf(&b, `<div class="ts-hourly-item"><ul>
<li>%d</li><li>%02d시</li><li><span class="ts-wicon">%s</span></li><li>3℃</li><li>NW</li><li>5kt</li><li>3000ft</li><li>10km</li>
</ul></div>`, h, h, cond)
		}
		b.WriteString(`</div>`)
	}
	b.WriteString(`</div></body></html>`)
	return b.String()
}

func conditions(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s%d", prefix, i+1)
	}
	return out
}

func advisoryPage(lines ...string) string {
	return `<html><body><div class="cmp-weather-cmt-txt-box"><div class="paragraph"><p class="tit">` +
		strings.Join(lines, "<br>") +
		`</p></div></div></body></html>`
}
