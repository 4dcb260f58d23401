package providers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/sony/gobreaker"
	"golang.org/x/net/html/charset"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/text/unicode/norm"

	"github.com/i474232898/airport-weather/internal/weather"
)

const (
	defaultUserAgent = "Mozilla/5.0 (compatible; airport-weather/1.0)"
	maxPageBytes     = 8 << 20
)

// KMASource fetches pages from the KMA aviation and weather sites over one shared session.
// Every Open is an independent page load; cookies and connections are shared.
type KMASource struct {
	client    *http.Client
	userAgent string
	breakers  BreakerConfig
	logger    *slog.Logger

	mu       sync.Mutex
	circuits map[string]*gobreaker.CircuitBreaker
}

// NewSessionClient returns an http.Client with a cookie jar, the shared browsing session.
func NewSessionClient() (*http.Client, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	return &http.Client{Jar: jar}, nil
}

// NewKMASource creates a KMASource. An empty userAgent selects a default one.
func NewKMASource(client *http.Client, userAgent string, breakers BreakerConfig, logger *slog.Logger) *KMASource {
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &KMASource{
		client:    client,
		userAgent: userAgent,
		breakers:  breakers,
		logger:    logger,
		circuits:  make(map[string]*gobreaker.CircuitBreaker),
	}
}

// Open loads rawURL and parses it. Any transport, status or read failure wraps weather.ErrFetch.
func (s *KMASource) Open(ctx context.Context, rawURL string) (*goquery.Document, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", weather.ErrFetch, rawURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", weather.ErrFetch, rawURL, err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "ko-KR,ko;q=0.9")

	resp, err := doRequest(ctx, s.client, s.circuit(u.Host), req)
	if err != nil {
		s.logger.Debug("page fetch failed", "url", rawURL, "error", err)
		return nil, fmt.Errorf("%w: %s: %v", weather.ErrFetch, rawURL, err)
	}
	defer resp.Body.Close()

	body, err := decodeBody(resp)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", weather.ErrFetch, rawURL, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: parse: %v", weather.ErrFetch, rawURL, err)
	}
	doc.Url = u
	return doc, nil
}

// decodeBody converts the page to UTF-8 and composes Hangul so it matches the keyword tables.
func decodeBody(resp *http.Response) ([]byte, error) {
	r, err := charset.NewReader(io.LimitReader(resp.Body, maxPageBytes), resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("decode charset: %w", err)
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return norm.NFC.Bytes(raw), nil
}

func (s *KMASource) circuit(host string) *gobreaker.CircuitBreaker {
	s.mu.Lock()
	defer s.mu.Unlock()

	cb, ok := s.circuits[host]
	if !ok {
		cb = newBreaker(host, s.breakers)
		s.circuits[host] = cb
	}
	return cb
}
