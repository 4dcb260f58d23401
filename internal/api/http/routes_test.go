package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/airport-weather/internal/store"
	"github.com/i474232898/airport-weather/internal/weather"
)

type fakeSnapshots struct {
	mu     sync.Mutex
	env    weather.Envelope
	forced []bool
}

func (f *fakeSnapshots) Get(_ context.Context, force bool) weather.Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forced = append(f.forced, force)
	return f.env
}

type fakeForecasts struct {
	days  []weather.ForecastDay
	err   error
	calls []string
}

func (f *fakeForecasts) Forecast(_ context.Context, icao string) ([]weather.ForecastDay, error) {
	f.calls = append(f.calls, icao)
	return f.days, f.err
}

type testAPI struct {
	app       *fiber.App
	snapshots *fakeSnapshots
	forecasts *fakeForecasts
	history   *store.MemoryStore
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	api := &testAPI{
		app:       fiber.New(),
		snapshots: &fakeSnapshots{},
		forecasts: &fakeForecasts{},
		history: store.NewMemoryStore(10, 0,
			clockwork.NewFakeClockAt(time.Date(2026, 1, 10, 3, 0, 0, 0, time.UTC))),
	}
	RegisterRoutes(api.app, Dependencies{
		Snapshots: api.snapshots,
		Forecasts: api.forecasts,
		History:   api.history,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return api
}

func (a *testAPI) do(t *testing.T, method, target, body string) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := a.app.Test(req)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func sampleAirports() []weather.AirportSnapshot {
	return []weather.AirportSnapshot{
		{Name: "인천", Code: "RKSI", Condition: "맑음", Time: "2026.01.10 12:00"},
		{Name: "김포", Code: "RKSS", Condition: "비", Time: "2026.01.10 12:00"},
	}
}

func TestWeatherPassesForceFlag(t *testing.T) {
	api := newTestAPI(t)
	updated := "2026-01-10T03:00:00Z"
	api.snapshots.env = weather.Envelope{
		Data:           sampleAirports(),
		SpecialReports: []weather.SpecialReportRecord{},
		Cached:         true,
		LastUpdated:    &updated,
	}

	for _, tc := range []struct {
		query string
		force bool
	}{
		{"", false},
		{"?force=1", true},
		{"?force=TRUE", true},
		{"?force=yes", true},
		{"?force=0", false},
		{"?force=maybe", false},
	} {
		resp, raw := api.do(t, http.MethodGet, "/api/weather"+tc.query, "")
		require.Equal(t, http.StatusOK, resp.StatusCode, tc.query)

		var env weather.Envelope
		require.NoError(t, json.Unmarshal(raw, &env))
		assert.Len(t, env.Data, 2)
		assert.True(t, env.Cached)
		require.NotNil(t, env.LastUpdated)
		assert.Equal(t, updated, *env.LastUpdated)

		forced := api.snapshots.forced[len(api.snapshots.forced)-1]
		assert.Equal(t, tc.force, forced, tc.query)
	}
}

func TestWeatherAllowsAnyOrigin(t *testing.T) {
	api := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/api/weather", nil)
	req.Header.Set("Origin", "https://example.org")
	resp, err := api.app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestSpecialReportsReturnsCachedRecords(t *testing.T) {
	api := newTestAPI(t)

	_, raw := api.do(t, http.MethodGet, "/api/special-reports", "")
	assert.JSONEq(t, `[]`, string(raw))

	api.snapshots.env.SpecialReports = []weather.SpecialReportRecord{
		{Airport: "원주", ICAO: "RKNW", SpecialReport: "대설예"},
	}
	resp, raw := api.do(t, http.MethodGet, "/api/special-reports", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[{"airport":"원주","icao":"RKNW","special_report":"대설예"}]`, string(raw))
	assert.Equal(t, []bool{false, false}, api.snapshots.forced)
}

func TestForecastValidatesICAO(t *testing.T) {
	api := newTestAPI(t)

	for _, code := range []string{"RKS", "RKSII", "RK5I"} {
		resp, _ := api.do(t, http.MethodGet, "/api/forecast/"+code, "")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, code)
	}
	assert.Empty(t, api.forecasts.calls)
}

func TestForecastReturnsDays(t *testing.T) {
	api := newTestAPI(t)
	api.forecasts.days = []weather.ForecastDay{{
		Date:      "01.10",
		Forecasts: []weather.ForecastHour{{Time: "12시", Condition: "맑음", Temp: "3"}},
	}}

	resp, raw := api.do(t, http.MethodGet, "/api/forecast/rksi", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"RKSI"}, api.forecasts.calls)

	var days []weather.ForecastDay
	require.NoError(t, json.Unmarshal(raw, &days))
	require.Len(t, days, 1)
	assert.Equal(t, "01.10", days[0].Date)
	assert.Equal(t, "맑음", days[0].Forecasts[0].Condition)
}

func TestForecastFailureReturnsEmptyList(t *testing.T) {
	api := newTestAPI(t)
	api.forecasts.err = weather.ErrSelectorTimeout

	resp, raw := api.do(t, http.MethodGet, "/api/forecast/RKSI", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(raw))
}

func TestHistoryRoundTrip(t *testing.T) {
	api := newTestAPI(t)
	body, err := json.Marshal(sampleAirports())
	require.NoError(t, err)

	resp, raw := api.do(t, http.MethodPost, "/api/history/save", string(body))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var saved struct {
		Success    bool  `json:"success"`
		SnapshotID int64 `json:"snapshot_id"`
	}
	require.NoError(t, json.Unmarshal(raw, &saved))
	assert.True(t, saved.Success)
	assert.Equal(t, int64(1), saved.SnapshotID)

	resp, raw = api.do(t, http.MethodGet, "/api/history/snapshots", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var snapshots []weather.HistorySnapshot
	require.NoError(t, json.Unmarshal(raw, &snapshots))
	require.Len(t, snapshots, 1)
	assert.Equal(t, "2026.01.10 12:00", snapshots[0].Timestamp)
	assert.NotEmpty(t, snapshots[0].RunID)

	resp, raw = api.do(t, http.MethodGet, "/api/history/snapshot/1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var data []weather.AirportSnapshot
	require.NoError(t, json.Unmarshal(raw, &data))
	require.Len(t, data, 2)
	assert.Equal(t, "김포", data[0].Name)
	assert.Equal(t, "인천", data[1].Name)

	resp, raw = api.do(t, http.MethodGet, "/api/history/airport/rkss", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var entries []weather.AirportHistoryEntry
	require.NoError(t, json.Unmarshal(raw, &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "비", entries[0].Condition)
	assert.Equal(t, "2026.01.10 12:00", entries[0].SnapshotTimestamp)
}

func TestHistorySaveRejectsBadBodies(t *testing.T) {
	api := newTestAPI(t)

	for name, body := range map[string]string{
		"not json":     `{"name":`,
		"empty":        `[]`,
		"missing code": `[{"name":"인천"}]`,
		"bad code":     `[{"name":"인천","code":"RK"}]`,
	} {
		resp, _ := api.do(t, http.MethodPost, "/api/history/save", body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, name)
	}

	snapshots, err := api.history.ListSnapshots(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snapshots)
}

func TestHistorySnapshotErrors(t *testing.T) {
	api := newTestAPI(t)

	resp, _ := api.do(t, http.MethodGet, "/api/history/snapshot/42", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = api.do(t, http.MethodGet, "/api/history/snapshot/abc", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAirportHistoryUnknownCodeIsEmpty(t *testing.T) {
	api := newTestAPI(t)

	resp, raw := api.do(t, http.MethodGet, "/api/history/airport/RKPC", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(raw))
}

type failingHistory struct{ weather.HistoryStore }

func (failingHistory) ListSnapshots(context.Context) ([]weather.HistorySnapshot, error) {
	return nil, errors.New("disk full")
}

func TestHistoryStoreFailureIsServerError(t *testing.T) {
	app := fiber.New()
	RegisterRoutes(app, Dependencies{
		Snapshots: &fakeSnapshots{},
		Forecasts: &fakeForecasts{},
		History:   failingHistory{},
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/history/snapshots", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}
