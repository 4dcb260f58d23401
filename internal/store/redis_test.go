package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/airport-weather/internal/weather"
)

// mockRedisClient simulates a Redis client for testing purposes.
type mockRedisClient struct {
	mu   sync.RWMutex
	data map[string]string
}

func newMockRedisClient() *mockRedisClient {
	return &mockRedisClient{data: make(map[string]string)}
}

func (m *mockRedisClient) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *mockRedisClient) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func TestRedisLatest_PublishAndRead(t *testing.T) {
	ctx := context.Background()
	client := newMockRedisClient()
	r := NewRedisLatest(client, "weather_latest")

	_, err := r.Latest(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	snap := weather.Snapshot{
		Airports:       batch("12:00", "맑음", "흐림"),
		SpecialReports: []weather.SpecialReportRecord{{Airport: "김포", ICAO: "RKSS", SpecialReport: "한파"}},
	}
	at := time.Date(2026, 1, 10, 12, 0, 0, 0, time.FixedZone("KST", 9*3600))
	require.NoError(t, r.PublishLatest(ctx, snap, at))

	rec, err := r.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, snap.Airports, rec.Data)
	assert.Equal(t, snap.SpecialReports, rec.SpecialReports)
	assert.True(t, rec.UpdatedAt.Equal(at))
	assert.Contains(t, client.data["weather_latest"], `"special_report":"한파"`)
}

func TestRedisLatest_CorruptValue(t *testing.T) {
	client := newMockRedisClient()
	require.NoError(t, client.Set(context.Background(), "weather_latest", "{not json"))

	_, err := NewRedisLatest(client, "weather_latest").Latest(context.Background())
	assert.ErrorContains(t, err, "decode weather_latest")
}
