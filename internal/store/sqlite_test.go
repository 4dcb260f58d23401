package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestSQLite(t *testing.T, clock clockwork.Clock) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "history", "weather_history.db"), clock)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore_SaveAndQuery(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClockAt(storeEpoch)
	s := openTestSQLite(t, clock)

	id1, err := s.SaveSnapshot(ctx, "run-1", batch("12:00", "맑음", "흐림", "비"))
	require.NoError(t, err)
	clock.Advance(10 * time.Minute)
	id2, err := s.SaveSnapshot(ctx, "run-2", batch("12:10", "눈", "박무"))
	require.NoError(t, err)

	list, err := s.ListSnapshots(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, id2, list[0].ID)
	assert.Equal(t, "run-2", list[0].RunID)
	assert.Equal(t, "12:10", list[0].Timestamp)
	assert.True(t, list[0].CreatedAt.Equal(storeEpoch.Add(10*time.Minute)))

	data, err := s.SnapshotData(ctx, id1)
	require.NoError(t, err)
	require.Len(t, data, 3)
	assert.Equal(t, []string{"김포", "인천", "제주"}, []string{data[0].Name, data[1].Name, data[2].Name})
	assert.Equal(t, " - ", data[0].Forecast12h)

	history, err := s.AirportHistory(ctx, "RKSS")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "박무", history[0].Condition)
	assert.Equal(t, "12:10", history[0].SnapshotTimestamp)
	assert.Equal(t, "흐림", history[1].Condition)

	history, err = s.AirportHistory(ctx, "RKPC")
	require.NoError(t, err)
	assert.Len(t, history, 1)

	_, err = s.SnapshotData(ctx, 404)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_ResaveReplacesRows(t *testing.T) {
	ctx := context.Background()
	s := openTestSQLite(t, clockwork.NewFakeClockAt(storeEpoch))

	id1, err := s.SaveSnapshot(ctx, "run-1", batch("12:00", "맑음", "흐림"))
	require.NoError(t, err)
	id2, err := s.SaveSnapshot(ctx, "run-2", batch("12:00", "비"))
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	data, err := s.SnapshotData(ctx, id1)
	require.NoError(t, err)
	require.Len(t, data, 1)
	assert.Equal(t, "비", data[0].Condition)

	list, err := s.ListSnapshots(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "run-2", list[0].RunID)
}

func TestSQLiteStore_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "weather_history.db")
	clock := clockwork.NewFakeClockAt(storeEpoch)

	s, err := OpenSQLite(path, clock)
	require.NoError(t, err)
	_, err = s.SaveSnapshot(ctx, "run-1", batch("12:00", "맑음"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = OpenSQLite(path, clock)
	require.NoError(t, err)
	defer s.Close()

	list, err := s.ListSnapshots(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
