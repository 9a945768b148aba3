package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"FarePull/internal/domain/models"
	applogger "FarePull/pkg/logger"
	"FarePull/pkg/sqlite"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHistory(t *testing.T) *SQLiteHistory {
	t.Helper()
	db, err := sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()), sqlite.WithProfile(sqlite.ProfileLedger))
	require.NoError(t, err)
	h, err := NewSQLiteHistory(context.Background(), db, applogger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })
	return h
}

func entry(t *testing.T, stream models.Stream, key string, ts time.Time, seats int) models.HistoryEntry {
	t.Helper()
	e, err := models.NewHistoryEntry(stream, key, ts, models.AvailabilitySample{Availability: seats})
	require.NoError(t, err)
	return e
}

var t0 = time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

func TestSQLiteHistoryAppendAndRead(t *testing.T) {
	h := newTestHistory(t)
	ctx := context.Background()

	require.NoError(t, h.Append(ctx, entry(t, models.StreamAvailability, "FO5000_a_b", t0, 4)))
	require.NoError(t, h.AppendBatch(ctx, []models.HistoryEntry{
		entry(t, models.StreamAvailability, "FO5000_a_b", t0.Add(time.Hour), 3),
		entry(t, models.StreamAvailability, "FO5001_a_b", t0.Add(time.Hour), 9),
		entry(t, models.StreamAnomalies, "FO5000_a_b", t0.Add(time.Hour), 1),
	}))

	all, err := h.Load(ctx, models.StreamAvailability, "FO5000_a_b")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.True(t, all[0].Timestamp.Equal(t0))
	assert.JSONEq(t, `{"availability":3,"price":"0"}`, string(all[1].Payload))

	recent, err := h.RecentEntries(ctx, models.StreamAvailability, "FO5000_a_b", t0.Add(30*time.Minute))
	require.NoError(t, err)
	assert.Len(t, recent, 1)

	latest, err := h.Latest(ctx, models.StreamAvailability, "FO5000_a_b")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.True(t, latest.Timestamp.Equal(t0.Add(time.Hour)))
}

func TestSQLiteHistoryLatestMissing(t *testing.T) {
	h := newTestHistory(t)
	latest, err := h.Latest(context.Background(), models.StreamFlags, "snapshot")
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestSQLiteHistoryRecentIncludesCutoff(t *testing.T) {
	h := newTestHistory(t)
	ctx := context.Background()
	require.NoError(t, h.Append(ctx, entry(t, models.StreamAnomalies, "k", t0, 0)))

	recent, err := h.RecentEntries(ctx, models.StreamAnomalies, "k", t0)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}

func TestSQLiteHistoryTrimPerStream(t *testing.T) {
	h := newTestHistory(t)
	ctx := context.Background()

	var batch []models.HistoryEntry
	for i := 0; i < 10; i++ {
		batch = append(batch, entry(t, models.StreamAvailability, fmt.Sprintf("k%d", i%2), t0.Add(time.Duration(i)*time.Minute), i))
	}
	batch = append(batch, entry(t, models.StreamAnomalies, "k0", t0, 0))
	require.NoError(t, h.AppendBatch(ctx, batch))

	require.NoError(t, h.Trim(ctx, models.StreamAvailability, 4))

	k0, err := h.Load(ctx, models.StreamAvailability, "k0")
	require.NoError(t, err)
	k1, err := h.Load(ctx, models.StreamAvailability, "k1")
	require.NoError(t, err)
	assert.Len(t, append(k0, k1...), 4)
	for _, e := range append(k0, k1...) {
		assert.False(t, e.Timestamp.Before(t0.Add(6*time.Minute)), "oldest entries go first")
	}

	other, err := h.Load(ctx, models.StreamAnomalies, "k0")
	require.NoError(t, err)
	assert.Len(t, other, 1, "other streams untouched")
}

func TestSQLiteHistoryConcurrentAppends(t *testing.T) {
	h := newTestHistory(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			stream := models.StreamAvailability
			if i%2 == 0 {
				stream = models.StreamAnomalies
			}
			assert.NoError(t, h.Append(ctx, entry(t, stream, "shared", t0.Add(time.Duration(i)*time.Second), i)))
		}(i)
	}
	wg.Wait()

	a, err := h.Load(ctx, models.StreamAvailability, "shared")
	require.NoError(t, err)
	b, err := h.Load(ctx, models.StreamAnomalies, "shared")
	require.NoError(t, err)
	assert.Len(t, a, 4)
	assert.Len(t, b, 4)
}
