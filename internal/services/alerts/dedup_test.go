package alerts

import (
	"context"
	"testing"
	"time"

	"FarePull/internal/domain/models"
	"FarePull/pkg/logger"

	"github.com/stretchr/testify/assert"
)

func zeroPrice(flight string) models.Anomaly {
	return models.Anomaly{
		Kind:         models.KindZeroPrice,
		Severity:     models.SeverityCritical,
		FlightNumber: flight,
		Pair:         models.DatePair{Departure: "2026-03-08", Return: "2026-03-15"},
	}
}

func TestObserveSuppressesWithinCooldown(t *testing.T) {
	store := &memHistory{}
	clk := &clock{t: time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)}
	d := NewDeduplicator(store, logger.Nop(), WithCooldown(time.Hour), WithDedupClock(clk.now))
	ctx := context.Background()
	a := zeroPrice("FO5000")

	assert.False(t, d.Observe(ctx, a))

	clk.advance(30 * time.Minute)
	assert.True(t, d.Observe(ctx, a))
	assert.Equal(t, 2, store.count(models.StreamAnomalies, a.DedupKey()), "suppressed anomaly is still recorded")
}

func TestObserveAfterCooldown(t *testing.T) {
	store := &memHistory{}
	clk := &clock{t: time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)}
	d := NewDeduplicator(store, logger.Nop(), WithCooldown(time.Hour), WithDedupClock(clk.now))
	ctx := context.Background()
	a := zeroPrice("FO5000")

	assert.False(t, d.Observe(ctx, a))
	clk.advance(61 * time.Minute)
	assert.False(t, d.Observe(ctx, a))
}

func TestObserveKeysAreIndependent(t *testing.T) {
	store := &memHistory{}
	d := NewDeduplicator(store, logger.Nop())
	ctx := context.Background()

	assert.False(t, d.Observe(ctx, zeroPrice("FO5000")))
	assert.False(t, d.Observe(ctx, zeroPrice("FO5001")))

	other := zeroPrice("FO5000")
	other.Kind = models.KindNegativePrice
	assert.False(t, d.Observe(ctx, other))
}

func TestObserveLookupFailureDoesNotSuppress(t *testing.T) {
	store := &memHistory{failReads: true}
	d := NewDeduplicator(store, logger.Nop())
	ctx := context.Background()
	a := zeroPrice("FO5000")

	assert.False(t, d.Observe(ctx, a))
	assert.False(t, d.Observe(ctx, a))
	assert.Equal(t, 2, store.count(models.StreamAnomalies, a.DedupKey()))
}
