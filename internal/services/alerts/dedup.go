package alerts

import (
	"context"
	"time"

	"FarePull/internal/domain/models"
	drepo "FarePull/internal/domain/repository"
	"FarePull/pkg/logger"
)

// DefaultCooldown is how long an identical anomaly stays quiet after being seen.
const DefaultCooldown = time.Hour

// Deduplicator suppresses anomalies already recorded within the cooldown window.
type Deduplicator struct {
	store    drepo.HistoryStore
	cooldown time.Duration
	now      func() time.Time
	log      *logger.Logger
}

type DedupOption func(*Deduplicator)

func WithCooldown(d time.Duration) DedupOption {
	return func(x *Deduplicator) {
		if d > 0 {
			x.cooldown = d
		}
	}
}

func WithDedupClock(now func() time.Time) DedupOption {
	return func(x *Deduplicator) {
		if now != nil {
			x.now = now
		}
	}
}

func NewDeduplicator(store drepo.HistoryStore, log *logger.Logger, opts ...DedupOption) *Deduplicator {
	d := &Deduplicator{
		store:    store,
		cooldown: DefaultCooldown,
		now:      time.Now,
		log:      log,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Observe records the anomaly and reports whether an active notification for it
// must be suppressed. The anomaly is appended even when suppressed. Store errors
// are logged; a failed lookup never suppresses.
func (d *Deduplicator) Observe(ctx context.Context, a models.Anomaly) bool {
	now := d.now()
	key := a.DedupKey()

	suppressed := false
	recent, err := d.store.RecentEntries(ctx, models.StreamAnomalies, key, now.Add(-d.cooldown))
	if err != nil {
		d.log.Warn("dedup lookup failed", logger.String("key", key), logger.Error(err))
	} else {
		suppressed = len(recent) > 0
	}

	entry, err := models.NewHistoryEntry(models.StreamAnomalies, key, now, a)
	if err == nil {
		err = d.store.Append(ctx, entry)
	}
	if err != nil {
		d.log.Error("anomaly history append failed", logger.String("key", key), logger.Error(err))
	}
	return suppressed
}
