package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"FarePull/internal/domain/models"
	drepo "FarePull/internal/domain/repository"
	"FarePull/internal/services/alerts"
	"FarePull/internal/services/flags"
	"FarePull/pkg/cache"
	"FarePull/pkg/logger"
)

const (
	JobFlags = "flags"

	flagSnapshotKey = "snapshot"
	lastFlagKey     = "flags:last"
)

// FlagWatcher diffs the source's feature flags against the last stored snapshot.
type FlagWatcher struct {
	source    drepo.FlagSource
	history   drepo.HistoryStore
	notifier  drepo.Notifier
	grader    *flags.Grader
	cache     cache.Service
	metrics   drepo.Metrics
	retention int
	l         *logger.Logger
	now       func() time.Time
}

func NewFlagWatcher(
	source drepo.FlagSource,
	history drepo.HistoryStore,
	notifier drepo.Notifier,
	grader *flags.Grader,
	c cache.Service,
	metrics drepo.Metrics,
	retention int,
	l *logger.Logger,
) *FlagWatcher {
	if grader == nil {
		grader = flags.NewGrader(nil)
	}
	if retention <= 0 {
		retention = defaultRetention
	}
	return &FlagWatcher{
		source:    source,
		history:   history,
		notifier:  notifier,
		grader:    grader,
		cache:     c,
		metrics:   metrics,
		retention: retention,
		l:         l.With("flag_watcher"),
		now:       time.Now,
	}
}

// RunCheck stores the first snapshot as a baseline without alerting. Later
// checks log every change and push the critical ones in one message.
func (w *FlagWatcher) RunCheck(ctx context.Context) (models.FlagCheckSummary, error) {
	start := w.now()
	summary := models.FlagCheckSummary{StartedAt: start}

	live, err := w.source.Snapshot(ctx)
	if err != nil {
		w.recordError("flag_snapshot")
		return summary, fmt.Errorf("flag snapshot: %w", err)
	}
	entry, err := models.NewHistoryEntry(models.StreamFlags, flagSnapshotKey, start, live)
	if err != nil {
		return summary, fmt.Errorf("encode flag snapshot: %w", err)
	}
	// compare in stored form so numbers read back from history match live ones
	var curr models.FlagSnapshot
	if err := json.Unmarshal(entry.Payload, &curr); err != nil {
		return summary, fmt.Errorf("decode flag snapshot: %w", err)
	}
	summary.TotalFlags = len(curr)

	prevEntry, err := w.history.Latest(ctx, models.StreamFlags, flagSnapshotKey)
	if err != nil {
		w.recordError("flag_history")
		return summary, fmt.Errorf("load previous flags: %w", err)
	}

	if prevEntry == nil {
		summary.Baseline = true
		w.l.Info("flag baseline stored", logger.Int("flags", summary.TotalFlags))
	} else {
		var prev models.FlagSnapshot
		if err := json.Unmarshal(prevEntry.Payload, &prev); err != nil {
			return summary, fmt.Errorf("decode previous flags: %w", err)
		}
		summary.Changes = flags.DetectChanges(prev, curr)
		summary.Critical = w.grader.Mark(summary.Changes)
		w.report(ctx, &summary)
	}

	if err := w.history.Append(ctx, entry); err != nil {
		w.recordError("flag_history")
		return summary, fmt.Errorf("store flag snapshot: %w", err)
	}
	if err := w.history.Trim(ctx, models.StreamFlags, w.retention); err != nil {
		w.l.Error("trim flag history failed", logger.Error(err))
	}
	if w.cache != nil {
		if err := w.cache.Set(ctx, lastFlagKey, summary, lastSummaryTTL); err != nil {
			w.l.Warn("cache flag summary failed", logger.Error(err))
		}
	}
	if w.metrics != nil {
		w.metrics.RecordCycle(JobFlags, w.now().Sub(start))
	}
	return summary, nil
}

func (w *FlagWatcher) report(ctx context.Context, s *models.FlagCheckSummary) {
	if len(s.Changes) == 0 {
		w.l.Debug("no flag changes", logger.Int("flags", s.TotalFlags))
		return
	}

	critical := make([]models.FlagChange, 0, s.Critical)
	for _, ch := range s.Changes {
		fields := []logger.Field{
			logger.String("type", string(ch.Type)),
			logger.String("key", ch.Key),
			logger.Any("old", ch.OldValue),
			logger.Any("new", ch.NewValue),
		}
		if ch.Critical {
			critical = append(critical, ch)
			w.l.Warn("critical flag change", fields...)
			continue
		}
		w.l.Info("flag change", fields...)
	}
	if len(critical) == 0 {
		return
	}

	s.AlertSent = w.notifier.Notify(ctx, alerts.FlagMessage(critical, w.now()), false)
	if w.metrics != nil {
		if s.AlertSent {
			w.metrics.RecordAlert("sent")
		} else {
			w.metrics.RecordAlert("failed")
		}
	}
}

// LastCheck returns the most recent cached check summary.
func (w *FlagWatcher) LastCheck(ctx context.Context) (*models.FlagCheckSummary, error) {
	if w.cache == nil {
		return nil, cache.ErrCacheMiss
	}
	var s models.FlagCheckSummary
	if err := w.cache.Get(ctx, lastFlagKey, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (w *FlagWatcher) recordError(kind string) {
	if w.metrics != nil {
		w.metrics.RecordError(kind)
	}
}
