package alerts

import (
	"context"
	"errors"
	"sync"
	"time"

	"FarePull/internal/domain/models"
)

type memHistory struct {
	mu        sync.Mutex
	entries   []models.HistoryEntry
	failReads bool
}

func (m *memHistory) Append(_ context.Context, e models.HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *memHistory) AppendBatch(ctx context.Context, es []models.HistoryEntry) error {
	for _, e := range es {
		_ = m.Append(ctx, e)
	}
	return nil
}

func (m *memHistory) RecentEntries(_ context.Context, stream models.Stream, key string, since time.Time) ([]models.HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failReads {
		return nil, errors.New("disk on fire")
	}
	var out []models.HistoryEntry
	for _, e := range m.entries {
		if e.Stream == stream && e.Key == key && !e.Timestamp.Before(since) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memHistory) Load(ctx context.Context, stream models.Stream, key string) ([]models.HistoryEntry, error) {
	return m.RecentEntries(ctx, stream, key, time.Time{})
}

func (m *memHistory) Latest(ctx context.Context, stream models.Stream, key string) (*models.HistoryEntry, error) {
	all, err := m.Load(ctx, stream, key)
	if err != nil || len(all) == 0 {
		return nil, err
	}
	return &all[len(all)-1], nil
}

func (m *memHistory) Trim(context.Context, models.Stream, int) error { return nil }
func (m *memHistory) Close() error                                   { return nil }

func (m *memHistory) count(stream models.Stream, key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.entries {
		if e.Stream == stream && e.Key == key {
			n++
		}
	}
	return n
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }
