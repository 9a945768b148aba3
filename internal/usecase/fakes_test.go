package usecase

import (
	"context"
	"sync"
	"time"

	"FarePull/internal/domain/models"
)

type fetchResult struct {
	batch *models.FareBatch
	err   error
}

// scriptedFetcher replays results per pair; the last one repeats.
type scriptedFetcher struct {
	mu     sync.Mutex
	script map[models.DatePair][]fetchResult
	calls  map[models.DatePair]int
}

func newScriptedFetcher() *scriptedFetcher {
	return &scriptedFetcher{
		script: make(map[models.DatePair][]fetchResult),
		calls:  make(map[models.DatePair]int),
	}
}

func (f *scriptedFetcher) on(pair models.DatePair, results ...fetchResult) *scriptedFetcher {
	f.script[pair] = results
	return f
}

func (f *scriptedFetcher) FetchFares(_ context.Context, q models.FareQuery) (*models.FareBatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := f.calls[q.Pair]
	f.calls[q.Pair]++
	rs := f.script[q.Pair]
	if len(rs) == 0 {
		return &models.FareBatch{}, nil
	}
	r := rs[min(n, len(rs)-1)]
	return r.batch, r.err
}

func (f *scriptedFetcher) callsFor(pair models.DatePair) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[pair]
}

type sentMessage struct {
	text   string
	silent bool
}

type recNotifier struct {
	mu   sync.Mutex
	fail bool
	sent []sentMessage
}

func (n *recNotifier) Notify(_ context.Context, text string, silent bool) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return false
	}
	n.sent = append(n.sent, sentMessage{text: text, silent: silent})
	return true
}

func (n *recNotifier) messages() []sentMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sentMessage(nil), n.sent...)
}

type memHistory struct {
	mu      sync.Mutex
	entries []models.HistoryEntry
	trims   map[models.Stream]int
}

func newMemHistory() *memHistory {
	return &memHistory{trims: make(map[models.Stream]int)}
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

func (m *memHistory) Trim(_ context.Context, stream models.Stream, _ int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trims[stream]++
	return nil
}

func (m *memHistory) Close() error { return nil }

func (m *memHistory) count(stream models.Stream) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.entries {
		if e.Stream == stream {
			n++
		}
	}
	return n
}

type countingPacer struct{ waits int }

func (p *countingPacer) Wait(ctx context.Context) error {
	p.waits++
	return ctx.Err()
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}
