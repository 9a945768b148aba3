package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Pacer spaces consecutive calls to one upstream by a fixed delay plus random jitter.
// The first call never waits.
type Pacer struct {
	delay  time.Duration
	jitter time.Duration

	mu    sync.Mutex
	next  time.Time
	now   func() time.Time
	rnd   *rand.Rand
	sleep func(ctx context.Context, d time.Duration) error
}

type PacerOption func(*Pacer)

func WithPacerClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) PacerOption {
	return func(p *Pacer) {
		if now != nil {
			p.now = now
		}
		if sleep != nil {
			p.sleep = sleep
		}
	}
}

func WithPacerSeed(seed int64) PacerOption {
	return func(p *Pacer) { p.rnd = rand.New(rand.NewSource(seed)) }
}

func NewPacer(delay, jitter time.Duration, opts ...PacerOption) *Pacer {
	p := &Pacer{
		delay:  delay,
		jitter: jitter,
		now:    time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		sleep:  sleepCtx,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Wait blocks until the next call is allowed or ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	now := p.now()
	wait := p.next.Sub(now)
	start := now
	if wait > 0 {
		start = p.next
	}
	gap := p.delay
	if p.jitter > 0 {
		gap += time.Duration(p.rnd.Int63n(int64(p.jitter) + 1))
	}
	p.next = start.Add(gap)
	p.mu.Unlock()

	if wait <= 0 {
		return ctx.Err()
	}
	return p.sleep(ctx, wait)
}

// Reset forgets the previous call, so the next Wait returns immediately.
func (p *Pacer) Reset() {
	p.mu.Lock()
	p.next = time.Time{}
	p.mu.Unlock()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
