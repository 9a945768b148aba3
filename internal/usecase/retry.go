package usecase

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"
)

// RetryPolicy retries an operation with capped exponential backoff plus jitter.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// Retryable decides whether a failed attempt is worth repeating.
	// Nil retries everything except cancellation.
	Retryable func(error) bool

	sleep func(ctx context.Context, d time.Duration) error
	mu    sync.Mutex
	rnd   *rand.Rand
}

// OnRetry is told about every failed attempt that will be repeated.
type OnRetry func(attempt int, wait time.Duration, err error)

func (p *RetryPolicy) Do(ctx context.Context, op func(context.Context) error, onRetry OnRetry) error {
	attempts := max(p.MaxAttempts, 1)
	var err error
	for attempt := 1; ; attempt++ {
		if err = op(ctx); err == nil {
			return nil
		}
		if attempt >= attempts || !p.retryable(err) || ctx.Err() != nil {
			return err
		}
		wait := p.delay(attempt)
		if onRetry != nil {
			onRetry(attempt, wait, err)
		}
		if serr := p.sleepFn()(ctx, wait); serr != nil {
			return errors.Join(err, serr)
		}
	}
}

func (p *RetryPolicy) retryable(err error) bool {
	if p.Retryable != nil {
		return p.Retryable(err)
	}
	return !errors.Is(err, context.Canceled)
}

// delay is BaseDelay doubled per attempt, capped at MaxDelay, plus up to half of it as jitter.
func (p *RetryPolicy) delay(attempt int) time.Duration {
	if p.BaseDelay <= 0 {
		return 0
	}
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			d = p.MaxDelay
			break
		}
	}
	half := int64(d / 2)
	if half <= 0 {
		return d
	}
	p.mu.Lock()
	if p.rnd == nil {
		p.rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	j := p.rnd.Int63n(half + 1)
	p.mu.Unlock()
	return d + time.Duration(j)
}

func (p *RetryPolicy) sleepFn() func(context.Context, time.Duration) error {
	if p.sleep != nil {
		return p.sleep
	}
	return func(ctx context.Context, d time.Duration) error {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			return nil
		}
	}
}
