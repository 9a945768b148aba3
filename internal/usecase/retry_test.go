package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryPolicy_DelayIsCappedWithJitter(t *testing.T) {
	p := &RetryPolicy{BaseDelay: time.Second, MaxDelay: 4 * time.Second}

	for i := 0; i < 50; i++ {
		d1 := p.delay(1)
		assert.GreaterOrEqual(t, d1, time.Second)
		assert.LessOrEqual(t, d1, 1500*time.Millisecond)

		d5 := p.delay(5)
		assert.GreaterOrEqual(t, d5, 4*time.Second)
		assert.LessOrEqual(t, d5, 6*time.Second)
	}
	assert.Zero(t, (&RetryPolicy{}).delay(3))
}

func TestRetryPolicy_StopsOnCancel(t *testing.T) {
	p := &RetryPolicy{MaxAttempts: 5, BaseDelay: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := p.Do(ctx, func(context.Context) error {
		calls++
		cancel()
		return errors.New("flaky")
	}, nil)

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryPolicy_ReportsRetries(t *testing.T) {
	var waits []time.Duration
	p := &RetryPolicy{
		MaxAttempts: 3,
		sleep:       func(context.Context, time.Duration) error { return nil },
	}

	calls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return errors.New("still down")
	}, func(_ int, wait time.Duration, _ error) { waits = append(waits, wait) })

	require.EqualError(t, err, "still down")
	assert.Equal(t, 3, calls)
	assert.Len(t, waits, 2)
}

func TestRetryPolicy_CanceledErrorIsNotRetried(t *testing.T) {
	p := &RetryPolicy{MaxAttempts: 3}
	calls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return context.Canceled
	}, nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
