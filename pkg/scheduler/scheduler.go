// Package scheduler runs named jobs on cron schedules. Each run takes a
// "run:<job>" lock so overlapping runs, including ones on other replicas
// sharing the same cache, are skipped instead of stacked.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"FarePull/pkg/cache"
	"FarePull/pkg/logger"

	"github.com/robfig/cron/v3"
)

var (
	ErrBusy       = errors.New("scheduler: job already running")
	ErrUnknownJob = errors.New("scheduler: unknown job")
)

const defaultLockTTL = 2 * time.Hour

type Option func(*Scheduler)

// WithLockTTL bounds how long a crashed run can block the next one.
func WithLockTTL(ttl time.Duration) Option {
	return func(s *Scheduler) {
		if ttl > 0 {
			s.lockTTL = ttl
		}
	}
}

type Scheduler struct {
	cron    *cron.Cron
	locks   cache.Service
	lockTTL time.Duration
	l       *logger.Logger

	mu   sync.RWMutex
	jobs map[string]Job

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(locks cache.Service, l *logger.Logger, opts ...Option) *Scheduler {
	l = l.With("scheduler")
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cronLogger{l: l}),
			cron.WithChain(cron.Recover(cronLogger{l: l})),
		),
		locks:   locks,
		lockTTL: defaultLockTTL,
		l:       l,
		jobs:    make(map[string]Job),
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddJob registers job under spec, e.g. "@every 60m" or "0 */5 * * * *".
func (s *Scheduler) AddJob(spec string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.jobs[job.Name()]; dup {
		return fmt.Errorf("scheduler: job %q already registered", job.Name())
	}
	if _, err := s.cron.AddFunc(spec, func() { s.runScheduled(job) }); err != nil {
		return fmt.Errorf("scheduler: schedule %q for %s: %w", spec, job.Name(), err)
	}
	s.jobs[job.Name()] = job
	s.l.Info("job registered", logger.String("job", job.Name()), logger.String("schedule", spec))
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.l.Info("scheduler started")
}

// Stop cancels running jobs and waits for them, or for ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()
	cronDone := s.cron.Stop()

	done := make(chan struct{})
	go func() {
		<-cronDone.Done()
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.l.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunNow runs the named job synchronously. It returns ErrBusy when another
// run holds the job's lock.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.RLock()
	job, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return s.run(ctx, job)
}

func (s *Scheduler) runScheduled(job Job) {
	if err := s.run(s.ctx, job); err != nil {
		if errors.Is(err, ErrBusy) {
			s.l.Info("previous run still active, skipping", logger.String("job", job.Name()))
			return
		}
		s.l.Error("job failed", logger.String("job", job.Name()), logger.Error(err))
	}
}

func (s *Scheduler) run(ctx context.Context, job Job) error {
	key := "run:" + job.Name()
	ok, err := s.locks.TryLock(ctx, key, s.lockTTL)
	if err != nil {
		return fmt.Errorf("lock %s: %w", key, err)
	}
	if !ok {
		return ErrBusy
	}
	s.wg.Add(1)
	defer s.wg.Done()
	defer func() {
		if err := s.locks.Unlock(context.WithoutCancel(ctx), key); err != nil {
			s.l.Warn("unlock failed", logger.String("key", key), logger.Error(err))
		}
	}()

	start := time.Now()
	s.l.Debug("job running", logger.String("job", job.Name()))
	if err := job.Run(ctx); err != nil {
		return err
	}
	s.l.Debug("job done", logger.String("job", job.Name()), logger.Duration("took", time.Since(start)))
	return nil
}
