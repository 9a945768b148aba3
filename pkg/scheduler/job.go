package scheduler

import "context"

// Job is one named unit of scheduled work.
type Job interface {
	// Name identifies the job; it is also the lock key suffix.
	Name() string

	// Run executes the job once. ctx is canceled when the scheduler stops.
	Run(ctx context.Context) error
}

// JobFunc adapts a function into a Job.
type JobFunc struct {
	JobName string
	Fn      func(ctx context.Context) error
}

func (j JobFunc) Name() string                  { return j.JobName }
func (j JobFunc) Run(ctx context.Context) error { return j.Fn(ctx) }
