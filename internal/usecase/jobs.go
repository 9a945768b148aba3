package usecase

import (
	"context"
	"fmt"
)

// PriceJob runs one fare polling cycle per trigger.
type PriceJob struct {
	Poller *FarePoller
}

func (j PriceJob) Name() string { return JobPrices }

func (j PriceJob) Run(ctx context.Context) error {
	s := j.Poller.RunCycle(ctx)
	if s.PairsAttempted > 0 && s.PairsSucceeded == 0 {
		return fmt.Errorf("cycle %s: all %d pairs failed", s.ID, s.PairsAttempted)
	}
	return nil
}

// FlagJob runs one feature-flag check per trigger.
type FlagJob struct {
	Watcher *FlagWatcher
}

func (j FlagJob) Name() string { return JobFlags }

func (j FlagJob) Run(ctx context.Context) error {
	_, err := j.Watcher.RunCheck(ctx)
	return err
}
