package media

import (
	"context"
	"time"
)

// RetryPolicy controls how photo downloads are retried. Delays grow
// exponentially: BaseDelay, BaseDelay*Multiplier, BaseDelay*Multiplier^2, ...
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
}

// DefaultRetryPolicy returns the policy used when configuration leaves the
// retry settings unset.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		Multiplier:  2,
	}
}

// Delay returns the wait duration before the given retry. Attempt is
// zero-based: Delay(0) is the wait after the first failure.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	delay := float64(p.BaseDelay)
	for i := 0; i < attempt; i++ {
		delay *= p.Multiplier
	}
	return time.Duration(delay)
}

// Wait blocks for the backoff delay of the given attempt, returning early
// with the context error if the context is cancelled first.
func (p RetryPolicy) Wait(ctx context.Context, attempt int) error {
	timer := time.NewTimer(p.Delay(attempt))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
