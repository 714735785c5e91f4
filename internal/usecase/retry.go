package usecase

import (
	"context"
	"errors"
	"time"

	"docseal/internal/domain"
)

const (
	DefaultRetryAttempts = 3
	DefaultRetryBackoff  = 25 * time.Millisecond
)

// RetryPolicy retries operations that failed with
// domain.ErrConcurrencyConflict. Every other error is returned as is.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: DefaultRetryAttempts, Backoff: DefaultRetryBackoff}
}

// Do runs fn until it succeeds, fails with a non-retryable error, or the
// attempts are used up. The wait grows linearly with the attempt number.
func (p RetryPolicy) Do(ctx context.Context, fn func() error) (int, error) {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn()
		if err == nil || !errors.Is(err, domain.ErrConcurrencyConflict) {
			return attempt, err
		}
		if attempt == attempts {
			return attempt, err
		}
		if p.Backoff > 0 {
			timer := time.NewTimer(time.Duration(attempt) * p.Backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return attempt, errors.Join(err, ctx.Err())
			case <-timer.C:
			}
		}
	}
	return attempts, err
}
