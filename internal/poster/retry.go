package poster

import (
	"context"
	"time"
)

// RetryPolicy retries a fallible operation with a fixed delay between
// attempts. Attempts are strictly sequential; success on any attempt
// returns immediately and discards the remaining budget.
//
// The same policy wraps both the fetch step and each individual item's
// publish step; it knows nothing about either.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// Do runs op until it succeeds, the budget is spent, or ctx is done.
// An exhausted budget surfaces as *ExhaustedRetryError wrapping the
// last error.
func (p RetryPolicy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var last error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		last = op(ctx)
		if last == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		if p.Delay > 0 {
			tmr := time.NewTimer(p.Delay)
			select {
			case <-ctx.Done():
				if !tmr.Stop() {
					<-tmr.C
				}
				return ctx.Err()
			case <-tmr.C:
			}
		}
	}
	return &ExhaustedRetryError{Attempts: attempts, Err: last}
}
