package poster

import (
	"errors"
	"fmt"
)

// ErrNoNewContent marks a cycle where filtering left nothing to
// publish. It is an expected outcome, not a fault.
var ErrNoNewContent = errors.New("no new content")

// ErrAllPublishesFailed marks a cycle where every candidate exhausted
// its publish retries. The channel still proceeds to cooldown.
var ErrAllPublishesFailed = errors.New("all publishes failed")

// ExhaustedRetryError wraps the last underlying error after the retry
// budget for one operation is spent.
type ExhaustedRetryError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedRetryError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedRetryError) Unwrap() error { return e.Err }
