package poster

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryExhaustsBudget(t *testing.T) {
	t.Parallel()
	p := RetryPolicy{MaxAttempts: 3, Delay: time.Millisecond}

	calls := 0
	boom := errors.New("boom")
	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return boom
	})

	if calls != 3 {
		t.Fatalf("made %d attempts, want 3", calls)
	}
	var ex *ExhaustedRetryError
	if !errors.As(err, &ex) {
		t.Fatalf("error = %v, want *ExhaustedRetryError", err)
	}
	if ex.Attempts != 3 {
		t.Fatalf("Attempts = %d, want 3", ex.Attempts)
	}
	if !errors.Is(err, boom) {
		t.Fatal("wrapped error lost the underlying cause")
	}
}

func TestRetryStopsOnSuccess(t *testing.T) {
	t.Parallel()
	p := RetryPolicy{MaxAttempts: 3, Delay: time.Millisecond}

	calls := 0
	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("made %d attempts, want 2 (no third attempt after success)", calls)
	}
}

func TestRetryHonorsContext(t *testing.T) {
	t.Parallel()
	p := RetryPolicy{MaxAttempts: 5, Delay: time.Hour}

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- p.Do(ctx, func(ctx context.Context) error {
			calls++
			return errors.New("transient")
		})
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("retry did not stop on cancellation")
	}
	if calls != 1 {
		t.Fatalf("made %d attempts before cancel, want 1", calls)
	}
}

func TestRetryZeroAttemptsRunsOnce(t *testing.T) {
	t.Parallel()
	p := RetryPolicy{}
	calls := 0
	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})
	if err != nil || calls != 1 {
		t.Fatalf("calls=%d err=%v, want one clean attempt", calls, err)
	}
}
