package errors

import (
	"context"
	"fmt"
	"testing"
	"time"
)

type fakeClock struct {
	current time.Time
}

func (c *fakeClock) now() time.Time { return c.current }

func newTestBreaker(maxFailures, successThreshold int) (*CircuitBreaker, *fakeClock) {
	clock := &fakeClock{current: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures:      maxFailures,
		ResetTimeout:     time.Minute,
		SuccessThreshold: successThreshold,
		Name:             "games_store",
	})
	cb.now = clock.now
	return cb, clock
}

func fail(context.Context) error    { return fmt.Errorf("connection refused") }
func succeed(context.Context) error { return nil }

func TestCircuitBreaker(t *testing.T) {
	ctx := context.Background()

	t.Run("Starts closed", func(t *testing.T) {
		cb, _ := newTestBreaker(3, 1)
		if cb.GetState() != CircuitBreakerClosed {
			t.Errorf("Expected initial state to be CLOSED, got %s", cb.GetState())
		}
	})

	t.Run("Opens after max failures and rejects requests", func(t *testing.T) {
		cb, _ := newTestBreaker(2, 1)
		for i := 0; i < 2; i++ {
			if err := cb.Execute(ctx, fail); err == nil {
				t.Errorf("Expected error from failing operation")
			}
		}
		if cb.GetState() != CircuitBreakerOpen {
			t.Fatalf("Expected state to be OPEN, got %s", cb.GetState())
		}

		called := false
		err := cb.Execute(ctx, func(context.Context) error {
			called = true
			return nil
		})
		if called {
			t.Errorf("Expected open breaker not to call the function")
		}
		se, ok := As(err)
		if !ok || se.Code != ErrCodeCircuitOpen {
			t.Errorf("Expected circuit open error, got %v", err)
		}
	})

	t.Run("Half-open after reset timeout, closes after successes", func(t *testing.T) {
		cb, clock := newTestBreaker(1, 2)
		_ = cb.Execute(ctx, fail)

		clock.current = clock.current.Add(2 * time.Minute)
		for i := 0; i < 2; i++ {
			if err := cb.Execute(ctx, succeed); err != nil {
				t.Errorf("Expected success in half-open state, got %v", err)
			}
		}
		if cb.GetState() != CircuitBreakerClosed {
			t.Errorf("Expected CLOSED after successful trial calls, got %s", cb.GetState())
		}
	})

	t.Run("Failure in half-open reopens", func(t *testing.T) {
		cb, clock := newTestBreaker(1, 2)
		_ = cb.Execute(ctx, fail)
		clock.current = clock.current.Add(2 * time.Minute)

		_ = cb.Execute(ctx, fail)
		if cb.GetState() != CircuitBreakerOpen {
			t.Errorf("Expected OPEN after half-open failure, got %s", cb.GetState())
		}
	})

	t.Run("Classifier ignores expected errors", func(t *testing.T) {
		cb, _ := newTestBreaker(1, 1)
		cb.SetFailureClassifier(func(err error) bool {
			return err != nil && !IsCategory(err, ErrorCategoryNotFound)
		})

		_ = cb.Execute(ctx, func(context.Context) error {
			return NewNotFoundError(ErrCodeGameNotFound, "Game not found", nil)
		})
		if cb.GetState() != CircuitBreakerClosed {
			t.Errorf("Expected not-found answers to keep the breaker closed, got %s", cb.GetState())
		}
	})

	t.Run("Cancelled context short-circuits", func(t *testing.T) {
		cb, _ := newTestBreaker(1, 1)
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		if err := cb.Execute(cancelled, succeed); err != context.Canceled {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
		if cb.GetStats().SuccessCount != 0 {
			t.Errorf("Expected cancelled call not to be recorded")
		}
	})
}

func TestCircuitBreakerStats(t *testing.T) {
	cb, _ := newTestBreaker(3, 2)
	ctx := context.Background()

	_ = cb.Execute(ctx, fail)
	stats := cb.GetStats()
	if stats.Name != "games_store" || stats.FailureCount != 1 || !stats.IsHealthy() {
		t.Errorf("Unexpected stats after one failure: %+v", stats)
	}

	_ = cb.Execute(ctx, succeed)
	stats = cb.GetStats()
	if stats.FailureCount != 0 || stats.SuccessCount != 1 {
		t.Errorf("Expected failure count reset after success, got %+v", stats)
	}
}
