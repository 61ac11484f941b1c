package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func failingOp(calls *int) func(context.Context) error {
	return func(ctx context.Context) error {
		*calls++
		return errors.New("downstream failure")
	}
}

func TestBreakerOpensAfterThreshold(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	b := NewCircuitBreaker(BreakerConfig{FailureThreshold: 3, RecoveryTimeout: time.Minute}, WithBreakerClock(clock.Now))

	calls := 0
	for i := 0; i < 3; i++ {
		if err := b.Do(context.Background(), failingOp(&calls)); err == nil {
			t.Fatal("expected failure")
		}
	}
	if got := b.State(); got != StateOpen {
		t.Fatalf("state after threshold = %v, want open", got)
	}
	if got := b.FailureCount(); got != 3 {
		t.Fatalf("failure count = %d, want 3", got)
	}
}

func TestBreakerFailsFastWhileOpen(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	b := NewCircuitBreaker(BreakerConfig{FailureThreshold: 2, RecoveryTimeout: time.Minute}, WithBreakerClock(clock.Now))

	calls := 0
	for i := 0; i < 2; i++ {
		_ = b.Do(context.Background(), failingOp(&calls))
	}
	if calls != 2 {
		t.Fatalf("setup calls = %d, want 2", calls)
	}

	// Inside the recovery window the wrapped operation must not run.
	clock.Advance(30 * time.Second)
	err := b.Do(context.Background(), failingOp(&calls))
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("open breaker invoked the operation; calls = %d", calls)
	}
}

func TestBreakerHalfOpenProbeSuccessCloses(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	b := NewCircuitBreaker(BreakerConfig{FailureThreshold: 2, RecoveryTimeout: time.Minute}, WithBreakerClock(clock.Now))

	calls := 0
	for i := 0; i < 2; i++ {
		_ = b.Do(context.Background(), failingOp(&calls))
	}
	clock.Advance(time.Minute)

	probed := false
	err := b.Do(context.Background(), func(ctx context.Context) error {
		probed = true
		if got := b.State(); got != StateHalfOpen {
			t.Fatalf("state during probe = %v, want half_open", got)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	if !probed {
		t.Fatal("recovery window elapsed but probe was not let through")
	}
	if got := b.State(); got != StateClosed {
		t.Fatalf("state after successful probe = %v, want closed", got)
	}
	if got := b.FailureCount(); got != 0 {
		t.Fatalf("failure count after close = %d, want 0", got)
	}
}

func TestBreakerHalfOpenProbeFailureReopens(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	b := NewCircuitBreaker(BreakerConfig{FailureThreshold: 2, RecoveryTimeout: time.Minute}, WithBreakerClock(clock.Now))

	calls := 0
	for i := 0; i < 2; i++ {
		_ = b.Do(context.Background(), failingOp(&calls))
	}
	clock.Advance(time.Minute)

	if err := b.Do(context.Background(), failingOp(&calls)); err == nil {
		t.Fatal("expected probe failure")
	}
	if calls != 3 {
		t.Fatalf("probe calls = %d, want 3", calls)
	}
	if got := b.State(); got != StateOpen {
		t.Fatalf("state after failed probe = %v, want open", got)
	}

	// Immediately after the failed probe the breaker fails fast again.
	err := b.Do(context.Background(), failingOp(&calls))
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen after failed probe, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("reopened breaker invoked the operation; calls = %d", calls)
	}
}

func TestBreakerSuccessResetsCounter(t *testing.T) {
	b := NewCircuitBreaker(BreakerConfig{FailureThreshold: 3, RecoveryTimeout: time.Minute})

	calls := 0
	_ = b.Do(context.Background(), failingOp(&calls))
	_ = b.Do(context.Background(), failingOp(&calls))
	if err := b.Do(context.Background(), func(ctx context.Context) error { return nil }); err != nil {
		t.Fatalf("success: %v", err)
	}
	if got := b.FailureCount(); got != 0 {
		t.Fatalf("failure count after success = %d, want 0", got)
	}
	if got := b.State(); got != StateClosed {
		t.Fatalf("state = %v, want closed", got)
	}
}

func TestBreakerReset(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	b := NewCircuitBreaker(BreakerConfig{FailureThreshold: 1, RecoveryTimeout: time.Hour}, WithBreakerClock(clock.Now))

	calls := 0
	_ = b.Do(context.Background(), failingOp(&calls))
	if got := b.State(); got != StateOpen {
		t.Fatalf("state = %v, want open", got)
	}

	b.Reset()
	if got, n := b.State(), b.FailureCount(); got != StateClosed || n != 0 {
		t.Fatalf("after Reset: state=%v count=%d, want closed/0", got, n)
	}
	if err := b.Do(context.Background(), func(ctx context.Context) error { return nil }); err != nil {
		t.Fatalf("call after Reset: %v", err)
	}
}
