package dispatch

import (
	"context"
	"sync"
	"time"
)

// BreakerState is one of the three states of the failure-isolation guard.
type BreakerState int

const (
	StateClosed BreakerState = iota
	StateOpen
	StateHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// BreakerConfig tunes the circuit breaker.
//
// SuccessThreshold is accepted for forward compatibility but does not gate
// the half-open to closed transition: a single successful probe closes the
// circuit. Do not rely on multi-success hysteresis.
type BreakerConfig struct {
	FailureThreshold int
	RecoveryTimeout  time.Duration
	SuccessThreshold int
}

// DefaultBreakerConfig matches the production dispatch policy.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		RecoveryTimeout:  60 * time.Second,
		SuccessThreshold: 1,
	}
}

// CircuitBreaker isolates a shared downstream dependency after sustained
// failure. One instance is shared per provider client, so every state
// mutation happens under the mutex.
type CircuitBreaker struct {
	mu           sync.Mutex
	cfg          BreakerConfig
	state        BreakerState
	failureCount int
	lastFailure  time.Time
	now          func() time.Time
}

// BreakerOption configures CircuitBreaker behavior.
type BreakerOption func(*CircuitBreaker)

// WithBreakerClock overrides the time source (useful for recovery tests).
func WithBreakerClock(fn func() time.Time) BreakerOption {
	return func(b *CircuitBreaker) {
		if fn != nil {
			b.now = fn
		}
	}
}

// NewCircuitBreaker constructs a breaker in the closed state.
func NewCircuitBreaker(cfg BreakerConfig, opts ...BreakerOption) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = DefaultBreakerConfig().FailureThreshold
	}
	if cfg.RecoveryTimeout <= 0 {
		cfg.RecoveryTimeout = DefaultBreakerConfig().RecoveryTimeout
	}
	b := &CircuitBreaker{cfg: cfg, state: StateClosed, now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Do runs op through the breaker. While open (and inside the recovery
// window) it fails fast with ErrCircuitOpen without invoking op. Once the
// window elapses the next call transitions to half-open and probes once:
// success closes the circuit, failure reopens it.
func (b *CircuitBreaker) Do(ctx context.Context, op func(context.Context) error) error {
	if err := b.allow(); err != nil {
		return err
	}
	if err := op(ctx); err != nil {
		b.onFailure()
		return err
	}
	b.onSuccess()
	return nil
}

// State reports the current state.
func (b *CircuitBreaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// FailureCount reports consecutive failures observed in the current window.
func (b *CircuitBreaker) FailureCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failureCount
}

// Reset forces the breaker back to closed with counters zeroed, from any
// state. Administrative override.
func (b *CircuitBreaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.failureCount = 0
	b.lastFailure = time.Time{}
}

func (b *CircuitBreaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen {
		if b.now().Sub(b.lastFailure) < b.cfg.RecoveryTimeout {
			return ErrCircuitOpen
		}
		b.state = StateHalfOpen
	}
	return nil
}

func (b *CircuitBreaker) onSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.failureCount = 0
}

func (b *CircuitBreaker) onFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failureCount++
	b.lastFailure = b.now()
	if b.state == StateHalfOpen || b.failureCount >= b.cfg.FailureThreshold {
		b.state = StateOpen
	}
}
