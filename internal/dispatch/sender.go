package dispatch

import (
	"context"
	"errors"
	"time"

	"mailbridge.org/internal/obs"
)

// OutboundMessage is what callers hand to the relay provider.
type OutboundMessage struct {
	From     string   `json:"from"`
	To       []string `json:"to"`
	Subject  string   `json:"subject"`
	TextBody string   `json:"text,omitempty"`
	HTMLBody string   `json:"html,omitempty"`
}

// Receipt acknowledges a message accepted by the provider.
type Receipt struct {
	ProviderID string    `json:"provider_id"`
	AcceptedAt time.Time `json:"accepted_at"`
}

// Provider is the narrow interface to the third-party relay.
type Provider interface {
	Send(ctx context.Context, msg OutboundMessage) (Receipt, error)
}

// Sender wraps the provider with the resilience stack: the circuit breaker
// guards sustained failure across calls, and inside it the retry policy
// absorbs transient failures of a single call.
type Sender struct {
	provider Provider
	breaker  *CircuitBreaker
	retry    RetryConfig
}

// SenderOption configures Sender behavior.
type SenderOption func(*Sender)

// WithRetryConfig overrides the default retry policy.
func WithRetryConfig(cfg RetryConfig) SenderOption {
	return func(s *Sender) { s.retry = cfg }
}

// WithBreaker installs a pre-built breaker (shared state lives there).
func WithBreaker(b *CircuitBreaker) SenderOption {
	return func(s *Sender) {
		if b != nil {
			s.breaker = b
		}
	}
}

// NewSender constructs the resilient sender. The breaker instance is owned
// by the Sender, not ambient global state; share a Sender to share a breaker.
func NewSender(provider Provider, opts ...SenderOption) *Sender {
	s := &Sender{
		provider: provider,
		breaker:  NewCircuitBreaker(DefaultBreakerConfig()),
		retry:    DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Breaker exposes the guard for administrative reset and state inspection.
func (s *Sender) Breaker() *CircuitBreaker { return s.breaker }

// Send dispatches msg through the breaker, then retry, then the provider.
// While the breaker
// permits, the retry policy governs transient failures; the breaker trips on
// sustained failure across calls and then fails fast without touching the
// provider. Fatal errors propagate immediately with no retry.
func (s *Sender) Send(ctx context.Context, msg OutboundMessage) (Receipt, error) {
	var receipt Receipt
	err := s.breaker.Do(ctx, func(ctx context.Context) error {
		r, err := Retry(ctx, s.retry, func(ctx context.Context) (Receipt, error) {
			return s.provider.Send(ctx, msg)
		}, IsRetryable)
		if err != nil {
			return err
		}
		receipt = r
		return nil
	})
	obs.SetCircuitState(int(s.breaker.State()))
	obs.ObserveDispatch(outcomeOf(err))
	return receipt, err
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrCircuitOpen):
		return "circuit_open"
	case IsRetryable(err):
		return "retryable"
	default:
		return "fatal"
	}
}
