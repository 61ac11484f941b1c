package dispatch

import (
	"errors"
	"fmt"
)

// ErrCircuitOpen is returned when the breaker rejects a call without
// invoking the underlying operation.
var ErrCircuitOpen = errors.New("dispatch: circuit open")

// Kind tags a provider failure with a closed classification set. The
// provider adapter is the only place raw transport errors, HTTP statuses,
// and provider error strings are inspected; everything downstream operates
// on Kind.
type Kind int

const (
	KindUnknown Kind = iota
	KindNetwork
	KindTimeout
	KindRateLimited
	KindServer
	KindInvalid
	KindAuth
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	case KindRateLimited:
		return "rate_limited"
	case KindServer:
		return "server"
	case KindInvalid:
		return "invalid"
	case KindAuth:
		return "auth"
	default:
		return "unknown"
	}
}

// Error is the tagged failure produced by provider adapters.
type Error struct {
	Kind      Kind
	Status    int  // HTTP status if the provider responded, else 0
	Retryable bool // explicit provider hint, honored even for unknown kinds
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("dispatch: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("dispatch: %s (status %d)", e.Kind, e.Status)
}

func (e *Error) Unwrap() error { return e.Err }

// IsRetryable reports whether a failed send may be attempted again.
// Transient kinds (network, timeout, rate limit, 5xx) and an explicit
// retryable hint qualify. Everything else is fatal and propagates without
// retry, including errors that carry no classification at all.
func IsRetryable(err error) bool {
	var de *Error
	if !errors.As(err, &de) {
		return false
	}
	if de.Retryable {
		return true
	}
	switch de.Kind {
	case KindNetwork, KindTimeout, KindRateLimited, KindServer:
		return true
	}
	return de.Status >= 500
}
