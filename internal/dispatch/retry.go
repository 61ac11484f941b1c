package dispatch

import (
	"context"
	"math"
	"time"
)

// RetryConfig drives the exponential backoff schedule.
type RetryConfig struct {
	MaxRetries int           // additional attempts after the first; >=0
	BaseDelay  time.Duration // delay before the first retry
	MaxDelay   time.Duration // backoff ceiling
	Multiplier float64       // backoff growth factor; >=1
}

// DefaultRetryConfig mirrors the production dispatch policy.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		BaseDelay:  time.Second,
		MaxDelay:   30 * time.Second,
		Multiplier: 2,
	}
}

// Delay computes the wait before retrying after attempt n (0-based):
// min(BaseDelay * Multiplier^n, MaxDelay). Non-decreasing in n.
func (c RetryConfig) Delay(attempt int) time.Duration {
	mult := c.Multiplier
	if mult < 1 {
		mult = 1
	}
	d := time.Duration(float64(c.BaseDelay) * math.Pow(mult, float64(attempt)))
	if d > c.MaxDelay || d < 0 {
		return c.MaxDelay
	}
	return d
}

// Retry invokes op up to MaxRetries+1 times, strictly sequentially. A
// failure for which shouldRetry returns false is returned immediately; a
// retryable failure suspends for Delay(attempt) before the next try. The
// wait is timer-based and aborts early when ctx is canceled. After the last
// attempt the final error is returned as-is.
func Retry[T any](ctx context.Context, cfg RetryConfig, op func(context.Context) (T, error), shouldRetry func(error) bool) (T, error) {
	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, cfg.Delay(attempt-1)); err != nil {
				var zero T
				return zero, err
			}
		}
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err
		if !shouldRetry(err) {
			break
		}
	}
	var zero T
	return zero, lastErr
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
