// Package retry provides an injectable retry policy for provider calls.
// The policy lives outside the pipeline: transforms never retry, only the
// I/O boundary does.
package retry

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/movement-scanner/internal/logging"
)

// BackoffFunc returns the delay before the given retry attempt (1-based)
type BackoffFunc func(attempt int) time.Duration

// Policy configures retry behavior around an operation
type Policy struct {
	MaxAttempts int
	Backoff     BackoffFunc
}

// ExponentialBackoff returns a backoff function growing by multiplier each
// attempt, capped at maxDelay
func ExponentialBackoff(initialDelay, maxDelay time.Duration, multiplier float64) BackoffFunc {
	return func(attempt int) time.Duration {
		delay := float64(initialDelay) * math.Pow(multiplier, float64(attempt-1))
		if delay > float64(maxDelay) {
			delay = float64(maxDelay)
		}
		return time.Duration(delay)
	}
}

// ConstantBackoff returns a fixed delay between attempts
func ConstantBackoff(delay time.Duration) BackoffFunc {
	return func(int) time.Duration { return delay }
}

// DefaultPolicy retries up to 4 times with 1s, 2s, 4s, 8s delays capped at 30s
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 5,
		Backoff:     ExponentialBackoff(1*time.Second, 30*time.Second, 2.0),
	}
}

// Do executes fn under the policy. It returns nil on the first success, the
// last error after MaxAttempts failures, or the context error if cancelled
// while waiting between attempts.
func (p Policy) Do(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	logger := logging.FromContext(ctx)

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			if attempt > 1 {
				logger.WithFields(map[string]interface{}{
					"operation": operation,
					"attempts":  attempt,
				}).Info("Operation succeeded after retry")
			}
			return nil
		}
		lastErr = err

		if attempt >= p.MaxAttempts {
			break
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		delay := p.Backoff(attempt)
		logger.WithFields(map[string]interface{}{
			"operation":   operation,
			"attempt":     attempt,
			"maxAttempts": p.MaxAttempts,
			"delay":       delay.String(),
			"error":       err.Error(),
		}).Warn("Operation failed, backing off before retry")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operation, p.MaxAttempts, lastErr)
}
