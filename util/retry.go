package util

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// RetryConfig holds configuration for retry logic
type RetryConfig struct {
	MaxRetries      int
	BaseDelay       time.Duration
	MaxDelay        time.Duration
	ShouldRetryFunc func(error) bool
	// OnRetry is called before each repeated attempt with the error that caused it.
	OnRetry func(attempt int, err error)
}

// DefaultRetryConfig provides sensible defaults for retry operations
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      5,
		BaseDelay:       10 * time.Millisecond,
		MaxDelay:        1 * time.Second,
		ShouldRetryFunc: nil, // No retry by default
	}
}

// BackoffDelay is the wait before the given attempt (1-based), without jitter.
func BackoffDelay(config RetryConfig, attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}
	delay := float64(config.BaseDelay) * math.Pow(2, float64(attempt-1))
	if delay > float64(config.MaxDelay) {
		return config.MaxDelay
	}
	return time.Duration(delay)
}

// Retry runs operation until it succeeds, fails with an error ShouldRetryFunc rejects,
// or MaxRetries extra attempts have been made.
func Retry(ctx context.Context, config RetryConfig, operation func() error) error {
	var lastErr error

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		if attempt > 0 {
			if config.OnRetry != nil {
				config.OnRetry(attempt, lastErr)
			}

			delay := BackoffDelay(config, attempt)
			// Add jitter to prevent thundering herd
			delay += time.Duration(rand.Float64() * float64(delay) * 0.1)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		err := operation()
		if err == nil {
			return nil
		}

		lastErr = err

		if config.ShouldRetryFunc == nil || !config.ShouldRetryFunc(err) {
			return err
		}
	}

	return fmt.Errorf("operation failed after %d retries, last error: %w", config.MaxRetries, lastErr)
}
