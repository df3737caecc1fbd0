package util

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func isLocked(err error) bool { return strings.Contains(err.Error(), "database is locked") }

func TestRetry(t *testing.T) {
	tests := []struct {
		name          string
		config        RetryConfig
		errorSequence []error
		expectedError string
		expectedCalls int
	}{
		{
			name: "success on first attempt",
			config: RetryConfig{
				MaxRetries: 3,
				BaseDelay:  time.Millisecond,
				MaxDelay:   10 * time.Millisecond,
			},
			errorSequence: []error{nil},
			expectedCalls: 1,
		},
		{
			name: "success after locked database",
			config: RetryConfig{
				MaxRetries:      3,
				BaseDelay:       time.Millisecond,
				MaxDelay:        10 * time.Millisecond,
				ShouldRetryFunc: isLocked,
			},
			errorSequence: []error{
				errors.New("database is locked (5)"),
				errors.New("database is locked (5)"),
				nil,
			},
			expectedCalls: 3,
		},
		{
			name: "constraint violation fails immediately",
			config: RetryConfig{
				MaxRetries:      3,
				BaseDelay:       time.Millisecond,
				MaxDelay:        10 * time.Millisecond,
				ShouldRetryFunc: isLocked,
			},
			errorSequence: []error{errors.New("FOREIGN KEY constraint failed")},
			expectedError: "FOREIGN KEY constraint failed",
			expectedCalls: 1,
		},
		{
			name: "nil predicate never retries",
			config: RetryConfig{
				MaxRetries: 3,
				BaseDelay:  time.Millisecond,
				MaxDelay:   10 * time.Millisecond,
			},
			errorSequence: []error{errors.New("database is locked")},
			expectedError: "database is locked",
			expectedCalls: 1,
		},
		{
			name: "gives up after max retries",
			config: RetryConfig{
				MaxRetries:      2,
				BaseDelay:       time.Millisecond,
				MaxDelay:        5 * time.Millisecond,
				ShouldRetryFunc: isLocked,
			},
			errorSequence: []error{
				errors.New("database is locked"),
				errors.New("database is locked"),
				errors.New("database is locked"),
				errors.New("database is locked"),
			},
			expectedError: "operation failed after 2 retries",
			expectedCalls: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			callCount := 0
			err := Retry(context.Background(), tt.config, func() error {
				if callCount < len(tt.errorSequence) {
					err := tt.errorSequence[callCount]
					callCount++
					return err
				}
				callCount++
				return nil
			})

			if tt.expectedError == "" {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
				require.Contains(t, err.Error(), tt.expectedError)
			}
			require.Equal(t, tt.expectedCalls, callCount)
		})
	}
}

func TestRetry_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	config := RetryConfig{
		MaxRetries:      10,
		BaseDelay:       50 * time.Millisecond,
		MaxDelay:        200 * time.Millisecond,
		ShouldRetryFunc: isLocked,
	}

	start := time.Now()
	err := Retry(ctx, config, func() error {
		return errors.New("database is locked")
	})

	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestRetry_OnRetry(t *testing.T) {
	var attempts []int
	var seen []error
	busy := errors.New("database is locked")

	config := RetryConfig{
		MaxRetries:      3,
		BaseDelay:       time.Millisecond,
		MaxDelay:        time.Millisecond,
		ShouldRetryFunc: isLocked,
		OnRetry: func(attempt int, err error) {
			attempts = append(attempts, attempt)
			seen = append(seen, err)
		},
	}

	calls := 0
	err := Retry(context.Background(), config, func() error {
		calls++
		if calls < 3 {
			return busy
		}
		return nil
	})

	require.NoError(t, err)
	require.Equal(t, []int{1, 2}, attempts)
	require.Equal(t, []error{busy, busy}, seen)
}

func TestBackoffDelay(t *testing.T) {
	config := RetryConfig{
		BaseDelay: 10 * time.Millisecond,
		MaxDelay:  50 * time.Millisecond,
	}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 0, want: 0},
		{attempt: 1, want: 10 * time.Millisecond},
		{attempt: 2, want: 20 * time.Millisecond},
		{attempt: 3, want: 40 * time.Millisecond},
		{attempt: 4, want: 50 * time.Millisecond},
		{attempt: 100, want: 50 * time.Millisecond},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, BackoffDelay(config, tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestDefaultRetryConfig(t *testing.T) {
	config := DefaultRetryConfig()

	require.Equal(t, 5, config.MaxRetries)
	require.Equal(t, 10*time.Millisecond, config.BaseDelay)
	require.Equal(t, time.Second, config.MaxDelay)
	require.Nil(t, config.ShouldRetryFunc)
}
