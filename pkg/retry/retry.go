// pkg/retry/retry.go - functions for retrying actions with exponential backoff.

package retry

import (
	"errors"
	"fmt"
	"time"

	"github.com/igpadmins/igptools/pkg/logging"
)

// NonRetryableError interface for errors that should not be retried
type NonRetryableError interface {
	error
	Unwrap() error
}

// RetryConfig defines the configuration for retry attempts
type RetryConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	Multiplier      float64
}

// Retry retries a given function with exponential backoff
func Retry(config RetryConfig, action func() error) error {
	interval := config.InitialInterval

	for attempt := 1; attempt <= config.MaxRetries; attempt++ {
		err := action()
		if err == nil {
			return nil
		}

		// Check if this is a non-retryable error
		var nonRetryableErr NonRetryableError
		if errors.As(err, &nonRetryableErr) {
			logging.Warn(fmt.Sprintf("Non-retryable error encountered: %s", err.Error()),
				"attempt", attempt)
			return err
		}

		if attempt < config.MaxRetries {
			logging.Warn(fmt.Sprintf("Attempt %d/%d failed: %s. Retrying in %s...",
				attempt, config.MaxRetries, err.Error(), interval.String()),
				"attempt", attempt, "max_attempts", config.MaxRetries)
			time.Sleep(interval)
			interval = time.Duration(float64(interval) * config.Multiplier)
			continue
		}

		logging.Warn(fmt.Sprintf("Attempt %d/%d failed: %s. No more retries.",
			attempt, config.MaxRetries, err.Error()),
			"attempt", attempt, "max_attempts", config.MaxRetries)
		return fmt.Errorf("action failed after %d attempts: %w", config.MaxRetries, err)
	}

	return fmt.Errorf("action failed after %d attempts", config.MaxRetries)
}
