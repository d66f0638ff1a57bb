// Package retry runs operations that might fail transiently with
// exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/bstardust/memorable/internal/logger"
	"github.com/bstardust/memorable/pkg/common"
)

// Config defines retry behavior for operations that might fail transiently
type Config struct {
	// MaxRetries is the maximum number of retries before giving up
	MaxRetries int

	// InitialBackoff is the duration to wait before the first retry
	InitialBackoff time.Duration

	// MaxBackoff is the maximum duration to wait between retries
	MaxBackoff time.Duration

	// BackoffFactor is the factor by which to increase backoff after each retry
	BackoffFactor float64

	// RetryableCodes are service error codes that should be retried
	RetryableCodes map[string]bool
}

// Default returns a default retry configuration
func Default() Config {
	return Config{
		MaxRetries:     5,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     1 * time.Minute,
		BackoffFactor:  2.0,
		RetryableCodes: defaultRetryableCodes(),
	}
}

// WithMaxRetries returns a copy of c allowing n retries.
func (c Config) WithMaxRetries(n int) Config {
	if n < 0 {
		n = 0
	}
	c.MaxRetries = n
	return c
}

// defaultRetryableCodes returns S3 error codes and HTTP statuses that are
// worth another attempt
func defaultRetryableCodes() map[string]bool {
	return map[string]bool{
		"RequestTimeout":          true,
		"RequestTimeTooSkewed":    true,
		"InternalError":           true,
		"SlowDown":                true,
		"OperationAborted":        true,
		"ServiceUnavailable":      true,
		"RequestLimitExceeded":    true,
		"BandwidthLimitExceeded":  true,
		"429 Too Many Requests":   true,
		"502 Bad Gateway":         true,
		"503 Service Unavailable": true,
		"504 Gateway Timeout":     true,
	}
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// IsRetryable determines if an error should be retried based on its kind or message
func (c Config) IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	// Caller cancellation and deadlines end the operation
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var p *permanentError
	if errors.As(err, &p) {
		return false
	}
	if errors.Is(err, common.ErrValidation) || errors.Is(err, common.ErrNotFound) {
		return false
	}
	if errors.Is(err, common.ErrNetworkFailure) || errors.Is(err, common.ErrTimeout) {
		return true
	}

	msg := err.Error()
	for code := range c.RetryableCodes {
		if strings.Contains(msg, code) {
			return true
		}
	}

	// Check for common transient error patterns
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "timeout") ||
		strings.Contains(lower, "connection") ||
		strings.Contains(lower, "reset") ||
		strings.Contains(lower, "broken pipe") ||
		strings.Contains(lower, "network") ||
		strings.Contains(lower, "unavailable")
}

// Do retries fn with exponential backoff until it succeeds, fails with a
// non-retryable error, or the retries are used up.
func Do(ctx context.Context, operation string, cfg Config, fn func(ctx context.Context) error) error {
	var (
		err     error
		attempt int
	)

	for attempt = 0; attempt <= cfg.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return fmt.Errorf("%s canceled: %w", operation, ctx.Err())
		}
		if attempt > 0 {
			logger.Debug("Retry attempt %d/%d for %s", attempt, cfg.MaxRetries, operation)
		}

		err = fn(ctx)
		if err == nil {
			if attempt > 0 {
				logger.Info("Completed %s after %d retries", operation, attempt)
			}
			return nil
		}

		if !cfg.IsRetryable(err) {
			logger.Debug("Non-retryable error for %s: %v", operation, err)
			return err
		}
		if attempt == cfg.MaxRetries {
			break
		}

		backoff := backoffDuration(attempt, cfg)
		logger.Debug("Backing off for %v before retrying %s: %v", backoff, operation, err)

		timer := time.NewTimer(backoff)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%s canceled during retry: %w", operation, ctx.Err())
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operation, attempt+1, err)
}

// backoffDuration calculates the backoff duration for a retry attempt
func backoffDuration(attempt int, cfg Config) time.Duration {
	backoff := float64(cfg.InitialBackoff) * math.Pow(cfg.BackoffFactor, float64(attempt))

	// Add jitter (±20% randomness)
	jitter := (rand.Float64() * 0.4) - 0.2
	backoff = backoff * (1 + jitter)

	if backoff > float64(cfg.MaxBackoff) {
		backoff = float64(cfg.MaxBackoff)
	}
	return time.Duration(backoff)
}
