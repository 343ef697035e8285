package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/vietddude/swapmatch/internal/metrics"
)

// RetryConfig defines retry behavior.
type RetryConfig struct {
	MaxAttempts     int           `yaml:"max_attempts"`
	InitialDelay    time.Duration `yaml:"initial_delay"`
	MaxDelay        time.Duration `yaml:"max_delay"`
	BackoffMultiple float64       `yaml:"backoff_multiple"`
}

// DefaultRetryConfig provides sensible defaults.
var DefaultRetryConfig = RetryConfig{
	MaxAttempts:     3,
	InitialDelay:    1 * time.Second,
	MaxDelay:        10 * time.Second,
	BackoffMultiple: 2.0,
}

// Retryable reports whether an error is worth another attempt.
//
// Circuit rejections never retry: an open breaker will reject every attempt
// within the backoff horizon, so retrying only burns time. HTTP responses
// below 500 (other than 429) are answers, not outages.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrCircuitOpen) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code >= 500 || statusErr.Code == 429
	}

	// Network errors, timeouts, etc.
	return true
}

// CallWithRetry executes op with exponential backoff on transient failures.
// Non-retryable errors surface immediately. The context is checked between
// attempts, never mid-call.
func CallWithRetry(
	ctx context.Context,
	name string,
	cfg RetryConfig,
	op func(context.Context) error,
) error {
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		metrics.RetryAttempts.WithLabelValues(name, strconv.Itoa(attempt)).Inc()

		err := op(ctx)
		if err == nil {
			if attempt > 1 {
				metrics.RetrySuccess.WithLabelValues(name).Inc()
			}
			return nil
		}

		lastErr = err
		if !Retryable(err) {
			return err
		}

		if attempt == cfg.MaxAttempts {
			break
		}

		delay := calculateBackoff(attempt, cfg)
		slog.Warn("Retrying dependency call",
			"dependency", name, "attempt", attempt, "delay", delay, "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", name, cfg.MaxAttempts, lastErr)
}

// calculateBackoff returns the wait after the given 1-based attempt.
func calculateBackoff(attempt int, cfg RetryConfig) time.Duration {
	delay := float64(cfg.InitialDelay) * math.Pow(cfg.BackoffMultiple, float64(attempt-1))
	if delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}
	return time.Duration(delay)
}
