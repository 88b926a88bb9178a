// Package resilience provides the fixed-wait retry policy applied to registry
// API calls: transport failures and 5xx responses are retried a configured
// number of times with a constant inter-attempt wait, 4xx responses never are.
package resilience

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Config controls retry behavior.
type Config struct {
	// Retries is the number of retries after the first attempt, so the total
	// attempt count is Retries+1. A value of 0 means a single attempt.
	Retries int

	// Wait is the fixed delay between attempts. Default: 1s.
	Wait time.Duration

	// ShouldRetry optionally overrides the default transient-error check.
	// If nil, IsTransient is used.
	ShouldRetry func(err error) bool

	// OnRetry is called before each retry sleep with attempt number and error.
	OnRetry func(attempt int, err error)
}

// DefaultConfig returns the retry configuration matching the registry API
// defaults: 3 retries, 1 second apart.
func DefaultConfig() Config {
	return Config{Retries: 3, Wait: time.Second}
}

func (c Config) applyDefaults() Config {
	if c.Retries < 0 {
		c.Retries = 0
	}
	if c.Wait <= 0 {
		c.Wait = time.Second
	}
	if c.ShouldRetry == nil {
		c.ShouldRetry = IsTransient
	}
	return c
}

// DoVal executes fn with retries according to cfg, returning the value from
// the first successful call. Context cancellation stops retrying immediately.
func DoVal[T any](ctx context.Context, cfg Config, fn func(ctx context.Context) (T, error)) (T, error) {
	cfg = cfg.applyDefaults()

	var zero T
	var lastErr error
	attempts := cfg.Retries + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, lastErr
		}
		if !cfg.ShouldRetry(lastErr) {
			return zero, lastErr
		}
		if attempt == attempts {
			break
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, lastErr)
		}

		timer := time.NewTimer(cfg.Wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		case <-timer.C:
		}
	}

	return zero, lastErr
}

// RetryLogger returns an OnRetry callback that logs each retry attempt.
func RetryLogger(service, operation string) func(int, error) {
	return func(attempt int, err error) {
		zap.L().Warn("retrying operation",
			zap.String("service", service),
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
}
