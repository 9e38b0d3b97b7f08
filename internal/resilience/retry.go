package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// RetryConfig controls retry behavior with exponential backoff and jitter.
type RetryConfig struct {
	// MaxAttempts counts the first try. 1 disables retries. Default: 3.
	MaxAttempts int

	// InitialBackoff is the delay before the first retry. Default: 500ms.
	InitialBackoff time.Duration

	// MaxBackoff caps the delay. Default: 10s.
	MaxBackoff time.Duration

	// JitterFraction spreads each delay by ±fraction. Default: 0.
	JitterFraction float64

	// ShouldRetry overrides IsTransient.
	ShouldRetry func(err error) bool

	// OnRetry is called before each retry sleep.
	OnRetry func(attempt int, err error)
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = 500 * time.Millisecond
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 10 * time.Second
	}
	if c.JitterFraction < 0 {
		c.JitterFraction = 0
	}
	if c.ShouldRetry == nil {
		c.ShouldRetry = IsTransient
	}
	return c
}

// backoff returns the delay after the given zero-based attempt. Delays
// double each attempt.
func (c RetryConfig) backoff(attempt int) time.Duration {
	delay := float64(c.InitialBackoff) * math.Pow(2, float64(attempt))
	if delay > float64(c.MaxBackoff) {
		delay = float64(c.MaxBackoff)
	}
	if c.JitterFraction > 0 {
		delay += (rand.Float64()*2 - 1) * delay * c.JitterFraction
	}
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}

// Do calls fn until it succeeds, returns a non-retryable error, runs out of
// attempts, or ctx is done. The last error is returned.
func Do[T any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	cfg = cfg.withDefaults()

	var zero T
	for attempt := 0; ; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		if ctx.Err() != nil || !cfg.ShouldRetry(err) || attempt >= cfg.MaxAttempts-1 {
			return zero, err
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt+1, err)
		}

		timer := time.NewTimer(cfg.backoff(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, err
		case <-timer.C:
		}
	}
}

// RetryLogger returns an OnRetry callback that logs each retry.
func RetryLogger(service string) func(int, error) {
	return func(attempt int, err error) {
		zap.L().Warn("retrying call",
			zap.String("service", service),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
}
