package embed

import (
	"context"
	"time"

	"github.com/sells-group/report-agent/internal/config"
	"github.com/sells-group/report-agent/internal/resilience"
)

// Retrying retries transient failures of a remote Embedder.
type Retrying struct {
	next Embedder
	cfg  resilience.RetryConfig
}

// NewRetrying wraps next with the given retry policy.
func NewRetrying(next Embedder, cfg resilience.RetryConfig) *Retrying {
	return &Retrying{next: next, cfg: cfg}
}

// Embed implements Embedder.
func (r *Retrying) Embed(ctx context.Context, text string) ([]float32, error) {
	return resilience.Do(ctx, r.cfg, func(ctx context.Context) ([]float32, error) {
		return r.next.Embed(ctx, text)
	})
}

func withRetry(e Embedder, service string, cfg config.EmbedConfig) Embedder {
	if cfg.MaxAttempts <= 1 {
		return e
	}
	return NewRetrying(e, resilience.RetryConfig{
		MaxAttempts:    cfg.MaxAttempts,
		InitialBackoff: time.Duration(cfg.RetryBackoffMs) * time.Millisecond,
		JitterFraction: 0.25,
		OnRetry:        resilience.RetryLogger(service),
	})
}
