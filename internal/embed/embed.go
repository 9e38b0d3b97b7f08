// Package embed chunks text into token windows, embeds each window and
// reduces the results to one document vector and a relevance score.
package embed

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/report-agent/internal/config"
	"github.com/sells-group/report-agent/pkg/ollama"
)

// ErrInsufficientText is returned when text yields no window at or above the
// minimum window size.
var ErrInsufficientText = errors.New("embed: insufficient text")

// Embedder maps one chunk of text to a fixed-dimension vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// New creates an Embedder based on config.
func New(cfg config.EmbedConfig) (Embedder, error) {
	switch cfg.Provider {
	case "ollama", "":
		client := ollama.NewClient(
			ollama.WithBaseURL(cfg.BaseURL),
			ollama.WithTimeout(time.Duration(cfg.TimeoutSecs)*time.Second),
		)
		return withRetry(NewOllama(client, cfg.Model), "ollama", cfg), nil
	case "openai":
		o, err := NewOpenAI(cfg)
		if err != nil {
			return nil, err
		}
		return withRetry(o, "openai", cfg), nil
	case "hash":
		return NewHash(cfg.Dimensions), nil
	default:
		return nil, eris.Errorf("embed: unknown provider %q", cfg.Provider)
	}
}

// Aggregator embeds every window of a text and averages the vectors.
type Aggregator struct {
	embedder Embedder
	size     int
	stride   int
	floor    int
}

// NewAggregator creates an Aggregator with the window geometry from cfg.
func NewAggregator(e Embedder, cfg config.EmbedConfig) *Aggregator {
	return &Aggregator{
		embedder: e,
		size:     cfg.WindowTokens,
		stride:   cfg.WindowStride,
		floor:    cfg.MinWindowTokens,
	}
}

// Embed returns the element-wise mean of the window embeddings of text.
func (a *Aggregator) Embed(ctx context.Context, text string) ([]float32, error) {
	var (
		sum []float64
		n   int
	)
	for w := range Windows(text, a.size, a.stride, a.floor) {
		vec, err := a.embedder.Embed(ctx, w)
		if err != nil {
			return nil, eris.Wrapf(err, "embed: window %d", n)
		}
		if sum == nil {
			sum = make([]float64, len(vec))
		} else if len(vec) != len(sum) {
			return nil, eris.Errorf("embed: window %d has dimension %d, want %d", n, len(vec), len(sum))
		}
		for i, v := range vec {
			sum[i] += float64(v)
		}
		n++
	}
	if n == 0 {
		return nil, ErrInsufficientText
	}

	mean := make([]float32, len(sum))
	for i, v := range sum {
		mean[i] = float32(v / float64(n))
	}
	zap.L().Debug("embed: aggregated", zap.Int("windows", n), zap.Int("dims", len(mean)))
	return mean, nil
}
