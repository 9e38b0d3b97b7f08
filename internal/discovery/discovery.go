// Package discovery finds candidate report locators through a web search
// provider.
package discovery

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/report-agent/internal/config"
	"github.com/sells-group/report-agent/pkg/google"
	"github.com/sells-group/report-agent/pkg/jina"
)

// ErrNoCandidates is returned when a search yields no locators at all.
var ErrNoCandidates = errors.New("discovery: no candidates found")

// Discoverer returns up to n candidate locators for query, in provider rank
// order with exact duplicates removed.
type Discoverer interface {
	Discover(ctx context.Context, query string, n int) ([]string, error)
}

// New creates a Discoverer based on config.
func New(cfg *config.Config) (Discoverer, error) {
	switch cfg.Discovery.Provider {
	case "google", "":
		client := google.NewClient(cfg.Google.APIKey, cfg.Google.CSEID, google.WithBaseURL(cfg.Google.BaseURL))
		return NewGoogleSearch(client, time.Duration(cfg.Discovery.PageDelayMs)*time.Millisecond), nil
	case "jina":
		client := jina.NewClient(cfg.Jina.Key, jina.WithSearchBaseURL(cfg.Jina.SearchBaseURL))
		return NewJinaSearch(client), nil
	default:
		return nil, eris.Errorf("discovery: unknown provider %q", cfg.Discovery.Provider)
	}
}

// dedupe appends links not yet seen to out, skipping empty strings, and stops
// once out holds n entries.
func dedupe(out []string, seen map[string]struct{}, links []string, n int) []string {
	for _, l := range links {
		if len(out) >= n {
			break
		}
		if l == "" {
			continue
		}
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}
