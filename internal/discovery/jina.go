package discovery

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/report-agent/pkg/jina"
)

// JinaSearch discovers locators with a single Jina Search request.
type JinaSearch struct {
	client jina.Client
}

// NewJinaSearch creates a JinaSearch.
func NewJinaSearch(client jina.Client) *JinaSearch {
	return &JinaSearch{client: client}
}

// Discover implements Discoverer.
func (j *JinaSearch) Discover(ctx context.Context, query string, n int) ([]string, error) {
	resp, err := j.client.Search(ctx, query)
	if err != nil {
		return nil, eris.Wrap(err, "discovery: jina search")
	}

	page := make([]string, 0, len(resp.Data))
	for _, r := range resp.Data {
		page = append(page, r.URL)
	}
	links := dedupe(nil, make(map[string]struct{}), page, n)

	zap.L().Info("discovery: complete", zap.String("provider", "jina"), zap.Int("locators", len(links)))
	if len(links) == 0 {
		return nil, ErrNoCandidates
	}
	return links, nil
}
