package discovery

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/report-agent/pkg/google"
)

// GoogleSearch pages through Google Programmable Search results. Pages are
// fetched sequentially with a fixed delay between requests.
type GoogleSearch struct {
	client  google.Client
	limiter *rate.Limiter
}

// NewGoogleSearch creates a GoogleSearch. A non-positive pageDelay disables
// pacing.
func NewGoogleSearch(client google.Client, pageDelay time.Duration) *GoogleSearch {
	limit := rate.Inf
	if pageDelay > 0 {
		limit = rate.Every(pageDelay)
	}
	return &GoogleSearch{
		client:  client,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Discover implements Discoverer. A failure on the first page is returned;
// a failure on a later page ends pagination with the links gathered so far.
func (g *GoogleSearch) Discover(ctx context.Context, query string, n int) ([]string, error) {
	log := zap.L().With(zap.String("provider", "google"))

	var (
		links []string
		seen  = make(map[string]struct{})
		start int
		pages int
	)
	for len(links) < n {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "discovery: page delay")
		}

		resp, err := g.client.CustomSearch(ctx, google.CustomSearchRequest{
			Query: query,
			Num:   min(n, google.MaxPerPage),
			Start: start,
		})
		if err != nil {
			if pages == 0 {
				return nil, eris.Wrap(err, "discovery: google search")
			}
			log.Warn("discovery: later page failed, keeping earlier results",
				zap.Int("page", pages+1),
				zap.Error(err),
			)
			break
		}
		pages++

		page := make([]string, 0, len(resp.Items))
		for _, item := range resp.Items {
			page = append(page, item.Link)
		}
		links = dedupe(links, seen, page, n)

		next, ok := resp.NextStart()
		if !ok || len(resp.Items) == 0 {
			break
		}
		start = next
	}

	log.Info("discovery: complete", zap.Int("pages", pages), zap.Int("locators", len(links)))
	if len(links) == 0 {
		return nil, ErrNoCandidates
	}
	return links, nil
}
