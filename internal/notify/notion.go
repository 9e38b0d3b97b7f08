package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/report-agent/pkg/notion"
)

// NotionTransport opens one review page per record in a Notion database.
type NotionTransport struct {
	client notion.Client
	dbID   string
}

// NewNotionTransport creates a transport writing to the review database.
func NewNotionTransport(client notion.Client, dbID string) *NotionTransport {
	return &NotionTransport{client: client, dbID: dbID}
}

// Send upserts a page for every record. It stops at the first failure.
func (t *NotionTransport) Send(ctx context.Context, d Digest) error {
	created := 0
	for _, rec := range d.Records {
		ok, err := notion.UpsertReviewPage(ctx, t.client, t.dbID, notion.ReviewItem{
			SHA:     rec.SHA,
			Title:   rec.Title,
			URL:     rec.URL,
			Year:    rec.Year,
			Pages:   rec.Pages,
			Score:   rec.Score,
			Summary: rec.Summary,
		})
		if err != nil {
			return err
		}
		if ok {
			created++
		}
	}
	zap.L().Info("notify: notion review pages opened",
		zap.String("database", t.dbID),
		zap.Int("created", created),
		zap.Int("reopened", len(d.Records)-created),
	)
	return nil
}
