package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// WebhookTransport POSTs the digest as JSON.
type WebhookTransport struct {
	url    string
	client *http.Client
}

// NewWebhookTransport creates a webhook transport. A nil client gets a 10s
// timeout.
func NewWebhookTransport(url string, client *http.Client) *WebhookTransport {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &WebhookTransport{url: url, client: client}
}

// Send posts the digest subject, bodies and records.
func (t *WebhookTransport) Send(ctx context.Context, d Digest) error {
	body, err := json.Marshal(d)
	if err != nil {
		return eris.Wrap(err, "notify: marshal webhook payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return eris.Wrap(err, "notify: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "notify: send webhook")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("notify: webhook returned status %d", resp.StatusCode)
	}

	zap.L().Info("notify: webhook delivered",
		zap.Int("records", len(d.Records)),
		zap.Int("status", resp.StatusCode),
	)
	return nil
}
