// Package notify delivers the review digest for a batch of newly admitted
// reports.
package notify

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/report-agent/internal/config"
	"github.com/sells-group/report-agent/internal/model"
	"github.com/sells-group/report-agent/pkg/notion"
)

// Notifier sends one digest per batch.
type Notifier interface {
	Notify(ctx context.Context, batch []model.CandidateRecord) error
}

// Transport delivers a rendered digest.
type Transport interface {
	Send(ctx context.Context, d Digest) error
}

// DigestNotifier renders a batch and hands it to a Transport.
type DigestNotifier struct {
	renderer  *Renderer
	transport Transport
}

// NewDigestNotifier pairs a renderer with a transport.
func NewDigestNotifier(r *Renderer, t Transport) *DigestNotifier {
	return &DigestNotifier{renderer: r, transport: t}
}

// Notify renders and sends the digest. An empty batch sends nothing.
func (n *DigestNotifier) Notify(ctx context.Context, batch []model.CandidateRecord) error {
	if len(batch) == 0 {
		return nil
	}
	d, err := n.renderer.Render(batch)
	if err != nil {
		return err
	}
	return n.transport.Send(ctx, d)
}

// New builds the notifier selected by cfg.Notify.Transport.
func New(cfg *config.Config) (Notifier, error) {
	r := NewRenderer(cfg.Notify.ReviewerEmail, cfg.Notify.SubjectPrefix)

	var t Transport
	switch cfg.Notify.Transport {
	case "smtp":
		t = NewSMTPTransport(cfg.SMTP, cfg.Notify.ReviewerEmail)
	case "webhook":
		t = NewWebhookTransport(cfg.Webhook.URL, nil)
	case "notion":
		t = NewNotionTransport(notion.NewClient(cfg.Notion.Token), cfg.Notion.ReviewDB)
	case "log", "":
		t = NewLogTransport()
	default:
		return nil, eris.Errorf("notify: unknown transport %q", cfg.Notify.Transport)
	}
	return NewDigestNotifier(r, t), nil
}
