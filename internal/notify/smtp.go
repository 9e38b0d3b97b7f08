package notify

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/sells-group/report-agent/internal/config"
)

// SendFunc delivers a composed message.
type SendFunc func(ctx context.Context, msg *mail.Msg) error

// SMTPTransport mails the digest to the reviewer.
type SMTPTransport struct {
	from string
	to   string
	now  func() time.Time
	send SendFunc
}

// NewSMTPTransport creates a transport for the configured relay. The sender
// defaults to the SMTP username. STARTTLS is used when the server offers it.
func NewSMTPTransport(cfg config.SMTPConfig, reviewer string) *SMTPTransport {
	from := cfg.From
	if from == "" {
		from = cfg.Username
	}
	return &SMTPTransport{
		from: from,
		to:   reviewer,
		now:  time.Now,
		send: dialAndSend(cfg),
	}
}

func clientOptions(cfg config.SMTPConfig) []mail.Option {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	return opts
}

func dialAndSend(cfg config.SMTPConfig) SendFunc {
	return func(ctx context.Context, msg *mail.Msg) error {
		client, err := mail.NewClient(cfg.Host, clientOptions(cfg)...)
		if err != nil {
			return eris.Wrap(err, "new client")
		}
		return client.DialAndSendWithContext(ctx, msg)
	}
}

// Send delivers the digest as a multipart/alternative message with the text
// body first and the HTML body preferred.
func (t *SMTPTransport) Send(ctx context.Context, d Digest) error {
	if err := ctx.Err(); err != nil {
		return eris.Wrap(err, "notify: smtp")
	}
	msg, err := buildMessage(t.from, t.to, d, t.now())
	if err != nil {
		return eris.Wrap(err, "notify: smtp compose")
	}
	if err := t.send(ctx, msg); err != nil {
		return eris.Wrapf(err, "notify: smtp send to %s", t.to)
	}
	zap.L().Info("notify: digest mailed",
		zap.String("to", t.to),
		zap.Int("records", len(d.Records)),
	)
	return nil
}

func buildMessage(from, to string, d Digest, now time.Time) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(from); err != nil {
		return nil, eris.Wrapf(err, "from %q", from)
	}
	if err := m.To(to); err != nil {
		return nil, eris.Wrapf(err, "to %q", to)
	}
	m.Subject(d.Subject)
	m.SetDateWithValue(now)
	m.SetBodyString(mail.TypeTextPlain, d.Text)
	m.AddAlternativeString(mail.TypeTextHTML, d.HTML)
	return m, nil
}
