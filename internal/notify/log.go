package notify

import (
	"context"

	"go.uber.org/zap"
)

// LogTransport writes the digest to the global logger.
type LogTransport struct{}

// NewLogTransport creates a LogTransport.
func NewLogTransport() *LogTransport { return &LogTransport{} }

// Send logs one line per record under the digest subject.
func (LogTransport) Send(_ context.Context, d Digest) error {
	log := zap.L().With(zap.String("subject", d.Subject))
	for _, rec := range d.Records {
		log.Info("notify: review pending",
			zap.String("sha", rec.SHA),
			zap.String("title", rec.Title),
			zap.String("locator", rec.URL),
			zap.Int("year", rec.Year),
			zap.Float64("score", rec.Score),
		)
	}
	return nil
}
