package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/report-agent/internal/config"
	"github.com/sells-group/report-agent/internal/model"
)

func TestDigestNotifier_EmptyBatchSendsNothing(t *testing.T) {
	mt := new(mockTransport)
	n := NewDigestNotifier(fixedRenderer(), mt)

	require.NoError(t, n.Notify(context.Background(), nil))
	require.NoError(t, n.Notify(context.Background(), []model.CandidateRecord{}))
	mt.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestDigestNotifier_SendsOneDigest(t *testing.T) {
	mt := new(mockTransport)
	mt.On("Send", mock.Anything, mock.MatchedBy(func(d Digest) bool {
		return len(d.Records) == 2 && d.Subject != ""
	})).Return(nil).Once()

	n := NewDigestNotifier(fixedRenderer(), mt)
	require.NoError(t, n.Notify(context.Background(), batch()))
	mt.AssertExpectations(t)
}

func TestDigestNotifier_PropagatesTransportError(t *testing.T) {
	mt := new(mockTransport)
	mt.On("Send", mock.Anything, mock.Anything).Return(assert.AnError).Once()

	n := NewDigestNotifier(fixedRenderer(), mt)
	assert.ErrorIs(t, n.Notify(context.Background(), batch()), assert.AnError)
}

func TestNew_Transports(t *testing.T) {
	tests := []struct {
		transport string
		want      interface{}
	}{
		{"", &LogTransport{}},
		{"log", &LogTransport{}},
		{"smtp", &SMTPTransport{}},
		{"webhook", &WebhookTransport{}},
		{"notion", &NotionTransport{}},
	}
	for _, tt := range tests {
		t.Run(tt.transport, func(t *testing.T) {
			cfg := &config.Config{}
			cfg.Notify.Transport = tt.transport
			cfg.SMTP.Host = "smtp.example.org"
			cfg.SMTP.Port = 587

			n, err := New(cfg)
			require.NoError(t, err)
			dn, ok := n.(*DigestNotifier)
			require.True(t, ok)
			assert.IsType(t, tt.want, dn.transport)
		})
	}
}

func TestNew_UnknownTransport(t *testing.T) {
	cfg := &config.Config{}
	cfg.Notify.Transport = "pager"

	_, err := New(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown transport "pager"`)
}

func TestLogTransport(t *testing.T) {
	d, err := fixedRenderer().Render(batch())
	require.NoError(t, err)
	assert.NoError(t, NewLogTransport().Send(context.Background(), d))
}
