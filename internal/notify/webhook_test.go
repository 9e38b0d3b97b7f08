package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookTransport_Send(t *testing.T) {
	var got Digest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	d, err := fixedRenderer().Render(batch())
	require.NoError(t, err)

	require.NoError(t, NewWebhookTransport(srv.URL, srv.Client()).Send(context.Background(), d))
	assert.Equal(t, d.Subject, got.Subject)
	require.Len(t, got.Records, 2)
	assert.Equal(t, "aaa111", got.Records[0].SHA)
	assert.Contains(t, got.HTML, "REJECT%20bbb222")
}

func TestWebhookTransport_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	d, err := fixedRenderer().Render(batch())
	require.NoError(t, err)

	err = NewWebhookTransport(srv.URL, nil).Send(context.Background(), d)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "webhook returned status 502")
}
