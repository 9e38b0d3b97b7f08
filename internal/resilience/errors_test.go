package resilience

import (
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

type statusErr int

func (s statusErr) Error() string   { return fmt.Sprintf("status %d", int(s)) }
func (s statusErr) HTTPStatus() int { return int(s) }

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("invalid input: missing field"), false},
		{"explicit", NewTransientError(errors.New("overloaded"), 503), true},
		{"wrapped explicit", fmt.Errorf("call: %w", NewTransientError(errors.New("rate limited"), 429)), true},
		{"status 503", fmt.Errorf("embed: %w", statusErr(503)), true},
		{"status 404", fmt.Errorf("embed: %w", statusErr(404)), false},
		{"connection reset", fmt.Errorf("write tcp: %w", syscall.ECONNRESET), true},
		{"connection refused", fmt.Errorf("dial tcp: %w", syscall.ECONNREFUSED), true},
		{"net timeout", &net.DNSError{IsTimeout: true, Err: "timeout"}, true},
		{"pattern", errors.New("read: i/o timeout"), true},
		{"pattern case", errors.New("net/http: TLS handshake timeout"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		assert.True(t, IsTransientHTTPStatus(code), code)
	}
	for _, code := range []int{200, 400, 401, 403, 404, 422} {
		assert.False(t, IsTransientHTTPStatus(code), code)
	}
}

func TestTransientError_Unwrap(t *testing.T) {
	inner := errors.New("root cause")
	te := NewTransientError(inner, 500)

	assert.ErrorIs(t, te, inner)
	assert.Equal(t, "root cause", te.Error())
	assert.Equal(t, 500, te.StatusCode)
}
