//go:build !integration

package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/report-agent/internal/model"
	"github.com/sells-group/report-agent/internal/notify"
)

func digestCmdWith(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "digest"}
	addDigestFlags(cmd)
	require.NoError(t, cmd.Flags().Parse(args))
	return cmd
}

func TestDigestFilter_RequiresSelector(t *testing.T) {
	_, err := digestFilter(digestCmdWith(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--run")
}

func TestDigestFilter_Selectors(t *testing.T) {
	f, err := digestFilter(digestCmdWith(t, "--run", "run-7", "--sha", "aaa", "--sha", "bbb,ccc", "--latest", "3"))
	require.NoError(t, err)

	assert.Equal(t, "run-7", f.RunID)
	assert.Equal(t, []string{"aaa", "bbb", "ccc"}, f.SHAs)
	assert.Equal(t, 3, f.Latest)
	assert.True(t, f.Since.IsZero())
}

func TestDigestFilter_Since(t *testing.T) {
	tests := []struct {
		name string
		arg  string
		want time.Time
	}{
		{"date", "2024-05-02", time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)},
		{"rfc3339", "2024-05-02T09:30:00Z", time.Date(2024, 5, 2, 9, 30, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := digestFilter(digestCmdWith(t, "--since", tt.arg))
			require.NoError(t, err)
			assert.Equal(t, tt.want, f.Since)
		})
	}
}

func TestDigestFilter_BadSince(t *testing.T) {
	_, err := digestFilter(digestCmdWith(t, "--since", "last tuesday"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--since")
}

func TestDigestFilter_NegativeLatest(t *testing.T) {
	_, err := digestFilter(digestCmdWith(t, "--latest", "-1"))
	assert.Error(t, err)
}

func TestWriteDigest(t *testing.T) {
	records := []model.CandidateRecord{{
		SHA:   "4f2a9c",
		URL:   "https://example.org/adaptation-2023.pdf",
		Title: "Adaptation Outlook 2023",
		Year:  2023,
		Score: 0.4321,
	}}

	var buf bytes.Buffer
	require.NoError(t, writeDigest(&buf, notify.NewRenderer("review@example.org", "[Reports]"), records))

	out := buf.String()
	assert.Contains(t, out, "Subject: [Reports] 1 new reports need approval")
	assert.Contains(t, out, "Adaptation Outlook 2023")
	assert.Contains(t, out, "0.43")
	assert.Contains(t, out, "APPROVE%204f2a9c")
}
