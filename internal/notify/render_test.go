package notify

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/report-agent/internal/model"
)

func fixedRenderer() *Renderer {
	r := NewRenderer("reviewer@example.org", "[Climate Agent]")
	r.now = func() time.Time { return time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC) }
	return r
}

func batch() []model.CandidateRecord {
	return []model.CandidateRecord{
		{SHA: "aaa111", URL: "https://example.org/a.pdf", Title: "Report A", Year: 2021, Score: 0.456},
		{SHA: "bbb222", URL: "https://example.org/b.pdf", Title: "Report A", Year: 2019, Score: 0.1},
	}
}

func TestActionLink(t *testing.T) {
	assert.Equal(t, "mailto:r@example.org?subject=APPROVE%20abc", ActionLink("r@example.org", ActionApprove, "abc"))
	assert.Equal(t, "mailto:r@example.org?subject=NEVER%20abc", ActionLink("r@example.org", ActionNever, "abc"))
}

func TestSubject(t *testing.T) {
	r := fixedRenderer()
	assert.Equal(t, "[Climate Agent] 2 new reports need approval (2024-05-02)", r.Subject(2))

	r.prefix = ""
	assert.Equal(t, "1 new reports need approval (2024-05-02)", r.Subject(1))
}

func TestRender(t *testing.T) {
	d, err := fixedRenderer().Render(batch())
	require.NoError(t, err)

	assert.Equal(t, "[Climate Agent] 2 new reports need approval (2024-05-02)", d.Subject)
	assert.Len(t, d.Records, 2)

	assert.Contains(t, d.HTML, `<a href="https://example.org/a.pdf">Report A</a>`)
	assert.Contains(t, d.HTML, "<td>2021</td>")
	assert.Contains(t, d.HTML, "<td>0.46</td>")
	assert.Contains(t, d.HTML, "<td>0.10</td>")

	// Same titles, distinct hash-keyed actions.
	for _, sha := range []string{"aaa111", "bbb222"} {
		for _, action := range []string{ActionApprove, ActionReject, ActionNever} {
			assert.Contains(t, d.HTML, "mailto:reviewer@example.org?subject="+action+"%20"+sha)
		}
	}
	assert.Equal(t, 2, strings.Count(d.HTML, "<tr><td>"))
	assert.Contains(t, d.Text, "sha=aaa111")
}

func TestRender_EscapesTitle(t *testing.T) {
	recs := []model.CandidateRecord{{SHA: "x", URL: "https://example.org/x", Title: "<script>alert(1)</script>", Year: 2020}}
	d, err := fixedRenderer().Render(recs)
	require.NoError(t, err)
	assert.NotContains(t, d.HTML, "<script>")
	assert.Contains(t, d.HTML, "&lt;script&gt;")
}

func TestRender_TitleFallsBackToLocator(t *testing.T) {
	recs := []model.CandidateRecord{{SHA: "x", URL: "https://example.org/x", Year: 2020}}
	d, err := fixedRenderer().Render(recs)
	require.NoError(t, err)
	assert.Contains(t, d.HTML, `<a href="https://example.org/x">https://example.org/x</a>`)
}
