package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/report-agent/internal/model"
)

// Reviewer decisions carried in the action link subjects.
const (
	ActionApprove = "APPROVE"
	ActionReject  = "REJECT"
	ActionNever   = "NEVER"
)

// Digest is a rendered review message.
type Digest struct {
	Subject string                  `json:"subject"`
	HTML    string                  `json:"html"`
	Text    string                  `json:"text"`
	Records []model.CandidateRecord `json:"records"`
}

// ActionLink returns a mailto link addressed to the reviewer whose subject
// is "<action> <sha>".
func ActionLink(reviewer, action, sha string) string {
	return "mailto:" + reviewer + "?subject=" + url.PathEscape(action+" "+sha)
}

type digestRow struct {
	Title   string
	URL     string
	Year    int
	Score   string
	Approve template.URL
	Reject  template.URL
	Never   template.URL
}

var digestTmpl = template.Must(template.New("digest").Parse(`<html><body>
<p>{{.Count}} new report(s) are waiting for review.</p>
<table border="1" cellpadding="4" cellspacing="0">
<tr><th>Title</th><th>Year</th><th>Score</th><th>Action</th></tr>
{{range .Rows}}<tr><td><a href="{{.URL}}">{{.Title}}</a></td><td>{{.Year}}</td><td>{{.Score}}</td><td><a href="{{.Approve}}">Approve</a> | <a href="{{.Reject}}">Reject</a> | <a href="{{.Never}}">Never</a></td></tr>
{{end}}</table>
</body></html>
`))

// Renderer turns an admitted batch into a Digest.
type Renderer struct {
	reviewer string
	prefix   string
	now      func() time.Time
}

// NewRenderer creates a Renderer. Action links are addressed to reviewer.
func NewRenderer(reviewer, subjectPrefix string) *Renderer {
	return &Renderer{reviewer: reviewer, prefix: subjectPrefix, now: time.Now}
}

// Subject returns "<prefix> N new reports need approval (YYYY-MM-DD)".
func (r *Renderer) Subject(n int) string {
	s := fmt.Sprintf("%d new reports need approval (%s)", n, r.now().Format(time.DateOnly))
	if r.prefix == "" {
		return s
	}
	return r.prefix + " " + s
}

// Render builds the HTML and plain text bodies for batch.
func (r *Renderer) Render(batch []model.CandidateRecord) (Digest, error) {
	rows := make([]digestRow, len(batch))
	var text strings.Builder
	for i, rec := range batch {
		title := rec.Title
		if title == "" {
			title = rec.URL
		}
		score := fmt.Sprintf("%.2f", rec.Score)
		rows[i] = digestRow{
			Title:   title,
			URL:     rec.URL,
			Year:    rec.Year,
			Score:   score,
			Approve: template.URL(ActionLink(r.reviewer, ActionApprove, rec.SHA)),
			Reject:  template.URL(ActionLink(r.reviewer, ActionReject, rec.SHA)),
			Never:   template.URL(ActionLink(r.reviewer, ActionNever, rec.SHA)),
		}
		fmt.Fprintf(&text, "%s (%d) score=%s %s sha=%s\n", title, rec.Year, score, rec.URL, rec.SHA)
	}

	var buf bytes.Buffer
	err := digestTmpl.Execute(&buf, struct {
		Count int
		Rows  []digestRow
	}{len(rows), rows})
	if err != nil {
		return Digest{}, eris.Wrap(err, "notify: render digest")
	}

	return Digest{
		Subject: r.Subject(len(batch)),
		HTML:    buf.String(),
		Text:    text.String(),
		Records: batch,
	}, nil
}
