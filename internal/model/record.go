// Package model defines the records that flow through the ingestion pipeline
// and the ledger.
package model

import "time"

// SentinelYear is assigned when no publication year can be found.
const SentinelYear = 1900

// Label is the reviewer-derived training label attached to a record.
type Label string

const (
	LabelUnset    Label = ""
	LabelPositive Label = "positive"
	LabelNegative Label = "negative"
)

// ParseLabel maps a label string from a labels file onto a Label.
// Unknown values yield LabelUnset and false.
func ParseLabel(s string) (Label, bool) {
	switch Label(s) {
	case LabelPositive:
		return LabelPositive, true
	case LabelNegative:
		return LabelNegative, true
	default:
		return LabelUnset, false
	}
}

// CandidateRecord is the unit of work and the unit of storage. Records are
// handled by value; once persisted only Label may change, through WithLabel.
type CandidateRecord struct {
	SHA          string    `json:"sha" csv:"sha"`
	URL          string    `json:"url" csv:"url"`
	Title        string    `json:"title" csv:"title"`
	Year         int       `json:"year" csv:"year"`
	Pages        int       `json:"pages" csv:"pages"`
	Score        float64   `json:"score" csv:"score"`
	Format       Format    `json:"format" csv:"format"`
	Summary      string    `json:"summary" csv:"summary"`
	RunID        string    `json:"run_id,omitempty" csv:"run_id"`
	DiscoveredAt time.Time `json:"discovered_at" csv:"discovered_at"`
	Label        Label     `json:"label,omitempty" csv:"label"`
}

// WithLabel returns a copy of r carrying the given label.
func (r CandidateRecord) WithLabel(l Label) CandidateRecord {
	r.Label = l
	return r
}

// Format identifies how a candidate's text was extracted.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatHTML Format = "html"
)
