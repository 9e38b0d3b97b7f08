// Package gate decides whether an extracted candidate is worth recording
// for review.
package gate

import (
	"regexp"
	"strconv"

	"github.com/sells-group/report-agent/internal/config"
	"github.com/sells-group/report-agent/internal/model"
)

// Reason explains a gate decision.
type Reason string

const (
	ReasonAdmitted      Reason = "admitted"
	ReasonBelowMinPages Reason = "below_min_pages"
	ReasonBelowMinYear  Reason = "below_min_year"
)

var yearPattern = regexp.MustCompile(`(19|20)\d\d`)

// Candidate holds the already-computed fields the gate inspects.
type Candidate struct {
	Text    string
	Locator string
	Pages   int
	Score   float64
}

// Decision is the gate's verdict. Year is always populated so admitted
// records carry it.
type Decision struct {
	Admitted bool
	Year     int
	Reason   Reason
}

// Gate applies the page and year thresholds. Score is never gated.
type Gate struct {
	minYear   int
	minPages  int
	scanChars int
}

// New creates a Gate from config.
func New(cfg config.GateConfig) *Gate {
	scan := cfg.YearScanChars
	if scan <= 0 {
		scan = 4000
	}
	return &Gate{minYear: cfg.MinYear, minPages: cfg.MinPages, scanChars: scan}
}

// Admit is a pure function of c and the thresholds.
func (g *Gate) Admit(c Candidate) Decision {
	year := ExtractYear(c.Text, c.Locator, g.scanChars)

	if c.Pages < g.minPages {
		return Decision{Year: year, Reason: ReasonBelowMinPages}
	}
	if year < g.minYear {
		return Decision{Year: year, Reason: ReasonBelowMinYear}
	}
	return Decision{Admitted: true, Year: year, Reason: ReasonAdmitted}
}

// ExtractYear returns the first year-like token in the first scanChars
// characters of text followed by the locator, or model.SentinelYear. The
// first match wins even when it is an incidental number.
func ExtractYear(text, locator string, scanChars int) int {
	window := prefixRunes(text, scanChars) + locator
	m := yearPattern.FindString(window)
	if m == "" {
		return model.SentinelYear
	}
	y, err := strconv.Atoi(m)
	if err != nil {
		return model.SentinelYear
	}
	return y
}

func prefixRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
