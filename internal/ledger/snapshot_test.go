package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/report-agent/internal/model"
)

func TestNewSnapshot_KeepsFirstOccurrence(t *testing.T) {
	a1 := rec("a", 2020)
	a2 := rec("a", 2021)
	s := NewSnapshot([]model.CandidateRecord{a1, rec("b", 2020), a2})

	assert.Equal(t, 2, s.Len())
	got, ok := s.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 2020, got.Year)
}

func TestSnapshot_RecordsIsACopy(t *testing.T) {
	s := NewSnapshot([]model.CandidateRecord{rec("a", 2020)})
	out := s.Records()
	out[0].Title = "mutated"

	got, _ := s.Get("a")
	assert.Equal(t, "a.pdf", got.Title)
}

func TestSnapshot_Hashes(t *testing.T) {
	s := NewSnapshot([]model.CandidateRecord{rec("a", 2020), rec("b", 2020)})
	assert.Equal(t, map[string]struct{}{"a": {}, "b": {}}, s.Hashes())
}

func TestSnapshot_Select(t *testing.T) {
	early := rec("a", 2020)
	early.DiscoveredAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mid := rec("b", 2020)
	mid.RunID = "run-2"
	mid.DiscoveredAt = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	late := rec("c", 2020)
	late.RunID = "run-2"
	late.DiscoveredAt = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	s := NewSnapshot([]model.CandidateRecord{early, mid, late})

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"empty filter selects nothing", Filter{}, nil},
		{"by run", Filter{RunID: "run-2"}, []string{"b", "c"}},
		{"by hashes keeps requested order", Filter{SHAs: []string{"c", "missing", "a"}}, []string{"c", "a"}},
		{"since", Filter{Since: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)}, []string{"b", "c"}},
		{"latest", Filter{Latest: 1}, []string{"c"}},
		{"run and latest", Filter{RunID: "run-2", Latest: 1}, []string{"c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Select(tt.filter)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, shas(got))
		})
	}
}
