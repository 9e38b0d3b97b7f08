package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLabel(t *testing.T) {
	tests := []struct {
		in     string
		want   Label
		wantOK bool
	}{
		{"positive", LabelPositive, true},
		{"negative", LabelNegative, true},
		{"", LabelUnset, false},
		{"maybe", LabelUnset, false},
	}
	for _, tt := range tests {
		got, ok := ParseLabel(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.wantOK, ok, tt.in)
	}
}

func TestWithLabelReturnsCopy(t *testing.T) {
	r := CandidateRecord{SHA: "abc", Title: "Report"}
	labeled := r.WithLabel(LabelPositive)

	assert.Equal(t, LabelPositive, labeled.Label)
	assert.Equal(t, LabelUnset, r.Label)
	assert.Equal(t, "abc", labeled.SHA)
}

func TestAllOutcomesCoversEveryState(t *testing.T) {
	all := AllOutcomes()
	assert.Len(t, all, 7)
	assert.Equal(t, OutcomeAdmitted, all[len(all)-1])
}
