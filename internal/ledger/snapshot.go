package ledger

import (
	"time"

	"github.com/sells-group/report-agent/internal/model"
)

// Snapshot is an immutable view of the ledger as loaded or as last persisted.
// Records keep ledger order.
type Snapshot struct {
	records []model.CandidateRecord
	index   map[string]int
}

func newSnapshot(records []model.CandidateRecord) *Snapshot {
	s := &Snapshot{index: make(map[string]int, len(records))}
	for _, r := range records {
		s.add(r)
	}
	return s
}

// NewSnapshot builds a snapshot from records, keeping the first occurrence
// of any repeated hash.
func NewSnapshot(records []model.CandidateRecord) *Snapshot {
	s := newSnapshot(nil)
	for _, r := range records {
		if !s.Contains(r.SHA) {
			s.add(r)
		}
	}
	return s
}

func (s *Snapshot) add(r model.CandidateRecord) {
	s.index[r.SHA] = len(s.records)
	s.records = append(s.records, r)
}

func (s *Snapshot) clone() *Snapshot {
	return newSnapshot(s.records)
}

// Contains reports whether a record with the given content hash exists.
func (s *Snapshot) Contains(sha string) bool {
	_, ok := s.index[sha]
	return ok
}

// Get returns the record for sha.
func (s *Snapshot) Get(sha string) (model.CandidateRecord, bool) {
	i, ok := s.index[sha]
	if !ok {
		return model.CandidateRecord{}, false
	}
	return s.records[i], true
}

// Len returns the number of records.
func (s *Snapshot) Len() int { return len(s.records) }

// Records returns a copy of all records in ledger order.
func (s *Snapshot) Records() []model.CandidateRecord {
	out := make([]model.CandidateRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Hashes returns the set of known content hashes.
func (s *Snapshot) Hashes() map[string]struct{} {
	out := make(map[string]struct{}, len(s.index))
	for h := range s.index {
		out[h] = struct{}{}
	}
	return out
}

// Filter selects records for digest regeneration.
type Filter struct {
	RunID  string
	SHAs   []string
	Since  time.Time
	Latest int
}

// Select returns the records matching f in ledger order. An empty filter
// selects nothing.
func (s *Snapshot) Select(f Filter) []model.CandidateRecord {
	var out []model.CandidateRecord
	if len(f.SHAs) > 0 {
		for _, sha := range f.SHAs {
			if r, ok := s.Get(sha); ok {
				out = append(out, r)
			}
		}
		return out
	}

	if f.RunID == "" && f.Since.IsZero() && f.Latest <= 0 {
		return nil
	}

	for _, r := range s.records {
		if f.RunID != "" && r.RunID != f.RunID {
			continue
		}
		if !f.Since.IsZero() && r.DiscoveredAt.Before(f.Since) {
			continue
		}
		out = append(out, r)
	}
	if f.Latest > 0 && len(out) > f.Latest {
		out = out[len(out)-f.Latest:]
	}
	return out
}
