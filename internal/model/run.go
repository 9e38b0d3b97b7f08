package model

import "time"

// Outcome is the terminal state of one candidate within a run.
type Outcome string

const (
	OutcomeSkippedFetchError       Outcome = "skipped_fetch_error"
	OutcomeSkippedDuplicate        Outcome = "skipped_duplicate"
	OutcomeSkippedUnreadable       Outcome = "skipped_unreadable"
	OutcomeSkippedInsufficientText Outcome = "skipped_insufficient_text"
	OutcomeSkippedEmbedError       Outcome = "skipped_embed_error"
	OutcomeSkippedBelowThreshold   Outcome = "skipped_below_threshold"
	OutcomeAdmitted                Outcome = "admitted"
)

// AllOutcomes returns every terminal outcome in reporting order.
func AllOutcomes() []Outcome {
	return []Outcome{
		OutcomeSkippedFetchError,
		OutcomeSkippedDuplicate,
		OutcomeSkippedUnreadable,
		OutcomeSkippedInsufficientText,
		OutcomeSkippedEmbedError,
		OutcomeSkippedBelowThreshold,
		OutcomeAdmitted,
	}
}

// CandidateResult records how one discovered locator left the pipeline.
type CandidateResult struct {
	URL     string  `json:"url"`
	SHA     string  `json:"sha,omitempty"`
	Outcome Outcome `json:"outcome"`
	Reason  string  `json:"reason,omitempty"`
}

// RunSummary is the operator-facing report of a run.
type RunSummary struct {
	RunID       string          `json:"run_id"`
	Discovered  int             `json:"discovered"`
	Fetched     int             `json:"fetched"`
	Counts      map[Outcome]int `json:"counts"`
	Admitted    int             `json:"admitted"`
	Persisted   bool            `json:"persisted"`
	Notified    bool            `json:"notified"`
	NotifyError string          `json:"notify_error,omitempty"`
	StartedAt   time.Time       `json:"started_at"`
	FinishedAt  time.Time       `json:"finished_at"`
}

// RunStatus represents the lifecycle state of a run in the run log.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusDegraded RunStatus = "degraded"
	RunStatusFailed   RunStatus = "failed"
)

// Run is a row of the run history log.
type Run struct {
	ID        string      `json:"id"`
	Query     string      `json:"query"`
	Status    RunStatus   `json:"status"`
	Summary   *RunSummary `json:"summary,omitempty"`
	Error     string      `json:"error,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}
