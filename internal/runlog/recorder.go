package runlog

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/report-agent/internal/model"
)

// Recorder writes run history on behalf of the pipeline. Failures are
// logged and swallowed so that ingestion never depends on the run log.
// A Recorder with a nil Store only mints run IDs.
type Recorder struct {
	store Store
}

// NewRecorder wraps s, which may be nil.
func NewRecorder(s Store) *Recorder {
	return &Recorder{store: s}
}

// Start registers a new run and returns its ID.
func (r *Recorder) Start(ctx context.Context, query string) string {
	if r == nil || r.store == nil {
		return uuid.New().String()
	}
	run, err := r.store.CreateRun(ctx, query)
	if err != nil {
		id := uuid.New().String()
		zap.L().Warn("runlog: create run failed", zap.String("run_id", id), zap.Error(err))
		return id
	}
	return run.ID
}

// Finish records the run's terminal status.
func (r *Recorder) Finish(ctx context.Context, runID string, status model.RunStatus, summary *model.RunSummary, runErr error) {
	if r == nil || r.store == nil {
		return
	}
	msg := ""
	if runErr != nil {
		msg = runErr.Error()
	}
	if err := r.store.FinishRun(ctx, runID, status, summary, msg); err != nil {
		zap.L().Warn("runlog: finish run failed", zap.String("run_id", runID), zap.Error(err))
	}
}
