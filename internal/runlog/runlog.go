// Package runlog keeps the history of ingestion runs in SQLite or Postgres.
package runlog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/report-agent/internal/config"
	"github.com/sells-group/report-agent/internal/model"
)

// ErrRunNotFound is returned when a run ID is unknown.
var ErrRunNotFound = errors.New("runlog: run not found")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store persists run history.
type Store interface {
	CreateRun(ctx context.Context, query string) (*model.Run, error)
	FinishRun(ctx context.Context, runID string, status model.RunStatus, summary *model.RunSummary, runErr string) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Open connects to the configured run log and applies the schema.
func Open(ctx context.Context, cfg config.RunLogConfig) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Driver {
	case "sqlite", "":
		if dir := filepath.Dir(cfg.DatabaseURL); dir != "." && !strings.HasPrefix(cfg.DatabaseURL, "file:") {
			if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
				return nil, eris.Wrap(mkErr, "runlog: create database dir")
			}
		}
		s, err = NewSQLite(cfg.DatabaseURL)
	case "postgres":
		s, err = NewPostgres(ctx, cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("runlog: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func limitOrDefault(n int) int {
	if n <= 0 {
		return 100
	}
	return n
}
