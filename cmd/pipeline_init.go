package main

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/sells-group/report-agent/internal/config"
	"github.com/sells-group/report-agent/internal/discovery"
	"github.com/sells-group/report-agent/internal/embed"
	"github.com/sells-group/report-agent/internal/extract"
	"github.com/sells-group/report-agent/internal/fetcher"
	"github.com/sells-group/report-agent/internal/gate"
	"github.com/sells-group/report-agent/internal/ledger"
	"github.com/sells-group/report-agent/internal/metrics"
	"github.com/sells-group/report-agent/internal/notify"
	"github.com/sells-group/report-agent/internal/pipeline"
	"github.com/sells-group/report-agent/internal/runlog"
	"github.com/sells-group/report-agent/internal/training"
)

// pipelineEnv holds the initialized collaborators needed by the run command.
type pipelineEnv struct {
	Runs     runlog.Store // may be nil
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Runs != nil {
		_ = pe.Runs.Close()
	}
}

// initPipeline builds every collaborator from c and wires the Pipeline.
// Callers should defer env.Close().
func initPipeline(ctx context.Context, c *config.Config) (*pipelineEnv, error) {
	if err := c.ValidateFor("run"); err != nil {
		return nil, err
	}

	disc, err := discovery.New(c)
	if err != nil {
		return nil, err
	}
	ext, err := extract.New(c.Extract)
	if err != nil {
		return nil, err
	}
	emb, err := embed.New(c.Embed)
	if err != nil {
		return nil, err
	}
	scorer, err := initScorer(c)
	if err != nil {
		return nil, err
	}
	notifier, err := notify.New(c)
	if err != nil {
		return nil, err
	}

	runs := initRunLog(ctx, c)

	p := pipeline.New(c, pipeline.Deps{
		Discoverer: disc,
		Fetcher:    fetcher.New(c.Fetch),
		Extractor:  ext,
		Embedder:   embed.NewAggregator(emb, c.Embed),
		Scorer:     scorer,
		Gate:       gate.New(c.Gate),
		Ledger:     ledger.NewOS(c.Ledger),
		Notifier:   notifier,
		Runs:       runlog.NewRecorder(runs),
		Metrics:    metrics.New(),
	})

	return &pipelineEnv{Runs: runs, Pipeline: p}, nil
}

// initScorer selects the relevance scorer, loading the trained model when
// the classifier is configured.
func initScorer(c *config.Config) (embed.Scorer, error) {
	var predictor embed.Predictor
	if c.Embed.Scorer == "classifier" {
		m, err := training.LoadModel(afero.NewOsFs(), c.Training.ModelPath)
		if err != nil {
			return nil, eris.Wrap(err, "load classifier model")
		}
		predictor = m
	}
	return embed.NewScorer(c.Embed.Scorer, predictor)
}

// initRunLog opens the run history store. The run log is optional: a
// failure here is logged and ingestion proceeds without it.
func initRunLog(ctx context.Context, c *config.Config) runlog.Store {
	st, err := runlog.Open(ctx, c.RunLog)
	if err != nil {
		zap.L().Warn("runlog unavailable, continuing without run history",
			zap.String("driver", c.RunLog.Driver),
			zap.Error(err),
		)
		return nil
	}
	return st
}

// openRunLog opens the run history store for the runs subcommands, where
// it is required.
func openRunLog(ctx context.Context, c *config.Config) (runlog.Store, error) {
	st, err := runlog.Open(ctx, c.RunLog)
	if err != nil {
		return nil, eris.Wrap(err, "open run log")
	}
	return st, nil
}
