// Package pipeline runs one ingestion pass: discover, fetch, deduplicate,
// extract, score and gate candidates, then persist the admitted batch and
// send it for review.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/report-agent/internal/config"
	"github.com/sells-group/report-agent/internal/discovery"
	"github.com/sells-group/report-agent/internal/embed"
	"github.com/sells-group/report-agent/internal/extract"
	"github.com/sells-group/report-agent/internal/fetcher"
	"github.com/sells-group/report-agent/internal/gate"
	"github.com/sells-group/report-agent/internal/ledger"
	"github.com/sells-group/report-agent/internal/metrics"
	"github.com/sells-group/report-agent/internal/model"
	"github.com/sells-group/report-agent/internal/notify"
	"github.com/sells-group/report-agent/internal/runlog"
)

// Store is the ledger surface the pipeline needs.
type Store interface {
	Load(ctx context.Context) (*ledger.Snapshot, error)
	AppendAndPersist(ctx context.Context, existing *ledger.Snapshot, newRecords []model.CandidateRecord) (*ledger.Snapshot, error)
}

// Deps are the collaborators of a Pipeline. Runs and Metrics may be nil.
type Deps struct {
	Discoverer discovery.Discoverer
	Fetcher    fetcher.Fetcher
	Extractor  extract.Extractor
	Embedder   embed.Embedder
	Scorer     embed.Scorer
	Gate       *gate.Gate
	Ledger     Store
	Notifier   notify.Notifier
	Runs       *runlog.Recorder
	Metrics    *metrics.Metrics
}

// Pipeline orchestrates one ingestion run.
type Pipeline struct {
	query        string
	numResults   int
	concurrency  int
	summaryChars int
	pushURL      string
	pushJob      string

	discoverer discovery.Discoverer
	fetcher    fetcher.Fetcher
	extractor  extract.Extractor
	embedder   embed.Embedder
	scorer     embed.Scorer
	gate       *gate.Gate
	ledger     Store
	notifier   notify.Notifier
	runs       *runlog.Recorder
	metrics    *metrics.Metrics
	now        func() time.Time
}

// New creates a Pipeline. cfg is read once here.
func New(cfg *config.Config, d Deps) *Pipeline {
	concurrency := cfg.Pipeline.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Pipeline{
		query:        cfg.Discovery.Query,
		numResults:   cfg.Discovery.NumResults,
		concurrency:  concurrency,
		summaryChars: cfg.Extract.SummaryChars,
		pushURL:      cfg.Metrics.PushgatewayURL,
		pushJob:      cfg.Metrics.Job,
		discoverer:   d.Discoverer,
		fetcher:      d.Fetcher,
		extractor:    d.Extractor,
		embedder:     d.Embedder,
		scorer:       d.Scorer,
		gate:         d.Gate,
		ledger:       d.Ledger,
		notifier:     d.Notifier,
		runs:         d.Runs,
		metrics:      d.Metrics,
		now:          time.Now,
	}
}

// Run executes one ingestion pass. It returns an error only for run-fatal
// conditions: an unreadable ledger, a failed discovery, or a failed persist.
// A failed notification leaves Notified false and is not an error.
func (p *Pipeline) Run(ctx context.Context) (*model.RunSummary, error) {
	runID := p.runs.Start(ctx, p.query)
	log := zap.L().With(zap.String("run_id", runID))
	log.Info("pipeline: run started", zap.String("query", p.query), zap.Int("num_results", p.numResults))

	summary := &model.RunSummary{
		RunID:     runID,
		Counts:    make(map[model.Outcome]int, len(model.AllOutcomes())),
		StartedAt: p.now().UTC(),
	}
	for _, o := range model.AllOutcomes() {
		summary.Counts[o] = 0
	}

	fail := func(err error) (*model.RunSummary, error) {
		summary.FinishedAt = p.now().UTC()
		p.runs.Finish(ctx, runID, model.RunStatusFailed, summary, err)
		log.Error("pipeline: run failed", zap.Error(err))
		return summary, err
	}

	snap, err := p.ledger.Load(ctx)
	if err != nil {
		return fail(eris.Wrap(err, "pipeline: load ledger"))
	}

	locators, err := p.discoverer.Discover(ctx, p.query, p.numResults)
	if err != nil {
		return fail(eris.Wrap(err, "pipeline: discover"))
	}
	if len(locators) == 0 {
		return fail(discovery.ErrNoCandidates)
	}
	summary.Discovered = len(locators)

	outcomes := p.processAll(ctx, runID, locators, newHashSet(snap.Hashes()))
	if err := ctx.Err(); err != nil {
		return fail(eris.Wrap(err, "pipeline: interrupted"))
	}

	var batch []model.CandidateRecord
	for _, o := range outcomes {
		summary.Counts[o.result.Outcome]++
		p.metrics.ObserveOutcome(o.result.Outcome)
		if o.result.Outcome != model.OutcomeSkippedFetchError {
			summary.Fetched++
		}
		if o.record != nil {
			batch = append(batch, *o.record)
		}
	}
	summary.Admitted = len(batch)

	status := model.RunStatusComplete
	var notifyErr error
	if len(batch) > 0 {
		start := time.Now()
		_, err := p.ledger.AppendAndPersist(ctx, snap, batch)
		p.metrics.ObserveStage(metrics.StagePersist, time.Since(start))
		if err != nil {
			return fail(eris.Wrap(err, "pipeline: persist"))
		}
		summary.Persisted = true

		start = time.Now()
		notifyErr = p.notifier.Notify(ctx, batch)
		p.metrics.ObserveStage(metrics.StageNotify, time.Since(start))
		if notifyErr != nil {
			status = model.RunStatusDegraded
			summary.NotifyError = notifyErr.Error()
			log.Error("pipeline: notification failed, batch is persisted", zap.Error(notifyErr))
		} else {
			summary.Notified = true
		}
	}

	summary.FinishedAt = p.now().UTC()
	p.metrics.ObserveRun(summary)
	if err := p.metrics.Push(ctx, p.pushURL, p.pushJob, runID, nil); err != nil {
		log.Warn("pipeline: metrics push failed", zap.Error(err))
	}
	p.runs.Finish(ctx, runID, status, summary, notifyErr)

	log.Info("pipeline: run complete",
		zap.String("status", string(status)),
		zap.Int("discovered", summary.Discovered),
		zap.Int("fetched", summary.Fetched),
		zap.Int("admitted", summary.Admitted),
		zap.Bool("notified", summary.Notified),
	)
	return summary, nil
}

// processAll runs every locator through process on a bounded pool. Results
// are returned in locator order regardless of completion order.
func (p *Pipeline) processAll(ctx context.Context, runID string, locators []string, known *hashSet) []candidateOutcome {
	out := make([]candidateOutcome, len(locators))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, loc := range locators {
		g.Go(func() error {
			out[i] = p.process(gCtx, runID, loc, known)
			return nil
		})
	}
	_ = g.Wait()
	return out
}
