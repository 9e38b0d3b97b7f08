package pipeline

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/report-agent/internal/embed"
	"github.com/sells-group/report-agent/internal/gate"
	"github.com/sells-group/report-agent/internal/metrics"
	"github.com/sells-group/report-agent/internal/model"
)

// candidateOutcome is what one worker hands back. record is set only for
// admitted candidates.
type candidateOutcome struct {
	result model.CandidateResult
	record *model.CandidateRecord
}

// process walks one locator through fetch, dedup, extract, embed, score and
// gate. Every failure becomes a skip outcome; nothing here aborts the run.
func (p *Pipeline) process(ctx context.Context, runID, locator string, known *hashSet) candidateOutcome {
	log := zap.L().With(zap.String("run_id", runID), zap.String("locator", locator))
	skip := func(o model.Outcome, sha, reason string) candidateOutcome {
		res := model.CandidateResult{URL: locator, SHA: sha, Outcome: o, Reason: reason}
		log.Info("pipeline: candidate skipped",
			zap.String("sha", sha),
			zap.String("outcome", string(o)),
			zap.String("reason", res.Reason),
		)
		return candidateOutcome{result: res}
	}

	start := time.Now()
	raw, err := p.fetcher.Fetch(ctx, locator)
	p.metrics.ObserveStage(metrics.StageFetch, time.Since(start))
	if err != nil {
		return skip(model.OutcomeSkippedFetchError, "", err.Error())
	}

	sha := ContentHash(raw)
	if !known.claim(sha) {
		return skip(model.OutcomeSkippedDuplicate, sha, "")
	}

	start = time.Now()
	doc, err := p.extractor.Extract(ctx, raw, locator)
	p.metrics.ObserveStage(metrics.StageExtract, time.Since(start))
	if err != nil {
		return skip(model.OutcomeSkippedUnreadable, sha, err.Error())
	}

	start = time.Now()
	vec, err := p.embedder.Embed(ctx, doc.Text)
	p.metrics.ObserveStage(metrics.StageEmbed, time.Since(start))
	if errors.Is(err, embed.ErrInsufficientText) {
		return skip(model.OutcomeSkippedInsufficientText, sha, err.Error())
	}
	if err != nil {
		return skip(model.OutcomeSkippedEmbedError, sha, err.Error())
	}

	score, err := p.scorer.Score(ctx, vec)
	if err != nil {
		return skip(model.OutcomeSkippedEmbedError, sha, err.Error())
	}

	decision := p.gate.Admit(gate.Candidate{
		Text:    doc.Text,
		Locator: locator,
		Pages:   doc.Pages,
		Score:   score,
	})
	if !decision.Admitted {
		return skip(model.OutcomeSkippedBelowThreshold, sha, string(decision.Reason))
	}

	title := doc.Title
	if title == "" {
		title = locator
	}
	rec := model.CandidateRecord{
		SHA:          sha,
		URL:          locator,
		Title:        title,
		Year:         decision.Year,
		Pages:        doc.Pages,
		Score:        score,
		Format:       doc.Format,
		Summary:      prefixRunes(doc.Text, p.summaryChars),
		RunID:        runID,
		DiscoveredAt: p.now().UTC(),
	}
	log.Info("pipeline: candidate admitted",
		zap.String("sha", sha),
		zap.String("outcome", string(model.OutcomeAdmitted)),
		zap.Int("year", rec.Year),
		zap.Int("pages", rec.Pages),
		zap.Float64("score", rec.Score),
	)
	return candidateOutcome{
		result: model.CandidateResult{URL: locator, SHA: sha, Outcome: model.OutcomeAdmitted},
		record: &rec,
	}
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
