// Package metrics collects per-run Prometheus metrics on a private registry
// and pushes them to a Pushgateway.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/rotisserie/eris"

	"github.com/sells-group/report-agent/internal/model"
)

// Stages timed by StageDuration.
const (
	StageFetch   = "fetch"
	StageExtract = "extract"
	StageEmbed   = "embed"
	StagePersist = "persist"
	StageNotify  = "notify"
)

// Metrics holds the collectors for one process. All methods are safe on a
// nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	CandidatesTotal  *prometheus.CounterVec
	StageDuration    *prometheus.HistogramVec
	RunDuration      prometheus.Gauge
	RunAdmitted      prometheus.Gauge
	RunNotified      prometheus.Gauge
	LastRunTimestamp prometheus.Gauge
}

// New creates the collectors and registers them on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		CandidatesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "report_agent_candidates_total",
				Help: "Candidates processed by terminal outcome.",
			},
			[]string{"outcome"},
		),
		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "report_agent_stage_duration_seconds",
				Help:    "Time spent per pipeline stage.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"stage"},
		),
		RunDuration: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "report_agent_run_duration_seconds",
				Help: "Wall time of the last run.",
			},
		),
		RunAdmitted: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "report_agent_run_admitted",
				Help: "Records admitted by the last run.",
			},
		),
		RunNotified: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "report_agent_run_notified",
				Help: "1 if the last run's digest was delivered, else 0.",
			},
		),
		LastRunTimestamp: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "report_agent_last_run_timestamp_seconds",
				Help: "Unix time the last run finished.",
			},
		),
	}

	m.registry.MustRegister(
		m.CandidatesTotal,
		m.StageDuration,
		m.RunDuration,
		m.RunAdmitted,
		m.RunNotified,
		m.LastRunTimestamp,
	)
	for _, o := range model.AllOutcomes() {
		m.CandidatesTotal.WithLabelValues(string(o))
	}
	return m
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveOutcome counts one candidate outcome.
func (m *Metrics) ObserveOutcome(o model.Outcome) {
	if m == nil {
		return
	}
	m.CandidatesTotal.WithLabelValues(string(o)).Inc()
}

// ObserveStage records how long a stage took.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// ObserveRun records the run-level gauges from a finished summary.
func (m *Metrics) ObserveRun(s *model.RunSummary) {
	if m == nil || s == nil {
		return
	}
	m.RunDuration.Set(s.FinishedAt.Sub(s.StartedAt).Seconds())
	m.RunAdmitted.Set(float64(s.Admitted))
	if s.Notified {
		m.RunNotified.Set(1)
	} else {
		m.RunNotified.Set(0)
	}
	m.LastRunTimestamp.Set(float64(s.FinishedAt.Unix()))
}

// Push sends the registry to a Pushgateway, grouped by job and run ID.
func (m *Metrics) Push(ctx context.Context, gatewayURL, job, runID string, client *http.Client) error {
	if m == nil || gatewayURL == "" {
		return nil
	}
	p := push.New(gatewayURL, job).Gatherer(m.registry)
	if runID != "" {
		p = p.Grouping("run_id", runID)
	}
	if client != nil {
		p = p.Client(client)
	}
	if err := p.PushContext(ctx); err != nil {
		return eris.Wrap(err, "metrics: push")
	}
	return nil
}
