// Package metrics exposes prometheus collectors for job and operation
// outcomes. Collectors live on an explicit registry so serve mode can
// scope what it exports and tests never collide on a global.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/reeveops/reeve/internal/model"
)

// Metrics holds the collectors for one process.
type Metrics struct {
	registry *prometheus.Registry

	// JobsTotal counts finished jobs by plan, outcome and dry_run.
	// Outcome follows the exit-code mapping: clean, drift, failed.
	JobsTotal *prometheus.CounterVec

	// JobDuration records end-to-end job duration in seconds.
	JobDuration *prometheus.HistogramVec

	// OpsTotal counts operation results by adapter and display status.
	OpsTotal *prometheus.CounterVec

	// OpDuration records per-operation duration in seconds.
	OpDuration *prometheus.HistogramVec
}

// New builds a fresh registry with all collectors registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		JobsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reeve",
			Subsystem: "jobs",
			Name:      "total",
			Help:      "Finished jobs by plan and outcome",
		}, []string{"plan", "outcome", "dry_run"}),
		JobDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "reeve",
			Subsystem: "job",
			Name:      "duration_seconds",
			Help:      "End-to-end job duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"plan"}),
		OpsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reeve",
			Subsystem: "operations",
			Name:      "total",
			Help:      "Operation results by adapter and status",
		}, []string{"adapter", "status"}),
		OpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "reeve",
			Subsystem: "operation",
			Name:      "duration_seconds",
			Help:      "Per-operation duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"adapter"}),
	}
}

// Registry returns the underlying registry for scrape handlers.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRun records one finished job and every operation result it
// carries.
func (m *Metrics) ObserveRun(plan string, dryRun bool, summary *model.RunSummary) {
	if summary == nil {
		return
	}

	outcome := "clean"
	switch summary.ExitCode() {
	case 1:
		outcome = "drift"
	case 2:
		outcome = "failed"
	}
	m.JobsTotal.WithLabelValues(plan, outcome, strconv.FormatBool(dryRun)).Inc()
	m.JobDuration.WithLabelValues(plan).Observe(summary.Duration.Seconds())

	for _, res := range summary.Results {
		m.ObserveOp(res)
	}
}

// ObserveOp records a single operation result.
func (m *Metrics) ObserveOp(res *model.ExecutionResult) {
	if res == nil {
		return
	}
	adapter := res.Adapter
	if adapter == "" {
		adapter = "unknown"
	}
	m.OpsTotal.WithLabelValues(adapter, model.DisplayStatus(res)).Inc()
	m.OpDuration.WithLabelValues(adapter).Observe(res.Duration.Seconds())
}
