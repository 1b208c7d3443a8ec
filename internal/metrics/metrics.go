// Package metrics exposes Prometheus collectors for bulk actions and the
// deal pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/straye-as/renovation-api/internal/bulk"
)

const namespace = "renovation"

// Metrics holds the application collectors on a private registry
type Metrics struct {
	registry *prometheus.Registry

	BulkItems       *prometheus.CounterVec
	BulkDuration    *prometheus.HistogramVec
	Conversions     *prometheus.CounterVec
	StageChanges    *prometheus.CounterVec
	ExportRuns      *prometheus.CounterVec
	ImportedRecords *prometheus.CounterVec
}

// New creates and registers all collectors, including the Go runtime and
// process collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		BulkItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bulk",
			Name:      "items_total",
			Help:      "Items processed by bulk actions, by outcome.",
		}, []string{"entity", "action", "outcome"}),
		BulkDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "bulk",
			Name:      "batch_duration_seconds",
			Help:      "Wall time of bulk action batches.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"entity", "action", "policy"}),
		Conversions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "conversions_total",
			Help:      "Deal to project conversions, by outcome.",
		}, []string{"outcome"}),
		StageChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_changes_total",
			Help:      "Deal stage transitions, by target stage.",
		}, []string{"stage"}),
		ExportRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "export",
			Name:      "runs_total",
			Help:      "Snapshot export runs, by outcome.",
		}, []string{"outcome"}),
		ImportedRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "import",
			Name:      "rows_total",
			Help:      "Imported rows, by entity and outcome.",
		}, []string{"entity", "outcome"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.BulkItems,
		m.BulkDuration,
		m.Conversions,
		m.StageChanges,
		m.ExportRuns,
		m.ImportedRecords,
	)
	return m
}

// Registry returns the registry the collectors live on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveBatch implements bulk.Recorder
func (m *Metrics) ObserveBatch(entity, action string, policy bulk.Policy, succeeded, failed int, elapsed time.Duration) {
	m.BulkItems.WithLabelValues(entity, action, "succeeded").Add(float64(succeeded))
	m.BulkItems.WithLabelValues(entity, action, "failed").Add(float64(failed))
	m.BulkDuration.WithLabelValues(entity, action, string(policy)).Observe(elapsed.Seconds())
}

// ObserveConversion counts a conversion attempt
func (m *Metrics) ObserveConversion(err error) {
	m.Conversions.WithLabelValues(outcome(err)).Inc()
}

// ObserveStageChange counts a transition into stage
func (m *Metrics) ObserveStageChange(stage string) {
	m.StageChanges.WithLabelValues(stage).Inc()
}

// ObserveExport counts an export run
func (m *Metrics) ObserveExport(err error) {
	m.ExportRuns.WithLabelValues(outcome(err)).Inc()
}

// ObserveImport counts the rows of an import batch
func (m *Metrics) ObserveImport(entity string, created, failed int) {
	m.ImportedRecords.WithLabelValues(entity, "created").Add(float64(created))
	m.ImportedRecords.WithLabelValues(entity, "failed").Add(float64(failed))
}

func outcome(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
