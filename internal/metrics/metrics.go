package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tendant/genome-pipeline/pkg/pipeline"
)

// Metrics holds the pipeline collectors on a private registry
type Metrics struct {
	registry *prometheus.Registry

	ItemsTotal   *prometheus.CounterVec
	ItemDuration *prometheus.HistogramVec
	LastRun      *prometheus.GaugeVec
}

// New creates and registers the pipeline collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ItemsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "genome_pipeline_items_total",
			Help: "Work items processed, by stage and terminal status.",
		}, []string{"stage", "status"}),
		ItemDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "genome_pipeline_item_duration_seconds",
			Help:    "Wall-clock time of one external command invocation.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}, []string{"stage"}),
		LastRun: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "genome_pipeline_last_run_timestamp_seconds",
			Help: "Unix time the last run of a stage finished.",
		}, []string{"stage"}),
	}
	m.registry.MustRegister(m.ItemsTotal, m.ItemDuration, m.LastRun)
	return m
}

// Registry returns the registry holding the collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveItem records one item result
func (m *Metrics) ObserveItem(stage pipeline.Stage, result pipeline.ItemResult) {
	m.ItemsTotal.WithLabelValues(string(stage), string(result.Status)).Inc()
	m.ItemDuration.WithLabelValues(string(stage)).Observe(result.Duration.Seconds())
}

// ObserveRun records completion of a stage run
func (m *Metrics) ObserveRun(summary *pipeline.RunSummary) {
	finished := summary.FinishedAt
	if finished.IsZero() {
		finished = summary.StartedAt
	}
	m.LastRun.WithLabelValues(string(summary.Stage)).Set(float64(finished.Unix()))
}

// WriteTextfile writes the registry in the node exporter textfile format
func (m *Metrics) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}
