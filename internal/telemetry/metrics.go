// Package telemetry records convergence runs as Prometheus metrics. Runs are
// short-lived, so metrics are written to a node-exporter textfile rather than
// served.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/alexisbeaulieu97/brokerhost/internal/model"
)

const namespace = "brokerhost"

// Metrics collects step and run metrics for one process.
type Metrics struct {
	stepsTotal   *prometheus.CounterVec
	changesTotal *prometheus.CounterVec
	stepDuration *prometheus.HistogramVec
	runDuration  *prometheus.HistogramVec
	lastRun      *prometheus.GaugeVec
	lastChanges  prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics builds a Metrics backed by its own registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		stepsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "steps_total",
				Help:      "Convergence steps evaluated, by outcome",
			},
			[]string{"step", "status"},
		),
		changesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "step_changes_total",
				Help:      "Convergence steps that changed the host",
			},
			[]string{"step"},
		),
		stepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "step_duration_seconds",
				Help:      "Duration of convergence steps in seconds",
				Buckets:   []float64{.01, .1, .5, 1, 5, 15, 60, 300},
			},
			[]string{"step"},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Duration of convergence runs in seconds",
				Buckets:   []float64{1, 5, 15, 60, 300, 900, 1800},
			},
			[]string{"status"},
		),
		lastRun: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_run_timestamp_seconds",
				Help:      "Unix time the last convergence run finished, by outcome",
			},
			[]string{"status"},
		),
		lastChanges: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_run_changes",
				Help:      "Steps that changed the host during the last run",
			},
		),
	}

	registry.MustRegister(
		m.stepsTotal,
		m.changesTotal,
		m.stepDuration,
		m.runDuration,
		m.lastRun,
		m.lastChanges,
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// StepStarted satisfies the sequencer's observer interface.
func (m *Metrics) StepStarted(string) {}

// StepFinished records a step outcome.
func (m *Metrics) StepFinished(res model.StepResult) {
	m.stepsTotal.WithLabelValues(res.Step, res.Status).Inc()
	if res.Changed {
		m.changesTotal.WithLabelValues(res.Step).Inc()
	}
	if res.Acted() {
		m.stepDuration.WithLabelValues(res.Step).Observe(res.Duration.Seconds())
	}
}

// RecordRun records the outcome of a whole run.
func (m *Metrics) RecordRun(summary model.RunSummary) {
	status := summary.Status()
	m.runDuration.WithLabelValues(status).Observe(summary.Finished.Sub(summary.Started).Seconds())
	m.lastRun.WithLabelValues(status).Set(float64(summary.Finished.Unix()))
	m.lastChanges.Set(float64(summary.Changed()))
}

// WriteTextfile writes every metric to path in the text exposition format.
// The file is replaced atomically.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
