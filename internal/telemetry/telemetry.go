// Package telemetry exports the outcome of a run as a Prometheus textfile
// for the node_exporter textfile collector.
package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Dicklesworthstone/rulewatch/internal/engine"
)

const namespace = "rulewatch"

// Metrics holds the run metrics on a private registry
type Metrics struct {
	registry *prometheus.Registry

	CheckResults     *prometheus.GaugeVec
	RuleFailures     *prometheus.GaugeVec
	RuleErrors       *prometheus.GaugeVec
	LastRunTimestamp prometheus.Gauge
	RunDuration      prometheus.Gauge
	AlertsSent       *prometheus.CounterVec
}

// NewMetrics creates and registers the run metrics
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		CheckResults: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "check_results",
				Help:      "Number of check entries per rule and result (passed, failed, skipped)",
			},
			[]string{"rule", "result"},
		),
		RuleFailures: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "rule_failures",
				Help:      "Number of failed checks in the last evaluation of a rule",
			},
			[]string{"rule"},
		),
		RuleErrors: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "rule_errors",
				Help:      "1 if the rule could not be evaluated or its alert was not delivered",
			},
			[]string{"rule"},
		),
		LastRunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run started",
		}),
		RunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run",
		}),
		AlertsSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "alerts_sent_total",
				Help:      "Alerts delivered per channel during the last run",
			},
			[]string{"channel"},
		),
	}

	m.registry.MustRegister(
		m.CheckResults,
		m.RuleFailures,
		m.RuleErrors,
		m.LastRunTimestamp,
		m.RunDuration,
		m.AlertsSent,
	)
	return m
}

// Observe records a finished run and the per-channel delivery counts
func (m *Metrics) Observe(report *engine.Report, sent map[string]int) {
	m.LastRunTimestamp.Set(float64(report.StartedAt.Unix()))
	m.RunDuration.Set(report.Duration.Seconds())

	for _, rr := range report.Rules {
		if rr.Result == nil {
			continue
		}
		for _, s := range []engine.Status{engine.StatusPassed, engine.StatusFailed, engine.StatusSkipped} {
			m.CheckResults.WithLabelValues(rr.Rule, string(s)).Set(float64(rr.Count(s)))
		}
		m.RuleFailures.WithLabelValues(rr.Rule).Set(float64(len(rr.Failures)))

		errored := 0.0
		if rr.Error != "" {
			errored = 1
		}
		m.RuleErrors.WithLabelValues(rr.Rule).Set(errored)
	}

	for channel, n := range sent {
		m.AlertsSent.WithLabelValues(channel).Add(float64(n))
	}
}

// Gatherer exposes the registry
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// WriteTextfile writes the metrics atomically to path
func (m *Metrics) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}

// Export observes report and writes it to path
func Export(path string, report *engine.Report, sent map[string]int) error {
	m := NewMetrics()
	m.Observe(report, sent)
	return m.WriteTextfile(path)
}
