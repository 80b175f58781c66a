// Package metrics exports sync outcomes as Prometheus metrics. A one-shot CLI
// has no scrape endpoint, so the registry is written to a node_exporter
// textfile collector path after each run.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"watchsync/internal/syncengine"
)

const namespace = "watchsync"

// Metrics owns a private registry with the sync counters and gauges.
type Metrics struct {
	registry *prometheus.Registry

	items        *prometheus.CounterVec
	skips        *prometheus.CounterVec
	sections     *prometheus.CounterVec
	userFailures *prometheus.CounterVec

	lastRunTimestamp prometheus.Gauge
	lastRunDuration  prometheus.Gauge
	lastRunSuccess   prometheus.Gauge
}

// New registers the watchsync collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_total",
			Help:      "Source items processed, by kind and status (marked, dry_run, skipped).",
		}, []string{"kind", "status"}),
		skips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "skips_total",
			Help:      "Items not marked, by skip reason.",
		}, []string{"reason"}),
		sections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sections_total",
			Help:      "Library sections processed, by kind and result.",
		}, []string{"kind", "result"}),
		userFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "user_failures_total",
			Help:      "Users whose sync was aborted.",
		}, []string{"user"}),
		lastRunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last sync finished.",
		}),
		lastRunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_duration_seconds",
			Help:      "Wall time of the last sync.",
		}),
		lastRunSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_success",
			Help:      "1 if every user in the last sync completed.",
		}),
	}
	m.registry.MustRegister(
		m.items,
		m.skips,
		m.sections,
		m.userFailures,
		m.lastRunTimestamp,
		m.lastRunDuration,
		m.lastRunSuccess,
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveSection counts one finished section and its outcomes.
func (m *Metrics) ObserveSection(report syncengine.SectionReport) {
	kind := report.Section.Kind.String()
	switch {
	case report.Err != nil:
		m.sections.WithLabelValues(kind, "failed").Inc()
	case !report.Found:
		m.sections.WithLabelValues(kind, "not_found").Inc()
	default:
		m.sections.WithLabelValues(kind, "synced").Inc()
	}

	for _, o := range report.Outcomes {
		if o.Reason == syncengine.ReasonSectionNotFound {
			m.skips.WithLabelValues(string(o.Reason)).Inc()
			continue
		}
		m.items.WithLabelValues(o.Kind.String(), o.Status()).Inc()
		if o.Skipped() {
			m.skips.WithLabelValues(string(o.Reason)).Inc()
		}
	}
}

// ObserveRun records every section of the run plus the last-run gauges.
func (m *Metrics) ObserveRun(report syncengine.RunReport) {
	for _, user := range report.Users {
		for _, section := range user.Sections {
			m.ObserveSection(section)
		}
		if user.Err != nil {
			m.userFailures.WithLabelValues(user.User).Inc()
		}
	}

	if !report.FinishedAt.IsZero() {
		m.lastRunTimestamp.Set(float64(report.FinishedAt.Unix()))
		if !report.StartedAt.IsZero() {
			m.lastRunDuration.Set(report.FinishedAt.Sub(report.StartedAt).Seconds())
		}
	}
	if report.Failed() {
		m.lastRunSuccess.Set(0)
	} else {
		m.lastRunSuccess.Set(1)
	}
}

// WriteTextfile atomically writes the registry in the text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
