package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PromMetrics bundles the prometheus collectors exported by the engine.
type PromMetrics struct {
	ProbesTotal          *prometheus.CounterVec
	ProbeDurationSec     *prometheus.HistogramVec
	TierTransitionsTotal *prometheus.CounterVec
	RemediationsTotal    *prometheus.CounterVec
	AlertsTotal          *prometheus.CounterVec
	StaleServesTotal     *prometheus.CounterVec
	CurrentRatio         *prometheus.GaugeVec
}

// NewPromMetrics registers the engine collectors on the given registry.
func NewPromMetrics(registry *prometheus.Registry) *PromMetrics {
	m := &PromMetrics{
		ProbesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_probes_total",
			Help: "Total number of probe executions.",
		}, []string{"resource", "result"}),
		ProbeDurationSec: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sentinel_probe_duration_seconds",
			Help:    "Probe execution duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"resource"}),
		TierTransitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_tier_transitions_total",
			Help: "Total number of tier transitions.",
		}, []string{"resource", "tier"}),
		RemediationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_remediations_total",
			Help: "Total number of remediation passes executed.",
		}, []string{"resource", "tier"}),
		AlertsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_alerts_total",
			Help: "Total number of alerts dispatched.",
		}, []string{"resource", "tier"}),
		StaleServesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_stale_serves_total",
			Help: "Total number of stale snapshots served during backend unavailability.",
		}, []string{"resource"}),
		CurrentRatio: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sentinel_current_ratio",
			Help: "Last measured consumption ratio per resource.",
		}, []string{"resource"}),
	}

	registry.MustRegister(
		m.ProbesTotal,
		m.ProbeDurationSec,
		m.TierTransitionsTotal,
		m.RemediationsTotal,
		m.AlertsTotal,
		m.StaleServesTotal,
		m.CurrentRatio,
	)

	return m
}
