package service

import (
	"time"

	"github.com/controla/backend/internal/model"
	"github.com/prometheus/client_golang/prometheus"
)

// ProbeMetrics instruments probing, transitions, alerts and sweeps.
// A nil *ProbeMetrics is valid and records nothing.
type ProbeMetrics struct {
	probeDuration     *prometheus.HistogramVec
	transitions       *prometheus.CounterVec
	alerts            *prometheus.CounterVec
	sweepDuration     prometheus.Histogram
	sweepFailures     prometheus.Counter
	instancesByStatus *prometheus.GaugeVec
}

func NewProbeMetrics(reg prometheus.Registerer) *ProbeMetrics {
	m := &ProbeMetrics{
		probeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "controla",
				Subsystem: "monitor",
				Name:      "probe_duration_seconds",
				Help:      "Duration of instance status probes partitioned by resulting status.",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
			},
			[]string{"status"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "controla",
				Subsystem: "monitor",
				Name:      "status_transitions_total",
				Help:      "Instance status changes.",
			},
			[]string{"from", "to"},
		),
		alerts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "controla",
				Subsystem: "alerts",
				Name:      "raised_total",
				Help:      "Alerts dispatched to notification channels, by kind.",
			},
			[]string{"kind"},
		),
		sweepDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "controla",
				Subsystem: "monitor",
				Name:      "sweep_duration_seconds",
				Help:      "Duration of a full fleet sweep.",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
		),
		sweepFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "controla",
				Subsystem: "monitor",
				Name:      "sweep_instance_failures_total",
				Help:      "Per-instance failures caught by the fleet sweep.",
			},
		),
		instancesByStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "controla",
				Subsystem: "monitor",
				Name:      "instances",
				Help:      "Instances by status after the last sweep.",
			},
			[]string{"status"},
		),
	}

	reg.MustRegister(
		m.probeDuration,
		m.transitions,
		m.alerts,
		m.sweepDuration,
		m.sweepFailures,
		m.instancesByStatus,
	)
	return m
}

func (m *ProbeMetrics) ObserveProbe(status model.InstanceStatus, d time.Duration) {
	if m == nil {
		return
	}
	m.probeDuration.WithLabelValues(string(status)).Observe(d.Seconds())
}

func (m *ProbeMetrics) RecordTransition(from, to model.InstanceStatus) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(string(from), string(to)).Inc()
}

func (m *ProbeMetrics) RecordAlert(kind model.AlertKind) {
	if m == nil {
		return
	}
	m.alerts.WithLabelValues(string(kind)).Inc()
}

func (m *ProbeMetrics) RecordSweepFailure() {
	if m == nil {
		return
	}
	m.sweepFailures.Inc()
}

// ObserveSweep records a sweep and replaces the per-status gauges.
func (m *ProbeMetrics) ObserveSweep(d time.Duration, counts map[model.InstanceStatus]int) {
	if m == nil {
		return
	}
	m.sweepDuration.Observe(d.Seconds())
	m.instancesByStatus.Reset()
	for status, n := range counts {
		m.instancesByStatus.WithLabelValues(string(status)).Set(float64(n))
	}
}
