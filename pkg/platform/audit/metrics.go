package audit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the audit trail. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	Appended        *prometheus.CounterVec
	AppendDuration  prometheus.Histogram
	PrimaryFailures prometheus.Counter
	MirrorFailures  *prometheus.CounterVec
	MirrorSkipped   *prometheus.CounterVec
}

// NewMetrics registers the audit metrics with the default registry.
func NewMetrics() *Metrics {
	return &Metrics{
		Appended: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ranchdesk_audit_entries_appended_total",
			Help: "Total number of audit entries durably appended, by action",
		}, []string{"action"}),
		AppendDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "ranchdesk_audit_append_duration_seconds",
			Help:    "Latency of primary audit appends",
			Buckets: prometheus.DefBuckets,
		}),
		PrimaryFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ranchdesk_audit_primary_failures_total",
			Help: "Total number of failed primary audit appends",
		}),
		MirrorFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ranchdesk_audit_mirror_failures_total",
			Help: "Total number of failed audit mirror appends, by mirror",
		}, []string{"mirror"}),
		MirrorSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ranchdesk_audit_mirror_skipped_total",
			Help: "Total number of audit mirror appends skipped by an open circuit",
		}, []string{"mirror"}),
	}
}

func (m *Metrics) observeAppend(action Action, seconds float64) {
	if m == nil {
		return
	}
	m.Appended.WithLabelValues(string(action)).Inc()
	m.AppendDuration.Observe(seconds)
}

func (m *Metrics) incPrimaryFailures() {
	if m == nil {
		return
	}
	m.PrimaryFailures.Inc()
}

func (m *Metrics) incMirrorFailures(mirror string) {
	if m == nil {
		return
	}
	m.MirrorFailures.WithLabelValues(mirror).Inc()
}

func (m *Metrics) incMirrorSkipped(mirror string) {
	if m == nil {
		return
	}
	m.MirrorSkipped.WithLabelValues(mirror).Inc()
}
