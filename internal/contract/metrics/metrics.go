package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for contract generation and validation.
type Metrics struct {
	// Generation outcomes: generated, regenerated, signed_noop, failed
	GenerationOutcome *prometheus.CounterVec

	GenerationLatency prometheus.Histogram

	// Lost races and transient tx failures retried with a fresh read
	GenerationRetries prometheus.Counter

	// Validation results by status
	ValidationOutcome *prometheus.CounterVec

	// Primary operations whose audit entry could not be written
	AuditIncomplete *prometheus.CounterVec
}

// New creates a new Metrics instance registered with the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the collectors with reg instead of the default
// registry.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		GenerationOutcome: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ranchdesk_contract_generations_total",
			Help: "Total contract generation attempts by outcome",
		}, []string{"outcome"}),

		GenerationLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ranchdesk_contract_generation_duration_seconds",
			Help:    "Duration of contract generation including artifact upload",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),

		GenerationRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "ranchdesk_contract_generation_retries_total",
			Help: "Total generation retries caused by a concurrent write or a transient transaction failure",
		}),

		ValidationOutcome: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ranchdesk_contract_validations_total",
			Help: "Total signature validations by resulting status",
		}, []string{"status"}),

		AuditIncomplete: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ranchdesk_contract_audit_incomplete_total",
			Help: "Total contract operations that succeeded without their audit entry",
		}, []string{"action"}),
	}
}

func (m *Metrics) IncrementGeneration(outcome string) {
	if m != nil {
		m.GenerationOutcome.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) ObserveGenerationLatency(d time.Duration) {
	if m != nil {
		m.GenerationLatency.Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementRetry() {
	if m != nil {
		m.GenerationRetries.Inc()
	}
}

func (m *Metrics) IncrementValidation(status string) {
	if m != nil {
		m.ValidationOutcome.WithLabelValues(status).Inc()
	}
}

func (m *Metrics) IncrementAuditIncomplete(action string) {
	if m != nil {
		m.AuditIncomplete.WithLabelValues(action).Inc()
	}
}
