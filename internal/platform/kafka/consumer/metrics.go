package consumer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for the consumer loop. A nil *Metrics records nothing.
type Metrics struct {
	Handled      *prometheus.CounterVec
	DeadLettered *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		Handled: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ranchdesk_kafka_messages_handled_total",
			Help: "Handler invocations by topic and result",
		}, []string{"topic", "result"}),
		DeadLettered: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ranchdesk_kafka_messages_dead_lettered_total",
			Help: "Messages that exhausted their attempts, by topic and publish result",
		}, []string{"topic", "result"}),
	}
}

func (m *Metrics) incHandled(topic, result string) {
	if m != nil {
		m.Handled.WithLabelValues(topic, result).Inc()
	}
}

func (m *Metrics) incDeadLettered(topic, result string) {
	if m != nil {
		m.DeadLettered.WithLabelValues(topic, result).Inc()
	}
}
