package http

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts credential issuance outcomes
type Metrics struct {
	issuedTotal   prometheus.Counter
	failuresTotal *prometheus.CounterVec
}

// NewMetrics registers the issuance counters with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		issuedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "turnauth",
			Name:      "credentials_issued_total",
			Help:      "Number of TURN credentials issued.",
		}),
		failuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "turnauth",
			Name:      "credential_failures_total",
			Help:      "Number of failed TURN credential requests by reason.",
		}, []string{"reason"}),
	}

	reg.MustRegister(m.issuedTotal, m.failuresTotal)

	return m
}

func (m *Metrics) issued() {
	m.issuedTotal.Inc()
}

func (m *Metrics) failed(reason string) {
	m.failuresTotal.WithLabelValues(reason).Inc()
}
