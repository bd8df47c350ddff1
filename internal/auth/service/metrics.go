package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	NoncesIssued prometheus.Counter
	LoginsTotal  *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		NoncesIssued: factory.NewCounter(prometheus.CounterOpts{
			Name: "vaultid_auth_nonces_issued_total",
			Help: "Challenge nonces issued",
		}),
		LoginsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vaultid_auth_logins_total",
			Help: "Signature verifications by outcome",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) incNonce() {
	if m == nil {
		return
	}
	m.NoncesIssued.Inc()
}

func (m *Metrics) incLogin(outcome string) {
	if m == nil {
		return
	}
	m.LoginsTotal.WithLabelValues(outcome).Inc()
}
