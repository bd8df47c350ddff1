package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	PayloadsStored  prometheus.Counter
	DecryptFailures prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		PayloadsStored: factory.NewCounter(prometheus.CounterOpts{
			Name: "vaultid_vault_payloads_stored_total",
			Help: "Verification payloads encrypted and written to storage",
		}),
		DecryptFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "vaultid_vault_decrypt_failures_total",
			Help: "Stored payloads that failed authentication on read",
		}),
	}
}

func (m *Metrics) incStored() {
	if m == nil {
		return
	}
	m.PayloadsStored.Inc()
}

func (m *Metrics) incDecryptFailure() {
	if m == nil {
		return
	}
	m.DecryptFailures.Inc()
}
