package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Issued   prometheus.Counter
	Redeemed *prometheus.CounterVec
	Revoked  prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Issued: factory.NewCounter(prometheus.CounterOpts{
			Name: "vaultid_share_capabilities_issued_total",
			Help: "Share capabilities issued",
		}),
		Redeemed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vaultid_share_redemptions_total",
			Help: "Share token redemptions by result",
		}, []string{"result"}),
		Revoked: factory.NewCounter(prometheus.CounterOpts{
			Name: "vaultid_share_capabilities_revoked_total",
			Help: "Share capabilities deactivated",
		}),
	}
}

func (m *Metrics) incIssued() {
	if m == nil {
		return
	}
	m.Issued.Inc()
}

func (m *Metrics) incRedeemed(result string) {
	if m == nil {
		return
	}
	m.Redeemed.WithLabelValues(result).Inc()
}

func (m *Metrics) incRevoked() {
	if m == nil {
		return
	}
	m.Revoked.Inc()
}
