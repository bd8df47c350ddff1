package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the storage bridge and its fallback.
type Metrics struct {
	BridgeCallDuration *prometheus.HistogramVec
	FallbackTotal      *prometheus.CounterVec
}

// New creates and registers storage metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		BridgeCallDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vaultid_storage_bridge_call_duration_seconds",
			Help:    "Duration of storage bridge subprocess invocations",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"command", "outcome"}),
		FallbackTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vaultid_storage_fallback_total",
			Help: "Operations served by the local fallback because the bridge was unavailable",
		}, []string{"op"}),
	}
}

func (m *Metrics) ObserveBridgeCall(command, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.BridgeCallDuration.WithLabelValues(command, outcome).Observe(d.Seconds())
}

func (m *Metrics) IncFallback(op string) {
	if m == nil {
		return
	}
	m.FallbackTotal.WithLabelValues(op).Inc()
}
