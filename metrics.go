package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"i4.energy/across/wifigw/wifi"
)

// Metrics holds the gateway's Prometheus instruments. They register on
// the Registerer passed to NewMetrics, so tests can use a private
// registry.
type Metrics struct {
	HTTPRequests *prometheus.CounterVec
	StateChanges *prometheus.CounterVec
	LinkState    prometheus.Gauge
	Reconnects   prometheus.Counter
}

// NewMetrics creates and registers the gateway's instruments.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wifigw_http_requests_total",
			Help: "HTTP requests served, by method, path and status code.",
		}, []string{"method", "path", "code"}),
		StateChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wifigw_state_changes_total",
			Help: "Device lifecycle transitions, by resulting state.",
		}, []string{"state"}),
		LinkState: factory.NewGauge(prometheus.GaugeOpts{
			Name: "wifigw_link_state",
			Help: "Current device lifecycle state as its numeric value.",
		}),
		Reconnects: factory.NewCounter(prometheus.CounterOpts{
			Name: "wifigw_reconnects_total",
			Help: "Times the supervisor rejoined after the module lost the network.",
		}),
	}
}

// ObserveState records a device lifecycle transition.
func (m *Metrics) ObserveState(s wifi.State) {
	m.StateChanges.WithLabelValues(s.String()).Inc()
	m.LinkState.Set(float64(s))
}
