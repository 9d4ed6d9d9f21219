package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "fxwidget"

// Metrics holds the domain collectors. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	oracleRequests *prometheus.CounterVec
	oracleLatency  *prometheus.HistogramVec
	staleDiscards  *prometheus.CounterVec
	activeSessions prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		oracleRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oracle_requests_total",
			Help:      "Rate oracle requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		oracleLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "oracle_request_duration_seconds",
			Help:      "Rate oracle request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		staleDiscards: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_responses_discarded_total",
			Help:      "Oracle responses dropped because newer input superseded them.",
		}, []string{"pipeline"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "widget_sessions_active",
			Help:      "Open converter widget sessions.",
		}),
	}
	reg.MustRegister(m.oracleRequests, m.oracleLatency, m.staleDiscards, m.activeSessions)
	return m
}

func (m *Metrics) ObserveOracle(endpoint, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.oracleRequests.WithLabelValues(endpoint, outcome).Inc()
	m.oracleLatency.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

func (m *Metrics) StaleDiscarded(pipeline string) {
	if m == nil {
		return
	}
	m.staleDiscards.WithLabelValues(pipeline).Inc()
}

func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.activeSessions.Inc()
}

func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.activeSessions.Dec()
}
