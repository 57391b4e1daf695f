package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the bridge
type Metrics struct {
	// Dispatch metrics
	CallsTotal        *prometheus.CounterVec
	CallDuration      *prometheus.HistogramVec
	PermissionDenials *prometheus.CounterVec

	// Event metrics
	BroadcastsTotal *prometheus.CounterVec

	// Extension metrics
	ExtensionsLoaded prometheus.Gauge

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time
}

// NewMetrics creates a new metrics collector
func NewMetrics() *Metrics {
	return &Metrics{
		startTime: time.Now(),

		CallsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bridge_calls_total",
				Help: "Total number of dispatched extension API calls",
			},
			[]string{"namespace", "method", "status"},
		),
		CallDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bridge_call_duration_seconds",
				Help:    "Extension API call duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"namespace", "method"},
		),
		PermissionDenials: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bridge_permission_denials_total",
				Help: "Calls rejected by the permission gate",
			},
			[]string{"namespace"},
		),
		BroadcastsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bridge_event_broadcasts_total",
				Help: "Events broadcast into extension script contexts",
			},
			[]string{"event"},
		),
		ExtensionsLoaded: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "bridge_extensions_loaded",
				Help: "Currently loaded extensions",
			},
		),
		Uptime: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "bridge_uptime_seconds",
				Help: "Bridge uptime in seconds",
			},
		),
	}
}

// RecordCall records a completed dispatch
func (m *Metrics) RecordCall(namespace, method, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.CallsTotal.WithLabelValues(namespace, method, status).Inc()
	m.CallDuration.WithLabelValues(namespace, method).Observe(duration.Seconds())
}

// RecordDenial records a permission-gate rejection
func (m *Metrics) RecordDenial(namespace string) {
	if m == nil {
		return
	}
	m.PermissionDenials.WithLabelValues(namespace).Inc()
}

// RecordBroadcast records an outbound event broadcast
func (m *Metrics) RecordBroadcast(event string) {
	if m == nil {
		return
	}
	m.BroadcastsTotal.WithLabelValues(event).Inc()
}

// UpdateUptime refreshes the uptime gauge
func (m *Metrics) UpdateUptime() {
	if m == nil {
		return
	}
	m.Uptime.Set(time.Since(m.startTime).Seconds())
}
