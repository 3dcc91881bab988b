package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the process registry and every instrument the app exports.
type Metrics struct {
	registry *prometheus.Registry

	HTTPInFlight prometheus.Gauge
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	VerificationsDecided *prometheus.CounterVec
	SyncPulls            prometheus.Counter
	SyncPushApplied      prometheus.Counter
	SyncPushRejected     prometheus.Counter
	ScannerRequests      prometheus.Counter
	PushNotifications    prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		HTTPInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Requests currently being served.",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Requests served, by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Request latency, by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		VerificationsDecided: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "age_verifications_decided_total",
			Help: "Age verification decisions processed, by outcome.",
		}, []string{"status"}),
		SyncPulls: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sync_pulls_total",
			Help: "Sync pull requests served.",
		}),
		SyncPushApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sync_push_records_applied_total",
			Help: "Pushed sync records applied.",
		}),
		SyncPushRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sync_push_records_rejected_total",
			Help: "Pushed sync records dropped by conflict resolution.",
		}),
		ScannerRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scanner_requests_total",
			Help: "Label scanner requests served.",
		}),
		PushNotifications: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "push_notifications_sent_total",
			Help: "Mobile push notifications published.",
		}),
	}
	reg.MustRegister(
		m.HTTPInFlight, m.HTTPRequests, m.HTTPDuration,
		m.VerificationsDecided, m.SyncPulls, m.SyncPushApplied,
		m.SyncPushRejected, m.ScannerRequests, m.PushNotifications,
	)
	return m
}

// Handler serves the registry for Prometheus scrapes.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
