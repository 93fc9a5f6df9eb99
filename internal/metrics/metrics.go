// Package metrics defines the proxy's Prometheus instruments.
// Each Metrics owns its registry so tests and multiple instances never
// collide on the global default registerer.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pinfo"

// Drop reasons for MessagesDropped
const (
	ReasonMalformed     = "malformed"
	ReasonTooLarge      = "too_large"
	ReasonInvalidPlayer = "invalid_player"
	ReasonStoreError    = "store_error"
)

// Login results for LoginAttempts
const (
	LoginSuccess = "success"
	LoginInvalid = "invalid"
	LoginLocked  = "locked"
)

// Metrics bundles every instrument the proxy exports
type Metrics struct {
	registry *prometheus.Registry

	// Transport
	MessagesReceived *prometheus.CounterVec
	MessagesDropped  *prometheus.CounterVec
	MessagesSent     *prometheus.CounterVec
	RefreshRequests  prometheus.Counter

	// Player data
	StaleRemoved      prometheus.Counter
	ReconcileRemovals prometheus.Counter
	StoredRecords     *prometheus.GaugeVec

	// Auth and sessions
	LoginAttempts   *prometheus.CounterVec
	ActiveSessions  prometheus.Gauge
	SessionsExpired prometheus.Counter

	// HTTP
	RequestDuration *prometheus.HistogramVec
	RequestInflight prometheus.Gauge
}

// New creates the instruments and registers them in a fresh registry
// together with the Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		MessagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wire_messages_received_total",
			Help:      "Envelopes received from backends, by message type.",
		}, []string{"type"}),
		MessagesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wire_messages_dropped_total",
			Help:      "Envelopes or updates dropped, by reason.",
		}, []string{"reason"}),
		MessagesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wire_messages_sent_total",
			Help:      "Envelopes sent, by message type.",
		}, []string{"type"}),
		RefreshRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_rounds_total",
			Help:      "Refresh rounds broadcast to backends.",
		}),
		StaleRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_records_removed_total",
			Help:      "Player records removed by the staleness sweep.",
		}),
		ReconcileRemovals: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_removals_total",
			Help:      "Player records removed from other backends by reconciliation.",
		}),
		StoredRecords: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stored_records",
			Help:      "Player records held per backend, as of the last count.",
		}, []string{"server"}),
		LoginAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_attempts_total",
			Help:      "Login attempts, by result.",
		}, []string{"result"}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Sessions currently held.",
		}),
		SessionsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_expired_total",
			Help:      "Sessions evicted for inactivity.",
		}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"method", "route", "status"}),
		RequestInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_inflight",
			Help:      "HTTP requests currently being served.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.MessagesReceived,
		m.MessagesDropped,
		m.MessagesSent,
		m.RefreshRequests,
		m.StaleRemoved,
		m.ReconcileRemovals,
		m.StoredRecords,
		m.LoginAttempts,
		m.ActiveSessions,
		m.SessionsExpired,
		m.RequestDuration,
		m.RequestInflight,
	)
	return m
}

// Registry exposes the underlying registry for gathering in tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
