// Package metrics provides Prometheus instrumentation for the proxy.
//
// Every Metrics value owns its registry so several proxies can run in one
// process, as they do in tests.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name.
const Namespace = "openelp"

// Rejection reasons recorded by SessionsRejected.
const (
	ReasonBusy        = "busy"
	ReasonBadPassword = "bad_password"
	ReasonDenied      = "denied"
	ReasonTimeout     = "timeout"
	ReasonProtocol    = "protocol"
	ReasonBind        = "bind"
)

// Relay directions and kinds recorded by RelayedBytes.
const (
	DirectionToClient   = "to_client"
	DirectionFromClient = "from_client"

	KindTCP     = "tcp"
	KindData    = "data"
	KindControl = "control"
)

// Metrics holds all Prometheus metrics for the proxy.
type Metrics struct {
	registry *prometheus.Registry

	SessionsAccepted prometheus.Counter
	SessionsRejected *prometheus.CounterVec
	ActiveSessions   prometheus.Gauge
	SessionDuration  prometheus.Histogram
	RelayedBytes     *prometheus.CounterVec
	TCPConnects      *prometheus.CounterVec
}

// New creates a Metrics instance registered on a fresh registry together
// with the Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		SessionsAccepted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "sessions_accepted_total",
			Help:      "Total number of client logins accepted",
		}),
		SessionsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "sessions_rejected_total",
			Help:      "Total number of client connections rejected",
		}, []string{"reason"}),
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "active_sessions",
			Help:      "Number of client slots in use",
		}),
		SessionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "session_duration_seconds",
			Help:      "Client session duration in seconds",
			Buckets:   []float64{1, 10, 60, 300, 900, 3600, 14400, 86400},
		}),
		RelayedBytes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "relayed_bytes_total",
			Help:      "Payload bytes relayed between clients and EchoLink peers",
		}, []string{"direction", "kind"}),
		TCPConnects: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "tcp_connects_total",
			Help:      "Outbound TCP connections requested by clients",
		}, []string{"status"}),
	}
}

// Registry returns the registry backing m.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler exposing m in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Rejected records a rejected client connection.
func (m *Metrics) Rejected(reason string) {
	m.SessionsRejected.WithLabelValues(reason).Inc()
}

// Relayed records n payload bytes moved in direction for kind.
func (m *Metrics) Relayed(direction, kind string, n int) {
	if n <= 0 {
		return
	}
	m.RelayedBytes.WithLabelValues(direction, kind).Add(float64(n))
}
