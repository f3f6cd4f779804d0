package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics aggregates the client-side counters. A single instance is shared
// by the API client and the socket layer.
type Metrics struct {
	registry *prometheus.Registry

	APIRequests        *prometheus.CounterVec
	SocketEvents       *prometheus.CounterVec
	SocketDecodeErrors prometheus.Counter
	SessionsStarted    prometheus.Counter
}

// New builds a Metrics instance backed by its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		APIRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "captrivia",
			Subsystem: "client",
			Name:      "api_requests_total",
			Help:      "API requests issued, by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		SocketEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "captrivia",
			Subsystem: "client",
			Name:      "socket_events_total",
			Help:      "Socket events dispatched, by event type.",
		}, []string{"type"}),
		SocketDecodeErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "captrivia",
			Subsystem: "client",
			Name:      "socket_decode_errors_total",
			Help:      "Inbound socket frames that failed to decode.",
		}),
		SessionsStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "captrivia",
			Subsystem: "client",
			Name:      "sessions_started_total",
			Help:      "Game sessions started or joined by this client.",
		}),
	}
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
