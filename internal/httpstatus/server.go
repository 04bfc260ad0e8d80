// Package httpstatus serves the ambient operator-facing HTTP surface
// (spec SPEC_FULL.md §4 "domain stack"): a liveness probe and Prometheus
// metrics, mounted next to the framed collaboration transport.
package httpstatus

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the server's Prometheus instruments.
type Metrics struct {
	ConnectedClients    prometheus.Gauge
	ActiveSessions      prometheus.Gauge
	NotificationDrops   prometheus.Counter
	MessagesTotal       *prometheus.CounterVec
	ErrorThresholdTrips prometheus.Counter
}

// NewMetrics registers and returns the server's Prometheus instruments
// against a dedicated registry (never the global default, so repeated
// server construction in tests doesn't panic on duplicate registration).
func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		ConnectedClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mcp_collab_connected_clients",
			Help: "Number of currently connected clients.",
		}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mcp_collab_active_sessions",
			Help: "Number of currently active sessions.",
		}),
		NotificationDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mcp_collab_notification_drops_total",
			Help: "Notifications dropped because the client had no endpoint or the send failed.",
		}),
		MessagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mcp_collab_messages_total",
			Help: "Messages processed, by type.",
		}, []string{"type"}),
		ErrorThresholdTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mcp_collab_error_threshold_trips_total",
			Help: "Times a client crossed the protocol-error rate threshold.",
		}),
	}
	reg.MustRegister(m.ConnectedClients, m.ActiveSessions, m.NotificationDrops, m.MessagesTotal, m.ErrorThresholdTrips)
	return m
}

// StatusProvider is the minimal view the health endpoint needs.
type StatusProvider interface {
	IsShuttingDown() bool
}

// NewServer builds an *http.Server exposing `/healthz` and `/metrics` on
// addr, routed with chi (the teacher's HTTP router).
func NewServer(addr string, reg *prometheus.Registry, status StatusProvider) *http.Server {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if status != nil && status.IsShuttingDown() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "shutting_down"})
			return
		}
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	return &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// Shutdown gracefully stops srv, bounded by ctx.
func Shutdown(ctx context.Context, srv *http.Server) error {
	return srv.Shutdown(ctx)
}
