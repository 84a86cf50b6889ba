// Package api serves the read-only HTTP surface of the serve command: health checks,
// Prometheus metrics, prefix health views and alert listings.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/younsl/bucketpulse/pkg/health"
	"github.com/younsl/bucketpulse/pkg/store"
)

// Handler holds the collaborators behind the HTTP routes
type Handler struct {
	health  *health.Service
	alerts  store.AlertStore
	metrics http.Handler
	ready   func() bool
	logger  *slog.Logger
	now     func() time.Time
}

// Options configures a Handler. Metrics, Ready, Logger and Now are optional.
type Options struct {
	Health  *health.Service
	Alerts  store.AlertStore
	Metrics http.Handler
	Ready   func() bool
	Logger  *slog.Logger
	Now     func() time.Time
}

// NewHandler constructs a Handler
func NewHandler(opts Options) *Handler {
	h := &Handler{
		health:  opts.Health,
		alerts:  opts.Alerts,
		metrics: opts.Metrics,
		ready:   opts.Ready,
		logger:  opts.Logger,
		now:     opts.Now,
	}
	if h.metrics == nil {
		h.metrics = http.NotFoundHandler()
	}
	if h.ready == nil {
		h.ready = func() bool { return true }
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	if h.now == nil {
		h.now = time.Now
	}
	return h
}

// NewRouter registers all routes
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)

	r.Get("/healthz", h.healthz)
	r.Get("/readyz", h.readyz)
	r.Method(http.MethodGet, "/metrics", h.metrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/buckets/{bucket}/prefixes", h.bucketPrefixes)
		r.Get("/buckets/{bucket}/health", h.prefixHealth)
		r.Get("/alerts", h.listAlerts)
		r.Post("/alerts/{alert_id}/resolve", h.resolveAlert)
	})
	return r
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.logger.DebugContext(r.Context(), "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
