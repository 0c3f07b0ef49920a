// Package http exposes the channels of a process embedding generated controllers.
package http

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/artpar/ctrlgen/pkg/pubsub"
)

// ErrorResponse is the body of a failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ChannelsResponse is the body of GET /channels.
type ChannelsResponse struct {
	Channels []pubsub.ChannelInfo `json:"channels"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status   string `json:"status"`
	Channels int    `json:"channels"`
}

// Handler serves the channel registry.
type Handler struct {
	registry *pubsub.Registry
	logger   zerolog.Logger
}

// NewHandler creates a handler over reg.
func NewHandler(reg *pubsub.Registry, logger zerolog.Logger) *Handler {
	return &Handler{registry: reg, logger: logger}
}

// Channels lists every channel of the registry.
func (h *Handler) Channels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ChannelsResponse{Channels: h.registry.Channels()})
}

// Channel describes a single channel.
func (h *Handler) Channel(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	info, ok := h.registry.Lookup(name)
	if !ok {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "channel " + name + " not found"})
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Channels: h.registry.Len()})
}

// NewRouter mounts the handler and, when gatherer is set, the Prometheus endpoint.
func NewRouter(h *Handler, gatherer prometheus.Gatherer, logger zerolog.Logger) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(NewLoggingMiddleware(logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", h.Health)
	r.Get("/channels", h.Channels)
	r.Get("/channels/{name}", h.Channel)

	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	return r
}

// NewLoggingMiddleware logs every request except health checks and metrics scrapes.
func NewLoggingMiddleware(logger zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			if strings.HasPrefix(r.URL.Path, "/health") || r.URL.Path == "/metrics" {
				return
			}

			logger.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("http request")
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
