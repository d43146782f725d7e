// Package server exposes the command engine over HTTP: a small JSON API for
// submitting commands and resuming clarifications/confirmations, an audit
// listing for operators, a websocket conversation endpoint, and the usual
// health and metrics routes.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/campushq/steward/internal/health"
	"github.com/campushq/steward/internal/observe"
)

// maxRequestBody caps JSON request bodies at 1MB.
const maxRequestBody = 1 << 20

// Server wires the engine and recorder into an HTTP handler tree.
type Server struct {
	engine Engine
	audit  Auditor
	health *health.Handler
	log    *slog.Logger
}

// New creates a Server. health may be nil, in which case the /healthz and
// /readyz routes report a bare liveness check.
func New(engine Engine, audit Auditor, h *health.Handler, log *slog.Logger) *Server {
	if h == nil {
		h = health.New()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Server{engine: engine, audit: audit, health: h, log: log}
}

// Router builds the chi handler tree. metrics may be nil.
func (s *Server) Router(metrics *observe.Metrics) chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(observe.Middleware(metrics))

	s.health.Register(r)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/commands", s.handleSubmit)
		r.Post("/commands/clarify", s.handleClarify)
		r.Post("/commands/confirm", s.handleConfirm)
		r.Post("/commands/cancel", s.handleCancel)
		r.Get("/commands", s.handleList)
		r.Get("/commands/{id}", s.handleGet)
		r.Get("/chat", s.handleChat)
	})

	return r
}

// writeJSON encodes v with the given status. Encoding failures are logged;
// by that point the status line is already on the wire.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("encode response", "error", err)
	}
}

// readJSON decodes the request body into v, rejecting unknown fields and
// oversized bodies. A false return means an error response was written.
func (s *Server) readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorBody{Message: "invalid request body: " + err.Error()})
		return false
	}
	return true
}

type errorBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
