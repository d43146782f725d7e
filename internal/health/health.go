// Package health serves liveness and readiness probes.
//
//   - /healthz answers 200 whenever the process can serve HTTP.
//   - /readyz answers 200 only while every registered [Checker] passes,
//     503 otherwise.
//
// Both endpoints reply with a JSON object carrying a "status" field ("ok"
// or "fail"); /readyz adds a "checks" map with one entry per checker.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// checkTimeout bounds a single readiness check.
const checkTimeout = 5 * time.Second

// Checker is a named health check. Check returns nil while the dependency
// is healthy and must respect context cancellation.
type Checker struct {
	// Name keys this check in the JSON response, e.g. "store".
	Name string

	Check func(ctx context.Context) error
}

// Pinger is the subset of a storage backend needed for readiness probing.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StoreChecker probes the command record store. Backends without a real
// connection, like the in-memory store, pass nil and always report healthy.
func StoreChecker(p Pinger) Checker {
	return Checker{
		Name: "store",
		Check: func(ctx context.Context) error {
			if p == nil {
				return nil
			}
			return p.Ping(ctx)
		},
	}
}

// ProviderChecker fails readiness when no language model providers are
// configured. It does not probe the providers themselves; a dead individual
// backend is the gateway's concern and is handled by failover.
func ProviderChecker(names []string) Checker {
	return Checker{
		Name: "providers",
		Check: func(_ context.Context) error {
			if len(names) == 0 {
				return errors.New("no providers configured")
			}
			return nil
		},
	}
}

// report is the JSON body both endpoints respond with.
type report struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Handler serves the /healthz and /readyz endpoints. The checker list is
// fixed at construction, so a Handler is safe for concurrent use.
type Handler struct {
	checkers []Checker
}

// New creates a [Handler] that evaluates the given checkers, in order, on
// each /readyz request.
func New(checkers ...Checker) *Handler {
	c := make([]Checker, len(checkers))
	copy(c, checkers)
	return &Handler{checkers: c}
}

// Healthz is the liveness probe. It always answers 200.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	respond(w, http.StatusOK, report{Status: "ok"})
}

// Readyz is the readiness probe. It runs every checker under a
// [checkTimeout] deadline derived from the request context and answers 503
// if any of them fail.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	rep, healthy := h.evaluate(r.Context())
	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	respond(w, status, rep)
}

func (h *Handler) evaluate(ctx context.Context) (report, bool) {
	rep := report{
		Status: "ok",
		Checks: make(map[string]string, len(h.checkers)),
	}
	healthy := true

	for _, c := range h.checkers {
		cctx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := c.Check(cctx)
		cancel()

		if err != nil {
			rep.Checks[c.Name] = "fail: " + err.Error()
			rep.Status = "fail"
			healthy = false
			continue
		}
		rep.Checks[c.Name] = "ok"
	}
	return rep, healthy
}

// Register adds the /healthz and /readyz routes to r.
func (h *Handler) Register(r chi.Router) {
	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", h.Readyz)
}

func respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}
