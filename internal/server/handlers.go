package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/campushq/steward/internal/command"
	"github.com/campushq/steward/internal/engine"
	"github.com/campushq/steward/internal/mergectx"
	"github.com/campushq/steward/internal/repository"
	"github.com/campushq/steward/internal/store"
)

// Engine is the orchestration surface the HTTP layer drives.
type Engine interface {
	SubmitCommand(ctx context.Context, req engine.Request) (command.Response, error)
	ResumeClarification(ctx context.Context, req engine.Request) (command.Response, error)
	Confirm(ctx context.Context, sessionID, token string) (command.Response, error)
	Cancel(ctx context.Context, sessionID, token string) (command.Response, error)
}

// Auditor is the read-only recorder surface used by the operator endpoints.
type Auditor interface {
	Get(ctx context.Context, id string) (command.Record, error)
	ListRecent(ctx context.Context, status command.Status, since time.Time, limit int) ([]command.Record, error)
}

type turnJSON struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type commandRequest struct {
	SessionID string     `json:"sessionId,omitempty"`
	Text      string     `json:"text"`
	Agent     string     `json:"agent,omitempty"`
	Overwrite bool       `json:"overwrite,omitempty"`
	History   []turnJSON `json:"history,omitempty"`

	// Role and SchoolIDs scope entity lookups. An empty SchoolIDs list
	// means unrestricted visibility.
	Role      string   `json:"role,omitempty"`
	SchoolIDs []string `json:"schoolIds,omitempty"`
}

func (cr commandRequest) toEngine() engine.Request {
	req := engine.Request{
		SessionID: cr.SessionID,
		Text:      cr.Text,
		AgentHint: command.Agent(cr.Agent),
		Overwrite: cr.Overwrite,
		Scope: repository.Scope{
			Role:         cr.Role,
			Unrestricted: len(cr.SchoolIDs) == 0,
			SchoolIDs:    cr.SchoolIDs,
		},
	}
	for _, t := range cr.History {
		req.History = append(req.History, mergectx.Turn{Role: t.Role, Content: t.Content})
	}
	return req
}

type tokenRequest struct {
	SessionID string `json:"sessionId,omitempty"`
	Token     string `json:"token"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var cr commandRequest
	if !s.readJSON(w, r, &cr) {
		return
	}
	if cr.Agent != "" && !command.Agent(cr.Agent).IsValid() {
		s.writeJSON(w, http.StatusBadRequest, errorBody{Message: "unknown agent: " + cr.Agent})
		return
	}

	resp, err := s.engine.SubmitCommand(r.Context(), cr.toEngine())
	s.respond(w, resp, err)
}

func (s *Server) handleClarify(w http.ResponseWriter, r *http.Request) {
	var cr commandRequest
	if !s.readJSON(w, r, &cr) {
		return
	}
	if cr.SessionID == "" {
		s.writeJSON(w, http.StatusBadRequest, errorBody{Message: "sessionId is required to resume a clarification"})
		return
	}

	resp, err := s.engine.ResumeClarification(r.Context(), cr.toEngine())
	s.respond(w, resp, err)
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	var tr tokenRequest
	if !s.readJSON(w, r, &tr) {
		return
	}
	resp, err := s.engine.Confirm(r.Context(), tr.SessionID, tr.Token)
	s.respond(w, resp, err)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	var tr tokenRequest
	if !s.readJSON(w, r, &tr) {
		return
	}
	resp, err := s.engine.Cancel(r.Context(), tr.SessionID, tr.Token)
	s.respond(w, resp, err)
}

// respond writes the engine response, mapping internal errors to a 500 with
// a generic body. Pipeline outcomes (clarification, confirmation, failed
// execution) are 200s; the response body carries the semantics.
func (s *Server) respond(w http.ResponseWriter, resp command.Response, err error) {
	if err != nil {
		s.log.Error("engine request failed", "error", err)
		s.writeJSON(w, http.StatusInternalServerError, errorBody{Message: "internal error"})
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// recordJSON is the audit view of a record. The confirmation token is
// deliberately absent.
type recordJSON struct {
	ID            string                 `json:"id"`
	SessionID     string                 `json:"sessionId"`
	Input         string                 `json:"input"`
	Agent         string                 `json:"agent,omitempty"`
	Intent        string                 `json:"intent,omitempty"`
	Status        string                 `json:"status"`
	Clarification *command.Clarification `json:"clarification,omitempty"`
	PendingAction string                 `json:"pendingAction,omitempty"`
	Result        *command.Envelope      `json:"result,omitempty"`
	Error         string                 `json:"error,omitempty"`
	CreatedAt     time.Time              `json:"createdAt"`
	CompletedAt   *time.Time             `json:"completedAt,omitempty"`
}

func toRecordJSON(rec command.Record) recordJSON {
	rj := recordJSON{
		ID:            rec.ID,
		SessionID:     rec.ConversationID,
		Input:         rec.RawInput,
		Agent:         string(rec.Agent),
		Intent:        rec.Intent,
		Status:        string(rec.Status),
		Clarification: rec.Clarification,
		PendingAction: rec.PendingAction,
		Result:        rec.Result,
		Error:         rec.ErrorMessage,
		CreatedAt:     rec.CreatedAt,
	}
	if !rec.CompletedAt.IsZero() {
		t := rec.CompletedAt
		rj.CompletedAt = &t
	}
	return rj
}

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	status := command.Status(q.Get("status"))
	if status != "" && !knownStatus(status) {
		s.writeJSON(w, http.StatusBadRequest, errorBody{Message: "unknown status: " + string(status)})
		return
	}

	var since time.Time
	if raw := q.Get("since"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			s.writeJSON(w, http.StatusBadRequest, errorBody{Message: "since must be RFC 3339"})
			return
		}
		since = t
	}

	limit := defaultListLimit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.writeJSON(w, http.StatusBadRequest, errorBody{Message: "limit must be a positive integer"})
			return
		}
		limit = min(n, maxListLimit)
	}

	recs, err := s.audit.ListRecent(r.Context(), status, since, limit)
	if err != nil {
		s.log.Error("list records", "error", err)
		s.writeJSON(w, http.StatusInternalServerError, errorBody{Message: "internal error"})
		return
	}

	out := make([]recordJSON, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toRecordJSON(rec))
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"commands": out})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rec, err := s.audit.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		s.writeJSON(w, http.StatusNotFound, errorBody{Message: "command not found"})
		return
	}
	if err != nil {
		s.log.Error("get record", "id", id, "error", err)
		s.writeJSON(w, http.StatusInternalServerError, errorBody{Message: "internal error"})
		return
	}
	s.writeJSON(w, http.StatusOK, toRecordJSON(rec))
}

func knownStatus(s command.Status) bool {
	switch s {
	case command.StatusPending, command.StatusAwaitingClarification,
		command.StatusProcessing, command.StatusPendingConfirmation,
		command.StatusSuccess, command.StatusFailed,
		command.StatusConfirmed, command.StatusCancelled:
		return true
	}
	return false
}
