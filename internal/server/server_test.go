package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/campushq/steward/internal/command"
	"github.com/campushq/steward/internal/engine"
	"github.com/campushq/steward/internal/server"
	"github.com/campushq/steward/internal/store"
)

// stubEngine records the last call and replies with canned responses.
type stubEngine struct {
	lastSubmit  engine.Request
	lastClarify engine.Request
	lastSession string
	lastToken   string

	submitResp  command.Response
	clarifyResp command.Response
	confirmResp command.Response
	cancelResp  command.Response
	err         error
}

func (s *stubEngine) SubmitCommand(_ context.Context, req engine.Request) (command.Response, error) {
	s.lastSubmit = req
	return s.submitResp, s.err
}

func (s *stubEngine) ResumeClarification(_ context.Context, req engine.Request) (command.Response, error) {
	s.lastClarify = req
	return s.clarifyResp, s.err
}

func (s *stubEngine) Confirm(_ context.Context, sessionID, token string) (command.Response, error) {
	s.lastSession, s.lastToken = sessionID, token
	return s.confirmResp, s.err
}

func (s *stubEngine) Cancel(_ context.Context, sessionID, token string) (command.Response, error) {
	s.lastSession, s.lastToken = sessionID, token
	return s.cancelResp, s.err
}

type stubAudit struct {
	records []command.Record

	lastStatus command.Status
	lastSince  time.Time
	lastLimit  int
}

func (a *stubAudit) Get(_ context.Context, id string) (command.Record, error) {
	for _, rec := range a.records {
		if rec.ID == id {
			return rec, nil
		}
	}
	return command.Record{}, store.ErrNotFound
}

func (a *stubAudit) ListRecent(_ context.Context, status command.Status, since time.Time, limit int) ([]command.Record, error) {
	a.lastStatus, a.lastSince, a.lastLimit = status, since, limit
	return a.records, nil
}

func newTestServer(t *testing.T, eng *stubEngine, audit *stubAudit) *httptest.Server {
	t.Helper()
	if eng == nil {
		eng = &stubEngine{}
	}
	if audit == nil {
		audit = &stubAudit{}
	}
	srv := server.New(eng, audit, nil, nil)
	ts := httptest.NewServer(srv.Router(nil))
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return v
}

func TestSubmitCommand(t *testing.T) {
	eng := &stubEngine{submitResp: command.Response{
		Success:   true,
		Message:   "Fee record created",
		SessionID: "sess-1",
	}}
	ts := newTestServer(t, eng, nil)

	resp := postJSON(t, ts.URL+"/v1/commands",
		`{"text":"create fee for greenwood for Jan 2026","agent":"fee","history":[{"role":"user","content":"hello"}]}`)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body := decodeBody[command.Response](t, resp)
	if !body.Success || body.SessionID != "sess-1" {
		t.Errorf("body = %+v", body)
	}

	if eng.lastSubmit.Text != "create fee for greenwood for Jan 2026" {
		t.Errorf("engine text = %q", eng.lastSubmit.Text)
	}
	if eng.lastSubmit.AgentHint != command.AgentFee {
		t.Errorf("agent hint = %q, want fee", eng.lastSubmit.AgentHint)
	}
	if len(eng.lastSubmit.History) != 1 || eng.lastSubmit.History[0].Content != "hello" {
		t.Errorf("history = %+v", eng.lastSubmit.History)
	}
	if !eng.lastSubmit.Scope.Unrestricted {
		t.Error("empty schoolIds should yield an unrestricted scope")
	}
}

func TestSubmitCommand_ScopedRequest(t *testing.T) {
	eng := &stubEngine{}
	ts := newTestServer(t, eng, nil)

	postJSON(t, ts.URL+"/v1/commands",
		`{"text":"show fees","role":"principal","schoolIds":["sch-1","sch-2"]}`)

	scope := eng.lastSubmit.Scope
	if scope.Unrestricted {
		t.Error("scope should be restricted when schoolIds given")
	}
	if scope.Role != "principal" || len(scope.SchoolIDs) != 2 {
		t.Errorf("scope = %+v", scope)
	}
}

func TestSubmitCommand_RejectsBadInput(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"text":`},
		{"unknown field", `{"text":"x","bogus":true}`},
		{"unknown agent", `{"text":"x","agent":"astronomy"}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := postJSON(t, ts.URL+"/v1/commands", tc.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
		})
	}
}

func TestClarifyRequiresSession(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	resp := postJSON(t, ts.URL+"/v1/commands/clarify", `{"text":"2"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestClarify(t *testing.T) {
	eng := &stubEngine{clarifyResp: command.Response{Success: true, Message: "done"}}
	ts := newTestServer(t, eng, nil)

	resp := postJSON(t, ts.URL+"/v1/commands/clarify", `{"sessionId":"sess-9","text":"2"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if eng.lastClarify.SessionID != "sess-9" || eng.lastClarify.Text != "2" {
		t.Errorf("clarify request = %+v", eng.lastClarify)
	}
}

func TestConfirmAndCancel(t *testing.T) {
	eng := &stubEngine{
		confirmResp: command.Response{Success: true, Message: "executed"},
		cancelResp:  command.Response{Success: true, Message: "cancelled"},
	}
	ts := newTestServer(t, eng, nil)

	resp := postJSON(t, ts.URL+"/v1/commands/confirm", `{"sessionId":"s","token":"abc123"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("confirm status = %d", resp.StatusCode)
	}
	if eng.lastToken != "abc123" {
		t.Errorf("token = %q", eng.lastToken)
	}

	resp = postJSON(t, ts.URL+"/v1/commands/cancel", `{"sessionId":"s","token":"def456"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("cancel status = %d", resp.StatusCode)
	}
	if eng.lastToken != "def456" {
		t.Errorf("token = %q", eng.lastToken)
	}
}

func TestEngineErrorYields500(t *testing.T) {
	eng := &stubEngine{err: context.DeadlineExceeded}
	ts := newTestServer(t, eng, nil)

	resp := postJSON(t, ts.URL+"/v1/commands", `{"text":"anything"}`)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", resp.StatusCode)
	}
}

func TestListCommands(t *testing.T) {
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	audit := &stubAudit{records: []command.Record{
		{
			ID:             "cmd-1",
			ConversationID: "sess-1",
			RawInput:       "delete fee 42",
			Agent:          command.AgentFee,
			Status:         command.StatusConfirmed,
			// Token must never appear in audit output.
			ConfirmationToken: "secret-token",
			CreatedAt:         now,
			CompletedAt:       now.Add(time.Minute),
		},
	}}
	ts := newTestServer(t, nil, audit)

	resp, err := http.Get(ts.URL + "/v1/commands?status=confirmed&limit=10")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if audit.lastStatus != command.StatusConfirmed || audit.lastLimit != 10 {
		t.Errorf("query passthrough: status=%q limit=%d", audit.lastStatus, audit.lastLimit)
	}

	var body struct {
		Commands []map[string]any `json:"commands"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if len(body.Commands) != 1 {
		t.Fatalf("got %d commands", len(body.Commands))
	}
	rec := body.Commands[0]
	if rec["id"] != "cmd-1" || rec["status"] != "confirmed" {
		t.Errorf("record = %v", rec)
	}
	for k := range rec {
		if strings.Contains(strings.ToLower(k), "token") {
			t.Errorf("audit record leaks field %q", k)
		}
	}
}

func TestListCommands_RejectsBadQuery(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	for _, q := range []string{"?status=bogus", "?since=yesterday", "?limit=zero", "?limit=-1"} {
		resp, err := http.Get(ts.URL + "/v1/commands" + q)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", q, resp.StatusCode)
		}
	}
}

func TestGetCommand(t *testing.T) {
	audit := &stubAudit{records: []command.Record{{
		ID:        "cmd-7",
		RawInput:  "mark attendance",
		Status:    command.StatusSuccess,
		CreatedAt: time.Now(),
	}}}
	ts := newTestServer(t, nil, audit)

	resp, err := http.Get(ts.URL + "/v1/commands/cmd-7")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	resp2, err := http.Get(ts.URL + "/v1/commands/nope")
	if err != nil {
		t.Fatal(err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusNotFound {
		t.Errorf("missing record status = %d, want 404", resp2.StatusCode)
	}
}

func TestHealthRoutes(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, resp.StatusCode)
		}
	}
}
