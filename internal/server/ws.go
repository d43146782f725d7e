package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/coder/websocket"

	"github.com/campushq/steward/internal/command"
	"github.com/campushq/steward/internal/mergectx"
)

const (
	wsReadLimit = 1 << 16

	// historyMaxTurns and historyTokenBudget bound the conversation window
	// carried into the context merger and gateway prompt. Tokens are
	// estimated as chars/4.
	historyMaxTurns    = 12
	historyTokenBudget = 2000
)

// chatInbound is one frame from the websocket client.
type chatInbound struct {
	// Type selects the engine entry point: "command" (the default when
	// empty), "confirm" or "cancel".
	Type string `json:"type,omitempty"`

	Text      string `json:"text,omitempty"`
	Token     string `json:"token,omitempty"`
	Agent     string `json:"agent,omitempty"`
	Overwrite bool   `json:"overwrite,omitempty"`

	Role      string   `json:"role,omitempty"`
	SchoolIDs []string `json:"schoolIds,omitempty"`
}

// handleChat runs an interactive conversation over a websocket. Each text
// frame is a full engine turn; history accumulates server side so the
// client never needs to resend context.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.log.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "conversation ended")
	conn.SetReadLimit(wsReadLimit)

	ctx := r.Context()
	var (
		sessionID string
		history   []mergectx.Turn
	)

	for {
		typ, payload, err := conn.Read(ctx)
		if err != nil {
			return
		}
		if typ != websocket.MessageText {
			continue
		}

		var in chatInbound
		if err := json.Unmarshal(payload, &in); err != nil {
			s.writeFrame(ctx, conn, errorBody{Message: "invalid message: " + err.Error()})
			continue
		}

		var resp command.Response
		switch in.Type {
		case "", "command":
			cr := commandRequest{
				SessionID: sessionID,
				Text:      in.Text,
				Agent:     in.Agent,
				Overwrite: in.Overwrite,
				Role:      in.Role,
				SchoolIDs: in.SchoolIDs,
			}
			if in.Agent != "" && !command.Agent(in.Agent).IsValid() {
				s.writeFrame(ctx, conn, errorBody{Message: "unknown agent: " + in.Agent})
				continue
			}
			req := cr.toEngine()
			req.History = history
			resp, err = s.engine.SubmitCommand(ctx, req)
		case "confirm":
			resp, err = s.engine.Confirm(ctx, sessionID, in.Token)
		case "cancel":
			resp, err = s.engine.Cancel(ctx, sessionID, in.Token)
		default:
			s.writeFrame(ctx, conn, errorBody{Message: "unknown message type: " + in.Type})
			continue
		}
		if err != nil {
			s.log.Error("chat turn failed", "session_id", sessionID, "error", err)
			s.writeFrame(ctx, conn, errorBody{Message: "internal error"})
			continue
		}

		if resp.SessionID != "" {
			sessionID = resp.SessionID
		}
		if in.Text != "" {
			history = append(history,
				mergectx.Turn{Role: "user", Content: in.Text},
				mergectx.Turn{Role: "assistant", Content: resp.Message},
			)
			history = windowTurns(history)
		}

		if !s.writeFrame(ctx, conn, resp) {
			return
		}
	}
}

func (s *Server) writeFrame(ctx context.Context, conn *websocket.Conn, v any) bool {
	payload, err := json.Marshal(v)
	if err != nil {
		s.log.Error("encode chat frame", "error", err)
		return false
	}
	if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
		return false
	}
	return true
}

// windowTurns drops the oldest turns until the window fits both the turn
// cap and the estimated token budget.
func windowTurns(history []mergectx.Turn) []mergectx.Turn {
	for len(history) > historyMaxTurns || estimateTokens(history) > historyTokenBudget {
		if len(history) == 0 {
			break
		}
		history = history[1:]
	}
	return history
}

// estimateTokens approximates the window's token cost as chars/4.
func estimateTokens(history []mergectx.Turn) int {
	total := 0
	for _, t := range history {
		total += len(t.Content)
	}
	return total / 4
}
