// Package confirm implements the two-phase gate that keeps destructive
// actions from executing on first pass. A proposal parks the session record
// in pending_confirmation with a one-time token; the caller then confirms or
// cancels with that token. Consuming a token is a compare-and-swap in the
// recorder, so exactly one of a concurrent confirm/cancel pair wins.
package confirm

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/campushq/steward/internal/action"
	"github.com/campushq/steward/internal/command"
	"github.com/campushq/steward/internal/store"
)

// Gate mediates the pending_confirmation lifecycle of session records.
type Gate struct {
	recorder store.Recorder
	log      *slog.Logger
	now      func() time.Time
}

// NewGate returns a Gate persisting through recorder. A nil logger falls
// back to slog.Default.
func NewGate(recorder store.Recorder, log *slog.Logger) *Gate {
	if log == nil {
		log = slog.Default()
	}
	return &Gate{recorder: recorder, log: log, now: time.Now}
}

// Propose parks rec in pending_confirmation with a freshly minted token and
// persists it. It returns the updated record and the prompt to show the
// user. The action itself is not executed.
func (g *Gate) Propose(ctx context.Context, rec command.Record, def action.Definition) (command.Record, string, error) {
	token, err := mintToken()
	if err != nil {
		return command.Record{}, "", fmt.Errorf("confirm: mint token: %w", err)
	}

	rec.Status = command.StatusPendingConfirmation
	rec.ConfirmationToken = token
	rec.PendingAction = def.Name
	if err := g.recorder.Update(ctx, rec); err != nil {
		return command.Record{}, "", fmt.Errorf("confirm: persist proposal: %w", err)
	}

	g.log.InfoContext(ctx, "confirmation proposed",
		"record_id", rec.ID,
		"action", def.Name,
		"agent", string(rec.Agent))
	return rec, Summary(def, rec.Entities), nil
}

// Confirm consumes token and returns the record whose pending action should
// now execute. The record comes back in its pre-consumption shape (action
// name and parameters intact); in the store it has already moved to
// processing. A consumed, unknown, or stale token yields
// [store.ErrTokenInvalid].
func (g *Gate) Confirm(ctx context.Context, token string) (command.Record, error) {
	rec, err := g.recorder.ConsumeToken(ctx, token)
	if err != nil {
		return command.Record{}, err
	}
	g.log.InfoContext(ctx, "confirmation accepted", "record_id", rec.ID, "action", rec.PendingAction)
	return rec, nil
}

// Cancel consumes token and marks the record cancelled without executing
// anything. It returns the cancelled record.
func (g *Gate) Cancel(ctx context.Context, token string) (command.Record, error) {
	rec, err := g.recorder.ConsumeToken(ctx, token)
	if err != nil {
		return command.Record{}, err
	}

	rec.Status = command.StatusCancelled
	rec.ConfirmationToken = ""
	rec.CompletedAt = g.now().UTC()
	if err := g.recorder.Update(ctx, rec); err != nil {
		return command.Record{}, fmt.Errorf("confirm: persist cancellation: %w", err)
	}
	g.log.InfoContext(ctx, "confirmation cancelled", "record_id", rec.ID, "action", rec.PendingAction)
	return rec, nil
}

// Summary renders the human-readable proposal shown alongside the token.
func Summary(def action.Definition, params command.Params) string {
	var b strings.Builder
	verb := strings.ReplaceAll(def.Name, "_", " ")
	if def.Type == action.TypeDelete {
		verb = "permanently " + verb
	}
	fmt.Fprintf(&b, "This will %s", verb)

	details := describeParams(def, params)
	if details != "" {
		b.WriteString(" (")
		b.WriteString(details)
		b.WriteString(")")
	}
	b.WriteString(". Reply with the token to confirm, or cancel to abort.")
	return b.String()
}

func describeParams(def action.Definition, params command.Params) string {
	var parts []string
	for _, name := range append(append([]string(nil), def.Required...), def.Optional...) {
		v, ok := params[name]
		if !ok {
			continue
		}
		if t := v.Text(); t != "" {
			parts = append(parts, name+": "+t)
		}
	}
	return strings.Join(parts, ", ")
}

// mintToken produces a random 16-byte hex string using crypto/rand.
func mintToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
