package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/campushq/steward/internal/command"
	"github.com/campushq/steward/internal/extract"
	"github.com/campushq/steward/internal/store"
)

// ResumeClarification applies the user's reply to the newest pending
// clarification in the conversation. A purely numeric reply is a 1-based
// index into the clarification's option list; anything else is treated as a
// fresh value for the clarified field.
func (e *Engine) ResumeClarification(ctx context.Context, req Request) (command.Response, error) {
	rec, err := e.recorder.LatestAwaitingClarification(ctx, req.SessionID)
	if errors.Is(err, store.ErrNotFound) {
		return command.Response{
			Message:   "There is nothing waiting for an answer in this conversation.",
			SessionID: req.SessionID,
		}, nil
	}
	if err != nil {
		return command.Response{}, fmt.Errorf("engine: load pending clarification: %w", err)
	}
	return e.applyClarification(ctx, req, rec, strings.TrimSpace(req.Text))
}

// tryNumericSelection is the fast-path shortcut for SubmitCommand: if the
// conversation has a pending clarification, a bare number answers it instead
// of starting a new command.
func (e *Engine) tryNumericSelection(ctx context.Context, req Request, text string) (command.Response, bool, error) {
	rec, err := e.recorder.LatestAwaitingClarification(ctx, req.SessionID)
	if errors.Is(err, store.ErrNotFound) {
		return command.Response{}, false, nil
	}
	if err != nil {
		return command.Response{}, false, fmt.Errorf("engine: load pending clarification: %w", err)
	}
	resp, err := e.applyClarification(ctx, req, rec, text)
	return resp, true, err
}

// applyClarification fills the clarified field on rec and re-runs the tail
// of the pipeline. Prior parameters are preserved; only the clarified field
// changes.
func (e *Engine) applyClarification(ctx context.Context, req Request, rec command.Record, reply string) (command.Response, error) {
	clar := rec.Clarification
	if clar == nil {
		// Recorded state violates the awaiting-clarification invariant;
		// treat as unanswerable rather than guessing.
		return e.fail(ctx, req, rec, "the pending question can no longer be answered"), nil
	}

	params := rec.Entities.Clone()

	if isNumeric(reply) && len(clar.Options) > 0 {
		idx, err := strconv.Atoi(reply)
		if err != nil || idx < 1 || idx > len(clar.Options) {
			return command.Response{
				NeedsClarification: true,
				Clarification:      clar,
				Message:            fmt.Sprintf("Please reply with a number between 1 and %d.", len(clar.Options)),
				SessionID:          req.SessionID,
			}, nil
		}
		opt := clar.Options[idx-1]
		params[clar.Field+"_id"] = command.String(opt.ID)
		delete(params, clar.Field)
	} else {
		// Free-text answer: run the intent's extractors over the reply so
		// dates, amounts, and the like normalize the same way they would
		// in a fresh command, then fall back to the literal text.
		extracted := extract.Extract(reply, rec.Intent)
		if v, ok := extracted[clar.Field]; ok {
			params[clar.Field] = v
		} else if reply != "" {
			params[clar.Field] = command.String(reply)
		}
		for k, v := range extracted {
			if _, exists := params[k]; !exists {
				params[k] = v
			}
		}
	}

	rec.Clarification = nil
	rec.Status = command.StatusProcessing
	rec.Entities = params.Clone()
	e.persist(ctx, rec)

	return e.finish(ctx, req, rec, params)
}

// Confirm consumes a confirmation token and executes the pending action.
func (e *Engine) Confirm(ctx context.Context, sessionID, token string) (command.Response, error) {
	rec, err := e.gate.Confirm(ctx, token)
	if errors.Is(err, store.ErrTokenInvalid) {
		return command.Response{
			Message:   store.ErrTokenInvalid.Error(),
			SessionID: sessionID,
		}, nil
	}
	if err != nil {
		return command.Response{}, fmt.Errorf("engine: confirm: %w", err)
	}

	def, ok := e.registry.Lookup(rec.Agent, rec.PendingAction)
	if !ok {
		req := Request{SessionID: sessionID}
		return e.fail(ctx, req, withoutToken(rec), fmt.Sprintf("action %q is not supported", rec.PendingAction)), nil
	}

	env, _ := e.dispatcher.Dispatch(ctx, rec.Agent, def, rec.Entities)
	rec = withoutToken(rec)
	if env.Success {
		rec.Status = command.StatusConfirmed
	} else {
		rec.Status = command.StatusFailed
		rec.ErrorMessage = env.Error
	}
	rec.Result = &env
	rec.CompletedAt = e.now().UTC()
	e.persist(ctx, rec)
	e.metrics.CommandFinished(ctx, string(rec.Agent), string(rec.Status))

	return command.Response{
		Success:   env.Success,
		Action:    def.Name,
		Message:   env.Message,
		Data:      env.Data,
		SessionID: sessionID,
	}, nil
}

// Cancel consumes a confirmation token without executing anything.
func (e *Engine) Cancel(ctx context.Context, sessionID, token string) (command.Response, error) {
	rec, err := e.gate.Cancel(ctx, token)
	if errors.Is(err, store.ErrTokenInvalid) {
		return command.Response{
			Message:   store.ErrTokenInvalid.Error(),
			SessionID: sessionID,
		}, nil
	}
	if err != nil {
		return command.Response{}, fmt.Errorf("engine: cancel: %w", err)
	}
	e.metrics.CommandFinished(ctx, string(rec.Agent), string(rec.Status))

	return command.Response{
		Success:   true,
		Action:    rec.PendingAction,
		Message:   "The action was cancelled. Nothing was changed.",
		SessionID: sessionID,
	}, nil
}

// withoutToken returns rec with the consumed token cleared so the stored
// record keeps the token-iff-pending invariant.
func withoutToken(rec command.Record) command.Record {
	rec.ConfirmationToken = ""
	rec.Status = command.StatusProcessing
	return rec
}
