package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/campushq/steward/internal/action"
	"github.com/campushq/steward/internal/classify"
	"github.com/campushq/steward/internal/command"
	"github.com/campushq/steward/internal/extract"
	"github.com/campushq/steward/internal/gateway"
	"github.com/campushq/steward/internal/store"
)

// SubmitCommand runs one utterance through the full pipeline and returns the
// caller-facing response. The returned error is reserved for infrastructure
// failures (recorder, repository); user-level failures come back as a
// Response with Success=false.
func (e *Engine) SubmitCommand(ctx context.Context, req Request) (command.Response, error) {
	if req.SessionID == "" {
		req.SessionID = e.newID()
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return command.Response{
			Message:   "Please tell me what you would like to do.",
			SessionID: req.SessionID,
		}, nil
	}

	// A bare number is first tried as an answer to the newest pending
	// clarification in this conversation.
	if isNumeric(text) {
		resp, handled, err := e.tryNumericSelection(ctx, req, text)
		if err != nil {
			return command.Response{}, err
		}
		if handled {
			return resp, nil
		}
	}

	rec := command.Record{
		ID:             e.newID(),
		ConversationID: req.SessionID,
		RawInput:       req.Text,
		Status:         command.StatusPending,
		CreatedAt:      e.now().UTC(),
	}
	if err := e.recorder.Create(ctx, rec); err != nil {
		return command.Response{}, fmt.Errorf("engine: create record: %w", err)
	}

	agent, intent, params, ok := e.interpret(ctx, req, text)
	if !ok {
		rec.Status = command.StatusFailed
		rec.ErrorMessage = "unrecognized command"
		rec.CompletedAt = e.now().UTC()
		e.persist(ctx, rec)
		e.metrics.CommandFinished(ctx, "", string(command.StatusFailed))
		return command.Response{
			Message:     "Sorry, I did not understand that. Here are some things you can try:",
			Suggestions: classify.Suggest(text),
			SessionID:   req.SessionID,
		}, nil
	}

	rec.Agent = agent
	rec.Intent = intent
	rec.Entities = params.Clone()
	rec.Status = command.StatusProcessing
	e.persist(ctx, rec)

	params = e.merger.Merge(params, req.History)
	return e.finish(ctx, req, rec, params)
}

// interpret produces the structured (agent, intent, params) shape, trying
// the model path first and falling back to the deterministic rule tables.
func (e *Engine) interpret(ctx context.Context, req Request, text string) (command.Agent, string, command.Params, bool) {
	if e.gw != nil {
		// Context the merger recovers from history is offered to the model
		// too, so an elliptical follow-up keeps its month.
		carried := e.merger.Merge(command.Params{}, req.History)
		res := e.gw.Generate(ctx, gateway.SystemPrompt, gateway.UserPrompt(text, req.AgentHint, carried, req.History))
		e.metrics.ProviderCall(ctx, res.Provider, res.Success, res.Latency)
		if res.Success && res.Parsed != nil && res.Parsed.Action != "" {
			if def, ok := e.registry.ByName(res.Parsed.Action); ok {
				params := res.Parsed.Params.Clone()
				// The rule extractor backfills fields the model missed;
				// model-supplied values win.
				for k, v := range extract.Extract(text, def.Name) {
					if _, exists := params[k]; !exists {
						params[k] = v
					}
				}
				return def.Agent, def.Name, params, true
			}
			e.log.InfoContext(ctx, "model named an unsupported action",
				"action", res.Parsed.Action)
		}
	}

	agent, intent, ok := classify.Classify(text, req.AgentHint)
	if !ok {
		return "", "", nil, false
	}
	return agent, intent, extract.Extract(text, intent), true
}

// finish runs resolution, validation, the confirmation gate, and dispatch.
// It is shared by fresh submissions and clarification resumptions.
func (e *Engine) finish(ctx context.Context, req Request, rec command.Record, params command.Params) (command.Response, error) {
	res, err := e.resolver.Resolve(ctx, rec.Intent, params, req.Scope)
	if err != nil {
		return command.Response{}, fmt.Errorf("engine: resolve: %w", err)
	}
	if !res.Success {
		if res.Clarify != nil {
			rec.Status = command.StatusAwaitingClarification
			rec.Clarification = res.Clarify
			rec.Entities = params.Clone()
			e.persist(ctx, rec)
			e.metrics.ClarificationAsked(ctx, string(rec.Agent))
			return command.Response{
				NeedsClarification: true,
				Clarification:      res.Clarify,
				Message:            res.Message,
				SessionID:          req.SessionID,
			}, nil
		}
		return e.fail(ctx, req, rec, res.Message), nil
	}
	resolved := res.Params

	def, ok := e.registry.Lookup(rec.Agent, rec.Intent)
	if !ok {
		return e.fail(ctx, req, rec, fmt.Sprintf("action %q is not supported", rec.Intent)), nil
	}

	if missing := action.Validate(def, resolved); len(missing) > 0 {
		clar := &command.Clarification{
			Field:  missing[0],
			Prompt: action.MissingPrompt(def, missing),
		}
		rec.Status = command.StatusAwaitingClarification
		rec.Clarification = clar
		rec.Entities = resolved.Clone()
		e.persist(ctx, rec)
		e.metrics.ClarificationAsked(ctx, string(rec.Agent))
		return command.Response{
			NeedsClarification: true,
			Clarification:      clar,
			Message:            clar.Prompt,
			SessionID:          req.SessionID,
		}, nil
	}

	rec.Entities = resolved.Clone()
	rec.Clarification = nil

	if def.RequiresConfirmation() {
		proposed, summary, err := e.gate.Propose(ctx, rec, def)
		if err != nil {
			return command.Response{}, fmt.Errorf("engine: propose confirmation: %w", err)
		}
		e.metrics.ConfirmationProposed(ctx, string(rec.Agent))
		return command.Response{
			NeedsConfirmation: true,
			ConfirmationToken: proposed.ConfirmationToken,
			Action:            def.Name,
			Message:           summary,
			SessionID:         req.SessionID,
		}, nil
	}

	return e.execute(ctx, req, rec, def, resolved)
}

// execute dispatches the action and persists the terminal record state.
func (e *Engine) execute(ctx context.Context, req Request, rec command.Record, def action.Definition, params command.Params) (command.Response, error) {
	if req.Overwrite {
		params = params.Clone()
		params["overwrite"] = command.String("true")
	}

	env, needsOverwrite := e.dispatcher.Dispatch(ctx, rec.Agent, def, params)
	if needsOverwrite && !req.Overwrite {
		rec.Status = command.StatusFailed
		rec.ErrorMessage = env.Error
		rec.CompletedAt = e.now().UTC()
		e.persist(ctx, rec)
		e.metrics.CommandFinished(ctx, string(rec.Agent), string(rec.Status))
		return command.Response{
			NeedsOverwrite: true,
			Action:         def.Name,
			Message:        env.Message,
			SessionID:      req.SessionID,
		}, nil
	}

	if env.Success {
		rec.Status = command.StatusSuccess
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
		SessionID: req.SessionID,
	}, nil
}

// fail marks rec failed with msg and builds the matching response.
func (e *Engine) fail(ctx context.Context, req Request, rec command.Record, msg string) command.Response {
	rec.Status = command.StatusFailed
	rec.ErrorMessage = msg
	rec.CompletedAt = e.now().UTC()
	e.persist(ctx, rec)
	e.metrics.CommandFinished(ctx, string(rec.Agent), string(rec.Status))
	return command.Response{
		Message:   msg,
		SessionID: req.SessionID,
	}
}

// persist updates rec, logging instead of failing the request when the
// recorder rejects the write. Audit writes must not mask a user-facing
// result that has already been computed.
func (e *Engine) persist(ctx context.Context, rec command.Record) {
	if err := e.recorder.Update(ctx, rec); err != nil && !errors.Is(err, store.ErrNotFound) {
		e.log.ErrorContext(ctx, "persist record", "record_id", rec.ID, "error", err)
	}
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
