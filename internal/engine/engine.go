// Package engine orchestrates a natural-language command from raw text to a
// response envelope.
//
// One SubmitCommand call runs the pipeline stages strictly in sequence:
// numeric-selection shortcut, classification (model path with deterministic
// fallback), entity extraction, context merge, parameter resolution,
// validation, the confirmation gate for destructive actions, and finally
// dispatch. Every stage transition is persisted to the session recorder so a
// later turn can resume a pending clarification or confirmation.
//
// The engine itself holds no per-request state; concurrent requests share
// only the recorder and the domain repository.
package engine

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/campushq/steward/internal/action"
	"github.com/campushq/steward/internal/command"
	"github.com/campushq/steward/internal/confirm"
	"github.com/campushq/steward/internal/gateway"
	"github.com/campushq/steward/internal/mergectx"
	"github.com/campushq/steward/internal/observe"
	"github.com/campushq/steward/internal/repository"
	"github.com/campushq/steward/internal/resolve"
	"github.com/campushq/steward/internal/store"
)

// Engine wires the pipeline stages together. Construct with [New]; the zero
// value is not usable.
type Engine struct {
	log        *slog.Logger
	recorder   store.Recorder
	resolver   *resolve.Resolver
	registry   *action.Registry
	dispatcher *action.Dispatcher
	gate       *confirm.Gate
	merger     mergectx.Merger
	gw         *gateway.Gateway
	metrics    *observe.Metrics

	newID func() string
	now   func() time.Time
}

// Options carries the optional collaborators of [New]. Zero fields select
// defaults.
type Options struct {
	// Gateway, when non-nil, enables the language-model interpretation
	// path. Without it every command takes the deterministic rule path.
	Gateway *gateway.Gateway

	// Merger controls cross-turn context recovery. The zero value enables
	// it with defaults.
	Merger mergectx.Merger

	// Metrics, when non-nil, records pipeline stage outcomes.
	Metrics *observe.Metrics

	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// New constructs an Engine over the given collaborators.
func New(recorder store.Recorder, repo repository.Repository, registry *action.Registry, exec action.Executor, opts Options) *Engine {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		log:        log,
		recorder:   recorder,
		resolver:   resolve.New(repo),
		registry:   registry,
		dispatcher: action.NewDispatcher(exec),
		gate:       confirm.NewGate(recorder, log),
		merger:     opts.Merger,
		gw:         opts.Gateway,
		metrics:    opts.Metrics,
		newID:      uuid.NewString,
		now:        time.Now,
	}
}

// Request is one user utterance submitted to the engine.
type Request struct {
	// SessionID groups turns into a conversation. The engine uses it to
	// find a pending clarification when the user replies with a bare
	// number, and mints one when absent.
	SessionID string

	// Text is the raw utterance.
	Text string

	// AgentHint restricts classification to one domain agent. Empty scans
	// all agents in declared order.
	AgentHint command.Agent

	// History is the recent conversation, newest last, consulted by the
	// context merger.
	History []mergectx.Turn

	// Scope restricts repository lookups to the caller's visibility.
	Scope repository.Scope

	// Overwrite re-submits a command that previously answered
	// NeedsOverwrite, explicitly allowing the executor to clobber the
	// existing data it found.
	Overwrite bool
}
