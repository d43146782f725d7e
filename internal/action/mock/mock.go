// Package mock provides a configurable [action.Executor] for tests and
// development. The default behaviour echoes the action and parameters back
// in a successful envelope; individual actions can be overridden with
// custom handlers, errors, or overwrite conflicts.
package mock

import (
	"context"
	"sync"

	"github.com/campushq/steward/internal/action"
	"github.com/campushq/steward/internal/command"
)

// Handler is an override for a single action name.
type Handler func(ctx context.Context, params command.Params) (command.Envelope, error)

// Executor implements [action.Executor]. The zero value echoes every call.
// Safe for concurrent use.
type Executor struct {
	mu       sync.Mutex
	handlers map[string]Handler
	calls    []Call
}

// Call records one Execute invocation.
type Call struct {
	Agent  command.Agent
	Action string
	Params command.Params
}

// Compile-time interface assertion.
var _ action.Executor = (*Executor)(nil)

// New returns an empty echo executor.
func New() *Executor {
	return &Executor{handlers: make(map[string]Handler)}
}

// Handle overrides the behaviour for the named action.
func (e *Executor) Handle(name string, h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.handlers == nil {
		e.handlers = make(map[string]Handler)
	}
	e.handlers[name] = h
}

// Calls returns a copy of all recorded invocations.
func (e *Executor) Calls() []Call {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Call, len(e.calls))
	copy(out, e.calls)
	return out
}

// Execute implements [action.Executor].
func (e *Executor) Execute(ctx context.Context, agent command.Agent, def action.Definition, params command.Params) (command.Envelope, error) {
	e.mu.Lock()
	e.calls = append(e.calls, Call{Agent: agent, Action: def.Name, Params: params.Clone()})
	h := e.handlers[def.Name]
	e.mu.Unlock()

	if h != nil {
		return h(ctx, params)
	}

	data := make(map[string]string, len(params))
	for k, v := range params {
		data[k] = v.Text()
	}
	return command.Envelope{
		Success: true,
		Message: "executed " + def.Name,
		Data:    data,
	}, nil
}
