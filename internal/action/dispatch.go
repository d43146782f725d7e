package action

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/campushq/steward/internal/command"
)

// OverwriteError is returned by an executor when the requested write would
// silently clobber existing data (e.g. re-creating an existing fee batch).
// The caller resubmits with an explicit force flag instead of a
// confirmation token, since the conflict is discovered mid-execution.
type OverwriteError struct {
	// Message describes what already exists.
	Message string
}

func (e *OverwriteError) Error() string { return e.Message }

// Executor is the external domain-handler capability. The engine guarantees
// Execute is called at most once per confirmed/resolved request.
//
// Implementations must be safe for concurrent use.
type Executor interface {
	// Execute runs the named action with fully resolved parameters and
	// returns the domain result. A returned error (including
	// [*OverwriteError]) is normalised by the dispatcher; executors should
	// prefer returning an unsuccessful envelope for ordinary domain
	// failures and reserve errors for faults.
	Execute(ctx context.Context, agent command.Agent, def Definition, params command.Params) (command.Envelope, error)
}

// Dispatcher routes a resolved command to its executor and guarantees the
// caller always receives a well-formed envelope: no raw internal error, and
// no panic, ever crosses this boundary.
type Dispatcher struct {
	exec Executor
}

// NewDispatcher returns a [Dispatcher] delegating to exec.
func NewDispatcher(exec Executor) *Dispatcher {
	return &Dispatcher{exec: exec}
}

// Dispatch executes the action and normalises every possible outcome —
// success, domain error, returned fault, panic — into the uniform envelope.
// needsOverwrite is true when the executor reported an overwrite conflict;
// the envelope then carries the conflict description and the caller should
// resubmit with the force flag.
func (d *Dispatcher) Dispatch(ctx context.Context, agent command.Agent, def Definition, params command.Params) (env command.Envelope, needsOverwrite bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("executor panic recovered",
				"agent", agent, "action", def.Name, "panic", r)
			env = command.Envelope{
				Success: false,
				Message: "the operation failed unexpectedly",
				Error:   fmt.Sprintf("internal fault in %s/%s", agent, def.Name),
			}
			needsOverwrite = false
		}
	}()

	result, err := d.exec.Execute(ctx, agent, def, params)
	if err != nil {
		var owe *OverwriteError
		if errors.As(err, &owe) {
			return command.Envelope{
				Success: false,
				Message: owe.Message,
				Error:   "overwrite confirmation required",
			}, true
		}
		slog.Warn("executor returned error",
			"agent", agent, "action", def.Name, "error", err)
		return command.Envelope{
			Success: false,
			Message: "the operation could not be completed",
			Error:   err.Error(),
		}, false
	}
	return result, false
}
