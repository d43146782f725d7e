package mock

import (
	"context"
	"errors"
	"sync"

	"github.com/campushq/steward/internal/action"
	"github.com/campushq/steward/internal/command"
)

// NewReference returns an executor preloaded with behaviours that exercise
// the full envelope surface, for development servers without real domain
// handlers wired in:
//
//   - create_fee reports an overwrite conflict when the same school/month
//     batch is created twice without the overwrite flag.
//   - send_notice fails when the audience is "nobody".
//   - every other action echoes its parameters in a successful envelope.
func NewReference() *Executor {
	e := New()

	var mu sync.Mutex
	batches := make(map[string]bool)

	e.Handle("create_fee", func(_ context.Context, params command.Params) (command.Envelope, error) {
		key := params["school_id"].Text() + "/" + params["month"].Text()

		mu.Lock()
		exists := batches[key]
		batches[key] = true
		mu.Unlock()

		if exists && params["overwrite"].Text() != "true" {
			return command.Envelope{}, &action.OverwriteError{
				Message: "a fee batch for this school and month already exists",
			}
		}
		return command.Envelope{
			Success: true,
			Message: "Fee batch created for " + params["month"].Text(),
			Data:    map[string]string{"batch": key},
		}, nil
	})

	e.Handle("send_notice", func(_ context.Context, params command.Params) (command.Envelope, error) {
		if params["audience"].Text() == "nobody" {
			return command.Envelope{}, errors.New("notice has no recipients")
		}
		return command.Envelope{
			Success: true,
			Message: "Notice queued for " + params["audience"].Text(),
		}, nil
	})

	return e
}
