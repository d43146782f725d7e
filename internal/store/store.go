// Package store persists command records for auditability and resumption.
// Every pipeline attempt — including failures and abandoned clarifications —
// produces a record. Records are keyed independently by id and by
// confirmation token, so no cross-record locking is needed; the single
// point of contention, consuming a confirmation token, is a compare-and-swap
// on the record's status.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/campushq/steward/internal/command"
)

// ErrNotFound is returned when no record with the given id exists.
var ErrNotFound = errors.New("command record not found")

// ErrTokenInvalid is returned by ConsumeToken when the token is unknown or
// was already consumed. Replaying a consumed token must fail closed.
var ErrTokenInvalid = errors.New("confirmation token expired or invalid")

// ErrImmutable is returned by Update when the stored record already reached
// a terminal state. Completed records are audit history, never rewritten.
var ErrImmutable = errors.New("record is completed and immutable")

// Recorder is the session/audit persistence capability.
//
// Implementations must be safe for concurrent use. ConsumeToken must be
// atomic: of two concurrent calls with the same token, exactly one wins and
// the other observes [ErrTokenInvalid].
type Recorder interface {
	// Create persists a new record. The caller supplies the ID.
	Create(ctx context.Context, rec command.Record) error

	// Get returns the record with the given id.
	// Returns [ErrNotFound] when it does not exist.
	Get(ctx context.Context, id string) (command.Record, error)

	// Update replaces the stored record. Returns [ErrNotFound] for unknown
	// ids and [ErrImmutable] when the stored record is terminal.
	Update(ctx context.Context, rec command.Record) error

	// ConsumeToken atomically transitions the unique record holding token
	// from pending_confirmation to processing, clearing the token, and
	// returns the record as it was before consumption. Any miss — unknown
	// token, or a record no longer pending — yields [ErrTokenInvalid].
	ConsumeToken(ctx context.Context, token string) (command.Record, error)

	// LatestAwaitingClarification returns the most recently created record
	// in the conversation whose status is awaiting_clarification, for the
	// bare-number reply shortcut. Returns [ErrNotFound] when there is none.
	LatestAwaitingClarification(ctx context.Context, conversationID string) (command.Record, error)

	// ListRecent returns records with the given status created at or after
	// since, newest first, capped at limit. An empty status matches all.
	ListRecent(ctx context.Context, status command.Status, since time.Time, limit int) ([]command.Record, error)
}
