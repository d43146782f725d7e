package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/campushq/steward/internal/command"
)

// Compile-time assertion that MemStore satisfies the Recorder interface.
var _ Recorder = (*MemStore)(nil)

// MemStore is a thread-safe, in-memory [Recorder] for tests and single
// process development runs.
type MemStore struct {
	mu      sync.Mutex
	records map[string]command.Record
	byToken map[string]string
}

// NewMemStore returns an initialised [MemStore].
func NewMemStore() *MemStore {
	return &MemStore{
		records: make(map[string]command.Record),
		byToken: make(map[string]string),
	}
}

// Create implements [Recorder.Create].
func (s *MemStore) Create(ctx context.Context, rec command.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[rec.ID] = cloneRecord(rec)
	if rec.ConfirmationToken != "" {
		s.byToken[rec.ConfirmationToken] = rec.ID
	}
	return nil
}

// Get implements [Recorder.Get].
func (s *MemStore) Get(ctx context.Context, id string) (command.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return command.Record{}, ErrNotFound
	}
	return cloneRecord(rec), nil
}

// Update implements [Recorder.Update].
func (s *MemStore) Update(ctx context.Context, rec command.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.records[rec.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Status.Terminal() && !stored.CompletedAt.IsZero() {
		return ErrImmutable
	}

	if stored.ConfirmationToken != "" && stored.ConfirmationToken != rec.ConfirmationToken {
		delete(s.byToken, stored.ConfirmationToken)
	}
	if rec.ConfirmationToken != "" {
		s.byToken[rec.ConfirmationToken] = rec.ID
	}
	s.records[rec.ID] = cloneRecord(rec)
	return nil
}

// ConsumeToken implements [Recorder.ConsumeToken].
func (s *MemStore) ConsumeToken(ctx context.Context, token string) (command.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if token == "" {
		return command.Record{}, ErrTokenInvalid
	}
	id, ok := s.byToken[token]
	if !ok {
		return command.Record{}, ErrTokenInvalid
	}
	rec := s.records[id]
	if rec.Status != command.StatusPendingConfirmation {
		return command.Record{}, ErrTokenInvalid
	}

	before := cloneRecord(rec)
	rec.Status = command.StatusProcessing
	rec.ConfirmationToken = ""
	s.records[id] = rec
	delete(s.byToken, token)
	return before, nil
}

// LatestAwaitingClarification implements
// [Recorder.LatestAwaitingClarification].
func (s *MemStore) LatestAwaitingClarification(ctx context.Context, conversationID string) (command.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		best  command.Record
		found bool
	)
	for _, rec := range s.records {
		if rec.ConversationID != conversationID || rec.Status != command.StatusAwaitingClarification {
			continue
		}
		if !found || rec.CreatedAt.After(best.CreatedAt) {
			best = rec
			found = true
		}
	}
	if !found {
		return command.Record{}, ErrNotFound
	}
	return cloneRecord(best), nil
}

// ListRecent implements [Recorder.ListRecent].
func (s *MemStore) ListRecent(ctx context.Context, status command.Status, since time.Time, limit int) ([]command.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []command.Record
	for _, rec := range s.records {
		if status != "" && rec.Status != status {
			continue
		}
		if rec.CreatedAt.Before(since) {
			continue
		}
		out = append(out, cloneRecord(rec))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// cloneRecord copies rec deeply enough that callers cannot mutate stored
// state through shared maps or pointers.
func cloneRecord(rec command.Record) command.Record {
	out := rec
	out.Entities = rec.Entities.Clone()
	if rec.Clarification != nil {
		c := *rec.Clarification
		c.Options = append([]command.Option(nil), rec.Clarification.Options...)
		out.Clarification = &c
	}
	if rec.Result != nil {
		r := *rec.Result
		out.Result = &r
	}
	return out
}
