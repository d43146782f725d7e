package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/campushq/steward/internal/command"
	"github.com/campushq/steward/internal/store"
)

func newRecord(id string) command.Record {
	return command.Record{
		ID:             id,
		ConversationID: "conv-1",
		RawInput:       "create fee for class 5",
		Agent:          command.AgentFee,
		Intent:         "create_fee",
		Entities:       command.Params{"class": command.String("5")},
		Status:         command.StatusProcessing,
		CreatedAt:      time.Now().UTC(),
	}
}

func TestMemStoreCreateGet(t *testing.T) {
	t.Parallel()
	s := store.NewMemStore()
	ctx := context.Background()

	rec := newRecord("cmd-1")
	if err := s.Create(ctx, rec); err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := s.Get(ctx, "cmd-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Intent != "create_fee" || got.Agent != command.AgentFee {
		t.Errorf("got %+v", got)
	}

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Get missing: got %v, want ErrNotFound", err)
	}
}

func TestMemStoreGetReturnsCopy(t *testing.T) {
	t.Parallel()
	s := store.NewMemStore()
	ctx := context.Background()

	if err := s.Create(ctx, newRecord("cmd-1")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, _ := s.Get(ctx, "cmd-1")
	got.Entities["class"] = command.String("tampered")

	again, _ := s.Get(ctx, "cmd-1")
	if again.Entities["class"].Text() != "5" {
		t.Error("mutating a returned record leaked into the store")
	}
}

func TestMemStoreConsumeToken(t *testing.T) {
	t.Parallel()
	s := store.NewMemStore()
	ctx := context.Background()

	rec := newRecord("cmd-1")
	rec.Status = command.StatusPendingConfirmation
	rec.ConfirmationToken = "tok-abc"
	rec.PendingAction = "delete_fee"
	if err := s.Create(ctx, rec); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := s.ConsumeToken(ctx, "tok-abc")
	if err != nil {
		t.Fatalf("ConsumeToken: %v", err)
	}
	if got.PendingAction != "delete_fee" {
		t.Errorf("PendingAction = %q, want delete_fee", got.PendingAction)
	}
	if got.Status != command.StatusPendingConfirmation {
		t.Errorf("returned status = %q, want the pre-consumption view", got.Status)
	}

	stored, _ := s.Get(ctx, "cmd-1")
	if stored.Status != command.StatusProcessing {
		t.Errorf("stored status = %q, want processing", stored.Status)
	}
	if stored.ConfirmationToken != "" {
		t.Error("token not cleared after consumption")
	}

	// Second use of the same token must fail.
	if _, err := s.ConsumeToken(ctx, "tok-abc"); !errors.Is(err, store.ErrTokenInvalid) {
		t.Errorf("second consume: got %v, want ErrTokenInvalid", err)
	}
}

func TestMemStoreConsumeTokenRejects(t *testing.T) {
	t.Parallel()
	s := store.NewMemStore()
	ctx := context.Background()

	// A token on a record that is no longer pending confirmation is dead.
	rec := newRecord("cmd-1")
	rec.Status = command.StatusCancelled
	rec.ConfirmationToken = "tok-stale"
	if err := s.Create(ctx, rec); err != nil {
		t.Fatalf("Create: %v", err)
	}

	for _, token := range []string{"", "unknown", "tok-stale"} {
		if _, err := s.ConsumeToken(ctx, token); !errors.Is(err, store.ErrTokenInvalid) {
			t.Errorf("ConsumeToken(%q): got %v, want ErrTokenInvalid", token, err)
		}
	}
}

func TestMemStoreConsumeTokenSingleWinner(t *testing.T) {
	t.Parallel()
	s := store.NewMemStore()
	ctx := context.Background()

	rec := newRecord("cmd-1")
	rec.Status = command.StatusPendingConfirmation
	rec.ConfirmationToken = "tok-race"
	if err := s.Create(ctx, rec); err != nil {
		t.Fatalf("Create: %v", err)
	}

	const callers = 16
	var wg sync.WaitGroup
	wins := make(chan struct{}, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.ConsumeToken(ctx, "tok-race"); err == nil {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	if n := len(wins); n != 1 {
		t.Errorf("got %d winners, want exactly 1", n)
	}
}

func TestMemStoreUpdateImmutable(t *testing.T) {
	t.Parallel()
	s := store.NewMemStore()
	ctx := context.Background()

	rec := newRecord("cmd-1")
	rec.Status = command.StatusSuccess
	rec.CompletedAt = time.Now().UTC()
	if err := s.Create(ctx, rec); err != nil {
		t.Fatalf("Create: %v", err)
	}

	rec.ErrorMessage = "rewrite attempt"
	if err := s.Update(ctx, rec); !errors.Is(err, store.ErrImmutable) {
		t.Errorf("Update completed record: got %v, want ErrImmutable", err)
	}

	if err := s.Update(ctx, newRecord("missing")); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Update missing record: got %v, want ErrNotFound", err)
	}
}

func TestMemStoreLatestAwaitingClarification(t *testing.T) {
	t.Parallel()
	s := store.NewMemStore()
	ctx := context.Background()
	base := time.Now().UTC()

	older := newRecord("cmd-1")
	older.Status = command.StatusAwaitingClarification
	older.CreatedAt = base.Add(-2 * time.Minute)

	newer := newRecord("cmd-2")
	newer.Status = command.StatusAwaitingClarification
	newer.CreatedAt = base.Add(-1 * time.Minute)

	other := newRecord("cmd-3")
	other.ConversationID = "conv-2"
	other.Status = command.StatusAwaitingClarification
	other.CreatedAt = base

	for _, r := range []command.Record{older, newer, other} {
		if err := s.Create(ctx, r); err != nil {
			t.Fatalf("Create %s: %v", r.ID, err)
		}
	}

	got, err := s.LatestAwaitingClarification(ctx, "conv-1")
	if err != nil {
		t.Fatalf("LatestAwaitingClarification: %v", err)
	}
	if got.ID != "cmd-2" {
		t.Errorf("got %s, want cmd-2 (the newest in the conversation)", got.ID)
	}

	if _, err := s.LatestAwaitingClarification(ctx, "conv-9"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("unknown conversation: got %v, want ErrNotFound", err)
	}
}

func TestMemStoreListRecent(t *testing.T) {
	t.Parallel()
	s := store.NewMemStore()
	ctx := context.Background()
	base := time.Now().UTC()

	for i, st := range []command.Status{
		command.StatusSuccess,
		command.StatusFailed,
		command.StatusSuccess,
		command.StatusSuccess,
	} {
		rec := newRecord("cmd-" + string(rune('a'+i)))
		rec.Status = st
		rec.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if err := s.Create(ctx, rec); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	got, err := s.ListRecent(ctx, command.StatusSuccess, base, 10)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d records, want 3", len(got))
	}
	// Newest first.
	if got[0].ID != "cmd-d" || got[2].ID != "cmd-a" {
		t.Errorf("unexpected order: %s ... %s", got[0].ID, got[2].ID)
	}

	limited, err := s.ListRecent(ctx, "", base, 2)
	if err != nil {
		t.Fatalf("ListRecent limited: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("limit ignored: got %d records", len(limited))
	}

	none, err := s.ListRecent(ctx, command.StatusFailed, base.Add(time.Hour), 10)
	if err != nil {
		t.Fatalf("ListRecent since-future: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("since filter ignored: got %d records", len(none))
	}
}
