package resilience_test

import (
	"errors"
	"testing"
	"time"

	"github.com/campushq/steward/internal/resilience"
)

func newGroup(names ...string) *resilience.FallbackGroup[string] {
	cfg := resilience.FallbackConfig{
		CircuitBreaker: resilience.CircuitBreakerConfig{
			MaxFailures:  2,
			ResetTimeout: time.Hour,
		},
	}
	entries := make([]resilience.Entry[string], len(names))
	for i, n := range names {
		entries[i] = resilience.Entry[string]{Name: n, Value: n}
	}
	return resilience.NewFallbackGroup(cfg, entries...)
}

func TestFallbackPrefersFirstEntry(t *testing.T) {
	t.Parallel()
	fg := newGroup("primary", "secondary")

	got, served, err := resilience.ExecuteWithResult(fg, func(v string) (string, error) {
		return "via " + v, nil
	})
	if err != nil {
		t.Fatalf("ExecuteWithResult: %v", err)
	}
	if got != "via primary" || served != "primary" {
		t.Errorf("got %q via %q, want primary", got, served)
	}
}

func TestFallbackAdvancesOnFailure(t *testing.T) {
	t.Parallel()
	fg := newGroup("primary", "secondary")
	boom := errors.New("backend down")

	got, served, err := resilience.ExecuteWithResult(fg, func(v string) (string, error) {
		if v == "primary" {
			return "", boom
		}
		return "via " + v, nil
	})
	if err != nil {
		t.Fatalf("ExecuteWithResult: %v", err)
	}
	if got != "via secondary" || served != "secondary" {
		t.Errorf("got %q via %q, want secondary", got, served)
	}
}

func TestFallbackAllFailed(t *testing.T) {
	t.Parallel()
	fg := newGroup("primary", "secondary")

	_, _, err := resilience.ExecuteWithResult(fg, func(v string) (string, error) {
		return "", errors.New("down")
	})
	if !errors.Is(err, resilience.ErrAllFailed) {
		t.Errorf("got %v, want ErrAllFailed", err)
	}
}

func TestFallbackSkipsOpenBreaker(t *testing.T) {
	t.Parallel()
	fg := newGroup("primary", "secondary")

	// Trip the primary's breaker (MaxFailures = 2).
	for i := 0; i < 2; i++ {
		resilience.ExecuteWithResult(fg, func(v string) (string, error) {
			if v == "primary" {
				return "", errors.New("down")
			}
			return "ok", nil
		})
	}

	var primaryCalled bool
	_, served, err := resilience.ExecuteWithResult(fg, func(v string) (string, error) {
		if v == "primary" {
			primaryCalled = true
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("ExecuteWithResult: %v", err)
	}
	if primaryCalled {
		t.Error("primary was called despite an open breaker")
	}
	if served != "secondary" {
		t.Errorf("served by %q, want secondary", served)
	}
}

func TestFallbackNames(t *testing.T) {
	t.Parallel()
	fg := newGroup("a", "b", "c")
	names := fg.Names()
	if len(names) != 3 || names[0] != "a" || names[2] != "c" {
		t.Errorf("Names() = %v", names)
	}
	if fg.Len() != 3 {
		t.Errorf("Len() = %d", fg.Len())
	}
}
