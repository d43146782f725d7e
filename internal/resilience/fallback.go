package resilience

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrAllFailed is returned when every entry in a [FallbackGroup] fails or
// has an open circuit breaker.
var ErrAllFailed = errors.New("all providers failed")

// FallbackConfig configures the per-entry circuit breaker created for each
// provider in a [FallbackGroup].
type FallbackConfig struct {
	CircuitBreaker CircuitBreakerConfig
}

// Entry pairs a provider value with the name it is reported under.
type Entry[T any] struct {
	Name  string
	Value T
}

// fallbackEntry is an [Entry] with its dedicated circuit breaker.
type fallbackEntry[T any] struct {
	name    string
	value   T
	breaker *CircuitBreaker
}

// FallbackGroup wraps an ordered list of provider entries. When an entry
// fails (or its circuit breaker is open), the next healthy entry is tried in
// declaration order. The first entry is the preferred backend.
//
// FallbackGroup is safe for concurrent use.
type FallbackGroup[T any] struct {
	entries []fallbackEntry[T]
}

// NewFallbackGroup creates a [FallbackGroup] from entries, preserving order.
func NewFallbackGroup[T any](cfg FallbackConfig, entries ...Entry[T]) *FallbackGroup[T] {
	fg := &FallbackGroup[T]{}
	for _, e := range entries {
		cbCfg := cfg.CircuitBreaker
		cbCfg.Name = e.Name
		fg.entries = append(fg.entries, fallbackEntry[T]{
			name:    e.Name,
			value:   e.Value,
			breaker: NewCircuitBreaker(cbCfg),
		})
	}
	return fg
}

// Names returns the entry names in declaration order.
func (fg *FallbackGroup[T]) Names() []string {
	out := make([]string, len(fg.entries))
	for i, e := range fg.entries {
		out[i] = e.name
	}
	return out
}

// Len returns the number of entries.
func (fg *FallbackGroup[T]) Len() int { return len(fg.entries) }

// ExecuteWithResult tries fn against each entry in order until one succeeds,
// returning the result value and the name of the entry that served it. This
// is a package-level function because Go does not support method-level type
// parameters.
func ExecuteWithResult[T any, R any](fg *FallbackGroup[T], fn func(T) (R, error)) (R, string, error) {
	var (
		lastErr error
		zero    R
	)
	for i := range fg.entries {
		entry := &fg.entries[i]
		var result R
		err := entry.breaker.Execute(func() error {
			var innerErr error
			result, innerErr = fn(entry.value)
			return innerErr
		})
		if err == nil {
			return result, entry.name, nil
		}
		lastErr = err
		if errors.Is(err, ErrCircuitOpen) {
			slog.Debug("skipping provider (circuit open)", "provider", entry.name)
		} else {
			slog.Warn("provider failed, trying next",
				"provider", entry.name, "error", err)
		}
	}
	return zero, "", fmt.Errorf("%w: %v", ErrAllFailed, lastErr)
}
