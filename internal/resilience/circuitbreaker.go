// Package resilience keeps the LLM gateway usable when individual model
// backends misbehave.
//
// [CircuitBreaker] stops a flapping backend from being hammered on every
// command: after enough consecutive failures it rejects calls outright until
// a cooldown passes, then lets a few probes through. [FallbackGroup] strings
// provider entries together in priority order, each behind its own breaker,
// so a tripped primary is skipped rather than retried.
//
// All types are safe for concurrent use.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by [CircuitBreaker.Execute] when the breaker
// rejects the call without running it.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State represents the current operating mode of a [CircuitBreaker].
type State int

const (
	// StateClosed forwards every call. Normal operation.
	StateClosed State = iota

	// StateOpen rejects every call with [ErrCircuitOpen]. Entered after
	// MaxFailures consecutive failures, left once ResetTimeout elapses.
	StateOpen

	// StateHalfOpen admits up to HalfOpenMax probe calls. Enough successes
	// close the breaker; any failure re-opens it.
	StateHalfOpen
)

// String returns the human-readable name of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig holds tuning knobs for a [CircuitBreaker].
type CircuitBreakerConfig struct {
	// Name labels the breaker in log messages.
	Name string

	// MaxFailures is how many consecutive failures trip the breaker.
	// Default: 3.
	MaxFailures int

	// ResetTimeout is the cooldown before a tripped breaker starts
	// probing again. Default: 30s.
	ResetTimeout time.Duration

	// HalfOpenMax caps the probe calls admitted while half-open.
	// Default: 2.
	HalfOpenMax int
}

// CircuitBreaker implements the three-state circuit breaker pattern.
type CircuitBreaker struct {
	name string
	cfg  CircuitBreakerConfig

	mu        sync.Mutex
	state     State
	streak    int // consecutive failures while closed
	trippedAt time.Time
	probesIn  int // probe calls admitted this half-open round
	probeWins int // probe calls that succeeded this round
}

// NewCircuitBreaker creates a [CircuitBreaker] with the supplied
// configuration. Zero-value config fields are replaced with defaults.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 3
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if cfg.HalfOpenMax <= 0 {
		cfg.HalfOpenMax = 2
	}
	return &CircuitBreaker{name: cfg.Name, cfg: cfg}
}

// Execute runs fn if the breaker admits the call, otherwise it returns
// [ErrCircuitOpen] without calling fn.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if err := cb.admit(); err != nil {
		return err
	}
	err := fn()
	cb.settle(err)
	return err
}

// State returns the breaker's current state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// admit decides whether a call may proceed, moving an expired open breaker
// into the half-open probe round as a side effect.
func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if time.Since(cb.trippedAt) < cb.cfg.ResetTimeout {
			return ErrCircuitOpen
		}
		cb.state = StateHalfOpen
		cb.probesIn = 0
		cb.probeWins = 0
		slog.Info("circuit breaker half-open", "breaker", cb.name)
		cb.probesIn++
	case StateHalfOpen:
		if cb.probesIn >= cb.cfg.HalfOpenMax {
			return ErrCircuitOpen
		}
		cb.probesIn++
	}
	return nil
}

// settle folds a call outcome into the breaker state.
func (cb *CircuitBreaker) settle(callErr error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if callErr != nil {
		cb.trippedAt = time.Now()
		switch cb.state {
		case StateClosed:
			cb.streak++
			if cb.streak >= cb.cfg.MaxFailures {
				cb.state = StateOpen
				slog.Warn("circuit breaker opened",
					"breaker", cb.name, "consecutive_failures", cb.streak)
			}
		case StateHalfOpen:
			cb.state = StateOpen
			slog.Warn("circuit breaker re-opened by failed probe", "breaker", cb.name)
		}
		return
	}

	switch cb.state {
	case StateClosed:
		cb.streak = 0
	case StateHalfOpen:
		cb.probeWins++
		if cb.probeWins >= cb.cfg.HalfOpenMax {
			cb.state = StateClosed
			cb.streak = 0
			slog.Info("circuit breaker closed", "breaker", cb.name)
		}
	}
}
