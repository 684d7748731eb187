package infra

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by Execute while the breaker rejects calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State is the breaker position.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// CircuitBreakerConfig configures a breaker.
type CircuitBreakerConfig struct {
	Name string
	// Consecutive counted failures that open a closed breaker.
	FailureThreshold int
	// Consecutive probe successes that close a half-open breaker.
	SuccessThreshold int
	// How long an open breaker rejects before letting one probe through.
	Cooldown time.Duration
}

// DefaultCircuitBreakerConfig suits a collaborator called a few times per session.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Cooldown:         30 * time.Second,
	}
}

// CircuitBreaker isolates a failing collaborator (history API, webhook).
// In half-open only one probe call is in flight at a time. Safe for concurrent use.
type CircuitBreaker struct {
	cfg CircuitBreakerConfig
	now func() time.Time

	mu        sync.Mutex
	state     State
	failures  int
	successes int
	openedAt  time.Time
	probing   bool
	onChange  func(name string, from, to State)
}

// NewCircuitBreaker creates a closed breaker.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold < 1 {
		cfg.FailureThreshold = 1
	}
	if cfg.SuccessThreshold < 1 {
		cfg.SuccessThreshold = 1
	}
	return &CircuitBreaker{cfg: cfg, now: time.Now}
}

// OnStateChange registers a hook called after every transition, outside the lock.
func (cb *CircuitBreaker) OnStateChange(fn func(name string, from, to State)) {
	cb.mu.Lock()
	cb.onChange = fn
	cb.mu.Unlock()
}

// Execute runs fn if the breaker admits it and records the outcome.
// Errors for which isFailure returns false (caller cancellation, 4xx) are not
// counted; a nil isFailure counts every error.
func (cb *CircuitBreaker) Execute(fn func() error, isFailure func(error) bool) error {
	if err := cb.admit(); err != nil {
		return err
	}
	err := fn()
	cb.record(err == nil, err != nil && (isFailure == nil || isFailure(err)))
	return err
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	switch cb.state {
	case StateOpen:
		if cb.now().Sub(cb.openedAt) < cb.cfg.Cooldown {
			cb.mu.Unlock()
			return ErrCircuitOpen
		}
		cb.state = StateHalfOpen
		cb.successes = 0
		cb.probing = true
		hook := cb.onChange
		cb.mu.Unlock()
		cb.announce(hook, StateOpen, StateHalfOpen)
		return nil
	case StateHalfOpen:
		if cb.probing {
			cb.mu.Unlock()
			return ErrCircuitOpen
		}
		cb.probing = true
	}
	cb.mu.Unlock()
	return nil
}

func (cb *CircuitBreaker) record(ok, counted bool) {
	cb.mu.Lock()
	from := cb.state
	wasProbe := cb.probing
	cb.probing = false

	switch {
	case ok && from == StateHalfOpen:
		cb.successes++
		if cb.successes >= cb.cfg.SuccessThreshold {
			cb.close()
		}
	case ok:
		cb.failures = 0
	case !counted:
		// Neither success nor failure; a half-open breaker just frees the probe slot.
	case from == StateHalfOpen && wasProbe:
		cb.open()
	case from == StateClosed:
		cb.failures++
		if cb.failures >= cb.cfg.FailureThreshold {
			cb.open()
		}
	}

	to := cb.state
	hook := cb.onChange
	cb.mu.Unlock()

	if to != from {
		cb.announce(hook, from, to)
	}
}

func (cb *CircuitBreaker) open() {
	cb.state = StateOpen
	cb.openedAt = cb.now()
	cb.successes = 0
}

func (cb *CircuitBreaker) close() {
	cb.state = StateClosed
	cb.failures = 0
	cb.successes = 0
}

func (cb *CircuitBreaker) announce(hook func(string, State, State), from, to State) {
	level := slog.LevelInfo
	if to == StateOpen {
		level = slog.LevelWarn
	}
	slog.Log(context.Background(), level, "BREAKER_STATE_CHANGE",
		slog.String("name", cb.cfg.Name),
		slog.String("from", from.String()),
		slog.String("to", to.String()))
	if hook != nil {
		hook(cb.cfg.Name, from, to)
	}
}

// Name identifies the breaker in logs and metrics.
func (cb *CircuitBreaker) Name() string {
	return cb.cfg.Name
}

// State returns the current position. An open breaker whose cooldown has
// elapsed still reports OPEN until the next call probes it.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Reset forces the breaker closed.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	from := cb.state
	cb.close()
	cb.probing = false
	hook := cb.onChange
	cb.mu.Unlock()

	if from != StateClosed {
		cb.announce(hook, from, StateClosed)
	}
}
