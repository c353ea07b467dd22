// Package circuitbreaker guards calls to flaky upstreams (the YouTube oEmbed
// endpoint) so a failing dependency stops being hammered.
package circuitbreaker

import (
	"errors"
	"sync"
	"time"

	"songbook-api-go/logcolors"

	log "github.com/sirupsen/logrus"
)

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
		return "HALF-OPEN"
	default:
		return "UNKNOWN"
	}
}

// ErrCircuitOpen is returned by Do while the breaker rejects calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Config holds breaker settings. Zero values pick defaults.
type Config struct {
	Name            string
	Threshold       int           // consecutive failures before opening
	Cooldown        time.Duration // time spent open before a probe is allowed
	HalfOpenTimeout time.Duration // how long a probe may take before reopening

	// OnStateChange, when set, is called after every transition.
	// It runs with the breaker lock released.
	OnStateChange func(name string, from, to State)
}

// Snapshot is a point-in-time view of the breaker, shaped for JSON output.
type Snapshot struct {
	Name           string    `json:"name"`
	State          string    `json:"state"`
	Failures       int       `json:"failures"`
	Threshold      int       `json:"threshold"`
	LastFailure    time.Time `json:"last_failure,omitempty"`
	RetryInSeconds float64   `json:"retry_in_seconds"`
}

// CircuitBreaker is a consecutive-failure breaker with a single-probe
// half-open state.
type CircuitBreaker struct {
	mu sync.RWMutex

	name            string
	threshold       int
	cooldown        time.Duration
	halfOpenTimeout time.Duration
	onChange        func(name string, from, to State)

	state         State
	failures      int
	lastFailure   time.Time
	halfOpenStart time.Time
}

// New creates a closed breaker.
func New(cfg Config) *CircuitBreaker {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 5 * time.Minute
	}
	if cfg.HalfOpenTimeout <= 0 {
		cfg.HalfOpenTimeout = 30 * time.Second
	}
	if cfg.Name == "" {
		cfg.Name = "default"
	}

	return &CircuitBreaker{
		name:            cfg.Name,
		threshold:       cfg.Threshold,
		cooldown:        cfg.Cooldown,
		halfOpenTimeout: cfg.HalfOpenTimeout,
		onChange:        cfg.OnStateChange,
		state:           StateClosed,
	}
}

// Name returns the configured breaker name.
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// transition must be called with mu held. It returns a func that fires the
// state change hook; callers invoke it after unlocking.
func (cb *CircuitBreaker) transition(to State) func() {
	from := cb.state
	cb.state = to
	if from == to || cb.onChange == nil {
		return func() {}
	}
	hook, name := cb.onChange, cb.name
	return func() { hook(name, from, to) }
}

// Allow reports whether a call may proceed. In the half-open state only the
// first caller after the cooldown gets through.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	allowed, fire := cb.allowLocked()
	cb.mu.Unlock()
	fire()
	return allowed
}

func (cb *CircuitBreaker) allowLocked() (bool, func()) {
	prefix := logcolors.CircuitBreakerPrefix(cb.name)

	switch cb.state {
	case StateOpen:
		if time.Since(cb.lastFailure) < cb.cooldown {
			return false, func() {}
		}
		cb.halfOpenStart = time.Now()
		log.Infof("%s Cooldown elapsed, probing upstream (HALF-OPEN)", prefix)
		return true, cb.transition(StateHalfOpen)

	case StateHalfOpen:
		if time.Since(cb.halfOpenStart) >= cb.halfOpenTimeout {
			cb.lastFailure = time.Now()
			log.Warnf("%s Probe timed out, back to OPEN", prefix)
			return false, cb.transition(StateOpen)
		}
		return false, func() {}

	default:
		return true, func() {}
	}
}

// RecordSuccess closes a half-open breaker and clears the failure streak.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	fire := func() {}
	switch cb.state {
	case StateHalfOpen:
		cb.failures = 0
		log.Infof("%s Probe succeeded, CLOSED", logcolors.CircuitBreakerPrefix(cb.name))
		fire = cb.transition(StateClosed)
	case StateClosed:
		cb.failures = 0
	}
	cb.mu.Unlock()
	fire()
}

// RecordFailure extends the failure streak and opens the breaker once the
// threshold is reached, or immediately when a probe fails.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	cb.failures++
	cb.lastFailure = time.Now()

	fire := func() {}
	prefix := logcolors.CircuitBreakerPrefix(cb.name)
	switch cb.state {
	case StateHalfOpen:
		log.Warnf("%s Probe failed, back to OPEN", prefix)
		fire = cb.transition(StateOpen)
	case StateClosed:
		if cb.failures >= cb.threshold {
			log.Warnf("%s %d consecutive failures, OPEN for %v", prefix, cb.failures, cb.cooldown)
			fire = cb.transition(StateOpen)
		}
	}
	cb.mu.Unlock()
	fire()
}

// Do runs fn if the breaker allows it and records the outcome.
// Errors for which ignore returns true count as successes, so that
// caller-side problems (such as an unknown video) do not trip the breaker.
func (cb *CircuitBreaker) Do(fn func() error, ignore func(error) bool) error {
	if !cb.Allow() {
		return ErrCircuitOpen
	}
	err := fn()
	if err == nil || (ignore != nil && ignore(err)) {
		cb.RecordSuccess()
		return err
	}
	cb.RecordFailure()
	return err
}

// State returns the current state.
func (cb *CircuitBreaker) State() State {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// Failures returns the current consecutive failure count.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.failures
}

// IsOpen reports whether calls are currently being rejected outright.
func (cb *CircuitBreaker) IsOpen() bool {
	return cb.State() == StateOpen
}

// IsHalfOpen reports whether a probe is in flight.
func (cb *CircuitBreaker) IsHalfOpen() bool {
	return cb.State() == StateHalfOpen
}

// Threshold returns the configured failure threshold.
func (cb *CircuitBreaker) Threshold() int {
	return cb.threshold
}

// TimeUntilRetry returns the remaining cooldown when open, the remaining
// probe window when half-open, and zero when closed.
func (cb *CircuitBreaker) TimeUntilRetry() time.Duration {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.timeUntilRetryLocked()
}

func (cb *CircuitBreaker) timeUntilRetryLocked() time.Duration {
	var remaining time.Duration
	switch cb.state {
	case StateOpen:
		remaining = cb.cooldown - time.Since(cb.lastFailure)
	case StateHalfOpen:
		remaining = cb.halfOpenTimeout - time.Since(cb.halfOpenStart)
	}
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Snapshot returns the breaker status.
func (cb *CircuitBreaker) Snapshot() Snapshot {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return Snapshot{
		Name:           cb.name,
		State:          cb.state.String(),
		Failures:       cb.failures,
		Threshold:      cb.threshold,
		LastFailure:    cb.lastFailure,
		RetryInSeconds: cb.timeUntilRetryLocked().Seconds(),
	}
}

// Reset forces the breaker closed.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	cb.failures = 0
	cb.lastFailure = time.Time{}
	cb.halfOpenStart = time.Time{}
	fire := cb.transition(StateClosed)
	cb.mu.Unlock()
	fire()
	log.Infof("%s Manually reset to CLOSED", logcolors.CircuitBreakerPrefix(cb.name))
}
