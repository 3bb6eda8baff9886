package httpclient

import (
	"sync"
	"time"
)

// CircuitState represents the state of a circuit breaker.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreaker opens after a run of consecutive failures and lets a single
// trial request through once the reset timeout has passed.
type CircuitBreaker struct {
	mu          sync.Mutex
	threshold   int
	timeout     time.Duration
	state       CircuitState
	failures    int
	probing     bool
	lastFailure time.Time

	totalRequests int64
	totalFailures int64

	now func() time.Time
}

// CircuitBreakerStats is a point-in-time view of a breaker.
type CircuitBreakerStats struct {
	State               string    `json:"state"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	TotalRequests       int64     `json:"total_requests"`
	TotalFailures       int64     `json:"total_failures"`
	LastFailure         time.Time `json:"last_failure,omitzero"`
}

// NewCircuitBreaker creates a closed breaker. Non-positive arguments fall back
// to the package defaults.
func NewCircuitBreaker(threshold int, timeout time.Duration) *CircuitBreaker {
	if threshold <= 0 {
		threshold = DefaultCircuitThreshold
	}
	if timeout <= 0 {
		timeout = DefaultCircuitTimeout
	}
	return &CircuitBreaker{threshold: threshold, timeout: timeout, now: time.Now}
}

// Allow reports whether a request may proceed.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		return true
	case CircuitOpen:
		if cb.now().Sub(cb.lastFailure) < cb.timeout {
			return false
		}
		cb.state = CircuitHalfOpen
		cb.probing = true
		return true
	default:
		if cb.probing {
			return false
		}
		cb.probing = true
		return true
	}
}

// RecordSuccess records a successful request and closes the circuit.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.totalRequests++
	cb.failures = 0
	cb.probing = false
	cb.state = CircuitClosed
}

// RecordFailure records a failed request.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.totalRequests++
	cb.totalFailures++
	cb.failures++
	cb.lastFailure = cb.now()
	cb.probing = false

	if cb.state == CircuitHalfOpen || cb.failures >= cb.threshold {
		cb.state = CircuitOpen
	}
}

// State returns the current circuit state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Reset closes the circuit and clears the failure run.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = CircuitClosed
	cb.failures = 0
	cb.probing = false
}

// Stats returns current statistics for the breaker.
func (cb *CircuitBreaker) Stats() CircuitBreakerStats {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return CircuitBreakerStats{
		State:               cb.state.String(),
		ConsecutiveFailures: cb.failures,
		TotalRequests:       cb.totalRequests,
		TotalFailures:       cb.totalFailures,
		LastFailure:         cb.lastFailure,
	}
}
