// Package breaker adapts the teacher's circuit-breaker shape
// (internal/client.CircuitBreaker, aimed at a flaky remote server) to
// guard a driver against a misbehaving local TensorCore. Per spec.md
// section 7, a deadlock-surrogate result from run_to_completion
// indicates a simulator bug and must never be retried; the breaker
// tracks consecutive deadlock-surrogate results and opens rather than
// let a caller keep submitting jobs to a device that is stuck.
package breaker

import "sync"

// State is the breaker's state: closed or open. The teacher's
// half-open state has no counterpart here.
type State int

const (
	StateClosed State = iota
	StateOpen
)

// DeviceBreaker opens after maxFailures consecutive deadlock-surrogate
// results and stays open until the caller explicitly calls Reset --
// unlike the teacher's timeout-based half-open probing, there is no
// clock here to wait out: spec.md section 7 says a cap hit is never a
// valid runtime outcome, so there is nothing to "retry after a while"
// into.
type DeviceBreaker struct {
	mu          sync.Mutex
	state       State
	failures    int
	maxFailures int
}

// NewDeviceBreaker returns a closed breaker that opens after
// maxFailures consecutive cycle-cap hits.
func NewDeviceBreaker(maxFailures int) *DeviceBreaker {
	if maxFailures <= 0 {
		maxFailures = 1
	}
	return &DeviceBreaker{maxFailures: maxFailures}
}

// Allow reports whether a new job may be submitted to the guarded
// device.
func (b *DeviceBreaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state == StateClosed
}

// Success records a run_to_completion call that finished within the
// cycle cap, clearing the consecutive-failure count.
func (b *DeviceBreaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
}

// Failure records a deadlock-surrogate result. The breaker opens once
// maxFailures consecutive failures have been recorded.
func (b *DeviceBreaker) Failure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	if b.failures >= b.maxFailures {
		b.state = StateOpen
	}
}

// Reset closes the breaker and clears the failure count. Callers use
// this after resetting (or replacing) the underlying TensorCore --
// never automatically, since a cycle-cap hit is a bug to diagnose, not
// transient load to wait out.
func (b *DeviceBreaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.failures = 0
}

// State returns the current state.
func (b *DeviceBreaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
