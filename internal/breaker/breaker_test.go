package breaker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewDeviceBreakerStartsClosed(t *testing.T) {
	b := NewDeviceBreaker(3)
	assert.Equal(t, StateClosed, b.State())
	assert.True(t, b.Allow())
}

func TestNewDeviceBreakerRejectsNonPositiveMaxFailures(t *testing.T) {
	b := NewDeviceBreaker(0)
	b.Failure()
	assert.Equal(t, StateOpen, b.State(), "maxFailures <= 0 must be treated as 1")
}

func TestDeviceBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	b := NewDeviceBreaker(3)
	b.Failure()
	assert.Equal(t, StateClosed, b.State())
	b.Failure()
	assert.Equal(t, StateClosed, b.State())
	b.Failure()
	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.Allow(), "Allow must report false once the breaker is open")
}

func TestDeviceBreakerSuccessClearsFailureCount(t *testing.T) {
	b := NewDeviceBreaker(3)
	b.Failure()
	b.Failure()
	b.Success()
	b.Failure()
	b.Failure()
	assert.Equal(t, StateClosed, b.State(), "Success must reset the consecutive-failure count")
}

func TestDeviceBreakerResetClosesAndClearsFailures(t *testing.T) {
	b := NewDeviceBreaker(1)
	b.Failure()
	assert.Equal(t, StateOpen, b.State())

	b.Reset()
	assert.Equal(t, StateClosed, b.State())
	assert.True(t, b.Allow())

	b.Failure()
	assert.Equal(t, StateOpen, b.State(), "a single failure must reopen a maxFailures=1 breaker after Reset")
}
