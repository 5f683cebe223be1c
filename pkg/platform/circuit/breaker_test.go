package circuit

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

var errBoom = errors.New("boom")

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var transitions []State
	b := New("redis", WithFailureThreshold(2), WithSuccessThreshold(2),
		WithStateChange(func(_ string, to State) { transitions = append(transitions, to) }))

	assert.Equal(t, StateClosed, b.Record(errBoom))
	assert.Equal(t, StateClosed, b.Record(nil), "success resets the failure run")
	assert.Equal(t, StateClosed, b.Record(errBoom))
	assert.Equal(t, StateOpen, b.Record(errBoom))
	assert.True(t, b.IsOpen())

	assert.Equal(t, StateOpen, b.Record(nil))
	assert.Equal(t, StateOpen, b.Record(errBoom), "failure resets the success run")
	assert.Equal(t, StateOpen, b.Record(nil))
	assert.Equal(t, StateClosed, b.Record(nil))

	assert.Equal(t, []State{StateOpen, StateClosed}, transitions)
}

func TestBreakerReset(t *testing.T) {
	b := New("redis", WithFailureThreshold(1))
	b.Record(errBoom)
	assert.Equal(t, "open", b.State().String())
	b.Reset()
	assert.False(t, b.IsOpen())
	assert.Equal(t, "redis", b.Name())
}
