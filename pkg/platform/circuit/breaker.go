// Package circuit is a two-state circuit breaker for optional dependencies.
//
// A closed breaker lets callers use the primary path. After a run of
// consecutive failures it opens, and callers take their fallback until a
// run of consecutive successes on probe calls closes it again.
package circuit

import "sync"

type State int

const (
	StateClosed State = iota
	StateOpen
)

func (s State) String() string {
	if s == StateOpen {
		return "open"
	}
	return "closed"
}

// Breaker counts consecutive outcomes. Safe for concurrent use.
type Breaker struct {
	mu               sync.Mutex
	name             string
	state            State
	failures         int
	successes        int
	failureThreshold int
	successThreshold int
	onChange         func(name string, to State)
}

type Option func(*Breaker)

// WithFailureThreshold sets the consecutive failures that open the circuit. Default 5.
func WithFailureThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.failureThreshold = n
		}
	}
}

// WithSuccessThreshold sets the consecutive successes that close it again. Default 3.
func WithSuccessThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.successThreshold = n
		}
	}
}

// WithStateChange registers a callback invoked on every transition, outside the lock.
func WithStateChange(fn func(name string, to State)) Option {
	return func(b *Breaker) { b.onChange = fn }
}

func New(name string, opts ...Option) *Breaker {
	b := &Breaker{name: name, failureThreshold: 5, successThreshold: 3}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func (b *Breaker) Name() string { return b.name }

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) IsOpen() bool { return b.State() == StateOpen }

// Record feeds one outcome into the breaker and returns the resulting state.
func (b *Breaker) Record(err error) State {
	b.mu.Lock()
	prev := b.state
	if err != nil {
		b.successes = 0
		b.failures++
		if b.failures >= b.failureThreshold {
			b.state = StateOpen
		}
	} else {
		b.failures = 0
		if b.state == StateOpen {
			b.successes++
			if b.successes >= b.successThreshold {
				b.state = StateClosed
				b.successes = 0
			}
		}
	}
	now := b.state
	b.mu.Unlock()

	if now != prev && b.onChange != nil {
		b.onChange(b.name, now)
	}
	return now
}

// Reset closes the breaker and clears its counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.failures = 0
	b.successes = 0
}
