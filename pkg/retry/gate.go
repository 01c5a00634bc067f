// Package retry decides when a repeating device failure should be reported
// again. It throttles reporting only; callers still attempt the underlying
// operation on every loop iteration.
package retry

import (
	"sync"
	"time"
)

// Delay bounds for repeated reports of the same failure.
const (
	InitialDelay = 1 * time.Second
	MaxDelay     = 30 * time.Second
)

// Failure classes used by the device layer.
const (
	ClassMicrophone = "microphone"
	ClassSpeaker    = "speaker"
	ClassCamera     = "camera"
)

// State is the backoff state for one failure class.
type State struct {
	Signature   string
	LastAttempt time.Time
	Delay       time.Duration
}

// Gate tracks one State per failure class. The zero value is not usable;
// create gates with New.
type Gate struct {
	mu     sync.Mutex
	now    func() time.Time
	states map[string]*State
}

// Option configures a Gate.
type Option func(*Gate)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

// New creates a Gate.
func New(opts ...Option) *Gate {
	g := &Gate{
		now:    time.Now,
		states: make(map[string]*State),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ShouldAct reports whether a failure with the given signature should be
// surfaced for class. A new signature is always surfaced and resets the delay.
// A repeated signature is surfaced once the current delay has elapsed, after
// which the delay doubles up to MaxDelay.
func (g *Gate) ShouldAct(class, signature string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	st, ok := g.states[class]
	if !ok {
		st = &State{}
		g.states[class] = st
	}

	if st.Signature != signature {
		st.Signature = signature
		st.Delay = InitialDelay
		st.LastAttempt = now
		return true
	}

	if now.Sub(st.LastAttempt) < st.Delay {
		return false
	}

	st.LastAttempt = now
	st.Delay *= 2
	if st.Delay > MaxDelay {
		st.Delay = MaxDelay
	}
	return true
}

// Succeeded clears the failure streak for class.
func (g *Gate) Succeeded(class string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if st, ok := g.states[class]; ok {
		st.Signature = ""
		st.Delay = InitialDelay
	}
}

// Snapshot returns a copy of the state for class, if any.
func (g *Gate) Snapshot(class string) (State, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	st, ok := g.states[class]
	if !ok {
		return State{}, false
	}
	return *st, true
}
