// Package backoff implements the capped doubling reconnect delay.
//
// State is a value: Next and Reset return a new State and never mutate the
// receiver, so the caller decides when a step is committed.
package backoff

import "time"

const (
	DefaultBase    = 5 * time.Second
	DefaultCeiling = 60 * time.Second
)

type State struct {
	current time.Duration
	base    time.Duration
	ceiling time.Duration
}

// New returns a State positioned at base. Non-positive base falls back to
// DefaultBase; a ceiling below base is raised to base.
func New(base, ceiling time.Duration) State {
	if base <= 0 {
		base = DefaultBase
	}
	if ceiling < base {
		ceiling = base
	}
	return State{current: base, base: base, ceiling: ceiling}
}

// Default returns a State with the 5s/60s defaults.
func Default() State {
	return New(DefaultBase, DefaultCeiling)
}

// Next returns the delay to wait now and the State for the following failure.
func (s State) Next() (State, time.Duration) {
	delay := s.current

	next := s.current * 2
	// also guards against overflow for very large ceilings
	if next > s.ceiling || next < s.current {
		next = s.ceiling
	}
	s.current = next

	return s, delay
}

// Reset moves the State back to base.
func (s State) Reset() State {
	s.current = s.base
	return s
}

// Current is the delay the next call to Next will return.
func (s State) Current() time.Duration { return s.current }

func (s State) Base() time.Duration    { return s.base }
func (s State) Ceiling() time.Duration { return s.ceiling }
