// SPDX-FileCopyrightText: 2024 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

package gpiorelay

import "time"

// Option defines the interface required to provide a LatchingRelay option.
type Option interface {
	applyRelayOption(*LatchingRelay)
}

// InitialStateOption sets the state a relay is assumed to be in at
// construction.
type InitialStateOption State

// WithInitialState sets the initial recorded state of the relay.
//
// When used with RequestLatchingRelay the coil lines are requested with the
// idle pattern for that state.
// The default is StateOff.
func WithInitialState(s State) InitialStateOption {
	return InitialStateOption(s)
}

func (o InitialStateOption) applyRelayOption(r *LatchingRelay) {
	r.state = State(o)
}

// PulseOption sets the coil pulse period.
type PulseOption time.Duration

// WithPulse overrides the coil pulse period.
//
// Relays are rated for DefaultPulse, so this is intended for testing.
func WithPulse(d time.Duration) PulseOption {
	return PulseOption(d)
}

func (o PulseOption) applyRelayOption(r *LatchingRelay) {
	r.pulse = time.Duration(o)
}

// ListenerOption registers a Listener at construction.
type ListenerOption struct {
	l Listener
}

// WithListener adds a Listener to the relay.
//
// The option may be repeated to add several listeners.
func WithListener(l Listener) ListenerOption {
	return ListenerOption{l}
}

func (o ListenerOption) applyRelayOption(r *LatchingRelay) {
	r.listeners = append(r.listeners, o.l)
}
