// SPDX-FileCopyrightText: 2024 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

// Package gpiorelay drives electrically latching (bistable) relays wired to
// a pair of GPIO lines.
//
// A latching relay holds its contacts without power and is switched by a
// momentary pulse on one of its two coils. LatchingRelay sequences that pulse
// and reports each transition to any registered Listeners.
//
// Example of use:
//
//	c, err := gpiod.NewChip("gpiochip0")
//	if err != nil {
//		panic(err)
//	}
//	r, err := gpiorelay.RequestLatchingRelay(c, rpi.GPIO17, rpi.GPIO27)
//	if err != nil {
//		panic(err)
//	}
//	defer r.Close()
//	ok, err := r.InitiateAction(gpiorelay.TurnOn, gpiorelay.ActorRemote)
package gpiorelay

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/warthog618/gpiod"
)

// DefaultPulse is the time the coils are held in the switching pattern
// before being released to the idle pattern.
const DefaultPulse = 500 * time.Millisecond

// State is the recorded contact state of a relay.
type State int

const (
	// StateOff indicates the relay contacts are open.
	StateOff State = iota

	// StateOn indicates the relay contacts are closed.
	StateOn
)

func (s State) String() string {
	if s == StateOn {
		return "on"
	}
	return "off"
}

// Action is a request to change the state of a relay.
type Action int

const (
	// TurnOn requests the relay be switched on.
	TurnOn Action = iota

	// TurnOff requests the relay be switched off.
	TurnOff

	// SetLevel is accepted but never causes a transition on a relay.
	SetLevel

	// Invalid is accepted but never causes a transition.
	Invalid
)

var actionNames = map[Action]string{
	TurnOn:   "turn-on",
	TurnOff:  "turn-off",
	SetLevel: "set-level",
	Invalid:  "invalid",
}

func (a Action) String() string {
	if n, ok := actionNames[a]; ok {
		return n
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// Actor identifies the origin of an action.
//
// It is passed through to Listeners and is not otherwise interpreted.
type Actor int

const (
	// ActorRemote indicates the action was requested by a remote command.
	ActorRemote Actor = iota

	// ActorButton indicates the action was requested by a local button.
	ActorButton
)

func (a Actor) String() string {
	switch a {
	case ActorRemote:
		return "remote"
	case ActorButton:
		return "button"
	default:
		return fmt.Sprintf("actor(%d)", int(a))
	}
}

// Output is a digital output line.
//
// *gpiod.Line satisfies this interface.
type Output interface {
	SetValue(value int) error
}

// coil patterns as (set, reset) values.
type pattern [2]int

var (
	// drive patterns, applied for the pulse period.
	driveOn  = pattern{1, 0}
	driveOff = pattern{0, 1}

	// idle patterns, applied after the pulse and held.
	idleOn  = pattern{1, 1}
	idleOff = pattern{0, 0}
)

func idlePattern(s State) pattern {
	if s == StateOn {
		return idleOn
	}
	return idleOff
}

// LatchingRelay is a dual coil latching relay driven by two output lines.
//
// All methods are safe to call from multiple goroutines. InitiateAction holds
// the relay for the duration of the pulse so concurrent requests are
// serialized rather than interleaved.
type LatchingRelay struct {
	// op serializes transitions, mu guards state and listeners.
	op        sync.Mutex
	mu        sync.Mutex
	set       Output
	reset     Output
	state     State
	pulse     time.Duration
	listeners []Listener
	closers   []func() error
}

// NewLatchingRelay creates a LatchingRelay driving the set and reset coils.
//
// The coils are assumed to already be in the idle pattern for the initial
// state.
func NewLatchingRelay(set, reset Output, options ...Option) *LatchingRelay {
	r := LatchingRelay{
		set:   set,
		reset: reset,
		pulse: DefaultPulse,
	}
	for _, option := range options {
		option.applyRelayOption(&r)
	}
	return &r
}

// RequestLatchingRelay requests the set and reset lines from the chip as
// outputs, initialised to the idle pattern of the initial state, and returns
// a LatchingRelay driving them.
//
// The lines are released by Close.
func RequestLatchingRelay(c *gpiod.Chip, set, reset int, options ...Option) (*LatchingRelay, error) {
	r := NewLatchingRelay(nil, nil, options...)
	idle := idlePattern(r.state)
	sl, err := c.RequestLine(set, gpiod.AsOutput(idle[0]))
	if err != nil {
		return nil, err
	}
	rl, err := c.RequestLine(reset, gpiod.AsOutput(idle[1]))
	if err != nil {
		sl.Close()
		return nil, err
	}
	r.set = sl
	r.reset = rl
	r.closers = append(r.closers, sl.Close, rl.Close)
	return r, nil
}

// Close releases any lines requested by RequestLatchingRelay.
func (r *LatchingRelay) Close() error {
	r.op.Lock()
	defer r.op.Unlock()
	var errs []error
	for _, c := range r.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}

// State returns the recorded state of the relay.
func (r *LatchingRelay) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// IsOn returns true if the relay is recorded as on.
func (r *LatchingRelay) IsOn() bool {
	return r.State() == StateOn
}

// AddListener registers a Listener to be notified of transitions.
func (r *LatchingRelay) AddListener(l Listener) {
	r.mu.Lock()
	r.listeners = append(r.listeners, l)
	r.mu.Unlock()
}

// InitiateAction requests the relay perform the action on behalf of the
// actor.
//
// Only TurnOn from off and TurnOff from on cause a transition. Any other
// request is rejected and returns false without touching the coils or
// notifying listeners.
//
// An accepted transition notifies OnActionInitiated, pulses the coils,
// notifies OnActionCompleted and then records the new state. If a coil write
// fails the sequence is abandoned, the coils are returned to the idle
// pattern of the unchanged state, and a *CoilError is returned. If that
// restore also fails its error is joined into the CoilError, as the coils may
// still be energised.
func (r *LatchingRelay) InitiateAction(action Action, actor Actor) (bool, error) {
	r.op.Lock()
	defer r.op.Unlock()

	r.mu.Lock()
	prev := r.state
	ll := append([]Listener(nil), r.listeners...)
	r.mu.Unlock()

	var next State
	switch {
	case prev == StateOff && action == TurnOn:
		next = StateOn
	case prev == StateOn && action == TurnOff:
		next = StateOff
	default:
		return false, nil
	}
	for _, l := range ll {
		l.OnActionInitiated(action, actor)
	}
	if err := r.drive(next); err != nil {
		if rerr := r.apply(idlePattern(prev)); rerr != nil {
			err.Err = errors.Join(err.Err, fmt.Errorf("restore %s idle: %w", prev, rerr))
		}
		return false, err
	}
	for _, l := range ll {
		l.OnActionCompleted(action, actor)
	}
	r.mu.Lock()
	r.state = next
	r.mu.Unlock()
	return true, nil
}

// drive performs the two phase pulse towards the state.
func (r *LatchingRelay) drive(s State) *CoilError {
	drive := driveOff
	if s == StateOn {
		drive = driveOn
	}
	if err := r.apply(drive); err != nil {
		return &CoilError{Phase: PhaseDrive, Err: err}
	}
	time.Sleep(r.pulse)
	if err := r.apply(idlePattern(s)); err != nil {
		return &CoilError{Phase: PhaseRelease, Err: err}
	}
	return nil
}

func (r *LatchingRelay) apply(p pattern) error {
	if err := r.set.SetValue(p[0]); err != nil {
		return err
	}
	return r.reset.SetValue(p[1])
}

// Phase identifies the stage of the coil pulse.
type Phase int

const (
	// PhaseDrive is the initial switching pattern.
	PhaseDrive Phase = iota

	// PhaseRelease is the idle pattern applied after the pulse.
	PhaseRelease
)

func (p Phase) String() string {
	if p == PhaseRelease {
		return "release"
	}
	return "drive"
}

// ErrCoilWrite indicates a write to a relay coil line failed.
var ErrCoilWrite = errors.New("coil write failed")

// CoilError is returned when a coil write fails during a transition.
type CoilError struct {
	Phase Phase
	Err   error
}

func (e *CoilError) Error() string {
	return fmt.Sprintf("%s during %s: %s", ErrCoilWrite, e.Phase, e.Err)
}

// Is allows errors.Is(err, ErrCoilWrite).
func (e *CoilError) Is(target error) bool {
	return target == ErrCoilWrite
}

// Unwrap returns the underlying line error.
func (e *CoilError) Unwrap() error {
	return e.Err
}
