// SPDX-FileCopyrightText: 2024 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

// Package remote adapts MQTT commands to relay, bank and lock operations, and
// mirrors relay transitions back to MQTT.
package remote

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/warthog618/gpiorelay"
	"github.com/warthog618/gpiorelay/mqtt"
	"go.uber.org/zap"
)

var (
	// ErrUnknownTarget indicates a command addressed to a topic, relay or
	// device the node does not have.
	ErrUnknownTarget = errors.New("unknown target")

	// ErrBadPayload indicates a command payload that is not valid for its
	// target.
	ErrBadPayload = errors.New("bad payload")
)

// Relay is the relay interface required by the Router.
//
// *gpiorelay.LatchingRelay satisfies this interface.
type Relay interface {
	InitiateAction(action gpiorelay.Action, actor gpiorelay.Actor) (bool, error)
	IsOn() bool
}

// Bank is the relay bank interface required by the Router.
type Bank interface {
	SetChannel(slot, channel int, on bool) error
}

// Strike is the door strike interface required by the Router.
type Strike interface {
	Pulse() error
}

// Executor runs work on behalf of the Router and returns its result.
//
// *workq.Queue satisfies this interface.
type Executor interface {
	Do(ctx context.Context, fn func() error) error
}

// Subscriber registers MQTT message handlers.
//
// *mqtt.Client satisfies this interface.
type Subscriber interface {
	Subscribe(topic string, qos byte, h mqtt.MessageHandler) error
}

// Router dispatches command messages to the node's actuators.
//
// All actuation is performed via the Executor, so commands are serialized
// with button actions.
type Router struct {
	topics Topics
	exec   Executor
	relays map[string]Relay
	bank   Bank
	strike Strike
	log    *zap.SugaredLogger
}

// NewRouter creates a Router for the topics that runs commands on the
// executor.
func NewRouter(topics Topics, exec Executor, options ...RouterOption) *Router {
	r := Router{
		topics: topics,
		exec:   exec,
		relays: make(map[string]Relay),
		log:    zap.NewNop().Sugar(),
	}
	for _, option := range options {
		option(&r)
	}
	return &r
}

// Subscribe subscribes the Router to all command topics.
func (r *Router) Subscribe(s Subscriber) error {
	for _, f := range r.topics.Filters() {
		if err := s.Subscribe(f, 1, r.Handle); err != nil {
			return err
		}
	}
	return nil
}

// Handle performs the command in the message.
//
// It blocks until the command has been performed.
func (r *Router) Handle(topic string, payload []byte) error {
	tgt, err := r.topics.parse(topic)
	if err != nil {
		return err
	}
	cmd := strings.ToUpper(strings.TrimSpace(string(payload)))
	switch tgt.kind {
	case targetRelay:
		return r.handleRelay(tgt.name, cmd)
	case targetBank:
		return r.handleBank(tgt.slot, tgt.channel, cmd)
	default:
		return r.handleLock(cmd)
	}
}

func (r *Router) handleRelay(name, cmd string) error {
	relay, ok := r.relays[name]
	if !ok {
		return fmt.Errorf("%w: relay %s", ErrUnknownTarget, name)
	}
	var action func() gpiorelay.Action
	switch cmd {
	case "ON":
		action = func() gpiorelay.Action { return gpiorelay.TurnOn }
	case "OFF":
		action = func() gpiorelay.Action { return gpiorelay.TurnOff }
	case "TOGGLE":
		action = func() gpiorelay.Action { return Toggle(relay) }
	default:
		return fmt.Errorf("%w: relay %s: %q", ErrBadPayload, name, cmd)
	}
	return r.exec.Do(context.Background(), func() error {
		a := action()
		ok, err := relay.InitiateAction(a, gpiorelay.ActorRemote)
		if err != nil {
			return fmt.Errorf("relay %s: %w", name, err)
		}
		if !ok {
			r.log.Debugw("action rejected", "relay", name, "action", a)
		}
		return nil
	})
}

func (r *Router) handleBank(slot, channel int, cmd string) error {
	if r.bank == nil {
		return fmt.Errorf("%w: bank", ErrUnknownTarget)
	}
	var on bool
	switch cmd {
	case "ON":
		on = true
	case "OFF":
	default:
		return fmt.Errorf("%w: bank %d/%d: %q", ErrBadPayload, slot, channel, cmd)
	}
	return r.exec.Do(context.Background(), func() error {
		return r.bank.SetChannel(slot, channel, on)
	})
}

func (r *Router) handleLock(cmd string) error {
	if r.strike == nil {
		return fmt.Errorf("%w: lock", ErrUnknownTarget)
	}
	if cmd != "PULSE" {
		return fmt.Errorf("%w: lock: %q", ErrBadPayload, cmd)
	}
	return r.exec.Do(context.Background(), r.strike.Pulse)
}

// Toggle returns the action that changes the relay to its opposite state.
func Toggle(r interface{ IsOn() bool }) gpiorelay.Action {
	if r.IsOn() {
		return gpiorelay.TurnOff
	}
	return gpiorelay.TurnOn
}

// RouterOption modifies the construction of a Router.
type RouterOption func(*Router)

// WithRelay adds a named relay to the Router.
func WithRelay(name string, relay Relay) RouterOption {
	return func(r *Router) {
		r.relays[name] = relay
	}
}

// WithBank sets the relay bank controlled by bank commands.
func WithBank(b Bank) RouterOption {
	return func(r *Router) {
		r.bank = b
	}
}

// WithStrike sets the door strike controlled by lock commands.
func WithStrike(s Strike) RouterOption {
	return func(r *Router) {
		r.strike = s
	}
}

// WithLogger sets the logger used to report rejected actions.
func WithLogger(log *zap.SugaredLogger) RouterOption {
	return func(r *Router) {
		r.log = log
	}
}
