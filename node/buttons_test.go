// SPDX-FileCopyrightText: 2024 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

package node_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/warthog618/gpiorelay"
	"github.com/warthog618/gpiorelay/button"
	"github.com/warthog618/gpiorelay/node"
	"github.com/warthog618/gpiorelay/remote"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeRelay struct {
	on      bool
	actions []string
	err     error
}

func (r *fakeRelay) InitiateAction(a gpiorelay.Action, actor gpiorelay.Actor) (bool, error) {
	r.actions = append(r.actions, fmt.Sprintf("%s %s", a, actor))
	if r.err != nil {
		return false, r.err
	}
	if (a == gpiorelay.TurnOn) == r.on {
		return false, nil
	}
	r.on = !r.on
	return true, nil
}

func (r *fakeRelay) IsOn() bool {
	return r.on
}

type fakeStrike struct {
	pulses int
	err    error
}

func (s *fakeStrike) Pulse() error {
	s.pulses++
	return s.err
}

var buttons = []node.ButtonConfig{
	{Name: "door", Offset: 4, Target: node.LockTarget},
	{Name: "hall", Offset: 17, Target: "light"},
	{Name: "porch", Offset: 27, Target: "porch"},
}

func TestButtonHandler(t *testing.T) {
	light := &fakeRelay{}
	porch := &fakeRelay{on: true}
	s := &fakeStrike{}
	h := node.NewButtonHandler(buttons,
		map[string]remote.Relay{"light": light, "porch": porch}, s, nil)

	h.Handle(button.Mask(17))
	assert.Equal(t, []string{"turn-on button"}, light.actions)
	assert.True(t, light.on)

	h.Handle(button.Mask(4))
	assert.Equal(t, 1, s.pulses)

	// all buttons in the mask are actioned
	h.Handle(button.Mask(27, 17, 4))
	assert.Equal(t, []string{"turn-on button", "turn-off button"}, light.actions)
	assert.Equal(t, []string{"turn-off button"}, porch.actions)
	assert.False(t, light.on)
	assert.False(t, porch.on)
	assert.Equal(t, 2, s.pulses)

	// unmapped lines are ignored
	h.Handle(button.Mask(5))
	assert.Len(t, light.actions, 2)
	assert.Equal(t, 2, s.pulses)
}

func TestButtonHandlerErrors(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	log := zap.New(core).Sugar()
	light := &fakeRelay{err: gpiorelay.ErrCoilWrite}
	s := &fakeStrike{err: errors.New("strike failed")}
	h := node.NewButtonHandler(buttons,
		map[string]remote.Relay{"light": light}, s, log)

	h.Handle(button.Mask(4, 17, 27))
	msgs := []string{}
	for _, e := range logs.All() {
		msgs = append(msgs, e.Message)
	}
	assert.Equal(t, []string{
		"lock pulse failed",
		"button action failed",
		"unknown button target",
	}, msgs)
}

func TestButtonHandlerNoStrike(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	h := node.NewButtonHandler(buttons, nil, nil, zap.New(core).Sugar())
	h.Handle(button.Mask(4))
	assert.Equal(t, 1, logs.FilterMessage("no strike for button").Len())
}
