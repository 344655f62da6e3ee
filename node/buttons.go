// SPDX-FileCopyrightText: 2024 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

package node

import (
	"math/bits"

	"github.com/warthog618/gpiorelay"
	"github.com/warthog618/gpiorelay/remote"
	"go.uber.org/zap"
)

// ButtonHandler maps button edges to actions on their targets.
//
// Relay targets are toggled. The lock target is pulsed.
type ButtonHandler struct {
	targets map[int]string
	relays  map[string]remote.Relay
	strike  remote.Strike
	log     *zap.SugaredLogger
}

// NewButtonHandler creates a ButtonHandler for the buttons.
//
// The strike may be nil if no button targets the lock.
func NewButtonHandler(buttons []ButtonConfig, relays map[string]remote.Relay,
	strike remote.Strike, log *zap.SugaredLogger) *ButtonHandler {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	h := ButtonHandler{
		targets: make(map[int]string),
		relays:  relays,
		strike:  strike,
		log:     log,
	}
	for _, b := range buttons {
		h.targets[b.Offset] = b.Target
	}
	return &h
}

// Handle performs the action for each button in the mask, in offset order.
//
// Errors are logged as there is no caller to return them to.
func (h *ButtonHandler) Handle(mask uint64) {
	for mask != 0 {
		offset := bits.TrailingZeros64(mask)
		mask &^= 1 << uint(offset)
		h.press(offset)
	}
}

func (h *ButtonHandler) press(offset int) {
	target, ok := h.targets[offset]
	if !ok {
		h.log.Debugw("no target for button", "offset", offset)
		return
	}
	if target == LockTarget {
		if h.strike == nil {
			h.log.Warnw("no strike for button", "offset", offset)
			return
		}
		if err := h.strike.Pulse(); err != nil {
			h.log.Errorw("lock pulse failed", "offset", offset, "error", err)
		}
		return
	}
	r, ok := h.relays[target]
	if !ok {
		h.log.Warnw("unknown button target", "offset", offset, "target", target)
		return
	}
	action := remote.Toggle(r)
	ok, err := r.InitiateAction(action, gpiorelay.ActorButton)
	switch {
	case err != nil:
		h.log.Errorw("button action failed", "relay", target, "action", action, "error", err)
	case !ok:
		h.log.Debugw("button action rejected", "relay", target, "action", action)
	default:
		h.log.Infow("button action", "relay", target, "action", action)
	}
}
