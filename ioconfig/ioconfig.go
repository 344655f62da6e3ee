// SPDX-FileCopyrightText: 2024 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

// Package ioconfig reads the board mode from strap input lines.
package ioconfig

import (
	"time"

	"github.com/warthog618/gpiod"
)

// DefaultSettle is the time allowed for strap inputs to settle after being
// requested.
const DefaultSettle = 100 * time.Millisecond

// Mode is the board mode. Bit n is set if strap n reads active.
type Mode uint

// Input is a digital input line.
type Input interface {
	Value() (int, error)
}

// Read waits for the inputs to settle then returns the mode they encode.
func Read(inputs []Input, settle time.Duration) (Mode, error) {
	time.Sleep(settle)
	var m Mode
	for i, in := range inputs {
		v, err := in.Value()
		if err != nil {
			return 0, err
		}
		if v > 0 {
			m |= 1 << uint(i)
		}
	}
	return m, nil
}

// ReadChip requests the strap lines from the chip as inputs, reads the mode
// after DefaultSettle, and releases the lines.
func ReadChip(c *gpiod.Chip, offsets []int) (Mode, error) {
	inputs := make([]Input, 0, len(offsets))
	for _, o := range offsets {
		l, err := c.RequestLine(o, gpiod.AsInput)
		if err != nil {
			return 0, err
		}
		defer l.Close()
		inputs = append(inputs, l)
	}
	return Read(inputs, DefaultSettle)
}
