// SPDX-FileCopyrightText: 2024 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

//go:build linux
// +build linux

package i2c

import (
	"errors"
	"time"

	"github.com/warthog618/gpiod"
)

// RecoveryClocks is the number of SCL pulses generated during recovery.
//
// Nine clocks are sufficient for any slave part way through a byte to finish
// it and release SDA.
const RecoveryClocks = 9

// Line is a digital output line.
//
// *gpiod.Line satisfies this interface.
type Line interface {
	SetValue(value int) error
}

// GPIORecovery recovers a bus by bit bashing SCL and SDA with GPIO lines.
//
// The lines must be wired to the bus SCL and SDA and be requested as open
// drain, so releasing a line lets the bus pull-up take it high.
type GPIORecovery struct {
	// time between clock edges (i.e. half the cycle time)
	Thalf   time.Duration
	Scl     Line
	Sda     Line
	closers []func() error
}

// NewGPIORecovery creates a GPIORecovery using the lines.
func NewGPIORecovery(scl, sda Line, options ...RecoveryOption) *GPIORecovery {
	r := GPIORecovery{Scl: scl, Sda: sda}
	for _, option := range options {
		option(&r)
	}
	if r.Thalf == 0 {
		// default to 100kHz full cycle.
		r.Thalf = 5 * time.Microsecond
	}
	return &r
}

// RequestGPIORecovery requests the scl and sda lines from the chip as open
// drain outputs, initially released, and returns a GPIORecovery using them.
func RequestGPIORecovery(c *gpiod.Chip, scl, sda int, options ...RecoveryOption) (*GPIORecovery, error) {
	r := NewGPIORecovery(nil, nil, options...)
	sl, err := c.RequestLine(scl, gpiod.AsOpenDrain, gpiod.AsOutput(1))
	if err != nil {
		return nil, err
	}
	dl, err := c.RequestLine(sda, gpiod.AsOpenDrain, gpiod.AsOutput(1))
	if err != nil {
		sl.Close()
		return nil, err
	}
	r.Scl = sl
	r.Sda = dl
	r.closers = append(r.closers, sl.Close, dl.Close)
	return r, nil
}

// Close releases any lines requested by RequestGPIORecovery.
func (r *GPIORecovery) Close() error {
	var errs []error
	for _, c := range r.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}

// Recover clocks SCL RecoveryClocks times with SDA released, then generates
// a STOP condition.
//
// Starts and ends with both lines released.
func (r *GPIORecovery) Recover() error {
	err := r.Sda.SetValue(1)
	if err != nil {
		return err
	}
	for i := 0; i < RecoveryClocks; i++ {
		err = r.clock()
		if err != nil {
			return err
		}
	}
	return r.stop()
}

func (r *GPIORecovery) clock() error {
	err := r.Scl.SetValue(0)
	if err != nil {
		return err
	}
	time.Sleep(r.Thalf)
	err = r.Scl.SetValue(1)
	if err != nil {
		return err
	}
	time.Sleep(r.Thalf)
	return nil
}

// stop generates a STOP - SDA rising while SCL is high.
func (r *GPIORecovery) stop() error {
	steps := []struct {
		l Line
		v int
	}{
		{r.Scl, 0},
		{r.Sda, 0},
		{r.Scl, 1},
		{r.Sda, 1},
	}
	for _, s := range steps {
		if err := s.l.SetValue(s.v); err != nil {
			return err
		}
		time.Sleep(r.Thalf)
	}
	return nil
}

// RecoveryOption specifies a construction option for the GPIORecovery.
type RecoveryOption func(*GPIORecovery)

// WithThalf sets the half cycle period of the recovery clock.
func WithThalf(thalf time.Duration) RecoveryOption {
	return func(r *GPIORecovery) {
		r.Thalf = thalf
	}
}
