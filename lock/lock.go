// SPDX-FileCopyrightText: 2024 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

// Package lock drives a door strike released by a timed pulse on a single
// output line.
package lock

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/warthog618/gpiod"
)

// DefaultPulse is the time the strike is held released.
const DefaultPulse = 500 * time.Millisecond

// Output is a digital output line.
//
// *gpiod.Line satisfies this interface.
type Output interface {
	SetValue(value int) error
}

// Strike is a door strike.
//
// Pulses are serialized, so overlapping requests extend the release rather
// than cutting it short.
type Strike struct {
	mu     sync.Mutex
	line   Output
	pulse  time.Duration
	closer func() error
}

// New creates a Strike driving the line.
func New(line Output, options ...Option) *Strike {
	s := Strike{line: line, pulse: DefaultPulse}
	for _, option := range options {
		option(&s)
	}
	return &s
}

// Request requests the line from the chip as an output, initially inactive,
// and returns a Strike driving it.
func Request(c *gpiod.Chip, offset int, options ...Option) (*Strike, error) {
	l, err := c.RequestLine(offset, gpiod.AsOutput(0))
	if err != nil {
		return nil, err
	}
	s := New(l, options...)
	s.closer = l.Close
	return s, nil
}

// Close releases the line, if requested by Request.
func (s *Strike) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.line == nil {
		return ErrClosed
	}
	s.line = nil
	if s.closer != nil {
		return s.closer()
	}
	return nil
}

// Pulse releases the strike for the pulse period then re-engages it.
func (s *Strike) Pulse() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.line == nil {
		return ErrClosed
	}
	if err := s.line.SetValue(1); err != nil {
		return fmt.Errorf("release strike: %w", err)
	}
	time.Sleep(s.pulse)
	if err := s.line.SetValue(0); err != nil {
		return fmt.Errorf("engage strike: %w", err)
	}
	return nil
}

// Option modifies the construction of a Strike.
type Option func(*Strike)

// WithPulse overrides the release period.
func WithPulse(d time.Duration) Option {
	return func(s *Strike) {
		s.pulse = d
	}
}

// ErrClosed indicates the strike has been closed.
var ErrClosed = errors.New("closed")
