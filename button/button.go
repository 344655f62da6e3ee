// SPDX-FileCopyrightText: 2024 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

// Package button defers button edge events to a work queue.
//
// Edge events are delivered by gpiod on its watcher goroutine. The Dispatcher
// only records the pin mask and schedules a delayed work item, so no line or
// bus I/O is ever performed in the event context. The handler runs later on
// the work queue with the most recent mask.
package button

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/warthog618/gpiod"
	"github.com/warthog618/gpiorelay/workq"
)

// DefaultDelay is the settle time between an edge and the deferred handler.
const DefaultDelay = 100 * time.Millisecond

// MaxOffset is the highest line offset that can be represented in a mask.
const MaxOffset = 63

// ErrInvalidOffset indicates a line offset outside the range of a mask.
var ErrInvalidOffset = errors.New("offset out of range")

// Handler is called on the work queue with the pin mask of the latest edge.
//
// Bit n of the mask is set for line offset n.
type Handler func(mask uint64)

// Dispatcher coalesces button edges into a single deferred work item.
//
// An edge arriving while the work item is pending overwrites the pending mask
// rather than queueing a second call, so only the most recent edge is seen by
// the handler.
type Dispatcher struct {
	mu      sync.Mutex
	mask    uint64
	delay   time.Duration
	handler Handler
	work    *workq.Delayable
	lines   *gpiod.Lines
}

// New creates a Dispatcher that runs the handler on the queue.
func New(q *workq.Queue, h Handler, options ...Option) *Dispatcher {
	d := Dispatcher{
		delay:   DefaultDelay,
		handler: h,
	}
	for _, option := range options {
		option(&d)
	}
	d.work = q.NewDelayable(d.run)
	return &d
}

// Edge records the mask and schedules the handler, if not already scheduled.
//
// Edge does not block and is safe to call from event handlers.
func (d *Dispatcher) Edge(mask uint64) {
	d.mu.Lock()
	d.mask = mask
	d.mu.Unlock()
	d.work.Schedule(d.delay)
}

// HandleEvent is a gpiod event handler that forwards the edge to Edge.
func (d *Dispatcher) HandleEvent(evt gpiod.LineEvent) {
	d.Edge(Mask(evt.Offset))
}

// Mask returns the pin mask for the line offsets.
//
// Offsets above MaxOffset do not fit in the mask and are ignored.
func Mask(offsets ...int) uint64 {
	var m uint64
	for _, o := range offsets {
		m |= 1 << uint(o)
	}
	return m
}

// Watch requests the lines from the chip as active low inputs with pull-ups
// and forwards their active edges to the Dispatcher.
//
// The lines are released by Close. Offsets must be in the range
// [0, MaxOffset].
func (d *Dispatcher) Watch(c *gpiod.Chip, offsets []int) error {
	for _, o := range offsets {
		if o < 0 || o > MaxOffset {
			return fmt.Errorf("%w: %d", ErrInvalidOffset, o)
		}
	}
	l, err := c.RequestLines(offsets,
		gpiod.AsActiveLow,
		gpiod.WithPullUp,
		gpiod.WithRisingEdge,
		gpiod.WithEventHandler(d.HandleEvent))
	if err != nil {
		return err
	}
	d.mu.Lock()
	d.lines = l
	d.mu.Unlock()
	return nil
}

// Close releases any watched lines and cancels a pending work item.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	l := d.lines
	d.lines = nil
	d.mu.Unlock()
	d.work.Cancel()
	if l != nil {
		return l.Close()
	}
	return nil
}

func (d *Dispatcher) run() {
	d.mu.Lock()
	mask := d.mask
	d.mu.Unlock()
	d.handler(mask)
}

// Option modifies the construction of a Dispatcher.
type Option func(*Dispatcher)

// WithDelay overrides the settle delay.
//
// The default matches the hardware debounce, so this is intended for testing.
func WithDelay(delay time.Duration) Option {
	return func(d *Dispatcher) {
		d.delay = delay
	}
}
