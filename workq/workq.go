// SPDX-FileCopyrightText: 2024 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

// Package workq provides a single worker work queue with delayable work
// items.
//
// All work submitted to a Queue runs sequentially on one goroutine, so work
// items that drive the same hardware never interleave.
package workq

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrClosed indicates the queue is closed.
var ErrClosed = errors.New("closed")

// Queue runs submitted work, in order, on a single worker goroutine.
type Queue struct {
	mu     sync.RWMutex
	closed bool
	work   chan func()
	done   chan struct{}
}

// New creates a Queue and starts its worker.
//
// The depth is the number of items that may be pending before Submit blocks.
func New(depth int) *Queue {
	if depth < 1 {
		depth = 1
	}
	q := Queue{
		work: make(chan func(), depth),
		done: make(chan struct{}),
	}
	go q.run()
	return &q
}

func (q *Queue) run() {
	defer close(q.done)
	for fn := range q.work {
		fn()
	}
}

// Submit adds the work to the end of the queue.
func (q *Queue) Submit(fn func()) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrClosed
	}
	q.work <- fn
	return nil
}

// Do runs fn on the worker and waits for its result.
//
// If the ctx is done before fn completes then Do returns the ctx error, but
// fn still runs to completion on the worker.
func (q *Queue) Do(ctx context.Context, fn func() error) error {
	res := make(chan error, 1)
	if err := q.Submit(func() { res <- fn() }); err != nil {
		return err
	}
	select {
	case err := <-res:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the queue accepting work and waits for pending work to
// complete.
func (q *Queue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	q.closed = true
	close(q.work)
	q.mu.Unlock()
	<-q.done
	return nil
}

// Delayable is a reusable work item that is submitted to its Queue after a
// delay.
//
// A Delayable is pending from when it is scheduled until its work starts
// running, and scheduling a pending item has no effect.
type Delayable struct {
	q       *Queue
	fn      func()
	mu      sync.Mutex
	timer   *time.Timer
	pending bool
}

// NewDelayable creates a Delayable that runs fn on the queue.
func (q *Queue) NewDelayable(fn func()) *Delayable {
	return &Delayable{q: q, fn: fn}
}

// Schedule submits the work to the queue after the delay.
//
// Returns false if the work was already pending, in which case the existing
// schedule is unaltered.
func (d *Delayable) Schedule(delay time.Duration) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending {
		return false
	}
	d.pending = true
	d.timer = time.AfterFunc(delay, d.submit)
	return true
}

// Pending returns true if the work is scheduled and has not yet started.
func (d *Delayable) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// Cancel stops a scheduled work item that has not yet been submitted to the
// queue.
//
// Returns true if the work was cancelled.
func (d *Delayable) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer == nil || !d.timer.Stop() {
		return false
	}
	d.pending = false
	return true
}

func (d *Delayable) submit() {
	err := d.q.Submit(d.run)
	if err != nil {
		// queue closed - drop the work
		d.mu.Lock()
		d.pending = false
		d.mu.Unlock()
	}
}

func (d *Delayable) run() {
	d.mu.Lock()
	d.pending = false
	d.mu.Unlock()
	d.fn()
}
