// SPDX-FileCopyrightText: 2024 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

package button_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warthog618/gpiod"
	"github.com/warthog618/gpiorelay/button"
	"github.com/warthog618/gpiorelay/workq"
)

type calls struct {
	mu    sync.Mutex
	masks []uint64
	ch    chan struct{}
}

func newCalls() *calls {
	return &calls{ch: make(chan struct{}, 8)}
}

func (c *calls) handle(mask uint64) {
	c.mu.Lock()
	c.masks = append(c.masks, mask)
	c.mu.Unlock()
	c.ch <- struct{}{}
}

func (c *calls) get() []uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]uint64(nil), c.masks...)
}

func (c *calls) wait(t *testing.T) {
	t.Helper()
	select {
	case <-c.ch:
	case <-time.After(time.Second):
		t.Fatal("handler not called")
	}
}

func TestDefaultDelay(t *testing.T) {
	assert.Equal(t, 100*time.Millisecond, button.DefaultDelay)
}

func TestMask(t *testing.T) {
	assert.Equal(t, uint64(0), button.Mask())
	assert.Equal(t, uint64(1), button.Mask(0))
	assert.Equal(t, uint64(0x11), button.Mask(0, 4))
	assert.Equal(t, uint64(1)<<40, button.Mask(40))
	assert.Equal(t, uint64(1)<<63, button.Mask(button.MaxOffset))
}

func TestWatchInvalidOffset(t *testing.T) {
	q := workq.New(1)
	defer q.Close()
	d := button.New(q, func(uint64) {})
	defer d.Close()

	patterns := []struct {
		name    string
		offsets []int
	}{
		{"negative", []int{-1}},
		{"64", []int{4, 64}},
		{"70", []int{70}},
	}
	for _, p := range patterns {
		tf := func(t *testing.T) {
			// rejected before the chip is touched
			err := d.Watch(nil, p.offsets)
			assert.True(t, errors.Is(err, button.ErrInvalidOffset), err)
		}
		t.Run(p.name, tf)
	}
}

func TestEdgeDeferred(t *testing.T) {
	q := workq.New(2)
	defer q.Close()
	c := newCalls()
	delay := 30 * time.Millisecond
	d := button.New(q, c.handle, button.WithDelay(delay))
	defer d.Close()

	start := time.Now()
	d.Edge(button.Mask(3))
	// nothing runs in the edge context
	assert.Empty(t, c.get())
	c.wait(t)
	assert.GreaterOrEqual(t, time.Since(start), delay)
	assert.Equal(t, []uint64{button.Mask(3)}, c.get())
}

func TestEdgeCoalesces(t *testing.T) {
	q := workq.New(2)
	defer q.Close()
	c := newCalls()
	d := button.New(q, c.handle, button.WithDelay(40*time.Millisecond))
	defer d.Close()

	d.Edge(button.Mask(1))
	time.Sleep(5 * time.Millisecond)
	d.Edge(button.Mask(2))
	c.wait(t)
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, []uint64{button.Mask(2)}, c.get())
}

func TestHandleEvent(t *testing.T) {
	q := workq.New(2)
	defer q.Close()
	c := newCalls()
	d := button.New(q, c.handle, button.WithDelay(time.Millisecond))
	defer d.Close()

	d.HandleEvent(gpiod.LineEvent{Offset: 5, Type: gpiod.LineEventRisingEdge})
	c.wait(t)
	assert.Equal(t, []uint64{button.Mask(5)}, c.get())

	// later presses are dispatched again
	d.HandleEvent(gpiod.LineEvent{Offset: 6, Type: gpiod.LineEventRisingEdge})
	c.wait(t)
	assert.Equal(t, []uint64{button.Mask(5), button.Mask(6)}, c.get())
}

func TestCloseCancelsPending(t *testing.T) {
	q := workq.New(2)
	defer q.Close()
	c := newCalls()
	d := button.New(q, c.handle, button.WithDelay(30*time.Millisecond))
	d.Edge(button.Mask(1))
	require.Nil(t, d.Close())
	time.Sleep(60 * time.Millisecond)
	assert.Empty(t, c.get())
}
