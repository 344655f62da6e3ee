// SPDX-FileCopyrightText: 2024 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

//go:build linux
// +build linux

package gpiorelay_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warthog618/gpiod"
	"github.com/warthog618/gpiod/mockup"
	"github.com/warthog618/gpiorelay"
)

// Requires the gpio-mockup kernel module and root. Skipped otherwise.
func TestRequestLatchingRelayMockup(t *testing.T) {
	m, err := mockup.New([]int{4}, false)
	if err != nil {
		t.Skip("gpio-mockup unavailable:", err)
	}
	defer m.Close()
	mc, err := m.Chip(0)
	require.Nil(t, err)
	c, err := gpiod.NewChip(mc.Name, gpiod.WithConsumer("gpiorelay-test"))
	require.Nil(t, err)
	defer c.Close()

	r, err := gpiorelay.RequestLatchingRelay(c, 1, 2,
		gpiorelay.WithInitialState(gpiorelay.StateOn),
		gpiorelay.WithPulse(testPulse))
	require.Nil(t, err)
	defer r.Close()

	lineValue := func(o int) int {
		v, err := mc.Value(o)
		require.Nil(t, err)
		return v
	}
	// on idle pattern
	assert.Equal(t, 1, lineValue(1))
	assert.Equal(t, 1, lineValue(2))

	ok, err := r.InitiateAction(gpiorelay.TurnOff, gpiorelay.ActorRemote)
	require.Nil(t, err)
	assert.True(t, ok)
	assert.Equal(t, 0, lineValue(1))
	assert.Equal(t, 0, lineValue(2))

	// lines are held until Close
	_, err = c.RequestLine(1)
	assert.NotNil(t, err)
	require.Nil(t, r.Close())
	l, err := c.RequestLine(1)
	assert.Nil(t, err)
	l.Close()
}
