// SPDX-FileCopyrightText: 2024 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

//go:build linux

package ioconfig_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warthog618/gpiod"
	"github.com/warthog618/gpiod/mockup"
	"github.com/warthog618/gpiorelay/ioconfig"
)

// Requires the gpio-mockup kernel module and root. Skipped otherwise.
func TestReadChipMockup(t *testing.T) {
	m, err := mockup.New([]int{8}, false)
	if err != nil {
		t.Skip("gpio-mockup unavailable:", err)
	}
	defer m.Close()
	mc, err := m.Chip(0)
	require.Nil(t, err)
	c, err := gpiod.NewChip(mc.Name, gpiod.WithConsumer("ioconfig-test"))
	require.Nil(t, err)
	defer c.Close()

	patterns := []struct {
		name   string
		values [2]int
		mode   ioconfig.Mode
	}{
		{"low low", [2]int{0, 0}, 0},
		{"high low", [2]int{1, 0}, 1},
		{"low high", [2]int{0, 1}, 2},
		{"high high", [2]int{1, 1}, 3},
	}
	for _, p := range patterns {
		tf := func(t *testing.T) {
			require.Nil(t, mc.SetValue(5, p.values[0]))
			require.Nil(t, mc.SetValue(6, p.values[1]))
			mode, err := ioconfig.ReadChip(c, []int{5, 6})
			require.Nil(t, err)
			assert.Equal(t, p.mode, mode)
			// lines are released
			l, err := c.RequestLine(5)
			require.Nil(t, err)
			l.Close()
		}
		t.Run(p.name, tf)
	}
	_, err = ioconfig.ReadChip(c, []int{5, 9})
	assert.NotNil(t, err)
}
