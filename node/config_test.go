// SPDX-FileCopyrightText: 2024 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

package node_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warthog618/config"
	"github.com/warthog618/config/dict"
	"github.com/warthog618/gpiod/device/rpi"
	"github.com/warthog618/gpiorelay"
	"github.com/warthog618/gpiorelay/node"
)

func newConfig(m map[string]interface{}) *config.Config {
	return config.New(dict.New(dict.WithMap(m)))
}

func TestLoadConfigDefaults(t *testing.T) {
	c, err := node.LoadConfig(newConfig(map[string]interface{}{}))
	require.Nil(t, err)
	assert.Equal(t, "gpiochip0", c.Chip)
	assert.Equal(t, "info", c.Log.Level)
	assert.Empty(t, c.Log.File)
	assert.Empty(t, c.Relays)
	assert.Empty(t, c.Buttons)
	assert.Equal(t, -1, c.LockOffset)
	assert.Nil(t, c.Bank)
	assert.Empty(t, c.IOConfig)
	assert.Nil(t, c.MQTT)
	assert.Nil(t, c.Influx)
}

func TestLoadConfig(t *testing.T) {
	cfg := newConfig(map[string]interface{}{
		"gpiochip": "gpiochip1",
		"log": map[string]interface{}{
			"level": "debug",
		},
		"relays": "light, fan",
		"relay": map[string]interface{}{
			"light": map[string]interface{}{
				"set":     "GPIO17",
				"reset":   "J8p13",
				"initial": "on",
			},
			"fan": map[string]interface{}{
				"set":   5,
				"reset": 6,
			},
		},
		"buttons": "door,hall",
		"button": map[string]interface{}{
			"door": map[string]interface{}{
				"offset": 23,
			},
			"hall": map[string]interface{}{
				"offset": "GPIO24",
				"target": "light",
			},
		},
		"lock": map[string]interface{}{
			"offset": 22,
		},
		"bank": map[string]interface{}{
			"bus":       "i2c-1",
			"addresses": "0x20,0x21, 34",
			"scl":       "GPIO3",
			"sda":       "GPIO2",
		},
		"ioconfig": map[string]interface{}{
			"offsets": "20,21",
		},
		"mqtt": map[string]interface{}{
			"enabled": "true",
			"node":    "hall",
		},
		"influx": map[string]interface{}{
			"enabled": true,
			"token":   "t0k3n",
		},
	})
	c, err := node.LoadConfig(cfg)
	require.Nil(t, err)
	assert.Equal(t, "gpiochip1", c.Chip)
	assert.Equal(t, "debug", c.Log.Level)
	assert.Equal(t, []node.RelayConfig{
		{Name: "light", Set: rpi.GPIO17, Reset: rpi.GPIO27, Initial: gpiorelay.StateOn},
		{Name: "fan", Set: 5, Reset: 6, Initial: gpiorelay.StateOff},
	}, c.Relays)
	assert.Equal(t, []node.ButtonConfig{
		{Name: "door", Offset: 23, Target: node.LockTarget},
		{Name: "hall", Offset: rpi.GPIO24, Target: "light"},
	}, c.Buttons)
	assert.Equal(t, 22, c.LockOffset)
	require.NotNil(t, c.Bank)
	assert.Equal(t, node.BankConfig{
		Bus:       "i2c-1",
		Addresses: []uint16{0x20, 0x21, 34},
		SCL:       rpi.GPIO3,
		SDA:       rpi.GPIO2,
	}, *c.Bank)
	assert.Equal(t, []int{20, 21}, c.IOConfig)
	require.NotNil(t, c.MQTT)
	assert.Equal(t, "tcp://localhost:1883", c.MQTT.Broker)
	assert.Equal(t, "relayd-hall", c.MQTT.ClientID)
	assert.Equal(t, "relayd/hall/status", c.MQTT.StatusTopic)
	assert.Equal(t, "relayd", c.MQTT.Prefix)
	assert.Equal(t, "hall", c.MQTT.Node)
	require.NotNil(t, c.Influx)
	assert.Equal(t, "http://localhost:8086", c.Influx.URL)
	assert.Equal(t, "t0k3n", c.Influx.Token)
	assert.Equal(t, "relayd", c.Influx.Bucket)
}

func TestLoadConfigErrors(t *testing.T) {
	patterns := []struct {
		name string
		m    map[string]interface{}
	}{
		{"missing reset", map[string]interface{}{
			"relays": "light",
			"relay": map[string]interface{}{
				"light": map[string]interface{}{"set": 17},
			},
		}},
		{"bad pin", map[string]interface{}{
			"lock": map[string]interface{}{"offset": "GPIO99"},
		}},
		{"reserved relay name", map[string]interface{}{
			"relays": "lock",
			"relay": map[string]interface{}{
				"lock": map[string]interface{}{"set": 1, "reset": 2},
			},
		}},
		{"bad initial", map[string]interface{}{
			"relays": "light",
			"relay": map[string]interface{}{
				"light": map[string]interface{}{"set": 1, "reset": 2, "initial": "maybe"},
			},
		}},
		{"lock target without lock", map[string]interface{}{
			"buttons": "door",
			"button": map[string]interface{}{
				"door": map[string]interface{}{"offset": 4},
			},
		}},
		{"button offset beyond mask", map[string]interface{}{
			"lock": map[string]interface{}{"offset": 3},
			"buttons": "door",
			"button": map[string]interface{}{
				"door": map[string]interface{}{"offset": 64},
			},
		}},
		{"unknown target", map[string]interface{}{
			"buttons": "door",
			"button": map[string]interface{}{
				"door": map[string]interface{}{"offset": 4, "target": "fan"},
			},
		}},
		{"bad address", map[string]interface{}{
			"bank": map[string]interface{}{"bus": "i2c-1", "addresses": "0x2g"},
		}},
		{"missing addresses", map[string]interface{}{
			"bank": map[string]interface{}{"bus": "i2c-1"},
		}},
		{"scl without sda", map[string]interface{}{
			"bank": map[string]interface{}{"bus": "i2c-1", "addresses": "0x20", "scl": 3},
		}},
		{"bad bool", map[string]interface{}{
			"mqtt": map[string]interface{}{"enabled": "sometimes"},
		}},
	}
	for _, p := range patterns {
		tf := func(t *testing.T) {
			_, err := node.LoadConfig(newConfig(p.m))
			assert.True(t, errors.Is(err, node.ErrInvalidConfig), err)
		}
		t.Run(p.name, tf)
	}
}

func TestParsePin(t *testing.T) {
	patterns := []struct {
		name   string
		offset int
		ok     bool
	}{
		{"0", 0, true},
		{"42", 42, true},
		{"GPIO4", rpi.GPIO4, true},
		{"gpio27", rpi.GPIO27, true},
		{"J8p7", rpi.J8p7, true},
		{"-1", 0, false},
		{"GPIO1", 0, false},
		{"J8p1", 0, false},
		{"pin", 0, false},
	}
	for _, p := range patterns {
		tf := func(t *testing.T) {
			o, err := node.ParsePin(p.name)
			if !p.ok {
				assert.NotNil(t, err)
				return
			}
			require.Nil(t, err)
			assert.Equal(t, p.offset, o)
		}
		t.Run(p.name, tf)
	}
}
