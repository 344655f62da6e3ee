// SPDX-FileCopyrightText: 2024 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

package mqtt_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warthog618/gpiorelay/mqtt"
)

func TestOptions(t *testing.T) {
	cfg := mqtt.Config{
		Broker:      "tcp://broker.local:1883",
		ClientID:    "relayd-hall",
		Username:    "relay",
		Password:    "secret",
		StatusTopic: "relayd/hall/status",
		QoS:         1,
	}
	opts := mqtt.Options(cfg)
	require.Len(t, opts.Servers, 1)
	assert.Equal(t, "tcp://broker.local:1883", opts.Servers[0].String())
	assert.Equal(t, "relayd-hall", opts.ClientID)
	assert.Equal(t, "relay", opts.Username)
	assert.Equal(t, "secret", opts.Password)
	assert.True(t, opts.CleanSession)
	assert.True(t, opts.AutoReconnect)
	assert.False(t, opts.Order)
	assert.True(t, opts.WillEnabled)
	assert.Equal(t, "relayd/hall/status", opts.WillTopic)
	assert.Equal(t, []byte(mqtt.StatusOffline), opts.WillPayload)
	assert.Equal(t, byte(1), opts.WillQos)
	assert.True(t, opts.WillRetained)
}

func TestOptionsNoStatus(t *testing.T) {
	opts := mqtt.Options(mqtt.Config{Broker: "tcp://localhost:1883"})
	assert.False(t, opts.WillEnabled)
	assert.Empty(t, opts.Username)
}

func TestConnectFailure(t *testing.T) {
	// nothing listens on port 1 so the connection is refused
	c, err := mqtt.Connect(mqtt.Config{
		Broker:   "tcp://127.0.0.1:1",
		ClientID: "relayd-test",
	}, nil)
	if err == nil {
		c.Close()
		t.Skip("unexpected broker on port 1")
	}
	assert.True(t, errors.Is(err, mqtt.ErrConnectionFailed))
	assert.Nil(t, c)
}
