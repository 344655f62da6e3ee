// SPDX-FileCopyrightText: 2024 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

package mqtt_test

import (
	"fmt"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	mqttserver "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warthog618/gpiorelay/mqtt"
)

// startBroker runs an in-process broker for the duration of the test and
// returns its URL.
func startBroker(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skip("no loopback:", err)
	}
	addr := ln.Addr().String()
	ln.Close()
	server := mqttserver.New(&mqttserver.Options{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.Nil(t, server.AddHook(new(auth.AllowHook), nil))
	require.Nil(t, server.AddListener(listeners.NewTCP(listeners.Config{ID: "test", Address: addr})))
	go server.Serve()
	t.Cleanup(func() { server.Close() })
	return "tcp://" + addr
}

func TestHandlerMayWaitForAck(t *testing.T) {
	url := startBroker(t)
	c, err := mqtt.Connect(mqtt.Config{Broker: url, ClientID: "relayd-test"}, nil)
	require.Nil(t, err)
	defer c.Close()

	results := make(chan error, 3)
	h := func(topic string, payload []byte) error {
		// blocks the handler until the broker acks
		err := c.Publish("relayd/test/out", 1, false, payload)
		results <- err
		return err
	}
	require.Nil(t, c.Subscribe("relayd/test/in", 1, h))

	start := time.Now()
	for i := 0; i < cap(results); i++ {
		require.Nil(t, c.Publish("relayd/test/in", 1, false, []byte(fmt.Sprint(i))))
	}
	for i := 0; i < cap(results); i++ {
		select {
		case err := <-results:
			assert.Nil(t, err)
		case <-time.After(3 * time.Second):
			t.Fatal("handler publish did not complete")
		}
	}
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestStatusPublished(t *testing.T) {
	url := startBroker(t)
	obs, err := mqtt.Connect(mqtt.Config{Broker: url, ClientID: "observer"}, nil)
	require.Nil(t, err)
	defer obs.Close()
	status := make(chan string, 4)
	require.Nil(t, obs.Subscribe("relayd/hall/status", 1, func(topic string, payload []byte) error {
		status <- string(payload)
		return nil
	}))

	c, err := mqtt.Connect(mqtt.Config{
		Broker:      url,
		ClientID:    "relayd-hall",
		StatusTopic: "relayd/hall/status",
		QoS:         1,
	}, nil)
	require.Nil(t, err)
	expectStatus := func(s string) {
		select {
		case got := <-status:
			assert.Equal(t, s, got)
		case <-time.After(3 * time.Second):
			t.Fatalf("no %s status", s)
		}
	}
	expectStatus(mqtt.StatusOnline)
	require.Nil(t, c.Close())
	expectStatus(mqtt.StatusOffline)
}
