// SPDX-FileCopyrightText: 2024 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

// Package mqtt provides the MQTT transport used to carry remote relay
// commands and state.
//
// Client wraps a paho client, publishing a retained online status on each
// connect, registering an offline will, and restoring subscriptions after a
// reconnect.
package mqtt

import (
	"errors"
	"fmt"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

const (
	connectTimeout    = 10 * time.Second
	operationTimeout  = 5 * time.Second
	disconnectQuiesce = 250 // milliseconds
	keepAlive         = 30 * time.Second
	maxQoS            = 2

	// StatusOnline is published, retained, to the status topic on connect.
	StatusOnline = "online"

	// StatusOffline is published to the status topic on Close, and by the
	// broker as the will if the connection is lost.
	StatusOffline = "offline"
)

var (
	// ErrConnectionFailed indicates the initial connection to the broker failed.
	ErrConnectionFailed = errors.New("mqtt connection failed")

	// ErrNotConnected indicates the client is not connected to the broker.
	ErrNotConnected = errors.New("mqtt not connected")

	// ErrPublishFailed indicates a publish was not acknowledged.
	ErrPublishFailed = errors.New("mqtt publish failed")

	// ErrSubscribeFailed indicates a subscribe was not acknowledged.
	ErrSubscribeFailed = errors.New("mqtt subscribe failed")

	// ErrInvalidTopic indicates an empty topic.
	ErrInvalidTopic = errors.New("mqtt topic cannot be empty")

	// ErrInvalidQoS indicates a QoS outside 0-2.
	ErrInvalidQoS = errors.New("mqtt QoS must be 0, 1 or 2")
)

// Config describes the broker connection.
type Config struct {
	// Broker is the broker URL, e.g. tcp://localhost:1883.
	Broker string

	ClientID string
	Username string
	Password string

	// StatusTopic receives the retained online/offline status.
	//
	// No status or will is published if empty.
	StatusTopic string

	// QoS applies to status publications.
	QoS byte
}

// MessageHandler is called, on its own goroutine, for each message received
// on a subscribed topic.
//
// Handlers may block, and may publish and wait for the ack. Messages are not
// guaranteed to be handled in order of arrival. A returned error is logged.
type MessageHandler func(topic string, payload []byte) error

type subscription struct {
	qos     byte
	handler MessageHandler
}

// Client is a connection to an MQTT broker.
type Client struct {
	cfg    Config
	client pahomqtt.Client
	log    *zap.SugaredLogger

	mu   sync.Mutex
	subs map[string]subscription
}

// Options returns the paho client options for the config.
func Options(cfg Config) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(connectTimeout)
	opts.SetKeepAlive(keepAlive)
	// handlers block for the duration of a command, so each must run on its
	// own goroutine to leave paho free to process acks.
	opts.SetOrderMatters(false)
	if cfg.StatusTopic != "" {
		opts.SetWill(cfg.StatusTopic, StatusOffline, cfg.QoS, true)
	}
	return opts
}

// Connect connects to the broker described by the config.
func Connect(cfg Config, log *zap.SugaredLogger) (*Client, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	c := &Client{
		cfg:  cfg,
		log:  log,
		subs: make(map[string]subscription),
	}
	opts := Options(cfg)
	opts.SetOnConnectHandler(func(pahomqtt.Client) { c.onConnect() })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.log.Warnw("mqtt connection lost", "broker", cfg.Broker, "error", err)
	})
	c.client = pahomqtt.NewClient(opts)
	t := c.client.Connect()
	if !t.WaitTimeout(connectTimeout) {
		c.client.Disconnect(0)
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, connectTimeout)
	}
	if err := t.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	return c, nil
}

func (c *Client) onConnect() {
	c.log.Infow("mqtt connected", "broker", c.cfg.Broker, "client", c.cfg.ClientID)
	c.mu.Lock()
	for topic, s := range c.subs {
		c.client.Subscribe(topic, s.qos, c.wrap(s.handler))
	}
	c.mu.Unlock()
	if c.cfg.StatusTopic != "" {
		c.client.Publish(c.cfg.StatusTopic, c.cfg.QoS, true, StatusOnline)
	}
}

// IsConnected returns true if the client is currently connected.
func (c *Client) IsConnected() bool {
	return c.client.IsConnected()
}

// Publish sends the payload to the topic and waits for it to be acknowledged.
func (c *Client) Publish(topic string, qos byte, retained bool, payload []byte) error {
	if err := validate(topic, qos); err != nil {
		return err
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	t := c.client.Publish(topic, qos, retained, payload)
	if !t.WaitTimeout(operationTimeout) {
		return fmt.Errorf("%w: %s: timeout after %v", ErrPublishFailed, topic, operationTimeout)
	}
	if err := t.Error(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPublishFailed, topic, err)
	}
	return nil
}

// Subscribe registers the handler for messages matching the topic filter.
//
// The subscription is restored if the connection is lost and re-established.
func (c *Client) Subscribe(topic string, qos byte, h MessageHandler) error {
	if err := validate(topic, qos); err != nil {
		return err
	}
	if h == nil {
		return fmt.Errorf("%w: %s: nil handler", ErrSubscribeFailed, topic)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	c.mu.Lock()
	c.subs[topic] = subscription{qos: qos, handler: h}
	c.mu.Unlock()
	t := c.client.Subscribe(topic, qos, c.wrap(h))
	var err error
	if !t.WaitTimeout(operationTimeout) {
		err = fmt.Errorf("%w: %s: timeout after %v", ErrSubscribeFailed, topic, operationTimeout)
	} else if terr := t.Error(); terr != nil {
		err = fmt.Errorf("%w: %s: %w", ErrSubscribeFailed, topic, terr)
	}
	if err != nil {
		c.mu.Lock()
		delete(c.subs, topic)
		c.mu.Unlock()
	}
	return err
}

// Close publishes the offline status and disconnects from the broker.
func (c *Client) Close() error {
	if c.IsConnected() && c.cfg.StatusTopic != "" {
		t := c.client.Publish(c.cfg.StatusTopic, c.cfg.QoS, true, StatusOffline)
		t.WaitTimeout(operationTimeout)
	}
	c.client.Disconnect(disconnectQuiesce)
	return nil
}

func (c *Client) wrap(h MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				c.log.Errorw("mqtt handler panic", "topic", msg.Topic(), "panic", r)
			}
		}()
		if err := h(msg.Topic(), msg.Payload()); err != nil {
			c.log.Warnw("mqtt handler failed", "topic", msg.Topic(), "error", err)
		}
	}
}

func validate(topic string, qos byte) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	return nil
}
