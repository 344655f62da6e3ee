// SPDX-FileCopyrightText: 2024 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

// Package node assembles the relays, bank, lock and buttons of a relay node
// from configuration.
package node

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/warthog618/config"
	"github.com/warthog618/gpiod/device/rpi"
	"github.com/warthog618/gpiorelay"
	"github.com/warthog618/gpiorelay/button"
	"github.com/warthog618/gpiorelay/logging"
	"github.com/warthog618/gpiorelay/mqtt"
	"github.com/warthog618/gpiorelay/telemetry"
)

// LockTarget is the button target that pulses the door strike.
const LockTarget = "lock"

// ErrInvalidConfig indicates the configuration is inconsistent or a value
// could not be parsed.
var ErrInvalidConfig = errors.New("invalid config")

// RelayConfig describes one latching relay.
type RelayConfig struct {
	Name    string
	Set     int
	Reset   int
	Initial gpiorelay.State
}

// ButtonConfig describes one local button.
type ButtonConfig struct {
	Name   string
	Offset int

	// Target is the name of the relay toggled by the button, or LockTarget.
	Target string
}

// BankConfig describes the I2C relay bank.
type BankConfig struct {
	// Bus is the i2c-dev adapter, e.g. i2c-1.
	Bus string

	// Addresses are the device addresses, indexed by slot.
	Addresses []uint16

	// SCL and SDA are the lines used for bus recovery, or -1 if the bus is
	// not recoverable.
	SCL int
	SDA int
}

// MQTTConfig describes the remote command transport.
type MQTTConfig struct {
	mqtt.Config
	Prefix string
	Node   string
}

// Config is the configuration of a node.
type Config struct {
	Chip string
	Log  logging.Config

	Relays  []RelayConfig
	Buttons []ButtonConfig

	// LockOffset is the door strike line, or -1 if there is no strike.
	LockOffset int

	// Bank is nil if there is no relay bank.
	Bank *BankConfig

	// IOConfig are the strap lines read to determine the board mode.
	IOConfig []int

	// MQTT is nil if remote commands are disabled.
	MQTT *MQTTConfig

	// Influx is nil if telemetry is disabled.
	Influx *telemetry.Config
}

// LoadConfig extracts the node configuration from cfg.
func LoadConfig(cfg *config.Config) (Config, error) {
	l := loader{cfg: cfg}
	c := Config{
		Chip: l.str("gpiochip", "gpiochip0"),
		Log: logging.Config{
			Level: l.str("log.level", "info"),
			File:  l.str("log.file", ""),
		},
		LockOffset: l.optPin("lock.offset"),
		IOConfig:   l.pins("ioconfig.offsets"),
	}
	for _, name := range list(l.str("relays", "")) {
		key := "relay." + name
		if name == LockTarget {
			l.fail(key, errors.New("reserved name"))
		}
		c.Relays = append(c.Relays, RelayConfig{
			Name:    name,
			Set:     l.pin(key + ".set"),
			Reset:   l.pin(key + ".reset"),
			Initial: l.state(key + ".initial"),
		})
	}
	for _, name := range list(l.str("buttons", "")) {
		key := "button." + name
		b := ButtonConfig{
			Name:   name,
			Offset: l.pin(key + ".offset"),
			Target: l.str(key+".target", LockTarget),
		}
		if b.Offset > button.MaxOffset {
			l.fail(key+".offset", fmt.Errorf("%w: %d", button.ErrInvalidOffset, b.Offset))
		}
		if !c.hasTarget(b.Target) {
			l.fail(key+".target", fmt.Errorf("unknown target %q", b.Target))
		}
		c.Buttons = append(c.Buttons, b)
	}
	if bus := l.str("bank.bus", ""); bus != "" {
		c.Bank = &BankConfig{
			Bus:       bus,
			Addresses: l.addresses("bank.addresses"),
			SCL:       l.optPin("bank.scl"),
			SDA:       l.optPin("bank.sda"),
		}
		if (c.Bank.SCL < 0) != (c.Bank.SDA < 0) {
			l.fail("bank.scl", errors.New("scl and sda must both be set"))
		}
	}
	if l.boolean("mqtt.enabled") {
		node := l.str("mqtt.node", "relayd")
		prefix := l.str("mqtt.prefix", "relayd")
		c.MQTT = &MQTTConfig{
			Config: mqtt.Config{
				Broker:      l.str("mqtt.broker", "tcp://localhost:1883"),
				ClientID:    l.str("mqtt.client", "relayd-"+node),
				Username:    l.str("mqtt.username", ""),
				Password:    l.str("mqtt.password", ""),
				StatusTopic: prefix + "/" + node + "/status",
				QoS:         1,
			},
			Prefix: prefix,
			Node:   node,
		}
	}
	if l.boolean("influx.enabled") {
		c.Influx = &telemetry.Config{
			URL:    l.str("influx.url", "http://localhost:8086"),
			Token:  l.str("influx.token", ""),
			Org:    l.str("influx.org", "relayd"),
			Bucket: l.str("influx.bucket", "relayd"),
		}
	}
	return c, errors.Join(l.errs...)
}

func (c Config) hasTarget(name string) bool {
	if name == LockTarget {
		return c.LockOffset >= 0
	}
	for _, r := range c.Relays {
		if r.Name == name {
			return true
		}
	}
	return false
}

// loader collects errors so all problems in a config are reported at once.
type loader struct {
	cfg  *config.Config
	errs []error
}

func (l *loader) fail(key string, err error) {
	l.errs = append(l.errs, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, key, err))
}

func (l *loader) str(key, def string) string {
	v, err := l.cfg.Get(key)
	if err != nil {
		return def
	}
	return strings.TrimSpace(v.String())
}

func (l *loader) boolean(key string) bool {
	s := l.str(key, "false")
	b, err := strconv.ParseBool(s)
	if err != nil {
		l.fail(key, err)
	}
	return b
}

func (l *loader) pin(key string) int {
	s := l.str(key, "")
	if s == "" {
		l.fail(key, errors.New("missing"))
		return -1
	}
	p, err := ParsePin(s)
	if err != nil {
		l.fail(key, err)
	}
	return p
}

func (l *loader) optPin(key string) int {
	if l.str(key, "") == "" {
		return -1
	}
	return l.pin(key)
}

func (l *loader) pins(key string) []int {
	var pp []int
	for _, s := range list(l.str(key, "")) {
		p, err := ParsePin(s)
		if err != nil {
			l.fail(key, err)
			continue
		}
		pp = append(pp, p)
	}
	return pp
}

func (l *loader) addresses(key string) []uint16 {
	var aa []uint16
	for _, s := range list(l.str(key, "")) {
		a, err := strconv.ParseUint(s, 0, 16)
		if err != nil {
			l.fail(key, err)
			continue
		}
		aa = append(aa, uint16(a))
	}
	if len(aa) == 0 {
		l.fail(key, errors.New("missing"))
	}
	return aa
}

func (l *loader) state(key string) gpiorelay.State {
	switch s := strings.ToLower(l.str(key, "off")); s {
	case "on", "1", "true":
		return gpiorelay.StateOn
	case "off", "0", "false":
		return gpiorelay.StateOff
	default:
		l.fail(key, fmt.Errorf("unknown state %q", s))
		return gpiorelay.StateOff
	}
}

// ParsePin converts a line identifier to an offset.
//
// A plain number is taken as the offset on the chip. Raspberry Pi names, such
// as GPIO17 or J8p11, are mapped to their offsets.
func ParsePin(s string) (int, error) {
	if o, err := strconv.Atoi(s); err == nil {
		if o < 0 {
			return 0, fmt.Errorf("negative offset %d", o)
		}
		return o, nil
	}
	return rpi.Pin(s)
}

// list splits a comma separated list, dropping empty elements.
func list(s string) []string {
	var ll []string
	for _, e := range strings.Split(s, ",") {
		if e = strings.TrimSpace(e); e != "" {
			ll = append(ll, e)
		}
	}
	return ll
}
