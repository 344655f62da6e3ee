// SPDX-FileCopyrightText: 2024 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

// Package bank drives a bank of relays behind I/O expanders on a shared bus.
//
// Each expander exposes a single byte register holding four 2 bit channel
// fields. A channel is pulsed by writing 0b01 (on) or 0b10 (off) to its field,
// waiting the settle time, then clearing the field.
package bank

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultSettle is the time a channel field is held before it is released.
const DefaultSettle = 10 * time.Millisecond

// Channels is the number of channels in a device register.
const Channels = 4

const (
	fieldOn  = 0x01
	fieldOff = 0x02
)

// Address identifies a relay channel in the bank.
type Address struct {
	// Slot indexes the device table.
	Slot int

	// Channel is the 2 bit field within the device register.
	Channel int
}

func (a Address) String() string {
	return fmt.Sprintf("%d/%d", a.Slot, a.Channel)
}

// Bank is a set of expander devices sharing a bus.
//
// All methods are safe to call from multiple goroutines. Channel updates are
// serialized so the read-modify-write of one never interleaves with another.
type Bank struct {
	mu      sync.Mutex
	bus     Bus
	devices []uint16
	settle  time.Duration
	log     *zap.SugaredLogger
}

// New creates a Bank of the devices, given as bus addresses indexed by slot.
func New(bus Bus, devices []uint16, options ...Option) *Bank {
	b := Bank{
		bus:     bus,
		devices: append([]uint16(nil), devices...),
		settle:  DefaultSettle,
		log:     zap.NewNop().Sugar(),
	}
	for _, option := range options {
		option(&b)
	}
	return &b
}

// Slots returns the number of devices in the bank.
func (b *Bank) Slots() int {
	return len(b.devices)
}

// Validate returns an error if the address is not in the bank.
func (b *Bank) Validate(a Address) error {
	if a.Slot < 0 || a.Slot >= len(b.devices) {
		return fmt.Errorf("%w: slot %d not in [0,%d)", ErrInvalidAddress, a.Slot, len(b.devices))
	}
	if a.Channel < 0 || a.Channel >= Channels {
		return fmt.Errorf("%w: channel %d not in [0,%d)", ErrInvalidAddress, a.Channel, Channels)
	}
	return nil
}

// Set pulses the channel at the address.
func (b *Bank) Set(a Address, on bool) error {
	return b.SetChannel(a.Slot, a.Channel, on)
}

// SetChannel pulses the channel of the device in the slot on or off.
//
// The device register is read, the channel field set, written, held for the
// settle time, then cleared and written again. Other channel fields are
// preserved. Any failure aborts the remaining steps and is returned.
func (b *Bank) SetChannel(slot, channel int, on bool) error {
	if err := b.Validate(Address{slot, channel}); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	t := Transaction{bus: b.bus, slot: slot, addr: b.devices[slot], log: b.log}
	if err := t.Begin(); err != nil {
		return err
	}
	reg, err := t.ReadRegister()
	if err != nil {
		return err
	}
	shift := uint(2 * channel)
	reg &^= 0x03 << shift
	if on {
		reg |= fieldOn << shift
	} else {
		reg |= fieldOff << shift
	}
	if err = t.WriteRegister(reg); err != nil {
		return err
	}
	time.Sleep(b.settle)
	reg &^= 0x03 << shift
	return t.WriteRegister(reg)
}

// Option modifies the construction of a Bank.
type Option func(*Bank)

// WithSettle overrides the channel settle time.
//
// The expander relays are rated for DefaultSettle, so this is intended for
// testing.
func WithSettle(d time.Duration) Option {
	return func(b *Bank) {
		b.settle = d
	}
}

// WithLogger sets the logger used to report bus recovery failures and
// register writes.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(b *Bank) {
		b.log = l
	}
}

var (
	// ErrDeviceNotReady indicates the bus is not available.
	ErrDeviceNotReady = errors.New("device not ready")

	// ErrBusRead indicates the device register could not be read.
	ErrBusRead = errors.New("bus read failed")

	// ErrBusWrite indicates the device register could not be written.
	ErrBusWrite = errors.New("bus write failed")

	// ErrInvalidAddress indicates the slot or channel is out of range.
	ErrInvalidAddress = errors.New("invalid address")
)
