// SPDX-FileCopyrightText: 2024 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

package bank

import (
	"fmt"

	"go.uber.org/zap"
)

// Bus is a shared register bus, such as an *i2c.Bus.
type Bus interface {
	// Ready returns nil if the bus can perform transfers.
	Ready() error

	// Recover attempts to return a wedged bus to idle.
	Recover() error

	// Read reads len(buf) bytes from the device at addr.
	Read(addr uint16, buf []byte) error

	// Write writes buf to the device at addr.
	Write(addr uint16, buf []byte) error
}

// Transaction performs single byte register accesses on one device.
//
// Begin must be called before the register is accessed, as it checks the bus
// and performs recovery.
type Transaction struct {
	bus  Bus
	slot int
	addr uint16
	log  *zap.SugaredLogger
}

// Begin checks the bus is ready then unconditionally recovers it.
//
// A recovery failure is logged but does not fail the transaction, as the
// following transfer reports any bus that remains wedged.
func (t Transaction) Begin() error {
	if err := t.bus.Ready(); err != nil {
		return t.wrap(ErrDeviceNotReady, err)
	}
	if err := t.bus.Recover(); err != nil {
		t.log.Warnw("bus recovery failed", "slot", t.slot, "addr", t.addr, "error", err)
	}
	return nil
}

// ReadRegister reads the device register.
func (t Transaction) ReadRegister() (byte, error) {
	buf := []byte{0}
	if err := t.bus.Read(t.addr, buf); err != nil {
		return 0, t.wrap(ErrBusRead, err)
	}
	return buf[0], nil
}

// WriteRegister writes the device register.
func (t Transaction) WriteRegister(v byte) error {
	if err := t.bus.Write(t.addr, []byte{v}); err != nil {
		return t.wrap(ErrBusWrite, err)
	}
	t.log.Debugw("register written", "slot", t.slot, "addr", t.addr, "value", fmt.Sprintf("0b%08b", v))
	return nil
}

func (t Transaction) wrap(kind, err error) error {
	return fmt.Errorf("%w: slot %d addr 0x%02x: %w", kind, t.slot, t.addr, err)
}
