// SPDX-FileCopyrightText: 2024 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

//go:build linux
// +build linux

// Package i2c provides access to I2C adapters through the Linux i2c-dev
// character devices.
//
// Each transfer carries its own target address, so a single Bus may be shared
// by drivers for several devices.
package i2c

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
)

// Bus is an I2C adapter opened via /dev/i2c-N.
type Bus struct {
	mu   sync.Mutex
	f    *os.File
	name string
	rec  Recoverer
}

// Recoverer un-wedges a bus left with a device holding SDA low.
type Recoverer interface {
	Recover() error
}

// Open opens the named I2C adapter.
//
// The name may be a path, such as "/dev/i2c-1", or just the device name,
// such as "i2c-1".
func Open(name string, options ...Option) (*Bus, error) {
	path := nameToPath(name)
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	b := Bus{f: f, name: path}
	for _, option := range options {
		option(&b)
	}
	return &b, nil
}

// Name returns the path of the adapter device.
func (b *Bus) Name() string {
	return b.name
}

// Close releases the adapter.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.f == nil {
		return ErrClosed
	}
	err := b.f.Close()
	b.f = nil
	return err
}

// Ready returns nil if the adapter is open and supports plain I2C transfers.
func (b *Bus) Ready() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.f == nil {
		return ErrClosed
	}
	funcs, err := getFuncs(b.f.Fd())
	if err != nil {
		return err
	}
	if funcs&funcI2C == 0 {
		return ErrNotSupported
	}
	return nil
}

// Recover performs bus recovery using the configured Recoverer.
//
// Without a Recoverer this is a no-op, as the kernel adapter driver performs
// its own recovery where the hardware supports it.
func (b *Bus) Recover() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.f == nil {
		return ErrClosed
	}
	if b.rec == nil {
		return nil
	}
	return b.rec.Recover()
}

// Read reads len(buf) bytes from the device at addr.
func (b *Bus) Read(addr uint16, buf []byte) error {
	return b.transfer(addr, msgRead, buf)
}

// Write writes buf to the device at addr.
func (b *Bus) Write(addr uint16, buf []byte) error {
	return b.transfer(addr, 0, buf)
}

func (b *Bus) transfer(addr uint16, flags uint16, buf []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.f == nil {
		return ErrClosed
	}
	if err := transfer(b.f.Fd(), addr, flags, buf); err != nil {
		return fmt.Errorf("%s addr 0x%02x: %w", b.name, addr, err)
	}
	return nil
}

// Option modifies the construction of a Bus.
type Option func(*Bus)

// WithRecoverer sets the procedure used by Recover.
func WithRecoverer(r Recoverer) Option {
	return func(b *Bus) {
		b.rec = r
	}
}

func nameToPath(name string) string {
	if strings.HasPrefix(name, "/dev/") {
		return name
	}
	return "/dev/" + name
}

var (
	// ErrClosed indicates the bus is closed.
	ErrClosed = errors.New("bus closed")

	// ErrNotSupported indicates the adapter does not support plain I2C
	// transfers.
	ErrNotSupported = errors.New("adapter does not support I2C transfers")
)
