// SPDX-FileCopyrightText: 2024 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

//go:build linux

package node

import (
	"errors"
	"fmt"
	"sort"

	"github.com/warthog618/gpiod"
	"github.com/warthog618/gpiorelay"
	"github.com/warthog618/gpiorelay/bank"
	"github.com/warthog618/gpiorelay/button"
	"github.com/warthog618/gpiorelay/i2c"
	"github.com/warthog618/gpiorelay/ioconfig"
	"github.com/warthog618/gpiorelay/lock"
	"github.com/warthog618/gpiorelay/remote"
	"github.com/warthog618/gpiorelay/workq"
	"go.uber.org/zap"
)

// queueDepth is the number of work items that may be waiting for the worker.
const queueDepth = 16

// Node owns the hardware of a relay node and the work queue that serializes
// actions on it.
type Node struct {
	log     *zap.SugaredLogger
	chip    *gpiod.Chip
	q       *workq.Queue
	relays  map[string]*gpiorelay.LatchingRelay
	bank    *bank.Bank
	strike  *lock.Strike
	buttons *button.Dispatcher
	mode    ioconfig.Mode

	// closers release resources in reverse order of acquisition.
	closers []func() error
}

// New requests the lines and devices described by the config.
//
// On error any resources already acquired are released.
func New(cfg Config, log *zap.SugaredLogger) (n *Node, err error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	n = &Node{
		log:    log,
		relays: make(map[string]*gpiorelay.LatchingRelay),
	}
	defer func() {
		if err != nil {
			n.Close()
			n = nil
		}
	}()
	n.chip, err = gpiod.NewChip(cfg.Chip, gpiod.WithConsumer("relayd"))
	if err != nil {
		return n, err
	}
	n.closers = append(n.closers, n.chip.Close)
	if len(cfg.IOConfig) > 0 {
		if n.mode, err = ioconfig.ReadChip(n.chip, cfg.IOConfig); err != nil {
			return n, fmt.Errorf("ioconfig: %w", err)
		}
		log.Infow("board mode", "mode", n.mode)
	}
	for _, rc := range cfg.Relays {
		r, err := gpiorelay.RequestLatchingRelay(n.chip, rc.Set, rc.Reset,
			gpiorelay.WithInitialState(rc.Initial))
		if err != nil {
			return n, fmt.Errorf("relay %s: %w", rc.Name, err)
		}
		n.relays[rc.Name] = r
		n.closers = append(n.closers, r.Close)
	}
	if cfg.LockOffset >= 0 {
		if n.strike, err = lock.Request(n.chip, cfg.LockOffset); err != nil {
			return n, fmt.Errorf("lock: %w", err)
		}
		n.closers = append(n.closers, n.strike.Close)
	}
	if cfg.Bank != nil {
		if err = n.openBank(*cfg.Bank); err != nil {
			return n, fmt.Errorf("bank: %w", err)
		}
	}
	n.q = workq.New(queueDepth)
	n.closers = append(n.closers, n.q.Close)
	if len(cfg.Buttons) > 0 {
		rr := make(map[string]remote.Relay, len(n.relays))
		for name, r := range n.relays {
			rr[name] = r
		}
		var s remote.Strike
		if n.strike != nil {
			s = n.strike
		}
		h := NewButtonHandler(cfg.Buttons, rr, s, log)
		n.buttons = button.New(n.q, h.Handle)
		n.closers = append(n.closers, n.buttons.Close)
		offsets := make([]int, len(cfg.Buttons))
		for i, b := range cfg.Buttons {
			offsets[i] = b.Offset
		}
		if err = n.buttons.Watch(n.chip, offsets); err != nil {
			return n, fmt.Errorf("buttons: %w", err)
		}
	}
	return n, nil
}

func (n *Node) openBank(cfg BankConfig) error {
	var options []i2c.Option
	if cfg.SCL >= 0 {
		r, err := i2c.RequestGPIORecovery(n.chip, cfg.SCL, cfg.SDA)
		if err != nil {
			return err
		}
		n.closers = append(n.closers, r.Close)
		options = append(options, i2c.WithRecoverer(r))
	}
	bus, err := i2c.Open(cfg.Bus, options...)
	if err != nil {
		return err
	}
	n.closers = append(n.closers, bus.Close)
	n.bank = bank.New(bus, cfg.Addresses, bank.WithLogger(n.log))
	return nil
}

// Close stops the work queue and releases all lines and devices.
func (n *Node) Close() error {
	var errs []error
	for i := len(n.closers) - 1; i >= 0; i-- {
		if err := n.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	n.closers = nil
	return errors.Join(errs...)
}

// Queue returns the work queue that serializes actions on the node.
func (n *Node) Queue() *workq.Queue {
	return n.q
}

// Mode returns the board mode read from the strap lines.
func (n *Node) Mode() ioconfig.Mode {
	return n.mode
}

// RelayNames returns the names of the relays, sorted.
func (n *Node) RelayNames() []string {
	names := make([]string, 0, len(n.relays))
	for name := range n.relays {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Relay returns the named relay.
func (n *Node) Relay(name string) (*gpiorelay.LatchingRelay, bool) {
	r, ok := n.relays[name]
	return r, ok
}

// Bank returns the relay bank, or nil if the node has none.
func (n *Node) Bank() *bank.Bank {
	return n.bank
}

// Strike returns the door strike, or nil if the node has none.
func (n *Node) Strike() *lock.Strike {
	return n.strike
}
