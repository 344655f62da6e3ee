// SPDX-FileCopyrightText: 2024 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

package remote

import (
	"fmt"
	"strconv"
	"strings"
)

// Topics builds the topics used by a node.
//
// All topics are rooted at <Prefix>/<Node>.
type Topics struct {
	Prefix string
	Node   string
}

// Base returns the root of the node's topics.
func (t Topics) Base() string {
	return t.Prefix + "/" + t.Node
}

// Status returns the node status topic.
func (t Topics) Status() string {
	return t.Base() + "/status"
}

// RelaySet returns the command topic for the named relay.
func (t Topics) RelaySet(name string) string {
	return t.Base() + "/relay/" + name + "/set"
}

// RelayState returns the retained state topic for the named relay.
func (t Topics) RelayState(name string) string {
	return t.Base() + "/relay/" + name + "/state"
}

// RelayEvent returns the action event topic for the named relay.
func (t Topics) RelayEvent(name string) string {
	return t.Base() + "/relay/" + name + "/event"
}

// BankSet returns the command topic for a bank channel.
func (t Topics) BankSet(slot, channel int) string {
	return fmt.Sprintf("%s/bank/%d/%d/set", t.Base(), slot, channel)
}

// LockSet returns the command topic for the door strike.
func (t Topics) LockSet() string {
	return t.Base() + "/lock/set"
}

// Filters returns the topic filters covering all command topics.
func (t Topics) Filters() []string {
	return []string{
		t.RelaySet("+"),
		t.Base() + "/bank/+/+/set",
		t.LockSet(),
	}
}

type targetKind int

const (
	targetRelay targetKind = iota
	targetBank
	targetLock
)

type target struct {
	kind    targetKind
	name    string
	slot    int
	channel int
}

// parse identifies the target of a command topic.
func (t Topics) parse(topic string) (target, error) {
	rel, ok := strings.CutPrefix(topic, t.Base()+"/")
	if !ok {
		return target{}, fmt.Errorf("%w: %s", ErrUnknownTarget, topic)
	}
	f := strings.Split(rel, "/")
	switch {
	case len(f) == 3 && f[0] == "relay" && f[2] == "set" && f[1] != "":
		return target{kind: targetRelay, name: f[1]}, nil
	case len(f) == 4 && f[0] == "bank" && f[3] == "set":
		slot, err := strconv.Atoi(f[1])
		if err != nil {
			break
		}
		channel, err := strconv.Atoi(f[2])
		if err != nil {
			break
		}
		return target{kind: targetBank, slot: slot, channel: channel}, nil
	case len(f) == 2 && f[0] == "lock" && f[1] == "set":
		return target{kind: targetLock}, nil
	}
	return target{}, fmt.Errorf("%w: %s", ErrUnknownTarget, topic)
}
