// SPDX-FileCopyrightText: 2024 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

//go:build linux

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warthog618/gpiod"
	"github.com/warthog618/gpiod/device/rpi"
	"github.com/warthog618/gpiorelay"
)

// This example drives a latching relay with its set coil on GPIO 17 (J8-11)
// and reset coil on GPIO 27 (J8-13).
// The relay is switched every 5 seconds.
// Do not run this on a device which has these pins externally driven.
func main() {
	c, err := gpiod.NewChip("gpiochip0", gpiod.WithConsumer("relay_toggle"))
	if err != nil {
		panic(err)
	}
	defer c.Close()

	r, err := gpiorelay.RequestLatchingRelay(c, rpi.GPIO17, rpi.GPIO27,
		gpiorelay.WithListener(gpiorelay.ListenerFuncs{
			Completed: func(a gpiorelay.Action, actor gpiorelay.Actor) {
				fmt.Printf("%s by %s\n", a, actor)
			},
		}))
	if err != nil {
		panic(err)
	}
	defer r.Close()

	// capture exit signals to ensure the coils are released on exit.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	for {
		select {
		case <-time.After(5 * time.Second):
			a := gpiorelay.TurnOn
			if r.IsOn() {
				a = gpiorelay.TurnOff
			}
			if _, err := r.InitiateAction(a, gpiorelay.ActorRemote); err != nil {
				fmt.Printf("switch failed: %s\n", err)
			}
		case <-quit:
			return
		}
	}
}
