// SPDX-FileCopyrightText: 2024 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

//go:build linux

package main

import (
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/warthog618/gpiod"
	"github.com/warthog618/gpiod/device/rpi"
	"github.com/warthog618/gpiorelay"
	"github.com/warthog618/gpiorelay/button"
	"github.com/warthog618/gpiorelay/workq"
)

// Watches a button on GPIO 4 (Raspberry Pi J8-7), pulled up and shorted to
// ground when pressed, and toggles a latching relay on GPIO 17 and 27 on
// each press.
func main() {
	c, err := gpiod.NewChip("gpiochip0", gpiod.WithConsumer("button_relay"))
	if err != nil {
		panic(err)
	}
	defer c.Close()

	r, err := gpiorelay.RequestLatchingRelay(c, rpi.GPIO17, rpi.GPIO27)
	if err != nil {
		panic(err)
	}
	defer r.Close()

	q := workq.New(1)
	defer q.Close()
	d := button.New(q, func(mask uint64) {
		a := gpiorelay.TurnOn
		if r.IsOn() {
			a = gpiorelay.TurnOff
		}
		ok, err := r.InitiateAction(a, gpiorelay.ActorButton)
		fmt.Printf("mask:0x%x %s ok:%t err:%v\n", mask, a, ok, err)
	})
	if err := d.Watch(c, []int{rpi.J8p7}); err != nil {
		fmt.Printf("Watch returned error: %s\n", err)
		if err == syscall.Errno(22) {
			fmt.Println("Note that the WithPullUp option requires kernel V5.5 or later - check your kernel version.")
		}
		os.Exit(1)
	}
	defer d.Close()

	// In a real application the main thread would do something useful.
	// But we'll just run for a minute then exit.
	fmt.Printf("Watching Pin %d...\n", rpi.J8p7)
	time.Sleep(time.Minute)
	fmt.Println("exiting...")
}
