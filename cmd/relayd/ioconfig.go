// SPDX-FileCopyrightText: 2024 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

//go:build linux

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/warthog618/gpiod"
	"github.com/warthog618/gpiorelay/ioconfig"
	"github.com/warthog618/gpiorelay/node"
)

func init() {
	rootCmd.AddCommand(ioconfigCmd)
}

var ioconfigCmd = &cobra.Command{
	Use:                   "ioconfig",
	Short:                 "Read the board mode",
	Long:                  `Read the board mode from the configured strap lines.`,
	Args:                  cobra.NoArgs,
	RunE:                  readMode,
	DisableFlagsInUseLine: true,
}

func readMode(cmd *cobra.Command, args []string) error {
	nc, err := node.LoadConfig(loadConfig(cmd))
	if err != nil {
		return err
	}
	if len(nc.IOConfig) == 0 {
		return errors.New("no ioconfig lines configured")
	}
	c, err := gpiod.NewChip(nc.Chip, gpiod.WithConsumer("relayd-ioconfig"))
	if err != nil {
		return err
	}
	defer c.Close()
	m, err := ioconfig.ReadChip(c, nc.IOConfig)
	if err != nil {
		return err
	}
	fmt.Printf("mode=0x%x\n", uint(m))
	return nil
}
