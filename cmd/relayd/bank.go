// SPDX-FileCopyrightText: 2024 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

//go:build linux

package main

import (
	"errors"

	"github.com/spf13/cobra"
	"github.com/warthog618/gpiorelay/node"
)

func init() {
	bankCmd.Flags().IntVarP(&bankOpts.Slot, "slot", "s", 0, "the slot of the expander")
	bankCmd.Flags().IntVarP(&bankOpts.Channel, "channel", "c", 0, "the channel on the expander")
	bankCmd.Flags().BoolVarP(&bankOpts.On, "on", "o", false, "switch the channel on")
	bankCmd.Flags().BoolVarP(&bankOpts.Off, "off", "f", false, "switch the channel off")
	rootCmd.AddCommand(bankCmd)
}

var (
	bankCmd = &cobra.Command{
		Use:   "bank [flags]",
		Short: "Switch a relay bank channel",
		Long:  `Switch a channel of the I2C relay bank on or off.`,
		Args:  cobra.NoArgs,
		RunE:  bankSet,
	}
	bankOpts = struct {
		Slot    int
		Channel int
		On      bool
		Off     bool
	}{}
)

func bankSet(cmd *cobra.Command, args []string) error {
	if bankOpts.On == bankOpts.Off {
		return errors.New("exactly one of --on or --off is required")
	}
	n, _, err := openNode(cmd, func(nc *node.Config) {
		hardwareOnly(nc)
		nc.Relays = nil
		nc.LockOffset = -1
	})
	if err != nil {
		return err
	}
	defer n.Close()
	b := n.Bank()
	if b == nil {
		return errors.New("no relay bank configured")
	}
	return b.SetChannel(bankOpts.Slot, bankOpts.Channel, bankOpts.On)
}
