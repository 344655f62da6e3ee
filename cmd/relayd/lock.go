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
	rootCmd.AddCommand(lockCmd)
}

var lockCmd = &cobra.Command{
	Use:                   "lock",
	Short:                 "Pulse the door strike",
	Long:                  `Release the door strike for one pulse period.`,
	Args:                  cobra.NoArgs,
	RunE:                  lockPulse,
	DisableFlagsInUseLine: true,
}

func lockPulse(cmd *cobra.Command, args []string) error {
	n, _, err := openNode(cmd, func(nc *node.Config) {
		hardwareOnly(nc)
		nc.Relays = nil
		nc.Bank = nil
	})
	if err != nil {
		return err
	}
	defer n.Close()
	s := n.Strike()
	if s == nil {
		return errors.New("no lock configured")
	}
	return s.Pulse()
}
