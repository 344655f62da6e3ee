// SPDX-FileCopyrightText: 2024 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

//go:build linux

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/warthog618/gpiorelay"
	"github.com/warthog618/gpiorelay/node"
)

func init() {
	rootCmd.AddCommand(relayCmd)
}

var relayCmd = &cobra.Command{
	Use:   "relay <name> on|off",
	Short: "Switch a latching relay",
	Long: `Switch a configured latching relay on or off.  The relay is assumed ` +
		`to be in its configured initial state, so a request matching that state ` +
		`is rejected.`,
	Args:                  cobra.ExactArgs(2),
	RunE:                  relay,
	DisableFlagsInUseLine: true,
}

func relay(cmd *cobra.Command, args []string) error {
	var action gpiorelay.Action
	switch strings.ToLower(args[1]) {
	case "on":
		action = gpiorelay.TurnOn
	case "off":
		action = gpiorelay.TurnOff
	default:
		return fmt.Errorf("unknown state '%s'", args[1])
	}
	name := args[0]
	n, _, err := openNode(cmd, func(nc *node.Config) {
		hardwareOnly(nc)
		nc.LockOffset = -1
		nc.Bank = nil
		var rr []node.RelayConfig
		for _, rc := range nc.Relays {
			if rc.Name == name {
				rr = append(rr, rc)
			}
		}
		nc.Relays = rr
	})
	if err != nil {
		return err
	}
	defer n.Close()
	r, ok := n.Relay(name)
	if !ok {
		return fmt.Errorf("unknown relay '%s'", name)
	}
	ok, err = r.InitiateAction(action, gpiorelay.ActorRemote)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Printf("%s: already %s\n", name, r.State())
		return nil
	}
	fmt.Printf("%s: %s\n", name, r.State())
	return nil
}
