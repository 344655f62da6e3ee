// SPDX-FileCopyrightText: 2024 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

//go:build linux

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var version = "undefined"

func init() {
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:                   "version",
	Short:                 "Display the version",
	Long:                  `Display the version of relayd.`,
	Args:                  cobra.NoArgs,
	Run:                   printVersion,
	DisableFlagsInUseLine: true,
}

func printVersion(cmd *cobra.Command, args []string) {
	fmt.Printf("%s version %s\n", cmd.Root().Name(), version)
}
