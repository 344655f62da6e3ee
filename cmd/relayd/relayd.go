// SPDX-FileCopyrightText: 2024 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

//go:build linux

// A daemon and utility to control latching relays, an I2C relay bank and a
// door strike.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/warthog618/config"
	"github.com/warthog618/config/blob"
	"github.com/warthog618/config/blob/decoder/json"
	"github.com/warthog618/config/dict"
	"github.com/warthog618/config/env"
	"github.com/warthog618/gpiorelay/logging"
	"github.com/warthog618/gpiorelay/node"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:   "relayd",
	Short: "relayd controls latching relays, a relay bank and a door strike",
	Long: "relayd controls latching relays, an I2C relay bank and a door strike " +
		"attached to a Linux GPIO character device, from MQTT commands or local buttons.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// flagKeys maps persistent flags to their config keys.
var flagKeys = map[string]string{
	"config-file": "config.file",
	"gpiochip":    "gpiochip",
	"log-level":   "log.level",
	"log-file":    "log.file",
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringP("config-file", "C", "relayd.json", "the configuration file")
	pf.String("gpiochip", "gpiochip0", "the GPIO chip the relays are attached to")
	pf.String("log-level", "info", "the minimum level logged (debug, info, warn or error)")
	pf.String("log-file", "", "log to the file, with rotation, rather than stderr")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func logErr(cmd *cobra.Command, err error) {
	fmt.Fprintf(os.Stderr, "relayd %s: %s\n", cmd.Name(), err)
}

// loadConfig builds the config from, in order of precedence, explicitly set
// flags, the environment, the config file and the defaults.
func loadConfig(cmd *cobra.Command) *config.Config {
	defaults := map[string]interface{}{}
	flags := map[string]interface{}{}
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok {
			return
		}
		setPath(defaults, key, f.DefValue)
		if f.Changed {
			setPath(flags, key, f.Value.String())
		}
	})
	cfg := config.New(
		dict.New(dict.WithMap(flags)),
		env.New(env.WithEnvPrefix("RELAYD_")),
		config.WithDefault(dict.New(dict.WithMap(defaults))))
	cfg.Append(
		blob.NewConfigFile(cfg, "config.file", "relayd.json", json.NewDecoder()))
	return cfg
}

// setPath stores the value in the nested map at the dotted key.
func setPath(m map[string]interface{}, key string, v interface{}) {
	path := strings.Split(key, ".")
	for _, p := range path[:len(path)-1] {
		sub, ok := m[p].(map[string]interface{})
		if !ok {
			sub = map[string]interface{}{}
			m[p] = sub
		}
		m = sub
	}
	m[path[len(path)-1]] = v
}

// openNode loads the node config, applies the filter, and opens the node.
func openNode(cmd *cobra.Command, filter func(*node.Config)) (*node.Node, *zap.SugaredLogger, error) {
	nc, err := node.LoadConfig(loadConfig(cmd))
	if err != nil {
		return nil, nil, err
	}
	if filter != nil {
		filter(&nc)
	}
	log := logging.New(nc.Log).Named(cmd.Name())
	n, err := node.New(nc, log)
	if err != nil {
		return nil, nil, err
	}
	return n, log, nil
}

// hardwareOnly drops the remote and telemetry config and the buttons, for
// one-shot commands.
func hardwareOnly(nc *node.Config) {
	nc.Buttons = nil
	nc.MQTT = nil
	nc.Influx = nil
}
