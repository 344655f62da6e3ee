// SPDX-FileCopyrightText: 2024 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

//go:build linux

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/warthog618/gpiorelay"
	"github.com/warthog618/gpiorelay/logging"
	"github.com/warthog618/gpiorelay/mqtt"
	"github.com/warthog618/gpiorelay/node"
	"github.com/warthog618/gpiorelay/remote"
	"github.com/warthog618/gpiorelay/telemetry"
	"go.uber.org/zap"
)

func init() {
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the relay daemon",
	Long: `Control the configured relays from MQTT commands and local buttons ` +
		`until terminated by a signal.`,
	Args:                  cobra.NoArgs,
	RunE:                  run,
	DisableFlagsInUseLine: true,
}

func run(cmd *cobra.Command, args []string) error {
	nc, err := node.LoadConfig(loadConfig(cmd))
	if err != nil {
		return err
	}
	log := logging.New(nc.Log)
	defer log.Sync()
	n, err := node.New(nc, log)
	if err != nil {
		return err
	}
	defer n.Close()
	for _, name := range n.RelayNames() {
		r, _ := n.Relay(name)
		r.AddListener(actionLogger(log, name))
	}
	var bank remote.Bank
	if b := n.Bank(); b != nil {
		bank = b
	}
	if nc.Influx != nil {
		ic, err := telemetry.Connect(*nc.Influx, log)
		if err != nil {
			return err
		}
		defer ic.Close()
		for _, name := range n.RelayNames() {
			r, _ := n.Relay(name)
			r.AddListener(telemetry.NewRecorder(ic.Writer(), name))
		}
		if bank != nil {
			bank = telemetry.NewBankRecorder(bank, ic.Writer())
		}
	}
	if nc.MQTT != nil {
		mc, err := mqtt.Connect(nc.MQTT.Config, log)
		if err != nil {
			return err
		}
		defer mc.Close()
		if err := startRemote(n, bank, mc, *nc.MQTT, log); err != nil {
			return err
		}
	}
	log.Infow("running", "relays", n.RelayNames(), "mode", n.Mode())
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	log.Infow("stopping")
	return nil
}

func startRemote(n *node.Node, bank remote.Bank, mc *mqtt.Client, cfg node.MQTTConfig, log *zap.SugaredLogger) error {
	topics := remote.Topics{Prefix: cfg.Prefix, Node: cfg.Node}
	options := []remote.RouterOption{remote.WithLogger(log)}
	for _, name := range n.RelayNames() {
		r, _ := n.Relay(name)
		sp := remote.NewStatePublisher(mc, topics, name, log)
		r.AddListener(sp)
		sp.PublishState(r.State())
		options = append(options, remote.WithRelay(name, r))
	}
	if bank != nil {
		options = append(options, remote.WithBank(bank))
	}
	if s := n.Strike(); s != nil {
		options = append(options, remote.WithStrike(s))
	}
	return remote.NewRouter(topics, n.Queue(), options...).Subscribe(mc)
}

func actionLogger(log *zap.SugaredLogger, name string) gpiorelay.Listener {
	return gpiorelay.ListenerFuncs{
		Initiated: func(a gpiorelay.Action, actor gpiorelay.Actor) {
			log.Debugw("relay action initiated", "relay", name, "action", a, "actor", actor)
		},
		Completed: func(a gpiorelay.Action, actor gpiorelay.Actor) {
			log.Infow("relay action completed", "relay", name, "action", a, "actor", actor)
		},
	}
}
