// SPDX-FileCopyrightText: 2024 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

// Package telemetry records relay and bank activity to InfluxDB.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/warthog618/gpiorelay"
	"go.uber.org/zap"
)

const pingTimeout = 5 * time.Second

// ErrConnectionFailed indicates the InfluxDB server could not be reached.
var ErrConnectionFailed = errors.New("influxdb connection failed")

// Config describes the InfluxDB connection.
type Config struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

// PointWriter accepts points for asynchronous writing.
//
// api.WriteAPI satisfies this interface.
type PointWriter interface {
	WritePoint(p *write.Point)
}

// Client is a connection to an InfluxDB server.
type Client struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
}

// Connect connects to the server and checks it is healthy.
//
// Asynchronous write errors are logged.
func Connect(cfg Config, log *zap.SugaredLogger) (*Client, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token,
		influxdb2.DefaultOptions().SetBatchSize(20).SetFlushInterval(1000))
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	ok, err := client.Ping(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	if !ok {
		client.Close()
		return nil, fmt.Errorf("%w: %s not healthy", ErrConnectionFailed, cfg.URL)
	}
	w := client.WriteAPI(cfg.Org, cfg.Bucket)
	go func() {
		for err := range w.Errors() {
			log.Warnw("influxdb write failed", "error", err)
		}
	}()
	return &Client{client: client, writeAPI: w}, nil
}

// Writer returns the writer for the configured bucket.
func (c *Client) Writer() PointWriter {
	return c.writeAPI
}

// Close flushes pending points and closes the connection.
func (c *Client) Close() error {
	c.writeAPI.Flush()
	c.client.Close()
	return nil
}

// Recorder is a gpiorelay.Listener that writes a relay_action point for
// each phase of a transition.
//
// The completed point includes the time taken by the transition.
type Recorder struct {
	w     PointWriter
	relay string
	now   func() time.Time

	mu    sync.Mutex
	start time.Time
}

// NewRecorder creates a Recorder for the named relay.
func NewRecorder(w PointWriter, relay string) *Recorder {
	return &Recorder{w: w, relay: relay, now: time.Now}
}

// OnActionInitiated writes the initiated point.
func (r *Recorder) OnActionInitiated(action gpiorelay.Action, actor gpiorelay.Actor) {
	t := r.now()
	r.mu.Lock()
	r.start = t
	r.mu.Unlock()
	r.w.WritePoint(write.NewPoint("relay_action",
		r.tags(action, actor, "initiated"),
		map[string]interface{}{"count": 1},
		t))
}

// OnActionCompleted writes the completed point.
func (r *Recorder) OnActionCompleted(action gpiorelay.Action, actor gpiorelay.Actor) {
	t := r.now()
	r.mu.Lock()
	d := t.Sub(r.start)
	r.mu.Unlock()
	on := 0
	if action == gpiorelay.TurnOn {
		on = 1
	}
	r.w.WritePoint(write.NewPoint("relay_action",
		r.tags(action, actor, "completed"),
		map[string]interface{}{
			"count":       1,
			"state":       on,
			"duration_ms": float64(d) / float64(time.Millisecond),
		},
		t))
}

func (r *Recorder) tags(action gpiorelay.Action, actor gpiorelay.Actor, phase string) map[string]string {
	return map[string]string{
		"relay":  r.relay,
		"action": action.String(),
		"actor":  actor.String(),
		"phase":  phase,
	}
}

// Bank is the relay bank interface wrapped by BankRecorder.
type Bank interface {
	SetChannel(slot, channel int, on bool) error
}

// BankRecorder wraps a Bank and writes a bank_write point for each
// SetChannel.
type BankRecorder struct {
	Bank
	w PointWriter
}

// NewBankRecorder wraps the bank.
func NewBankRecorder(b Bank, w PointWriter) *BankRecorder {
	return &BankRecorder{Bank: b, w: w}
}

// SetChannel sets the channel on the wrapped bank and records the outcome.
func (b *BankRecorder) SetChannel(slot, channel int, on bool) error {
	err := b.Bank.SetChannel(slot, channel, on)
	state := 0
	if on {
		state = 1
	}
	b.w.WritePoint(write.NewPoint("bank_write",
		map[string]string{
			"slot":    strconv.Itoa(slot),
			"channel": strconv.Itoa(channel),
		},
		map[string]interface{}{
			"state": state,
			"ok":    err == nil,
		},
		time.Now()))
	return err
}
