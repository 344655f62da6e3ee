// SPDX-FileCopyrightText: 2024 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

package remote

import (
	"encoding/json"

	"github.com/warthog618/gpiorelay"
	"go.uber.org/zap"
)

// Publisher sends MQTT messages.
//
// *mqtt.Client satisfies this interface.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// Event is the payload published to a relay event topic.
type Event struct {
	Action string `json:"action"`
	Actor  string `json:"actor"`
	Phase  string `json:"phase"`
}

// StatePublisher mirrors the transitions of one relay to MQTT.
//
// It is a gpiorelay.Listener. Publish failures are logged, as listeners
// cannot fail a transition.
type StatePublisher struct {
	pub    Publisher
	topics Topics
	name   string
	log    *zap.SugaredLogger
}

// NewStatePublisher creates a StatePublisher for the named relay.
func NewStatePublisher(pub Publisher, topics Topics, name string, log *zap.SugaredLogger) *StatePublisher {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &StatePublisher{pub: pub, topics: topics, name: name, log: log}
}

// OnActionInitiated publishes an initiated event.
func (p *StatePublisher) OnActionInitiated(action gpiorelay.Action, actor gpiorelay.Actor) {
	p.publishEvent(action, actor, "initiated")
}

// OnActionCompleted publishes a completed event and the resulting state.
func (p *StatePublisher) OnActionCompleted(action gpiorelay.Action, actor gpiorelay.Actor) {
	p.publishEvent(action, actor, "completed")
	s := gpiorelay.StateOff
	if action == gpiorelay.TurnOn {
		s = gpiorelay.StateOn
	}
	p.PublishState(s)
}

// PublishState publishes the state, retained, to the relay state topic.
func (p *StatePublisher) PublishState(s gpiorelay.State) {
	payload := "OFF"
	if s == gpiorelay.StateOn {
		payload = "ON"
	}
	topic := p.topics.RelayState(p.name)
	if err := p.pub.Publish(topic, 1, true, []byte(payload)); err != nil {
		p.log.Warnw("state publish failed", "relay", p.name, "error", err)
	}
}

func (p *StatePublisher) publishEvent(action gpiorelay.Action, actor gpiorelay.Actor, phase string) {
	payload, err := json.Marshal(Event{
		Action: action.String(),
		Actor:  actor.String(),
		Phase:  phase,
	})
	if err != nil {
		p.log.Errorw("event encode failed", "relay", p.name, "error", err)
		return
	}
	topic := p.topics.RelayEvent(p.name)
	if err := p.pub.Publish(topic, 0, false, payload); err != nil {
		p.log.Warnw("event publish failed", "relay", p.name, "error", err)
	}
}
