// Heliograph - Realtime Event Gateway for Extension Catalogs
// Copyright 2026 The Heliograph Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/heliograph/heliograph

package events

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/heliograph/heliograph/internal/logging"
	"github.com/heliograph/heliograph/internal/metrics"
)

// Broadcaster is the slice of the gateway the pump needs. Satisfied by
// *realtime.Gateway.
type Broadcaster interface {
	BroadcastToChannel(channel, messageType string, payload any) int
	BroadcastToUser(principalID, messageType string, payload any) int
}

// Pump subscribes to every bus topic and relays each event to the gateway.
// Broadcast topics map onto the gateway channel of the same name; the user
// topic is routed to the addressed principal's connections. One goroutine
// per topic, all owned by Serve.
type Pump struct {
	bus         *Bus
	broadcaster Broadcaster
}

// NewPump wires the bus to the gateway.
func NewPump(bus *Bus, broadcaster Broadcaster) *Pump {
	return &Pump{bus: bus, broadcaster: broadcaster}
}

// Serve implements suture.Service. It subscribes to all topics before
// reporting ready and relays until the context is canceled.
func (p *Pump) Serve(ctx context.Context) error {
	topics := append(append([]string{}, BroadcastTopics...), TopicUser)

	streams := make(map[string]<-chan *message.Message, len(topics))
	for _, topic := range topics {
		stream, err := p.bus.Subscribe(ctx, topic)
		if err != nil {
			return fmt.Errorf("subscribe to %s: %w", topic, err)
		}
		streams[topic] = stream
	}

	logging.Info().
		Str("component", "event-pump").
		Strs("topics", topics).
		Msg("event pump started")

	done := make(chan struct{})
	for topic, stream := range streams {
		go p.relay(topic, stream, done)
	}

	<-ctx.Done()
	close(done)
	logging.Info().Str("component", "event-pump").Msg("event pump stopped")
	return ctx.Err()
}

// relay drains one topic until the stream closes or the pump stops. Every
// message is acked: the bus is at-most-once, so a malformed event is
// dropped and counted, never redelivered.
func (p *Pump) relay(topic string, stream <-chan *message.Message, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case msg, ok := <-stream:
			if !ok {
				return
			}
			p.handle(topic, msg)
			msg.Ack()
		}
	}
}

func (p *Pump) handle(topic string, msg *message.Message) {
	event, err := UnmarshalEvent(msg.Payload)
	if err != nil {
		metrics.BusEventsDropped.WithLabelValues(topic).Inc()
		logging.Warn().Err(err).Str("topic", topic).Str("message_uuid", msg.UUID).Msg("dropping malformed bus event")
		return
	}

	if topic == TopicUser {
		if event.UserID == "" {
			metrics.BusEventsDropped.WithLabelValues(topic).Inc()
			logging.Warn().Str("message_uuid", msg.UUID).Msg("dropping user event with no user id")
			return
		}
		p.broadcaster.BroadcastToUser(event.UserID, event.Type, event.Payload)
	} else {
		p.broadcaster.BroadcastToChannel(topic, event.Type, event.Payload)
	}

	metrics.BusEventsDelivered.WithLabelValues(topic).Inc()
}

// String implements fmt.Stringer for supervisor logging.
func (p *Pump) String() string {
	return "event-pump"
}
