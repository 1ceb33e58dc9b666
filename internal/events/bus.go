// Heliograph - Realtime Event Gateway for Extension Catalogs
// Copyright 2026 The Heliograph Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/heliograph/heliograph

package events

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"

	"github.com/heliograph/heliograph/internal/metrics"
)

// Bus is the in-process event bus. Every producer in the process publishes
// through it and the pump is its one subscriber per topic. It exists so
// that catalog code never holds a gateway reference: producers publish and
// forget, the way the gateway itself broadcasts.
type Bus struct {
	pubsub *gochannel.GoChannel
}

// NewBus creates the bus. bufferSize is the per-subscriber channel depth;
// a subscriber that falls behind blocks publishers once its buffer fills,
// which suits the single in-process pump.
func NewBus(bufferSize int64, logger watermill.LoggerAdapter) *Bus {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return &Bus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: bufferSize,
		}, logger),
	}
}

// Publish puts one event on a topic. The event is marshaled once and
// carried as the message payload.
func (b *Bus) Publish(topic string, event *Event) error {
	data, err := event.Marshal()
	if err != nil {
		return err
	}

	msg := message.NewMessage(uuid.NewString(), data)
	if err := b.pubsub.Publish(topic, msg); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}

	metrics.BusEventsPublished.WithLabelValues(topic).Inc()
	return nil
}

// Subscribe returns the message stream for a topic. The channel closes
// when the context is canceled or the bus is closed.
func (b *Bus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return b.pubsub.Subscribe(ctx, topic)
}

// Close shuts the bus down and closes every subscriber channel.
func (b *Bus) Close() error {
	return b.pubsub.Close()
}
