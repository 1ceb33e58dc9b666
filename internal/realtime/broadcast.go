// Heliograph - Realtime Event Gateway for Extension Catalogs
// Copyright 2026 The Heliograph Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/heliograph/heliograph

package realtime

import (
	"github.com/heliograph/heliograph/internal/logging"
	"github.com/heliograph/heliograph/internal/metrics"
)

// The broadcast primitives are fire-and-forget: at-most-once, no
// acknowledgement, no durability. A failure to enqueue on one connection
// evicts that connection and never interrupts delivery to the rest.
// The returned count is the number of connections the frame was queued for,
// which operators and tests use; it is not a delivery guarantee.

// BroadcastToChannel fans a message out to every subscriber of the named
// channel. The envelope is stamped with the channel and a timestamp and
// marshaled once.
func (g *Gateway) BroadcastToChannel(channel, messageType string, payload any) int {
	frame, err := marshalEnvelope(messageType, payload, channel, g.clock.Now())
	if err != nil {
		logging.Error().Err(err).Str("message_type", messageType).Msg("failed to marshal broadcast")
		return 0
	}

	queued := 0
	for _, id := range g.index.MembersOf(channel) {
		c, ok := g.registry.Get(id)
		if !ok {
			continue
		}
		if c.enqueue(frame) {
			queued++
		} else {
			g.Evict(id, evictReasonSendBufferFull)
		}
	}

	metrics.Broadcasts.WithLabelValues("channel").Inc()
	logging.Debug().
		Str("channel", channel).
		Str("message_type", messageType).
		Int("recipients", queued).
		Msg("channel broadcast")
	return queued
}

// BroadcastToUser delivers a message to every live connection carrying the
// given principal id; a user with several tabs or devices open gets it on
// each. The registry is scanned linearly, which is fine at the connection
// counts this process serves but would want a principal-to-connections
// index at larger scale.
func (g *Gateway) BroadcastToUser(principalID, messageType string, payload any) int {
	// Anonymous connections report an empty user id; an empty target must
	// not select them.
	if principalID == "" {
		return 0
	}

	frame, err := marshalEnvelope(messageType, payload, "", g.clock.Now())
	if err != nil {
		logging.Error().Err(err).Str("message_type", messageType).Msg("failed to marshal broadcast")
		return 0
	}

	queued := 0
	g.registry.ForEach(func(c *Connection) {
		if c.UserID() != principalID {
			return
		}
		if c.enqueue(frame) {
			queued++
		} else {
			g.Evict(c.ID, evictReasonSendBufferFull)
		}
	})

	metrics.Broadcasts.WithLabelValues("user").Inc()
	return queued
}

// BroadcastToAll delivers a message to every live connection regardless of
// subscriptions.
func (g *Gateway) BroadcastToAll(messageType string, payload any) int {
	frame, err := marshalEnvelope(messageType, payload, "", g.clock.Now())
	if err != nil {
		logging.Error().Err(err).Str("message_type", messageType).Msg("failed to marshal broadcast")
		return 0
	}

	queued := 0
	g.registry.ForEach(func(c *Connection) {
		if c.enqueue(frame) {
			queued++
		} else {
			g.Evict(c.ID, evictReasonSendBufferFull)
		}
	})

	metrics.Broadcasts.WithLabelValues("all").Inc()
	logging.Debug().
		Str("message_type", messageType).
		Int("recipients", queued).
		Msg("broadcast to all clients")
	return queued
}
