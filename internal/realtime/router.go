// Heliograph - Realtime Event Gateway for Extension Catalogs
// Copyright 2026 The Heliograph Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/heliograph/heliograph

package realtime

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/heliograph/heliograph/internal/logging"
	"github.com/heliograph/heliograph/internal/metrics"
)

// HandleInbound processes one inbound frame from a connection. Inbound
// frames are handled in arrival order on the connection's read pump, so no
// per-connection reordering is possible. Any frame, valid or not, counts as
// activity for liveness purposes.
//
// Protocol errors never close the connection: the offender gets an error
// envelope and everyone else is unaffected.
func (g *Gateway) HandleInbound(c *Connection, raw []byte) {
	c.Touch(g.clock.Now())
	metrics.WSMessagesReceived.Inc()

	env, err := ParseEnvelope(raw)
	if err != nil {
		metrics.WSErrors.WithLabelValues("parse").Inc()
		logging.Debug().Err(err).Str("client_id", c.ID).Msg("malformed inbound envelope")
		g.sendError(c, "invalid message format")
		return
	}

	switch env.Type {
	case MessageTypeSubscribe:
		g.handleSubscribe(c, env)
	case MessageTypeUnsubscribe:
		g.handleUnsubscribe(c, env)
	case MessageTypePing:
		g.sendEnvelope(c, MessageTypePong, PongPayload{
			Timestamp: g.clock.Now().UTC().Format(time.RFC3339),
		})
	case MessageTypeUserActivity:
		g.handleUserActivity(c, env)
	default:
		metrics.WSErrors.WithLabelValues("unknown_type").Inc()
		g.sendError(c, fmt.Sprintf("unknown message type: %s", env.Type))
	}
}

func (g *Gateway) handleSubscribe(c *Connection, env *Envelope) {
	var req channelRequest
	if err := json.Unmarshal(env.Payload, &req); err != nil {
		metrics.WSErrors.WithLabelValues("parse").Inc()
		g.sendError(c, "invalid message format")
		return
	}

	accepted := g.index.Subscribe(c.ID, c.Authenticated(), req.Channels)
	logging.Debug().
		Str("client_id", c.ID).
		Strs("accepted", accepted).
		Msg("subscribe handled")

	g.sendEnvelope(c, MessageTypeSubscribed, SubscriptionPayload{
		Channels:           accepted,
		TotalSubscriptions: g.index.SubscriptionCount(c.ID),
	})
}

func (g *Gateway) handleUnsubscribe(c *Connection, env *Envelope) {
	var req channelRequest
	if err := json.Unmarshal(env.Payload, &req); err != nil {
		metrics.WSErrors.WithLabelValues("parse").Inc()
		g.sendError(c, "invalid message format")
		return
	}

	removed := g.index.Unsubscribe(c.ID, req.Channels)
	g.sendEnvelope(c, MessageTypeUnsubscribed, SubscriptionPayload{
		Channels:           removed,
		TotalSubscriptions: g.index.SubscriptionCount(c.ID),
	})
}

// handleUserActivity relays an activity report to the user_activity
// channel. Reports from anonymous connections are dropped silently: activity
// telemetry is best-effort, and an error envelope here would punish clients
// that send it speculatively.
func (g *Gateway) handleUserActivity(c *Connection, env *Envelope) {
	if !c.Authenticated() {
		logging.Debug().Str("client_id", c.ID).Msg("dropping activity report from anonymous connection")
		return
	}

	var req activityRequest
	if err := json.Unmarshal(env.Payload, &req); err != nil {
		metrics.WSErrors.WithLabelValues("parse").Inc()
		g.sendError(c, "invalid message format")
		return
	}

	g.BroadcastToChannel(ChannelUserActivity, MessageTypeUserActivity, UserActivityPayload{
		UserID:   c.UserID(),
		Activity: req.Activity,
	})
}

func (g *Gateway) sendError(c *Connection, message string) {
	g.sendEnvelope(c, MessageTypeError, ErrorPayload{Message: message})
}
