// Heliograph - Realtime Event Gateway for Extension Catalogs
// Copyright 2026 The Heliograph Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/heliograph/heliograph

package realtime

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// Message types exchanged over the wire.
const (
	MessageTypeConnection   = "connection"
	MessageTypeSubscribe    = "subscribe"
	MessageTypeSubscribed   = "subscribed"
	MessageTypeUnsubscribe  = "unsubscribe"
	MessageTypeUnsubscribed = "unsubscribed"
	MessageTypePing         = "ping"
	MessageTypePong         = "pong"
	MessageTypeUserActivity = "user_activity"
	MessageTypeError        = "error"
)

// Envelope is the unit of wire communication in both directions. Outbound
// envelopes always carry an RFC 3339 UTC timestamp; broadcast envelopes
// additionally carry the channel they were fanned out on.
type Envelope struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Channel   string          `json:"channel,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
}

// ParseEnvelope decodes an inbound frame. A frame that is not a JSON object
// or lacks a type discriminator is rejected here; the router turns the error
// into an error envelope rather than closing the connection.
func ParseEnvelope(raw []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("envelope has no type")
	}
	return &env, nil
}

// marshalEnvelope builds an outbound frame, stamping the timestamp and,
// for broadcasts, the channel. The payload is marshaled exactly once per
// frame regardless of how many connections it is delivered to.
func marshalEnvelope(messageType string, payload any, channel string, now time.Time) ([]byte, error) {
	env := Envelope{
		Type:      messageType,
		Channel:   channel,
		Timestamp: now.UTC().Format(time.RFC3339),
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", messageType, err)
		}
		env.Payload = data
	}
	frame, err := json.Marshal(&env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", messageType, err)
	}
	return frame, nil
}

// ConnectedUser is the identity block inside the connection ack. The field
// is null on the wire for anonymous connections.
type ConnectedUser struct {
	ID          string   `json:"id"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions,omitempty"`
}

// ConnectionPayload is sent once, immediately after accept.
type ConnectionPayload struct {
	ClientID string         `json:"clientId"`
	User     *ConnectedUser `json:"user"`
}

// SubscriptionPayload answers both subscribe and unsubscribe requests with
// the channel names that actually changed and the connection's new total.
type SubscriptionPayload struct {
	Channels           []string `json:"channels"`
	TotalSubscriptions int      `json:"totalSubscriptions"`
}

// PongPayload carries the server time a ping was answered at.
type PongPayload struct {
	Timestamp string `json:"timestamp"`
}

// ErrorPayload reports a protocol error back to the offending connection.
type ErrorPayload struct {
	Message string `json:"message"`
}

// UserActivityPayload is the fan-out shape for activity reports: the
// reporting principal's id plus the client-supplied activity data, relayed
// verbatim.
type UserActivityPayload struct {
	UserID   string          `json:"userId"`
	Activity json.RawMessage `json:"activity,omitempty"`
}

// channelRequest is the inbound payload of subscribe and unsubscribe.
type channelRequest struct {
	Channels []string `json:"channels"`
}

// activityRequest is the inbound payload of user_activity.
type activityRequest struct {
	Activity json.RawMessage `json:"activity"`
}
