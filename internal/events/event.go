// Heliograph - Realtime Event Gateway for Extension Catalogs
// Copyright 2026 The Heliograph Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/heliograph/heliograph

package events

import (
	"fmt"

	"github.com/goccy/go-json"
)

// Bus topics. Each broadcast topic maps 1:1 onto the gateway channel of
// the same name; user-targeted events ride a separate topic because they
// address a principal, not a channel.
const (
	TopicExtensions = "extensions"
	TopicStats      = "stats"
	TopicSystem     = "system"
	TopicUser       = "user"
)

// BroadcastTopics lists the topics the pump relays to gateway channels, in
// subscription order.
var BroadcastTopics = []string{TopicExtensions, TopicStats, TopicSystem}

// Event is the unit carried on the bus. Type becomes the outbound envelope
// type; Payload is relayed verbatim. UserID is set only on TopicUser
// events and names the principal the event is addressed to.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
	UserID  string          `json:"user_id,omitempty"`
}

// Marshal encodes the event for a bus or wire message.
func (e *Event) Marshal() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return data, nil
}

// UnmarshalEvent decodes a bus or NATS message back into an Event. An
// event without a type is malformed: the gateway cannot build an envelope
// from it.
func UnmarshalEvent(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("unmarshal event: %w", err)
	}
	if e.Type == "" {
		return nil, fmt.Errorf("event has no type")
	}
	return &e, nil
}
