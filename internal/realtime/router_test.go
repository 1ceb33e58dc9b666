// Heliograph - Realtime Event Gateway for Extension Catalogs
// Copyright 2026 The Heliograph Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/heliograph/heliograph

package realtime

import (
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/goccy/go-json"

	"github.com/heliograph/heliograph/internal/auth"
)

// newTestGateway builds a gateway on a mock clock. Connections for router
// and broadcast tests carry no transport; replies are read straight off the
// send channel.
func newTestGateway() (*Gateway, *clock.Mock) {
	mock := clock.NewMock()
	g := New(Options{Clock: mock})
	return g, mock
}

func addTestConnection(g *Gateway, principal *auth.Principal, buffer int) *Connection {
	c := newConnection(nil, principal, g.clock.Now(), buffer)
	g.registry.Add(c)
	return c
}

// nextFrame pops one queued outbound frame and decodes it.
func nextFrame(t *testing.T, c *Connection) *Envelope {
	t.Helper()
	select {
	case frame := <-c.send:
		var env Envelope
		if err := json.Unmarshal(frame, &env); err != nil {
			t.Fatalf("outbound frame is not a valid envelope: %v", err)
		}
		return &env
	case <-time.After(time.Second):
		t.Fatal("no outbound frame queued")
		return nil
	}
}

func assertNoFrame(t *testing.T, c *Connection) {
	t.Helper()
	select {
	case frame := <-c.send:
		t.Fatalf("unexpected outbound frame: %s", frame)
	default:
	}
}

func TestHandleInboundSubscribe(t *testing.T) {
	g, _ := newTestGateway()
	c := addTestConnection(g, nil, 16)

	g.HandleInbound(c, []byte(`{"type":"subscribe","payload":{"channels":["stats","nope"]}}`))

	env := nextFrame(t, c)
	if env.Type != MessageTypeSubscribed {
		t.Fatalf("reply type = %q, want subscribed", env.Type)
	}
	var payload SubscriptionPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		t.Fatalf("bad subscribed payload: %v", err)
	}
	if len(payload.Channels) != 1 || payload.Channels[0] != ChannelStats {
		t.Errorf("accepted = %v, want [stats] with unknown name dropped", payload.Channels)
	}
	if payload.TotalSubscriptions != 1 {
		t.Errorf("totalSubscriptions = %d, want 1", payload.TotalSubscriptions)
	}
	if env.Timestamp == "" {
		t.Error("outbound envelope must carry a timestamp")
	}
}

func TestHandleInboundUnsubscribe(t *testing.T) {
	g, _ := newTestGateway()
	c := addTestConnection(g, nil, 16)

	g.HandleInbound(c, []byte(`{"type":"subscribe","payload":{"channels":["stats","system"]}}`))
	nextFrame(t, c)

	g.HandleInbound(c, []byte(`{"type":"unsubscribe","payload":{"channels":["stats"]}}`))
	env := nextFrame(t, c)
	if env.Type != MessageTypeUnsubscribed {
		t.Fatalf("reply type = %q, want unsubscribed", env.Type)
	}
	var payload SubscriptionPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		t.Fatalf("bad unsubscribed payload: %v", err)
	}
	if len(payload.Channels) != 1 || payload.Channels[0] != ChannelStats {
		t.Errorf("removed = %v, want [stats]", payload.Channels)
	}
	if payload.TotalSubscriptions != 1 {
		t.Errorf("totalSubscriptions = %d, want 1 remaining", payload.TotalSubscriptions)
	}
}

func TestHandleInboundPing(t *testing.T) {
	g, mock := newTestGateway()
	c := addTestConnection(g, nil, 16)
	mock.Add(42 * time.Second)

	g.HandleInbound(c, []byte(`{"type":"ping"}`))

	env := nextFrame(t, c)
	if env.Type != MessageTypePong {
		t.Fatalf("reply type = %q, want pong", env.Type)
	}
	var payload PongPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		t.Fatalf("bad pong payload: %v", err)
	}
	if payload.Timestamp != mock.Now().UTC().Format(time.RFC3339) {
		t.Errorf("pong timestamp = %q, want current server time", payload.Timestamp)
	}
}

func TestHandleInboundMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `{{{`},
		{"no type", `{"payload":{}}`},
		{"subscribe payload wrong shape", `{"type":"subscribe","payload":"stats"}`},
		{"subscribe without payload", `{"type":"subscribe"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, _ := newTestGateway()
			c := addTestConnection(g, nil, 16)

			g.HandleInbound(c, []byte(tt.raw))

			env := nextFrame(t, c)
			if env.Type != MessageTypeError {
				t.Fatalf("reply type = %q, want error", env.Type)
			}
			var payload ErrorPayload
			if err := json.Unmarshal(env.Payload, &payload); err != nil {
				t.Fatalf("bad error payload: %v", err)
			}
			if payload.Message != "invalid message format" {
				t.Errorf("error message = %q, want invalid message format", payload.Message)
			}

			// Protocol errors never evict.
			if _, ok := g.registry.Get(c.ID); !ok {
				t.Error("connection should survive a malformed frame")
			}
		})
	}
}

func TestHandleInboundUnknownType(t *testing.T) {
	g, _ := newTestGateway()
	c := addTestConnection(g, nil, 16)

	g.HandleInbound(c, []byte(`{"type":"mystery"}`))

	env := nextFrame(t, c)
	if env.Type != MessageTypeError {
		t.Fatalf("reply type = %q, want error", env.Type)
	}
	var payload ErrorPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		t.Fatalf("bad error payload: %v", err)
	}
	if !strings.Contains(payload.Message, "mystery") {
		t.Errorf("error message %q should name the unknown type", payload.Message)
	}
	if _, ok := g.registry.Get(c.ID); !ok {
		t.Error("connection should survive an unknown message type")
	}
}

func TestHandleInboundRefreshesLastSeen(t *testing.T) {
	g, mock := newTestGateway()
	c := addTestConnection(g, nil, 16)

	mock.Add(45 * time.Second)
	g.HandleInbound(c, []byte(`{"type":"ping"}`))

	if !c.LastSeen().Equal(mock.Now()) {
		t.Errorf("LastSeen = %v, want %v; any inbound frame counts as activity", c.LastSeen(), mock.Now())
	}

	// Even a malformed frame proves the peer is alive.
	mock.Add(10 * time.Second)
	g.HandleInbound(c, []byte(`garbage`))
	if !c.LastSeen().Equal(mock.Now()) {
		t.Errorf("LastSeen = %v, want %v after malformed frame", c.LastSeen(), mock.Now())
	}
}

func TestHandleInboundUserActivity(t *testing.T) {
	t.Run("anonymous reports are dropped silently", func(t *testing.T) {
		g, _ := newTestGateway()
		sender := addTestConnection(g, nil, 16)
		watcher := addTestConnection(g, &auth.Principal{ID: "u2", Role: "user"}, 16)
		g.index.Subscribe(watcher.ID, true, []string{ChannelUserActivity})

		g.HandleInbound(sender, []byte(`{"type":"user_activity","payload":{"activity":{"page":"/search"}}}`))

		assertNoFrame(t, sender)
		assertNoFrame(t, watcher)
	})

	t.Run("authenticated reports reach subscribers", func(t *testing.T) {
		g, _ := newTestGateway()
		sender := addTestConnection(g, &auth.Principal{ID: "u1", Role: "user"}, 16)
		watcher := addTestConnection(g, &auth.Principal{ID: "u2", Role: "admin"}, 16)
		g.index.Subscribe(watcher.ID, true, []string{ChannelUserActivity})

		g.HandleInbound(sender, []byte(`{"type":"user_activity","payload":{"activity":{"page":"/search"}}}`))

		env := nextFrame(t, watcher)
		if env.Type != MessageTypeUserActivity {
			t.Fatalf("broadcast type = %q, want user_activity", env.Type)
		}
		if env.Channel != ChannelUserActivity {
			t.Errorf("broadcast channel = %q, want user_activity", env.Channel)
		}
		var payload UserActivityPayload
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			t.Fatalf("bad activity payload: %v", err)
		}
		if payload.UserID != "u1" {
			t.Errorf("userId = %q, want the reporting principal u1", payload.UserID)
		}
		if !strings.Contains(string(payload.Activity), "/search") {
			t.Errorf("activity %s should carry the client data verbatim", payload.Activity)
		}
	})

	t.Run("sender subscribed to the channel hears itself", func(t *testing.T) {
		g, _ := newTestGateway()
		sender := addTestConnection(g, &auth.Principal{ID: "u1", Role: "user"}, 16)
		g.index.Subscribe(sender.ID, true, []string{ChannelUserActivity})

		g.HandleInbound(sender, []byte(`{"type":"user_activity","payload":{"activity":"typing"}}`))

		env := nextFrame(t, sender)
		if env.Type != MessageTypeUserActivity {
			t.Fatalf("broadcast type = %q, want user_activity", env.Type)
		}
	})
}
