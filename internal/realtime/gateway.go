// Heliograph - Realtime Event Gateway for Extension Catalogs
// Copyright 2026 The Heliograph Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/heliograph/heliograph

package realtime

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gorilla/websocket"

	"github.com/heliograph/heliograph/internal/auth"
	"github.com/heliograph/heliograph/internal/logging"
	"github.com/heliograph/heliograph/internal/metrics"
)

// Eviction reasons, recorded as metric labels and log fields.
const (
	evictReasonIdleTimeout    = "idle_timeout"
	evictReasonSendBufferFull = "send_buffer_full"
	evictReasonWriteFailed    = "write_failed"
	evictReasonReadClosed     = "read_closed"
	evictReasonShutdown       = "shutdown"
)

// Options configures a Gateway. Zero values fall back to the defaults
// below, so tests can construct a Gateway from a partial literal.
type Options struct {
	// ProbeInterval is how often the monitor sweeps. Default 30s.
	ProbeInterval time.Duration
	// IdleTimeout evicts a connection with no inbound activity for this
	// long. Default 60s, two missed probes.
	IdleTimeout time.Duration
	// WriteTimeout bounds a single frame write. Default 10s.
	WriteTimeout time.Duration
	// MaxMessageSize caps inbound frames in bytes. Default 4096; control
	// messages are small.
	MaxMessageSize int64
	// SendBuffer is the per-connection outbound queue. A connection that
	// overflows it is evicted as a slow peer. Default 256.
	SendBuffer int
	// Clock drives heartbeat sweeps and outbound timestamps. Default is
	// the wall clock; tests inject a mock.
	Clock clock.Clock
}

func (o *Options) withDefaults() {
	if o.ProbeInterval <= 0 {
		o.ProbeInterval = 30 * time.Second
	}
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = 2 * o.ProbeInterval
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = 4096
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = 256
	}
	if o.Clock == nil {
		o.Clock = clock.New()
	}
}

// Gateway owns the connection registry, the channel index, and the
// heartbeat monitor, and exposes the broadcast API the rest of the process
// uses to push events to clients. It is an explicitly constructed service:
// callers create one, hand it to a supervisor, and pass it by reference to
// whatever needs to broadcast. Multiple isolated instances coexist freely,
// which is what the tests do.
type Gateway struct {
	opts     Options
	registry *Registry
	index    *ChannelIndex
	monitor  *Monitor
	clock    clock.Clock
	started  time.Time
}

// New builds a Gateway and its heartbeat monitor. Nothing runs until Serve
// and the monitor's Serve are started, typically under the same supervisor.
func New(opts Options) *Gateway {
	opts.withDefaults()

	g := &Gateway{
		opts:     opts,
		registry: NewRegistry(),
		index:    NewChannelIndex(),
		clock:    opts.Clock,
		started:  opts.Clock.Now(),
	}
	g.monitor = newMonitor(g.registry, opts.ProbeInterval, opts.IdleTimeout, opts.Clock, g.Evict)
	return g
}

// Heartbeat returns the monitor as a supervisable service.
func (g *Gateway) Heartbeat() *Monitor {
	return g.monitor
}

// Serve implements suture.Service. The gateway itself is passive between
// events; Serve exists to tie connection lifetimes to the supervision tree.
// When the context is canceled every live connection is closed with a close
// frame.
func (g *Gateway) Serve(ctx context.Context) error {
	logging.Info().Str("component", "realtime-gateway").Msg("realtime gateway started")
	<-ctx.Done()

	closed := g.registry.Len()
	g.registry.ForEach(func(c *Connection) {
		g.Evict(c.ID, evictReasonShutdown)
	})
	logging.Info().
		Str("component", "realtime-gateway").
		Int("clients_closed", closed).
		Msg("realtime gateway stopped")
	return ctx.Err()
}

// Join admits an upgraded WebSocket connection. It registers the
// connection, queues the connection ack as the first outbound frame, and
// starts the read and write pumps. The principal may be nil; anonymous
// connections are first-class citizens here.
func (g *Gateway) Join(ws *websocket.Conn, principal *auth.Principal) *Connection {
	c := newConnection(ws, principal, g.clock.Now(), g.opts.SendBuffer)
	g.registry.Add(c)
	metrics.WSConnections.Inc()

	ack := ConnectionPayload{ClientID: c.ID}
	if principal != nil {
		ack.User = &ConnectedUser{
			ID:          principal.ID,
			Role:        principal.Role,
			Permissions: principal.Permissions,
		}
	}
	g.sendEnvelope(c, MessageTypeConnection, ack)

	go g.writePump(c)
	go g.readPump(c)

	logging.Info().
		Str("client_id", c.ID).
		Bool("authenticated", c.Authenticated()).
		Int("total_clients", g.registry.Len()).
		Msg("websocket client connected")
	return c
}

// Evict removes a connection from the registry and every channel, then
// closes its transport. Idempotent: the read pump, the write pump, the
// monitor, and broadcast failure handling can all race to evict the same
// id, and exactly one of them wins.
func (g *Gateway) Evict(id, reason string) {
	c, ok := g.registry.Get(id)
	if !ok {
		return
	}
	if !g.registry.Remove(id) {
		return
	}
	g.index.RemoveConnection(id)
	c.close()

	metrics.WSConnections.Dec()
	metrics.RecordEviction(reason)
	logging.Info().
		Str("client_id", id).
		Str("reason", reason).
		Int("total_clients", g.registry.Len()).
		Msg("websocket client disconnected")
}

// sendEnvelope marshals an outbound envelope and queues it on one
// connection. An overflowing send buffer evicts the peer.
func (g *Gateway) sendEnvelope(c *Connection, messageType string, payload any) {
	frame, err := marshalEnvelope(messageType, payload, "", g.clock.Now())
	if err != nil {
		logging.Error().Err(err).Str("message_type", messageType).Msg("failed to marshal envelope")
		return
	}
	if !c.enqueue(frame) {
		g.Evict(c.ID, evictReasonSendBufferFull)
	}
}

// Stats is the operator-facing snapshot served on the ops API.
type Stats struct {
	TotalClients  int            `json:"totalClients"`
	Channels      map[string]int `json:"channels"`
	UptimeSeconds int64          `json:"uptimeSeconds"`
}

// Stats reports the connected-client count and per-channel member counts.
func (g *Gateway) Stats() Stats {
	return Stats{
		TotalClients:  g.registry.Len(),
		Channels:      g.index.Counts(),
		UptimeSeconds: int64(g.clock.Now().Sub(g.started).Seconds()),
	}
}

// String implements fmt.Stringer for supervisor logging.
func (g *Gateway) String() string {
	return "realtime-gateway"
}
