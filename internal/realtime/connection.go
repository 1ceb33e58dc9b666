// Heliograph - Realtime Event Gateway for Extension Catalogs
// Copyright 2026 The Heliograph Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/heliograph/heliograph

package realtime

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/heliograph/heliograph/internal/auth"
	"github.com/heliograph/heliograph/internal/logging"
	"github.com/heliograph/heliograph/internal/metrics"
)

// Connection is one live WebSocket session. The underlying transport is
// exclusively owned by the connection's writer goroutine: every frame,
// including ping control frames and the close frame, goes through it.
// The principal is fixed at accept time; re-authentication requires a new
// connection.
type Connection struct {
	// ID is process-unique and never reused while the process runs.
	ID string

	principal *auth.Principal
	conn      *websocket.Conn

	send chan []byte
	ping chan struct{}
	done chan struct{}

	closeOnce sync.Once

	mu       sync.Mutex
	lastSeen time.Time
}

func newConnection(ws *websocket.Conn, principal *auth.Principal, now time.Time, sendBuffer int) *Connection {
	return &Connection{
		ID:        uuid.NewString(),
		principal: principal,
		conn:      ws,
		send:      make(chan []byte, sendBuffer),
		ping:      make(chan struct{}, 1),
		done:      make(chan struct{}),
		lastSeen:  now,
	}
}

// Principal returns the identity attached at accept time, or nil for
// anonymous connections.
func (c *Connection) Principal() *auth.Principal {
	return c.principal
}

// Authenticated reports whether the connection carries a principal.
func (c *Connection) Authenticated() bool {
	return c.principal != nil
}

// UserID returns the principal id, or "" for anonymous connections.
func (c *Connection) UserID() string {
	if c.principal == nil {
		return ""
	}
	return c.principal.ID
}

// Touch records inbound activity. Every inbound frame counts, pong control
// frames included.
func (c *Connection) Touch(now time.Time) {
	c.mu.Lock()
	c.lastSeen = now
	c.mu.Unlock()
}

// LastSeen returns the time of the most recent inbound activity.
func (c *Connection) LastSeen() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSeen
}

// enqueue hands a frame to the writer without blocking. It reports false
// when the connection is closed or its send buffer is full; a full buffer
// means a peer that cannot keep up, and the caller evicts it.
func (c *Connection) enqueue(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// requestPing asks the writer to emit a ping control frame. Coalesces when
// a probe is already pending.
func (c *Connection) requestPing() {
	select {
	case c.ping <- struct{}{}:
	default:
	}
}

// close signals both pumps to stop. Idempotent; racing eviction paths all
// funnel through here.
func (c *Connection) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// readPump owns all reads from the transport. It exits when the peer
// disconnects, the read limit is exceeded, or the writer closes the
// transport; its deferred eviction is a no-op if the monitor or a failed
// write got there first.
func (g *Gateway) readPump(c *Connection) {
	defer func() {
		g.Evict(c.ID, evictReasonReadClosed)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(g.opts.MaxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(g.opts.IdleTimeout)); err != nil {
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		c.Touch(g.clock.Now())
		return c.conn.SetReadDeadline(time.Now().Add(g.opts.IdleTimeout))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logging.Debug().Err(err).Str("client_id", c.ID).Msg("unexpected websocket close")
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(g.opts.IdleTimeout))
		g.HandleInbound(c, raw)
	}
}

// writePump owns all writes to the transport. On shutdown it attempts a
// close frame so well-behaved clients see a clean termination instead of a
// reset.
func (g *Gateway) writePump(c *Connection) {
	defer func() {
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(g.opts.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				metrics.WSErrors.WithLabelValues("write").Inc()
				g.Evict(c.ID, evictReasonWriteFailed)
				return
			}
			metrics.WSMessagesSent.Inc()

		case <-c.ping:
			_ = c.conn.SetWriteDeadline(time.Now().Add(g.opts.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				metrics.WSErrors.WithLabelValues("write").Inc()
				g.Evict(c.ID, evictReasonWriteFailed)
				return
			}

		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(g.opts.WriteTimeout))
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
