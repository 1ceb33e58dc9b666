// Heliograph - Realtime Event Gateway for Extension Catalogs
// Copyright 2026 The Heliograph Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/heliograph/heliograph

package realtime

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/heliograph/heliograph/internal/logging"
)

// Monitor sweeps the registry on a fixed interval and evicts connections
// whose last inbound activity is older than the idle timeout. Connections
// that are still inside the window get a ping control frame; the pong
// refreshes lastSeen through the read pump. The timeout defaults to twice
// the probe interval, so one missed probe is tolerated and a dead peer is
// detected within roughly two intervals.
//
// Eviction is unconditional cleanup. There is no retry and no session
// resumption; an evicted client reconnects and re-subscribes from scratch.
type Monitor struct {
	registry *Registry
	interval time.Duration
	timeout  time.Duration
	clock    clock.Clock
	evict    func(id, reason string)
}

// newMonitor wires the sweep to the gateway's eviction path. The clock is
// mockable so tests drive sweeps without real waiting.
func newMonitor(registry *Registry, interval, timeout time.Duration, clk clock.Clock, evict func(id, reason string)) *Monitor {
	return &Monitor{
		registry: registry,
		interval: interval,
		timeout:  timeout,
		clock:    clk,
		evict:    evict,
	}
}

// Serve implements suture.Service. It runs sweeps until the context is
// canceled.
func (m *Monitor) Serve(ctx context.Context) error {
	logging.Info().
		Str("component", "heartbeat-monitor").
		Dur("interval", m.interval).
		Dur("timeout", m.timeout).
		Msg("heartbeat monitor started")

	ticker := m.clock.Ticker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Info().Str("component", "heartbeat-monitor").Msg("heartbeat monitor stopped")
			return ctx.Err()
		case <-ticker.C:
			m.sweep()
		}
	}
}

// sweep visits every live connection once: evict the timed-out, probe the
// rest.
func (m *Monitor) sweep() {
	now := m.clock.Now()
	m.registry.ForEach(func(c *Connection) {
		if now.Sub(c.LastSeen()) > m.timeout {
			logging.Debug().
				Str("client_id", c.ID).
				Time("last_seen", c.LastSeen()).
				Msg("connection timed out")
			m.evict(c.ID, evictReasonIdleTimeout)
			return
		}
		c.requestPing()
	})
}

// String implements fmt.Stringer for supervisor logging.
func (m *Monitor) String() string {
	return "heartbeat-monitor"
}
