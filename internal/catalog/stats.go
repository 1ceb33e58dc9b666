// Heliograph - Realtime Event Gateway for Extension Catalogs
// Copyright 2026 The Heliograph Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/heliograph/heliograph

package catalog

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/goccy/go-json"

	"github.com/heliograph/heliograph/internal/events"
	"github.com/heliograph/heliograph/internal/logging"
	"github.com/heliograph/heliograph/internal/metrics"
)

// StatsPublisher periodically snapshots the catalog and publishes a
// stats_update event for clients on the stats channel. A failed refresh
// skips the tick; the next one tries again. It is the in-process stand-in
// for the catalog services' own update notifications.
type StatsPublisher struct {
	store    Store
	bus      *events.Bus
	interval time.Duration
	clock    clock.Clock
}

// NewStatsPublisher builds the publisher. A nil clock means wall time;
// tests inject a mock and step it.
func NewStatsPublisher(store Store, bus *events.Bus, interval time.Duration, clk clock.Clock) *StatsPublisher {
	if clk == nil {
		clk = clock.New()
	}
	return &StatsPublisher{
		store:    store,
		bus:      bus,
		interval: interval,
		clock:    clk,
	}
}

// Serve implements suture.Service. One snapshot per tick until the
// context is canceled.
func (p *StatsPublisher) Serve(ctx context.Context) error {
	logging.Info().
		Str("component", "stats-publisher").
		Dur("interval", p.interval).
		Msg("catalog stats publisher started")

	ticker := p.clock.Ticker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Info().Str("component", "stats-publisher").Msg("catalog stats publisher stopped")
			return ctx.Err()
		case <-ticker.C:
			p.publish(ctx)
		}
	}
}

func (p *StatsPublisher) publish(ctx context.Context) {
	stats, err := p.store.Stats(ctx)
	if err != nil {
		metrics.CatalogStatsErrors.Inc()
		logging.Warn().Err(err).Msg("catalog stats refresh failed, skipping tick")
		return
	}

	payload, err := json.Marshal(stats)
	if err != nil {
		metrics.CatalogStatsErrors.Inc()
		logging.Error().Err(err).Msg("failed to marshal catalog stats")
		return
	}

	if err := p.bus.Publish(events.TopicStats, &events.Event{
		Type:    "stats_update",
		Payload: payload,
	}); err != nil {
		metrics.CatalogStatsErrors.Inc()
		logging.Warn().Err(err).Msg("failed to publish catalog stats")
		return
	}
	metrics.CatalogStatsPublishes.Inc()
}

// String implements fmt.Stringer for supervisor logging.
func (p *StatsPublisher) String() string {
	return "stats-publisher"
}
