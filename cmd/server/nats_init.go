// Heliograph - Realtime Event Gateway for Extension Catalogs
// Copyright 2026 The Heliograph Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/heliograph/heliograph

//go:build nats

package main

import (
	"context"
	"fmt"
	"time"

	natsgo "github.com/nats-io/nats.go"

	"github.com/heliograph/heliograph/internal/config"
	"github.com/heliograph/heliograph/internal/events"
	"github.com/heliograph/heliograph/internal/logging"
	"github.com/heliograph/heliograph/internal/supervisor"
)

// streamMaxAge bounds retained catalog events. Clients reconnect within
// seconds; a day of replay is already generous.
const streamMaxAge = 24 * time.Hour

// NATSComponents holds the NATS pieces whose lifetimes are tied to the
// process rather than the supervision tree.
type NATSComponents struct {
	embedded *events.EmbeddedServer
	ingest   *events.NATSIngest
}

// InitNATS wires JetStream ingest when NATS_ENABLED=true: optionally an
// embedded broker, the stream definition, and the ingest subscriber.
func InitNATS(cfg *config.Config, bus *events.Bus) (*NATSComponents, error) {
	if !cfg.NATS.Enabled {
		return nil, nil
	}

	components := &NATSComponents{}
	url := cfg.NATS.URL

	if cfg.NATS.EmbeddedServer {
		embedded, err := events.NewEmbeddedServer(&events.EmbeddedServerConfig{
			StoreDir:          cfg.NATS.StoreDir,
			JetStreamMaxMem:   cfg.NATS.MaxMemory,
			JetStreamMaxStore: cfg.NATS.MaxStore,
		})
		if err != nil {
			return nil, fmt.Errorf("start embedded NATS server: %w", err)
		}
		components.embedded = embedded
		url = embedded.ClientURL()
		logging.Info().Str("url", url).Msg("Embedded NATS server started")
	}

	// The ingest binds to the stream rather than provisioning it, so the
	// stream must exist before the first subscription.
	nc, err := natsgo.Connect(url)
	if err != nil {
		components.Shutdown(context.Background())
		return nil, fmt.Errorf("connect to NATS at %s: %w", url, err)
	}
	defer nc.Close()

	ensureCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := events.EnsureStream(ensureCtx, nc, cfg.NATS.SubjectPrefix, streamMaxAge); err != nil {
		components.Shutdown(context.Background())
		return nil, fmt.Errorf("ensure catalog stream: %w", err)
	}

	ingest, err := events.NewNATSIngest(&events.IngestConfig{
		URL:              url,
		SubjectPrefix:    cfg.NATS.SubjectPrefix,
		DurableName:      cfg.NATS.DurableName,
		QueueGroup:       cfg.NATS.QueueGroup,
		SubscribersCount: cfg.NATS.SubscribersCount,
	}, bus, events.NewLoggerAdapter())
	if err != nil {
		components.Shutdown(context.Background())
		return nil, fmt.Errorf("create NATS ingest: %w", err)
	}
	components.ingest = ingest

	logging.Info().
		Str("url", url).
		Str("subject_prefix", cfg.NATS.SubjectPrefix).
		Msg("NATS ingest initialized")
	return components, nil
}

// Register adds the supervised NATS services to the tree.
func (c *NATSComponents) Register(tree *supervisor.Tree) {
	if c.ingest != nil {
		tree.AddMessagingService(c.ingest)
	}
}

// Shutdown tears down the pieces outside the supervision tree.
func (c *NATSComponents) Shutdown(ctx context.Context) {
	if c.ingest != nil {
		if err := c.ingest.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing NATS ingest")
		}
	}
	if c.embedded != nil {
		if err := c.embedded.Shutdown(ctx); err != nil {
			logging.Error().Err(err).Msg("Error shutting down embedded NATS server")
		}
	}
}
