// Heliograph - Realtime Event Gateway for Extension Catalogs
// Copyright 2026 The Heliograph Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/heliograph/heliograph

//go:build !nats

package main

import (
	"context"

	"github.com/heliograph/heliograph/internal/config"
	"github.com/heliograph/heliograph/internal/events"
	"github.com/heliograph/heliograph/internal/logging"
	"github.com/heliograph/heliograph/internal/supervisor"
)

// NATSComponents is a stub for builds without the nats tag.
type NATSComponents struct{}

// InitNATS warns when NATS is requested but not compiled in.
func InitNATS(cfg *config.Config, _ *events.Bus) (*NATSComponents, error) {
	if cfg.NATS.Enabled {
		logging.Warn().Msg("NATS_ENABLED=true but NATS support not compiled (build with -tags nats)")
	}
	return nil, nil
}

// Register is a no-op for non-NATS builds.
func (c *NATSComponents) Register(_ *supervisor.Tree) {}

// Shutdown is a no-op for non-NATS builds.
func (c *NATSComponents) Shutdown(_ context.Context) {}
