// Heliograph - Realtime Event Gateway for Extension Catalogs
// Copyright 2026 The Heliograph Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/heliograph/heliograph

// Package supervisor builds the suture v4 supervision tree that runs all
// long-lived gateway components. The tree has two child layers: messaging
// (event bus pump, catalog stats publisher, optional NATS ingest) and api
// (HTTP server, gateway, heartbeat monitor). A crash in the messaging
// layer restarts only that layer; connected clients stay connected.
package supervisor
