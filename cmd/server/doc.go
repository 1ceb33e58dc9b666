// Heliograph - Realtime Event Gateway for Extension Catalogs
// Copyright 2026 The Heliograph Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/heliograph/heliograph

// Command server runs the Heliograph gateway: the WebSocket endpoint,
// the operational HTTP API, the in-process event bus, and the catalog
// stats publisher, all under a suture supervision tree.
//
// NATS JetStream ingest is compiled in with -tags nats and activated with
// NATS_ENABLED=true.
package main
