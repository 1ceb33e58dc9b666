// Heliograph - Realtime Event Gateway for Extension Catalogs
// Copyright 2026 The Heliograph Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/heliograph/heliograph

// Package api provides the HTTP surface of the gateway: the WebSocket
// endpoint, health probes, the operational stats and broadcast endpoints,
// and Prometheus metrics exposition. Routing uses Chi with middleware from
// the Chi ecosystem (go-chi/cors, go-chi/httprate).
//
// The WebSocket endpoint is public; a bad or missing token downgrades the
// connection to anonymous rather than rejecting it. The operational
// endpoints can be placed behind HTTP basic auth via configuration.
package api
