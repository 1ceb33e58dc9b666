// Heliograph - Realtime Event Gateway for Extension Catalogs
// Copyright 2026 The Heliograph Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/heliograph/heliograph

// Package catalog is the gateway's view of the extension catalog. The
// catalog itself, its search, and its CRUD surfaces live in other
// services; this package holds the read-only Store interface the gateway
// consumes, an in-memory implementation for standalone and test runs, a
// circuit-breaker wrapper for remote stores, and the periodic publisher
// that pushes catalog stats to subscribed clients.
package catalog
