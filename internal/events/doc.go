// Heliograph - Realtime Event Gateway for Extension Catalogs
// Copyright 2026 The Heliograph Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/heliograph/heliograph

// Package events carries catalog events from producers to the realtime
// gateway. Producers inside the process (the catalog stats publisher, the
// ops broadcast endpoint, the NATS ingest) publish onto an in-process
// Watermill bus; the pump subscribes to every broadcast topic and fans each
// event out to the gateway channel of the same name.
//
// The bus is a relay, not a log: delivery is at-most-once with no
// durability, matching the gateway's own contract. An event published while
// the pump is down is gone.
//
// Binaries built with -tags nats additionally consume catalog events from
// a JetStream subject namespace and republish them onto the bus, so remote
// catalog services can reach connected clients without speaking to this
// process directly.
package events
