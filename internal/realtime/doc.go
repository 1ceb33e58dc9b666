// Heliograph - Realtime Event Gateway for Extension Catalogs
// Copyright 2026 The Heliograph Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/heliograph/heliograph

/*
Package realtime is the connection server at the heart of the gateway: it
accepts long-lived WebSocket sessions, attaches an optional authenticated
principal to each, lets clients subscribe to named broadcast channels,
relays events to the right subset of connections, and proactively evicts
peers that stop responding.

Key Components:

  - Gateway: explicitly constructed service object owning the registry,
    channel index, and heartbeat monitor; exposes Join, Evict, Stats, and
    the broadcast API
  - Registry: the set of live connections, keyed by process-unique id
  - ChannelIndex: many-to-many mapping of channel names to subscribers
  - Monitor: periodic liveness sweep (ping probe / idle eviction)
  - Envelope: the JSON wire unit in both directions

Wire Protocol:

Every frame is an envelope:

	{ "type": string, "payload": <type-dependent>, "channel"?: string, "timestamp"?: string }

Clients send: subscribe {channels}, unsubscribe {channels}, ping {},
user_activity {activity}. The server sends: connection {clientId, user|null}
once after accept, subscribed / unsubscribed {channels, totalSubscriptions},
pong {timestamp}, error {message}, and application broadcasts stamped with
channel and timestamp. Outbound envelopes always carry an RFC 3339 UTC
timestamp.

Channels are drawn from a fixed allow-list: extensions, stats,
user_activity, system. Unknown names in a subscribe request are silently
dropped so newer clients degrade gracefully against older servers.
user_activity requires an authenticated connection; everything else is open
to anonymous clients.

Connection Lifecycle:

 1. The HTTP layer upgrades the request and resolves an optional principal
    (an invalid or missing token means anonymous, never a rejection)
 2. Gateway.Join registers the connection and queues the connection ack
 3. One read pump and one write pump run per connection; all writes,
    ping control frames included, go through the write pump
 4. Inbound envelopes are routed in arrival order; any inbound frame
    refreshes the connection's liveness
 5. The monitor sweeps every probe interval: idle connections are evicted,
    live ones are pinged
 6. Eviction is idempotent and total: registry, channel index, transport

Delivery Semantics:

Broadcasts are at-most-once and fire-and-forget. Sends are non-blocking
channel enqueues; a connection whose buffer overflows or whose write fails
is evicted on the spot, and neither outcome interrupts delivery to other
connections. Per-connection ordering is preserved; nothing is guaranteed
across connections.

See Also:

  - internal/api: the /ws upgrade endpoint and ops stats/broadcast routes
  - internal/events: the bus pump that feeds catalog events into broadcasts
*/
package realtime
