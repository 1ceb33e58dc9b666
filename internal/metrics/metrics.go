// Heliograph - Realtime Event Gateway for Extension Catalogs
// Copyright 2026 The Heliograph Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/heliograph/heliograph

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for the gateway:
// - WebSocket connection lifecycle and traffic
// - Channel membership
// - Broadcast fan-out
// - Handshake auth outcomes
// - Event bus throughput
// - Catalog store circuit breaker
// - HTTP ops endpoints

var (
	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSMessagesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_received_total",
			Help: "Total number of WebSocket messages received from clients",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages written to clients",
		},
	)

	WSErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_errors_total",
			Help: "Total number of WebSocket errors",
		},
		[]string{"error_type"}, // "parse", "write", "upgrade", "unknown_type"
	)

	WSEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_evictions_total",
			Help: "Total number of connections evicted by the gateway",
		},
		[]string{"reason"}, // "idle_timeout", "send_buffer_full", "write_failed", "read_closed", "shutdown"
	)

	// Channel Metrics
	ChannelSubscriptions = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "channel_subscriptions",
			Help: "Current number of subscribers per channel",
		},
		[]string{"channel"},
	)

	Broadcasts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broadcasts_total",
			Help: "Total number of broadcast operations by scope",
		},
		[]string{"scope"}, // "channel", "user", "all"
	)

	// Handshake Metrics
	AuthHandshakes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_handshakes_total",
			Help: "Total number of WebSocket handshakes by auth outcome",
		},
		[]string{"outcome"}, // "authenticated", "anonymous", "invalid_token"
	)

	// Event Bus Metrics
	BusEventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bus_events_published_total",
			Help: "Total number of events published to the internal bus",
		},
		[]string{"topic"},
	)

	BusEventsDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bus_events_delivered_total",
			Help: "Total number of bus events delivered to the gateway pump",
		},
		[]string{"topic"},
	)

	BusEventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bus_events_dropped_total",
			Help: "Total number of bus events dropped as unroutable or malformed",
		},
		[]string{"topic"},
	)

	// NATS Ingest Metrics (populated only in nats-tagged builds)
	NATSEventsConsumed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nats_events_consumed_total",
			Help: "Total number of events consumed from NATS JetStream",
		},
	)

	NATSParseFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nats_parse_failures_total",
			Help: "Total number of NATS messages rejected as malformed",
		},
	)

	// Catalog Metrics
	CatalogStatsPublishes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_stats_publishes_total",
			Help: "Total number of catalog stats snapshots published",
		},
	)

	CatalogStatsErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_stats_errors_total",
			Help: "Total number of failed catalog stats refreshes",
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// HTTP Ops Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "endpoint"},
	)
)

// RecordAPIRequest records one completed HTTP request.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordEviction records one evicted connection.
func RecordEviction(reason string) {
	WSEvictions.WithLabelValues(reason).Inc()
}

// RecordHandshake records the auth outcome of one accepted connection.
func RecordHandshake(outcome string) {
	AuthHandshakes.WithLabelValues(outcome).Inc()
}

// SetChannelSubscribers sets the live subscriber count for a channel.
// A channel that empties out reports zero rather than disappearing, so
// dashboards keep a continuous series.
func SetChannelSubscribers(channel string, n int) {
	ChannelSubscriptions.WithLabelValues(channel).Set(float64(n))
}
