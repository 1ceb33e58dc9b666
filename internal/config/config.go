// Heliograph - Realtime Event Gateway for Extension Catalogs
// Copyright 2026 The Heliograph Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/heliograph/heliograph

// Package config defines Heliograph's configuration model and loads it from
// layered sources: built-in defaults, an optional YAML file, then
// environment variables. Precedence is ENV > file > defaults.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the gateway process.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Security SecurityConfig `koanf:"security"`
	Realtime RealtimeConfig `koanf:"realtime"`
	Catalog  CatalogConfig  `koanf:"catalog"`
	Bus      BusConfig      `koanf:"bus"`
	NATS     NATSConfig     `koanf:"nats"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port int    `koanf:"port"`
	Host string `koanf:"host"`

	// Timeout bounds request header reads and non-WebSocket handlers.
	// Upgraded WebSocket connections are exempt: they outlive any request
	// timeout by design.
	Timeout time.Duration `koanf:"timeout"`

	// ShutdownTimeout is how long graceful shutdown may take before the
	// listener is torn down with connections still open.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// SecurityConfig holds token verification, origin, and ops-auth settings.
type SecurityConfig struct {
	// TokenSecret is the HMAC-SHA256 secret for handshake tokens. When
	// empty, token verification is off and every connection is anonymous.
	TokenSecret string `koanf:"token_secret"`

	// CORSOrigins lists origins allowed for both CORS preflight and the
	// WebSocket Origin check. "*" allows any browser origin.
	CORSOrigins []string `koanf:"cors_origins"`

	// OpsUsername and OpsPassword protect the operational endpoints
	// (stats, broadcast). Leaving both empty disables ops auth.
	OpsUsername string `koanf:"ops_username"`
	OpsPassword string `koanf:"ops_password"`

	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// RealtimeConfig tunes the connection layer.
type RealtimeConfig struct {
	// ProbeInterval is how often the heartbeat monitor sweeps connections.
	ProbeInterval time.Duration `koanf:"probe_interval"`

	// IdleTimeout is the silence budget before eviction. Must be at least
	// twice ProbeInterval so a peer gets two probes before it is dropped.
	IdleTimeout time.Duration `koanf:"idle_timeout"`

	// WriteTimeout bounds a single frame write to a peer.
	WriteTimeout time.Duration `koanf:"write_timeout"`

	// MaxMessageSize caps inbound frames in bytes.
	MaxMessageSize int64 `koanf:"max_message_size"`

	// SendBuffer is the per-connection outbound queue length. A full
	// queue marks the peer too slow to keep and the connection is dropped.
	SendBuffer int `koanf:"send_buffer"`

	ReadBufferSize   int           `koanf:"read_buffer_size"`
	WriteBufferSize  int           `koanf:"write_buffer_size"`
	HandshakeTimeout time.Duration `koanf:"handshake_timeout"`
}

// CatalogConfig tunes the catalog collaborator.
type CatalogConfig struct {
	// StatsEnabled turns the periodic stats publisher on.
	StatsEnabled bool `koanf:"stats_enabled"`

	// StatsInterval is how often catalog stats are pushed to subscribers.
	StatsInterval time.Duration `koanf:"stats_interval"`

	// BreakerMaxFailures consecutive store failures open the circuit.
	BreakerMaxFailures uint32 `koanf:"breaker_max_failures"`

	// BreakerTimeout is how long the circuit stays open before a probe.
	BreakerTimeout time.Duration `koanf:"breaker_timeout"`
}

// BusConfig tunes the in-process event bus.
type BusConfig struct {
	// BufferSize is the per-subscriber channel depth.
	BufferSize int64 `koanf:"buffer_size"`
}

// NATSConfig holds the optional NATS ingest settings. Only binaries built
// with the nats tag act on these; default builds ignore them.
type NATSConfig struct {
	Enabled bool   `koanf:"enabled"`
	URL     string `koanf:"url"`

	// EmbeddedServer runs an in-process JetStream broker instead of
	// dialing URL. Single-binary deployments use this.
	EmbeddedServer bool   `koanf:"embedded_server"`
	StoreDir       string `koanf:"store_dir"`
	MaxMemory      int64  `koanf:"max_memory"`
	MaxStore       int64  `koanf:"max_store"`

	// SubjectPrefix is the subject namespace consumed from the broker,
	// e.g. "catalog" consumes "catalog.>".
	SubjectPrefix string `koanf:"subject_prefix"`

	SubscribersCount int    `koanf:"subscribers_count"`
	DurableName      string `koanf:"durable_name"`
	QueueGroup       string `koanf:"queue_group"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is json or console.
	Format string `koanf:"format"`

	// Caller includes file:line in log output.
	Caller bool `koanf:"caller"`
}

// Validate checks the configuration for hard errors. It runs after loading
// and before any component starts; a failure here aborts startup.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	if err := c.validateRealtime(); err != nil {
		return err
	}
	if err := c.validateCatalog(); err != nil {
		return err
	}
	if err := c.validateNATS(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive, got %s", c.Server.Timeout)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be positive, got %s", c.Server.ShutdownTimeout)
	}
	return nil
}

func (c *Config) validateSecurity() error {
	// Short secrets make HS256 tokens brute-forceable offline.
	if s := c.Security.TokenSecret; s != "" && len(s) < 32 {
		return fmt.Errorf("TOKEN_SECRET must be at least 32 characters, got %d", len(s))
	}
	if (c.Security.OpsUsername == "") != (c.Security.OpsPassword == "") {
		return fmt.Errorf("OPS_USERNAME and OPS_PASSWORD must be set together")
	}
	if !c.Security.RateLimitDisabled {
		if c.Security.RateLimitReqs < 1 {
			return fmt.Errorf("RATE_LIMIT_REQUESTS must be at least 1, got %d", c.Security.RateLimitReqs)
		}
		if c.Security.RateLimitWindow <= 0 {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be positive, got %s", c.Security.RateLimitWindow)
		}
	}
	return nil
}

func (c *Config) validateRealtime() error {
	r := c.Realtime
	if r.ProbeInterval < time.Second {
		return fmt.Errorf("WS_PROBE_INTERVAL must be at least 1s, got %s", r.ProbeInterval)
	}
	// Two probes must fit inside the idle budget, otherwise a healthy peer
	// that misses a single probe gets evicted.
	if r.IdleTimeout < 2*r.ProbeInterval {
		return fmt.Errorf("WS_IDLE_TIMEOUT (%s) must be at least twice WS_PROBE_INTERVAL (%s)",
			r.IdleTimeout, r.ProbeInterval)
	}
	if r.WriteTimeout <= 0 {
		return fmt.Errorf("WS_WRITE_TIMEOUT must be positive, got %s", r.WriteTimeout)
	}
	if r.MaxMessageSize < 512 {
		return fmt.Errorf("WS_MAX_MESSAGE_SIZE must be at least 512 bytes, got %d", r.MaxMessageSize)
	}
	if r.SendBuffer < 1 {
		return fmt.Errorf("WS_SEND_BUFFER must be at least 1, got %d", r.SendBuffer)
	}
	if r.HandshakeTimeout <= 0 {
		return fmt.Errorf("WS_HANDSHAKE_TIMEOUT must be positive, got %s", r.HandshakeTimeout)
	}
	return nil
}

func (c *Config) validateCatalog() error {
	if !c.Catalog.StatsEnabled {
		return nil
	}
	if c.Catalog.StatsInterval < time.Second {
		return fmt.Errorf("STATS_INTERVAL must be at least 1s, got %s", c.Catalog.StatsInterval)
	}
	if c.Catalog.BreakerMaxFailures < 1 {
		return fmt.Errorf("BREAKER_MAX_FAILURES must be at least 1, got %d", c.Catalog.BreakerMaxFailures)
	}
	return nil
}

func (c *Config) validateNATS() error {
	if !c.NATS.Enabled {
		return nil
	}
	if !c.NATS.EmbeddedServer && c.NATS.URL == "" {
		return fmt.Errorf("NATS_URL is required when NATS_ENABLED=true and NATS_EMBEDDED=false")
	}
	if c.NATS.EmbeddedServer && c.NATS.StoreDir == "" {
		return fmt.Errorf("NATS_STORE_DIR is required when NATS_EMBEDDED=true")
	}
	if c.NATS.SubjectPrefix == "" {
		return fmt.Errorf("NATS_SUBJECT_PREFIX must not be empty when NATS_ENABLED=true")
	}
	if c.NATS.SubscribersCount < 1 {
		return fmt.Errorf("NATS_SUBSCRIBERS must be at least 1, got %d", c.NATS.SubscribersCount)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "", "trace", "debug", "info", "warn", "warning", "error", "fatal", "disabled":
	default:
		return fmt.Errorf("LOG_LEVEL %q is not a known level", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}
