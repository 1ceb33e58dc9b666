// Heliograph - Realtime Event Gateway for Extension Catalogs
// Copyright 2026 The Heliograph Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/heliograph/heliograph

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where config files are searched, in order.
// The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/heliograph/config.yaml",
	"/etc/heliograph/config.yml",
}

// ConfigPathEnvVar overrides the config file search entirely.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns the built-in defaults. They describe a standalone
// gateway on :8090 with anonymous-only auth and NATS ingest off.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8090,
			Host:            "0.0.0.0",
			Timeout:         30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Security: SecurityConfig{
			TokenSecret:       "",
			CORSOrigins:       []string{"*"},
			OpsUsername:       "",
			OpsPassword:       "",
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
		},
		Realtime: RealtimeConfig{
			ProbeInterval:    30 * time.Second,
			IdleTimeout:      60 * time.Second, // two missed probes
			WriteTimeout:     10 * time.Second,
			MaxMessageSize:   4096,
			SendBuffer:       256,
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
			HandshakeTimeout: 10 * time.Second,
		},
		Catalog: CatalogConfig{
			StatsEnabled:       true,
			StatsInterval:      30 * time.Second,
			BreakerMaxFailures: 5,
			BreakerTimeout:     30 * time.Second,
		},
		Bus: BusConfig{
			BufferSize: 256,
		},
		NATS: NATSConfig{
			Enabled:          false,
			URL:              "nats://127.0.0.1:4222",
			EmbeddedServer:   false,
			StoreDir:         "/data/nats/jetstream",
			MaxMemory:        1 << 30, // 1GB
			MaxStore:         4 << 30, // 4GB
			SubjectPrefix:    "catalog",
			SubscribersCount: 2,
			DurableName:      "heliograph",
			QueueGroup:       "gateways",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load builds the configuration from layered sources:
//  1. built-in defaults
//  2. optional YAML config file
//  3. environment variables (highest priority)
//
// The result is validated before it is returned.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// HTTP_PORT -> server.port, WS_PROBE_INTERVAL -> realtime.probe_interval
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first config file that exists, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths lists config paths parsed from comma-separated env values.
var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields converts comma-separated strings to slices for the
// known slice fields. Env vars arrive as plain strings; YAML already
// produces slices and is left alone.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envTransformFunc maps environment variable names to koanf config paths.
// Unmapped variables return "" and are skipped, so arbitrary environment
// noise never reaches the config tree.
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Server
		"http_port":        "server.port",
		"http_host":        "server.host",
		"http_timeout":     "server.timeout",
		"shutdown_timeout": "server.shutdown_timeout",

		// Security
		"token_secret":        "security.token_secret",
		"cors_origins":        "security.cors_origins",
		"ops_username":        "security.ops_username",
		"ops_password":        "security.ops_password",
		"rate_limit_requests": "security.rate_limit_reqs",
		"rate_limit_window":   "security.rate_limit_window",
		"disable_rate_limit":  "security.rate_limit_disabled",

		// Realtime
		"ws_probe_interval":    "realtime.probe_interval",
		"ws_idle_timeout":      "realtime.idle_timeout",
		"ws_write_timeout":     "realtime.write_timeout",
		"ws_max_message_size":  "realtime.max_message_size",
		"ws_send_buffer":       "realtime.send_buffer",
		"ws_read_buffer":       "realtime.read_buffer_size",
		"ws_write_buffer":      "realtime.write_buffer_size",
		"ws_handshake_timeout": "realtime.handshake_timeout",

		// Catalog
		"stats_enabled":        "catalog.stats_enabled",
		"stats_interval":       "catalog.stats_interval",
		"breaker_max_failures": "catalog.breaker_max_failures",
		"breaker_timeout":      "catalog.breaker_timeout",

		// Bus
		"bus_buffer_size": "bus.buffer_size",

		// NATS
		"nats_enabled":        "nats.enabled",
		"nats_url":            "nats.url",
		"nats_embedded":       "nats.embedded_server",
		"nats_store_dir":      "nats.store_dir",
		"nats_max_memory":     "nats.max_memory",
		"nats_max_store":      "nats.max_store",
		"nats_subject_prefix": "nats.subject_prefix",
		"nats_subscribers":    "nats.subscribers_count",
		"nats_durable_name":   "nats.durable_name",
		"nats_queue_group":    "nats.queue_group",

		// Logging
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	return ""
}
