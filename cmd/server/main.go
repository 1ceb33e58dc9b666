// Heliograph - Realtime Event Gateway for Extension Catalogs
// Copyright 2026 The Heliograph Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/heliograph/heliograph

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/heliograph/heliograph/internal/api"
	"github.com/heliograph/heliograph/internal/auth"
	"github.com/heliograph/heliograph/internal/catalog"
	"github.com/heliograph/heliograph/internal/config"
	"github.com/heliograph/heliograph/internal/events"
	"github.com/heliograph/heliograph/internal/logging"
	"github.com/heliograph/heliograph/internal/realtime"
	"github.com/heliograph/heliograph/internal/supervisor"
	"github.com/heliograph/heliograph/internal/supervisor/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Config errors use the default logger; configured logging is not
		// available yet.
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().Msg("Starting Heliograph gateway")

	// Token verification is optional: without a secret every connection is
	// anonymous, which public catalog pages rely on anyway.
	var verifier *auth.Verifier
	if cfg.Security.TokenSecret != "" {
		verifier, err = auth.NewVerifier(cfg.Security.TokenSecret)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize token verifier")
		}
		logging.Info().Msg("Handshake token verification enabled")
	} else {
		logging.Info().Msg("No token secret configured, all connections will be anonymous")
	}

	var opsAuth *auth.BasicAuthManager
	if cfg.Security.OpsUsername != "" || cfg.Security.OpsPassword != "" {
		opsAuth, err = auth.NewBasicAuthManager(cfg.Security.OpsUsername, cfg.Security.OpsPassword)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize ops basic auth")
		}
		logging.Info().Msg("Ops endpoints protected with basic auth")
	} else {
		logging.Warn().Msg("Ops endpoints are unauthenticated (set OPS_USERNAME and OPS_PASSWORD)")
	}

	gateway := realtime.New(realtime.Options{
		ProbeInterval:  cfg.Realtime.ProbeInterval,
		IdleTimeout:    cfg.Realtime.IdleTimeout,
		WriteTimeout:   cfg.Realtime.WriteTimeout,
		MaxMessageSize: cfg.Realtime.MaxMessageSize,
		SendBuffer:     cfg.Realtime.SendBuffer,
	})

	bus := events.NewBus(cfg.Bus.BufferSize, events.NewLoggerAdapter())
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event bus")
		}
	}()

	store := catalog.NewBreakerStore(catalog.NewMemoryStore(), catalog.BreakerConfig{
		MaxFailures: cfg.Catalog.BreakerMaxFailures,
		Timeout:     cfg.Catalog.BreakerTimeout,
	})

	router := api.NewRouter(cfg, gateway, verifier, store, opsAuth)
	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.Setup(),
		ReadHeaderTimeout: cfg.Server.Timeout,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})

	// Messaging layer: bus pump, catalog stats, optional NATS ingest.
	tree.AddMessagingService(events.NewPump(bus, gateway))
	if cfg.Catalog.StatsEnabled {
		tree.AddMessagingService(catalog.NewStatsPublisher(store, bus, cfg.Catalog.StatsInterval, nil))
		logging.Info().Dur("interval", cfg.Catalog.StatsInterval).Msg("Catalog stats publisher enabled")
	}

	natsComponents, err := InitNATS(cfg, bus)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize NATS ingest")
	}
	if natsComponents != nil {
		natsComponents.Register(tree)
		defer natsComponents.Shutdown(context.Background())
	}

	// API layer: the gateway itself, its heartbeat monitor, and HTTP.
	tree.AddAPIService(gateway)
	tree.AddAPIService(gateway.Heartbeat())
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Gateway stopped gracefully")
}
