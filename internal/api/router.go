// Heliograph - Realtime Event Gateway for Extension Catalogs
// Copyright 2026 The Heliograph Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/heliograph/heliograph

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/heliograph/heliograph/internal/auth"
	"github.com/heliograph/heliograph/internal/catalog"
	"github.com/heliograph/heliograph/internal/config"
	"github.com/heliograph/heliograph/internal/realtime"
)

// Router assembles the HTTP surface from its handler and middleware parts.
type Router struct {
	handler *Handler
	chiMW   *ChiMiddleware
	opsAuth *auth.BasicAuthManager
}

// NewRouter wires the gateway's HTTP surface. opsAuth may be nil, leaving
// the operational endpoints unauthenticated.
func NewRouter(cfg *config.Config, gateway *realtime.Gateway, verifier *auth.Verifier, store catalog.Store, opsAuth *auth.BasicAuthManager) *Router {
	mwConfig := DefaultChiMiddlewareConfig()
	mwConfig.CORSAllowedOrigins = cfg.Security.CORSOrigins
	mwConfig.RateLimitRequests = cfg.Security.RateLimitReqs
	mwConfig.RateLimitWindow = cfg.Security.RateLimitWindow
	mwConfig.RateLimitDisabled = cfg.Security.RateLimitDisabled

	return &Router{
		handler: NewHandler(gateway, verifier, store, cfg),
		chiMW:   NewChiMiddleware(mwConfig),
		opsAuth: opsAuth,
	}
}

// Setup configures all routes and returns the root handler.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to every route in order.
	r.Use(RequestID())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMW.CORS())

	// WebSocket endpoint. Public: auth happens inside the handshake and
	// never rejects, so no auth or rate-limit middleware applies.
	r.Get("/ws", router.handler.WebSocket)

	// Health probes. Permissive rate limit for monitoring loops.
	r.Route("/healthz", func(r chi.Router) {
		r.Use(router.chiMW.RateLimitHealth())
		r.Use(APISecurityHeaders())
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	// Operational endpoints, optionally behind basic auth.
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chiMW.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(PrometheusMetrics())
		r.Use(BasicAuth(router.opsAuth))

		r.Get("/realtime/stats", router.handler.RealtimeStats)
		r.Post("/broadcast", router.handler.Broadcast)
	})

	// Prometheus exposition. Same optional guard as the ops endpoints.
	r.With(BasicAuth(router.opsAuth)).Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}
