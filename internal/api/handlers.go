// Heliograph - Realtime Event Gateway for Extension Catalogs
// Copyright 2026 The Heliograph Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/heliograph/heliograph

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/heliograph/heliograph/internal/auth"
	"github.com/heliograph/heliograph/internal/catalog"
	"github.com/heliograph/heliograph/internal/config"
	"github.com/heliograph/heliograph/internal/realtime"
)

// readyCheckTimeout bounds the catalog probe inside the readiness handler
// so a hung catalog cannot hang the probe itself.
const readyCheckTimeout = 2 * time.Second

// Handler holds the dependencies of all HTTP endpoints.
type Handler struct {
	gateway  *realtime.Gateway
	verifier *auth.Verifier
	store    catalog.Store
	config   *config.Config
	started  time.Time
}

// NewHandler creates the endpoint handler. verifier may be nil, in which
// case every WebSocket connection is anonymous. store may be nil when the
// catalog collaborator is disabled; readiness then skips the catalog probe.
func NewHandler(gateway *realtime.Gateway, verifier *auth.Verifier, store catalog.Store, cfg *config.Config) *Handler {
	return &Handler{
		gateway:  gateway,
		verifier: verifier,
		store:    store,
		config:   cfg,
		started:  time.Now(),
	}
}

// HealthLive reports process liveness. It answers as long as the HTTP
// server is serving; no dependency is consulted.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "alive",
		"uptime": time.Since(h.started).Round(time.Second).String(),
	})
}

// HealthReady reports readiness. The catalog store is probed so an open
// circuit breaker surfaces here as degraded; the gateway itself has no
// failure mode short of process death.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{
		"gateway": "ok",
	}

	if h.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readyCheckTimeout)
		defer cancel()

		if _, err := h.store.Stats(ctx); err != nil {
			respondError(w, http.StatusServiceUnavailable, "NOT_READY", "catalog store unavailable", err)
			return
		}
		checks["catalog"] = "ok"
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
		"checks": checks,
	})
}

// RealtimeStats returns the connected-client count, per-channel member
// counts, and gateway uptime.
func (h *Handler) RealtimeStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.gateway.Stats())
}

// BroadcastRequest is the body of POST /api/v1/broadcast. Exactly one of
// Channel and UserID selects the recipients; "all" fans out to every
// connected client regardless of subscriptions.
type BroadcastRequest struct {
	Channel string          `json:"channel" validate:"omitempty,oneof=extensions stats user_activity system all"`
	UserID  string          `json:"userId" validate:"omitempty,max=128"`
	Type    string          `json:"type" validate:"required,min=1,max=64"`
	Payload json.RawMessage `json:"payload"`
}

// Broadcast lets other catalog services push an event to connected
// clients. The response reports how many clients received it.
func (h *Handler) Broadcast(w http.ResponseWriter, r *http.Request) {
	var req BroadcastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "request body is not valid JSON", err)
		return
	}

	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	if (req.Channel == "") == (req.UserID == "") {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "exactly one of channel and userId must be set", nil)
		return
	}

	var payload any
	if len(req.Payload) > 0 {
		payload = req.Payload
	}

	var recipients int
	switch {
	case req.UserID != "":
		recipients = h.gateway.BroadcastToUser(req.UserID, req.Type, payload)
	case req.Channel == "all":
		recipients = h.gateway.BroadcastToAll(req.Type, payload)
	default:
		recipients = h.gateway.BroadcastToChannel(req.Channel, req.Type, payload)
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"recipients": recipients,
	})
}
