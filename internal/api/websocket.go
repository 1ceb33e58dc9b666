// Heliograph - Realtime Event Gateway for Extension Catalogs
// Copyright 2026 The Heliograph Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/heliograph/heliograph

package api

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/heliograph/heliograph/internal/auth"
	"github.com/heliograph/heliograph/internal/logging"
	"github.com/heliograph/heliograph/internal/metrics"
)

// newUpgrader builds the WebSocket upgrader from configuration. The origin
// check mirrors the CORS allow-list, with two deliberate loosenings: an
// empty Origin header is accepted because non-browser clients (CLIs, other
// services) do not send one, and "*" accepts any browser origin.
func (h *Handler) newUpgrader() *websocket.Upgrader {
	rt := h.config.Realtime
	allowed := h.config.Security.CORSOrigins

	return &websocket.Upgrader{
		ReadBufferSize:   rt.ReadBufferSize,
		WriteBufferSize:  rt.WriteBufferSize,
		HandshakeTimeout: rt.HandshakeTimeout,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, o := range allowed {
				if o == "*" || o == origin {
					return true
				}
			}
			return false
		},
	}
}

// WebSocket upgrades the request and hands the connection to the gateway.
//
// Token verification never rejects the upgrade: a missing, malformed, or
// expired token downgrades the connection to anonymous. Clients on public
// catalog pages connect without credentials and still receive the shared
// broadcast channels; only user-scoped delivery needs a valid token.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := h.newUpgrader().Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		metrics.RecordHandshake("upgrade_failed")
		logging.Debug().Err(err).Str("remote", r.RemoteAddr).Msg("websocket upgrade failed")
		return
	}

	var principal *auth.Principal
	token := auth.TokenFromRequest(r)
	switch {
	case token == "" || h.verifier == nil:
		metrics.RecordHandshake("anonymous")
	default:
		principal, err = h.verifier.Verify(token)
		if err != nil {
			metrics.RecordHandshake("token_rejected")
			logging.Debug().Err(err).Str("remote", r.RemoteAddr).Msg("token rejected, connection is anonymous")
			principal = nil
		} else {
			metrics.RecordHandshake("authenticated")
		}
	}

	h.gateway.Join(ws, principal)
}
