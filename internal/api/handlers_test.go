// Heliograph - Realtime Event Gateway for Extension Catalogs
// Copyright 2026 The Heliograph Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/heliograph/heliograph

package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/heliograph/heliograph/internal/auth"
	"github.com/heliograph/heliograph/internal/catalog"
	"github.com/heliograph/heliograph/internal/config"
	"github.com/heliograph/heliograph/internal/realtime"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: 8080, Host: "127.0.0.1"},
		Security: config.SecurityConfig{
			CORSOrigins:       []string{"*"},
			RateLimitReqs:     1000,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: true,
		},
		Realtime: config.RealtimeConfig{
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
			HandshakeTimeout: 5 * time.Second,
		},
	}
}

// brokenStore fails every call, standing in for a catalog behind an open
// circuit.
type brokenStore struct{}

func (brokenStore) List(context.Context) ([]catalog.Extension, error) {
	return nil, errors.New("store down")
}

func (brokenStore) Get(context.Context, string) (*catalog.Extension, error) {
	return nil, errors.New("store down")
}

func (brokenStore) Stats(context.Context) (catalog.Stats, error) {
	return catalog.Stats{}, errors.New("store down")
}

func newTestServer(t *testing.T, store catalog.Store, opsAuth *auth.BasicAuthManager) (*httptest.Server, *realtime.Gateway) {
	t.Helper()

	gateway := realtime.New(realtime.Options{})
	router := NewRouter(testConfig(), gateway, nil, store, opsAuth)
	srv := httptest.NewServer(router.Setup())
	t.Cleanup(srv.Close)
	return srv, gateway
}

func decodeResponse(t *testing.T, resp *http.Response) *APIResponse {
	t.Helper()
	defer resp.Body.Close()

	var envelope APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("response body is not a valid envelope: %v", err)
	}
	return &envelope
}

func TestHealthLive(t *testing.T) {
	srv, _ := newTestServer(t, nil, nil)

	resp, err := http.Get(srv.URL + "/healthz/live")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	envelope := decodeResponse(t, resp)
	if envelope.Status != "ok" {
		t.Errorf("envelope status = %q, want ok", envelope.Status)
	}
}

func TestHealthReady(t *testing.T) {
	t.Run("no catalog store", func(t *testing.T) {
		srv, _ := newTestServer(t, nil, nil)

		resp, err := http.Get(srv.URL + "/healthz/ready")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		resp.Body.Close()
	})

	t.Run("healthy catalog store", func(t *testing.T) {
		srv, _ := newTestServer(t, catalog.NewMemoryStore(), nil)

		resp, err := http.Get(srv.URL + "/healthz/ready")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		resp.Body.Close()
	})

	t.Run("failing catalog store degrades readiness", func(t *testing.T) {
		srv, _ := newTestServer(t, brokenStore{}, nil)

		resp, err := http.Get(srv.URL + "/healthz/ready")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Fatalf("status = %d, want 503", resp.StatusCode)
		}
		envelope := decodeResponse(t, resp)
		if envelope.Error == nil || envelope.Error.Code != "NOT_READY" {
			t.Errorf("error = %+v, want NOT_READY", envelope.Error)
		}
	})
}

func TestRealtimeStats(t *testing.T) {
	srv, _ := newTestServer(t, nil, nil)

	resp, err := http.Get(srv.URL + "/api/v1/realtime/stats")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	envelope := decodeResponse(t, resp)

	raw, _ := json.Marshal(envelope.Data)
	var stats realtime.Stats
	if err := json.Unmarshal(raw, &stats); err != nil {
		t.Fatalf("stats payload invalid: %v", err)
	}
	if stats.TotalClients != 0 {
		t.Errorf("TotalClients = %d, want 0", stats.TotalClients)
	}
}

func TestBroadcastValidation(t *testing.T) {
	srv, _ := newTestServer(t, nil, nil)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"invalid json", `{`, http.StatusBadRequest},
		{"missing type", `{"channel":"extensions"}`, http.StatusBadRequest},
		{"unknown channel", `{"channel":"secrets","type":"x"}`, http.StatusBadRequest},
		{"neither channel nor user", `{"type":"x"}`, http.StatusBadRequest},
		{"both channel and user", `{"channel":"extensions","userId":"u1","type":"x"}`, http.StatusBadRequest},
		{"valid channel broadcast", `{"channel":"extensions","type":"extension_updated"}`, http.StatusOK},
		{"valid user broadcast", `{"userId":"u1","type":"notice"}`, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+"/api/v1/broadcast", "application/json", strings.NewReader(tt.body))
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestBroadcastReportsRecipients(t *testing.T) {
	srv, _ := newTestServer(t, nil, nil)

	resp, err := http.Post(srv.URL+"/api/v1/broadcast", "application/json",
		strings.NewReader(`{"channel":"extensions","type":"extension_updated","payload":{"id":"ext-a"}}`))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	envelope := decodeResponse(t, resp)

	raw, _ := json.Marshal(envelope.Data)
	var result struct {
		Recipients int `json:"recipients"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		t.Fatalf("payload invalid: %v", err)
	}
	if result.Recipients != 0 {
		t.Errorf("recipients = %d with no clients connected, want 0", result.Recipients)
	}
}

func TestOpsEndpointsBasicAuth(t *testing.T) {
	manager, err := auth.NewBasicAuthManager("ops", "secret-password")
	if err != nil {
		t.Fatalf("basic auth setup failed: %v", err)
	}
	srv, _ := newTestServer(t, nil, manager)

	t.Run("rejects missing credentials", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/v1/realtime/stats")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", resp.StatusCode)
		}
		if got := resp.Header.Get("WWW-Authenticate"); got == "" {
			t.Error("401 response missing WWW-Authenticate header")
		}
	})

	t.Run("accepts valid credentials", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/realtime/stats", nil)
		req.SetBasicAuth("ops", "secret-password")
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
	})

	t.Run("health stays open", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/healthz/live")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
	})
}

func TestSecurityHeaders(t *testing.T) {
	srv, _ := newTestServer(t, nil, nil)

	resp, err := http.Get(srv.URL + "/api/v1/realtime/stats")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	if got := resp.Header.Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}
	if got := resp.Header.Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q, want DENY", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, nil, nil)

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}
