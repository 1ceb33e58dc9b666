// Heliograph - Realtime Event Gateway for Extension Catalogs
// Copyright 2026 The Heliograph Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/heliograph/heliograph

package realtime

import (
	"testing"
	"time"

	"github.com/heliograph/heliograph/internal/auth"
)

func TestConnectionIdentity(t *testing.T) {
	anon := newConnection(nil, nil, time.Unix(0, 0), 1)
	authed := newConnection(nil, &auth.Principal{ID: "u1", Role: "admin"}, time.Unix(0, 0), 1)

	if anon.ID == "" || authed.ID == "" {
		t.Fatal("connections must get ids at construction")
	}
	if anon.ID == authed.ID {
		t.Error("connection ids must be unique")
	}

	if anon.Authenticated() {
		t.Error("connection without principal reports authenticated")
	}
	if anon.UserID() != "" {
		t.Errorf("anonymous UserID() = %q, want empty", anon.UserID())
	}
	if anon.Principal() != nil {
		t.Error("anonymous Principal() should be nil")
	}

	if !authed.Authenticated() {
		t.Error("connection with principal reports anonymous")
	}
	if authed.UserID() != "u1" {
		t.Errorf("UserID() = %q, want u1", authed.UserID())
	}
}

func TestConnectionTouch(t *testing.T) {
	start := time.Unix(100, 0)
	c := newConnection(nil, nil, start, 1)

	if !c.LastSeen().Equal(start) {
		t.Errorf("LastSeen() = %v, want accept time %v", c.LastSeen(), start)
	}

	later := start.Add(30 * time.Second)
	c.Touch(later)
	if !c.LastSeen().Equal(later) {
		t.Errorf("LastSeen() = %v, want %v", c.LastSeen(), later)
	}
}

func TestConnectionEnqueue(t *testing.T) {
	c := newConnection(nil, nil, time.Unix(0, 0), 2)

	if !c.enqueue([]byte("a")) || !c.enqueue([]byte("b")) {
		t.Fatal("enqueue within buffer should succeed")
	}
	if c.enqueue([]byte("c")) {
		t.Error("enqueue on a full buffer should report false, not block")
	}

	c.close()
	if c.enqueue([]byte("d")) {
		t.Error("enqueue after close should report false")
	}
}

func TestConnectionCloseIsIdempotent(t *testing.T) {
	c := newConnection(nil, nil, time.Unix(0, 0), 1)
	c.close()
	c.close()
	c.close()

	select {
	case <-c.done:
	default:
		t.Error("done channel should be closed")
	}
}

func TestConnectionPingCoalesces(t *testing.T) {
	c := newConnection(nil, nil, time.Unix(0, 0), 1)

	c.requestPing()
	c.requestPing()
	c.requestPing()

	<-c.ping
	select {
	case <-c.ping:
		t.Error("pending probes should coalesce into one")
	default:
	}
}
