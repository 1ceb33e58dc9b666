// Heliograph - Realtime Event Gateway for Extension Catalogs
// Copyright 2026 The Heliograph Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/heliograph/heliograph

package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
)

// failingStore fails every call until healthy is set.
type failingStore struct {
	healthy bool
	calls   int
}

var errUpstream = errors.New("catalog upstream unavailable")

func (f *failingStore) List(ctx context.Context) ([]Extension, error) {
	f.calls++
	if !f.healthy {
		return nil, errUpstream
	}
	return []Extension{{ID: "ext-a"}}, nil
}

func (f *failingStore) Get(ctx context.Context, id string) (*Extension, error) {
	f.calls++
	if !f.healthy {
		return nil, errUpstream
	}
	return &Extension{ID: id}, nil
}

func (f *failingStore) Stats(ctx context.Context) (Stats, error) {
	f.calls++
	if !f.healthy {
		return Stats{}, errUpstream
	}
	return Stats{TotalExtensions: 1}, nil
}

func TestBreakerStorePassesThrough(t *testing.T) {
	inner := &failingStore{healthy: true}
	b := NewBreakerStore(inner, BreakerConfig{MaxFailures: 3, Timeout: time.Minute})

	list, err := b.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 1 || list[0].ID != "ext-a" {
		t.Errorf("List returned %+v", list)
	}

	ext, err := b.Get(context.Background(), "ext-a")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if ext.ID != "ext-a" {
		t.Errorf("Get returned %+v", ext)
	}

	stats, err := b.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.TotalExtensions != 1 {
		t.Errorf("Stats returned %+v", stats)
	}
	if b.State() != "closed" {
		t.Errorf("State = %q after successes, want closed", b.State())
	}
}

func TestBreakerStoreOpensAfterConsecutiveFailures(t *testing.T) {
	inner := &failingStore{}
	b := NewBreakerStore(inner, BreakerConfig{MaxFailures: 3, Timeout: time.Minute})

	for i := 0; i < 3; i++ {
		if _, err := b.Stats(context.Background()); !errors.Is(err, errUpstream) {
			t.Fatalf("call %d error = %v, want upstream error", i, err)
		}
	}
	if b.State() != "open" {
		t.Fatalf("State = %q after %d failures, want open", b.State(), 3)
	}

	before := inner.calls
	if _, err := b.Stats(context.Background()); !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("open-circuit error = %v, want ErrOpenState", err)
	}
	if inner.calls != before {
		t.Errorf("inner store called while circuit open")
	}
}

func TestBreakerStoreRecoversAfterTimeout(t *testing.T) {
	inner := &failingStore{}
	b := NewBreakerStore(inner, BreakerConfig{MaxFailures: 1, Timeout: 50 * time.Millisecond})

	if _, err := b.Stats(context.Background()); !errors.Is(err, errUpstream) {
		t.Fatalf("error = %v, want upstream error", err)
	}
	if b.State() != "open" {
		t.Fatalf("State = %q, want open", b.State())
	}

	inner.healthy = true
	time.Sleep(60 * time.Millisecond)

	stats, err := b.Stats(context.Background())
	if err != nil {
		t.Fatalf("probe after timeout failed: %v", err)
	}
	if stats.TotalExtensions != 1 {
		t.Errorf("Stats returned %+v", stats)
	}
	if b.State() != "closed" {
		t.Errorf("State = %q after recovery, want closed", b.State())
	}
}
