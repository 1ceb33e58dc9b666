// Heliograph - Realtime Event Gateway for Extension Catalogs
// Copyright 2026 The Heliograph Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/heliograph/heliograph

package catalog

import (
	"context"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/heliograph/heliograph/internal/logging"
	"github.com/heliograph/heliograph/internal/metrics"
)

// BreakerConfig tunes the circuit breaker around a remote Store.
type BreakerConfig struct {
	// MaxFailures consecutive failures open the circuit.
	MaxFailures uint32

	// Timeout is how long the circuit stays open before a probe request
	// is allowed through.
	Timeout time.Duration
}

// BreakerStore wraps a Store with a circuit breaker. A catalog backend that
// starts failing or hanging stops being called until the timeout elapses,
// so the stats publisher degrades to skipped ticks instead of piling up
// blocked requests.
//
// The breaker uses real time for its open/half-open transitions; tests
// exercise state changes by driving failures, not clocks.
type BreakerStore struct {
	store Store
	cb    *gobreaker.CircuitBreaker[any]
}

// NewBreakerStore wraps store.
func NewBreakerStore(store Store, cfg BreakerConfig) *BreakerStore {
	const name = "catalog-store"
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:    name,
		Timeout: cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("breaker", name).
				Str("from", stateToString(from)).
				Str("to", stateToString(to)).
				Msg("circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, stateToString(from), stateToString(to)).Inc()
		},
	})

	return &BreakerStore{store: store, cb: cb}
}

// List calls through the breaker.
func (b *BreakerStore) List(ctx context.Context) ([]Extension, error) {
	result, err := b.cb.Execute(func() (any, error) {
		return b.store.List(ctx)
	})
	if err != nil {
		return nil, err
	}
	return result.([]Extension), nil
}

// Get calls through the breaker. ErrNotFound counts as a failure like any
// other error; a catalog that keeps returning it for known-good ids is
// misbehaving anyway.
func (b *BreakerStore) Get(ctx context.Context, id string) (*Extension, error) {
	result, err := b.cb.Execute(func() (any, error) {
		return b.store.Get(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return result.(*Extension), nil
}

// Stats calls through the breaker.
func (b *BreakerStore) Stats(ctx context.Context) (Stats, error) {
	result, err := b.cb.Execute(func() (any, error) {
		return b.store.Stats(ctx)
	})
	if err != nil {
		return Stats{}, err
	}
	return result.(Stats), nil
}

// State returns the breaker state for health reporting.
func (b *BreakerStore) State() string {
	return stateToString(b.cb.State())
}

func stateToString(s gobreaker.State) string {
	switch s {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
