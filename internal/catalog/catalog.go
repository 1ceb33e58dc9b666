// Heliograph - Realtime Event Gateway for Extension Catalogs
// Copyright 2026 The Heliograph Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/heliograph/heliograph

package catalog

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get for an unknown extension id.
var ErrNotFound = errors.New("extension not found")

// Extension is one catalog entry as the gateway sees it: enough to build
// notification payloads, nothing more. The catalog services own the full
// record.
type Extension struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Publisher   string    `json:"publisher"`
	Version     string    `json:"version"`
	Description string    `json:"description,omitempty"`
	Downloads   int64     `json:"downloads"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Stats is the catalog-wide snapshot pushed to the stats channel.
type Stats struct {
	TotalExtensions int   `json:"totalExtensions"`
	TotalDownloads  int64 `json:"totalDownloads"`
	Publishers      int   `json:"publishers"`
}

// Store is the read API the gateway calls. Implementations must be safe
// for concurrent use.
type Store interface {
	// List returns every extension. Order is implementation-defined.
	List(ctx context.Context) ([]Extension, error)

	// Get returns one extension or ErrNotFound.
	Get(ctx context.Context, id string) (*Extension, error)

	// Stats returns the catalog-wide snapshot.
	Stats(ctx context.Context) (Stats, error)
}
