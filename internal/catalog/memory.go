// Heliograph - Realtime Event Gateway for Extension Catalogs
// Copyright 2026 The Heliograph Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/heliograph/heliograph

package catalog

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is the in-process Store used by standalone deployments and
// tests. Writes come from whatever seeds or syncs the catalog; the
// gateway itself only reads.
type MemoryStore struct {
	mu         sync.RWMutex
	extensions map[string]Extension
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{extensions: make(map[string]Extension)}
}

// Upsert inserts or replaces one extension.
func (s *MemoryStore) Upsert(ext Extension) {
	s.mu.Lock()
	s.extensions[ext.ID] = ext
	s.mu.Unlock()
}

// Remove deletes one extension. Removing an absent id is a no-op.
func (s *MemoryStore) Remove(id string) {
	s.mu.Lock()
	delete(s.extensions, id)
	s.mu.Unlock()
}

// List returns every extension sorted by id for stable output.
func (s *MemoryStore) List(_ context.Context) ([]Extension, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Extension, 0, len(s.extensions))
	for _, ext := range s.extensions {
		out = append(out, ext)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Get returns one extension or ErrNotFound.
func (s *MemoryStore) Get(_ context.Context, id string) (*Extension, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ext, ok := s.extensions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &ext, nil
}

// Stats aggregates the snapshot in one pass.
func (s *MemoryStore) Stats(_ context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{TotalExtensions: len(s.extensions)}
	publishers := make(map[string]struct{})
	for _, ext := range s.extensions {
		stats.TotalDownloads += ext.Downloads
		publishers[ext.Publisher] = struct{}{}
	}
	stats.Publishers = len(publishers)
	return stats, nil
}
