// Heliograph - Realtime Event Gateway for Extension Catalogs
// Copyright 2026 The Heliograph Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/heliograph/heliograph

package realtime

import "sync"

// Registry owns the set of live connections and is the source of truth for
// who is connected. Removal is idempotent because disconnect, heartbeat
// eviction, and write-failure eviction can race for the same id.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*Connection
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]*Connection),
	}
}

// Add stores a connection under its id.
func (r *Registry) Add(c *Connection) {
	r.mu.Lock()
	r.conns[c.ID] = c
	r.mu.Unlock()
}

// Remove deletes a connection by id. Reports false when the id was already
// absent, which racing eviction paths treat as "someone else won".
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[id]; !ok {
		return false
	}
	delete(r.conns, id)
	return true
}

// Get looks up a connection by id.
func (r *Registry) Get(id string) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[id]
	return c, ok
}

// ForEach calls fn for every live connection. It iterates over a snapshot
// so fn is free to evict connections without deadlocking.
func (r *Registry) ForEach(fn func(*Connection)) {
	r.mu.RLock()
	snapshot := make([]*Connection, 0, len(r.conns))
	for _, c := range r.conns {
		snapshot = append(snapshot, c)
	}
	r.mu.RUnlock()

	for _, c := range snapshot {
		fn(c)
	}
}

// Len returns the number of live connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
