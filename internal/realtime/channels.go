// Heliograph - Realtime Event Gateway for Extension Catalogs
// Copyright 2026 The Heliograph Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/heliograph/heliograph

package realtime

import (
	"sort"
	"sync"

	"github.com/heliograph/heliograph/internal/metrics"
)

// Broadcast channel names. The set is fixed: subscribe requests naming
// anything else are silently dropped so forward-compatible clients degrade
// gracefully instead of erroring.
const (
	ChannelExtensions   = "extensions"
	ChannelStats        = "stats"
	ChannelUserActivity = "user_activity"
	ChannelSystem       = "system"
)

var knownChannels = map[string]struct{}{
	ChannelExtensions:   {},
	ChannelStats:        {},
	ChannelUserActivity: {},
	ChannelSystem:       {},
}

// ChannelIndex maintains the many-to-many mapping between channel names and
// subscribed connection ids. Both directions live under one lock, so a
// connection's channel set and the channels' member sets cannot drift.
// A channel exists only while it has members; the last unsubscribe or
// disconnect deletes it.
type ChannelIndex struct {
	mu      sync.RWMutex
	members map[string]map[string]struct{} // channel name -> connection ids
	subbed  map[string]map[string]struct{} // connection id -> channel names
}

// NewChannelIndex returns an empty index.
func NewChannelIndex() *ChannelIndex {
	return &ChannelIndex{
		members: make(map[string]map[string]struct{}),
		subbed:  make(map[string]map[string]struct{}),
	}
}

// Subscribe adds the connection to every requested channel that passes
// validation and returns the accepted names in request order. Unknown names
// are dropped, not errors. user_activity additionally requires the
// connection to be authenticated; without a principal it is dropped exactly
// like an unknown name. Re-subscribing is idempotent: the name is accepted
// again, membership stays single.
func (x *ChannelIndex) Subscribe(connID string, authenticated bool, names []string) []string {
	x.mu.Lock()
	defer x.mu.Unlock()

	accepted := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))

	for _, name := range names {
		if _, ok := knownChannels[name]; !ok {
			continue
		}
		if name == ChannelUserActivity && !authenticated {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		if x.members[name] == nil {
			x.members[name] = make(map[string]struct{})
		}
		x.members[name][connID] = struct{}{}
		if x.subbed[connID] == nil {
			x.subbed[connID] = make(map[string]struct{})
		}
		x.subbed[connID][name] = struct{}{}
		metrics.SetChannelSubscribers(name, len(x.members[name]))

		accepted = append(accepted, name)
	}
	return accepted
}

// Unsubscribe removes the connection from every named channel it was
// actually a member of and returns those names in request order. Names the
// connection was not subscribed to, unknown names included, are simply
// absent from the result.
func (x *ChannelIndex) Unsubscribe(connID string, names []string) []string {
	x.mu.Lock()
	defer x.mu.Unlock()

	removed := make([]string, 0, len(names))
	for _, name := range names {
		ids, ok := x.members[name]
		if !ok {
			continue
		}
		if _, member := ids[connID]; !member {
			continue
		}
		x.dropMember(name, connID)
		removed = append(removed, name)
	}
	return removed
}

// RemoveConnection purges the connection from every channel. Used on
// disconnect and eviction.
func (x *ChannelIndex) RemoveConnection(connID string) {
	x.mu.Lock()
	defer x.mu.Unlock()

	for name := range x.subbed[connID] {
		x.dropMember(name, connID)
	}
}

// dropMember removes one membership and garbage-collects empty sets on both
// sides. Callers hold the write lock.
func (x *ChannelIndex) dropMember(name, connID string) {
	delete(x.members[name], connID)
	if len(x.members[name]) == 0 {
		delete(x.members, name)
		metrics.SetChannelSubscribers(name, 0)
	} else {
		metrics.SetChannelSubscribers(name, len(x.members[name]))
	}

	delete(x.subbed[connID], name)
	if len(x.subbed[connID]) == 0 {
		delete(x.subbed, connID)
	}
}

// MembersOf returns the connection ids subscribed to the channel.
func (x *ChannelIndex) MembersOf(name string) []string {
	x.mu.RLock()
	defer x.mu.RUnlock()

	ids := make([]string, 0, len(x.members[name]))
	for id := range x.members[name] {
		ids = append(ids, id)
	}
	return ids
}

// ChannelsOf returns the channel names the connection is subscribed to,
// sorted for stable output.
func (x *ChannelIndex) ChannelsOf(connID string) []string {
	x.mu.RLock()
	defer x.mu.RUnlock()

	names := make([]string, 0, len(x.subbed[connID]))
	for name := range x.subbed[connID] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SubscriptionCount returns how many channels the connection is subscribed to.
func (x *ChannelIndex) SubscriptionCount(connID string) int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.subbed[connID])
}

// Counts returns the member count per live channel. Channels with no
// members do not appear.
func (x *ChannelIndex) Counts() map[string]int {
	x.mu.RLock()
	defer x.mu.RUnlock()

	counts := make(map[string]int, len(x.members))
	for name, ids := range x.members {
		counts[name] = len(ids)
	}
	return counts
}
