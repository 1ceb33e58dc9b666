// Heliograph - Realtime Event Gateway for Extension Catalogs
// Copyright 2026 The Heliograph Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/heliograph/heliograph

package realtime

import (
	"reflect"
	"sort"
	"testing"
)

func TestChannelIndexSubscribe(t *testing.T) {
	tests := []struct {
		name          string
		authenticated bool
		request       []string
		wantAccepted  []string
	}{
		{
			name:          "known channels accepted in request order",
			authenticated: false,
			request:       []string{ChannelStats, ChannelExtensions},
			wantAccepted:  []string{ChannelStats, ChannelExtensions},
		},
		{
			name:          "unknown names silently dropped",
			authenticated: false,
			request:       []string{ChannelStats, "nope"},
			wantAccepted:  []string{ChannelStats},
		},
		{
			name:          "user_activity dropped for anonymous",
			authenticated: false,
			request:       []string{ChannelUserActivity},
			wantAccepted:  []string{},
		},
		{
			name:          "user_activity accepted for authenticated",
			authenticated: true,
			request:       []string{ChannelUserActivity},
			wantAccepted:  []string{ChannelUserActivity},
		},
		{
			name:          "duplicates collapsed",
			authenticated: false,
			request:       []string{ChannelStats, ChannelStats, ChannelSystem},
			wantAccepted:  []string{ChannelStats, ChannelSystem},
		},
		{
			name:          "empty request",
			authenticated: false,
			request:       []string{},
			wantAccepted:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x := NewChannelIndex()
			accepted := x.Subscribe("conn-1", tt.authenticated, tt.request)
			if !reflect.DeepEqual(accepted, tt.wantAccepted) {
				t.Errorf("Subscribe() = %v, want %v", accepted, tt.wantAccepted)
			}
		})
	}
}

func TestChannelIndexSubscribeIsIdempotent(t *testing.T) {
	x := NewChannelIndex()

	first := x.Subscribe("conn-1", false, []string{ChannelStats})
	second := x.Subscribe("conn-1", false, []string{ChannelStats})

	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeat Subscribe() = %v, first = %v; should match", second, first)
	}

	members := x.MembersOf(ChannelStats)
	if len(members) != 1 || members[0] != "conn-1" {
		t.Errorf("MembersOf() = %v, want exactly one conn-1", members)
	}
	if n := x.SubscriptionCount("conn-1"); n != 1 {
		t.Errorf("SubscriptionCount() = %d, want 1", n)
	}
}

// Subscribing and unsubscribing through any sequence must keep the two
// directions of the index in agreement.
func TestChannelIndexSymmetry(t *testing.T) {
	x := NewChannelIndex()

	x.Subscribe("a", true, []string{ChannelStats, ChannelExtensions, ChannelUserActivity})
	x.Subscribe("b", false, []string{ChannelStats})
	x.Unsubscribe("a", []string{ChannelExtensions})

	for _, connID := range []string{"a", "b"} {
		var fromMembers []string
		for _, name := range []string{ChannelExtensions, ChannelStats, ChannelUserActivity, ChannelSystem} {
			for _, id := range x.MembersOf(name) {
				if id == connID {
					fromMembers = append(fromMembers, name)
				}
			}
		}
		sort.Strings(fromMembers)

		fromChannels := x.ChannelsOf(connID)
		if len(fromMembers) == 0 && len(fromChannels) == 0 {
			continue
		}
		if !reflect.DeepEqual(fromChannels, fromMembers) {
			t.Errorf("conn %s: ChannelsOf() = %v but membership says %v", connID, fromChannels, fromMembers)
		}
	}
}

func TestChannelIndexUnsubscribe(t *testing.T) {
	x := NewChannelIndex()
	x.Subscribe("conn-1", false, []string{ChannelStats, ChannelSystem})

	removed := x.Unsubscribe("conn-1", []string{ChannelStats, ChannelExtensions, "nope"})
	if !reflect.DeepEqual(removed, []string{ChannelStats}) {
		t.Errorf("Unsubscribe() = %v, want [stats] only", removed)
	}
	if got := x.ChannelsOf("conn-1"); !reflect.DeepEqual(got, []string{ChannelSystem}) {
		t.Errorf("ChannelsOf() = %v, want [system]", got)
	}
}

// A channel with no members must vanish from the index entirely.
func TestChannelIndexGarbageCollection(t *testing.T) {
	x := NewChannelIndex()
	x.Subscribe("a", false, []string{ChannelStats})
	x.Subscribe("b", false, []string{ChannelStats})

	x.Unsubscribe("a", []string{ChannelStats})
	if _, ok := x.Counts()[ChannelStats]; !ok {
		t.Fatal("stats should survive while b is subscribed")
	}

	x.Unsubscribe("b", []string{ChannelStats})
	if members := x.MembersOf(ChannelStats); len(members) != 0 {
		t.Errorf("MembersOf() = %v, want empty", members)
	}
	if counts := x.Counts(); len(counts) != 0 {
		t.Errorf("Counts() = %v, want no channels", counts)
	}
}

func TestChannelIndexRemoveConnection(t *testing.T) {
	x := NewChannelIndex()
	x.Subscribe("a", true, []string{ChannelStats, ChannelExtensions, ChannelUserActivity})
	x.Subscribe("b", false, []string{ChannelStats})

	x.RemoveConnection("a")

	if n := x.SubscriptionCount("a"); n != 0 {
		t.Errorf("SubscriptionCount(a) = %d, want 0", n)
	}
	if got := x.MembersOf(ChannelStats); !reflect.DeepEqual(got, []string{"b"}) {
		t.Errorf("MembersOf(stats) = %v, want [b]", got)
	}
	counts := x.Counts()
	if len(counts) != 1 || counts[ChannelStats] != 1 {
		t.Errorf("Counts() = %v, want stats:1 only", counts)
	}

	// Removing an absent connection is a no-op.
	x.RemoveConnection("never-existed")
	x.RemoveConnection("a")
}

func TestChannelIndexCounts(t *testing.T) {
	x := NewChannelIndex()
	x.Subscribe("a", false, []string{ChannelStats, ChannelExtensions})
	x.Subscribe("b", false, []string{ChannelStats})
	x.Subscribe("c", false, []string{ChannelStats})

	want := map[string]int{ChannelStats: 3, ChannelExtensions: 1}
	if got := x.Counts(); !reflect.DeepEqual(got, want) {
		t.Errorf("Counts() = %v, want %v", got, want)
	}
}
