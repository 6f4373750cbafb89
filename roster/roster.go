// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package roster implements contact list functionality.
package roster // import "mellium.im/ymsg/roster"

import (
	"sort"
	"strings"

	"golang.org/x/text/secure/precis"

	"mellium.im/ymsg/presence"
)

// P2PState records which side, if any, initiated a direct connection to a
// friend.
type P2PState int

// Possible P2P states.
const (
	NotConnected P2PState = iota
	WeAreClient
	WeAreServer
)

func (s P2PState) String() string {
	switch s {
	case WeAreClient:
		return "client"
	case WeAreServer:
		return "server"
	}
	return "not connected"
}

// Friend is a contact in the roster.
type Friend struct {
	// ID is the normalized identifier used as the roster key.
	ID string
	// Name is the identifier as last seen on the wire.
	Name  string
	Group string

	Presence presence.Presence
	Protocol int

	P2PState      P2PState
	P2PPacketSent bool

	// SessionID is the peer's own session id, used to validate packets that
	// arrive over a direct connection.
	SessionID uint32
}

// Normalize returns the canonical form of a contact identifier.
// Identifiers are compared case-insensitively.
func Normalize(id string) string {
	id = strings.TrimSpace(id)
	norm, err := precis.UsernameCaseMapped.String(id)
	if err != nil {
		return strings.ToLower(id)
	}
	return norm
}

// Roster is the set of friends known to a session keyed by normalized
// identifier.
// A Roster is not safe for concurrent use.
type Roster struct {
	friends map[string]*Friend
}

// New returns an empty roster.
func New() *Roster {
	return &Roster{friends: make(map[string]*Friend)}
}

// Get returns the friend with the given identifier.
func (r *Roster) Get(id string) (*Friend, bool) {
	f, ok := r.friends[Normalize(id)]
	return f, ok
}

// FindOrCreate returns the friend with the given identifier, creating an
// offline entry if none exists.
func (r *Roster) FindOrCreate(id string) (f *Friend, created bool) {
	key := Normalize(id)
	if f, ok := r.friends[key]; ok {
		return f, false
	}
	f = &Friend{
		ID:       key,
		Name:     strings.TrimSpace(id),
		Presence: presence.Presence{Status: presence.Offline},
	}
	r.friends[key] = f
	return f, true
}

// Remove deletes the friend with the given identifier and returns it.
func (r *Roster) Remove(id string) (*Friend, bool) {
	key := Normalize(id)
	f, ok := r.friends[key]
	if ok {
		delete(r.friends, key)
	}
	return f, ok
}

// Len returns the number of friends in the roster.
func (r *Roster) Len() int {
	return len(r.friends)
}

// IDs returns the identifiers of all friends in sorted order.
func (r *Roster) IDs() []string {
	ids := make([]string, 0, len(r.friends))
	for id := range r.friends {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Range calls f for each friend in identifier order until f returns false.
// f must not add or remove friends.
func (r *Roster) Range(f func(*Friend) bool) {
	for _, id := range r.IDs() {
		if !f(r.friends[id]) {
			return
		}
	}
}

// Snapshot returns copies of all friends in identifier order.
func (r *Roster) Snapshot() []Friend {
	out := make([]Friend, 0, len(r.friends))
	r.Range(func(f *Friend) bool {
		out = append(out, *f)
		return true
	})
	return out
}

// Groups returns the names of all groups that have at least one member in
// sorted order.
func (r *Roster) Groups() []string {
	seen := make(map[string]struct{})
	var groups []string
	for _, f := range r.friends {
		if f.Group == "" {
			continue
		}
		if _, ok := seen[f.Group]; ok {
			continue
		}
		seen[f.Group] = struct{}{}
		groups = append(groups, f.Group)
	}
	sort.Strings(groups)
	return groups
}

// Reconcile makes the roster match the list sent by the server.
// Friends in entries that are missing are created, the group of existing
// friends is updated, and friends that do not appear in entries are removed.
// If beforeRemove is not nil it is called for each friend before it is removed.
//
// Reconcile is idempotent: applying the same entries twice leaves the roster
// as it was after the first call.
func (r *Roster) Reconcile(entries []Entry, beforeRemove func(*Friend)) (added, removed []string) {
	keep := make(map[string]struct{})
	for _, e := range entries {
		for _, m := range e.Members {
			key := Normalize(m)
			if _, dup := keep[key]; dup {
				continue
			}
			keep[key] = struct{}{}
			f, created := r.FindOrCreate(m)
			f.Group = e.Group
			if created {
				added = append(added, f.ID)
			}
		}
	}
	for _, id := range r.IDs() {
		if _, ok := keep[id]; ok {
			continue
		}
		f := r.friends[id]
		if beforeRemove != nil {
			beforeRemove(f)
		}
		delete(r.friends, id)
		removed = append(removed, id)
	}
	return added, removed
}
