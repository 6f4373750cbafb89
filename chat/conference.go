// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package chat

import (
	"sort"

	"mellium.im/ymsg/roster"
)

// Conference is a multi-party room.
type Conference struct {
	Name string
	Host string

	members map[string]string
}

// Join adds id to the conference and reports whether it was new.
func (c *Conference) Join(id string) bool {
	key := roster.Normalize(id)
	if _, ok := c.members[key]; ok {
		return false
	}
	c.members[key] = id
	return true
}

// Leave removes id from the conference and reports whether it was present.
func (c *Conference) Leave(id string) bool {
	key := roster.Normalize(id)
	if _, ok := c.members[key]; !ok {
		return false
	}
	delete(c.members, key)
	return true
}

// Has reports whether id is in the conference.
func (c *Conference) Has(id string) bool {
	_, ok := c.members[roster.Normalize(id)]
	return ok
}

// Members returns the members of the conference in sorted order.
func (c *Conference) Members() []string {
	keys := make([]string, 0, len(c.members))
	for k := range c.members {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, c.members[k])
	}
	return out
}

// Invite is an invitation to a conference that has not been accepted or
// declined.
type Invite struct {
	Room    string
	From    string
	Message string
	Members []string
}

// Conferences is the set of conferences a session is in, keyed by room name.
type Conferences struct {
	rooms   map[string]*Conference
	invites map[string]Invite
}

// Add returns the conference named name, creating it if necessary.
func (cs *Conferences) Add(name, host string) (c *Conference, created bool) {
	if c, ok := cs.rooms[name]; ok {
		return c, false
	}
	if cs.rooms == nil {
		cs.rooms = make(map[string]*Conference)
	}
	c = &Conference{Name: name, Host: host, members: make(map[string]string)}
	cs.rooms[name] = c
	return c, true
}

// Get returns the conference named name.
func (cs *Conferences) Get(name string) (*Conference, bool) {
	c, ok := cs.rooms[name]
	return c, ok
}

// Remove deletes the conference named name and reports whether it existed.
// Removing a conference that was already removed is not an error.
func (cs *Conferences) Remove(name string) bool {
	_, ok := cs.rooms[name]
	delete(cs.rooms, name)
	return ok
}

// Names returns the names of all conferences in sorted order.
func (cs *Conferences) Names() []string {
	names := make([]string, 0, len(cs.rooms))
	for n := range cs.rooms {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of conferences.
func (cs *Conferences) Len() int {
	return len(cs.rooms)
}

// Invite records a pending invitation.
// A later invitation to the same room replaces the earlier one.
func (cs *Conferences) Invite(inv Invite) {
	if cs.invites == nil {
		cs.invites = make(map[string]Invite)
	}
	cs.invites[inv.Room] = inv
}

// TakeInvite removes and returns the pending invitation to room.
func (cs *Conferences) TakeInvite(room string) (Invite, bool) {
	inv, ok := cs.invites[room]
	delete(cs.invites, room)
	return inv, ok
}

// Reset forgets all conferences and invitations.
func (cs *Conferences) Reset() {
	cs.rooms = nil
	cs.invites = nil
}
