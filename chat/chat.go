// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

//go:generate go run -tags=tools golang.org/x/tools/cmd/stringer -type=State,Action

// Package chat tracks membership of legacy chat rooms and conferences.
//
// A session may be in at most one legacy chat room at a time, but in any
// number of conferences.
// None of the types in this package are safe for concurrent use.
package chat // import "mellium.im/ymsg/chat"

import (
	"sort"
	"strings"

	"mellium.im/ymsg/roster"
)

// ErrAlreadyJoined is the error code sent by the server when joining a room
// that the session is already in.
const ErrAlreadyJoined = -35

// State is the state of legacy chat membership.
type State int

// Legacy chat states.
const (
	NotInChat State = iota
	AwaitingOnlineAck
	AwaitingJoinAck
	InChat
	Leaving
)

// Action tells the caller what to send in response to a join request.
type Action int

// Join actions.
const (
	// SendOnline means the caller should announce itself to the chat system
	// and wait for the acknowledgement before joining.
	SendOnline Action = iota
	// SendJoin means the caller should send a join for the room.
	SendJoin
	// Queued means a join is already in progress and the room will be joined
	// once it completes.
	Queued
	// AlreadyJoined means the session is already in the room and nothing needs
	// to be sent.
	AlreadyJoined
)

// Chat is the legacy chat state machine.
// The zero value is in the NotInChat state.
type Chat struct {
	state   State
	room    string
	members map[string]string
	pending string
}

// State returns the current state.
func (c *Chat) State() State {
	return c.state
}

// Room returns the room that is joined, being joined, or being left.
func (c *Chat) Room() string {
	return c.room
}

// Pending returns the room waiting for the current join or leave to finish.
func (c *Chat) Pending() string {
	return c.pending
}

// Join requests membership of room.
// At most one join is queued; a later request replaces an earlier one.
func (c *Chat) Join(room string) Action {
	switch c.state {
	case NotInChat:
		c.state = AwaitingOnlineAck
		c.room = room
		c.members = nil
		return SendOnline
	case InChat:
		if sameRoom(room, c.room) {
			return AlreadyJoined
		}
		c.state = AwaitingJoinAck
		c.room = room
		c.members = nil
		return SendJoin
	case Leaving:
		c.pending = room
		return Queued
	}
	// A join is in flight.
	if sameRoom(room, c.room) {
		c.pending = ""
	} else {
		c.pending = room
	}
	return Queued
}

// OnlineAck handles the acknowledgement of the chat online announcement.
// If ok is true the caller should send a join for room.
func (c *Chat) OnlineAck() (room string, ok bool) {
	if c.state != AwaitingOnlineAck {
		return "", false
	}
	if c.pending != "" {
		c.room = c.pending
		c.pending = ""
	}
	c.state = AwaitingJoinAck
	return c.room, true
}

// JoinAck handles a successful join of room with the given members.
// If a different room was requested while the join was in flight, next is
// that room and the caller should send a join for it.
func (c *Chat) JoinAck(room string, members []string) (next string, ok bool) {
	c.state = InChat
	c.room = room
	c.members = make(map[string]string, len(members))
	for _, m := range members {
		c.members[roster.Normalize(m)] = m
	}
	if c.pending == "" || sameRoom(c.pending, room) {
		c.pending = ""
		return "", false
	}
	next = c.pending
	c.pending = ""
	c.state = AwaitingJoinAck
	c.room = next
	c.members = nil
	return next, true
}

// JoinFailed handles an error in response to a join.
// The ErrAlreadyJoined code is benign: the session is treated as being in the
// room and joined is true.
// Any other code returns the state machine to NotInChat and discards a queued
// join.
func (c *Chat) JoinFailed(code int) (joined bool) {
	if code == ErrAlreadyJoined && c.room != "" {
		c.state = InChat
		if c.members == nil {
			c.members = make(map[string]string)
		}
		return true
	}
	c.reset()
	return false
}

// MemberJoined adds id to the room.
// It reports whether the member was new.
func (c *Chat) MemberJoined(id string) bool {
	if c.state != InChat {
		return false
	}
	key := roster.Normalize(id)
	if _, ok := c.members[key]; ok {
		return false
	}
	c.members[key] = id
	return true
}

// MemberLeft removes id from the room.
// It reports whether the member was present.
func (c *Chat) MemberLeft(id string) bool {
	key := roster.Normalize(id)
	if _, ok := c.members[key]; !ok {
		return false
	}
	delete(c.members, key)
	return true
}

// Members returns the members of the current room in sorted order.
func (c *Chat) Members() []string {
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

// Leave starts leaving the current room.
// If the session is not in a room ok is false and nothing needs to be sent.
func (c *Chat) Leave() (room string, ok bool) {
	c.pending = ""
	switch c.state {
	case InChat, AwaitingJoinAck:
		c.state = Leaving
		return c.room, true
	case AwaitingOnlineAck:
		c.reset()
	}
	return "", false
}

// Left completes a leave.
// If a join was requested while leaving, next is that room and the caller
// should pass it to Join.
func (c *Chat) Left() (next string, ok bool) {
	next = c.pending
	c.reset()
	return next, next != ""
}

// Reset returns the state machine to NotInChat, for example after the chat
// system logs the session out.
func (c *Chat) Reset() {
	c.reset()
}

func (c *Chat) reset() {
	c.state = NotInChat
	c.room = ""
	c.members = nil
	c.pending = ""
}

func sameRoom(a, b string) bool {
	return strings.EqualFold(a, b)
}
