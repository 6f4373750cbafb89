// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

//go:generate go run -tags=tools golang.org/x/tools/cmd/stringer -type=EventKind

package ymsg

import (
	"time"

	"mellium.im/ymsg/roster"
)

// IM is an instant message from a friend.
type IM struct {
	From string
	To   string

	// Body is the message text with formatting translated to markup (see the
	// markup package).
	Body string
	Time time.Time

	// Direct is true if the message arrived over a direct connection instead of
	// through the server.
	Direct bool
}

// AuthRequest is a request from someone who wants to add the user to their
// list, or the answer to such a request made by the user.
type AuthRequest struct {
	From    string
	To      string
	Message string

	// Response is true if this is the answer to our own request, in which case
	// Accepted is the answer.
	Response bool
	Accepted bool
}

// EventKind is the type of a RoomEvent.
type EventKind int

// A list of possible room events.
const (
	// Invited is an invitation from Who.
	Invited EventKind = iota

	// Joined means the user is now in the room with Members.
	Joined

	MemberJoined
	MemberLeft

	// Declined means Who declined an invitation.
	Declined

	// RoomMessage carries Text from Who.
	RoomMessage

	// Left means the user is no longer in the room.
	Left
)

// RoomEvent is something that happened in a chat room or conference.
type RoomEvent struct {
	Kind    EventKind
	Room    string
	Who     string
	Text    string
	Members []string
}

// Sink receives events from a session.
//
// Methods are called in order from a single goroutine that is not the
// session's, so a slow sink never stalls the connection.
type Sink interface {
	DeliverIM(IM)
	DeliverTyping(from string, typing bool)
	DeliverStatusChange(roster.Friend)
	DeliverError(error)
	DeliverAttention(from string)
	DeliverAuthRequest(AuthRequest)
	DeliverChat(RoomEvent)
	DeliverConference(RoomEvent)
	DeliverInfo(string)
	DeliverDisconnect(error)
}

// SinkFuncs is a Sink built from optional functions.
// Events without a function are discarded.
type SinkFuncs struct {
	OnIM           func(IM)
	OnTyping       func(from string, typing bool)
	OnStatusChange func(roster.Friend)
	OnError        func(error)
	OnAttention    func(from string)
	OnAuthRequest  func(AuthRequest)
	OnChat         func(RoomEvent)
	OnConference   func(RoomEvent)
	OnInfo         func(string)
	OnDisconnect   func(error)
}

// DeliverIM calls OnIM if it is not nil.
func (s SinkFuncs) DeliverIM(im IM) {
	if s.OnIM != nil {
		s.OnIM(im)
	}
}

// DeliverTyping calls OnTyping if it is not nil.
func (s SinkFuncs) DeliverTyping(from string, typing bool) {
	if s.OnTyping != nil {
		s.OnTyping(from, typing)
	}
}

// DeliverStatusChange calls OnStatusChange if it is not nil.
func (s SinkFuncs) DeliverStatusChange(f roster.Friend) {
	if s.OnStatusChange != nil {
		s.OnStatusChange(f)
	}
}

// DeliverError calls OnError if it is not nil.
func (s SinkFuncs) DeliverError(err error) {
	if s.OnError != nil {
		s.OnError(err)
	}
}

// DeliverAttention calls OnAttention if it is not nil.
func (s SinkFuncs) DeliverAttention(from string) {
	if s.OnAttention != nil {
		s.OnAttention(from)
	}
}

// DeliverAuthRequest calls OnAuthRequest if it is not nil.
func (s SinkFuncs) DeliverAuthRequest(r AuthRequest) {
	if s.OnAuthRequest != nil {
		s.OnAuthRequest(r)
	}
}

// DeliverChat calls OnChat if it is not nil.
func (s SinkFuncs) DeliverChat(e RoomEvent) {
	if s.OnChat != nil {
		s.OnChat(e)
	}
}

// DeliverConference calls OnConference if it is not nil.
func (s SinkFuncs) DeliverConference(e RoomEvent) {
	if s.OnConference != nil {
		s.OnConference(e)
	}
}

// DeliverInfo calls OnInfo if it is not nil.
func (s SinkFuncs) DeliverInfo(msg string) {
	if s.OnInfo != nil {
		s.OnInfo(msg)
	}
}

// DeliverDisconnect calls OnDisconnect if it is not nil.
func (s SinkFuncs) DeliverDisconnect(err error) {
	if s.OnDisconnect != nil {
		s.OnDisconnect(err)
	}
}
