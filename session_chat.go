// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package ymsg

import (
	"strings"

	"github.com/Arceliar/phony"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"mellium.im/ymsg/chat"
	"mellium.im/ymsg/markup"
	"mellium.im/ymsg/packet"
)

// JoinChat joins a legacy chat room, leaving the current room if there is
// one.
// Only one join is in flight at a time; a later call replaces a queued room.
// Joining the room the session is already in delivers an informational
// notice.
func (s *Session) JoinChat(room string) error {
	if room == "" {
		return errors.New("ymsg: empty room name")
	}
	return s.do(func() error {
		switch s.chat.Join(room) {
		case chat.SendOnline:
			p := packet.New(packet.ChatOnline, packet.StatusDefault, 0)
			p.Add(1, s.username).Add(109, s.username).Add(6, "abcde")
			return s._send(p)
		case chat.SendJoin:
			return s._sendChatJoin(room)
		case chat.AlreadyJoined:
			s.deliverInfo("already in chat room " + room)
		}
		return nil
	})
}

func (s *Session) _sendChatJoin(room string) error {
	p := packet.New(packet.ChatJoin, packet.StatusDefault, 0)
	p.Add(1, s.username).Add(104, room).Add(129, "0").Add(62, "2")
	return s._send(p)
}

func (s *Session) _handleChatOnline(p packet.Packet) error {
	room, ok := s.chat.OnlineAck()
	if !ok {
		s.log.Debug().Msg("unexpected chat online acknowledgement")
		return nil
	}
	return s._sendChatJoin(room)
}

func (s *Session) _handleChatJoin(p packet.Packet) error {
	if code, ok := p.Int(114); ok {
		room := s.chat.Room()
		if s.chat.JoinFailed(code) {
			s.deliverInfo("already in chat room " + room)
			return nil
		}
		s.deliverError(&ServerError{
			Service: p.Service,
			Who:     room,
			Code:    code,
			Message: "could not join chat room",
		})
		return nil
	}

	room := p.Text(104)
	members := p.All(109)
	switch s.chat.State() {
	case chat.AwaitingJoinAck:
		if room == "" {
			room = s.chat.Room()
		}
		var others []string
		for _, m := range members {
			if !s._isMe(m) {
				others = append(others, m)
			}
		}
		next, queued := s.chat.JoinAck(room, others)
		joined := RoomEvent{Kind: Joined, Room: room, Members: others}
		s.deliver(func(k Sink) { k.DeliverChat(joined) })
		if queued {
			return s._sendChatJoin(next)
		}
	case chat.InChat:
		if room != "" && !strings.EqualFold(room, s.chat.Room()) {
			return errors.Errorf("join for room %q while in %q", room, s.chat.Room())
		}
		room = s.chat.Room()
		for _, m := range members {
			if s._isMe(m) || !s.chat.MemberJoined(m) {
				continue
			}
			ev := RoomEvent{Kind: MemberJoined, Room: room, Who: m}
			s.deliver(func(k Sink) { k.DeliverChat(ev) })
		}
	default:
		s.log.Debug().Stringer("state", s.chat.State()).Msg("unexpected chat join")
	}
	return nil
}

func (s *Session) _handleChatExit(p packet.Packet) error {
	who := p.Get(109)
	if who == "" {
		return errors.New("chat exit without member")
	}
	if s._isMe(who) {
		return s._chatLeft()
	}
	if s.chat.MemberLeft(who) {
		ev := RoomEvent{Kind: MemberLeft, Room: s.chat.Room(), Who: who}
		s.deliver(func(k Sink) { k.DeliverChat(ev) })
	}
	return nil
}

func (s *Session) _handleChatLogout(p packet.Packet) error {
	if s.chat.State() == chat.NotInChat {
		return nil
	}
	return s._chatLeft()
}

// _chatLeft completes leaving the current room and joins a room that was
// requested in the meantime.
func (s *Session) _chatLeft() error {
	room := s.chat.Room()
	next, ok := s.chat.Left()
	if room != "" {
		ev := RoomEvent{Kind: Left, Room: room}
		s.deliver(func(k Sink) { k.DeliverChat(ev) })
	}
	if !ok {
		return nil
	}
	if s.chat.Join(next) == chat.SendOnline {
		p := packet.New(packet.ChatOnline, packet.StatusDefault, 0)
		p.Add(1, s.username).Add(109, s.username).Add(6, "abcde")
		return s._send(p)
	}
	return nil
}

// LeaveChat leaves the current legacy chat room.
// Leaving when not in a room does nothing.
func (s *Session) LeaveChat() error {
	return s.do(func() error {
		room, ok := s.chat.Leave()
		if !ok {
			return nil
		}
		exit := packet.New(packet.ChatExit, packet.StatusDefault, 0)
		exit.Add(104, room).Add(109, s.username).Add(108, "1").Add(112, "0")
		if err := s._send(exit); err != nil {
			return err
		}
		logout := packet.New(packet.ChatLogout, packet.StatusDefault, 0)
		logout.Add(1, s.username)
		return s._send(logout)
	})
}

// SendChat sends text to the current legacy chat room.
// Text starting with "/me " is sent as an emote.
func (s *Session) SendChat(text string) error {
	return s.do(func() error {
		if s.chat.State() != chat.InChat {
			return ErrNotConnected
		}
		kind := "1"
		if rest, ok := strings.CutPrefix(text, "/me "); ok {
			text = rest
			kind = "2"
		}
		p := packet.New(packet.Comment, packet.StatusDefault, 0)
		p.Add(1, s.username).
			Add(104, s.chat.Room()).
			Add(117, markup.FromHTML(text)).
			Add(124, kind).
			Add(97, "1")
		return s._send(p)
	})
}

func (s *Session) _handleComment(p packet.Packet) error {
	who := p.Get(109)
	if who == "" {
		return errors.New("chat message without sender")
	}
	if !s._allowed(who) {
		return nil
	}
	room := p.Text(104)
	if room == "" {
		room = s.chat.Room()
	}
	text := markup.ToHTML(p.Text(117))
	if p.Get(124) == "2" {
		text = "/me " + text
	}
	ev := RoomEvent{Kind: RoomMessage, Room: room, Who: who, Text: text}
	s.deliver(func(k Sink) { k.DeliverChat(ev) })
	return nil
}

func (s *Session) _handleChatInvite(p packet.Packet) error {
	room := p.Text(104)
	from := p.Get(119)
	if room == "" || from == "" {
		return errors.New("chat invitation without room or sender")
	}
	if !s._allowed(from) {
		return nil
	}
	ev := RoomEvent{Kind: Invited, Room: room, Who: from, Text: p.Text(117)}
	s.deliver(func(k Sink) { k.DeliverChat(ev) })
	return nil
}

// ChatState returns the legacy chat state, the current room and its members.
func (s *Session) ChatState() (state chat.State, room string, members []string) {
	phony.Block(s, func() {
		state = s.chat.State()
		room = s.chat.Room()
		members = s.chat.Members()
	})
	return state, room, members
}

func (s *Session) _handleConfInvite(p packet.Packet) error {
	room := p.Get(57)
	from := p.Get(50)
	if room == "" || from == "" {
		return errors.New("conference invitation without room or sender")
	}
	if !s._allowed(from) {
		return nil
	}
	if _, ok := s.confs.Get(room); ok {
		return nil
	}
	members := []string{from}
	for _, key := range []int{52, 53} {
		for _, m := range p.All(key) {
			if m != "" && !s._isMe(m) {
				members = append(members, m)
			}
		}
	}
	msg := p.Text(58)
	s.confs.Invite(chat.Invite{Room: room, From: from, Message: msg, Members: members})
	ev := RoomEvent{Kind: Invited, Room: room, Who: from, Text: msg, Members: members}
	s.deliver(func(k Sink) { k.DeliverConference(ev) })
	return nil
}

// JoinConference accepts an invitation to a conference.
// Joining a conference the session is already in does nothing.
func (s *Session) JoinConference(room string) error {
	return s.do(func() error {
		if _, ok := s.confs.Get(room); ok {
			return nil
		}
		inv, ok := s.confs.TakeInvite(room)
		if !ok {
			return ErrNoInvitation
		}
		c, _ := s.confs.Add(room, inv.From)
		p := packet.New(packet.ConfLogon, packet.StatusDefault, 0)
		p.Add(1, s.username).Add(3, s.username)
		for _, m := range inv.Members {
			c.Join(m)
			p.Add(3, m)
		}
		p.Add(57, room)
		if err := s._send(p); err != nil {
			return err
		}
		ev := RoomEvent{Kind: Joined, Room: room, Members: c.Members()}
		s.deliver(func(k Sink) { k.DeliverConference(ev) })
		return nil
	})
}

// DeclineConference declines an invitation with an optional reason.
// Declining when there is no invitation does nothing.
func (s *Session) DeclineConference(room, reason string) error {
	return s.do(func() error {
		inv, ok := s.confs.TakeInvite(room)
		if !ok {
			return nil
		}
		p := packet.New(packet.ConfDecline, packet.StatusDefault, 0)
		p.Add(1, s.username)
		for _, m := range inv.Members {
			p.Add(3, m)
		}
		p.Add(57, room).Add(14, reason)
		return s._send(p)
	})
}

// InviteConference creates a new conference, invites friends to it and
// returns its name.
func (s *Session) InviteConference(invitees []string, msg string) (string, error) {
	if len(invitees) == 0 {
		return "", errors.New("ymsg: conference needs at least one invitee")
	}
	room := s.username + "-" + uuid.NewString()
	err := s.do(func() error {
		c, _ := s.confs.Add(room, s.username)
		p := packet.New(packet.ConfInvite, packet.StatusDefault, 0)
		p.Add(1, s.username).Add(50, s.username)
		for _, who := range invitees {
			p.Add(52, who)
		}
		p.Add(57, room).Add(58, msg).Add(97, "1").Add(13, "0")
		if err := s._send(p); err != nil {
			s.confs.Remove(c.Name)
			return err
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return room, nil
}

func (s *Session) _handleConfLogon(p packet.Packet) error {
	room, who := p.Get(57), p.Get(53)
	if room == "" || who == "" {
		return errors.New("conference logon without room or member")
	}
	c, ok := s.confs.Get(room)
	if !ok || s._isMe(who) || !c.Join(who) {
		return nil
	}
	ev := RoomEvent{Kind: MemberJoined, Room: room, Who: who}
	s.deliver(func(k Sink) { k.DeliverConference(ev) })
	return nil
}

func (s *Session) _handleConfDecline(p packet.Packet) error {
	room, who := p.Get(57), p.Get(54)
	if room == "" || who == "" {
		return errors.New("conference decline without room or member")
	}
	if _, ok := s.confs.Get(room); !ok {
		return nil
	}
	ev := RoomEvent{Kind: Declined, Room: room, Who: who, Text: p.Text(14)}
	s.deliver(func(k Sink) { k.DeliverConference(ev) })
	return nil
}

func (s *Session) _handleConfLogoff(p packet.Packet) error {
	room, who := p.Get(57), p.Get(56)
	if room == "" || who == "" {
		return errors.New("conference logoff without room or member")
	}
	c, ok := s.confs.Get(room)
	if !ok || !c.Leave(who) {
		return nil
	}
	ev := RoomEvent{Kind: MemberLeft, Room: room, Who: who}
	s.deliver(func(k Sink) { k.DeliverConference(ev) })
	return nil
}

func (s *Session) _handleConfMsg(p packet.Packet) error {
	room, from := p.Get(57), p.Get(3)
	if room == "" || from == "" {
		return errors.New("conference message without room or sender")
	}
	if !s._allowed(from) {
		return nil
	}
	if _, ok := s.confs.Get(room); !ok {
		return nil
	}
	ev := RoomEvent{Kind: RoomMessage, Room: room, Who: from, Text: markup.ToHTML(p.Text(14))}
	s.deliver(func(k Sink) { k.DeliverConference(ev) })
	return nil
}

// LeaveConference leaves a conference.
// Leaving a conference that was already left does nothing.
func (s *Session) LeaveConference(room string) error {
	return s.do(func() error {
		c, ok := s.confs.Get(room)
		if !ok {
			return nil
		}
		p := packet.New(packet.ConfLogoff, packet.StatusDefault, 0)
		p.Add(1, s.username)
		for _, m := range c.Members() {
			p.Add(3, m)
		}
		p.Add(57, room)
		s.confs.Remove(room)
		return s._send(p)
	})
}

// SendConference sends text to everyone in a conference.
func (s *Session) SendConference(room, text string) error {
	return s.do(func() error {
		c, ok := s.confs.Get(room)
		if !ok {
			return ErrNotConnected
		}
		p := packet.New(packet.ConfMsg, packet.StatusDefault, 0)
		p.Add(1, s.username)
		for _, m := range c.Members() {
			p.Add(53, m)
		}
		p.Add(57, room).Add(14, markup.FromHTML(text)).Add(97, "1")
		return s._send(p)
	})
}

// Conferences returns the names of the conferences the session is in.
func (s *Session) Conferences() []string {
	var names []string
	phony.Block(s, func() {
		names = s.confs.Names()
	})
	return names
}
