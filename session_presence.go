// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package ymsg

import (
	"strconv"
	"time"

	"github.com/Arceliar/phony"
	"github.com/pkg/errors"

	"mellium.im/ymsg/packet"
	"mellium.im/ymsg/presence"
	"mellium.im/ymsg/roster"
)

// buddyUpdate collects the fields of one buddy block in a presence packet so
// that they can be applied together.
type buddyUpdate struct {
	id        string
	offline   bool
	status    presence.Status
	hasStatus bool
	message   string
	away      bool
	idleSince time.Time
	idleSet   bool
	mobile    bool
	mobileSet bool
	avatar    int
	avatarSet bool
	sessionID uint32
	protocol  int
	protoSet  bool
	signingOn bool
}

func (s *Session) _handlePresence(p packet.Packet) error {
	if p.Service == packet.Logoff && p.Status == packet.StatusDisconnected {
		s._loggedInElsewhere()
		return nil
	}
	offline := p.Service == packet.Logoff ||
		(p.Service == packet.Status15 && p.Status == packet.StatusDisconnected)

	now := time.Now()
	var cur *buddyUpdate
	flush := func() {
		if cur != nil {
			s._applyPresence(cur, now)
			cur = nil
		}
	}
	for _, f := range p.Fields {
		if f.Key == 7 {
			flush()
			cur = &buddyUpdate{
				id:        f.Value,
				offline:   offline,
				signingOn: p.Service == packet.Logon,
			}
			continue
		}
		if cur == nil {
			if f.Key == 16 && f.Value != "" {
				s.deliverError(&ServerError{Service: p.Service, Message: packet.ToText(f.Value)})
			}
			continue
		}
		switch f.Key {
		case 10:
			if n, err := strconv.Atoi(f.Value); err == nil {
				cur.status = presence.Status(n)
				cur.hasStatus = true
			}
		case 19:
			cur.message = packet.ToText(f.Value)
		case 47:
			cur.away = f.Value != "" && f.Value != "0"
		case 137:
			if secs, err := strconv.Atoi(f.Value); err == nil && secs >= 0 {
				cur.idleSince = now.Add(-time.Duration(secs) * time.Second)
				cur.idleSet = true
			}
		case 138:
			if f.Value == "1" {
				cur.idleSince = time.Time{}
				cur.idleSet = true
			}
		case 60:
			cur.mobile = f.Value == "1" || f.Value == "2"
			cur.mobileSet = true
		case 192:
			if n, err := strconv.Atoi(f.Value); err == nil {
				cur.avatar = n
				cur.avatarSet = true
			}
		case 13:
			if n, err := strconv.Atoi(f.Value); err == nil && n == 0 {
				cur.offline = true
			}
		case 11:
			if n, err := strconv.ParseUint(f.Value, 10, 32); err == nil {
				cur.sessionID = uint32(n)
			}
		case 241:
			if n, err := strconv.Atoi(f.Value); err == nil {
				cur.protocol = n
				cur.protoSet = true
			}
		}
	}
	flush()
	return nil
}

func (s *Session) _applyPresence(u *buddyUpdate, now time.Time) {
	if u.id == "" {
		return
	}
	if s._isMe(u.id) {
		return
	}
	f, created := s.friends.FindOrCreate(u.id)
	old := f.Presence
	next := old

	switch {
	case u.offline || (u.hasStatus && u.status == presence.Offline):
		next = presence.Presence{Status: presence.Offline}
	case u.hasStatus:
		next.Status = u.status
		next.Message = ""
		next.Away = false
		if u.status == presence.Custom {
			next.Message = u.message
			next.Away = u.away
		}
		if u.status == presence.Idle && !u.idleSet && old.IdleSince.IsZero() {
			next.IdleSince = now
		}
	case u.signingOn && !old.Online():
		next.Status = presence.Available
	}
	if next.Online() {
		if u.idleSet {
			next.IdleSince = u.idleSince
		}
		if u.mobileSet {
			next.Mobile = u.mobile
		}
		if u.avatarSet {
			next.AvatarChecksum = u.avatar
		}
	}
	if u.sessionID != 0 {
		f.SessionID = u.sessionID
	}
	if u.protoSet {
		f.Protocol = u.protocol
	}
	f.Presence = next

	if !next.Online() {
		// A friend that signed off can be invited to a direct connection again
		// the next time they sign on.
		s._forget(f)
		f.P2PPacketSent = false
	}
	if created || next != old {
		s.log.Debug().Str("peer", f.ID).Stringer("status", next.Status).Msg("presence changed")
		snap := *f
		s.deliver(func(k Sink) { k.DeliverStatusChange(snap) })
	}
}

func (s *Session) _loggedInElsewhere() {
	s.log.Error().Msg("account logged in from another location")
	s.termErr = ErrLoggedInElsewhere
	s.cancel()
	/* #nosec */
	s.conn.Close()
}

// SetStatus changes the user's presence.
// To sign off, use Close.
func (s *Session) SetStatus(p presence.Presence) error {
	if p.Status == presence.Offline {
		return errors.New("ymsg: cannot set offline status, close the session instead")
	}
	return s.do(func() error {
		wasInvisible := s.status.Status == presence.Invisible
		s.status = p
		if p.Status == presence.Invisible {
			return s._send(visibility(false))
		}

		pkt := packet.New(packet.StatusUpdate, packet.StatusDefault, 0)
		pkt.AddInt(10, int64(p.Status))
		if p.Status == presence.Custom {
			away := "0"
			if p.Away {
				away = "1"
			}
			pkt.Add(19, p.Message).Add(97, "1").Add(47, away)
		}
		if !p.IdleSince.IsZero() {
			pkt.AddInt(137, int64(time.Since(p.IdleSince)/time.Second))
		}
		if err := s._send(pkt); err != nil {
			return err
		}
		if wasInvisible {
			return s._send(visibility(true))
		}
		return nil
	})
}

func visibility(visible bool) packet.Packet {
	p := packet.New(packet.VisibleToggle, packet.StatusDefault, 0)
	if visible {
		p.Add(13, "1")
	} else {
		p.Add(13, "2")
	}
	return p
}

// Friends returns a copy of every friend on the roster, sorted by id.
func (s *Session) Friends() []roster.Friend {
	var friends []roster.Friend
	phony.Block(s, func() {
		friends = s.friends.Snapshot()
	})
	return friends
}

// Friend returns a copy of the friend with the given id.
func (s *Session) Friend(id string) (roster.Friend, bool) {
	var (
		f  roster.Friend
		ok bool
	)
	phony.Block(s, func() {
		var fp *roster.Friend
		fp, ok = s.friends.Get(id)
		if ok {
			f = *fp
		}
	})
	return f, ok
}
