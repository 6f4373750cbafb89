// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package ymsg

import (
	"strings"

	"github.com/Arceliar/phony"
	"github.com/pkg/errors"

	"mellium.im/ymsg/packet"
	"mellium.im/ymsg/roster"
)

// DefaultGroup is the group new friends are added to if none is given.
const DefaultGroup = "Buddies"

// listState accumulates a contact list that the server splits over several
// packets.
type listState struct {
	blob     strings.Builder
	entries  []roster.Entry
	group    string
	ignoring bool
	ignored  []string

	// sawIgnore is set when the list carried an ignore section, even an empty
	// one; only then is the ignore list replaced.
	sawIgnore bool

	// seen is set once any roster field arrives so that a list packet that only
	// carries cookies or the ignore list does not empty the roster.
	seen bool
}

func (s *Session) _handleList(p packet.Packet) error {
	for _, f := range p.Fields {
		switch f.Key {
		case 87:
			s.list.blob.WriteString(f.Value)
			s.list.seen = true
		case 88:
			s.list.sawIgnore = true
			for _, id := range strings.Split(f.Value, ",") {
				if id = strings.TrimSpace(id); id != "" {
					s.list.ignored = append(s.list.ignored, id)
				}
			}
		}
	}
	if p.Status == packet.StatusContinued {
		return nil
	}
	s._finishList()
	return nil
}

func (s *Session) _handleList15(p packet.Packet) error {
	for _, f := range p.Fields {
		switch f.Key {
		case 300, 302:
			switch f.Value {
			case "320":
				s.list.ignoring = true
				s.list.sawIgnore = true
			case "318":
				s.list.ignoring = false
			}
		case 65:
			s.list.group = packet.ToText(f.Value)
			s.list.entries = append(s.list.entries, roster.Entry{Group: s.list.group})
			s.list.seen = true
		case 7:
			if f.Value == "" {
				continue
			}
			if s.list.ignoring {
				s.list.ignored = append(s.list.ignored, f.Value)
				continue
			}
			if len(s.list.entries) == 0 {
				s.list.entries = append(s.list.entries, roster.Entry{Group: DefaultGroup})
			}
			last := &s.list.entries[len(s.list.entries)-1]
			last.Members = append(last.Members, f.Value)
			s.list.seen = true
		}
	}
	if p.Status == packet.StatusContinued {
		return nil
	}
	s._finishList()
	return nil
}

// _finishList applies an accumulated contact list and resets the
// accumulator.
func (s *Session) _finishList() {
	defer func() {
		s.list = listState{}
	}()

	if s.list.sawIgnore {
		if denied := s.ignore.Denied(); len(denied) > 0 {
			s.ignore.Remove(denied...)
		}
		s.ignore.Deny(s.list.ignored...)
	}

	if !s.list.seen {
		return
	}
	entries := append(roster.ParseList(s.list.blob.String()), s.list.entries...)
	added, removed := s.friends.Reconcile(entries, s._forget)
	s.log.Debug().Int("added", len(added)).Int("removed", len(removed)).Msg("contact list loaded")

	if store := s.cfg.Store; store != nil {
		s.friends.Range(func(f *roster.Friend) bool {
			if err := store.FindOrCreate(f.ID, f.Group); err != nil {
				s.log.Warn().Err(err).Str("peer", f.ID).Msg("storing friend")
			}
			return true
		})
		for _, id := range removed {
			if err := store.Remove(id); err != nil {
				s.log.Warn().Err(err).Str("peer", id).Msg("removing friend from store")
			}
		}
	}
	for _, id := range added {
		if f, ok := s.friends.Get(id); ok {
			snap := *f
			s.deliver(func(k Sink) { k.DeliverStatusChange(snap) })
		}
	}
}

const (
	authStatusResponse packet.Status = 1
	authStatusRequest  packet.Status = 3
)

func (s *Session) _handleAuthReq(p packet.Packet) error {
	from := p.Get(4)
	if from == "" {
		return errors.New("authorization packet without sender")
	}
	if !s._allowed(from) {
		s.log.Debug().Str("peer", from).Msg("dropped authorization packet from blocked sender")
		return nil
	}
	switch p.Status {
	case authStatusRequest:
		req := AuthRequest{
			From:    from,
			To:      p.Get(5),
			Message: p.Text(14),
		}
		s.authReqs[roster.Normalize(from)] = req
		s.deliver(func(k Sink) { k.DeliverAuthRequest(req) })
	case authStatusResponse:
		resp := AuthRequest{
			From:     from,
			To:       p.Get(5),
			Message:  p.Text(14),
			Response: true,
			Accepted: p.Get(13) == "1",
		}
		if !resp.Accepted {
			s._removeFriend(from)
		}
		s.deliver(func(k Sink) { k.DeliverAuthRequest(resp) })
	default:
		s.log.Debug().Str("peer", from).Int32("status", int32(p.Status)).Msg("unknown authorization packet")
	}
	return nil
}

// Authorize accepts a pending authorization request from who.
// If there is no pending request from who, Authorize does nothing.
func (s *Session) Authorize(who string) error {
	return s.do(func() error {
		return s._answerAuth(who, true, "")
	})
}

// Deny rejects a pending authorization request from who with an optional
// reason.
// If there is no pending request from who, Deny does nothing.
func (s *Session) Deny(who, reason string) error {
	return s.do(func() error {
		return s._answerAuth(who, false, reason)
	})
}

func (s *Session) _answerAuth(who string, accept bool, reason string) error {
	key := roster.Normalize(who)
	req, ok := s.authReqs[key]
	if !ok {
		return nil
	}
	delete(s.authReqs, key)

	me := req.To
	if me == "" {
		me = s.username
	}
	p := packet.New(packet.AuthReq, packet.StatusDefault, 0)
	p.Add(1, me).Add(5, req.From)
	if accept {
		p.Add(13, "1")
	} else {
		p.Add(13, "2").Add(97, "1").Add(14, reason)
	}
	p.Add(241, "0").Add(334, "0")
	return s._send(p)
}

// PendingAuthRequests returns the authorization requests that have not been
// answered.
func (s *Session) PendingAuthRequests() []AuthRequest {
	var reqs []AuthRequest
	phony.Block(s, func() {
		for _, r := range s.authReqs {
			reqs = append(reqs, r)
		}
	})
	return reqs
}

// AddBuddy adds who to the contact list and asks them for authorization with
// an optional message.
// If group is empty, DefaultGroup is used.
func (s *Session) AddBuddy(who, group, msg string) error {
	if who == "" {
		return errors.New("ymsg: empty buddy id")
	}
	if group == "" {
		group = DefaultGroup
	}
	return s.do(func() error {
		p := packet.New(packet.AddBuddy, packet.StatusDefault, 0)
		p.Add(14, msg).
			Add(65, group).
			Add(97, "1").
			Add(1, s.username).
			Add(302, "319").
			Add(300, "319").
			Add(7, who).
			Add(334, "0").
			Add(301, "319").
			Add(303, "319")
		return s._send(p)
	})
}

func (s *Session) _handleAddBuddy(p packet.Packet) error {
	who := p.Get(7)
	if who == "" {
		return errors.New("add buddy ack without buddy")
	}
	code, _ := p.Int(66)
	// 2 means the buddy is already on the list.
	if code != 0 && code != 2 {
		s.deliverError(&ServerError{
			Service: p.Service,
			Who:     who,
			Code:    code,
			Message: "could not add buddy",
		})
		return nil
	}
	f, created := s.friends.FindOrCreate(who)
	if group := p.Text(65); group != "" {
		f.Group = group
	}
	if f.Group == "" {
		f.Group = DefaultGroup
	}
	if store := s.cfg.Store; store != nil {
		if err := store.FindOrCreate(f.ID, f.Group); err != nil {
			s.log.Warn().Err(err).Str("peer", f.ID).Msg("storing friend")
		}
	}
	if created {
		snap := *f
		s.deliver(func(k Sink) { k.DeliverStatusChange(snap) })
	}
	return nil
}

// RemoveBuddy removes who from the contact list.
// Removing a friend closes any direct connection to them.
func (s *Session) RemoveBuddy(who string) error {
	return s.do(func() error {
		group := DefaultGroup
		if f, ok := s.friends.Get(who); ok && f.Group != "" {
			group = f.Group
		}
		p := packet.New(packet.RemBuddy, packet.StatusDefault, 0)
		p.Add(1, s.username).Add(7, who).Add(65, group)
		err := s._send(p)
		s._removeFriend(who)
		return err
	})
}

func (s *Session) _removeFriend(who string) {
	f, ok := s.friends.Get(who)
	if !ok {
		return
	}
	s._forget(f)
	s.friends.Remove(who)
	if store := s.cfg.Store; store != nil {
		if err := store.Remove(f.ID); err != nil {
			s.log.Warn().Err(err).Str("peer", f.ID).Msg("removing friend from store")
		}
	}
}

func (s *Session) _handleRemBuddy(p packet.Packet) error {
	if code, _ := p.Int(66); code != 0 {
		s.deliverError(&ServerError{
			Service: p.Service,
			Who:     p.Get(7),
			Code:    code,
			Message: "could not remove buddy",
		})
	}
	return nil
}

// Ignore adds who to, or removes them from, the server side ignore list.
// The local list changes when the server acknowledges the request.
func (s *Session) Ignore(who string, ignore bool) error {
	return s.do(func() error {
		p := packet.New(packet.IgnoreContact, packet.StatusDefault, 0)
		p.Add(1, s.username).Add(7, who)
		if ignore {
			p.Add(13, "1")
		} else {
			p.Add(13, "2")
		}
		return s._send(p)
	})
}

func (s *Session) _handleIgnore(p packet.Packet) error {
	who := p.Get(7)
	if who == "" {
		return errors.New("ignore ack without buddy")
	}
	if code, _ := p.Int(66); code != 0 {
		s.deliverError(&ServerError{
			Service: p.Service,
			Who:     who,
			Code:    code,
			Message: "could not change ignore list",
		})
		return nil
	}
	switch p.Get(13) {
	case "1":
		s.ignore.Deny(who)
	case "2":
		s.ignore.Remove(who)
	}
	return nil
}

// Ignored returns the ignore list in sorted order.
func (s *Session) Ignored() []string {
	var ids []string
	phony.Block(s, func() {
		ids = s.ignore.Denied()
	})
	return ids
}
