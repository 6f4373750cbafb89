// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package ymsg

import (
	"net"
	"sort"
	"strconv"
	"time"

	"github.com/Arceliar/phony"
	"github.com/pkg/errors"

	"mellium.im/ymsg/p2p"
	"mellium.im/ymsg/packet"
	"mellium.im/ymsg/presence"
	"mellium.im/ymsg/roster"
	"mellium.im/ymsg/transport"
)

var errHandshakeTimeout = errors.New("ymsg: direct connection handshake timed out")

// StartP2P offers who a direct connection.
// It returns immediately; if the peer never connects, messages keep being
// relayed by the server.
// Starting a connection that was already started does nothing.
func (s *Session) StartP2P(who string) error {
	if !s.cfg.P2P {
		return ErrP2PDisabled
	}
	return s.do(func() error {
		f, ok := s.friends.Get(who)
		if !ok || !f.Presence.Online() || f.SessionID == 0 {
			return ErrNotConnected
		}
		if f.P2PPacketSent || f.P2PState != roster.NotConnected {
			return nil
		}
		s._startP2P(f)
		return nil
	})
}

// _maybeInvite offers a direct connection to a friend that is being messaged
// for the first time since they came online.
func (s *Session) _maybeInvite(key string) {
	if !s.cfg.P2P {
		return
	}
	f, ok := s.friends.Get(key)
	if !ok || !f.Presence.Online() || f.Presence.Status == presence.Invisible {
		return
	}
	if f.SessionID == 0 || f.P2PPacketSent || f.P2PState != roster.NotConnected {
		return
	}
	s._startP2P(f)
}

// _startP2P advertises our address to f and waits for them to connect.
func (s *Session) _startP2P(f *roster.Friend) {
	f.P2PPacketSent = true
	f.P2PState = roster.WeAreServer
	who := f.ID
	name := f.Name
	if name == "" {
		name = who
	}

	ctx := s.ctx
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ip, err := s.cfg.IPResolver.PublicIP(ctx)
		if err != nil {
			s.Act(nil, func() { s._p2pFailed(who, err) })
			return
		}
		encoded, err := p2p.EncodeIP(ip)
		if err != nil {
			s.Act(nil, func() { s._p2pFailed(who, err) })
			return
		}
		ln, err := p2p.Listen(ctx, net.JoinHostPort("", strconv.Itoa(s.cfg.P2PPort)))
		if err != nil {
			s.Act(nil, func() { s._p2pFailed(who, err) })
			return
		}
		phony.Block(s, func() {
			if s.closed || ctx.Err() != nil {
				return
			}
			err = s._send(p2p.AdvertisementPacket(s.username, name, encoded, s.sessionID))
		})
		if err != nil {
			/* #nosec */
			ln.Close()
			s.Act(nil, func() { s._p2pFailed(who, err) })
			return
		}
		conn, err := p2p.AcceptOne(ctx, ln, s.cfg.P2PTimeout)
		if err != nil {
			s.Act(nil, func() { s._p2pFailed(who, err) })
			return
		}
		s.Act(nil, func() { s._linkUp(conn, who, roster.WeAreServer) })
	}()
}

func (s *Session) _handlePeerToPeer(p packet.Packet) error {
	adv, ok, err := p2p.ParseAdvertisement(p)
	if err != nil {
		return errors.Wrap(err, "parsing address advertisement")
	}
	if !ok {
		s.log.Debug().Stringer("service", p.Service).Msg("ignoring direct connection packet")
		return nil
	}
	if !s.cfg.P2P {
		s.log.Debug().Str("peer", adv.From).Msg("direct connections disabled, ignoring offer")
		return nil
	}
	if adv.From == "" {
		return errors.New("address advertisement without sender")
	}
	if !s._allowed(adv.From) {
		s.log.Debug().Str("peer", adv.From).Msg("dropped direct connection offer from blocked sender")
		return nil
	}

	f, _ := s.friends.FindOrCreate(adv.From)
	if adv.SessionID != 0 {
		f.SessionID = adv.SessionID
	}
	if f.SessionID == 0 {
		s.log.Info().Str("peer", f.ID).Msg("refusing direct connection offer without session id")
		return nil
	}
	if f.P2PState != roster.NotConnected {
		s.log.Debug().Str("peer", f.ID).Stringer("state", f.P2PState).Msg("ignoring duplicate direct connection offer")
		return nil
	}
	f.P2PState = roster.WeAreClient

	who := f.ID
	ip := adv.IP
	ctx := s.ctx
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		conn, err := p2p.Dial(ctx, ip, s.cfg.P2PPort)
		if err != nil {
			s.Act(nil, func() { s._p2pFailed(who, err) })
			return
		}
		s.Act(nil, func() { s._linkUp(conn, who, roster.WeAreClient) })
	}()
	return nil
}

// _linkUp starts the handshake on a freshly opened direct connection.
func (s *Session) _linkUp(conn net.Conn, who string, role roster.P2PState) {
	f, ok := s.friends.Get(who)
	if s.closed || s.ctx.Err() != nil || !ok || f.P2PState != role {
		/* #nosec */
		conn.Close()
		return
	}
	if old, ok := s.links[f.ID]; ok {
		s._teardown(old, nil)
		f.P2PState = role
	}

	link := p2p.NewLink(conn, s.username, f.Name, role, s.sessionID, f.SessionID, transport.Logger(s.log))
	s.links[f.ID] = link
	s.log.Debug().Str("peer", f.ID).Stringer("role", role).Msg("direct connection opened")

	var deadline *time.Timer
	if s.cfg.P2PTimeout > 0 {
		deadline = time.AfterFunc(s.cfg.P2PTimeout, func() {
			s.Act(nil, func() { s._handshakeExpired(link) })
		})
	}

	ctx := s.ctx
	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		if deadline != nil {
			defer deadline.Stop()
		}
		if err := link.Run(ctx); err != nil && ctx.Err() == nil {
			s.Act(nil, func() { s._teardown(link, err) })
		}
	}()
	go func() {
		defer s.wg.Done()
		s.readLink(link)
	}()

	if role == roster.WeAreClient {
		if err := link.Send(link.Begin()); err != nil {
			s._teardown(link, err)
		}
	}
}

// _handshakeExpired drops link if it never became active.
func (s *Session) _handshakeExpired(link *p2p.Link) {
	if link.Active() || s.links[roster.Normalize(link.Peer)] != link {
		return
	}
	s.log.Info().Str("peer", link.Peer).Int("stage", link.Stage()).Msg("direct connection handshake timed out")
	s._teardown(link, errHandshakeTimeout)
}

func (s *Session) readLink(link *p2p.Link) {
	for {
		p, err := link.ReadPacket()
		if err != nil {
			s.Act(nil, func() { s._teardown(link, err) })
			return
		}
		phony.Block(s, func() {
			s._handleLink(link, p)
		})
	}
}

func (s *Session) _handleLink(link *p2p.Link, p packet.Packet) {
	key := roster.Normalize(link.Peer)
	if s.closed || s.links[key] != link {
		return
	}

	if p2p.IsHandshake(p) {
		step, err := link.Handle(p)
		if err != nil {
			s._teardown(link, err)
			return
		}
		if step.Send {
			if err := link.Send(step.Reply); err != nil {
				s._teardown(link, err)
				return
			}
		}
		if step.Promoted {
			s.peers[key] = link
			s.log.Info().Str("peer", key).Stringer("role", link.Role).Msg("direct connection established")
		}
		return
	}

	if err := link.Verify(p); err != nil {
		s._teardown(link, err)
		return
	}
	if !link.Active() {
		s.log.Debug().Str("peer", key).Stringer("service", p.Service).Msg("dropped packet before handshake")
		return
	}
	// A link only speaks for its peer.
	for _, from := range p.All(4) {
		if roster.Normalize(from) != key {
			s.log.Warn().Str("peer", key).Str("from", from).Stringer("service", p.Service).Msg("dropped direct packet from another sender")
			return
		}
	}
	var err error
	switch p.Service {
	case packet.Message:
		err = s._receiveIM(p, true)
	case packet.Notify:
		err = s._handleNotify(p)
	default:
		s.log.Debug().Str("peer", key).Stringer("service", p.Service).Msg("unhandled direct packet")
	}
	if err != nil {
		s.log.Warn().Err(err).Str("peer", key).Stringer("service", p.Service).Msg("dropped direct packet")
	}
}

// _teardown closes link and forgets it.
// Messages to the peer are relayed by the server afterwards.
// It is safe to call more than once for the same link.
func (s *Session) _teardown(link *p2p.Link, err error) {
	/* #nosec */
	link.Close()
	key := roster.Normalize(link.Peer)
	if s.links[key] != link {
		return
	}
	delete(s.links, key)
	if s.peers[key] == link {
		delete(s.peers, key)
	}
	if f, ok := s.friends.Get(key); ok {
		f.P2PState = roster.NotConnected
	}
	ev := s.log.Info()
	if err == nil {
		ev = s.log.Debug()
	}
	ev.Err(err).Str("peer", key).Msg("direct connection closed")
}

// _forget closes any direct connection to f.
func (s *Session) _forget(f *roster.Friend) {
	if link, ok := s.links[f.ID]; ok {
		s._teardown(link, nil)
	}
	f.P2PState = roster.NotConnected
}

func (s *Session) _p2pFailed(who string, err error) {
	s.log.Info().Err(err).Str("peer", who).Msg("direct connection failed, relaying through server")
	if _, ok := s.links[who]; ok {
		return
	}
	if f, ok := s.friends.Get(who); ok {
		f.P2PState = roster.NotConnected
	}
}

// DirectPeers returns the friends that have an active direct connection in
// sorted order.
func (s *Session) DirectPeers() []string {
	var peers []string
	phony.Block(s, func() {
		for id := range s.peers {
			peers = append(peers, id)
		}
	})
	sort.Strings(peers)
	return peers
}
