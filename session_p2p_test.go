// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package ymsg_test

import (
	"context"
	"errors"
	"io"
	"net"
	"strconv"
	"testing"
	"time"

	"mellium.im/ymsg"
	"mellium.im/ymsg/internal/ymsgtest"
	"mellium.im/ymsg/p2p"
	"mellium.im/ymsg/packet"
	"mellium.im/ymsg/presence"
	"mellium.im/ymsg/roster"
)

var errNoAddress = errors.New("no public address in tests")

var noResolver = ymsg.IPResolver(p2p.IPResolverFunc(func(context.Context) (string, error) {
	return "", errNoAddress
}))

// p2pHarness starts a session with direct connections enabled and a
// listener standing in for the peer alice.
func p2pHarness(t *testing.T) (*harness, *net.TCPListener) {
	t.Helper()
	ln, err := net.ListenTCP("tcp", &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("error listening: %v", err)
	}
	t.Cleanup(func() {
		/* #nosec */
		ln.Close()
	})
	port := ln.Addr().(*net.TCPAddr).Port
	h := newHarness(t, ymsg.P2P(true, port), noResolver)
	return h, ln
}

// offerLink announces alice, offers the session a direct connection, and
// returns alice's end of it once the session dials.
// Packets written by alice carry localSession.
func offerLink(t *testing.T, h *harness, ln *net.TCPListener, localSession uint32) *p2p.Link {
	t.Helper()
	h.srv.Send(logon("alice", presence.Available))
	encoded, err := p2p.EncodeIP("127.0.0.1")
	if err != nil {
		t.Fatalf("error encoding address: %v", err)
	}
	h.srv.Send(p2p.AdvertisementPacket("alice", testUser, encoded, peerSID))

	/* #nosec */
	ln.SetDeadline(time.Now().Add(ymsgtest.Timeout))
	conn, err := ln.Accept()
	if err != nil {
		t.Fatalf("session did not dial: %v", err)
	}
	/* #nosec */
	conn.SetDeadline(time.Now().Add(ymsgtest.Timeout))
	link := p2p.NewLink(conn, "alice", testUser, roster.WeAreServer, localSession, testSID)
	t.Cleanup(func() {
		/* #nosec */
		link.Close()
	})
	return link
}

// handshake answers the session until the link is active.
func handshake(t *testing.T, link *p2p.Link) {
	t.Helper()
	for !link.Active() {
		p, err := link.ReadPacket()
		if err != nil {
			t.Fatalf("error reading handshake: %v", err)
		}
		step, err := link.Handle(p)
		if err != nil {
			t.Fatalf("error handling handshake: %v", err)
		}
		if step.Send {
			if err := link.Send(step.Reply); err != nil {
				t.Fatalf("error sending handshake: %v", err)
			}
		}
	}
}

func TestP2PRouting(t *testing.T) {
	h, ln := p2pHarness(t)

	if err := h.s.SendIM("alice", "via server"); err != nil {
		t.Fatalf("error sending message: %v", err)
	}
	if p := h.srv.Expect(packet.Message); p.Get(14) != "via server" {
		t.Errorf("wrong relayed message: %+v", p.Fields)
	}

	link := offerLink(t, h, ln, peerSID)
	handshake(t, link)

	if err := h.s.SendIM("alice", "direct"); err != nil {
		t.Fatalf("error sending message: %v", err)
	}
	p, err := link.ReadPacket()
	if err != nil {
		t.Fatalf("error reading direct message: %v", err)
	}
	if p.Service != packet.Message || p.Get(14) != "direct" || p.Get(4) != testUser {
		t.Errorf("wrong direct message: %+v", p)
	}
	if p.ID != testSID {
		t.Errorf("wrong session id on direct message: %d", p.ID)
	}
	h.srv.Quiet(100 * time.Millisecond)

	if peers := h.s.DirectPeers(); len(peers) != 1 || peers[0] != "alice" {
		t.Errorf("wrong direct peers: %v", peers)
	}
	if f, _ := h.s.Friend("alice"); f.P2PState != roster.WeAreClient {
		t.Errorf("wrong direct connection state: %v", f.P2PState)
	}

	msg := packet.New(packet.Message, packet.StatusDefault, 0)
	msg.Add(4, "alice").Add(5, testUser).Add(14, "hello direct")
	if err := link.Send(msg); err != nil {
		t.Fatalf("error sending direct message: %v", err)
	}
	im := expect[ymsg.IM](t, h.rec)
	if !im.Direct || im.From != "alice" || im.Body != "hello direct" {
		t.Errorf("wrong direct message delivered: %+v", im)
	}
}

func TestP2PSessionMismatch(t *testing.T) {
	h, ln := p2pHarness(t)
	link := offerLink(t, h, ln, 999)

	p, err := link.ReadPacket()
	if err != nil {
		t.Fatalf("error reading handshake: %v", err)
	}
	step, err := link.Handle(p)
	if err != nil || !step.Send {
		t.Fatalf("unexpected handshake result: %+v, %v", step, err)
	}
	if err := link.Send(step.Reply); err != nil {
		t.Fatalf("error sending handshake: %v", err)
	}
	if _, err := link.ReadPacket(); err == nil {
		t.Fatalf("expected session to close the link")
	}

	h.flush(t)
	if peers := h.s.DirectPeers(); len(peers) != 0 {
		t.Errorf("link with wrong session id was promoted: %v", peers)
	}
	if f, _ := h.s.Friend("alice"); f.P2PState != roster.NotConnected {
		t.Errorf("friend state not reset: %v", f.P2PState)
	}

	if err := h.s.SendIM("alice", "relayed"); err != nil {
		t.Fatalf("error sending message: %v", err)
	}
	if p := h.srv.Expect(packet.Message); p.Get(14) != "relayed" {
		t.Errorf("wrong relayed message: %+v", p.Fields)
	}
}

func TestP2PTeardownOnLogoff(t *testing.T) {
	h, ln := p2pHarness(t)
	link := offerLink(t, h, ln, peerSID)
	handshake(t, link)

	off := packet.New(packet.Logoff, packet.StatusDefault, testSID)
	off.Add(7, "alice")
	h.srv.Send(off)
	if _, err := link.ReadPacket(); err == nil {
		t.Fatalf("expected link to close when the peer signs off")
	}
	h.flush(t)
	if peers := h.s.DirectPeers(); len(peers) != 0 {
		t.Errorf("link survived sign off: %v", peers)
	}
}

func TestP2PDisabled(t *testing.T) {
	h := newHarness(t)
	if err := h.s.StartP2P("alice"); !errors.Is(err, ymsg.ErrP2PDisabled) {
		t.Errorf("wrong error: %v", err)
	}

	encoded, _ := p2p.EncodeIP("127.0.0.1")
	h.srv.Send(logon("alice", presence.Available))
	h.srv.Send(p2p.AdvertisementPacket("alice", testUser, encoded, peerSID))
	h.flush(t)
	if f, _ := h.s.Friend("alice"); f.P2PState != roster.NotConnected {
		t.Errorf("offer accepted while disabled: %v", f.P2PState)
	}
}

func TestStartP2PResolverFails(t *testing.T) {
	h, _ := p2pHarness(t)
	if err := h.s.StartP2P("alice"); !errors.Is(err, ymsg.ErrNotConnected) {
		t.Errorf("wrong error for unknown friend: %v", err)
	}
	h.srv.Send(logon("alice", presence.Available))
	h.flush(t)

	if err := h.s.StartP2P("alice"); err != nil {
		t.Fatalf("error starting direct connection: %v", err)
	}
	deadline := time.Now().Add(ymsgtest.Timeout)
	for {
		f, _ := h.s.Friend("alice")
		if f.P2PState == roster.NotConnected {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("failed offer did not fall back: %v", f.P2PState)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err := h.s.SendIM("alice", "still relayed"); err != nil {
		t.Fatalf("error sending message: %v", err)
	}
	h.srv.Expect(packet.Message)
}

func TestP2PForgedSender(t *testing.T) {
	h, ln := p2pHarness(t)
	link := offerLink(t, h, ln, peerSID)
	handshake(t, link)

	forged := packet.New(packet.Message, packet.StatusDefault, 0)
	forged.Add(4, "bob").Add(5, testUser).Add(14, "not really bob")
	mixed := packet.New(packet.Message, packet.StatusDefault, 0)
	mixed.Add(4, "alice").Add(5, testUser).Add(14, "first").
		Add(4, "bob").Add(5, testUser).Add(14, "second")
	forgedTyping := packet.New(packet.Notify, packet.StatusNotify, 0)
	forgedTyping.Add(4, "bob").Add(5, testUser).Add(49, "TYPING").Add(13, "1")
	typing := packet.New(packet.Notify, packet.StatusNotify, 0)
	typing.Add(4, "alice").Add(5, testUser).Add(49, "TYPING").Add(13, "1")
	msg := packet.New(packet.Message, packet.StatusDefault, 0)
	msg.Add(4, "Alice").Add(5, testUser).Add(14, "really alice")
	for _, p := range []packet.Packet{forged, mixed, forgedTyping, typing, msg} {
		if err := link.Send(p); err != nil {
			t.Fatalf("error sending direct packet: %v", err)
		}
	}

	if ev := expect[typingEvent](t, h.rec); ev.from != "alice" {
		t.Errorf("typing delivered for another sender: %+v", ev)
	}
	if im := expect[ymsg.IM](t, h.rec); im.From != "Alice" || im.Body != "really alice" {
		t.Errorf("message delivered for another sender: %+v", im)
	}
	if peers := h.s.DirectPeers(); len(peers) != 1 {
		t.Errorf("link should survive a forged sender: %v", peers)
	}
}

func TestStartP2PWithoutSessionID(t *testing.T) {
	h, _ := p2pHarness(t)
	on := packet.New(packet.Logon, packet.StatusDefault, testSID)
	on.Add(0, testUser).Add(7, "carol").AddInt(10, int64(presence.Available))
	h.srv.Send(on)
	h.flush(t)

	if err := h.s.StartP2P("carol"); !errors.Is(err, ymsg.ErrNotConnected) {
		t.Errorf("wrong error: want=%v, got=%v", ymsg.ErrNotConnected, err)
	}
	if f, _ := h.s.Friend("carol"); f.P2PState != roster.NotConnected || f.P2PPacketSent {
		t.Errorf("direct connection started without session id: %+v", f)
	}
}

func TestP2PHandshakeTimeout(t *testing.T) {
	ln, err := net.ListenTCP("tcp", &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("error listening: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	/* #nosec */
	ln.Close()

	h := newHarness(t,
		ymsg.P2P(true, port),
		ymsg.P2PTimeout(200*time.Millisecond),
		ymsg.IPResolver(p2p.IPResolverFunc(func(context.Context) (string, error) {
			return "127.0.0.1", nil
		})),
	)
	h.srv.Send(logon("alice", presence.Available))
	h.flush(t)
	if err := h.s.StartP2P("alice"); err != nil {
		t.Fatalf("error starting direct connection: %v", err)
	}
	h.srv.Expect(packet.PeerToPeer)

	// The peer connects and never answers.
	conn, err := net.DialTimeout("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)), ymsgtest.Timeout)
	if err != nil {
		t.Fatalf("error connecting to session: %v", err)
	}
	defer conn.Close()
	/* #nosec */
	conn.SetReadDeadline(time.Now().Add(ymsgtest.Timeout))
	if _, err := io.Copy(io.Discard, conn); err != nil {
		t.Fatalf("session did not close the silent link: %v", err)
	}

	deadline := time.Now().Add(ymsgtest.Timeout)
	for {
		f, _ := h.s.Friend("alice")
		if f.P2PState == roster.NotConnected {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("friend still marked connected: %v", f.P2PState)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if peers := h.s.DirectPeers(); len(peers) != 0 {
		t.Errorf("silent link was promoted: %v", peers)
	}
}
