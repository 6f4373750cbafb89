// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package p2p

import (
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"

	"mellium.im/ymsg/packet"
	"mellium.im/ymsg/ping"
	"mellium.im/ymsg/roster"
	"mellium.im/ymsg/transport"
)

// Step is the outcome of handling a handshake packet.
type Step struct {
	// Reply is the packet to send to the peer if Send is true.
	Reply packet.Packet
	Send  bool
	// Promoted is true the first time the link becomes active.
	Promoted bool
}

// Link is a direct connection to a single peer.
//
// The handshake state of a Link is not safe for concurrent use and must be
// owned by the session; Send and Close may be called from any goroutine.
type Link struct {
	*transport.Conn

	Me   string
	Peer string
	Role roster.P2PState

	localSession uint32
	peerSession  uint32

	stage  int
	sent7  bool
	recv7  bool
	active bool

	keepalive *ping.Budget
	closeOnce sync.Once
	closeErr  error
}

// NewLink wraps an open connection to peer.
// localSession is written into every packet sent on the link and peerSession
// is the session id that every received packet must carry.
func NewLink(rwc io.ReadWriteCloser, me, peer string, role roster.P2PState, localSession, peerSession uint32, opts ...transport.Option) *Link {
	return &Link{
		Conn:         transport.New(rwc, opts...),
		Me:           me,
		Peer:         peer,
		Role:         role,
		localSession: localSession,
		peerSession:  peerSession,
		keepalive:    ping.NewBudget(ping.P2PInterval, time.Now()),
	}
}

// Stage returns the last stage sent or received.
func (l *Link) Stage() int {
	return l.stage
}

// Active reports whether the handshake has completed.
func (l *Link) Active() bool {
	return l.active
}

// PeerSession returns the session id expected from the peer.
func (l *Link) PeerSession() uint32 {
	return l.peerSession
}

func (l *Link) handshake(stage int) packet.Packet {
	p := packet.New(packet.P2PFileXfer, packet.StatusDefault, l.localSession)
	p.Add(4, l.Me).
		Add(5, l.Peer).
		Add(241, "0").
		Add(49, marker).
		AddInt(13, int64(stage))
	return p
}

// Begin returns the first handshake packet.
// It is sent by the side that dialed.
func (l *Link) Begin() packet.Packet {
	l.stage = StageFirst
	return l.handshake(StageFirst)
}

// Verify checks that p was sent by the expected peer.
// Any error means the link must be closed.
func (l *Link) Verify(p packet.Packet) error {
	if l.peerSession == 0 || p.ID != l.peerSession {
		return errors.Wrapf(ErrSessionMismatch, "want %d, got %d", l.peerSession, p.ID)
	}
	return nil
}

// Handle advances the handshake with a packet received from the peer.
// Packets with unknown stages are ignored.
// Any error means the link must be closed.
func (l *Link) Handle(p packet.Packet) (Step, error) {
	if err := l.Verify(p); err != nil {
		return Step{}, err
	}
	stage, ok := p.Int(13)
	if !ok {
		return Step{}, nil
	}
	next, ok := NextStage(stage)
	if !ok {
		return Step{}, nil
	}
	l.stage = stage

	if stage != StageFinal {
		l.stage = next
		if next == StageFinal {
			l.sent7 = true
		}
		return Step{Reply: l.handshake(next), Send: true}, nil
	}

	l.recv7 = true
	if l.active {
		// Stage 7 on an active link is a keepalive.
		return Step{}, nil
	}
	var step Step
	if !l.sent7 {
		l.sent7 = true
		step.Reply = l.handshake(StageFinal)
		step.Send = true
	}
	l.active = true
	step.Promoted = true
	return step, nil
}

// KeepaliveDue reports whether a keepalive should be sent at now.
func (l *Link) KeepaliveDue(now time.Time) bool {
	return l.active && l.keepalive.Due(now)
}

// Keepalive returns a keepalive packet.
func (l *Link) Keepalive() packet.Packet {
	return l.handshake(StageFinal)
}

// Send writes p to the peer, filling in the session id.
func (l *Link) Send(p packet.Packet) error {
	p.ID = l.localSession
	return l.WritePacket(p)
}

// Close closes the connection.
// Calling Close more than once has no effect.
func (l *Link) Close() error {
	l.closeOnce.Do(func() {
		l.closeErr = l.Conn.Close()
	})
	return l.closeErr
}
