// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package p2p negotiates direct connections between clients.
//
// A direct link is an optimization: messages and typing notifications can be
// sent to a peer without going through the server, and anything that goes
// wrong while setting up or using a link results in traffic being relayed by
// the server again.
//
// One side advertises its public address through the server and listens, the
// other side dials it.
// Once the TCP connection is open both sides exchange handshake packets that
// carry a stage counter.
// A side that receives stage N replies with the next stage from a fixed table
// (1→5, 5→6, 6→7, 7→7) and the link becomes active when a side has both sent
// and received stage 7.
package p2p // import "mellium.im/ymsg/p2p"

import (
	"encoding/base64"
	"encoding/binary"
	"net"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"mellium.im/ymsg/packet"
)

// Defaults for direct connections.
const (
	DefaultPort          = 5101
	DefaultAcceptTimeout = 10 * time.Second
	DefaultDialTimeout   = 10 * time.Second
)

// Handshake stages.
const (
	StageIdle  = 0
	StageFirst = 1
	StageFinal = 7
)

const marker = "PEERTOPEER"

// Errors returned while negotiating a link.
var (
	ErrTimeout         = errors.New("p2p: timed out waiting for peer")
	ErrSessionMismatch = errors.New("p2p: packet session id does not match peer")
	ErrBadAddress      = errors.New("p2p: malformed address")
)

var stages = map[int]int{
	1: 5,
	5: 6,
	6: 7,
	7: 7,
}

// NextStage returns the stage sent in reply to stage.
// If stage is not part of the handshake ok is false.
func NextStage(stage int) (next int, ok bool) {
	next, ok = stages[stage]
	return next, ok
}

// EncodeIP encodes a dotted quad for an address advertisement.
// The address is packed little endian into a 32-bit integer which is
// formatted in decimal and base64 encoded.
func EncodeIP(dotted string) (string, error) {
	ip := net.ParseIP(dotted).To4()
	if ip == nil {
		return "", errors.Wrapf(ErrBadAddress, "%q is not an IPv4 address", dotted)
	}
	n := binary.LittleEndian.Uint32(ip)
	return base64.StdEncoding.EncodeToString([]byte(strconv.FormatUint(uint64(n), 10))), nil
}

// DecodeIP reverses EncodeIP.
func DecodeIP(s string) (string, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return "", errors.Wrap(ErrBadAddress, err.Error())
	}
	n, err := strconv.ParseUint(string(b), 10, 32)
	if err != nil {
		return "", errors.Wrap(ErrBadAddress, err.Error())
	}
	ip := make(net.IP, 4)
	binary.LittleEndian.PutUint32(ip, uint32(n))
	return ip.String(), nil
}

// Advertisement is a peer's offer to accept a direct connection.
type Advertisement struct {
	From string
	To   string
	// IP is the decoded dotted quad.
	IP string
	// SessionID is the advertising peer's session id.
	SessionID uint32
}

// AdvertisementPacket returns the packet that offers a direct connection to
// who, relayed through the server.
func AdvertisementPacket(me, who, encodedIP string, sessionID uint32) packet.Packet {
	p := packet.New(packet.PeerToPeer, packet.StatusDefault, sessionID)
	p.Add(1, me).
		Add(4, me).
		Add(12, encodedIP).
		Add(61, "0").
		Add(2, "").
		Add(5, who).
		Add(13, "0").
		Add(49, marker).
		Add(140, "1").
		AddInt(11, int64(sessionID))
	return p
}

// ParseAdvertisement extracts an address advertisement from p.
// It reports false if p is not an advertisement or carries an error status.
func ParseAdvertisement(p packet.Packet) (Advertisement, bool, error) {
	if p.Service != packet.PeerToPeer || p.Status == packet.StatusDisconnected {
		return Advertisement{}, false, nil
	}
	encoded, ok := p.Lookup(12)
	if !ok {
		return Advertisement{}, false, nil
	}
	if stage, ok := p.Int(13); ok && stage != StageIdle {
		return Advertisement{}, false, nil
	}
	ip, err := DecodeIP(encoded)
	if err != nil {
		return Advertisement{}, true, err
	}
	adv := Advertisement{
		From: p.Get(4),
		To:   p.Get(5),
		IP:   ip,
	}
	if sid, ok := p.Int(11); ok {
		adv.SessionID = uint32(sid)
	}
	return adv, true, nil
}

// IsHandshake reports whether p is a handshake packet.
func IsHandshake(p packet.Packet) bool {
	switch p.Service {
	case packet.P2PFileXfer, packet.PeerToPeer:
	default:
		return false
	}
	return p.Get(49) == marker && !p.Has(12)
}
