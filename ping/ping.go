// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package ping schedules the periodic packets that keep connections open.
//
// The server disconnects clients that ping too often, so intervals are
// enforced with token buckets instead of trusting the caller's timer.
package ping // import "mellium.im/ymsg/ping"

import (
	"time"

	"golang.org/x/time/rate"

	"mellium.im/ymsg/packet"
)

// Default intervals.
const (
	PingInterval      = time.Hour
	KeepaliveInterval = time.Minute
	P2PInterval       = 5 * time.Minute
)

// Budget allows an event at most once per interval.
// It is safe for concurrent use.
type Budget struct {
	lim *rate.Limiter
}

// NewBudget returns a budget whose first event is allowed one interval after
// now.
func NewBudget(interval time.Duration, now time.Time) *Budget {
	lim := rate.NewLimiter(rate.Every(interval), 1)
	lim.AllowN(now, 1)
	return &Budget{lim: lim}
}

// Due reports whether an event may happen at now and, if so, consumes the
// budget.
func (b *Budget) Due(now time.Time) bool {
	return b.lim.AllowN(now, 1)
}

// Option configures a Keepalive.
type Option func(*Keepalive)

// Intervals overrides the ping and keepalive intervals.
func Intervals(ping, keepalive time.Duration) Option {
	return func(k *Keepalive) {
		k.pingInterval = ping
		k.keepaliveInterval = keepalive
	}
}

// Keepalive tracks when the primary connection must send a ping and when it
// must send a keepalive.
type Keepalive struct {
	pingInterval      time.Duration
	keepaliveInterval time.Duration
	ping              *Budget
	keepalive         *Budget
}

// New returns a Keepalive that starts counting at now.
func New(now time.Time, opts ...Option) *Keepalive {
	k := &Keepalive{
		pingInterval:      PingInterval,
		keepaliveInterval: KeepaliveInterval,
	}
	for _, o := range opts {
		o(k)
	}
	k.ping = NewBudget(k.pingInterval, now)
	k.keepalive = NewBudget(k.keepaliveInterval, now)
	return k
}

// Due reports which packets should be sent at now.
// It may be called as often as desired.
func (k *Keepalive) Due(now time.Time) (ping, keepalive bool) {
	return k.ping.Due(now), k.keepalive.Due(now)
}

// Packet returns a ping packet.
func Packet(sessionID uint32) packet.Packet {
	return packet.New(packet.Ping, packet.StatusDefault, sessionID)
}

// KeepAlivePacket returns a keepalive packet for the account.
func KeepAlivePacket(username string, sessionID uint32) packet.Packet {
	p := packet.New(packet.KeepAlive, packet.StatusDefault, sessionID)
	p.Add(0, username)
	return p
}
