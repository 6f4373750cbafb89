// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package ymsg

import (
	"mellium.im/ymsg/packet"
)

// A PacketWriter sends packets on a connection.
// It is implemented by *transport.Conn.
type PacketWriter interface {
	WritePacket(p packet.Packet) error
}

// A Handler responds to incoming packets that the session does not handle
// itself.
//
// Handlers run on the session's goroutine and must not call methods of the
// Session; replies should be written to w.
type Handler interface {
	HandleYMSG(w PacketWriter, p packet.Packet) error
}

// The HandlerFunc type is an adapter to allow the use of ordinary functions as
// YMSG handlers.
// If f is a function with the appropriate signature, HandlerFunc(f) is a
// Handler that calls f.
type HandlerFunc func(w PacketWriter, p packet.Packet) error

// HandleYMSG calls f(w, p).
func (f HandlerFunc) HandleYMSG(w PacketWriter, p packet.Packet) error {
	return f(w, p)
}
