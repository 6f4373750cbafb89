// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package ymsgtest provides utilities for YMSG testing.
package ymsgtest // import "mellium.im/ymsg/internal/ymsgtest"

import (
	"net"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"

	"mellium.im/ymsg/packet"
	"mellium.im/ymsg/transport"
)

// Timeout bounds how long Expect waits for a packet.
const Timeout = 5 * time.Second

// Server is the remote end of an in memory connection that acts as a pager
// server or a peer.
type Server struct {
	t    testing.TB
	conn *transport.Conn
	pkts chan packet.Packet
	errs chan error
}

// NewPipe returns the client end of an in memory connection and a Server for
// the other end.
// The connection is closed when the test ends.
func NewPipe(t testing.TB) (net.Conn, *Server) {
	t.Helper()
	client, server := net.Pipe()
	s := NewServer(t, server)
	t.Cleanup(func() {
		/* #nosec */
		client.Close()
	})
	return client, s
}

// NewServer starts reading packets from c.
// The connection is closed when the test ends.
func NewServer(t testing.TB, c net.Conn) *Server {
	s := &Server{
		t:    t,
		conn: transport.New(c),
		pkts: make(chan packet.Packet, 64),
		errs: make(chan error, 1),
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			p, err := s.conn.ReadPacket()
			if err != nil {
				s.errs <- err
				return
			}
			select {
			case s.pkts <- p:
			case <-s.conn.Done():
				return
			}
		}
	}()
	t.Cleanup(func() {
		/* #nosec */
		s.conn.Close()
		<-done
	})
	return s
}

// Send writes packets to the client.
func (s *Server) Send(pkts ...packet.Packet) {
	s.t.Helper()
	for _, p := range pkts {
		if err := s.conn.WritePacket(p); err != nil {
			s.t.Fatalf("error sending %v: %v", p.Service, err)
		}
	}
}

// SendAsync writes packets to the client without waiting for them to be read.
// Errors are reported to the test.
func (s *Server) SendAsync(pkts ...packet.Packet) {
	go func() {
		for _, p := range pkts {
			if err := s.conn.WritePacket(p); err != nil {
				s.t.Errorf("error sending %v: %v", p.Service, err)
				return
			}
		}
	}()
}

// Next returns the next packet sent by the client.
func (s *Server) Next() packet.Packet {
	s.t.Helper()
	select {
	case p := <-s.pkts:
		return p
	case err := <-s.errs:
		s.t.Fatalf("connection closed while waiting for packet: %v", err)
	case <-time.After(Timeout):
		s.t.Fatalf("timed out waiting for packet")
	}
	return packet.Packet{}
}

// Expect returns the next packet with the given service, failing the test if
// a packet with a different service arrives first.
func (s *Server) Expect(service packet.Service) packet.Packet {
	s.t.Helper()
	p := s.Next()
	if p.Service != service {
		s.t.Fatalf("wrong packet: want service %v, got:\n%s", service, spew.Sdump(p))
	}
	return p
}

// ExpectSkip is like Expect but discards packets with other services.
func (s *Server) ExpectSkip(service packet.Service) packet.Packet {
	s.t.Helper()
	for {
		p := s.Next()
		if p.Service == service {
			return p
		}
	}
}

// Quiet fails the test if the client sends a packet within d.
func (s *Server) Quiet(d time.Duration) {
	s.t.Helper()
	select {
	case p := <-s.pkts:
		s.t.Fatalf("unexpected packet:\n%s", spew.Sdump(p))
	case <-time.After(d):
	}
}

// Close closes the server end of the connection.
func (s *Server) Close() error {
	return s.conn.Close()
}
