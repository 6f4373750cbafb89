// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package mux implements a YMSG packet multiplexer.
//
// A ServeMux is a ymsg.Handler, so it can be installed as the fallback for
// services that a session does not handle itself:
//
//	m := mux.New(
//		mux.HandleFunc(packet.NewMail, handleMail),
//	)
//	s, err := ymsg.Login(ctx, user, pass, ymsg.Fallback(m))
package mux

import (
	"strconv"

	"mellium.im/ymsg"
	"mellium.im/ymsg/packet"
)

// AnyStatus matches packets with any status.
const AnyStatus packet.Status = -1 << 31

type pattern struct {
	Service packet.Service
	Status  packet.Status
}

func (p pattern) String() string {
	if p.Status == AnyStatus {
		return p.Service.String()
	}
	return p.Service.String() + "/" + strconv.Itoa(int(p.Status))
}

// ServeMux is a YMSG packet multiplexer.
// It matches the service and status of each packet against a list of
// registered patterns and calls the handler for the pattern that most closely
// matches the packet.
//
// Patterns that name a status take precedence over those registered with
// AnyStatus.
type ServeMux struct {
	patterns map[pattern]ymsg.Handler
}

func fallback(ymsg.PacketWriter, packet.Packet) error {
	return nil
}

// New allocates and returns a new ServeMux.
func New(opt ...Option) *ServeMux {
	m := &ServeMux{}
	for _, o := range opt {
		o(m)
	}
	return m
}

// Handler returns the handler to use for a packet with the provided service
// and status.
// If no exact match or wildcard handler exists, a default handler that drops
// the packet is returned (h is always non-nil) and ok will be false.
func (m *ServeMux) Handler(service packet.Service, status packet.Status) (h ymsg.Handler, ok bool) {
	h = m.patterns[pattern{Service: service, Status: status}]
	if h != nil {
		return h, true
	}
	h = m.patterns[pattern{Service: service, Status: AnyStatus}]
	if h != nil {
		return h, true
	}
	return ymsg.HandlerFunc(fallback), false
}

// HandleYMSG dispatches the packet to the handler whose pattern most closely
// matches it.
func (m *ServeMux) HandleYMSG(w ymsg.PacketWriter, p packet.Packet) error {
	h, _ := m.Handler(p.Service, p.Status)
	return h.HandleYMSG(w, p)
}

// Option configures a ServeMux.
type Option func(m *ServeMux)

// Handle returns an option that matches packets with the provided service and
// any status.
// If a handler already exists for the service when the option is applied, the
// option panics.
func Handle(service packet.Service, h ymsg.Handler) Option {
	return HandleStatus(service, AnyStatus, h)
}

// HandleFunc returns an option that matches packets with the provided service.
func HandleFunc(service packet.Service, h ymsg.HandlerFunc) Option {
	return Handle(service, h)
}

// HandleStatus returns an option that matches packets with the provided
// service and status.
// If a handler already exists for the pair when the option is applied, the
// option panics.
func HandleStatus(service packet.Service, status packet.Status, h ymsg.Handler) Option {
	return func(m *ServeMux) {
		if h == nil {
			panic("mux: nil handler")
		}
		pat := pattern{Service: service, Status: status}
		if _, ok := m.patterns[pat]; ok {
			panic("mux: multiple registrations for " + pat.String())
		}
		if m.patterns == nil {
			m.patterns = make(map[pattern]ymsg.Handler)
		}
		m.patterns[pat] = h
	}
}
