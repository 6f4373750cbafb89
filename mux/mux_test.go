// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package mux_test

import (
	"errors"
	"strconv"
	"testing"

	"mellium.im/ymsg"
	"mellium.im/ymsg/mux"
	"mellium.im/ymsg/packet"
)

var passTest = errors.New("mux_test: PASSED")

var passHandler ymsg.HandlerFunc = func(ymsg.PacketWriter, packet.Packet) error {
	return passTest
}

var failHandler ymsg.HandlerFunc = func(ymsg.PacketWriter, packet.Packet) error {
	return errors.New("mux_test: FAILED")
}

type nopWriter struct{}

func (nopWriter) WritePacket(packet.Packet) error { return nil }

var testCases = [...]struct {
	m *mux.ServeMux
	p packet.Packet
}{
	0: {
		m: mux.New(mux.Handle(packet.NewMail, passHandler), mux.Handle(packet.Ping, failHandler)),
		p: packet.New(packet.NewMail, packet.StatusDefault, 1),
	},
	1: {
		m: mux.New(mux.HandleFunc(packet.NewMail, failHandler), mux.HandleFunc(packet.Ping, passHandler)),
		p: packet.New(packet.Ping, packet.StatusServerAck, 1),
	},
	2: {
		m: mux.New(
			mux.Handle(packet.NewMail, failHandler),
			mux.HandleStatus(packet.NewMail, packet.StatusNotify, passHandler),
		),
		p: packet.New(packet.NewMail, packet.StatusNotify, 1),
	},
	3: {
		m: mux.New(
			mux.Handle(packet.NewMail, passHandler),
			mux.HandleStatus(packet.NewMail, packet.StatusNotify, failHandler),
		),
		p: packet.New(packet.NewMail, packet.StatusDefault, 1),
	},
}

func TestMux(t *testing.T) {
	for i, tc := range testCases {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			err := tc.m.HandleYMSG(nopWriter{}, tc.p)
			if err != passTest {
				t.Fatalf("unexpected error: `%v'", err)
			}
		})
	}
}

func TestFallback(t *testing.T) {
	m := mux.New(mux.Handle(packet.Ping, failHandler))
	h, ok := m.Handler(packet.NewMail, packet.StatusDefault)
	if ok {
		t.Errorf("expected no match for unregistered service")
	}
	if err := h.HandleYMSG(nopWriter{}, packet.New(packet.NewMail, packet.StatusDefault, 1)); err != nil {
		t.Errorf("unexpected error from fallback: %v", err)
	}
}

func TestPanics(t *testing.T) {
	for i, opts := range [...][]mux.Option{
		0: {mux.Handle(packet.NewMail, nil)},
		1: {mux.Handle(packet.NewMail, passHandler), mux.Handle(packet.NewMail, passHandler)},
		2: {
			mux.HandleStatus(packet.NewMail, packet.StatusNotify, passHandler),
			mux.HandleStatus(packet.NewMail, packet.StatusNotify, failHandler),
		},
	} {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			defer func() {
				if r := recover(); r == nil {
					t.Errorf("expected registration to panic")
				}
			}()
			mux.New(opts...)
		})
	}
}
