// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package ymsg

import (
	"mellium.im/ymsg/auth"
	"mellium.im/ymsg/packet"
)

type handlerFunc func(s *Session, p packet.Packet) error

// handlers maps each service the session understands to its handler.
// It is populated by init because the handlers refer back to the table
// through _dispatch.
var handlers map[packet.Service]handlerFunc

func init() {
	handlers = map[packet.Service]handlerFunc{
		packet.Logon:         (*Session)._handlePresence,
		packet.Logoff:        (*Session)._handlePresence,
		packet.IsAway:        (*Session)._handlePresence,
		packet.IsBack:        (*Session)._handlePresence,
		packet.StatusUpdate:  (*Session)._handlePresence,
		packet.Status15:      (*Session)._handlePresence,
		packet.Message:       (*Session)._handleMessage,
		packet.Notify:        (*Session)._handleNotify,
		packet.List:          (*Session)._handleList,
		packet.List15:        (*Session)._handleList15,
		packet.AuthReq:       (*Session)._handleAuthReq,
		packet.AddBuddy:      (*Session)._handleAddBuddy,
		packet.RemBuddy:      (*Session)._handleRemBuddy,
		packet.IgnoreContact: (*Session)._handleIgnore,
		packet.ConfInvite:    (*Session)._handleConfInvite,
		packet.ConfAddInvite: (*Session)._handleConfInvite,
		packet.ConfLogon:     (*Session)._handleConfLogon,
		packet.ConfDecline:   (*Session)._handleConfDecline,
		packet.ConfLogoff:    (*Session)._handleConfLogoff,
		packet.ConfMsg:       (*Session)._handleConfMsg,
		packet.ChatOnline:    (*Session)._handleChatOnline,
		packet.ChatJoin:      (*Session)._handleChatJoin,
		packet.ChatExit:      (*Session)._handleChatExit,
		packet.ChatLogout:    (*Session)._handleChatLogout,
		packet.ChatAddInvite: (*Session)._handleChatInvite,
		packet.Comment:       (*Session)._handleComment,
		packet.PeerToPeer:    (*Session)._handlePeerToPeer,
		packet.P2PFileXfer:   (*Session)._handlePeerToPeer,
		packet.Ping:          (*Session)._handleKeepalive,
		packet.KeepAlive:     (*Session)._handleKeepalive,
		packet.SysMessage:    (*Session)._handleSysMessage,
		packet.AuthResp:      (*Session)._handleAuthResp,
	}
}

func (s *Session) _dispatch(p packet.Packet) {
	if s.closed {
		return
	}
	var err error
	switch h, ok := handlers[p.Service]; {
	case ok:
		err = h(s, p)
	case s.cfg.Fallback != nil:
		err = s.cfg.Fallback.HandleYMSG(s.conn, p)
	default:
		s.log.Debug().Stringer("service", p.Service).Msg("unhandled packet")
	}
	if err != nil {
		s.log.Warn().Err(err).
			Stringer("service", p.Service).
			Int32("status", int32(p.Status)).
			Uint32("id", p.ID).
			Msg("dropped packet")
	}
}

func (s *Session) _handleKeepalive(p packet.Packet) error {
	s.log.Debug().Stringer("service", p.Service).Msg("keepalive acknowledged")
	return nil
}

func (s *Session) _handleSysMessage(p packet.Packet) error {
	msg := p.Text(14)
	if msg == "" {
		return nil
	}
	s.deliverInfo(msg)
	return nil
}

// _handleAuthResp handles a late rejection of the login by the pager server.
// The session cannot continue after it.
func (s *Session) _handleAuthResp(p packet.Packet) error {
	code, ok := p.Int(66)
	if !ok || code == 0 {
		s.log.Debug().Msg("ignoring authentication response without error")
		return nil
	}
	err := auth.ServerError(code)
	s.log.Error().Err(err).Msg("login rejected by pager server")
	s.deliverError(err)
	s.termErr = err
	s.cancel()
	/* #nosec */
	s.conn.Close()
	return nil
}
