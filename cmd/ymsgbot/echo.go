// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package main

import (
	"sync"

	"github.com/rs/zerolog"

	"mellium.im/ymsg"
	"mellium.im/ymsg/roster"
)

// messenger is the part of a session used by the bot.
type messenger interface {
	SendIM(to, body string) error
	Authorize(who string) error
}

// bot is a sink that echoes every message back to its sender and accepts
// every request to be added to someone's list.
type bot struct {
	ymsg.SinkFuncs

	log zerolog.Logger

	mu sync.Mutex
	s  messenger
}

func newBot(log zerolog.Logger) *bot {
	b := &bot{log: log}
	b.SinkFuncs = ymsg.SinkFuncs{
		OnIM:           b.echo,
		OnAuthRequest:  b.authorize,
		OnStatusChange: b.status,
		OnError: func(err error) {
			b.log.Warn().Err(err).Msg("session error")
		},
		OnInfo: func(msg string) {
			b.log.Info().Str("msg", msg).Msg("server notice")
		},
		OnDisconnect: func(err error) {
			b.log.Info().Err(err).Msg("disconnected")
		},
	}
	return b
}

// attach sets the session that replies are sent on.
// Events delivered before attach is called are logged and dropped.
func (b *bot) attach(s messenger) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.s = s
}

func (b *bot) session() messenger {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.s
}

func (b *bot) echo(im ymsg.IM) {
	s := b.session()
	if s == nil || im.Body == "" {
		b.log.Debug().Str("peer", im.From).Msg("dropping message")
		return
	}
	b.log.Debug().Str("peer", im.From).Bool("direct", im.Direct).Msg("echoing message")
	if err := s.SendIM(im.From, im.Body); err != nil {
		b.log.Warn().Err(err).Str("peer", im.From).Msg("error sending reply")
	}
}

func (b *bot) authorize(req ymsg.AuthRequest) {
	if req.Response {
		b.log.Info().Str("peer", req.From).Bool("accepted", req.Accepted).Msg("authorization answered")
		return
	}
	s := b.session()
	if s == nil {
		return
	}
	if err := s.Authorize(req.From); err != nil {
		b.log.Warn().Err(err).Str("peer", req.From).Msg("error authorizing")
	}
}

func (b *bot) status(f roster.Friend) {
	b.log.Debug().Str("peer", f.ID).Stringer("status", f.Presence.Status).Msg("presence")
}
