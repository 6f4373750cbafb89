// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package ymsg

import (
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"mellium.im/ymsg/markup"
	"mellium.im/ymsg/packet"
	"mellium.im/ymsg/roster"
	"mellium.im/ymsg/sms"
)

// statusNotDelivered is the status of a message packet that bounced.
const statusNotDelivered packet.Status = 2

// imBlock is a single message in a (possibly batched) message packet.
type imBlock struct {
	from string
	to   string
	text string
	id   string
	time time.Time
}

func (s *Session) _handleMessage(p packet.Packet) error {
	return s._receiveIM(p, false)
}

// _receiveIM handles a message packet from the server or, if direct is true,
// from a direct connection.
func (s *Session) _receiveIM(p packet.Packet, direct bool) error {
	if p.Status == statusNotDelivered {
		s.deliverError(&ServerError{
			Service: p.Service,
			Who:     p.Get(5),
			Message: "message not delivered",
		})
		return nil
	}

	var blocks []imBlock
	cur := -1
	for _, f := range p.Fields {
		if f.Key == 4 {
			blocks = append(blocks, imBlock{from: f.Value})
			cur = len(blocks) - 1
			continue
		}
		if cur < 0 {
			continue
		}
		b := &blocks[cur]
		switch f.Key {
		case 5:
			b.to = f.Value
		case 14:
			b.text = packet.ToText(f.Value)
		case 15:
			if ts, err := strconv.ParseInt(f.Value, 10, 64); err == nil {
				b.time = time.Unix(ts, 0)
			}
		case 429:
			b.id = f.Value
		}
	}
	if len(blocks) == 0 {
		return errors.New("message without sender")
	}

	for _, b := range blocks {
		// The acknowledgement is sent before the privacy check so that the
		// server does not redeliver messages from blocked senders.
		if b.id != "" && !direct {
			if err := s._send(s._ack(b)); err != nil {
				s.log.Warn().Err(err).Str("peer", b.from).Msg("acknowledging message")
			}
		}
		if b.from == "" {
			continue
		}
		if !s._allowed(b.from) {
			s.log.Debug().Str("peer", b.from).Msg("dropped message from blocked sender")
			continue
		}
		from := b.from
		if markup.IsDing(b.text) {
			s.deliver(func(k Sink) { k.DeliverAttention(from) })
			continue
		}
		im := IM{
			From:   from,
			To:     b.to,
			Body:   markup.ToHTML(b.text),
			Time:   b.time,
			Direct: direct,
		}
		if im.Time.IsZero() {
			im.Time = time.Now()
		}
		s.deliver(func(k Sink) { k.DeliverIM(im) })
	}
	return nil
}

func (s *Session) _ack(b imBlock) packet.Packet {
	me := b.to
	if me == "" {
		me = s.username
	}
	p := packet.New(packet.MessageAck, packet.StatusDefault, 0)
	p.Add(1, me).
		Add(5, b.from).
		Add(302, "430").
		Add(430, b.id).
		Add(303, "430").
		Add(450, "0")
	return p
}

func (s *Session) _handleNotify(p packet.Packet) error {
	from := p.Get(4)
	if from == "" {
		return errors.New("notification without sender")
	}
	if !strings.EqualFold(p.Get(49), "TYPING") {
		s.log.Debug().Str("peer", from).Str("kind", p.Get(49)).Msg("ignoring notification")
		return nil
	}
	if !s._allowed(from) {
		return nil
	}
	typing := p.Get(13) == "1"
	s.deliver(func(k Sink) { k.DeliverTyping(from, typing) })
	return nil
}

// SendIM sends a message to a friend.
// Body is translated from markup (see the markup package).
//
// If there is a direct connection to the friend the message is sent over it,
// otherwise it is relayed by the server.
// Messages to phone numbers ("+" followed by digits) are sent as SMS once the
// number's carrier is known.
func (s *Session) SendIM(to, body string) error {
	if to == "" {
		return errors.New("ymsg: empty recipient")
	}
	return s.do(func() error {
		if sms.IsPhone(to) {
			return s._sendSMS(to, markup.FromHTML(body))
		}
		msg := markup.FromHTML(body)
		return s._route(to, func() packet.Packet {
			return s._im(to, msg)
		})
	})
}

// SendAttention buzzes a friend.
func (s *Session) SendAttention(to string) error {
	return s.do(func() error {
		return s._route(to, func() packet.Packet {
			return s._im(to, markup.Ding)
		})
	})
}

func (s *Session) _im(to, msg string) packet.Packet {
	p := packet.New(packet.Message, packet.StatusOffline, 0)
	p.Add(1, s.username).
		Add(5, to).
		Add(97, "1").
		Add(14, msg).
		Add(63, ";0").
		Add(64, "0").
		Add(1002, "1").
		Add(206, "0")
	return p
}

// SendTyping tells a friend whether the user is typing.
func (s *Session) SendTyping(to string, typing bool) error {
	if sms.IsPhone(to) {
		return nil
	}
	state := "0"
	if typing {
		state = "1"
	}
	return s.do(func() error {
		return s._route(to, func() packet.Packet {
			p := packet.New(packet.Notify, packet.StatusNotify, 0)
			p.Add(49, "TYPING").
				Add(1, s.username).
				Add(14, " ").
				Add(13, state).
				Add(5, to).
				Add(1002, "1")
			return p
		})
	})
}

// _route sends a packet to a friend over a direct connection if one is
// active and through the server otherwise.
func (s *Session) _route(to string, build func() packet.Packet) error {
	key := roster.Normalize(to)
	if link, ok := s.peers[key]; ok {
		p := build()
		// Direct packets name the sender first, as the server does.
		p.Fields = append([]packet.Field{{Key: 4, Value: s.username}}, p.Fields...)
		err := link.Send(p)
		if err == nil {
			return nil
		}
		s._teardown(link, err)
	}
	s._maybeInvite(key)
	return s._send(build())
}

func (s *Session) _sendSMS(to, text string) error {
	number := sms.Number(to)
	if carrier, ok := s.carriers.Cached(number); ok {
		return s._send(s._sms(number, carrier, text))
	}
	queued, inflight := s.smsQueue[number]
	s.smsQueue[number] = append(queued, text)
	if inflight {
		return nil
	}

	ctx := s.ctx
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		carrier, err := s.carriers.Lookup(ctx, number)
		s.Act(nil, func() {
			s._carrierResolved(number, carrier, err)
		})
	}()
	return nil
}

func (s *Session) _carrierResolved(number, carrier string, err error) {
	queued := s.smsQueue[number]
	delete(s.smsQueue, number)
	if s.closed || s.ctx.Err() != nil {
		return
	}
	if err != nil {
		s.log.Info().Err(err).Str("peer", number).Msg("carrier lookup failed")
		s.deliverError(errors.Wrapf(err, "ymsg: sending SMS to %s", number))
		return
	}
	for _, text := range queued {
		if err := s._send(s._sms(number, carrier, text)); err != nil {
			s.deliverError(err)
			return
		}
	}
}

func (s *Session) _sms(number, carrier, text string) packet.Packet {
	p := packet.New(packet.SMSMsg, packet.StatusDefault, 0)
	p.Add(1, s.username).
		Add(69, number).
		Add(68, carrier).
		Add(14, text)
	return p
}
