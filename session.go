// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package ymsg

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/Arceliar/phony"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"mellium.im/ymsg/auth"
	"mellium.im/ymsg/chat"
	"mellium.im/ymsg/dial"
	"mellium.im/ymsg/p2p"
	"mellium.im/ymsg/packet"
	"mellium.im/ymsg/ping"
	"mellium.im/ymsg/presence"
	"mellium.im/ymsg/privacy"
	"mellium.im/ymsg/roster"
	"mellium.im/ymsg/sms"
	"mellium.im/ymsg/transport"
)

// A Session is a logged in connection to the pager server.
//
// All session state is owned by the session's inbox: packets from the server
// and from direct connections, timers, and calls to exported methods are
// handled one at a time in the order they arrive.
// Methods whose names start with an underscore must only be called from the
// inbox.
type Session struct {
	phony.Inbox

	conn      *transport.Conn
	username  string
	sessionID uint32
	cfg       Config
	log       zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Events are delivered to the sink from their own inbox.
	out phony.Inbox

	status    presence.Presence
	friends   *roster.Roster
	ignore    *privacy.List
	chat      chat.Chat
	confs     chat.Conferences
	list      listState
	authReqs  map[string]AuthRequest
	links     map[string]*p2p.Link
	peers     map[string]*p2p.Link
	carriers  *sms.Carriers
	smsQueue  map[string][]string
	keepalive *ping.Keepalive
	serving   bool
	closed    bool
	termErr   error
}

// Login authenticates as username and returns the new session.
// Serve must be called to start handling packets.
//
// If login fails the error is an *auth.Error.
func Login(ctx context.Context, username, password string, opts ...Option) (*Session, error) {
	cfg := getConfig(opts...)
	authOpts := []auth.Option{
		auth.HTTPClient(cfg.HTTPClient),
		auth.Logger(cfg.Logger),
		auth.Transport(transport.Logger(cfg.Logger)),
		auth.Dialer(&dial.Dialer{
			Client:    cfg.HTTPClient,
			PagerHost: cfg.PagerHost,
			Proxy:     cfg.Proxy,
		}),
		auth.RememberPassword(cfg.RememberPassword),
		auth.Passwords(cfg.Passwords),
		auth.ClientVersion(cfg.ClientVersion, cfg.BuildID),
	}
	if cfg.LoginURL != "" {
		authOpts = append(authOpts, auth.LoginURL(cfg.LoginURL))
	}
	if cfg.conn != nil {
		authOpts = append(authOpts, auth.Conn(cfg.conn))
	}
	if cfg.Invisible {
		authOpts = append(authOpts, auth.Invisible())
	}

	res, err := auth.New(authOpts...).Login(ctx, username, password)
	if err != nil {
		return nil, err
	}
	s, err := newSession(res.Conn, username, res.SessionID, cfg, res.Cookies)
	if err != nil {
		/* #nosec */
		res.Conn.Close()
		return nil, err
	}
	return s, nil
}

// NewSession returns a session on a connection that has already been
// authenticated.
func NewSession(rwc io.ReadWriteCloser, username string, sessionID uint32, opts ...Option) (*Session, error) {
	cfg := getConfig(opts...)
	return newSession(transport.New(rwc, transport.Logger(cfg.Logger)), username, sessionID, cfg, auth.Cookies{})
}

func newSession(conn *transport.Conn, username string, sessionID uint32, cfg Config, cookies auth.Cookies) (*Session, error) {
	if sessionID == 0 {
		return nil, ErrNoSession
	}
	friends := roster.New()
	if cfg.Store != nil {
		if err := friends.Load(cfg.Store); err != nil {
			return nil, errors.Wrap(err, "ymsg: loading roster")
		}
	}
	smsOpts := []sms.Option{sms.Cookies(cookies.HTTP()...)}
	if cfg.SMSURL != "" {
		smsOpts = append(smsOpts, sms.URL(cfg.SMSURL))
	}
	if cfg.ClientVersion != "" {
		smsOpts = append(smsOpts, sms.Version(cfg.ClientVersion))
	}

	s := &Session{
		conn:      conn,
		username:  username,
		sessionID: sessionID,
		cfg:       cfg,
		log:       cfg.Logger.With().Str("user", username).Uint32("session", sessionID).Logger(),
		friends:   friends,
		ignore:    &privacy.List{},
		authReqs:  make(map[string]AuthRequest),
		links:     make(map[string]*p2p.Link),
		peers:     make(map[string]*p2p.Link),
		carriers:  sms.NewCarriers(cfg.HTTPClient, smsOpts...),
		smsQueue:  make(map[string][]string),
		keepalive: ping.New(time.Now(), ping.Intervals(cfg.PingInterval, cfg.KeepaliveInterval)),
	}
	if cfg.Invisible {
		s.status.Status = presence.Invisible
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s, nil
}

// Username returns the account the session is logged in as.
func (s *Session) Username() string {
	return s.username
}

// SessionID returns the server assigned session id.
func (s *Session) SessionID() uint32 {
	return s.sessionID
}

// Serve reads and handles packets until the connection is closed or ctx is
// canceled.
// It also flushes queued packets and sends keepalives.
//
// If the session is closed with Close, including before Serve is called,
// Serve returns nil.
// If ctx is canceled, Serve returns ctx.Err().
// Otherwise the terminal error is returned and delivered to the sink.
// Serve may only be called once; later calls return ErrSessionClosed.
func (s *Session) Serve(ctx context.Context) error {
	var err error
	var closed bool
	phony.Block(s, func() {
		switch {
		case s.serving:
			err = ErrSessionClosed
		default:
			s.serving = true
			closed = s.closed
		}
	})
	if err != nil || closed {
		// A session closed before it was served has nothing left to do.
		return err
	}

	stop := context.AfterFunc(ctx, s.cancel)
	defer stop()

	g, gctx := errgroup.WithContext(s.ctx)
	g.Go(func() error {
		<-gctx.Done()
		/* #nosec */
		s.conn.Close()
		return nil
	})
	g.Go(func() error {
		if err := s.conn.Run(gctx); err != nil && gctx.Err() == nil {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return s.tick(gctx)
	})
	g.Go(s.readLoop)

	err = g.Wait()
	s.cancel()

	phony.Block(s, func() {
		s._shutdown()
		closed = s.closed
		if err == nil {
			err = s.termErr
		}
	})
	s.wg.Wait()

	switch {
	case err != nil:
	case closed:
	case ctx.Err() != nil:
		err = ctx.Err()
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		s.log.Error().Err(err).Msg("session ended")
		s.deliver(func(k Sink) { k.DeliverDisconnect(err) })
	}
	phony.Block(&s.out, func() {})
	return err
}

func (s *Session) readLoop() error {
	for {
		p, err := s.conn.ReadPacket()
		if err != nil {
			select {
			case <-s.conn.Done():
				return nil
			default:
			}
			return err
		}
		phony.Block(s, func() {
			s._dispatch(p)
		})
	}
}

func (s *Session) tick(ctx context.Context) error {
	t := time.NewTicker(s.cfg.TickInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-t.C:
			s.Act(nil, func() {
				s._tick(now)
			})
		}
	}
}

func (s *Session) _tick(now time.Time) {
	if s.closed || s.ctx.Err() != nil {
		return
	}
	pingDue, keepaliveDue := s.keepalive.Due(now)
	if pingDue {
		if err := s._send(ping.Packet(s.sessionID)); err != nil {
			s.log.Warn().Err(err).Msg("sending ping")
		}
	}
	if keepaliveDue {
		if err := s._send(ping.KeepAlivePacket(s.username, s.sessionID)); err != nil {
			s.log.Warn().Err(err).Msg("sending keepalive")
		}
	}
	for _, link := range s.peers {
		if !link.KeepaliveDue(now) {
			continue
		}
		if err := link.Send(link.Keepalive()); err != nil {
			s._teardown(link, err)
		}
	}
}

// Close logs off and closes the connection.
// Calling Close more than once has no effect.
func (s *Session) Close() error {
	var already bool
	phony.Block(s, func() {
		already = s.closed
		if already {
			return
		}
		s.closed = true
		if s.ctx.Err() == nil {
			if err := s._send(packet.New(packet.Logoff, packet.StatusDefault, 0)); err != nil {
				s.log.Debug().Err(err).Msg("sending logoff")
			}
		}
		s._shutdown()
	})
	if already {
		return nil
	}
	if err := s.conn.Flush(); err != nil {
		s.log.Debug().Err(err).Msg("flushing before close")
	}
	s.cancel()
	err := s.conn.Close()
	s.wg.Wait()
	return err
}

// _shutdown releases everything but the pager connection.
// It is idempotent.
func (s *Session) _shutdown() {
	for _, link := range s.links {
		s._teardown(link, nil)
	}
	s.chat.Reset()
	s.confs.Reset()
	for number := range s.smsQueue {
		delete(s.smsQueue, number)
	}
}

// do runs f on the session's inbox and waits for it to finish.
func (s *Session) do(f func() error) (err error) {
	phony.Block(s, func() {
		if s.closed || s.ctx.Err() != nil {
			err = ErrSessionClosed
			return
		}
		err = f()
	})
	return err
}

func (s *Session) _send(p packet.Packet) error {
	p.ID = s.sessionID
	return s.conn.WritePacket(p)
}

func (s *Session) deliver(f func(Sink)) {
	sink := s.cfg.Sink
	if sink == nil {
		return
	}
	s.out.Act(nil, func() {
		f(sink)
	})
}

func (s *Session) deliverError(err error) {
	s.deliver(func(k Sink) { k.DeliverError(err) })
}

func (s *Session) deliverInfo(msg string) {
	s.deliver(func(k Sink) { k.DeliverInfo(msg) })
}

// _allowed reports whether peer may reach the user.
func (s *Session) _allowed(peer string) bool {
	return s.ignore.Allowed(s.username, peer) && s.cfg.Privacy.Allowed(s.username, peer)
}

func (s *Session) _isMe(id string) bool {
	return roster.Normalize(id) == roster.Normalize(s.username)
}

// Status returns the user's own presence.
func (s *Session) Status() presence.Presence {
	var p presence.Presence
	phony.Block(s, func() {
		p = s.status
	})
	return p
}
