// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package auth logs in to a pager server.
//
// Logging in is a sequence of steps: the pager server is discovered and
// dialed, the server sends a challenge seed, the password is exchanged for a
// token and then a crumb and cookies using two HTTPS round trips, and finally
// the hash of the crumb and seed is sent back to the pager server along with
// the cookies.
package auth // import "mellium.im/ymsg/auth"

import (
	"context"
	"io"
	"net/http"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"mellium.im/sasl"

	"mellium.im/ymsg/dial"
	"mellium.im/ymsg/packet"
	"mellium.im/ymsg/transport"
)

// Client identifiers sent in the authentication response.
const (
	DefaultClientVersion = "9.0.0.2162"
	DefaultBuildID       = "4194239"
)

const methodV16 = "2"

// PasswordStore is told when a saved password has been rejected.
type PasswordStore interface {
	ForgetPassword(username string) error
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// HTTPClient sets the client used for the token and crumb requests and for
// pager discovery.
func HTTPClient(c *http.Client) Option {
	return func(a *Authenticator) {
		a.client = c
	}
}

// Logger sets the logger used to report progress.
// By default nothing is logged.
func Logger(l zerolog.Logger) Option {
	return func(a *Authenticator) {
		a.log = l
	}
}

// Dialer sets the dialer used to discover and connect to the pager server.
func Dialer(d *dial.Dialer) Option {
	return func(a *Authenticator) {
		a.dialer = d
	}
}

// Conn logs in over an existing connection instead of dialing.
func Conn(rwc io.ReadWriteCloser) Option {
	return func(a *Authenticator) {
		a.rwc = rwc
	}
}

// Transport sets options for the connection returned in the Result.
func Transport(opts ...transport.Option) Option {
	return func(a *Authenticator) {
		a.transportOpts = append(a.transportOpts, opts...)
	}
}

// LoginURL sets the base URL of the token and crumb endpoints.
func LoginURL(u string) Option {
	return func(a *Authenticator) {
		a.loginURL = u
	}
}

// OnState registers a function that is called on every state transition.
func OnState(f func(State)) Option {
	return func(a *Authenticator) {
		a.onState = f
	}
}

// RememberPassword indicates that the user asked for their password to be
// kept even if it is rejected.
func RememberPassword(remember bool) Option {
	return func(a *Authenticator) {
		a.remember = remember
	}
}

// Passwords sets the store that is told to forget rejected passwords.
func Passwords(ps PasswordStore) Option {
	return func(a *Authenticator) {
		a.passwords = ps
	}
}

// ClientVersion sets the client version and build id sent to the server.
func ClientVersion(version, buildID string) Option {
	return func(a *Authenticator) {
		a.version = version
		a.buildID = buildID
	}
}

// Invisible logs in without announcing presence.
func Invisible() Option {
	return func(a *Authenticator) {
		a.status = packet.StatusInvisible
	}
}

// Result is an authenticated connection.
type Result struct {
	Conn *transport.Conn
	// Server is the pager host that was connected to.
	Server    string
	SessionID uint32
	Cookies   Cookies
}

// Authenticator runs the login state machine.
// An Authenticator is used for a single login attempt and is not safe for
// concurrent use.
type Authenticator struct {
	client        *http.Client
	log           zerolog.Logger
	dialer        *dial.Dialer
	rwc           io.ReadWriteCloser
	transportOpts []transport.Option
	loginURL      string
	onState       func(State)
	remember      bool
	passwords     PasswordStore
	version       string
	buildID       string
	status        packet.Status

	state State
}

// New returns an Authenticator in the Idle state.
func New(opts ...Option) *Authenticator {
	a := &Authenticator{
		log:      zerolog.Nop(),
		loginURL: DefaultLoginURL,
		version:  DefaultClientVersion,
		buildID:  DefaultBuildID,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// State returns the current state.
func (a *Authenticator) State() State {
	return a.state
}

func (a *Authenticator) setState(s State) {
	a.state = s
	a.log.Debug().Stringer("state", s).Msg("login state changed")
	if a.onState != nil {
		a.onState(s)
	}
}

// ioError reports a connection failure, preferring cancellation as the cause.
func ioError(ctx context.Context, err error, msg string) *Error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return networkError(ctxErr, "login canceled")
	}
	return networkError(err, msg)
}

// Login authenticates as username.
// Canceling ctx aborts any in flight network request and closes the
// connection.
func (a *Authenticator) Login(ctx context.Context, username, password string) (res *Result, err error) {
	defer func() {
		if err != nil {
			err = a.fail(ctx, username, err)
		}
	}()

	if err := ctx.Err(); err != nil {
		return nil, networkError(err, "login canceled")
	}

	rwc, server, err := a.connect(ctx)
	if err != nil {
		return nil, err
	}
	conn := transport.New(rwc, a.transportOpts...)
	stop := context.AfterFunc(ctx, func() {
		/* #nosec */
		conn.Close()
	})
	defer func() {
		if err != nil {
			stop()
			/* #nosec */
			conn.Close()
		}
	}()

	var cookies Cookies
	neg := sasl.NewClient(
		Mechanism(ctx, a.client, a.loginURL, &cookies, a.setState),
		sasl.Credentials(func() ([]byte, []byte, []byte) {
			return []byte(username), []byte(password), nil
		}),
	)

	a.setState(AwaitingChallenge)
	_, resp, err := neg.Step(nil)
	if err != nil {
		return nil, protocolError(err, "starting challenge")
	}
	req := packet.New(packet.Auth, packet.StatusDefault, 0)
	req.Add(1, string(resp))
	if err := conn.WritePacket(req); err != nil {
		return nil, ioError(ctx, err, "sending challenge request")
	}

	challenge, err := a.awaitChallenge(ctx, conn)
	if err != nil {
		return nil, err
	}
	sessionID := challenge.ID
	if sessionID == 0 {
		return nil, protocolError(nil, "challenge has no session id")
	}
	seed := challenge.Get(94)
	if seed == "" {
		return nil, protocolError(nil, "challenge has no seed")
	}
	if method := challenge.Get(13); method != methodV16 {
		return nil, &Error{
			Category: Protocol,
			Message:  "challenge method " + method,
			Err:      ErrUnsupportedMethod,
		}
	}

	_, hash, err := neg.Step([]byte(seed))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, networkError(ctxErr, "login canceled")
		}
		return nil, err
	}

	a.setState(SendingAuthResponse)
	if err := conn.WritePacket(a.response(username, sessionID, cookies, string(hash))); err != nil {
		return nil, ioError(ctx, err, "sending authentication response")
	}
	if !stop() {
		return nil, networkError(ctx.Err(), "login canceled")
	}

	a.setState(Authenticated)
	a.log.Info().Str("server", server).Uint32("session", sessionID).Msg("authenticated")
	return &Result{
		Conn:      conn,
		Server:    server,
		SessionID: sessionID,
		Cookies:   cookies,
	}, nil
}

func (a *Authenticator) connect(ctx context.Context) (io.ReadWriteCloser, string, error) {
	a.setState(ResolvingServer)
	if a.rwc != nil {
		a.setState(Connecting)
		return a.rwc, "", nil
	}

	var d dial.Dialer
	if a.dialer != nil {
		d = *a.dialer
	}
	if d.Client == nil {
		d.Client = a.client
	}
	resolved := d.Resolved
	d.Resolved = func(server string, err error) {
		if err != nil {
			a.log.Debug().Err(err).Str("host", server).Msg("pager discovery failed, using fallback")
		}
		if resolved != nil {
			resolved(server, err)
		}
		a.setState(Connecting)
	}
	c, server, err := d.Dial(ctx, "tcp")
	if err != nil {
		return nil, server, ioError(ctx, err, "connecting to "+server)
	}
	return c, server, nil
}

func (a *Authenticator) awaitChallenge(ctx context.Context, conn *transport.Conn) (packet.Packet, error) {
	for {
		p, err := conn.ReadPacket()
		if err != nil {
			return p, ioError(ctx, err, "waiting for challenge")
		}
		switch p.Service {
		case packet.Auth:
			return p, nil
		case packet.AuthResp:
			if code, ok := p.Int(66); ok {
				return p, ServerError(code)
			}
		}
		a.log.Debug().Stringer("service", p.Service).Msg("ignoring packet while waiting for challenge")
	}
}

func (a *Authenticator) response(username string, sessionID uint32, c Cookies, hash string) packet.Packet {
	p := packet.New(packet.AuthResp, a.status, sessionID)
	p.Add(1, username).
		Add(0, username).
		Add(277, c.Y).
		Add(278, c.T).
		Add(307, hash).
		Add(244, a.buildID).
		Add(2, username).
		Add(2, "1")
	if c.B != "" {
		p.Add(59, c.B)
	}
	p.Add(98, "us").Add(135, a.version)
	return p
}

// fail normalizes err into an *Error, applies the stored password policy, and
// enters the Failed state.
func (a *Authenticator) fail(ctx context.Context, username string, err error) error {
	var aErr *Error
	if !errors.As(err, &aErr) {
		aErr = protocolError(err, "login failed")
	}
	if aErr.Category == InvalidCredentials && !a.remember {
		aErr.ClearPassword = true
		if a.passwords != nil {
			if perr := a.passwords.ForgetPassword(username); perr != nil {
				a.log.Warn().Err(perr).Msg("could not forget rejected password")
			}
		}
	}
	a.log.Error().Err(aErr).Stringer("state", a.state).Msg("login failed")
	a.setState(Failed)
	return aErr
}
