// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package ymsg

import (
	"io"
	"net/http"
	"time"

	"github.com/btcsuite/go-socks/socks"
	"github.com/rs/zerolog"

	"mellium.im/ymsg/auth"
	"mellium.im/ymsg/p2p"
	"mellium.im/ymsg/ping"
	"mellium.im/ymsg/privacy"
	"mellium.im/ymsg/roster"
)

// DefaultTickInterval is how often the session checks whether keepalives are
// due.
const DefaultTickInterval = 5 * time.Second

// Config represents the configuration of a YMSG session.
// It is built from Options and should not be modified once a session has
// been created.
type Config struct {
	Logger     zerolog.Logger
	HTTPClient *http.Client

	// Proxy and PagerHost control how the pager server is reached by Login.
	Proxy     *socks.Proxy
	PagerHost string
	LoginURL  string
	SMSURL    string

	Sink     Sink
	Privacy  privacy.Checker
	Store    roster.Store
	Fallback Handler

	P2P        bool
	P2PPort    int
	P2PTimeout time.Duration
	IPResolver p2p.IPResolver

	RememberPassword bool
	Passwords        auth.PasswordStore
	ClientVersion    string
	BuildID          string
	Invisible        bool

	TickInterval      time.Duration
	PingInterval      time.Duration
	KeepaliveInterval time.Duration

	conn io.ReadWriteCloser
}

// Option's can be used to configure the session.
type Option func(*Config)

func getConfig(o ...Option) Config {
	cfg := Config{
		Logger:            zerolog.Nop(),
		Privacy:           privacy.AllowAll,
		P2PPort:           p2p.DefaultPort,
		P2PTimeout:        p2p.DefaultAcceptTimeout,
		ClientVersion:     auth.DefaultClientVersion,
		BuildID:           auth.DefaultBuildID,
		TickInterval:      DefaultTickInterval,
		PingInterval:      ping.PingInterval,
		KeepaliveInterval: ping.KeepaliveInterval,
	}
	for _, f := range o {
		f(&cfg)
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if cfg.IPResolver == nil {
		cfg.IPResolver = p2p.HTTPResolver{Client: cfg.HTTPClient}
	}
	return cfg
}

// The Logger option can be provided to have the session log debug messages.
// By default nothing is logged.
func Logger(l zerolog.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

// HTTPClient sets the client used for login, carrier lookups and public
// address discovery.
func HTTPClient(client *http.Client) Option {
	return func(c *Config) {
		c.HTTPClient = client
	}
}

// Proxy connects to the pager server through a SOCKS5 proxy.
func Proxy(p *socks.Proxy) Option {
	return func(c *Config) {
		c.Proxy = p
	}
}

// PagerHost overrides the host used for server discovery and as the fallback
// pager server.
func PagerHost(host string) Option {
	return func(c *Config) {
		c.PagerHost = host
	}
}

// LoginURL overrides the base URL of the token and crumb endpoints.
func LoginURL(u string) Option {
	return func(c *Config) {
		c.LoginURL = u
	}
}

// SMSURL overrides the carrier lookup URL.
func SMSURL(u string) Option {
	return func(c *Config) {
		c.SMSURL = u
	}
}

// UseSink sets the collaborator that events are delivered to.
// A nil sink discards all events.
func UseSink(s Sink) Option {
	return func(c *Config) {
		c.Sink = s
	}
}

// Privacy sets the checker consulted before delivering messages, invitations
// and authorization requests.
// The server side ignore list is always consulted as well.
func Privacy(checker privacy.Checker) Option {
	return func(c *Config) {
		if checker == nil {
			checker = privacy.AllowAll
		}
		c.Privacy = checker
	}
}

// Store sets the persistent roster store.
// The roster is loaded from it when the session is created and it is updated
// as the server list is reconciled.
func Store(s roster.Store) Option {
	return func(c *Config) {
		c.Store = s
	}
}

// Fallback sets the handler for services the session does not handle itself.
func Fallback(h Handler) Option {
	return func(c *Config) {
		c.Fallback = h
	}
}

// P2P enables direct connections to friends on the given port.
// A port of zero uses p2p.DefaultPort.
func P2P(enabled bool, port int) Option {
	return func(c *Config) {
		c.P2P = enabled
		if port != 0 {
			c.P2PPort = port
		}
	}
}

// P2PTimeout bounds how long a listener waits for a friend to connect and how
// long the handshake on a new direct connection may take.
func P2PTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.P2PTimeout = d
	}
}

// IPResolver sets the collaborator used to learn the public address that is
// advertised to friends.
func IPResolver(r p2p.IPResolver) Option {
	return func(c *Config) {
		c.IPResolver = r
	}
}

// RememberPassword controls whether a rejected password is kept.
// By default a password rejected by the server is forgotten.
func RememberPassword(remember bool) Option {
	return func(c *Config) {
		c.RememberPassword = remember
	}
}

// PasswordStore sets the store asked to forget rejected passwords.
func PasswordStore(ps auth.PasswordStore) Option {
	return func(c *Config) {
		c.Passwords = ps
	}
}

// ClientVersion overrides the version and build identifiers sent at login.
func ClientVersion(version, buildID string) Option {
	return func(c *Config) {
		c.ClientVersion = version
		c.BuildID = buildID
	}
}

// Invisible logs in without announcing presence.
func Invisible() Option {
	return func(c *Config) {
		c.Invisible = true
	}
}

// TickInterval sets how often timers are checked.
func TickInterval(d time.Duration) Option {
	return func(c *Config) {
		c.TickInterval = d
	}
}

// KeepaliveIntervals overrides the intervals between pings and keepalives on
// the pager connection.
func KeepaliveIntervals(ping, keepalive time.Duration) Option {
	return func(c *Config) {
		c.PingInterval = ping
		c.KeepaliveInterval = keepalive
	}
}

// Conn makes Login use an existing connection to the pager server instead of
// dialing one.
func Conn(rwc io.ReadWriteCloser) Option {
	return func(c *Config) {
		c.conn = rwc
	}
}
