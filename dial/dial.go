// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package dial contains methods and types for connecting to a pager server.
package dial // import "mellium.im/ymsg/dial"

import (
	"context"
	"net"
	"net/http"
	"strconv"

	"github.com/btcsuite/go-socks/socks"
	"github.com/pkg/errors"
)

// Defaults used when a Dialer field is unset.
const (
	DefaultPagerHost = "scsa.msg.yahoo.com"
	DefaultPort      = 5050
)

// A Dialer contains options for connecting to a pager server.
// After a connection is established the Dial method does not attempt to log
// in, the resulting connection should be passed to the auth package.
//
// The zero value for each field is equivalent to dialing without that option.
type Dialer struct {
	net.Dialer

	// NoLookup stops the dialer from asking the capacity service for the least
	// loaded server.
	// Instead, it will connect to the pager host directly.
	NoLookup bool

	// Client is used for the capacity request.
	// If nil, http.DefaultClient is used.
	Client *http.Client

	// PagerHost is both the host queried for capacity and the host connected to
	// if the query fails.
	// If empty, DefaultPagerHost is used.
	PagerHost string

	// Port is the port of the pager server.
	// If zero, DefaultPort is used.
	Port int

	// Proxy, if set, is a SOCKS5 proxy that the pager connection is made
	// through.
	// The capacity request is made with Client and is not proxied.
	Proxy *socks.Proxy

	// Resolved, if set, is called by Dial once discovery has finished with the
	// server that is about to be dialed and the discovery error, if any.
	// A discovery error is not fatal, the pager host is dialed instead.
	Resolved func(server string, err error)
}

// Dial discovers and connects to a pager server on the named network.
// It returns the connection and the host that was connected to.
// If the context expires before the connection is complete, an error is
// returned.
// Once successfully connected, any expiration of the context will not affect
// the connection.
func (d *Dialer) Dial(ctx context.Context, network string) (net.Conn, string, error) {
	host := d.PagerHost
	if host == "" {
		host = DefaultPagerHost
	}
	server := host
	var lookupErr error
	if !d.NoLookup {
		if s, err := LookupPager(ctx, d.Client, host); err == nil {
			server = s
		} else {
			lookupErr = err
		}
	}
	if d.Resolved != nil {
		d.Resolved(server, lookupErr)
	}
	conn, err := d.DialServer(ctx, network, server)
	return conn, server, err
}

// DialServer connects to the given pager server without discovery.
func (d *Dialer) DialServer(ctx context.Context, network, server string) (net.Conn, error) {
	port := d.Port
	if port == 0 {
		port = DefaultPort
	}
	addr := net.JoinHostPort(server, strconv.Itoa(port))
	if d.Proxy == nil {
		return d.Dialer.DialContext(ctx, network, addr)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	var (
		conn net.Conn
		err  error
	)
	if d.Timeout > 0 {
		conn, err = d.Proxy.DialTimeout(network, addr, d.Timeout)
	} else {
		conn, err = d.Proxy.Dial(network, addr)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "dialing %s through proxy %s", addr, d.Proxy.Addr)
	}
	return conn, nil
}
