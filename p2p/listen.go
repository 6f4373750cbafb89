// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package p2p

import (
	"context"
	"net"
	"strconv"
	"time"
)

// Listen opens a TCP listener for incoming direct connections.
// The address may be reused immediately after a previous listener on the same
// port is closed.
func Listen(ctx context.Context, addr string) (net.Listener, error) {
	lc := net.ListenConfig{Control: reuseAddr}
	return lc.Listen(ctx, "tcp", addr)
}

// AcceptOne waits for a single connection on ln and closes ln.
// If no peer connects before timeout, or ctx is canceled first, the listener
// is closed and an error is returned.
// A connection that arrives after the wait was abandoned is closed.
func AcceptOne(ctx context.Context, ln net.Listener, timeout time.Duration) (net.Conn, error) {
	type result struct {
		conn net.Conn
		err  error
	}
	done := make(chan result, 1)
	go func() {
		c, err := ln.Accept()
		done <- result{conn: c, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var err error
	select {
	case r := <-done:
		/* #nosec */
		ln.Close()
		return r.conn, r.err
	case <-timer.C:
		err = ErrTimeout
	case <-ctx.Done():
		err = ctx.Err()
	}
	/* #nosec */
	ln.Close()
	if r := <-done; r.conn != nil {
		/* #nosec */
		r.conn.Close()
	}
	return nil, err
}

// Dial opens a direct connection to a peer that advertised ip.
// If port is zero DefaultPort is used.
func Dial(ctx context.Context, ip string, port int) (net.Conn, error) {
	if port == 0 {
		port = DefaultPort
	}
	d := net.Dialer{Timeout: DefaultDialTimeout}
	return d.DialContext(ctx, "tcp", net.JoinHostPort(ip, strconv.Itoa(port)))
}
