// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package dial_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"mellium.im/ymsg/dial"
)

var capacityTests = [...]struct {
	body string
	host string
	err  error
}{
	0: {body: "COLO_CAPACITY=1\r\nCS_IP_ADDRESS=1.2.3.4\r\n", host: "1.2.3.4"},
	1: {body: "CS_IP_ADDRESS=10.0.0.1", host: "10.0.0.1"},
	2: {body: "COLO_CAPACITY=1\r\n", err: dial.ErrNoServer},
	3: {body: "CS_IP_ADDRESS=\r\n", err: dial.ErrNoServer},
	4: {err: dial.ErrNoServer},
}

func TestParseCapacity(t *testing.T) {
	for i, tc := range capacityTests {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			host, err := dial.ParseCapacity(strings.NewReader(tc.body))
			if !errors.Is(err, tc.err) {
				t.Errorf("wrong error: want=%v, got=%v", tc.err, err)
			}
			if host != tc.host {
				t.Errorf("wrong host: want=%q, got=%q", tc.host, host)
			}
		})
	}
}

// pager starts a TCP listener and a capacity server that points at it.
func pager(t *testing.T, capacity string) (host string, port int) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("error listening: %v", err)
	}
	t.Cleanup(func() { ln.Close() })
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			c.Close()
		}
	}()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/capacity" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, capacity)
	}))
	t.Cleanup(srv.Close)
	u, _ := url.Parse(srv.URL)
	return u.Host, ln.Addr().(*net.TCPAddr).Port
}

func TestDialLooksUpServer(t *testing.T) {
	host, port := pager(t, "COLO_CAPACITY=1\r\nCS_IP_ADDRESS=127.0.0.1\r\n")
	d := dial.Dialer{PagerHost: host, Port: port}
	conn, server, err := d.Dial(context.Background(), "tcp")
	if err != nil {
		t.Fatalf("error dialing: %v", err)
	}
	conn.Close()
	if server != "127.0.0.1" {
		t.Errorf("wrong server: want=127.0.0.1, got=%q", server)
	}
}

func TestDialFallsBack(t *testing.T) {
	host, port := pager(t, "nothing useful")
	var (
		resolved  string
		lookupErr error
	)
	d := dial.Dialer{
		PagerHost: host,
		Port:      port,
		Resolved: func(server string, err error) {
			resolved, lookupErr = server, err
		},
	}
	// The capacity host has a port of its own, so dialing it on the pager port
	// fails, but the error shows which host was used.
	_, server, _ := d.Dial(context.Background(), "tcp")
	if server != host {
		t.Errorf("wrong fallback server: want=%q, got=%q", host, server)
	}
	if resolved != host {
		t.Errorf("wrong resolved server: want=%q, got=%q", host, resolved)
	}
	if !errors.Is(lookupErr, dial.ErrNoServer) {
		t.Errorf("wrong lookup error: %v", lookupErr)
	}
}

func TestDialCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d := dial.Dialer{NoLookup: true, PagerHost: "127.0.0.1", Port: 1}
	if _, _, err := d.Dial(ctx, "tcp"); err == nil {
		t.Errorf("expected error dialing with canceled context")
	}
}
