// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package dial

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"golang.org/x/net/context/ctxhttp"
)

const capacityPrefix = "CS_IP_ADDRESS="

var (
	// ErrNoServer is returned by LookupPager if the capacity response did not
	// name a server.
	ErrNoServer = errors.New("dial: no pager server in capacity response")
)

// LookupPager asks the capacity service on host for the least loaded pager
// server.
func LookupPager(ctx context.Context, client *http.Client, host string) (string, error) {
	resp, err := ctxhttp.Get(ctx, client, "http://"+host+"/capacity")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", errors.New("dial: capacity request failed: " + resp.Status)
	}
	return parseCapacity(io.LimitReader(resp.Body, 4096))
}

// parseCapacity reads a body of the form:
//
//	COLO_CAPACITY=1
//	CS_IP_ADDRESS=1.2.3.4
func parseCapacity(r io.Reader) (string, error) {
	s := bufio.NewScanner(r)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if v := strings.TrimPrefix(line, capacityPrefix); v != line && v != "" {
			return v, nil
		}
	}
	if err := s.Err(); err != nil {
		return "", err
	}
	return "", ErrNoServer
}
