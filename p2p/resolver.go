// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package p2p

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/net/context/ctxhttp"
)

// DefaultIPURL is queried by HTTPResolver when no URL is set.
const DefaultIPURL = "http://checkip.dyndns.org/"

// IPResolver discovers the public IPv4 address of this host.
type IPResolver interface {
	PublicIP(ctx context.Context) (string, error)
}

// IPResolverFunc is an adapter that lets an ordinary function be used as an
// IPResolver.
type IPResolverFunc func(ctx context.Context) (string, error)

// PublicIP calls f(ctx).
func (f IPResolverFunc) PublicIP(ctx context.Context) (string, error) {
	return f(ctx)
}

// HTTPResolver fetches a page that contains the caller's address and returns
// the first dotted quad in it.
type HTTPResolver struct {
	// Client is used for the request, or http.DefaultClient if nil.
	Client *http.Client
	// URL is the page to fetch, or DefaultIPURL if empty.
	URL string
}

// PublicIP implements IPResolver.
func (r HTTPResolver) PublicIP(ctx context.Context) (string, error) {
	u := r.URL
	if u == "" {
		u = DefaultIPURL
	}
	resp, err := ctxhttp.Get(ctx, r.Client, u)
	if err != nil {
		return "", errors.Wrap(err, "p2p: fetching public address")
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", errors.Wrap(err, "p2p: reading public address")
	}
	fields := strings.FieldsFunc(string(body), func(r rune) bool {
		return r != '.' && (r < '0' || r > '9')
	})
	for _, f := range fields {
		if ip := net.ParseIP(f).To4(); ip != nil {
			return ip.String(), nil
		}
	}
	return "", errors.Wrapf(ErrBadAddress, "no address in response from %s", u)
}
