// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package sms resolves the carrier of mobile numbers so that messages can be
// sent to phones.
package sms // import "mellium.im/ymsg/sms"

import (
	"bytes"
	"context"
	"encoding/xml"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	"golang.org/x/net/context/ctxhttp"
	"mellium.im/xmlstream"
)

// Defaults used by NewCarriers.
const (
	DefaultURL     = "http://validate.msg.yahoo.com/mobileno?intl=us&version=" + DefaultVersion
	DefaultVersion = "9.0.0.2162"
	DefaultTTL     = 24 * time.Hour
)

// ErrUnknownCarrier is returned when the lookup service does not know the
// carrier of a number.
var ErrUnknownCarrier = errors.New("sms: unknown carrier")

// IsPhone reports whether id names a phone rather than an account.
// Phone identifiers are a plus sign followed by digits.
func IsPhone(id string) bool {
	if len(id) < 2 || id[0] != '+' {
		return false
	}
	for _, c := range id[1:] {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// Number returns the digits of a phone identifier.
func Number(id string) string {
	return strings.TrimPrefix(id, "+")
}

// Option configures a Carriers cache.
type Option func(*Carriers)

// URL sets the lookup endpoint.
func URL(u string) Option {
	return func(c *Carriers) {
		c.url = u
	}
}

// Version sets the client version reported to the lookup service.
func Version(v string) Option {
	return func(c *Carriers) {
		c.version = v
	}
}

// TTL sets how long a resolved carrier is remembered.
func TTL(d time.Duration) Option {
	return func(c *Carriers) {
		c.ttl = d
	}
}

// Cookies sets the login cookies sent with each lookup.
func Cookies(cookies ...*http.Cookie) Option {
	return func(c *Carriers) {
		c.cookies = cookies
	}
}

// Carriers resolves and caches the carriers of phone numbers.
// It is safe for concurrent use.
type Carriers struct {
	client  *http.Client
	url     string
	version string
	ttl     time.Duration
	cookies []*http.Cookie
	cache   *cache.Cache
}

// NewCarriers returns an empty cache that performs lookups with client.
// If client is nil http.DefaultClient is used.
func NewCarriers(client *http.Client, opts ...Option) *Carriers {
	c := &Carriers{
		client:  client,
		url:     DefaultURL,
		version: DefaultVersion,
		ttl:     DefaultTTL,
	}
	for _, o := range opts {
		o(c)
	}
	// No janitor goroutine; expired entries are purged on write.
	c.cache = cache.New(c.ttl, 0)
	return c
}

// Cached returns the carrier of number if it has been resolved.
func (c *Carriers) Cached(number string) (string, bool) {
	v, ok := c.cache.Get(Number(number))
	if !ok {
		return "", false
	}
	return v.(string), true
}

// Set records the carrier of number.
func (c *Carriers) Set(number, carrier string) {
	c.cache.DeleteExpired()
	c.cache.Set(Number(number), carrier, cache.DefaultExpiration)
}

// Lookup returns the carrier of number, asking the lookup service if it is not
// cached.
func (c *Carriers) Lookup(ctx context.Context, number string) (string, error) {
	number = Number(number)
	if carrier, ok := c.Cached(number); ok {
		return carrier, nil
	}

	var body bytes.Buffer
	e := xml.NewEncoder(&body)
	_, err := xmlstream.Copy(e, request(c.version, number))
	if err == nil {
		err = e.Flush()
	}
	if err != nil {
		return "", errors.Wrap(err, "sms: encoding lookup request")
	}

	req, err := http.NewRequest(http.MethodPost, c.url, &body)
	if err != nil {
		return "", errors.Wrap(err, "sms: building lookup request")
	}
	req.Header.Set("Content-Type", "text/xml")
	for _, cookie := range c.cookies {
		req.AddCookie(cookie)
	}
	resp, err := ctxhttp.Do(ctx, c.client, req)
	if err != nil {
		return "", errors.Wrapf(err, "sms: looking up carrier for %s", number)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("sms: lookup failed with status %s", resp.Status)
	}

	var v validation
	if err := xml.NewDecoder(resp.Body).Decode(&v); err != nil {
		return "", errors.Wrap(err, "sms: decoding lookup response")
	}
	for _, m := range v.Mobile {
		if Number(m.Number) != number {
			continue
		}
		if m.Carrier == "" || strings.EqualFold(m.Carrier, "unknown") {
			return "", ErrUnknownCarrier
		}
		c.Set(number, m.Carrier)
		return m.Carrier, nil
	}
	return "", ErrUnknownCarrier
}

func request(version, number string) xml.TokenReader {
	return xmlstream.Wrap(
		xmlstream.Wrap(nil, xml.StartElement{
			Name: xml.Name{Local: "mobile_no"},
			Attr: []xml.Attr{{Name: xml.Name{Local: "msisdn"}, Value: number}},
		}),
		xml.StartElement{
			Name: xml.Name{Local: "validate"},
			Attr: []xml.Attr{
				{Name: xml.Name{Local: "intl"}, Value: "us"},
				{Name: xml.Name{Local: "version"}, Value: version},
				{Name: xml.Name{Local: "qos"}, Value: "0"},
			},
		},
	)
}

type validation struct {
	XMLName xml.Name `xml:"validate"`
	Mobile  []struct {
		Number  string `xml:"msisdn,attr"`
		Status  string `xml:"status,attr"`
		Carrier string `xml:"carrier,attr"`
	} `xml:"mobile_no"`
}
