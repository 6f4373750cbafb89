// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package auth

import (
	"context"
	"crypto/md5"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/context/ctxhttp"
	"golang.org/x/net/publicsuffix"

	"mellium.im/ymsg/y64"
)

// DefaultLoginURL is the base of the token and crumb endpoints.
const DefaultLoginURL = "https://login.yahoo.com/config"

// Cookies are the login cookies returned with the crumb.
// Y and T are required to complete authentication; B is optional.
type Cookies struct {
	Y, T, B string
}

// HTTP returns the cookies in a form suitable for HTTP requests made on
// behalf of the session.
func (c Cookies) HTTP() []*http.Cookie {
	var out []*http.Cookie
	for _, kv := range [...][2]string{{"Y", c.Y}, {"T", c.T}, {"B", c.B}} {
		if kv[1] != "" {
			out = append(out, &http.Cookie{Name: kv[0], Value: kv[1]})
		}
	}
	return out
}

// Hash returns the response to a challenge seed given a crumb.
func Hash(crumb, seed string) string {
	sum := md5.Sum([]byte(crumb + seed))
	return y64.Encode(sum[:])
}

// lines splits a response body and returns the numeric code on its first
// line.
func lines(body string) (code int, rest []string, err error) {
	ls := strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n")
	code, err = strconv.Atoi(strings.TrimSpace(ls[0]))
	if err != nil {
		return 0, nil, protocolError(err, "malformed login response")
	}
	return code, ls[1:], nil
}

// cookieValue strips cookie attributes such as path and domain.
func cookieValue(v string) string {
	if i := strings.IndexByte(v, ';'); i >= 0 {
		v = v[:i]
	}
	return strings.TrimSpace(v)
}

func parseToken(body string) (string, error) {
	code, rest, err := lines(body)
	if err != nil {
		return "", err
	}
	if code != 0 {
		return "", TokenError(code)
	}
	for _, l := range rest {
		if v := strings.TrimPrefix(strings.TrimSpace(l), "ymsgr="); v != strings.TrimSpace(l) && v != "" {
			return v, nil
		}
	}
	return "", protocolError(nil, "no token in login response")
}

func parseCrumb(body string) (crumb string, c Cookies, err error) {
	code, rest, err := lines(body)
	if err != nil {
		return "", c, err
	}
	if code != 0 {
		return "", c, TokenError(code)
	}
	for _, l := range rest {
		l = strings.TrimSpace(l)
		switch {
		case strings.HasPrefix(l, "crumb="):
			crumb = strings.TrimPrefix(l, "crumb=")
		case strings.HasPrefix(l, "Y="):
			c.Y = cookieValue(l[2:])
		case strings.HasPrefix(l, "T="):
			c.T = cookieValue(l[2:])
		case strings.HasPrefix(l, "B="):
			c.B = cookieValue(l[2:])
		}
	}
	if crumb == "" {
		return "", c, protocolError(nil, "no crumb in login response")
	}
	return crumb, c, nil
}

// tokenClient performs the two HTTP round trips that turn a password into
// login cookies.
type tokenClient struct {
	client  *http.Client
	baseURL string
}

func newTokenClient(base *http.Client, baseURL string) (*tokenClient, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	c := http.Client{}
	if base != nil {
		c = *base
	}
	c.Jar = jar
	if baseURL == "" {
		baseURL = DefaultLoginURL
	}
	return &tokenClient{client: &c, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

func (tc *tokenClient) get(ctx context.Context, u string) (string, error) {
	resp, err := ctxhttp.Get(ctx, tc.client, u)
	if err != nil {
		return "", networkError(err, "login request failed")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", &Error{Category: Network, Message: "login request failed: " + resp.Status}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", networkError(err, "reading login response")
	}
	return string(body), nil
}

// Token exchanges a password for a login token.
func (tc *tokenClient) Token(ctx context.Context, username, password, seed string) (string, error) {
	q := "src=ymsgr&ts=&login=" + url.QueryEscape(username) +
		"&passwd=" + url.QueryEscape(password) +
		"&chal=" + url.QueryEscape(seed)
	body, err := tc.get(ctx, tc.baseURL+"/pwtoken_get?"+q)
	if err != nil {
		return "", err
	}
	return parseToken(body)
}

// Crumb exchanges a login token for a crumb and cookies.
// Cookies set by the server take precedence over those in the body.
func (tc *tokenClient) Crumb(ctx context.Context, token string) (string, Cookies, error) {
	u := tc.baseURL + "/pwtoken_login?src=ymsgr&ts=&token=" + url.QueryEscape(token)
	body, err := tc.get(ctx, u)
	if err != nil {
		return "", Cookies{}, err
	}
	crumb, cookies, err := parseCrumb(body)
	if err != nil {
		return "", cookies, err
	}
	if parsed, err := url.Parse(u); err == nil {
		for _, c := range tc.client.Jar.Cookies(parsed) {
			switch c.Name {
			case "Y":
				cookies.Y = c.Value
			case "T":
				cookies.T = c.Value
			case "B":
				cookies.B = c.Value
			}
		}
	}
	if cookies.Y == "" || cookies.T == "" {
		return "", cookies, protocolError(nil, "login response is missing cookies")
	}
	return crumb, cookies, nil
}
