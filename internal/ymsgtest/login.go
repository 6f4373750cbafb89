// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package ymsgtest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

// Login describes the account served by a login server.
type Login struct {
	Username string
	Password string
	Token    string
	Crumb    string
	Y, T, B  string

	// TokenCode, if non-zero, is returned by the token endpoint instead of a
	// token.
	TokenCode int
	// BodyCookies sends the cookies in the crumb response body instead of with
	// Set-Cookie headers.
	BodyCookies bool
}

// LoginServer emulates the token and crumb endpoints.
type LoginServer struct {
	*httptest.Server

	tokenHits int32
	crumbHits int32
}

// TokenHits returns the number of requests made to the token endpoint.
func (s *LoginServer) TokenHits() int {
	return int(atomic.LoadInt32(&s.tokenHits))
}

// CrumbHits returns the number of requests made to the crumb endpoint.
func (s *LoginServer) CrumbHits() int {
	return int(atomic.LoadInt32(&s.crumbHits))
}

// NewLoginServer starts a login server that is closed when the test ends.
func NewLoginServer(t testing.TB, l Login) *LoginServer {
	s := &LoginServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("/pwtoken_get", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&s.tokenHits, 1)
		q := r.URL.Query()
		switch {
		case l.TokenCode != 0:
			fmt.Fprintf(w, "%d\r\n", l.TokenCode)
		case q.Get("login") != l.Username:
			fmt.Fprint(w, "1235\r\n")
		case q.Get("passwd") != l.Password:
			fmt.Fprint(w, "1212\r\n")
		case q.Get("src") != "ymsgr" || q.Get("chal") == "":
			fmt.Fprint(w, "100\r\n")
		default:
			fmt.Fprintf(w, "0\r\nymsgr=%s\r\npartnerid=x\r\n", l.Token)
		}
	})
	mux.HandleFunc("/pwtoken_login", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&s.crumbHits, 1)
		if r.URL.Query().Get("token") != l.Token {
			fmt.Fprint(w, "100\r\n")
			return
		}
		if l.BodyCookies {
			fmt.Fprintf(w, "0\r\ncrumb=%s\r\nY=%s; path=/; domain=.example.com\r\nT=%s; path=/; domain=.example.com\r\ncookievalidfor=86400\r\n", l.Crumb, l.Y, l.T)
			return
		}
		for _, kv := range [...][2]string{{"Y", l.Y}, {"T", l.T}, {"B", l.B}} {
			if kv[1] != "" {
				http.SetCookie(w, &http.Cookie{Name: kv[0], Value: kv[1], Path: "/"})
			}
		}
		fmt.Fprintf(w, "0\r\ncrumb=%s\r\ncookievalidfor=86400\r\n", l.Crumb)
	})
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Server.Close)
	return s
}
