// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package auth

import (
	"fmt"

	"github.com/pkg/errors"
)

// Category groups login failures by what the user can do about them.
type Category int

// A list of failure categories.
const (
	Unknown Category = iota
	Network
	Protocol
	InvalidCredentials
	AccountLocked
	UnknownUser
	RateLimited
	DuplicateLogin
)

// ErrUnsupportedMethod is returned when the server asks for a challenge
// method other than the one this package implements.
var ErrUnsupportedMethod = errors.New("auth: unsupported challenge method")

// Error is a login failure.
type Error struct {
	Category Category
	// Code is the numeric code reported by the login or pager server, or zero.
	Code    int
	Message string
	// ClearPassword is true if the stored password was forgotten because it was
	// rejected.
	ClearPassword bool
	Err           error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Code != 0 {
		return fmt.Sprintf("auth: %s (code %d): %s", e.Category, e.Code, msg)
	}
	return fmt.Sprintf("auth: %s: %s", e.Category, msg)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

func networkError(err error, msg string) *Error {
	return &Error{Category: Network, Message: msg, Err: errors.Wrap(err, msg)}
}

func protocolError(err error, msg string) *Error {
	return &Error{Category: Protocol, Message: msg, Err: err}
}

// TokenError returns the error for a non-zero response code from the login
// token service.
func TokenError(code int) *Error {
	e := &Error{Code: code}
	switch code {
	case 1212:
		e.Category, e.Message = InvalidCredentials, "incorrect password"
	case 100:
		e.Category, e.Message = InvalidCredentials, "username or password missing"
	case 1013:
		e.Category, e.Message = InvalidCredentials, "username must not contain a domain"
	case 1213:
		e.Category, e.Message = AccountLocked, "account locked after too many failed attempts"
	case 1214:
		e.Category, e.Message = AccountLocked, "account locked, log in on the web to unlock"
	case 1236:
		e.Category, e.Message = AccountLocked, "account locked, log in on the web to unlock"
	case 1235:
		e.Category, e.Message = UnknownUser, "username does not exist"
	case 52:
		e.Category, e.Message = RateLimited, "too many login attempts, try again later"
	default:
		e.Category, e.Message = Unknown, "unknown login error"
	}
	return e
}

// ServerError returns the error for an error code in an authentication
// response from the pager server.
func ServerError(code int) *Error {
	e := &Error{Code: code}
	switch code {
	case 3:
		e.Category, e.Message = UnknownUser, "username does not exist"
	case 13:
		e.Category, e.Message = InvalidCredentials, "incorrect password"
	case 14:
		e.Category, e.Message = AccountLocked, "account locked"
	case 99:
		e.Category, e.Message = DuplicateLogin, "logged in from another location"
	default:
		e.Category, e.Message = Unknown, "unknown login error"
	}
	return e
}
