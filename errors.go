// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package ymsg

import (
	"fmt"

	"github.com/pkg/errors"

	"mellium.im/ymsg/packet"
)

// Errors returned by the ymsg package.
var (
	ErrSessionClosed     = errors.New("ymsg: session closed")
	ErrNotConnected      = errors.New("ymsg: not connected")
	ErrNoSession         = errors.New("ymsg: missing session id")
	ErrNoInvitation      = errors.New("ymsg: no pending invitation")
	ErrP2PDisabled       = errors.New("ymsg: direct connections are disabled")
	ErrLoggedInElsewhere = errors.New("ymsg: logged in from another location")
)

// ServerError is a failure reported by the server in reply to a request.
type ServerError struct {
	Service packet.Service

	// Who is the friend or room the request was about.
	Who     string
	Code    int
	Message string
}

func (e *ServerError) Error() string {
	switch {
	case e.Message != "":
		return fmt.Sprintf("ymsg: %v %s: %s", e.Service, e.Who, e.Message)
	case e.Code != 0:
		return fmt.Sprintf("ymsg: %v %s: error %d", e.Service, e.Who, e.Code)
	}
	return fmt.Sprintf("ymsg: %v %s failed", e.Service, e.Who)
}
