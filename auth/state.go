// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

//go:generate go run -tags=tools golang.org/x/tools/cmd/stringer -type=State,Category

package auth

// State is a step of the login process.
type State int

// Login states in the order they are entered.
// Failed may be entered from any other state.
const (
	Idle State = iota
	ResolvingServer
	Connecting
	AwaitingChallenge
	FetchingToken
	FetchingCrumb
	SendingAuthResponse
	Authenticated
	Failed
)
