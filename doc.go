// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package ymsg implements the client side of the Yahoo! Messenger (YMSG)
// protocol.
//
// Be advised: This API is still unstable and is subject to change.
//
// # Sessions
//
// A Session is a logged in connection to a pager server.
// Login performs the web token exchange and the pager handshake, and returns a
// session that is ready to be served:
//
//	s, err := ymsg.Login(ctx, "someuser", "password",
//		ymsg.UseSink(mySink),
//	)
//	if err != nil {
//		// handle error
//	}
//	defer s.Close()
//	err = s.Serve(ctx)
//
// Serve reads packets until the connection is closed, the context is canceled,
// or the account is logged in somewhere else.
// Events such as incoming messages, presence changes, and chat activity are
// reported to the Sink in the order they were received.
// The methods of Session are safe to call from any goroutine, including from
// the Sink.
//
// # Direct Connections
//
// When enabled with the P2P option, messages to a friend are sent over a
// direct TCP connection once one has been negotiated.
// If the connection fails or is never established, messages are relayed
// through the server without any change in behavior for the caller.
//
// # Extending
//
// Packets for services that the session does not understand are passed to the
// Handler set with the Fallback option.
// The mux package provides a Handler that routes packets by service.
package ymsg // import "mellium.im/ymsg"
