// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package auth

import (
	"context"
	"net/http"

	"mellium.im/sasl"
)

// MechanismName is the name of the challenge response mechanism used by
// protocol version 16.
const MechanismName = "YMSG-V16"

// Mechanism returns the version 16 challenge response as a SASL mechanism.
//
// The first step sends the username.
// The second step takes the challenge seed, exchanges the password for a
// token and the token for a crumb and cookies over HTTP, and responds with
// the hash of the crumb and seed.
// The cookies are stored in cookies, and onState, if not nil, is called as
// each HTTP round trip starts.
func Mechanism(ctx context.Context, client *http.Client, loginURL string, cookies *Cookies, onState func(State)) sasl.Mechanism {
	return sasl.Mechanism{
		Name: MechanismName,
		Start: func(m *sasl.Negotiator) (bool, []byte, interface{}, error) {
			username, _, _ := m.Credentials()
			return true, username, nil, nil
		},
		Next: func(m *sasl.Negotiator, challenge []byte, _ interface{}) (bool, []byte, interface{}, error) {
			if len(challenge) == 0 {
				return false, nil, nil, protocolError(nil, "empty challenge seed")
			}
			tokens, err := newTokenClient(client, loginURL)
			if err != nil {
				return false, nil, nil, err
			}
			username, password, _ := m.Credentials()
			seed := string(challenge)

			if onState != nil {
				onState(FetchingToken)
			}
			token, err := tokens.Token(ctx, string(username), string(password), seed)
			if err != nil {
				return false, nil, nil, err
			}

			if onState != nil {
				onState(FetchingCrumb)
			}
			crumb, c, err := tokens.Crumb(ctx, token)
			if err != nil {
				return false, nil, nil, err
			}
			if cookies != nil {
				*cookies = c
			}
			return false, []byte(Hash(crumb, seed)), nil, nil
		},
	}
}
