// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package y64 implements the Y64 encoding used during YMSG authentication.
//
// Y64 is base64 with '.' and '_' in place of '+' and '/', and '-' as the
// padding character.
package y64 // import "mellium.im/ymsg/y64"

import (
	"encoding/base64"
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789._"

// Encoding is the Y64 encoding.
var Encoding = base64.NewEncoding(alphabet).WithPadding('-')

// Encode returns the Y64 encoding of src.
func Encode(src []byte) string {
	return Encoding.EncodeToString(src)
}

// Decode returns the bytes represented by the Y64 string s.
func Decode(s string) ([]byte, error) {
	return Encoding.DecodeString(s)
}
