// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package y64_test

import (
	"bytes"
	"crypto/md5"
	"strconv"
	"testing"

	"mellium.im/ymsg/y64"
)

var testCases = [...]struct {
	in  []byte
	out string
}{
	0: {in: []byte{}, out: ""},
	1: {in: []byte("hi"), out: "aGk-"},
	2: {in: []byte("hello"), out: "aGVsbG8-"},
	3: {in: []byte{0xfb, 0xff, 0xfe}, out: ".__."},
	4: {in: func() []byte { h := md5.Sum([]byte("crumbseed")); return h[:] }(), out: "CvdBcyxx0KGE4eiZGjyq.Q--"},
}

func TestEncodeDecode(t *testing.T) {
	for i, tc := range testCases {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			if out := y64.Encode(tc.in); out != tc.out {
				t.Errorf("wrong encoding: want=%q, got=%q", tc.out, out)
			}
			in, err := y64.Decode(tc.out)
			if err != nil {
				t.Fatalf("error decoding: %v", err)
			}
			if !bytes.Equal(in, tc.in) {
				t.Errorf("wrong decoding: want=%x, got=%x", tc.in, in)
			}
		})
	}
}

func TestDecodeInvalid(t *testing.T) {
	if _, err := y64.Decode("a+b/"); err == nil {
		t.Errorf("expected error decoding standard base64 characters")
	}
}
