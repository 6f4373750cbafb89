// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package privacy_test

import (
	"reflect"
	"strconv"
	"testing"

	"mellium.im/ymsg/privacy"
)

var allowedTestCases = [...]struct {
	mode    privacy.Mode
	peer    string
	allowed bool
}{
	0: {mode: privacy.DenyListed, peer: "friend", allowed: true},
	1: {mode: privacy.DenyListed, peer: "spammer", allowed: false},
	2: {mode: privacy.DenyListed, peer: "SPAMMER", allowed: false},
	3: {mode: privacy.AllowListed, peer: "friend", allowed: true},
	4: {mode: privacy.AllowListed, peer: "stranger", allowed: false},
	5: {mode: privacy.AllowEveryone, peer: "spammer", allowed: true},
	6: {mode: privacy.DenyEveryone, peer: "friend", allowed: false},
}

func TestAllowed(t *testing.T) {
	for i, tc := range allowedTestCases {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			var l privacy.List
			l.Deny("Spammer")
			l.Permit("friend")
			l.SetMode(tc.mode)
			if got := l.Allowed("me", tc.peer); got != tc.allowed {
				t.Errorf("wrong result for %q: want=%t, got=%t", tc.peer, tc.allowed, got)
			}
		})
	}
}

func TestZeroValue(t *testing.T) {
	var l privacy.List
	if !l.Allowed("me", "anyone") {
		t.Errorf("zero value list should permit everyone")
	}
	if !privacy.AllowAll.Allowed("me", "anyone") {
		t.Errorf("AllowAll rejected a peer")
	}
}

func TestListMoves(t *testing.T) {
	var l privacy.List
	l.Deny("b", "a")
	if want := []string{"a", "b"}; !reflect.DeepEqual(l.Denied(), want) {
		t.Errorf("wrong deny list: want=%v, got=%v", want, l.Denied())
	}
	l.Permit("a")
	if want := []string{"b"}; !reflect.DeepEqual(l.Denied(), want) {
		t.Errorf("permit did not remove from deny list: %v", l.Denied())
	}
	l.Remove("b", "unknown")
	if len(l.Denied()) != 0 {
		t.Errorf("expected empty deny list, got %v", l.Denied())
	}
	if !l.Allowed("me", "b") {
		t.Errorf("removed id should be allowed")
	}
}
