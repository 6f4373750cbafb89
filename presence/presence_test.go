// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package presence_test

import (
	"strconv"
	"testing"
	"time"

	"mellium.im/ymsg/presence"
)

var awayTestCases = [...]struct {
	status presence.Status
	away   bool
}{
	0: {status: presence.Available},
	1: {status: presence.BeRightBack, away: true},
	2: {status: presence.SteppedOut, away: true},
	3: {status: presence.Invisible},
	4: {status: presence.Custom},
	5: {status: presence.Idle},
	6: {status: presence.Offline},
}

func TestIsAway(t *testing.T) {
	for i, tc := range awayTestCases {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			if away := tc.status.IsAway(); away != tc.away {
				t.Errorf("wrong away value for %v: want=%t, got=%t", tc.status, tc.away, away)
			}
		})
	}
}

func TestString(t *testing.T) {
	if s := presence.Busy.String(); s != "busy" {
		t.Errorf("wrong string: %q", s)
	}
	if s := presence.Status(42).String(); s != "Status(42)" {
		t.Errorf("wrong string for unknown status: %q", s)
	}
	if presence.Status(42).Known() {
		t.Errorf("did not expect 42 to be a known status")
	}
}

func TestIdle(t *testing.T) {
	p := presence.Presence{Status: presence.Available}
	if p.Idle() {
		t.Errorf("did not expect presence to be idle")
	}
	p.IdleSince = time.Now()
	if !p.Idle() {
		t.Errorf("expected presence with idle time to be idle")
	}
	if !p.Online() {
		t.Errorf("expected presence to be online")
	}
}
