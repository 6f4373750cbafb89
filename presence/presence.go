// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package presence describes the availability of a user.
package presence // import "mellium.im/ymsg/presence"

import (
	"strconv"
	"time"
)

// Status is a presence state as it appears on the wire.
type Status int

// Known states.
const (
	Available   Status = 0
	BeRightBack Status = 1
	Busy        Status = 2
	NotAtHome   Status = 3
	NotAtDesk   Status = 4
	NotInOffice Status = 5
	OnPhone     Status = 6
	OnVacation  Status = 7
	OutToLunch  Status = 8
	SteppedOut  Status = 9
	Invisible   Status = 12
	Custom      Status = 99
	Idle        Status = 999
	Offline     Status = 0x5a55aa56
)

var names = map[Status]string{
	Available:   "available",
	BeRightBack: "be right back",
	Busy:        "busy",
	NotAtHome:   "not at home",
	NotAtDesk:   "not at my desk",
	NotInOffice: "not in the office",
	OnPhone:     "on the phone",
	OnVacation:  "on vacation",
	OutToLunch:  "out to lunch",
	SteppedOut:  "stepped out",
	Invisible:   "invisible",
	Custom:      "custom",
	Idle:        "idle",
	Offline:     "offline",
}

func (s Status) String() string {
	if n, ok := names[s]; ok {
		return n
	}
	return "Status(" + strconv.Itoa(int(s)) + ")"
}

// Known reports whether s is one of the states defined by this package.
func (s Status) Known() bool {
	_, ok := names[s]
	return ok
}

// IsAway reports whether s is one of the away sub-modes.
// Available, Invisible, Idle, Offline and Custom are not away states; whether a
// custom status is away is carried separately (see Presence.Away).
func (s Status) IsAway() bool {
	return s >= BeRightBack && s <= SteppedOut
}

// Presence is the full presence of a user.
type Presence struct {
	Status Status

	// Message is only meaningful when Status is Custom.
	Message string

	// Away marks a custom status as away (or busy).
	Away bool

	// IdleSince is the zero time if the user is not idle.
	IdleSince time.Time

	Mobile         bool
	AvatarChecksum int
}

// Online reports whether the presence describes a signed on user.
func (p Presence) Online() bool {
	return p.Status != Offline
}

// Idle reports whether the user is idle.
func (p Presence) Idle() bool {
	return !p.IdleSince.IsZero() || p.Status == Idle
}
