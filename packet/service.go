// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package packet

import (
	"strconv"
)

// Service identifies the kind of message carried by a packet.
type Service uint16

// Services understood by this module.
// The protocol defines many more; unknown values are valid and decode normally.
const (
	Logon         Service = 0x01
	Logoff        Service = 0x02
	IsAway        Service = 0x03
	IsBack        Service = 0x04
	Idle          Service = 0x05
	Message       Service = 0x06
	UserStat      Service = 0x0a
	NewMail       Service = 0x0b
	ChatInvite    Service = 0x0c
	NewContact    Service = 0x0f
	AddIgnore     Service = 0x11
	Ping          Service = 0x12
	SysMessage    Service = 0x14
	ConfInvite    Service = 0x18
	ConfLogon     Service = 0x19
	ConfDecline   Service = 0x1a
	ConfLogoff    Service = 0x1b
	ConfAddInvite Service = 0x1c
	ConfMsg       Service = 0x1d
	Notify        Service = 0x4b
	P2PFileXfer   Service = 0x4d
	PeerToPeer    Service = 0x4f
	AuthResp      Service = 0x54
	List          Service = 0x55
	Auth          Service = 0x57
	AddBuddy      Service = 0x83
	RemBuddy      Service = 0x84
	IgnoreContact Service = 0x85
	KeepAlive     Service = 0x8a
	ChatOnline    Service = 0x96
	ChatGoto      Service = 0x97
	ChatJoin      Service = 0x98
	ChatLeave     Service = 0x99
	ChatExit      Service = 0x9b
	ChatAddInvite Service = 0x9d
	ChatLogout    Service = 0xa0
	ChatPing      Service = 0xa1
	Comment       Service = 0xa8
	VisibleToggle Service = 0xc5
	StatusUpdate  Service = 0xc6
	AvatarUpdate  Service = 0xc7
	AuthReq       Service = 0xd6
	Status15      Service = 0xf0
	List15        Service = 0xf1
	MessageAck    Service = 0xfb
	SMSMsg        Service = 0x2ea
)

var serviceNames = map[Service]string{
	Logon:         "Logon",
	Logoff:        "Logoff",
	IsAway:        "IsAway",
	IsBack:        "IsBack",
	Idle:          "Idle",
	Message:       "Message",
	UserStat:      "UserStat",
	NewMail:       "NewMail",
	ChatInvite:    "ChatInvite",
	NewContact:    "NewContact",
	AddIgnore:     "AddIgnore",
	Ping:          "Ping",
	SysMessage:    "SysMessage",
	ConfInvite:    "ConfInvite",
	ConfLogon:     "ConfLogon",
	ConfDecline:   "ConfDecline",
	ConfLogoff:    "ConfLogoff",
	ConfAddInvite: "ConfAddInvite",
	ConfMsg:       "ConfMsg",
	Notify:        "Notify",
	P2PFileXfer:   "P2PFileXfer",
	PeerToPeer:    "PeerToPeer",
	AuthResp:      "AuthResp",
	List:          "List",
	Auth:          "Auth",
	AddBuddy:      "AddBuddy",
	RemBuddy:      "RemBuddy",
	IgnoreContact: "IgnoreContact",
	KeepAlive:     "KeepAlive",
	ChatOnline:    "ChatOnline",
	ChatGoto:      "ChatGoto",
	ChatJoin:      "ChatJoin",
	ChatLeave:     "ChatLeave",
	ChatExit:      "ChatExit",
	ChatAddInvite: "ChatAddInvite",
	ChatLogout:    "ChatLogout",
	ChatPing:      "ChatPing",
	Comment:       "Comment",
	VisibleToggle: "VisibleToggle",
	StatusUpdate:  "StatusUpdate",
	AvatarUpdate:  "AvatarUpdate",
	AuthReq:       "AuthReq",
	Status15:      "Status15",
	List15:        "List15",
	MessageAck:    "MessageAck",
	SMSMsg:        "SMSMsg",
}

func (s Service) String() string {
	if name, ok := serviceNames[s]; ok {
		return name
	}
	return "Service(0x" + strconv.FormatUint(uint64(s), 16) + ")"
}

// Status is the signed status word of the packet header.
// Its meaning depends on the service: it may be a presence status, an error
// code, or a protocol sub-type.
type Status int32

// Common packet status values.
const (
	StatusDisconnected Status = -1
	StatusDefault      Status = 0
	StatusServerAck    Status = 1
	StatusGame         Status = 2
	StatusAway         Status = 4
	StatusContinued    Status = 5
	StatusInvisible    Status = 12
	StatusNotify       Status = 0x16
	StatusWebLogin     Status = 0x5a55aa55
	StatusOffline      Status = 0x5a55aa56
)
