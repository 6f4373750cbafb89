// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package ymsg_test

import (
	"reflect"
	"strconv"
	"testing"
	"time"

	"mellium.im/ymsg"
	"mellium.im/ymsg/packet"
	"mellium.im/ymsg/presence"
	"mellium.im/ymsg/roster"
)

func list(status packet.Status, blob, ignored string) packet.Packet {
	p := packet.New(packet.List, status, testSID)
	if blob != "" {
		p.Add(87, blob)
	}
	if ignored != "" {
		p.Add(88, ignored)
	}
	return p
}

func friendIDs(friends []roster.Friend) []string {
	ids := make([]string, 0, len(friends))
	for _, f := range friends {
		ids = append(ids, f.ID)
	}
	return ids
}

func TestListContinued(t *testing.T) {
	store := &roster.MemStore{}
	h := newHarness(t, ymsg.Store(store))

	h.srv.Send(
		list(packet.StatusContinued, "Friends:alice,bo", ""),
		list(packet.StatusDefault, "b\nWork:carol\n", "mallory"),
	)
	h.flush(t)

	friends := h.s.Friends()
	if ids := friendIDs(friends); !reflect.DeepEqual(ids, []string{"alice", "bob", "carol"}) {
		t.Fatalf("wrong friends: %v", ids)
	}
	if g := friends[2].Group; g != "Work" {
		t.Errorf("wrong group for carol: %q", g)
	}
	if ids := h.s.Ignored(); !reflect.DeepEqual(ids, []string{"mallory"}) {
		t.Errorf("wrong ignore list: %v", ids)
	}
	entries, _ := store.Entries()
	want := []roster.Entry{
		{Group: "Friends", Members: []string{"alice", "bob"}},
		{Group: "Work", Members: []string{"carol"}},
	}
	if !reflect.DeepEqual(entries, want) {
		t.Errorf("wrong store contents:\nwant=%v\ngot= %v", want, entries)
	}
}

func TestListReconcile(t *testing.T) {
	h := newHarness(t)
	const blob = "Friends:alice,bob\nWork:carol\n"

	h.srv.Send(list(packet.StatusDefault, blob, ""))
	first := h.flush(t)
	before := h.s.Friends()

	h.srv.Send(list(packet.StatusDefault, blob, ""))
	if events := h.flush(t); len(events) != 0 {
		t.Errorf("reapplying the same list delivered events: %v", events)
	}
	if after := h.s.Friends(); !reflect.DeepEqual(before, after) {
		t.Errorf("reapplying the same list changed the roster:\nbefore=%v\nafter= %v", before, after)
	}
	if len(first) != 3 {
		t.Errorf("expected an event per new friend, got %v", first)
	}

	h.srv.Send(list(packet.StatusDefault, "Friends:alice\n", ""))
	h.flush(t)
	if ids := friendIDs(h.s.Friends()); !reflect.DeepEqual(ids, []string{"alice"}) {
		t.Errorf("friends missing from the list were not pruned: %v", ids)
	}
}

func TestListCookiesOnly(t *testing.T) {
	h := newHarness(t)
	h.srv.Send(list(packet.StatusDefault, "Friends:alice\n", "mallory"))
	h.flush(t)
	if ids := h.s.Ignored(); !reflect.DeepEqual(ids, []string{"mallory"}) {
		t.Fatalf("wrong ignore list: %v", ids)
	}

	p := packet.New(packet.List, packet.StatusDefault, testSID)
	p.Add(59, "Y\tv=1")
	h.srv.Send(p)
	h.flush(t)
	if ids := friendIDs(h.s.Friends()); !reflect.DeepEqual(ids, []string{"alice"}) {
		t.Errorf("list without contacts changed the roster: %v", ids)
	}
	if ids := h.s.Ignored(); !reflect.DeepEqual(ids, []string{"mallory"}) {
		t.Errorf("list without an ignore section changed the ignore list: %v", ids)
	}

	h.srv.Send(message("mallory", [2]string{"hi", ""}))
	for _, ev := range h.flush(t) {
		if im, ok := ev.(ymsg.IM); ok {
			t.Errorf("message from ignored sender delivered: %+v", im)
		}
	}
}

func TestList15(t *testing.T) {
	h := newHarness(t)
	p := packet.New(packet.List15, packet.StatusDefault, testSID)
	p.Add(302, "318").Add(300, "318").Add(65, "Friends").
		Add(302, "319").Add(300, "319").Add(7, "alice").Add(301, "319").
		Add(300, "319").Add(7, "bob").Add(301, "319").Add(303, "319").
		Add(301, "318").Add(303, "318").
		Add(302, "320").Add(300, "320").Add(7, "mallory").Add(301, "320").Add(303, "320")
	h.srv.Send(p)
	h.flush(t)

	if ids := friendIDs(h.s.Friends()); !reflect.DeepEqual(ids, []string{"alice", "bob"}) {
		t.Errorf("wrong friends: %v", ids)
	}
	if ids := h.s.Ignored(); !reflect.DeepEqual(ids, []string{"mallory"}) {
		t.Errorf("wrong ignore list: %v", ids)
	}
}

func logon(who string, status presence.Status, extra ...packet.Field) packet.Packet {
	p := packet.New(packet.Logon, packet.StatusDefault, testSID)
	p.Add(0, testUser).Add(7, who).AddInt(10, int64(status)).AddInt(11, int64(peerSID))
	p.Fields = append(p.Fields, extra...)
	return p
}

func TestPresence(t *testing.T) {
	h := newHarness(t)

	h.srv.Send(logon("alice", presence.Custom,
		packet.Field{Key: 19, Value: "out to lunch"},
		packet.Field{Key: 47, Value: "1"},
		packet.Field{Key: 137, Value: "60"},
	))
	f := expect[roster.Friend](t, h.rec)
	if f.ID != "alice" || f.Presence.Status != presence.Custom {
		t.Fatalf("wrong friend: %+v", f)
	}
	if f.Presence.Message != "out to lunch" || !f.Presence.Away {
		t.Errorf("wrong custom status: %+v", f.Presence)
	}
	if idle := time.Since(f.Presence.IdleSince); idle < time.Minute || idle > 2*time.Minute {
		t.Errorf("wrong idle time: %v", idle)
	}
	if f.SessionID != peerSID {
		t.Errorf("wrong session id: %d", f.SessionID)
	}

	off := packet.New(packet.Logoff, packet.StatusDefault, testSID)
	off.Add(7, "alice")
	h.srv.Send(off)
	if f := expect[roster.Friend](t, h.rec); f.Presence.Online() {
		t.Errorf("friend still online after logoff: %+v", f.Presence)
	}
}

func TestPresenceBatch(t *testing.T) {
	h := newHarness(t)
	p := packet.New(packet.Status15, packet.StatusDefault, testSID)
	p.Add(7, "alice").Add(10, "2").Add(13, "1").
		Add(7, "bob").Add(10, "0").Add(13, "0").
		Add(7, "carol").Add(10, "99").Add(19, "busy busy")
	h.srv.Send(p)
	h.flush(t)

	for i, tc := range [...]struct {
		id     string
		status presence.Status
		msg    string
	}{
		0: {id: "alice", status: presence.Busy},
		1: {id: "bob", status: presence.Offline},
		2: {id: "carol", status: presence.Custom, msg: "busy busy"},
	} {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			f, ok := h.s.Friend(tc.id)
			if !ok {
				t.Fatalf("friend not found")
			}
			if f.Presence.Status != tc.status || f.Presence.Message != tc.msg {
				t.Errorf("wrong presence: %+v", f.Presence)
			}
		})
	}
}

func TestSetStatus(t *testing.T) {
	h := newHarness(t)
	err := h.s.SetStatus(presence.Presence{Status: presence.Custom, Message: "brb", Away: true})
	if err != nil {
		t.Fatalf("error setting status: %v", err)
	}
	p := h.srv.Expect(packet.StatusUpdate)
	if p.Get(10) != "99" || p.Get(19) != "brb" || p.Get(47) != "1" {
		t.Errorf("wrong status packet: %+v", p.Fields)
	}

	if err := h.s.SetStatus(presence.Presence{Status: presence.Invisible}); err != nil {
		t.Fatalf("error going invisible: %v", err)
	}
	if p := h.srv.Expect(packet.VisibleToggle); p.Get(13) != "2" {
		t.Errorf("wrong visibility packet: %+v", p.Fields)
	}

	if err := h.s.SetStatus(presence.Presence{Status: presence.Available}); err != nil {
		t.Fatalf("error going visible: %v", err)
	}
	h.srv.Expect(packet.StatusUpdate)
	if p := h.srv.Expect(packet.VisibleToggle); p.Get(13) != "1" {
		t.Errorf("wrong visibility packet: %+v", p.Fields)
	}
	if s := h.s.Status(); s.Status != presence.Available {
		t.Errorf("wrong status: %v", s.Status)
	}

	if err := h.s.SetStatus(presence.Presence{Status: presence.Offline}); err == nil {
		t.Errorf("expected error setting offline status")
	}
}

func TestAuthRequest(t *testing.T) {
	h := newHarness(t)
	p := packet.New(packet.AuthReq, 3, testSID)
	p.Add(4, "carol").Add(5, testUser).Add(14, "add me")
	h.srv.Send(p)

	req := expect[ymsg.AuthRequest](t, h.rec)
	if req.From != "carol" || req.Message != "add me" || req.Response {
		t.Fatalf("wrong request: %+v", req)
	}
	if reqs := h.s.PendingAuthRequests(); len(reqs) != 1 {
		t.Errorf("wrong pending requests: %v", reqs)
	}

	if err := h.s.Authorize("Carol"); err != nil {
		t.Fatalf("error authorizing: %v", err)
	}
	resp := h.srv.Expect(packet.AuthReq)
	if resp.Get(1) != testUser || resp.Get(5) != "carol" || resp.Get(13) != "1" {
		t.Errorf("wrong authorization packet: %+v", resp.Fields)
	}

	// Answering again is a no-op.
	if err := h.s.Authorize("carol"); err != nil {
		t.Errorf("error authorizing twice: %v", err)
	}
	if err := h.s.Deny("carol", "nope"); err != nil {
		t.Errorf("error denying answered request: %v", err)
	}
	h.srv.Quiet(100 * time.Millisecond)
}

func TestAuthDeny(t *testing.T) {
	h := newHarness(t)
	p := packet.New(packet.AuthReq, 3, testSID)
	p.Add(4, "dave").Add(5, testUser)
	h.srv.Send(p)
	expect[ymsg.AuthRequest](t, h.rec)

	if err := h.s.Deny("dave", "who are you"); err != nil {
		t.Fatalf("error denying: %v", err)
	}
	resp := h.srv.Expect(packet.AuthReq)
	if resp.Get(13) != "2" || resp.Get(14) != "who are you" {
		t.Errorf("wrong denial packet: %+v", resp.Fields)
	}
}

func TestAuthResponseDenied(t *testing.T) {
	h := newHarness(t)
	h.srv.Send(list(packet.StatusDefault, "Friends:erin\n", ""))
	h.flush(t)

	p := packet.New(packet.AuthReq, 1, testSID)
	p.Add(4, "erin").Add(5, testUser).Add(13, "2").Add(14, "no thanks")
	h.srv.Send(p)
	resp := expect[ymsg.AuthRequest](t, h.rec)
	if !resp.Response || resp.Accepted {
		t.Errorf("wrong response: %+v", resp)
	}
	if _, ok := h.s.Friend("erin"); ok {
		t.Errorf("friend that denied authorization is still on the roster")
	}
}

func TestAddRemoveBuddy(t *testing.T) {
	store := &roster.MemStore{}
	h := newHarness(t, ymsg.Store(store))

	if err := h.s.AddBuddy("frank", "", "hi frank"); err != nil {
		t.Fatalf("error adding buddy: %v", err)
	}
	p := h.srv.Expect(packet.AddBuddy)
	if p.Get(7) != "frank" || p.Get(65) != ymsg.DefaultGroup || p.Get(14) != "hi frank" {
		t.Errorf("wrong add packet: %+v", p.Fields)
	}

	ack := packet.New(packet.AddBuddy, packet.StatusDefault, testSID)
	ack.Add(1, testUser).Add(7, "frank").Add(65, ymsg.DefaultGroup).Add(66, "0")
	h.srv.Send(ack)
	if f := expect[roster.Friend](t, h.rec); f.ID != "frank" || f.Group != ymsg.DefaultGroup {
		t.Errorf("wrong friend added: %+v", f)
	}

	if err := h.s.RemoveBuddy("frank"); err != nil {
		t.Fatalf("error removing buddy: %v", err)
	}
	if p := h.srv.Expect(packet.RemBuddy); p.Get(7) != "frank" || p.Get(65) != ymsg.DefaultGroup {
		t.Errorf("wrong remove packet: %+v", p.Fields)
	}
	if _, ok := h.s.Friend("frank"); ok {
		t.Errorf("friend not removed")
	}
	if entries, _ := store.Entries(); len(entries) != 0 {
		t.Errorf("friend not removed from store: %v", entries)
	}
}

func TestAddBuddyFailed(t *testing.T) {
	h := newHarness(t)
	ack := packet.New(packet.AddBuddy, packet.StatusDefault, testSID)
	ack.Add(7, "nobody").Add(66, "3")
	h.srv.Send(ack)

	ev := expect[errorEvent](t, h.rec)
	serr, ok := ev.err.(*ymsg.ServerError)
	if !ok || serr.Code != 3 || serr.Who != "nobody" {
		t.Errorf("wrong error: %v", ev.err)
	}
}

func TestStoreLoaded(t *testing.T) {
	store := &roster.MemStore{}
	if err := store.FindOrCreate("gina", "Family"); err != nil {
		t.Fatal(err)
	}
	h := newHarness(t, ymsg.Store(store))
	f, ok := h.s.Friend("gina")
	if !ok || f.Group != "Family" || f.Presence.Online() {
		t.Errorf("friend not loaded from store: %+v, %t", f, ok)
	}
}
