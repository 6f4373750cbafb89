// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package roster_test

import (
	"reflect"
	"strconv"
	"testing"

	"mellium.im/ymsg/presence"
	"mellium.im/ymsg/roster"
)

var parseTestCases = [...]struct {
	blob string
	out  []roster.Entry
}{
	0: {},
	1: {
		blob: "Friends:alice,bob\n",
		out:  []roster.Entry{{Group: "Friends", Members: []string{"alice", "bob"}}},
	},
	2: {
		blob: "Friends:alice,bob\nWork:carol\n",
		out: []roster.Entry{
			{Group: "Friends", Members: []string{"alice", "bob"}},
			{Group: "Work", Members: []string{"carol"}},
		},
	},
	3: {
		blob: "no separator\r\nEmpty:\r\nWork: carol , ,dave\r\n",
		out: []roster.Entry{
			{Group: "Empty"},
			{Group: "Work", Members: []string{"carol", "dave"}},
		},
	},
	4: {
		blob: "Friends:alice",
		out:  []roster.Entry{{Group: "Friends", Members: []string{"alice"}}},
	},
}

func TestParseList(t *testing.T) {
	for i, tc := range parseTestCases {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			out := roster.ParseList(tc.blob)
			if !reflect.DeepEqual(out, tc.out) {
				t.Errorf("wrong entries:\nwant=%+v\ngot=%+v", tc.out, out)
			}
		})
	}
}

func TestFindOrCreate(t *testing.T) {
	r := roster.New()
	f, created := r.FindOrCreate("Alice")
	if !created {
		t.Fatalf("expected friend to be created")
	}
	if f.ID != "alice" || f.Name != "Alice" {
		t.Errorf("wrong identifiers: id=%q, name=%q", f.ID, f.Name)
	}
	if f.Presence.Status != presence.Offline {
		t.Errorf("new friends should be offline, got %v", f.Presence.Status)
	}
	f2, created := r.FindOrCreate(" ALICE ")
	if created || f2 != f {
		t.Errorf("expected lookup to be case insensitive")
	}
	if _, ok := r.Get("aLiCe"); !ok {
		t.Errorf("expected Get to find friend")
	}
	if r.Len() != 1 {
		t.Errorf("wrong length: want=1, got=%d", r.Len())
	}
	if _, ok := r.Remove("alice"); !ok {
		t.Errorf("expected friend to be removed")
	}
	if _, ok := r.Remove("alice"); ok {
		t.Errorf("removing twice should report nothing removed")
	}
}

func TestReconcile(t *testing.T) {
	r := roster.New()
	r.FindOrCreate("zed")
	bob, _ := r.FindOrCreate("bob")
	bob.Group = "Old"

	entries := roster.ParseList("Friends:alice,bob\nWork:carol\n")
	var closed []string
	added, removed := r.Reconcile(entries, func(f *roster.Friend) {
		closed = append(closed, f.ID)
	})
	if want := []string{"alice", "carol"}; !reflect.DeepEqual(added, want) {
		t.Errorf("wrong added: want=%v, got=%v", want, added)
	}
	if want := []string{"zed"}; !reflect.DeepEqual(removed, want) {
		t.Errorf("wrong removed: want=%v, got=%v", want, removed)
	}
	if !reflect.DeepEqual(closed, removed) {
		t.Errorf("removal hook not called for each removed friend: %v", closed)
	}
	if bob.Group != "Friends" {
		t.Errorf("group not updated: %q", bob.Group)
	}
	if want := []string{"alice", "bob", "carol"}; !reflect.DeepEqual(r.IDs(), want) {
		t.Errorf("wrong roster: want=%v, got=%v", want, r.IDs())
	}
	if want := []string{"Friends", "Work"}; !reflect.DeepEqual(r.Groups(), want) {
		t.Errorf("wrong groups: want=%v, got=%v", want, r.Groups())
	}
}

func TestReconcileIdempotent(t *testing.T) {
	entries := roster.ParseList("Friends:alice,bob\nWork:carol,Alice\n")
	r := roster.New()
	r.Reconcile(entries, nil)
	first := r.Snapshot()

	added, removed := r.Reconcile(entries, nil)
	if len(added) != 0 || len(removed) != 0 {
		t.Errorf("second reconcile changed roster: added=%v, removed=%v", added, removed)
	}
	if second := r.Snapshot(); !reflect.DeepEqual(first, second) {
		t.Errorf("roster changed:\nwant=%+v\ngot=%+v", first, second)
	}
	// Duplicates keep the first group they appear in.
	if f, _ := r.Get("alice"); f.Group != "Friends" {
		t.Errorf("wrong group for duplicate member: %q", f.Group)
	}
}

func TestRangeStops(t *testing.T) {
	r := roster.New()
	for _, id := range []string{"c", "a", "b"} {
		r.FindOrCreate(id)
	}
	var seen []string
	r.Range(func(f *roster.Friend) bool {
		seen = append(seen, f.ID)
		return len(seen) < 2
	})
	if want := []string{"a", "b"}; !reflect.DeepEqual(seen, want) {
		t.Errorf("wrong iteration: want=%v, got=%v", want, seen)
	}
}

func TestMemStoreLoad(t *testing.T) {
	var s roster.MemStore
	for _, e := range [...][2]string{{"Bob", "Friends"}, {"alice", "Friends"}, {"carol", "Work"}, {"zed", "Work"}} {
		if err := s.FindOrCreate(e[0], e[1]); err != nil {
			t.Fatalf("error storing %s: %v", e[0], err)
		}
	}
	if err := s.Remove("ZED"); err != nil {
		t.Fatalf("error removing: %v", err)
	}
	if err := s.Remove("nobody"); err != nil {
		t.Fatalf("removing unknown id should not fail: %v", err)
	}
	entries, err := s.Entries()
	if err != nil {
		t.Fatalf("error listing entries: %v", err)
	}
	want := []roster.Entry{
		{Group: "Friends", Members: []string{"alice", "bob"}},
		{Group: "Work", Members: []string{"carol"}},
	}
	if !reflect.DeepEqual(entries, want) {
		t.Errorf("wrong entries:\nwant=%+v\ngot=%+v", want, entries)
	}

	r := roster.New()
	if err := r.Load(&s); err != nil {
		t.Fatalf("error loading: %v", err)
	}
	if f, ok := r.Get("carol"); !ok || f.Group != "Work" {
		t.Errorf("carol not loaded into Work: %+v", f)
	}
}

func TestP2PStateString(t *testing.T) {
	for i, tc := range [...]struct {
		s    roster.P2PState
		want string
	}{
		0: {roster.NotConnected, "not connected"},
		1: {roster.WeAreClient, "client"},
		2: {roster.WeAreServer, "server"},
	} {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			if s := tc.s.String(); s != tc.want {
				t.Errorf("want=%q, got=%q", tc.want, s)
			}
		})
	}
}
