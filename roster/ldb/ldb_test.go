// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package ldb_test

import (
	"path/filepath"
	"reflect"
	"testing"

	"github.com/rs/zerolog"

	"mellium.im/ymsg/roster"
	"mellium.im/ymsg/roster/ldb"
)

func TestPersist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster")
	s, err := ldb.Open(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("error opening store: %v", err)
	}
	for _, e := range [...][2]string{{"Alice", "Friends"}, {"bob", "Friends"}, {"carol", "Work"}} {
		if err := s.FindOrCreate(e[0], e[1]); err != nil {
			t.Fatalf("error storing %s: %v", e[0], err)
		}
	}
	// Moving a friend overwrites the old group.
	if err := s.FindOrCreate("bob", "Work"); err != nil {
		t.Fatalf("error moving bob: %v", err)
	}
	if err := s.Remove("ALICE"); err != nil {
		t.Fatalf("error removing alice: %v", err)
	}
	if err := s.Remove("nobody"); err != nil {
		t.Fatalf("removing unknown id should not fail: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("error closing store: %v", err)
	}

	s, err = ldb.Open(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("error reopening store: %v", err)
	}
	defer s.Close()

	entries, err := s.Entries()
	if err != nil {
		t.Fatalf("error listing entries: %v", err)
	}
	want := []roster.Entry{{Group: "Work", Members: []string{"bob", "carol"}}}
	if !reflect.DeepEqual(entries, want) {
		t.Errorf("wrong entries:\nwant=%+v\ngot=%+v", want, entries)
	}

	r := roster.New()
	if err := r.Load(s); err != nil {
		t.Fatalf("error loading roster: %v", err)
	}
	if want := []string{"bob", "carol"}; !reflect.DeepEqual(r.IDs(), want) {
		t.Errorf("wrong roster after load: want=%v, got=%v", want, r.IDs())
	}
}
