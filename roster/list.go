// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package roster

import (
	"strings"
)

// Entry is a group from the server's contact list and its members.
type Entry struct {
	Group   string
	Members []string
}

// Iter is an iterator over the groups of a contact list blob.
//
// The blob has one group per line in the form "Group:member,member".
// Lines without a group separator are skipped.
type Iter struct {
	lines []string
	entry Entry
}

// NewIter returns an iterator over the given contact list.
func NewIter(blob string) *Iter {
	return &Iter{lines: strings.Split(blob, "\n")}
}

// Next returns true if there are more entries to decode.
func (i *Iter) Next() bool {
	for len(i.lines) > 0 {
		line := strings.TrimRight(i.lines[0], "\r")
		i.lines = i.lines[1:]

		group, members, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		e := Entry{Group: strings.TrimSpace(group)}
		for _, m := range strings.Split(members, ",") {
			m = strings.TrimSpace(m)
			if m != "" {
				e.Members = append(e.Members, m)
			}
		}
		i.entry = e
		return true
	}
	return false
}

// Entry returns the current entry.
func (i *Iter) Entry() Entry {
	return i.entry
}

// ParseList returns all entries in the contact list blob.
func ParseList(blob string) []Entry {
	var entries []Entry
	iter := NewIter(blob)
	for iter.Next() {
		entries = append(entries, iter.Entry())
	}
	return entries
}
