// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package roster

import (
	"sort"
	"sync"
)

// Store persists the contact list between sessions.
type Store interface {
	// FindOrCreate records that id is a member of group.
	FindOrCreate(id, group string) error
	// Remove deletes id from the store.
	// Removing an unknown id is not an error.
	Remove(id string) error
	// Entries returns every group and its members.
	Entries() ([]Entry, error)
}

// Load adds every friend in s to the roster.
func (r *Roster) Load(s Store) error {
	entries, err := s.Entries()
	if err != nil {
		return err
	}
	for _, e := range entries {
		for _, m := range e.Members {
			f, _ := r.FindOrCreate(m)
			f.Group = e.Group
		}
	}
	return nil
}

// MemStore is an in-memory Store.
// The zero value is ready for use and it is safe for concurrent use.
type MemStore struct {
	mu     sync.Mutex
	groups map[string]string
}

// FindOrCreate implements Store.
func (s *MemStore) FindOrCreate(id, group string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.groups == nil {
		s.groups = make(map[string]string)
	}
	s.groups[Normalize(id)] = group
	return nil
}

// Remove implements Store.
func (s *MemStore) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.groups, Normalize(id))
	return nil
}

// Entries implements Store.
// Groups and members are sorted.
func (s *MemStore) Entries() ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return groupEntries(s.groups), nil
}

func groupEntries(groups map[string]string) []Entry {
	byGroup := make(map[string][]string)
	for id, g := range groups {
		byGroup[g] = append(byGroup[g], id)
	}
	names := make([]string, 0, len(byGroup))
	for g := range byGroup {
		names = append(names, g)
	}
	sort.Strings(names)
	entries := make([]Entry, 0, len(names))
	for _, g := range names {
		members := byGroup[g]
		sort.Strings(members)
		entries = append(entries, Entry{Group: g, Members: members})
	}
	return entries
}

// GroupEntries converts a map of id to group into sorted entries.
// It is provided for Store implementations.
func GroupEntries(groups map[string]string) []Entry {
	return groupEntries(groups)
}
