// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package privacy decides which contacts may reach an account.
package privacy // import "mellium.im/ymsg/privacy"

import (
	"sort"
	"sync"

	"mellium.im/ymsg/roster"
)

// Checker reports whether peer may send messages, typing notifications, or
// authorization requests to account.
type Checker interface {
	Allowed(account, peer string) bool
}

// CheckerFunc is an adapter that lets an ordinary function be used as a
// Checker.
type CheckerFunc func(account, peer string) bool

// Allowed calls f(account, peer).
func (f CheckerFunc) Allowed(account, peer string) bool {
	return f(account, peer)
}

// AllowAll is a Checker that permits everyone.
var AllowAll Checker = CheckerFunc(func(string, string) bool { return true })

// Mode selects how a List treats contacts.
type Mode int

// A list of privacy modes.
const (
	// DenyListed permits everyone except denied contacts.
	DenyListed Mode = iota
	// AllowListed permits only permitted contacts.
	AllowListed
	// AllowEveryone permits all contacts regardless of the lists.
	AllowEveryone
	// DenyEveryone rejects all contacts regardless of the lists.
	DenyEveryone
)

// List is a Checker with a deny list and a permit list.
// The zero value uses DenyListed with empty lists and permits everyone.
// It is safe for concurrent use.
type List struct {
	mu     sync.Mutex
	mode   Mode
	deny   map[string]struct{}
	permit map[string]struct{}
}

// SetMode changes the mode of the list.
func (l *List) SetMode(m Mode) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.mode = m
}

// Deny adds ids to the deny list and removes them from the permit list.
func (l *List) Deny(ids ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.deny == nil {
		l.deny = make(map[string]struct{})
	}
	for _, id := range ids {
		id = roster.Normalize(id)
		l.deny[id] = struct{}{}
		delete(l.permit, id)
	}
}

// Permit adds ids to the permit list and removes them from the deny list.
func (l *List) Permit(ids ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.permit == nil {
		l.permit = make(map[string]struct{})
	}
	for _, id := range ids {
		id = roster.Normalize(id)
		l.permit[id] = struct{}{}
		delete(l.deny, id)
	}
}

// Remove removes ids from both lists.
func (l *List) Remove(ids ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, id := range ids {
		id = roster.Normalize(id)
		delete(l.deny, id)
		delete(l.permit, id)
	}
}

// Denied returns the deny list in sorted order.
func (l *List) Denied() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	ids := make([]string, 0, len(l.deny))
	for id := range l.deny {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Allowed implements Checker.
// The account is ignored since a List belongs to a single account.
func (l *List) Allowed(_, peer string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	peer = roster.Normalize(peer)
	switch l.mode {
	case AllowEveryone:
		return true
	case DenyEveryone:
		return false
	case AllowListed:
		_, ok := l.permit[peer]
		return ok
	}
	_, denied := l.deny[peer]
	return !denied
}
