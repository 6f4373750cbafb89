// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package packet implements the YMSG wire format.
//
// A YMSG packet is a fixed 20 byte header followed by a body of key/value
// pairs:
//
//     "YMSG" | version (2) | vendor (2) | body length (2) |
//     service (2) | status (4) | session id (4) | body
//
// All multi-byte integers are in network byte order.
// The body is a flat list of tokens, each followed by the two byte separator
// 0xC0 0x80, alternating between a decimal key and its value.
// Keys are not unique and their order is significant, so fields are kept as an
// ordered list and never as a map.
package packet // import "mellium.im/ymsg/packet"

import (
	"strconv"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Version16 is the protocol version sent in the header of outgoing packets.
const Version16 uint16 = 0x0010

// A Field is a single key/value pair from a packet body.
// Values are byte strings and are not guaranteed to be valid UTF-8.
type Field struct {
	Key   int
	Value string
}

// Packet is a decoded YMSG message.
type Packet struct {
	Version uint16
	Vendor  uint16
	Service Service
	Status  Status
	ID      uint32
	Fields  []Field
}

// New returns a packet for the given service with the current protocol
// version set.
func New(service Service, status Status, id uint32) Packet {
	return Packet{
		Version: Version16,
		Service: service,
		Status:  status,
		ID:      id,
	}
}

// Add appends a field to the packet.
// Add returns the packet so that calls may be chained.
func (p *Packet) Add(key int, value string) *Packet {
	p.Fields = append(p.Fields, Field{Key: key, Value: value})
	return p
}

// AddInt appends a field with a decimal value to the packet.
func (p *Packet) AddInt(key int, value int64) *Packet {
	return p.Add(key, strconv.FormatInt(value, 10))
}

// Lookup returns the raw value of the first field with the given key.
func (p Packet) Lookup(key int) (string, bool) {
	for _, f := range p.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

// Get returns the raw value of the first field with the given key or the empty
// string if no such field exists.
func (p Packet) Get(key int) string {
	v, _ := p.Lookup(key)
	return v
}

// Has reports whether the packet contains at least one field with key.
func (p Packet) Has(key int) bool {
	_, ok := p.Lookup(key)
	return ok
}

// All returns the raw values of every field with the given key in the order in
// which they appear.
func (p Packet) All(key int) []string {
	var values []string
	for _, f := range p.Fields {
		if f.Key == key {
			values = append(values, f.Value)
		}
	}
	return values
}

// Int parses the first field with the given key as a decimal integer.
// If the field does not exist or is not a number, ok is false.
func (p Packet) Int(key int) (n int, ok bool) {
	v, found := p.Lookup(key)
	if !found {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Text returns the value of the first field with the given key as UTF-8 text.
// See ToText for details.
func (p Packet) Text(key int) string {
	return ToText(p.Get(key))
}

// ToText returns v unchanged if it is valid UTF-8.
// Otherwise v was most likely sent by an older client using a legacy code page
// and it is decoded as Windows-1252 (a superset of Latin-1).
func ToText(v string) string {
	if utf8.ValidString(v) {
		return v
	}
	s, err := charmap.Windows1252.NewDecoder().String(v)
	if err != nil {
		return string([]rune(v))
	}
	return s
}
