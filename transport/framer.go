// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package transport

import (
	"errors"

	"mellium.im/ymsg/packet"
)

// Framer carves complete packets out of a byte stream.
// Bytes are appended with Feed as they arrive and packets are removed with
// Next until it reports that more data is needed.
//
// The zero value is an empty Framer ready for use.
type Framer struct {
	buf []byte

	// Skipped counts the bytes dropped while resynchronizing.
	Skipped int
}

// Feed appends b to the receive buffer.
func (f *Framer) Feed(b []byte) {
	f.buf = append(f.buf, b...)
}

// Buffered returns the number of bytes waiting to be decoded.
func (f *Framer) Buffered() int {
	return len(f.buf)
}

// Next decodes the next complete packet in the buffer.
// If the buffer does not begin with a packet, bytes are discarded until it
// does.
// If no complete packet is available ok is false.
func (f *Framer) Next() (p packet.Packet, ok bool) {
	for {
		p, n, err := packet.Decode(f.buf)
		var fErr *packet.FramingError
		switch {
		case err == nil:
			f.consume(n)
			return p, true
		case errors.As(err, &fErr):
			f.Skipped += fErr.Skip
			f.consume(fErr.Skip)
		default:
			return p, false
		}
	}
}

// consume drops n bytes from the front of the buffer, compacting it so that
// the backing array does not grow without bound on long lived connections.
func (f *Framer) consume(n int) {
	rest := len(f.buf) - n
	if rest == 0 {
		f.buf = f.buf[:0]
		return
	}
	copy(f.buf, f.buf[n:])
	f.buf = f.buf[:rest]
}
