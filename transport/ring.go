// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package transport

// ring is a growable circular byte queue used to hold outgoing data that has
// not yet been accepted by the socket.
type ring struct {
	buf  []byte
	head int
	n    int
}

func (r *ring) Len() int {
	return r.n
}

// Write appends b to the queue, growing it if needed.
func (r *ring) Write(b []byte) {
	if len(b) == 0 {
		return
	}
	if r.n+len(b) > len(r.buf) {
		r.grow(r.n + len(b))
	}
	tail := (r.head + r.n) % len(r.buf)
	c := copy(r.buf[tail:], b)
	if c < len(b) {
		copy(r.buf, b[c:])
	}
	r.n += len(b)
}

// Peek returns the longest contiguous run of queued bytes without removing
// them.
func (r *ring) Peek() []byte {
	if r.n == 0 {
		return nil
	}
	end := r.head + r.n
	if end > len(r.buf) {
		end = len(r.buf)
	}
	return r.buf[r.head:end]
}

// Discard removes n bytes from the front of the queue.
func (r *ring) Discard(n int) {
	if n > r.n {
		n = r.n
	}
	r.n -= n
	if r.n == 0 {
		r.head = 0
		return
	}
	r.head = (r.head + n) % len(r.buf)
}

func (r *ring) grow(min int) {
	size := 2 * len(r.buf)
	if size < 512 {
		size = 512
	}
	for size < min {
		size *= 2
	}
	buf := make([]byte, size)
	if r.n > 0 {
		first := r.Peek()
		c := copy(buf, first)
		if c < r.n {
			copy(buf[c:], r.buf[:r.n-c])
		}
	}
	r.buf = buf
	r.head = 0
}
