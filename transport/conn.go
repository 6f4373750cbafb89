// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package transport turns a byte stream into a sequence of YMSG packets.
//
// The same transport is used for the connection to the pager server and for
// direct peer-to-peer links.
package transport // import "mellium.im/ymsg/transport"

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"syscall"
	"time"

	"github.com/oxtoacart/bpool"
	"github.com/rs/zerolog"

	"mellium.im/ymsg/packet"
)

const (
	readChunk     = 4096
	retryInterval = 100 * time.Millisecond
)

var defaultPool = bpool.NewBytePool(64, readChunk)

// ErrWouldBlock is returned by Flush when the socket did not accept all queued
// data before the write timeout.
// The remaining data stays queued and is sent by the next call to Flush.
var ErrWouldBlock = errors.New("transport: write would block")

// Error is a terminal I/O error on a connection.
// Once a Conn has returned an Error it is unusable.
type Error struct {
	Op string

	// Remote is true if the connection was closed by the other side and false
	// if the error happened locally.
	Remote bool
	Err    error
}

func (e *Error) Error() string {
	if e.Remote {
		return fmt.Sprintf("transport: %s: connection closed by remote: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("transport: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// newError classifies err as a remote close unless Close was called locally.
func (c *Conn) newError(op string, err error) *Error {
	select {
	case <-c.closed:
		return &Error{Op: op, Err: err}
	default:
	}
	remote := errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE)
	return &Error{Op: op, Remote: remote, Err: err}
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

type writeDeadliner interface {
	SetWriteDeadline(time.Time) error
}

// Option configures a Conn.
type Option func(*Conn)

// Logger sets the logger used to report framing problems.
// By default nothing is logged.
func Logger(l zerolog.Logger) Option {
	return func(c *Conn) {
		c.log = l
	}
}

// WriteTimeout bounds how long a single flush from the write loop may block.
// The default is one second.
func WriteTimeout(d time.Duration) Option {
	return func(c *Conn) {
		c.writeTimeout = d
	}
}

// Pool sets the pool that read buffers are borrowed from.
// Connections share a package level pool by default.
func Pool(p *bpool.BytePool) Option {
	return func(c *Conn) {
		c.pool = p
	}
}

// Conn reads and writes packets on an underlying connection.
//
// ReadPacket must only be called from one goroutine at a time.
// WritePacket and Flush are safe for concurrent use.
type Conn struct {
	rwc  io.ReadWriteCloser
	log  zerolog.Logger
	pool *bpool.BytePool

	framer Framer
	rerr   error

	wmu          sync.Mutex
	out          ring
	scratch      []byte
	werr         error
	looping      bool
	writeTimeout time.Duration
	kick         chan struct{}

	closeOnce sync.Once
	closed    chan struct{}
	closeErr  error
}

// New returns a Conn that reads and writes packets on rwc.
func New(rwc io.ReadWriteCloser, opts ...Option) *Conn {
	c := &Conn{
		rwc:          rwc,
		log:          zerolog.Nop(),
		pool:         defaultPool,
		writeTimeout: time.Second,
		kick:         make(chan struct{}, 1),
		closed:       make(chan struct{}),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ReadPacket blocks until a complete packet has been received.
// Any error returned is an *Error and is permanent.
func (c *Conn) ReadPacket() (packet.Packet, error) {
	for {
		skipped := c.framer.Skipped
		p, ok := c.framer.Next()
		if n := c.framer.Skipped - skipped; n > 0 {
			c.log.Warn().Int("bytes", n).Msg("dropped bytes while resynchronizing stream")
		}
		if ok {
			return p, nil
		}
		if c.rerr != nil {
			return packet.Packet{}, c.rerr
		}

		buf := c.pool.Get()
		n, err := c.rwc.Read(buf)
		c.framer.Feed(buf[:n])
		c.pool.Put(buf)
		switch {
		case err != nil:
			c.rerr = c.newError("read", err)
		case n == 0:
			c.rerr = &Error{Op: "read", Remote: true, Err: io.ErrUnexpectedEOF}
		}
	}
}

// WritePacket serializes p and queues it for writing.
// If the write loop is running (see Run) WritePacket does not block on the
// network, otherwise the packet is written before WritePacket returns.
func (c *Conn) WritePacket(p packet.Packet) error {
	c.wmu.Lock()
	if c.werr != nil {
		c.wmu.Unlock()
		return c.werr
	}
	b, err := packet.Append(c.scratch[:0], p)
	if err != nil {
		c.wmu.Unlock()
		return err
	}
	c.scratch = b
	c.out.Write(b)
	looping := c.looping
	if !looping {
		err = c.flushLocked(false)
	}
	c.wmu.Unlock()

	if looping {
		select {
		case c.kick <- struct{}{}:
		default:
		}
	}
	return err
}

// Pending returns the number of bytes queued but not yet written.
func (c *Conn) Pending() int {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return c.out.Len()
}

// Flush writes as much queued data as the connection accepts before the write
// timeout.
// If data remains queued ErrWouldBlock is returned and Flush should be called
// again once the connection is writable.
func (c *Conn) Flush() error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return c.flushLocked(true)
}

func (c *Conn) flushLocked(bounded bool) error {
	if c.werr != nil {
		return c.werr
	}
	if c.out.Len() == 0 {
		return nil
	}
	d, canDeadline := c.rwc.(writeDeadliner)
	if bounded && canDeadline && c.writeTimeout > 0 {
		/* #nosec */
		d.SetWriteDeadline(time.Now().Add(c.writeTimeout))
		/* #nosec */
		defer d.SetWriteDeadline(time.Time{})
	}
	for c.out.Len() > 0 {
		n, err := c.rwc.Write(c.out.Peek())
		c.out.Discard(n)
		if err != nil {
			if isTimeout(err) {
				return ErrWouldBlock
			}
			c.werr = c.newError("write", err)
			return c.werr
		}
	}
	return nil
}

// Run is the write loop.
// While it runs WritePacket only queues data and Run flushes it, retrying
// partial writes until they complete.
// Run returns when ctx is canceled, the connection is closed, or a write fails.
func (c *Conn) Run(ctx context.Context) error {
	c.wmu.Lock()
	c.looping = true
	c.wmu.Unlock()
	defer func() {
		c.wmu.Lock()
		c.looping = false
		c.wmu.Unlock()
	}()

	for {
		var retry <-chan time.Time
		err := c.Flush()
		switch {
		case errors.Is(err, ErrWouldBlock):
			retry = time.After(retryInterval)
		case err != nil:
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.closed:
			return nil
		case <-c.kick:
		case <-retry:
		}
	}
}

// Close closes the underlying connection.
// Calling Close more than once has no effect.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.closeErr = c.rwc.Close()
	})
	return c.closeErr
}

// Done returns a channel that is closed when Close is called.
func (c *Conn) Done() <-chan struct{} {
	return c.closed
}
