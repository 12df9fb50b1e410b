// File: internal/httpserve/conn.go
// Author: yoyo-hu
//
// Concrete api.HTTPConn: per-socket HTTP/1.1 read/parse/process/write
// state machine. Grounded on the original WebServer/HttpConn split (read
// into a buffer, parse a request line, decide keep-alive from the
// version and Connection header) but expressed as buffer-owning Go
// methods instead of a shared readBuff_/writeBuff_ pair of Buffer
// objects.

package httpserve

import (
	"errors"
	"net"

	"golang.org/x/sys/unix"

	"github.com/yoyo-hu/webserver/api"
	"github.com/yoyo-hu/webserver/internal/bufpool"
)

// Conn is one HTTP/1.1 connection's read/parse/process/write state.
type Conn struct {
	fd       int
	peer     net.Addr
	resolver api.StaticResolver
	sqlPool  api.SQLPool
	control  api.Control
	log      api.Logger

	readBuf  *[]byte
	writeBuf *[]byte
	writeOff int

	keepAlive bool
	closed    bool
}

var _ api.HTTPConn = (*Conn)(nil)

// New constructs a Conn bound to resolver for static routes, pool for
// /api/ routes and control for /debug/metrics. pool and control may be
// nil, in which case their routes answer 503/404 respectively.
func New(resolver api.StaticResolver, pool api.SQLPool, control api.Control, log api.Logger) *Conn {
	return &Conn{resolver: resolver, sqlPool: pool, control: control, log: log}
}

// Init resets c for reuse against fd/addr, acquiring fresh pooled buffers.
func (c *Conn) Init(fd int, addr net.Addr) {
	c.fd = fd
	c.peer = addr
	c.readBuf = bufpool.Get()
	c.writeBuf = bufpool.Get()
	c.writeOff = 0
	c.keepAlive = true
	c.closed = false
}

// Fd returns the underlying descriptor.
func (c *Conn) Fd() int { return c.fd }

// IsKeepAlive reports whether the most recently parsed request asked to
// keep the connection open.
func (c *Conn) IsKeepAlive() bool { return c.keepAlive }

// ToWriteBytes reports unwritten response bytes remaining.
func (c *Conn) ToWriteBytes() int {
	return len(*c.writeBuf) - c.writeOff
}

const readChunkBytes = 4096

// Read drains the socket into the read buffer until EAGAIN, EOF or a
// read shorter than one chunk. It fails with errRequestTooLarge once the
// read buffer holds bufpool.MaxBufferBytes.
func (c *Conn) Read() (int, error) {
	total := 0
	for {
		if len(*c.readBuf) >= bufpool.MaxBufferBytes {
			return total, errRequestTooLarge
		}
		bufpool.Grow(c.readBuf, readChunkBytes)
		l := len(*c.readBuf)
		tail := (*c.readBuf)[l:l:cap(*c.readBuf)][:readChunkBytes]
		n, err := unix.Read(c.fd, tail)
		if n > 0 {
			*c.readBuf = (*c.readBuf)[:l+n]
			total += n
		}
		if err != nil {
			if err == unix.EAGAIN {
				return total, nil
			}
			return total, err
		}
		if n == 0 {
			return total, errPeerClosed
		}
		if n < readChunkBytes {
			// Short read on a non-blocking socket: no more data queued
			// right now, whether LT or ET.
			return total, nil
		}
	}
}

var (
	errPeerClosed      = errors.New("httpserve: peer closed connection")
	errRequestTooLarge = errors.New("httpserve: request exceeds buffer cap")
)

// Write drains the write buffer to the socket until EAGAIN or empty.
func (c *Conn) Write() (int, error) {
	total := 0
	for c.writeOff < len(*c.writeBuf) {
		n, err := unix.Write(c.fd, (*c.writeBuf)[c.writeOff:])
		if n > 0 {
			c.writeOff += n
			total += n
		}
		if err != nil {
			if err == unix.EAGAIN {
				return total, nil
			}
			return total, err
		}
	}
	return total, nil
}

// Process consumes buffered request bytes and produces a response. It
// returns true once a full response sits in the write buffer.
func (c *Conn) Process() bool {
	req, consumed, ok := parseRequest(*c.readBuf)
	if !ok {
		return false // need more bytes
	}
	*c.readBuf = (*c.readBuf)[:copy(*c.readBuf, (*c.readBuf)[consumed:])]

	c.keepAlive = req.KeepAlive

	*c.writeBuf = (*c.writeBuf)[:0]
	c.writeOff = 0
	resp := route(req, c.resolver, c.sqlPool, c.control, c.log)
	*c.writeBuf = resp.Bytes(*c.writeBuf, c.keepAlive)
	return true
}

// Close releases the connection's pooled buffers. Idempotent.
func (c *Conn) Close() {
	if c.closed {
		return
	}
	c.closed = true
	if c.readBuf != nil {
		bufpool.Put(c.readBuf)
		c.readBuf = nil
	}
	if c.writeBuf != nil {
		bufpool.Put(c.writeBuf)
		c.writeBuf = nil
	}
}
