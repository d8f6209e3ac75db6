// Package server implements connection lifecycle: buffered framed I/O
// over a TCP socket, the per-connection command loop and subscription
// sub-loop, one-shot shutdown signaling, and the accept loop that ties
// them together.
//
// Grounded on websocket/conn.go's buffered-reader-plus-writer shape
// (minus RFC 6455 framing, which this protocol has no use for) and
// websocket/hub.go's done-channel-plus-WaitGroup shutdown idiom.
package server

import (
	"bufio"
	"errors"
	"io"
	"net"

	"github.com/coregx/respkv/resp"
)

const initialReadBufferSize = 4096

// Connection wraps one accepted socket with RESP framing. It owns an
// internal buffer of bytes read but not yet consumed by a frame;
// ReadFrame grows it as needed. Writes go through a buffered writer
// that WriteFrame flushes on every call, since replies in this server
// are always a single frame.
type Connection struct {
	conn net.Conn
	w    *bufio.Writer
	buf  []byte // unconsumed bytes, always starts at index 0
}

// NewConnection wraps conn for RESP framing.
func NewConnection(conn net.Conn) *Connection {
	return &Connection{
		conn: conn,
		w:    bufio.NewWriter(conn),
		buf:  make([]byte, 0, initialReadBufferSize),
	}
}

// RemoteAddr returns the underlying socket's remote address.
func (c *Connection) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

// Close closes the underlying socket.
func (c *Connection) Close() error { return c.conn.Close() }

// ReadFrame reads and decodes the next frame, blocking until a full
// frame has arrived, the peer closes the socket, or a read error
// occurs. A clean close with nothing buffered yields ErrEndOfStream; a
// close with a partial frame still buffered yields ErrConnectionReset.
func (c *Connection) ReadFrame() (resp.Frame, error) {
	for {
		n, err := resp.Check(c.buf)
		if err == nil {
			f, consumed, perr := resp.Parse(c.buf[:n])
			if perr != nil {
				return resp.Frame{}, perr
			}
			c.consume(consumed)
			return f, nil
		}
		if !errors.Is(err, resp.ErrIncomplete) {
			return resp.Frame{}, err
		}

		if err := c.fill(); err != nil {
			return resp.Frame{}, err
		}
	}
}

// fill reads more bytes from the socket into buf. It translates a
// clean EOF into ErrEndOfStream or ErrConnectionReset depending on
// whether a partial frame is still buffered.
func (c *Connection) fill() error {
	chunk := make([]byte, initialReadBufferSize)
	n, err := c.conn.Read(chunk)
	if n > 0 {
		c.buf = append(c.buf, chunk[:n]...)
	}
	if err != nil {
		if errors.Is(err, io.EOF) {
			if len(c.buf) == 0 {
				return ErrEndOfStream
			}
			return ErrConnectionReset
		}
		return err
	}
	return nil
}

// consume drops the first n bytes of buf, which a prior Check/Parse
// pair has already decoded into a frame.
func (c *Connection) consume(n int) {
	remaining := copy(c.buf, c.buf[n:])
	c.buf = c.buf[:remaining]
}

// WriteFrame encodes f and flushes it to the socket immediately. RESP
// replies in this server are always flat arrays (depth <= 1): Write
// handles deeper nesting correctly, but nothing here produces it.
func (c *Connection) WriteFrame(f resp.Frame) error {
	if err := resp.Write(c.w, f); err != nil {
		return err
	}
	return c.w.Flush()
}
