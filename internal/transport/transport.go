// Package transport provides the concrete realization of the
// specification's external "bidirectional message transport"
// collaborator (spec.md §1, §6.1): a length-prefixed framing over a
// net.Conn that delivers ordered, length-preserved binary messages and
// a close notification.
//
// This is lifted directly out of the teacher's
// agent-tcp/tcp_peer.go readLoop/sendLoop pair — there, framing lived
// inline inside TCPPeer; here it is pulled out into a standalone,
// reusable type so both the relay and the peer sessions share one
// implementation.
package transport

import (
	"encoding/binary"
	"errors"
	"io"
	"net"
	"sync"
	"time"
)

// Sentinel errors, spec.md §7 "Transport" taxonomy.
var (
	ErrConnectFailed  = errors.New("transport: connect failed")
	ErrTransportClosed = errors.New("transport: closed")
	ErrTimeout        = errors.New("transport: timeout")
	ErrFrameTooLarge  = errors.New("transport: frame exceeds maximum size")
)

// MaxFrameSize bounds any single message this transport will read,
// mirroring the wire codec's MaxFrameBytes ceiling.
const MaxFrameSize = 16 << 20

// lengthPrefixSize is the width of the frame length prefix.
const lengthPrefixSize = 4

// Conn is a length-prefixed message transport over a net.Conn.
// |u32 length (big-endian)|payload(length bytes)|, repeated.
type Conn struct {
	conn net.Conn

	writeMu sync.Mutex
}

// New wraps an established net.Conn as a framed message transport.
func New(conn net.Conn) *Conn {
	return &Conn{conn: conn}
}

// Dial connects to addr and wraps the resulting connection.
func Dial(network, addr string, timeout time.Duration) (*Conn, error) {
	conn, err := net.DialTimeout(network, addr, timeout)
	if err != nil {
		return nil, ErrConnectFailed
	}
	return New(conn), nil
}

// Send writes one framed message. Concurrent Sends are serialized so a
// writer goroutine never interleaves with itself.
func (c *Conn) Send(payload []byte) error {
	if len(payload) > MaxFrameSize {
		return ErrFrameTooLarge
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	var prefix [lengthPrefixSize]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(payload)))

	if _, err := c.conn.Write(prefix[:]); err != nil {
		return translateNetErr(err)
	}
	if len(payload) == 0 {
		return nil
	}
	if _, err := c.conn.Write(payload); err != nil {
		return translateNetErr(err)
	}
	return nil
}

// Recv blocks for the next framed message. It returns ErrTransportClosed
// on a clean close and ErrTimeout if deadline handling (SetReadDeadline)
// elapses first.
func (c *Conn) Recv() ([]byte, error) {
	var prefix [lengthPrefixSize]byte
	if _, err := io.ReadFull(c.conn, prefix[:]); err != nil {
		return nil, translateNetErr(err)
	}

	length := binary.BigEndian.Uint32(prefix[:])
	if length > MaxFrameSize {
		return nil, ErrFrameTooLarge
	}
	if length == 0 {
		return []byte{}, nil
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(c.conn, payload); err != nil {
		return nil, translateNetErr(err)
	}
	return payload, nil
}

// SetReadDeadline sets the deadline for the next Recv calls.
func (c *Conn) SetReadDeadline(t time.Time) error { return c.conn.SetReadDeadline(t) }

// SetWriteDeadline sets the deadline for the next Send calls.
func (c *Conn) SetWriteDeadline(t time.Time) error { return c.conn.SetWriteDeadline(t) }

// RemoteAddr returns the underlying connection's remote address.
func (c *Conn) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

// Close closes the underlying connection. A second Close has no further
// effect on the connection; it returns whatever error the underlying
// net.Conn reports for closing an already-closed connection.
func (c *Conn) Close() error { return c.conn.Close() }

func translateNetErr(err error) error {
	if err == nil {
		return nil
	}
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return ErrTransportClosed
	}
	if ne, ok := err.(net.Error); ok && ne.Timeout() {
		return ErrTimeout
	}
	return ErrTransportClosed
}
