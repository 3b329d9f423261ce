// Copyright (c) 2026 Caesar Transfer
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies of
// the Software, and to permit persons to whom the Software is furnished to do so,
// subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY, FITNESS
// FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR
// COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
// IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
// CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.

package relay

import (
	"encoding/binary"
	"io"
	"log"
	"net"
	"sync"
	"time"

	"github.com/caesar-transfer/caesar-transfer/internal/codec"
	"github.com/xtaci/gaio"
)

const (
	// lengthPrefixSize matches internal/transport's framing so a packet
	// capture looks identical regardless of which side wrote it.
	lengthPrefixSize = 4
	maxFrameSize     = 16 << 20

	defaultReadTimeout = 60 * time.Second
	// joinTimeout bounds AwaitingJoin, spec.md §5 "Join handshake: 10 s".
	joinTimeout = 10 * time.Second
)

// Service is the relay rendezvous server (spec.md §4.4), generalizing
// the teacher's agentImpl: one gaio.Watcher drives the read side of
// every accepted connection (accept loop + shared WaitIO dispatch
// loop, directly mirroring agent-tcp/agent.go's acceptor/readLoop
// pair); the write side for each peer is a small per-connection
// goroutine draining that peer's outbound sink with a plain
// conn.Write, mirroring agent-tcp/tcp_peer.go's sendLoop.
type Service struct {
	listener *net.TCPListener
	watcher  *gaio.Watcher
	registry *Registry
	logger   *log.Logger

	die     chan struct{}
	dieOnce sync.Once
}

// NewService starts a relay bound to listener. The caller owns
// listener's lifecycle up to this call; Service.Close takes it from
// there.
func NewService(listener *net.TCPListener, logger *log.Logger) (*Service, error) {
	watcher, err := gaio.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Default()
	}

	svc := &Service{
		listener: listener,
		watcher:  watcher,
		registry: NewRegistry(),
		logger:   logger,
		die:      make(chan struct{}),
	}

	go svc.acceptLoop()
	go svc.readLoop()

	return svc, nil
}

// Registry exposes the room registry for diagnostics.
func (svc *Service) Registry() *Registry { return svc.registry }

// Close shuts the relay down: stops accepting, closes the watcher,
// and releases the listener.
func (svc *Service) Close() {
	svc.dieOnce.Do(func() {
		close(svc.die)
		svc.listener.Close()
		svc.watcher.Close()
		svc.registry.Shutdown()
	})
}

func (svc *Service) acceptLoop() {
	for {
		conn, err := svc.listener.AcceptTCP()
		if err != nil {
			return
		}
		p := newPeer(conn, svc)
		go svc.writerLoop(p)
		go svc.enforceJoinTimeout(p)

		if err := svc.watcher.ReadFull(p, conn, make([]byte, lengthPrefixSize), time.Now().Add(defaultReadTimeout)); err != nil {
			p.close()
		}
	}
}

// readLoop is the single shared dispatch loop processing every
// connection's read completions, exactly the agent.go pattern:
// stateReadSize reads a 4-byte length prefix, stateReadMessage reads
// the body it describes.
func (svc *Service) readLoop() {
	w := svc.watcher
	for {
		results, err := w.WaitIO()
		if err != nil {
			return
		}

		for _, res := range results {
			p, ok := res.Context.(*peer)
			if !ok || res.Operation != gaio.OpRead {
				continue
			}
			if res.Error != nil {
				if res.Error != io.EOF {
					svc.logger.Println("relay: read error:", res.Error)
				}
				p.close()
				continue
			}
			if res.Size <= 0 {
				continue
			}

			switch p.readState {
			case stateReadSize:
				length := binary.BigEndian.Uint32(res.Buffer[:res.Size])
				if length > maxFrameSize {
					svc.logger.Println("relay: oversized frame from", p.conn.RemoteAddr())
					p.close()
					continue
				}
				p.readState = stateReadMessage
				if length == 0 {
					svc.handleFrame(p, nil)
					p.readState = stateReadSize
					if err := w.ReadFull(p, res.Conn, make([]byte, lengthPrefixSize), time.Now().Add(defaultReadTimeout)); err != nil {
						p.close()
					}
					continue
				}
				if err := w.ReadFull(p, res.Conn, make([]byte, length), time.Now().Add(defaultReadTimeout)); err != nil {
					p.close()
				}

			case stateReadMessage:
				frame := make([]byte, res.Size)
				copy(frame, res.Buffer[:res.Size])
				svc.handleFrame(p, frame)

				p.readState = stateReadSize
				if err := w.ReadFull(p, res.Conn, make([]byte, lengthPrefixSize), time.Now().Add(defaultReadTimeout)); err != nil {
					p.close()
				}
			}
		}
	}
}

// handleFrame dispatches one fully-read relay frame according to the
// peer's current state (spec.md §4.4).
func (svc *Service) handleFrame(p *peer, frame []byte) {
	state, role, _, room, _ := p.snapshot()
	if state == connClosed {
		return
	}

	kind, body, err := codec.UnwrapEnvelope(frame)
	if err != nil {
		svc.logger.Println("relay: malformed envelope from", p.conn.RemoteAddr())
		p.close()
		return
	}

	if state == connAwaitingJoin {
		svc.handleJoin(p, kind, body)
		return
	}

	// Joined: a control Leave tears the room down; anything else is an
	// opaque payload forwarded verbatim (spec.md §4.4 "Forwarding").
	if kind == codec.EnvelopeControl {
		ctrl, err := codec.DecodeControl(body)
		if err == nil && ctrl.Kind == codec.KindLeave {
			if room != nil {
				leaveBody, encErr := codec.EncodeLeave()
				if encErr == nil {
					_ = svc.registry.Forward(room, role, codec.WrapControl(leaveBody))
				}
			}
			p.close()
			return
		}
		svc.logger.Println("relay: unexpected control frame from", p.conn.RemoteAddr())
		p.close()
		return
	}

	if err := svc.registry.Forward(room, role, body); err != nil {
		p.close()
		return
	}
}

func (svc *Service) handleJoin(p *peer, kind byte, body []byte) {
	if kind != codec.EnvelopeControl {
		p.close()
		return
	}
	ctrl, err := codec.DecodeControl(body)
	if err != nil || ctrl.Kind != codec.KindJoin {
		p.close()
		return
	}

	room, out, joinErr := svc.registry.Join(ctrl.Name, ctrl.Role)
	if joinErr != nil {
		status := joinStatus(joinErr)
		ack, _ := codec.EncodeJoinAck(status)
		svc.sendDirect(p, codec.WrapControl(ack))
		p.close()
		return
	}

	p.setJoined(ctrl.Role, ctrl.Name, room, out)
	ack, _ := codec.EncodeJoinAck(codec.StatusOK)
	if err := out.put(codec.WrapControl(ack)); err != nil {
		p.close()
		return
	}

	if ctrl.Role == codec.RoleReceiver {
		paired, _ := codec.EncodePaired()
		_ = svc.registry.Forward(room, codec.RoleReceiver, codec.WrapControl(paired))
	}

	svc.logger.Printf("relay: %s joined %q as %s", p.conn.RemoteAddr(), ctrl.Name, ctrl.Role)
}

func joinStatus(err error) string {
	switch err {
	case ErrNameInUse:
		return codec.StatusNameInUse
	case ErrAlreadyPaired:
		return codec.StatusAlreadyPaired
	case ErrServiceClosed:
		// No dedicated wire status for a mid-shutdown join: the relay is
		// going away either way, so the client sees the same outcome as
		// a transfer that was never there.
		return codec.StatusNoSuchTransfer
	default:
		return codec.StatusNoSuchTransfer
	}
}

// sendDirect writes one framed message straight to the connection,
// used only for a pre-join rejection where no writer goroutine/sink
// is running yet.
func (svc *Service) sendDirect(p *peer, frame []byte) {
	var prefix [lengthPrefixSize]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(frame)))
	p.conn.SetWriteDeadline(time.Now().Add(defaultReadTimeout))
	if _, err := p.conn.Write(prefix[:]); err != nil {
		return
	}
	p.conn.Write(frame)
}

// writerLoop drains a peer's outbound sink once it has joined,
// generalizing tcp_peer.go's sendLoop to this relay's framing.
func (svc *Service) writerLoop(p *peer) {
	select {
	case <-p.readyCh:
	case <-svc.die:
		return
	}

	_, _, _, _, out := p.snapshot()
	if out == nil {
		return
	}

	for {
		// Drain whatever is already queued before honoring done, so a
		// frame enqueued just ahead of a close (e.g. a forwarded Leave
		// right before the sender tears the room down) is never dropped.
		var frame []byte
		select {
		case frame = <-out.ch:
		default:
			select {
			case frame = <-out.ch:
			case <-out.done:
				p.close()
				return
			}
		}

		var prefix [lengthPrefixSize]byte
		binary.BigEndian.PutUint32(prefix[:], uint32(len(frame)))
		p.conn.SetWriteDeadline(time.Now().Add(defaultReadTimeout))
		if _, err := p.conn.Write(prefix[:]); err != nil {
			p.close()
			return
		}
		if len(frame) > 0 {
			if _, err := p.conn.Write(frame); err != nil {
				p.close()
				return
			}
		}
	}
}

func (svc *Service) enforceJoinTimeout(p *peer) {
	select {
	case <-time.After(joinTimeout):
		state, _, _, _, _ := p.snapshot()
		if state == connAwaitingJoin {
			p.close()
		}
	case <-svc.die:
	}
}
