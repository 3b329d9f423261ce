package relay

import (
	"net"
	"sync"

	"github.com/caesar-transfer/caesar-transfer/internal/codec"
)

type readState int

const (
	stateReadSize readState = iota
	stateReadMessage
)

// peerConnState tracks spec.md §4.4's per-connection state machine:
//
//	Connecting -> AwaitingJoin -> Joined(role, name) -> (Paired -> Forwarding)* -> Closed
type peerConnState int

const (
	connAwaitingJoin peerConnState = iota
	connJoined
	connClosed
)

// peer is the relay's bookkeeping for one accepted connection,
// generalizing the teacher's agent-tcp Peer (read state machine) and
// TCPPeer (per-connection send queue) into a single struct since the
// relay has no consensus state to track.
type peer struct {
	conn *net.TCPConn
	svc  *Service

	readState readState

	mu    sync.Mutex
	state peerConnState
	role  codec.Role
	name  string
	room  *Room
	out   *sink

	// readyCh is closed once setJoined assigns out (or the peer is torn
	// down before ever joining), unblocking writerLoop either way.
	readyCh   chan struct{}
	readyOnce sync.Once
	closeOnce sync.Once
}

func newPeer(conn *net.TCPConn, svc *Service) *peer {
	return &peer{
		conn:      conn,
		svc:       svc,
		readState: stateReadSize,
		state:     connAwaitingJoin,
		readyCh:   make(chan struct{}),
	}
}

func (p *peer) setJoined(role codec.Role, name string, room *Room, out *sink) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.role = role
	p.name = name
	p.room = room
	p.out = out
	p.state = connJoined
	p.readyOnce.Do(func() { close(p.readyCh) })
}

func (p *peer) snapshot() (peerConnState, codec.Role, string, *Room, *sink) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state, p.role, p.name, p.room, p.out
}

// close tears down the connection, the room (if joined), and the
// outbound writer goroutine. Idempotent per spec.md §8 property 5.
func (p *peer) close() {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.state = connClosed
		room, role, out := p.room, p.role, p.out
		p.mu.Unlock()

		p.readyOnce.Do(func() { close(p.readyCh) })

		if room != nil {
			p.svc.registry.Leave(room, role)
		}
		if out != nil {
			out.closeSink()
		}
		p.svc.watcher.Free(p.conn)
		p.conn.Close()
	})
}
