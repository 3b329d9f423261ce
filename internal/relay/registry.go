package relay

import (
	"sync"

	"github.com/caesar-transfer/caesar-transfer/internal/codec"
)

// RoomState mirrors spec.md §3 Room lifecycle.
type RoomState int

const (
	StatePendingReceiver RoomState = iota
	StatePaired
	StateClosed
)

// Room is the relay-side state for one pending or paired transfer
// (spec.md §3). The registry owns rooms; callers interact with a Room
// only through Registry methods, which hold the necessary locks.
type Room struct {
	mu sync.Mutex

	name  string
	state RoomState

	senderSink   *sink
	receiverSink *sink
}

func (r *Room) Name() string {
	return r.name
}

func (r *Room) State() RoomState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Registry holds the name -> Room mapping for all in-flight transfers
// (spec.md §4.3), generalized from the teacher's single-mutex shared
// map pattern (agentImpl.consensusMu guarding agent state).
type Registry struct {
	mu     sync.Mutex
	rooms  map[string]*Room
	closed bool
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*Room)}
}

// Shutdown tears every room down (closing both sides' sinks so their
// drain loops unblock) and marks the registry closed, failing any Join
// that arrives afterward with ErrServiceClosed. Called once from
// Service.Close.
func (reg *Registry) Shutdown() {
	reg.mu.Lock()
	if reg.closed {
		reg.mu.Unlock()
		return
	}
	reg.closed = true
	rooms := make([]*Room, 0, len(reg.rooms))
	for _, r := range reg.rooms {
		rooms = append(rooms, r)
	}
	reg.rooms = make(map[string]*Room)
	reg.mu.Unlock()

	for _, room := range rooms {
		room.mu.Lock()
		room.state = StateClosed
		senderSink, receiverSink := room.senderSink, room.receiverSink
		room.mu.Unlock()

		if senderSink != nil {
			senderSink.closeSink()
		}
		if receiverSink != nil {
			receiverSink.closeSink()
		}
	}
}

// Join attaches a peer to a room by transfer name and role. A Sender
// creates the room if the name is free; a Receiver attaches to an
// existing PendingReceiver room. See spec.md §4.3 for the exact
// fail-fast semantics.
func (reg *Registry) Join(name string, role codec.Role) (*Room, *sink, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if reg.closed {
		return nil, nil, ErrServiceClosed
	}

	room, exists := reg.rooms[name]

	switch role {
	case codec.RoleSender:
		if exists {
			return nil, nil, ErrNameInUse
		}
		room = &Room{name: name, state: StatePendingReceiver}
		room.senderSink = newSink()
		reg.rooms[name] = room
		return room, room.senderSink, nil

	case codec.RoleReceiver:
		if !exists {
			return nil, nil, ErrNoSuchTransfer
		}
		room.mu.Lock()
		defer room.mu.Unlock()
		switch room.state {
		case StatePaired:
			return nil, nil, ErrAlreadyPaired
		case StateClosed:
			return nil, nil, ErrNoSuchTransfer
		}
		room.receiverSink = newSink()
		room.state = StatePaired
		return room, room.receiverSink, nil

	default:
		return nil, nil, ErrBadRequest
	}
}

// Forward writes payload to the opposite peer's sink without holding
// the registry lock (spec.md §4.3, §5). Best-effort: if the room has
// already been torn down, ErrRoomClosed is returned.
func (reg *Registry) Forward(room *Room, from codec.Role, payload []byte) error {
	room.mu.Lock()
	state := room.state
	var dst *sink
	switch from {
	case codec.RoleSender:
		dst = room.receiverSink
	case codec.RoleReceiver:
		dst = room.senderSink
	}
	room.mu.Unlock()

	if state != StatePaired || dst == nil {
		return ErrRoomClosed
	}
	return dst.put(payload)
}

// Leave drops the role's sink and tears down the room, closing the
// partner's sink so its drain loop observes the disconnect (spec.md
// §4.3, §4.4 "Closed").
func (reg *Registry) Leave(room *Room, role codec.Role) {
	room.mu.Lock()
	if room.state == StateClosed {
		room.mu.Unlock()
		return
	}
	room.state = StateClosed
	senderSink, receiverSink := room.senderSink, room.receiverSink
	room.mu.Unlock()

	if senderSink != nil {
		senderSink.closeSink()
	}
	if receiverSink != nil {
		receiverSink.closeSink()
	}

	reg.mu.Lock()
	if reg.rooms[room.name] == room {
		delete(reg.rooms, room.name)
	}
	reg.mu.Unlock()
}

// Rooms returns a point-in-time snapshot of active rooms, used by the
// diagnostics table.
func (reg *Registry) Rooms() []*Room {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	out := make([]*Room, 0, len(reg.rooms))
	for _, r := range reg.rooms {
		out = append(out, r)
	}
	return out
}
