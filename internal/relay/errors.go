package relay

import "errors"

// Relay control errors, spec.md §7 "Relay control" taxonomy.
var (
	ErrNameInUse      = errors.New("relay: name in use")
	ErrNoSuchTransfer = errors.New("relay: no such transfer")
	ErrAlreadyPaired  = errors.New("relay: already paired")
	ErrBadRequest     = errors.New("relay: bad request")

	// ErrRoomClosed is returned by Forward when the room is not paired
	// (not yet, or already torn down) and by a sink's put once it is closed.
	ErrRoomClosed = errors.New("relay: room closed")

	// ErrServiceClosed is returned once the relay service has shut down.
	ErrServiceClosed = errors.New("relay: service closed")
)
