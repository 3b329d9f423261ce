package session

import "errors"

// Sentinel errors for the remaining spec.md §7 taxonomy entries not
// already owned by internal/codec or internal/crypto.
var (
	// Relay control, surfaced when the relay's JoinAck carries a
	// non-ok status.
	ErrNameInUse      = errors.New("session: name in use")
	ErrNoSuchTransfer = errors.New("session: no such transfer")
	ErrAlreadyPaired  = errors.New("session: already paired")
	ErrBadRequest     = errors.New("session: bad request")

	// Protocol.
	ErrUnknownVersion  = errors.New("session: unknown protocol version")
	ErrNonceReuse      = errors.New("session: nonce reuse detected")
	ErrOutOfOrderChunk = errors.New("session: chunk received out of order")

	// Filesystem.
	ErrDestinationConflict = errors.New("session: destination file already exists")
	ErrWriteFailed         = errors.New("session: write failed")
	ErrSizeMismatch        = errors.New("session: written size does not match announced size")
	ErrHashMismatch        = errors.New("session: file hash does not match")

	// Policy.
	ErrListTooLarge = errors.New("session: announced transfer exceeds configured ceiling")

	// ErrAborted is returned when the peer sent an explicit Abort packet.
	ErrAborted = errors.New("session: peer aborted the transfer")

	// ErrRejected is returned to a sender when the receiver declines the
	// file list.
	ErrRejected = errors.New("session: receiver rejected the file list")
)
