package crypto

import "errors"

// Sentinel errors for the crypto engine (spec.md §7 "Crypto" taxonomy).
var (
	// ErrKeyMismatch is returned when the PAKE confirmation tags disagree,
	// meaning the two sides used different transfer names.
	ErrKeyMismatch = errors.New("crypto: key mismatch")
	// ErrDecryptFailed is returned when a chunk's AEAD tag fails to verify.
	ErrDecryptFailed = errors.New("crypto: decrypt failed")
	// ErrNotCompleted is returned by ConfirmationMAC/CheckConfirmation calls
	// made before Complete has derived a session key.
	ErrNotCompleted = errors.New("crypto: session key not yet derived")
	// ErrInvalidPeerPoint is returned when a peer's transmitted public
	// point is not a valid point on the curve.
	ErrInvalidPeerPoint = errors.New("crypto: invalid peer point")
)
