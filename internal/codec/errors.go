package codec

import "errors"

// Sentinel errors for the wire codec (spec.md §7 "Protocol" taxonomy).
var (
	// ErrMalformedFrame is returned when a type tag is unknown, a length
	// prefix exceeds MaxFrameBytes, or a required field is absent.
	ErrMalformedFrame = errors.New("codec: malformed frame")
	// ErrUnexpectedPacket is returned by callers that receive a
	// structurally valid packet of a type they did not expect at this
	// point in the protocol.
	ErrUnexpectedPacket = errors.New("codec: unexpected packet")
)
