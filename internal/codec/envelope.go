package codec

// Every frame exchanged between a peer and the relay carries a 1-byte
// envelope kind ahead of its body, so the relay (and the session code
// sitting on the other end of that same connection) can tell a
// textual control message apart from an opaque forwarded payload
// without inspecting the bytes (spec.md §6.1: "Each frame is either a
// control message (textual, tagged) or an opaque forwarding payload
// (binary)"). This envelope never leaves the peer<->relay hop: once
// two peers are paired, the Payload bytes they forward are exactly
// the Packet frames of §6.2, untouched by the relay.
const (
	EnvelopeControl byte = 0
	EnvelopePayload byte = 1
)

// WrapControl prefixes a textual control message with the control
// envelope byte.
func WrapControl(body []byte) []byte {
	return append([]byte{EnvelopeControl}, body...)
}

// WrapPayload prefixes an opaque peer packet with the payload
// envelope byte.
func WrapPayload(body []byte) []byte {
	return append([]byte{EnvelopePayload}, body...)
}

// UnwrapEnvelope splits a relay frame into its kind byte and body.
func UnwrapEnvelope(frame []byte) (kind byte, body []byte, err error) {
	if len(frame) < 1 {
		return 0, nil, ErrMalformedFrame
	}
	return frame[0], frame[1:], nil
}
