package session

import (
	"github.com/caesar-transfer/caesar-transfer/internal/codec"
	"github.com/caesar-transfer/caesar-transfer/internal/transport"
)

// sendPacket wraps a peer packet in the payload envelope and writes it
// as one framed message (spec.md §6.1: "all further frames... are
// opaque forwarding payloads").
func sendPacket(conn *transport.Conn, pkt codec.Packet) error {
	return conn.Send(codec.WrapPayload(codec.Encode(pkt)))
}

// sendRaw wraps arbitrary bytes (the PAKE exchange, which predates any
// Packet-tagged message) in the payload envelope.
func sendRaw(conn *transport.Conn, body []byte) error {
	return conn.Send(codec.WrapPayload(body))
}

// recvPacket reads one framed message and decodes it as a peer packet.
func recvPacket(conn *transport.Conn) (codec.Packet, error) {
	frame, err := conn.Recv()
	if err != nil {
		return nil, err
	}
	kind, body, err := codec.UnwrapEnvelope(frame)
	if err != nil {
		return nil, err
	}
	if kind != codec.EnvelopePayload {
		return nil, codec.ErrUnexpectedPacket
	}
	return codec.Decode(body)
}

// recvRaw reads one framed payload message without decoding it as a
// Packet (used for the PAKE exchange).
func recvRaw(conn *transport.Conn) ([]byte, error) {
	frame, err := conn.Recv()
	if err != nil {
		return nil, err
	}
	kind, body, err := codec.UnwrapEnvelope(frame)
	if err != nil {
		return nil, err
	}
	if kind != codec.EnvelopePayload {
		return nil, codec.ErrUnexpectedPacket
	}
	return body, nil
}

func sendControl(conn *transport.Conn, body []byte) error {
	return conn.Send(codec.WrapControl(body))
}

func recvControl(conn *transport.Conn) (codec.Control, error) {
	frame, err := conn.Recv()
	if err != nil {
		return codec.Control{}, err
	}
	kind, body, err := codec.UnwrapEnvelope(frame)
	if err != nil {
		return codec.Control{}, err
	}
	if kind != codec.EnvelopeControl {
		return codec.Control{}, codec.ErrUnexpectedPacket
	}
	return codec.DecodeControl(body)
}

// joinStatusError maps a relay JoinAck status to a session error.
func joinStatusError(status string) error {
	switch status {
	case codec.StatusOK:
		return nil
	case codec.StatusNameInUse:
		return ErrNameInUse
	case codec.StatusNoSuchTransfer:
		return ErrNoSuchTransfer
	case codec.StatusAlreadyPaired:
		return ErrAlreadyPaired
	default:
		return ErrBadRequest
	}
}
