// Package codec implements the two wire framings used by
// Caesar-Transfer: the textual tagged-union relay control messages
// (peer <-> relay, see control.go) and the compact binary peer packet
// format tunneled opaquely through the relay (peer <-> peer, this
// file). See spec.md §4.1 and §6.2.
package codec

import (
	"bytes"
	"encoding/binary"
	"io"
)

// Tag identifies a peer packet's type, the first byte on the wire.
type Tag byte

// Peer packet tags, spec.md §6.2.
const (
	TagHandshake         Tag = 1
	TagHandshakeResponse Tag = 2
	TagList              Tag = 3
	TagApprove           Tag = 4
	TagAbort             Tag = 5
	TagChunk             Tag = 6
	TagFileEnd           Tag = 7
	TagTransferEnd       Tag = 8
	TagAck               Tag = 9
	TagProgress          Tag = 10
)

// MaxFrameBytes is the per-message ceiling the codec enforces on any
// length-prefixed field (spec.md §4.1 default 16 MiB).
const MaxFrameBytes = 16 << 20

// ChunkTagSize is the width of the chunk AEAD authentication tag.
const ChunkTagSize = 16

// SessionSeedSize is the width of the handshake's random session-nonce seed.
const SessionSeedSize = 32

// FileHashSize is the width of a FileEnd packet's plaintext digest (SHA-256).
const FileHashSize = 32

// Packet is a tagged union of the peer-to-peer message types.
type Packet interface {
	Tag() Tag
}

// FileEntry is one file's metadata within a ListPacket (spec.md §3).
type FileEntry struct {
	Name string
	Size uint64
}

// HandshakePacket is tag 1.
type HandshakePacket struct {
	Version     uint16
	SessionSeed [SessionSeedSize]byte
}

func (HandshakePacket) Tag() Tag { return TagHandshake }

// HandshakeResponsePacket is tag 2.
type HandshakeResponsePacket struct {
	AcceptedVersion uint16
}

func (HandshakeResponsePacket) Tag() Tag { return TagHandshakeResponse }

// ListPacket is tag 3.
type ListPacket struct {
	Entries []FileEntry
}

func (ListPacket) Tag() Tag { return TagList }

// ApprovePacket is tag 4, an empty body.
type ApprovePacket struct{}

func (ApprovePacket) Tag() Tag { return TagApprove }

// AbortPacket is tag 5.
type AbortPacket struct {
	Reason string
}

func (AbortPacket) Tag() Tag { return TagAbort }

// ChunkPacket is tag 6.
type ChunkPacket struct {
	FileIndex uint64
	Offset    uint64
	Cipher    []byte
	Tag_      [ChunkTagSize]byte
}

func (ChunkPacket) Tag() Tag { return TagChunk }

// FileEndPacket is tag 7.
type FileEndPacket struct {
	FileIndex uint64
	FileHash  [FileHashSize]byte
}

func (FileEndPacket) Tag() Tag { return TagFileEnd }

// TransferEndPacket is tag 8, an empty body.
type TransferEndPacket struct{}

func (TransferEndPacket) Tag() Tag { return TagTransferEnd }

// AckPacket is tag 9.
type AckPacket struct {
	FileIndex uint64
}

func (AckPacket) Tag() Tag { return TagAck }

// ProgressPacket is tag 10.
type ProgressPacket struct {
	FileIndex  uint64
	BytesDone  uint64
	BytesTotal uint64
}

func (ProgressPacket) Tag() Tag { return TagProgress }

// Encode serializes a Packet into its wire representation: one tag
// byte followed by the type-specific body.
func Encode(p Packet) []byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(p.Tag()))

	switch v := p.(type) {
	case HandshakePacket:
		writeUint16(&buf, v.Version)
		buf.Write(v.SessionSeed[:])
	case HandshakeResponsePacket:
		writeUint16(&buf, v.AcceptedVersion)
	case ListPacket:
		writeUvarint(&buf, uint64(len(v.Entries)))
		for _, e := range v.Entries {
			writeUvarint(&buf, uint64(len(e.Name)))
			buf.WriteString(e.Name)
			writeUint64(&buf, e.Size)
		}
	case ApprovePacket:
		// empty body
	case AbortPacket:
		reason := []byte(v.Reason)
		writeUvarint(&buf, uint64(len(reason)))
		buf.Write(reason)
	case ChunkPacket:
		writeUvarint(&buf, v.FileIndex)
		writeUint64(&buf, v.Offset)
		writeUvarint(&buf, uint64(len(v.Cipher)))
		buf.Write(v.Cipher)
		buf.Write(v.Tag_[:])
	case FileEndPacket:
		writeUvarint(&buf, v.FileIndex)
		buf.Write(v.FileHash[:])
	case TransferEndPacket:
		// empty body
	case AckPacket:
		writeUvarint(&buf, v.FileIndex)
	case ProgressPacket:
		writeUvarint(&buf, v.FileIndex)
		writeUint64(&buf, v.BytesDone)
		writeUint64(&buf, v.BytesTotal)
	}

	return buf.Bytes()
}

// Decode parses a wire-format peer packet. Decoding is total: callers
// never see a partial read, only a complete Packet or ErrMalformedFrame.
func Decode(frame []byte) (Packet, error) {
	if len(frame) == 0 {
		return nil, ErrMalformedFrame
	}
	if len(frame) > MaxFrameBytes {
		return nil, ErrMalformedFrame
	}

	r := bytes.NewReader(frame[1:])
	switch Tag(frame[0]) {
	case TagHandshake:
		version, err := readUint16(r)
		if err != nil {
			return nil, err
		}
		var seed [SessionSeedSize]byte
		if _, err := readFull(r, seed[:]); err != nil {
			return nil, err
		}
		return HandshakePacket{Version: version, SessionSeed: seed}, nil

	case TagHandshakeResponse:
		version, err := readUint16(r)
		if err != nil {
			return nil, err
		}
		return HandshakeResponsePacket{AcceptedVersion: version}, nil

	case TagList:
		n, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		entries := make([]FileEntry, 0, n)
		for i := uint64(0); i < n; i++ {
			nameLen, err := readUvarint(r)
			if err != nil {
				return nil, err
			}
			if nameLen > MaxFrameBytes {
				return nil, ErrMalformedFrame
			}
			name := make([]byte, nameLen)
			if _, err := readFull(r, name); err != nil {
				return nil, err
			}
			size, err := readUint64(r)
			if err != nil {
				return nil, err
			}
			entries = append(entries, FileEntry{Name: string(name), Size: size})
		}
		return ListPacket{Entries: entries}, nil

	case TagApprove:
		return ApprovePacket{}, nil

	case TagAbort:
		reasonLen, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		if reasonLen > MaxFrameBytes {
			return nil, ErrMalformedFrame
		}
		reason := make([]byte, reasonLen)
		if _, err := readFull(r, reason); err != nil {
			return nil, err
		}
		return AbortPacket{Reason: string(reason)}, nil

	case TagChunk:
		fileIndex, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		offset, err := readUint64(r)
		if err != nil {
			return nil, err
		}
		cipherLen, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		if cipherLen > MaxFrameBytes {
			return nil, ErrMalformedFrame
		}
		cipher := make([]byte, cipherLen)
		if _, err := readFull(r, cipher); err != nil {
			return nil, err
		}
		var tag [ChunkTagSize]byte
		if _, err := readFull(r, tag[:]); err != nil {
			return nil, err
		}
		return ChunkPacket{FileIndex: fileIndex, Offset: offset, Cipher: cipher, Tag_: tag}, nil

	case TagFileEnd:
		fileIndex, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		var hash [FileHashSize]byte
		if _, err := readFull(r, hash[:]); err != nil {
			return nil, err
		}
		return FileEndPacket{FileIndex: fileIndex, FileHash: hash}, nil

	case TagTransferEnd:
		return TransferEndPacket{}, nil

	case TagAck:
		fileIndex, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		return AckPacket{FileIndex: fileIndex}, nil

	case TagProgress:
		fileIndex, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		bytesDone, err := readUint64(r)
		if err != nil {
			return nil, err
		}
		bytesTotal, err := readUint64(r)
		if err != nil {
			return nil, err
		}
		return ProgressPacket{FileIndex: fileIndex, BytesDone: bytesDone, BytesTotal: bytesTotal}, nil

	default:
		return nil, ErrMalformedFrame
	}
}

// --- small serialization helpers -------------------------------------------

func writeUint16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeUint64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

// writeUvarint writes v as standard unsigned LEB128, the same
// continuation-bit varint encoding encoding/binary.PutUvarint produces.
func writeUvarint(buf *bytes.Buffer, v uint64) {
	var b [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(b[:], v)
	buf.Write(b[:n])
}

func readUint16(r *bytes.Reader) (uint16, error) {
	var b [2]byte
	if _, err := readFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b[:]), nil
}

func readUint64(r *bytes.Reader) (uint64, error) {
	var b [8]byte
	if _, err := readFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b[:]), nil
}

func readUvarint(r *bytes.Reader) (uint64, error) {
	v, err := binary.ReadUvarint(r)
	if err != nil {
		return 0, ErrMalformedFrame
	}
	return v, nil
}

func readFull(r *bytes.Reader, b []byte) (int, error) {
	n, err := io.ReadFull(r, b)
	if err != nil {
		return n, ErrMalformedFrame
	}
	return n, nil
}
