package crypto

import (
	"crypto/cipher"
	"encoding/binary"

	"golang.org/x/crypto/chacha20poly1305"
)

// ChunkTagSize is the width of the authentication tag Seal/Open split
// off the AEAD output, matching codec.ChunkTagSize.
const ChunkTagSize = chacha20poly1305.Overhead

// ChunkCipher is the authenticated stream cipher used for file chunks
// (spec.md §4.2): ChaCha20-Poly1305 keyed by the PAKE session key, with
// the chunk's monotonic sequence number as the nonce. Enrichment beyond
// the teacher (who only authenticates control gossip, never a data
// channel) drawn from golang.org/x/crypto, the same AEAD
// WireGuard-wireguard-go uses for its data plane.
type ChunkCipher struct {
	aead cipher.AEAD
}

// NewChunkCipher constructs a ChunkCipher from a 32-byte session key
// (as produced by Session.SessionKey).
func NewChunkCipher(sessionKey []byte) (*ChunkCipher, error) {
	aead, err := chacha20poly1305.New(sessionKey)
	if err != nil {
		return nil, err
	}
	return &ChunkCipher{aead: aead}, nil
}

// Seal encrypts plaintext under the given chunk sequence number,
// returning the ciphertext and its detached authentication tag
// separately (spec.md §6.2 Chunk: "bytes cipher, bytes[16] tag").
func (c *ChunkCipher) Seal(seq uint64, plaintext []byte) (cipherBytes []byte, tag [ChunkTagSize]byte) {
	nonce := sequenceNonce(seq)
	out := c.aead.Seal(nil, nonce, plaintext, nil)
	n := len(out) - ChunkTagSize
	cipherBytes = out[:n]
	copy(tag[:], out[n:])
	return cipherBytes, tag
}

// Open decrypts and verifies a chunk. ErrDecryptFailed is returned on
// any authentication failure — a flipped ciphertext bit, a tampered
// tag, or a nonce reused/replayed from a different chunk.
func (c *ChunkCipher) Open(seq uint64, cipherBytes []byte, tag [ChunkTagSize]byte) ([]byte, error) {
	nonce := sequenceNonce(seq)
	combined := make([]byte, 0, len(cipherBytes)+ChunkTagSize)
	combined = append(combined, cipherBytes...)
	combined = append(combined, tag[:]...)

	plaintext, err := c.aead.Open(nil, nonce, combined, nil)
	if err != nil {
		return nil, ErrDecryptFailed
	}
	return plaintext, nil
}

// sequenceNonce zero-extends an 8-byte big-endian sequence number into
// the cipher's 12-byte nonce.
func sequenceNonce(seq uint64) []byte {
	nonce := make([]byte, chacha20poly1305.NonceSize)
	binary.BigEndian.PutUint64(nonce[chacha20poly1305.NonceSize-8:], seq)
	return nonce
}
