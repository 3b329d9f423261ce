// Copyright (c) 2026 Caesar Transfer
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies of
// the Software, and to permit persons to whom the Software is furnished to do so,
// subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY, FITNESS
// FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR
// COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
// IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
// CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.

package session

import (
	"bytes"
	"context"
	"crypto/sha256"
	"hash"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caesar-transfer/caesar-transfer/internal/codec"
	"github.com/caesar-transfer/caesar-transfer/internal/config"
	"github.com/caesar-transfer/caesar-transfer/internal/crypto"
	"github.com/caesar-transfer/caesar-transfer/internal/transport"
)

// ApproveFunc is the user-facing accept/reject hook (spec.md §4.6): the
// receiver calls it once with the announced file list and proceeds only
// if it returns true. A nil ApproveFunc auto-approves, which is the
// right default for a non-interactive driver (tests, scripted use).
type ApproveFunc func(entries []codec.FileEntry) bool

func autoApprove([]codec.FileEntry) bool { return true }

// Receiver drives the receiving side of one transfer (spec.md §4.6): it
// joins the relay room under a transfer name, responds to the sender's
// PAKE initiation, validates and approves (or rejects) the announced
// file list, and writes decrypted chunks to DestinationDir.
type Receiver struct {
	conn       *transport.Conn
	cfg        *config.Config
	name       string
	onApprove  ApproveFunc
	onProgress ProgressFunc
}

// NewReceiver constructs a Receiver for the given transfer name. Either
// hook may be nil.
func NewReceiver(conn *transport.Conn, cfg *config.Config, name string, onApprove ApproveFunc, onProgress ProgressFunc) *Receiver {
	if onApprove == nil {
		onApprove = autoApprove
	}
	if onProgress == nil {
		onProgress = noopProgress
	}
	return &Receiver{conn: conn, cfg: cfg, name: name, onApprove: onApprove, onProgress: onProgress}
}

// Run executes the full receiver protocol to completion or error.
func (r *Receiver) Run(ctx context.Context) error {
	if err := r.join(); err != nil {
		return err
	}

	// Bound the PAKE exchange (spec.md §5 "PAKE completion: 30 s") so a
	// sender that never completes its side doesn't block this call
	// indefinitely.
	if err := r.conn.SetReadDeadline(time.Now().Add(pakeDeadline)); err != nil {
		return err
	}

	pake, err := crypto.NewSession(crypto.RoleReceiver)
	if err != nil {
		return err
	}
	if err := sendRaw(r.conn, pake.PublicPoint(r.name)); err != nil {
		return err
	}
	peerPoint, err := recvRaw(r.conn)
	if err != nil {
		return err
	}
	if err := pake.Complete(peerPoint, r.name); err != nil {
		return err
	}

	pkt, err := recvPacket(r.conn)
	if err != nil {
		return err
	}
	handshake, ok := pkt.(codec.HandshakePacket)
	if !ok {
		return codec.ErrUnexpectedPacket
	}
	if int(handshake.Version) != config.ProtocolVersion {
		r.abort("unsupported protocol version")
		return ErrUnknownVersion
	}
	if err := pake.CheckConfirmation(crypto.RoleReceiver, handshake.SessionSeed[:]); err != nil {
		r.abort("key mismatch")
		return err
	}

	if err := sendPacket(r.conn, codec.HandshakeResponsePacket{AcceptedVersion: config.ProtocolVersion}); err != nil {
		return err
	}

	// PAKE is complete; lift the deadline before the open-ended list
	// approval and chunk-streaming phases.
	if err := r.conn.SetReadDeadline(time.Time{}); err != nil {
		return err
	}

	pkt, err = recvPacket(r.conn)
	if err != nil {
		return err
	}
	list, ok := pkt.(codec.ListPacket)
	if !ok {
		return codec.ErrUnexpectedPacket
	}

	destinations, err := r.validateList(list.Entries)
	if err != nil {
		r.abort(err.Error())
		return err
	}

	if !r.onApprove(list.Entries) {
		r.abort("rejected by receiver")
		return ErrRejected
	}
	if err := sendPacket(r.conn, codec.ApprovePacket{}); err != nil {
		return err
	}

	cipher, err := crypto.NewChunkCipher(pake.SessionKey())
	if err != nil {
		return err
	}

	return r.receiveFiles(ctx, list.Entries, destinations, cipher)
}

func (r *Receiver) join() error {
	body, err := codec.EncodeJoin(codec.RoleReceiver, r.name)
	if err != nil {
		return err
	}
	if err := sendControl(r.conn, body); err != nil {
		return err
	}
	ack, err := recvControl(r.conn)
	if err != nil {
		return err
	}
	if ack.Kind != codec.KindJoinAck {
		return codec.ErrUnexpectedPacket
	}
	return joinStatusError(ack.Status)
}

func (r *Receiver) abort(reason string) {
	_ = sendPacket(r.conn, codec.AbortPacket{Reason: reason})
}

// validateList sanitizes each announced entry's name against path
// traversal and checks the total size against the configured ceiling,
// before any bytes are accepted or written (spec.md §4.6, §7 Policy).
func (r *Receiver) validateList(entries []codec.FileEntry) ([]string, error) {
	var total uint64
	destinations := make([]string, len(entries))
	for i, e := range entries {
		total += e.Size
		if total > uint64(r.cfg.EffectiveMaxListBytes()) {
			return nil, ErrListTooLarge
		}
		if err := validateEntryName(e.Name); err != nil {
			return nil, err
		}
		dest := filepath.Join(r.cfg.DestinationDir, e.Name)
		if !r.cfg.Overwrite {
			if _, err := os.Stat(dest); err == nil {
				return nil, ErrDestinationConflict
			}
		}
		destinations[i] = dest
	}
	return destinations, nil
}

func validateEntryName(name string) error {
	if name == "" || strings.ContainsRune(name, 0) {
		return ErrBadRequest
	}
	if filepath.Base(name) != name {
		return ErrBadRequest
	}
	if name == "." || name == ".." {
		return ErrBadRequest
	}
	return nil
}

// receiveFiles is the main decrypt/write loop, one sequence counter
// shared across every file in the transfer (mirroring the sender's
// single monotonic chunk counter).
func (r *Receiver) receiveFiles(ctx context.Context, entries []codec.FileEntry, destinations []string, cipher *crypto.ChunkCipher) error {
	var seq uint64
	var current int
	var out *os.File
	var fileHash hash.Hash
	var written uint64

	cleanup := func() {
		if out != nil {
			out.Close()
			os.Remove(destinations[current])
		}
	}

	openCurrent := func() error {
		f, err := os.OpenFile(destinations[current], os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			return ErrWriteFailed
		}
		out = f
		fileHash = sha256.New()
		written = 0
		return nil
	}

	if len(entries) > 0 {
		if err := openCurrent(); err != nil {
			return err
		}
	}

	for {
		select {
		case <-ctx.Done():
			cleanup()
			return ctx.Err()
		default:
		}

		pkt, err := recvPacket(r.conn)
		if err != nil {
			cleanup()
			return err
		}

		switch v := pkt.(type) {
		case codec.ChunkPacket:
			if v.FileIndex != uint64(current) {
				cleanup()
				return ErrOutOfOrderChunk
			}
			// A chunk covering bytes already consumed is a replay of an
			// earlier (seq, ciphertext, tag) triple — exactly what nonce
			// reuse means at the protocol level, even though the local
			// sequence counter itself only ever advances.
			if v.Offset < written {
				cleanup()
				return ErrNonceReuse
			}
			if v.Offset != written {
				cleanup()
				return ErrOutOfOrderChunk
			}
			seq++
			plaintext, err := cipher.Open(seq, v.Cipher, v.Tag_)
			if err != nil {
				cleanup()
				return err
			}
			if _, err := out.Write(plaintext); err != nil {
				cleanup()
				return ErrWriteFailed
			}
			fileHash.Write(plaintext)
			written += uint64(len(plaintext))
			r.onProgress(current, written, entries[current].Size)
			if err := sendPacket(r.conn, codec.ProgressPacket{
				FileIndex:  uint64(current),
				BytesDone:  written,
				BytesTotal: entries[current].Size,
			}); err != nil {
				cleanup()
				return err
			}

		case codec.FileEndPacket:
			if v.FileIndex != uint64(current) {
				cleanup()
				return ErrOutOfOrderChunk
			}
			if written != entries[current].Size {
				cleanup()
				return ErrSizeMismatch
			}
			if err := out.Sync(); err != nil {
				cleanup()
				return ErrWriteFailed
			}
			sum := fileHash.Sum(nil)
			if !bytes.Equal(sum, v.FileHash[:]) {
				cleanup()
				return ErrHashMismatch
			}
			out.Close()
			out = nil
			current++
			if current < len(entries) {
				if err := openCurrent(); err != nil {
					return err
				}
			}

		case codec.TransferEndPacket:
			return sendPacket(r.conn, codec.AckPacket{})

		case codec.AbortPacket:
			cleanup()
			return ErrAborted

		default:
			cleanup()
			return codec.ErrUnexpectedPacket
		}
	}
}
