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
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/caesar-transfer/caesar-transfer/internal/codec"
	"github.com/caesar-transfer/caesar-transfer/internal/config"
	"github.com/caesar-transfer/caesar-transfer/internal/crypto"
	"github.com/caesar-transfer/caesar-transfer/internal/transport"
)

// Sender drives the sending side of one transfer (spec.md §4.5): it
// joins the relay room under a transfer name, runs the PAKE exchange
// as the initiator, announces a file list, and streams encrypted
// chunks once the receiver approves.
type Sender struct {
	conn       *transport.Conn
	cfg        *config.Config
	name       string
	paths      []string
	onProgress ProgressFunc
}

// NewSender constructs a Sender for the given transfer name and local
// file paths. onProgress may be nil, in which case progress is discarded.
func NewSender(conn *transport.Conn, cfg *config.Config, name string, paths []string, onProgress ProgressFunc) *Sender {
	if onProgress == nil {
		onProgress = noopProgress
	}
	return &Sender{conn: conn, cfg: cfg, name: name, paths: paths, onProgress: onProgress}
}

// Run executes the full sender protocol to completion or error. It
// blocks until the transfer is acknowledged, aborted, rejected, or ctx
// is canceled.
func (s *Sender) Run(ctx context.Context) error {
	if err := s.join(); err != nil {
		return err
	}

	// The wait for a receiver to pair plus the full PAKE exchange is
	// bounded by one deadline (spec.md §5 "PAKE completion: 30 s"); a
	// receiver that never arrives must not block on the relay's much
	// longer, unrelated read timeout (spec.md §8 scenario 3).
	if err := s.conn.SetReadDeadline(time.Now().Add(pakeDeadline)); err != nil {
		return err
	}

	if err := s.awaitPaired(); err != nil {
		return err
	}

	pake, err := crypto.NewSession(crypto.RoleSender)
	if err != nil {
		return err
	}
	if err := sendRaw(s.conn, pake.PublicPoint(s.name)); err != nil {
		return err
	}
	peerPoint, err := recvRaw(s.conn)
	if err != nil {
		return err
	}
	if err := pake.Complete(peerPoint, s.name); err != nil {
		return err
	}

	confirmation, err := pake.ConfirmationMAC(crypto.RoleReceiver)
	if err != nil {
		return err
	}
	var seed [codec.SessionSeedSize]byte
	copy(seed[:], confirmation)
	if err := sendPacket(s.conn, codec.HandshakePacket{
		Version:     config.ProtocolVersion,
		SessionSeed: seed,
	}); err != nil {
		return err
	}

	resp, err := recvPacket(s.conn)
	if err != nil {
		return err
	}
	hresp, ok := resp.(codec.HandshakeResponsePacket)
	if !ok {
		return codec.ErrUnexpectedPacket
	}
	if int(hresp.AcceptedVersion) != config.ProtocolVersion {
		return ErrUnknownVersion
	}

	// PAKE is complete; lift the deadline before the open-ended list
	// approval and chunk-streaming phases.
	if err := s.conn.SetReadDeadline(time.Time{}); err != nil {
		return err
	}

	entries, sizes, err := s.statEntries()
	if err != nil {
		return err
	}
	if err := sendPacket(s.conn, codec.ListPacket{Entries: entries}); err != nil {
		return err
	}

	decision, err := recvPacket(s.conn)
	if err != nil {
		return err
	}
	switch decision.(type) {
	case codec.ApprovePacket:
		// proceed
	case codec.AbortPacket:
		return ErrRejected
	default:
		return codec.ErrUnexpectedPacket
	}

	cipher, err := crypto.NewChunkCipher(pake.SessionKey())
	if err != nil {
		return err
	}

	fault := newFaultSignal()
	credit := newCreditWindow()
	ackCh := make(chan codec.AckPacket, 1)
	go s.readLoop(credit, ackCh, fault)

	var seq uint64
	for i, path := range s.paths {
		if err := s.sendFile(ctx, i, path, sizes[i], cipher, &seq, credit, fault); err != nil {
			credit.close()
			return err
		}
	}

	if err := sendPacket(s.conn, codec.TransferEndPacket{}); err != nil {
		credit.close()
		return err
	}

	select {
	case <-ackCh:
		return nil
	case <-fault.Done():
		return fault.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Sender) join() error {
	body, err := codec.EncodeJoin(codec.RoleSender, s.name)
	if err != nil {
		return err
	}
	if err := sendControl(s.conn, body); err != nil {
		return err
	}
	ack, err := recvControl(s.conn)
	if err != nil {
		return err
	}
	if ack.Kind != codec.KindJoinAck {
		return codec.ErrUnexpectedPacket
	}
	return joinStatusError(ack.Status)
}

// awaitPaired blocks for the relay's Paired{} notification, sent once
// a receiver joins the same room (spec.md §6.1).
func (s *Sender) awaitPaired() error {
	ctrl, err := recvControl(s.conn)
	if err != nil {
		return err
	}
	if ctrl.Kind != codec.KindPaired {
		return codec.ErrUnexpectedPacket
	}
	return nil
}

func (s *Sender) statEntries() ([]codec.FileEntry, []uint64, error) {
	entries := make([]codec.FileEntry, 0, len(s.paths))
	sizes := make([]uint64, 0, len(s.paths))
	var total uint64
	for _, path := range s.paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, nil, err
		}
		size := uint64(info.Size())
		total += size
		if total > uint64(s.cfg.EffectiveMaxListBytes()) {
			return nil, nil, ErrListTooLarge
		}
		entries = append(entries, codec.FileEntry{Name: filepath.Base(path), Size: size})
		sizes = append(sizes, size)
	}
	return entries, sizes, nil
}

// sendFile streams one file as a sequence of Chunk packets followed by
// a FileEnd packet carrying the plaintext SHA-256 hash.
func (s *Sender) sendFile(ctx context.Context, fileIndex int, path string, size uint64, cipher *crypto.ChunkCipher, seq *uint64, credit *creditWindow, fault *faultSignal) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	hash := sha256.New()
	buf := make([]byte, s.cfg.EffectiveChunkSize())
	var offset uint64

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-fault.Done():
			return fault.Err()
		default:
		}

		n, readErr := f.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			if !credit.acquire(uint64(n)) {
				if err := fault.Err(); err != nil {
					return err
				}
				return ErrAborted
			}
			*seq++
			cipherBytes, tag := cipher.Seal(*seq, chunk)
			if err := sendPacket(s.conn, codec.ChunkPacket{
				FileIndex: uint64(fileIndex),
				Offset:    offset,
				Cipher:    cipherBytes,
				Tag_:      tag,
			}); err != nil {
				return err
			}
			hash.Write(chunk)
			offset += uint64(n)
			s.onProgress(fileIndex, offset, size)
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return readErr
		}
	}

	var fileHash [codec.FileHashSize]byte
	copy(fileHash[:], hash.Sum(nil))
	return sendPacket(s.conn, codec.FileEndPacket{FileIndex: uint64(fileIndex), FileHash: fileHash})
}

// readLoop consumes Progress/Abort/Ack packets concurrently with the
// sending loop (spec.md §5 "two concurrent tasks"): Progress releases
// credit, Abort surfaces as a fault, Ack completes the transfer.
func (s *Sender) readLoop(credit *creditWindow, ackCh chan<- codec.AckPacket, fault *faultSignal) {
	lastDone := make(map[uint64]uint64)
	for {
		pkt, err := recvPacket(s.conn)
		if err != nil {
			fault.set(err)
			credit.close()
			return
		}
		switch v := pkt.(type) {
		case codec.ProgressPacket:
			prev := lastDone[v.FileIndex]
			if v.BytesDone > prev {
				credit.release(v.BytesDone - prev)
				lastDone[v.FileIndex] = v.BytesDone
			}
		case codec.AbortPacket:
			fault.set(fmt.Errorf("%w: %s", ErrAborted, v.Reason))
			credit.close()
			return
		case codec.AckPacket:
			ackCh <- v
			return
		default:
			// unexpected packet at this point in the protocol; ignore
			// rather than abort the whole transfer over a stray message
		}
	}
}
