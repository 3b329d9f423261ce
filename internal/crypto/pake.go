// Package crypto implements Caesar-Transfer's crypto engine: a
// SPAKE2-flavored password-authenticated key agreement keyed on the
// transfer name, and the chunk AEAD built on top of the derived
// session key (spec.md §4.2).
//
// The elliptic-curve arithmetic is grounded in the teacher's own
// choice of curve (message.go: DefaultCurve = btcec.S256()) and its
// ECDH challenge/response handshake (agent-tcp/tcp_peer.go). This
// package generalizes that pattern from an unauthenticated
// "possession of a long-term keypair" proof into a PAKE where the low
// entropy secret is the transfer name itself.
package crypto

import (
	"crypto/elliptic"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
	"golang.org/x/crypto/hkdf"
)

// Curve is the elliptic curve used for the PAKE, matching the
// teacher's DefaultCurve.
func Curve() elliptic.Curve { return btcec.S256() }

const sessionKeySize = 32

const (
	hkdfInfo = "caesar-transfer session key"

	// blinding-point derivation labels, one per PAKE role so sender and
	// receiver never accidentally use the same blinding point.
	blindLabelSender   = "caesar-transfer blind sender"
	blindLabelReceiver = "caesar-transfer blind receiver"

	confirmLabel = "caesar-transfer confirmation"
)

// Role identifies which side of the PAKE exchange a Session plays.
// It must match the peer's session role (spec.md §4.5/§4.6: the sender
// is the PAKE initiator, the receiver the responder).
type Role int

const (
	RoleSender Role = iota
	RoleReceiver
)

// Session drives one PAKE exchange and, once Complete, the derived
// chunk cipher for the resulting session key.
type Session struct {
	role       Role
	privateKey *big.Int
	pubX, pubY *big.Int

	sessionKey []byte // nil until Complete succeeds
}

// NewSession generates a fresh ephemeral keypair for one side of the
// PAKE exchange.
func NewSession(role Role) (*Session, error) {
	curve := Curve()
	priv, x, y, err := elliptic.GenerateKey(curve, rand.Reader)
	if err != nil {
		return nil, err
	}
	return &Session{
		role:       role,
		privateKey: new(big.Int).SetBytes(priv),
		pubX:       x,
		pubY:       y,
	}, nil
}

// PublicPoint returns this session's blinded public point: the
// ephemeral public key plus this role's blinding point, derived from
// the transfer name. It is safe to send over a channel the relay can
// read — without the transfer name an observer cannot recover the
// ephemeral public key, and therefore cannot compute the shared point.
func (s *Session) PublicPoint(name string) []byte {
	curve := Curve()
	bx, by := blindingPoint(s.role, name)
	blindedX, blindedY := curve.Add(s.pubX, s.pubY, bx, by)
	return elliptic.Marshal(curve, blindedX, blindedY)
}

// Complete consumes the peer's blinded public point (as produced by
// the peer's own PublicPoint, tunneled through the relay), subtracts
// the peer's blinding point, performs the ECDH scalar multiplication
// with this session's private scalar, and derives the session key via
// HKDF-SHA256. name MUST be the same transfer name both sides used;
// if it is not, both sides derive different keys and the subsequent
// confirmation-MAC exchange (see ConfirmationMAC/CheckConfirmation)
// catches the mismatch.
func (s *Session) Complete(peerPublicPoint []byte, name string) error {
	curve := Curve()
	px, py := elliptic.Unmarshal(curve, peerPublicPoint)
	if px == nil {
		return ErrInvalidPeerPoint
	}

	peerRole := RoleReceiver
	if s.role == RoleReceiver {
		peerRole = RoleSender
	}
	bx, by := blindingPoint(peerRole, name)
	negBy := new(big.Int).Sub(curve.Params().P, by)
	negBy.Mod(negBy, curve.Params().P)

	peerEphemeralX, peerEphemeralY := curve.Add(px, py, bx, negBy)
	if !curve.IsOnCurve(peerEphemeralX, peerEphemeralY) {
		return ErrInvalidPeerPoint
	}

	sharedX, _ := curve.ScalarMult(peerEphemeralX, peerEphemeralY, s.privateKey.Bytes())

	h := hkdf.New(sha256.New, sharedX.Bytes(), []byte(name), []byte(hkdfInfo))
	key := make([]byte, sessionKeySize)
	if _, err := io.ReadFull(h, key); err != nil {
		return err
	}
	s.sessionKey = key
	return nil
}

// Completed reports whether Complete has derived a session key.
func (s *Session) Completed() bool { return s.sessionKey != nil }

// SessionKey returns the derived 32-byte session key. It panics if
// called before Complete succeeds; callers should check Completed
// first, mirroring the rest of this package's fail-fast style.
func (s *Session) SessionKey() []byte {
	if s.sessionKey == nil {
		panic(errors.New("crypto: SessionKey called before Complete"))
	}
	out := make([]byte, sessionKeySize)
	copy(out, s.sessionKey)
	return out
}

// ConfirmationMAC returns an HMAC-SHA256 tag over a role label, bound
// to the derived session key. The sender folds its tag for
// RoleReceiver into the Handshake packet and the receiver verifies it
// with CheckConfirmation before trusting the key — this is what
// actually surfaces a wrong transfer name as ErrKeyMismatch rather than
// silently proceeding with mismatched keys. No tag travels back in the
// HandshakeResponse, so only the receiver performs this check.
func (s *Session) ConfirmationMAC(forRole Role) ([]byte, error) {
	if s.sessionKey == nil {
		return nil, ErrNotCompleted
	}
	mac := hmac.New(sha256.New, s.sessionKey)
	mac.Write([]byte(confirmLabel))
	mac.Write([]byte{byte(forRole)})
	return mac.Sum(nil), nil
}

// CheckConfirmation verifies a peer-supplied confirmation MAC computed
// for forRole. A mismatch means the two sides derived different
// session keys, almost always because they used different transfer
// names.
func (s *Session) CheckConfirmation(forRole Role, tag []byte) error {
	want, err := s.ConfirmationMAC(forRole)
	if err != nil {
		return err
	}
	if !hmac.Equal(want, tag) {
		return ErrKeyMismatch
	}
	return nil
}

// blindingPoint derives this role's fixed blinding point M/N by
// hashing a role-specific label and the transfer name into a scalar
// mod the curve order, then multiplying the curve's base point by it.
func blindingPoint(role Role, name string) (*big.Int, *big.Int) {
	label := blindLabelSender
	if role == RoleReceiver {
		label = blindLabelReceiver
	}

	h := sha256.Sum256(append([]byte(label+":"), []byte(name)...))
	curve := Curve()
	scalar := new(big.Int).SetBytes(h[:])
	scalar.Mod(scalar, curve.Params().N)
	return curve.ScalarBaseMult(scalar.Bytes())
}
