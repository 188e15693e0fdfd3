// Package ss58 implements the SS58 address codec used for miner hotkeys
// and coldkeys: base58 over a network-prefixed 32-byte ed25519 public key
// with a blake2b checksum.
package ss58

import (
	"crypto/sha512"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"
)

// GenericPrefix is the generic substrate network prefix used by the
// incentive networks this bridge targets.
const GenericPrefix = 42

// checksumPreimage is prepended to the payload before hashing.
const checksumPreimage = "SS58PRE"

var (
	// ErrInvalidAddress is returned for addresses that do not decode to a
	// prefixed 32-byte key.
	ErrInvalidAddress = errors.New("invalid ss58 address")

	// ErrChecksumMismatch is returned when the embedded checksum does not
	// match the payload.
	ErrChecksumMismatch = errors.New("ss58 checksum mismatch")

	// ErrNotOnCurve is returned when the decoded key is not a valid
	// ed25519 curve point.
	ErrNotOnCurve = errors.New("public key not on ed25519 curve")
)

// Encode encodes a 32-byte public key as an SS58 address under the
// generic network prefix.
func Encode(pub []byte) (string, error) {
	if len(pub) != 32 {
		return "", fmt.Errorf("%w: key length %d", ErrInvalidAddress, len(pub))
	}

	payload := make([]byte, 0, 35)
	payload = append(payload, GenericPrefix)
	payload = append(payload, pub...)
	payload = append(payload, checksum(payload)...)

	return base58.Encode(payload), nil
}

// Decode decodes an SS58 address, verifies its checksum and that the key
// is a valid ed25519 point, and returns the raw 32-byte public key.
func Decode(addr string) ([]byte, error) {
	raw, err := base58.Decode(addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	// prefix(1) + key(32) + checksum(2)
	if len(raw) != 35 {
		return nil, fmt.Errorf("%w: payload length %d", ErrInvalidAddress, len(raw))
	}
	if raw[0] != GenericPrefix {
		return nil, fmt.Errorf("%w: network prefix %d", ErrInvalidAddress, raw[0])
	}

	body, sum := raw[:33], raw[33:]
	want := checksum(body)
	if sum[0] != want[0] || sum[1] != want[1] {
		return nil, ErrChecksumMismatch
	}

	pub := make([]byte, 32)
	copy(pub, raw[1:33])

	if _, err := new(edwards25519.Point).SetBytes(pub); err != nil {
		return nil, ErrNotOnCurve
	}
	return pub, nil
}

// Valid reports whether addr is a well-formed SS58 address.
func Valid(addr string) bool {
	_, err := Decode(addr)
	return err == nil
}

// DeriveAddress derives a deterministic SS58 address from arbitrary seed
// material: the seed is hashed to a scalar and multiplied onto the
// ed25519 basepoint, so the resulting key is a real curve point.
func DeriveAddress(seed []byte) (string, error) {
	digest := sha512.Sum512(seed)
	scalar, err := new(edwards25519.Scalar).SetUniformBytes(digest[:])
	if err != nil {
		return "", fmt.Errorf("derive scalar: %w", err)
	}
	pub := new(edwards25519.Point).ScalarBaseMult(scalar).Bytes()
	return Encode(pub)
}

// checksum computes the 2-byte SS58 checksum over a prefixed payload.
func checksum(payload []byte) []byte {
	h, _ := blake2b.New512(nil)
	h.Write([]byte(checksumPreimage))
	h.Write(payload)
	return h.Sum(nil)[:2]
}
