// Package wallet maintains the key material an account uses to sign
// transactions on the ledger.
package wallet

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/cloudflare/circl/sign/ed25519"
	"github.com/vxoid/rbc/foundation/blockchain/signature"
)

// SeedLength is the number of bytes required to derive a keypair.
const SeedLength = ed25519.SeedSize

// ErrInvalidSeed is returned when the seed doesn't have SeedLength bytes.
var ErrInvalidSeed = errors.New("invalid seed")

// =============================================================================

// SeedSource provides the bytes a keypair is derived from. Swapping the
// source doesn't change how transactions are signed or verified.
type SeedSource func() ([]byte, error)

// RandomSeed returns a seed source backed by the operating system's secure
// random number generator.
func RandomSeed() SeedSource {
	return func() ([]byte, error) {
		seed := make([]byte, SeedLength)
		if _, err := rand.Read(seed); err != nil {
			return nil, fmt.Errorf("reading random seed: %w", err)
		}
		return seed, nil
	}
}

// TimeSeed returns a seed source that hashes the current time in
// nanoseconds, encoded as a 128 bit little endian value. Two wallets created
// within the same clock tick share a key and the seed is predictable, so
// this is only suitable for throwaway test accounts.
func TimeSeed(now func() time.Time) SeedSource {
	return func() ([]byte, error) {
		t := now()
		if t.Before(time.Unix(0, 0)) {
			return nil, fmt.Errorf("clock is before the unix epoch: %s", t)
		}

		var b [16]byte
		binary.LittleEndian.PutUint64(b[:8], uint64(t.UnixNano()))

		seed := signature.Hash(b[:])
		return seed[:], nil
	}
}

// =============================================================================

// Wallet holds a keypair in memory for the lifetime of the owning actor.
type Wallet struct {
	privateKey ed25519.PrivateKey
	publicKey  signature.PublicKey
}

// New constructs a wallet from a seed produced by the specified source.
func New(source SeedSource) (*Wallet, error) {
	seed, err := source()
	if err != nil {
		return nil, err
	}

	return FromSeed(seed)
}

// FromSeed constructs a wallet deterministically from the specified seed.
func FromSeed(seed []byte) (*Wallet, error) {
	if len(seed) != SeedLength {
		return nil, fmt.Errorf("%w: got %d bytes, exp %d", ErrInvalidSeed, len(seed), SeedLength)
	}

	privateKey := ed25519.NewKeyFromSeed(seed)

	var pk signature.PublicKey
	copy(pk[:], privateKey.Public().(ed25519.PublicKey))

	w := Wallet{
		privateKey: privateKey,
		publicKey:  pk,
	}

	return &w, nil
}

// PublicKey returns the account identity for this wallet.
func (w *Wallet) PublicKey() signature.PublicKey {
	return w.publicKey
}

// Sign signs the message with the wallet's private key.
func (w *Wallet) Sign(message []byte) signature.Signature {
	return signature.Sign(w.privateKey, message)
}

// Seed returns a copy of the seed the keypair was derived from.
func (w *Wallet) Seed() []byte {
	seed := make([]byte, SeedLength)
	copy(seed, w.privateKey.Seed())
	return seed
}
