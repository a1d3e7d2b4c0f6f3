// Package signature provides helper functions for handling the blockchain
// hashing and signature needs.
package signature

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/cloudflare/circl/sign/ed25519"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Sizes of the fixed width values handled by this package.
const (
	DigestLength    = sha256.Size
	PublicKeyLength = ed25519.PublicKeySize
	SignatureLength = ed25519.SignatureSize
)

// ErrInvalidLength is returned when a hex value doesn't decode to the
// expected number of bytes.
var ErrInvalidLength = errors.New("invalid length")

// =============================================================================

// Digest represents a SHA-256 hash. It is used as the identity of a block
// and as the pointer from a block to its parent.
type Digest [DigestLength]byte

// ZeroDigest represents a digest of zeros. The genesis block points to it.
var ZeroDigest Digest

// Hash returns the SHA-256 digest of the concatenation of the specified data.
func Hash(data ...[]byte) Digest {
	h := sha256.New()
	for _, d := range data {
		h.Write(d)
	}

	var digest Digest
	copy(digest[:], h.Sum(nil))

	return digest
}

// ToDigest converts a hex-encoded string, with or without the 0x prefix,
// into a digest.
func ToDigest(hex string) (Digest, error) {
	var d Digest
	if err := decodeFixed(hex, d[:]); err != nil {
		return Digest{}, fmt.Errorf("digest: %w", err)
	}
	return d, nil
}

// Hex returns the lowercase hex form of the digest without a prefix. This
// is the form the proof of work rules are checked against.
func (d Digest) Hex() string {
	return common.Bytes2Hex(d[:])
}

// String implements the fmt.Stringer interface for logging.
func (d Digest) String() string {
	return hexutil.Encode(d[:])
}

// IsZero reports whether every byte of the digest is zero.
func (d Digest) IsZero() bool {
	return d == ZeroDigest
}

// MarshalText implements encoding.TextMarshaler.
func (d Digest) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Digest) UnmarshalText(text []byte) error {
	v, err := ToDigest(string(text))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// =============================================================================

// PublicKey represents an Ed25519 public key. It is the identity of an
// account on the ledger.
type PublicKey [PublicKeyLength]byte

// ZeroPublicKey is the sender of every coinbase transaction.
var ZeroPublicKey PublicKey

// ToPublicKey converts a hex-encoded string, with or without the 0x prefix,
// into a public key.
func ToPublicKey(hex string) (PublicKey, error) {
	var pk PublicKey
	if err := decodeFixed(hex, pk[:]); err != nil {
		return PublicKey{}, fmt.Errorf("public key: %w", err)
	}
	return pk, nil
}

// String implements the fmt.Stringer interface for logging.
func (pk PublicKey) String() string {
	return hexutil.Encode(pk[:])
}

// IsZero reports whether every byte of the key is zero.
func (pk PublicKey) IsZero() bool {
	return pk == ZeroPublicKey
}

// MarshalText implements encoding.TextMarshaler.
func (pk PublicKey) MarshalText() ([]byte, error) {
	return []byte(pk.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (pk *PublicKey) UnmarshalText(text []byte) error {
	v, err := ToPublicKey(string(text))
	if err != nil {
		return err
	}
	*pk = v
	return nil
}

// =============================================================================

// Signature represents an Ed25519 signature.
type Signature [SignatureLength]byte

// ZeroSignature is the signature carried by every coinbase transaction.
var ZeroSignature Signature

// ToSignature converts a hex-encoded string, with or without the 0x prefix,
// into a signature.
func ToSignature(hex string) (Signature, error) {
	var sig Signature
	if err := decodeFixed(hex, sig[:]); err != nil {
		return Signature{}, fmt.Errorf("signature: %w", err)
	}
	return sig, nil
}

// String implements the fmt.Stringer interface for logging.
func (sig Signature) String() string {
	return hexutil.Encode(sig[:])
}

// MarshalText implements encoding.TextMarshaler.
func (sig Signature) MarshalText() ([]byte, error) {
	return []byte(sig.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (sig *Signature) UnmarshalText(text []byte) error {
	v, err := ToSignature(string(text))
	if err != nil {
		return err
	}
	*sig = v
	return nil
}

// =============================================================================

// Sign uses the specified private key to sign the message.
func Sign(privateKey ed25519.PrivateKey, message []byte) Signature {
	var sig Signature
	copy(sig[:], ed25519.Sign(privateKey, message))

	return sig
}

// Verify reports whether sig is a valid signature of message by the
// specified public key.
func Verify(pk PublicKey, message []byte, sig Signature) bool {
	return ed25519.Verify(ed25519.PublicKey(pk[:]), message, sig[:])
}

// =============================================================================

// decodeFixed decodes the hex string into dst and fails unless the decoded
// value has exactly the length of dst.
func decodeFixed(hex string, dst []byte) error {
	if !has0xPrefix(hex) {
		hex = "0x" + hex
	}

	b, err := hexutil.Decode(hex)
	if err != nil {
		return err
	}

	if len(b) != len(dst) {
		return fmt.Errorf("%w: got %d bytes, exp %d", ErrInvalidLength, len(b), len(dst))
	}
	copy(dst, b)

	return nil
}

// has0xPrefix validates the value starts with a 0x.
func has0xPrefix(s string) bool {
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}
