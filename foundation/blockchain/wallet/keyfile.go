package wallet

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/vxoid/rbc/foundation/blockchain/signature"
	"golang.org/x/crypto/argon2"
)

// Parameters for deriving the key file encryption key from a passphrase.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
	saltLength   = 16
)

// ErrPassphrase is returned when an encrypted key file can't be opened with
// the provided passphrase.
var ErrPassphrase = errors.New("could not decrypt key file, wrong passphrase?")

// Save writes the wallet seed to the specified file as hex.
func (w *Wallet) Save(path string) error {
	data := hexutil.Encode(w.Seed())[2:]
	return os.WriteFile(path, []byte(data), 0600)
}

// Load reads a wallet from a hex seed file written by Save.
func Load(path string) (*Wallet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	seed, err := hexutil.Decode("0x" + strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("decoding key file %s: %w", path, err)
	}

	return FromSeed(seed)
}

// =============================================================================

// encryptedKey is the on disk form of a passphrase protected wallet.
type encryptedKey struct {
	PublicKey  signature.PublicKey `json:"public_key"`
	Salt       hexutil.Bytes       `json:"salt"`
	Nonce      hexutil.Bytes       `json:"nonce"`
	Ciphertext hexutil.Bytes       `json:"ciphertext"`
}

// SaveEncrypted writes the wallet seed to the specified file encrypted with
// a key derived from the passphrase using argon2id.
func (w *Wallet) SaveEncrypted(path string, passphrase string) error {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return err
	}

	aead, err := newAEAD(passphrase, salt)
	if err != nil {
		return err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return err
	}

	ek := encryptedKey{
		PublicKey:  w.publicKey,
		Salt:       salt,
		Nonce:      nonce,
		Ciphertext: aead.Seal(nil, nonce, w.Seed(), w.publicKey[:]),
	}

	data, err := json.MarshalIndent(ek, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// LoadEncrypted reads a wallet from a key file written by SaveEncrypted.
func LoadEncrypted(path string, passphrase string) (*Wallet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var ek encryptedKey
	if err := json.Unmarshal(data, &ek); err != nil {
		return nil, fmt.Errorf("decoding key file %s: %w", path, err)
	}

	aead, err := newAEAD(passphrase, ek.Salt)
	if err != nil {
		return nil, err
	}

	if len(ek.Nonce) != aead.NonceSize() {
		return nil, fmt.Errorf("decoding key file %s: bad nonce length %d", path, len(ek.Nonce))
	}

	seed, err := aead.Open(nil, ek.Nonce, ek.Ciphertext, ek.PublicKey[:])
	if err != nil {
		return nil, ErrPassphrase
	}

	w, err := FromSeed(seed)
	if err != nil {
		return nil, err
	}

	if w.PublicKey() != ek.PublicKey {
		return nil, fmt.Errorf("key file %s: public key doesn't match the seed", path)
	}

	return w, nil
}

// newAEAD derives the encryption key and builds the AES-GCM cipher.
func newAEAD(passphrase string, salt []byte) (cipher.AEAD, error) {
	key := argon2.IDKey([]byte(passphrase), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	return cipher.NewGCM(block)
}
