package database

import (
	"encoding/binary"
	"fmt"

	"github.com/vxoid/rbc/foundation/blockchain/signature"
)

// Signer represents the behavior required to sign a transaction. The
// wallet package provides the implementation.
type Signer interface {
	PublicKey() signature.PublicKey
	Sign(message []byte) signature.Signature
}

// =============================================================================

// Tx is a value transfer between two accounts. A coinbase transaction mints
// the block reward and carries a zero sender and a zero signature.
type Tx struct {
	Value      uint32              `json:"value"`
	Sender     signature.PublicKey `json:"sender"`
	Receiver   signature.PublicKey `json:"receiver"`
	Signature  signature.Signature `json:"signature"`
	IsCoinbase bool                `json:"is_coinbase"`
}

// NewCoinbaseTx constructs the transaction crediting a miner with value.
func NewCoinbaseTx(receiver signature.PublicKey, value uint32) Tx {
	return Tx{
		Value:      value,
		Sender:     signature.ZeroPublicKey,
		Receiver:   receiver,
		Signature:  signature.ZeroSignature,
		IsCoinbase: true,
	}
}

// NewTx constructs a transfer of value from the sender to the receiver and
// signs it with the sender's private key.
func NewTx(sender Signer, receiver signature.PublicKey, value uint32) Tx {
	tx := Tx{
		Value:    value,
		Sender:   sender.PublicKey(),
		Receiver: receiver,
	}

	tx.Signature = sender.Sign(tx.SignMessage())

	return tx
}

// SignMessage returns the canonical message a transaction's signature is
// computed over: the SHA-256 of the packed value, sender, receiver and
// coinbase flag. The signature itself is not part of the message.
func (tx Tx) SignMessage() []byte {
	const size = 4 + signature.PublicKeyLength*2 + 1

	b := make([]byte, 0, size)
	b = binary.LittleEndian.AppendUint32(b, tx.Value)
	b = append(b, tx.Sender[:]...)
	b = append(b, tx.Receiver[:]...)
	b = append(b, boolByte(tx.IsCoinbase))

	digest := signature.Hash(b)
	return digest[:]
}

// IsValid reports whether the transaction carries a signature by its
// sender. Coinbase transactions are always valid.
func (tx Tx) IsValid() bool {
	if tx.IsCoinbase {
		return true
	}

	return signature.Verify(tx.Sender, tx.SignMessage(), tx.Signature)
}

// IsReceiver reports whether the specified account receives the value.
func (tx Tx) IsReceiver(pk signature.PublicKey) bool {
	return tx.Receiver == pk
}

// IsSender reports whether the specified account sends the value. A
// coinbase has no sender.
func (tx Tx) IsSender(pk signature.PublicKey) bool {
	return !tx.IsCoinbase && tx.Sender == pk
}

// String implements the fmt.Stringer interface for logging.
func (tx Tx) String() string {
	if tx.IsCoinbase {
		return fmt.Sprintf("%s mines %d", tx.Receiver, tx.Value)
	}

	return fmt.Sprintf("%s -> %s %d", tx.Sender, tx.Receiver, tx.Value)
}
