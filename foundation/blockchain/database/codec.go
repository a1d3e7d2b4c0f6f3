package database

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/vxoid/rbc/foundation/blockchain/signature"
)

/*
	Records are packed, little endian and fixed width. A block is stored as

		header  prev hash 32 | timestamp 16 | hash 32 | difficulty 8 | nonce 16
		count   8
		tx      value 4 | sender 32 | receiver 32 | signature 64 | coinbase 1  (x count)

	Timestamp and nonce are 128 bit fields on disk. The upper 64 bits are
	always written as zero and a record with any of them set is rejected.
*/

// CodecVersion identifies the record layout described above. It isn't
// written to the store.
const CodecVersion = 1

// Sizes of the fixed width records.
const (
	TxRecordSize     = 4 + signature.PublicKeyLength*2 + signature.SignatureLength + 1
	HeaderRecordSize = signature.DigestLength + 16 + signature.DigestLength + 8 + 16
	CountSize        = 8
	BlockPrefixSize  = HeaderRecordSize + CountSize
)

// maxPrealloc bounds how many transactions are allocated up front from a
// count read off disk, since a corrupted count can be arbitrarily large.
const maxPrealloc = 1024

// Set of errors returned when a record can't be decoded.
var (
	ErrShortRecord = errors.New("record is shorter than its fixed size")
	ErrOverflow    = errors.New("128 bit field doesn't fit in 64 bits")
)

// =============================================================================

// MarshalBinary implements encoding.BinaryMarshaler.
func (tx Tx) MarshalBinary() ([]byte, error) {
	return tx.appendRecord(make([]byte, 0, TxRecordSize)), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler. The data must be
// exactly one transaction record.
func (tx *Tx) UnmarshalBinary(data []byte) error {
	if len(data) != TxRecordSize {
		return fmt.Errorf("%w: transaction got %d bytes, exp %d", ErrShortRecord, len(data), TxRecordSize)
	}

	tx.Value = binary.LittleEndian.Uint32(data[0:4])
	data = data[4:]
	copy(tx.Sender[:], data[:signature.PublicKeyLength])
	data = data[signature.PublicKeyLength:]
	copy(tx.Receiver[:], data[:signature.PublicKeyLength])
	data = data[signature.PublicKeyLength:]
	copy(tx.Signature[:], data[:signature.SignatureLength])
	data = data[signature.SignatureLength:]
	tx.IsCoinbase = data[0] != 0

	return nil
}

// appendRecord appends the fixed record for the transaction to b.
func (tx Tx) appendRecord(b []byte) []byte {
	b = binary.LittleEndian.AppendUint32(b, tx.Value)
	b = append(b, tx.Sender[:]...)
	b = append(b, tx.Receiver[:]...)
	b = append(b, tx.Signature[:]...)
	return append(b, boolByte(tx.IsCoinbase))
}

// ReadTx reads exactly one transaction record from r.
func ReadTx(r io.Reader) (Tx, error) {
	var buf [TxRecordSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return Tx{}, readErr("transaction", err)
	}

	var tx Tx
	if err := tx.UnmarshalBinary(buf[:]); err != nil {
		return Tx{}, err
	}

	return tx, nil
}

// =============================================================================

// MarshalBinary implements encoding.BinaryMarshaler. It produces the full
// stored form: header, transaction count and transaction records.
func (b Block) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 0, BlockPrefixSize+len(b.Trans)*TxRecordSize)

	h := b.Header
	buf = append(buf, h.PrevBlockHash[:]...)
	buf = appendUint128(buf, h.TimeStamp)
	buf = append(buf, h.Hash[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, h.Difficulty)
	buf = appendUint128(buf, h.Nonce)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(b.Trans)))

	for _, tx := range b.Trans {
		buf = tx.appendRecord(buf)
	}

	return buf, nil
}

// ReadBlock reads one block from r. It returns io.EOF only when r has no
// bytes left at all; anything less than a complete block is ErrShortRecord.
func ReadBlock(r io.Reader) (Block, error) {
	var buf [BlockPrefixSize]byte
	n, err := io.ReadFull(r, buf[:])
	switch {
	case n == 0 && errors.Is(err, io.EOF):
		return Block{}, io.EOF
	case err != nil:
		return Block{}, readErr("block header", err)
	}

	data := buf[:]

	var h BlockHeader
	copy(h.PrevBlockHash[:], data[:signature.DigestLength])
	data = data[signature.DigestLength:]

	if h.TimeStamp, err = uint128(data[:16]); err != nil {
		return Block{}, fmt.Errorf("timestamp: %w", err)
	}
	data = data[16:]

	copy(h.Hash[:], data[:signature.DigestLength])
	data = data[signature.DigestLength:]

	h.Difficulty = binary.LittleEndian.Uint64(data[:8])
	data = data[8:]

	if h.Nonce, err = uint128(data[:16]); err != nil {
		return Block{}, fmt.Errorf("nonce: %w", err)
	}
	data = data[16:]

	count := binary.LittleEndian.Uint64(data[:CountSize])

	trans := make([]Tx, 0, min(count, maxPrealloc))
	for i := uint64(0); i < count; i++ {
		tx, err := ReadTx(r)
		if err != nil {
			return Block{}, fmt.Errorf("tx[%d] of %d: %w", i, count, err)
		}
		trans = append(trans, tx)
	}

	return Block{Header: h, Trans: trans}, nil
}

// =============================================================================

// appendUint128 appends v as a 128 bit little endian value.
func appendUint128(b []byte, v uint64) []byte {
	b = binary.LittleEndian.AppendUint64(b, v)
	return binary.LittleEndian.AppendUint64(b, 0)
}

// uint128 decodes a 128 bit little endian value that must fit in 64 bits.
func uint128(b []byte) (uint64, error) {
	if binary.LittleEndian.Uint64(b[8:16]) != 0 {
		return 0, ErrOverflow
	}
	return binary.LittleEndian.Uint64(b[:8]), nil
}

// readErr maps a short read onto ErrShortRecord.
func readErr(what string, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %s", ErrShortRecord, what)
	}
	return fmt.Errorf("reading %s: %w", what, err)
}

// boolByte encodes a bool as a single byte.
func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}
