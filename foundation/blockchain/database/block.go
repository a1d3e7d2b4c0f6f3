package database

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/vxoid/rbc/foundation/blockchain/signature"
)

// MiningReward is the value of the coinbase transaction that opens every
// mined block.
const MiningReward uint32 = 50

// MaxDifficulty is the number of hex characters in a digest. A difficulty
// above it can never be solved.
const MaxDifficulty = signature.DigestLength * 2

// Set of errors returned when a block's transactions break the rules.
var (
	ErrMissingCoinbase  = errors.New("first transaction in the block must be a coinbase")
	ErrCoinbaseReward   = errors.New("the coinbase gives more or less than the mining reward")
	ErrInvalidCoinbase  = errors.New("the coinbase must have a zero sender and signature")
	ErrExtraCoinbase    = errors.New("there can be only 1 coinbase in the block")
	ErrInvalidSignature = errors.New("transaction signature is invalid")
	ErrDifficulty       = errors.New("difficulty can't be solved")
)

// =============================================================================

// BlockHeader represents common information required for each block.
type BlockHeader struct {
	PrevBlockHash signature.Digest `json:"prev_block_hash"` // Hash of the previous block in the chain.
	TimeStamp     uint64           `json:"timestamp"`       // Nanoseconds since the epoch the block was created.
	Hash          signature.Digest `json:"hash"`            // Digest found by the proof of work.
	Difficulty    uint64           `json:"difficulty"`      // Number of leading hex 0's needed to solve the hash.
	Nonce         uint64           `json:"nonce"`           // Value identified to solve the hash solution.
}

// Block represents a group of transactions batched together. The block's
// position in the chain is not stored and comes from the store.
type Block struct {
	Header BlockHeader `json:"header"`
	Trans  []Tx        `json:"trans"`
}

// POWArgs are the values required to seal a block.
type POWArgs struct {
	Difficulty    uint64
	PrevBlockHash signature.Digest
	Trans         []Tx
	Clock         Clock
	EvHandler     EventHandler
}

// POW constructs a block holding exactly the specified transactions and
// performs the work to find a nonce that solves the puzzle. It blocks until
// a solution is found.
func POW(args POWArgs) (Block, error) {
	if args.Difficulty > MaxDifficulty {
		return Block{}, fmt.Errorf("%w: %d, max %d", ErrDifficulty, args.Difficulty, MaxDifficulty)
	}

	timeStamp, err := Now(args.Clock)
	if err != nil {
		return Block{}, err
	}

	trans := make([]Tx, len(args.Trans))
	copy(trans, args.Trans)

	b := Block{
		Header: BlockHeader{
			PrevBlockHash: args.PrevBlockHash,
			TimeStamp:     timeStamp,
			Difficulty:    args.Difficulty,
			Nonce:         0,
		},
		Trans: trans,
	}

	b.performPOW(args.EvHandler)

	return b, nil
}

// NewGenesisBlock constructs the first block of a chain. It has no
// transactions and points at the zero digest.
func NewGenesisBlock(difficulty uint64, clock Clock, ev EventHandler) (Block, error) {
	return POW(POWArgs{
		Difficulty:    difficulty,
		PrevBlockHash: signature.ZeroDigest,
		Clock:         clock,
		EvHandler:     ev,
	})
}

// NewBlock constructs a block on top of prevHash. A coinbase paying the
// miner the mining reward is placed ahead of the specified transactions.
func NewBlock(miner signature.PublicKey, trans []Tx, prevHash signature.Digest, difficulty uint64, clock Clock, ev EventHandler) (Block, error) {
	all := make([]Tx, 0, len(trans)+1)
	all = append(all, NewCoinbaseTx(miner, MiningReward))
	all = append(all, trans...)

	return POW(POWArgs{
		Difficulty:    difficulty,
		PrevBlockHash: prevHash,
		Trans:         all,
		Clock:         clock,
		EvHandler:     ev,
	})
}

// performPOW does the work of mining to find a valid hash for the block.
// Pointer semantics are being used since a nonce is being discovered.
func (b *Block) performPOW(ev EventHandler) {
	ev.emit("database: performPOW: MINING: started: difficulty[%d] txs[%d]", b.Header.Difficulty, len(b.Trans))

	var attempts uint64
	for {
		attempts++
		if attempts%1_000_000 == 0 {
			ev.emit("database: performPOW: MINING: attempts[%d]", attempts)
		}

		hash := b.CreateHash()
		if !IsHashSolved(b.Header.Difficulty, hash) {
			b.Header.Nonce++
			continue
		}

		b.Header.Hash = hash

		ev.emit("database: performPOW: MINING: SOLVED: prevBlk[%s]: newBlk[%s]: attempts[%d]", b.Header.PrevBlockHash, hash, attempts)
		return
	}
}

// CreateHash recomputes the block digest from the header fields and the
// transactions. The stored hash isn't an input.
func (b Block) CreateHash() signature.Digest {
	h := b.Header

	buf := make([]byte, 0, 16+8+8+16+signature.DigestLength+len(b.Trans)*TxRecordSize)
	buf = appendUint128(buf, h.Nonce)
	buf = binary.LittleEndian.AppendUint64(buf, h.Difficulty)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(b.Trans)))
	buf = appendUint128(buf, h.TimeStamp)
	buf = append(buf, h.PrevBlockHash[:]...)

	for _, tx := range b.Trans {
		buf = tx.appendRecord(buf)
	}

	return signature.Hash(buf)
}

// IsHashSolved checks the hash complies with the proof of work rules: its
// hex form must start with difficulty 0's.
func IsHashSolved(difficulty uint64, hash signature.Digest) bool {
	if difficulty > MaxDifficulty {
		return false
	}

	hex := hash.Hex()
	for i := uint64(0); i < difficulty; i++ {
		if hex[i] != '0' {
			return false
		}
	}

	return true
}

// IsGenesis reports whether the block looks like the first block of a chain.
func (b Block) IsGenesis() bool {
	return b.Header.PrevBlockHash.IsZero()
}

// ValidateTransactions checks the block's transactions follow the rules. A
// block without transactions is valid. Otherwise the first transaction must
// be a coinbase paying exactly the mining reward with a zero sender and
// signature, no other transaction can be a coinbase and every other
// transaction must carry a valid signature.
func (b Block) ValidateTransactions() error {
	if len(b.Trans) == 0 {
		return nil
	}

	coinbase := b.Trans[0]
	if !coinbase.IsCoinbase {
		return ErrMissingCoinbase
	}

	if coinbase.Value != MiningReward {
		return fmt.Errorf("%w: got %d, exp %d", ErrCoinbaseReward, coinbase.Value, MiningReward)
	}

	if !coinbase.Sender.IsZero() || coinbase.Signature != signature.ZeroSignature {
		return fmt.Errorf("%s (%s): %w", coinbase, FormatTime(b.Header.TimeStamp), ErrInvalidCoinbase)
	}

	for _, tx := range b.Trans[1:] {
		if tx.IsCoinbase {
			return fmt.Errorf("%s (%s), %w", tx, FormatTime(b.Header.TimeStamp), ErrExtraCoinbase)
		}

		if !tx.IsValid() {
			return fmt.Errorf("%s (%s): %w", tx, FormatTime(b.Header.TimeStamp), ErrInvalidSignature)
		}
	}

	return nil
}

// HasValidTransactions is the predicate form of ValidateTransactions. The
// reason for a failure is narrated through ev when one is provided.
func (b Block) HasValidTransactions(ev EventHandler) bool {
	if err := b.ValidateTransactions(); err != nil {
		ev.emit("database: HasValidTransactions: %s", err)
		return false
	}

	return true
}
