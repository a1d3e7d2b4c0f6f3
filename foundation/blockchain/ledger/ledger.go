// Package ledger is the core API for the blockchain. It owns the block log
// and implements the rules for extending, accounting and validating the
// chain it holds.
package ledger

import (
	"errors"
	"fmt"
	"sync"

	"github.com/vxoid/rbc/foundation/blockchain/balance"
	"github.com/vxoid/rbc/foundation/blockchain/database"
	"github.com/vxoid/rbc/foundation/blockchain/signature"
	"github.com/vxoid/rbc/foundation/blockchain/storage"
)

// DefaultDifficulty is used when no difficulty is configured.
const DefaultDifficulty uint64 = 2

// Set of errors returned by the ledger.
var (
	ErrNoGenesis           = errors.New("chain has no genesis block")
	ErrHashMismatch        = errors.New("stored hash doesn't match the block")
	ErrNotSolved           = errors.New("stored hash doesn't solve the block's difficulty")
	ErrBrokenLink          = errors.New("block doesn't point at the previous block")
	ErrInvalidTransactions = errors.New("block has invalid transactions")
	ErrInsufficientFunds   = balance.ErrInsufficientFunds
)

// =============================================================================

// Config represents the configuration required to load a ledger.
type Config struct {
	Path string

	// Difficulty is the number of leading hex 0's every block mined by this
	// ledger must have. Zero selects DefaultDifficulty.
	Difficulty uint64

	// Strict fails on unreadable records instead of treating them as the end
	// of the chain.
	Strict bool

	Clock     database.Clock
	EvHandler database.EventHandler
}

// Ledger manages the chain of blocks stored in a block log.
type Ledger struct {
	difficulty uint64
	clock      database.Clock
	evHandler  database.EventHandler
	mu         sync.Mutex

	log *storage.Log
}

// Load opens the block log at the configured path. A log without blocks is
// started by mining a genesis block into it.
func Load(cfg Config) (*Ledger, error) {
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	difficulty := cfg.Difficulty
	if difficulty == 0 {
		difficulty = DefaultDifficulty
	}
	if difficulty > database.MaxDifficulty {
		return nil, fmt.Errorf("%w: %d, max %d", database.ErrDifficulty, difficulty, database.MaxDifficulty)
	}

	log, err := storage.Open(storage.Config{
		Path:      cfg.Path,
		Strict:    cfg.Strict,
		EvHandler: ev,
	})
	if err != nil {
		return nil, err
	}

	l := Ledger{
		difficulty: difficulty,
		clock:      cfg.Clock,
		evHandler:  ev,
		log:        log,
	}

	if log.Len() == 0 {
		ev("ledger: Load: empty chain: mining genesis: difficulty[%d]", difficulty)

		genesis, err := database.NewGenesisBlock(difficulty, cfg.Clock, ev)
		if err != nil {
			log.Close()
			return nil, fmt.Errorf("mining genesis: %w", err)
		}

		if err := log.Push(genesis); err != nil {
			log.Close()
			return nil, fmt.Errorf("writing genesis: %w", err)
		}
	}

	ev("ledger: Load: path[%s] blocks[%d] difficulty[%d]", cfg.Path, log.Len(), difficulty)

	return &l, nil
}

// Close releases the block log.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.log.Close()
}

// Len returns the number of blocks in the chain.
func (l *Ledger) Len() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.log.Len()
}

// Difficulty returns the difficulty blocks are mined with.
func (l *Ledger) Difficulty() uint64 {
	return l.difficulty
}

// Mine seals a new block on top of the latest block and appends it. The
// miner is paid the mining reward ahead of the specified transactions,
// which aren't checked against balances.
func (l *Ledger) Mine(miner signature.PublicKey, trans []database.Tx) (database.Block, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tip, found, err := l.log.LastBlock()
	if err != nil {
		return database.Block{}, err
	}
	if !found {
		return database.Block{}, ErrNoGenesis
	}

	l.evHandler("ledger: Mine: started: miner[%s] txs[%d] prevBlk[%s]", miner, len(trans), tip.Header.Hash)

	block, err := database.NewBlock(miner, trans, tip.Header.Hash, l.difficulty, l.clock, l.evHandler)
	if err != nil {
		return database.Block{}, err
	}

	if err := l.log.Push(block); err != nil {
		return database.Block{}, err
	}

	l.evHandler("ledger: Mine: completed: blk[%s] blocks[%d]", block.Header.Hash, l.log.Len())

	return block, nil
}
