package ledger

import (
	"fmt"

	"github.com/vxoid/rbc/foundation/blockchain/balance"
	"github.com/vxoid/rbc/foundation/blockchain/database"
	"github.com/vxoid/rbc/foundation/blockchain/signature"
)

// QueryLatest represents to query the latest block in the chain.
const QueryLatest = ^uint64(0) >> 1

// BalanceOf walks the chain once and returns the account's balance. It fails
// when the account spends more than it holds at any point in the chain.
func (l *Ledger) BalanceOf(pk signature.PublicKey) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var bal uint64
	err := l.log.ForEach(func(block database.Block) error {
		for _, tx := range block.Trans {
			switch {
			case tx.IsReceiver(pk):
				bal += uint64(tx.Value)

			case tx.IsSender(pk):
				if uint64(tx.Value) > bal {
					return fmt.Errorf("%w: %s (%s): %s holds %d", ErrInsufficientFunds, tx, database.FormatTime(block.Header.TimeStamp), pk, bal)
				}
				bal -= uint64(tx.Value)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return bal, nil
}

// Balances walks the chain once and returns the balance of every account
// that appears in it.
func (l *Ledger) Balances() (*balance.Sheet, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	sheet := balance.NewSheet()
	err := l.log.ForEach(func(block database.Block) error {
		if err := sheet.ApplyBlock(block); err != nil {
			return fmt.Errorf("block %s (%s): %w", block.Header.Hash, database.FormatTime(block.Header.TimeStamp), err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return sheet, nil
}

// LatestBlock returns the last block in the chain.
func (l *Ledger) LatestBlock() (database.Block, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	block, found, err := l.log.LastBlock()
	if err != nil {
		return database.Block{}, err
	}
	if !found {
		return database.Block{}, ErrNoGenesis
	}

	return block, nil
}

// QueryBlocks returns the blocks at positions from through to inclusive. The
// genesis block is at position 0. QueryLatest can be used for either bound.
func (l *Ledger) QueryBlocks(from uint64, to uint64) ([]database.Block, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	length := l.log.Len()
	if length == 0 {
		return nil, nil
	}

	if from == QueryLatest {
		from = length - 1
	}
	if to == QueryLatest || to >= length {
		to = length - 1
	}
	if from > to {
		return nil, nil
	}

	return l.log.Blocks(from, to)
}
