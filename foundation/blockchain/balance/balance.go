// Package balance maintains account balances in memory while a chain is
// being accounted.
package balance

import (
	"errors"
	"fmt"
	"sync"

	"github.com/vxoid/rbc/foundation/blockchain/database"
	"github.com/vxoid/rbc/foundation/blockchain/signature"
)

// ErrInsufficientFunds is returned when a transaction would drive the
// sender's balance below zero.
var ErrInsufficientFunds = errors.New("insufficient funds")

// =============================================================================

// Sheet represents the data representation to maintain account balances.
type Sheet struct {
	sheet map[signature.PublicKey]uint64
	mu    sync.RWMutex
}

// NewSheet constructs a new, empty balance sheet for use.
func NewSheet() *Sheet {
	return &Sheet{
		sheet: make(map[signature.PublicKey]uint64),
	}
}

// Balance returns the balance of the account.
func (bs *Sheet) Balance(pk signature.PublicKey) uint64 {
	bs.mu.RLock()
	defer bs.mu.RUnlock()

	return bs.sheet[pk]
}

// Copy makes a copy of the current balance sheet but returns the raw data.
func (bs *Sheet) Copy() map[signature.PublicKey]uint64 {
	bs.mu.RLock()
	defer bs.mu.RUnlock()

	sheet := make(map[signature.PublicKey]uint64, len(bs.sheet))
	for pk, value := range bs.sheet {
		sheet[pk] = value
	}
	return sheet
}

// ApplyTransaction performs the business logic for applying a transaction
// to the balance sheet. It fails if the sender doesn't hold enough.
func (bs *Sheet) ApplyTransaction(tx database.Tx) error {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	return apply(bs.sheet, tx)
}

// ApplyBlock applies every transaction in the block. Nothing is applied when
// any of them fails.
func (bs *Sheet) ApplyBlock(block database.Block) error {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	staged := make(map[signature.PublicKey]uint64)
	read := func(pk signature.PublicKey) {
		if _, exists := staged[pk]; !exists {
			staged[pk] = bs.sheet[pk]
		}
	}

	for _, tx := range block.Trans {
		if !tx.IsCoinbase {
			read(tx.Sender)
		}
		read(tx.Receiver)

		if err := apply(staged, tx); err != nil {
			return err
		}
	}

	for pk, value := range staged {
		bs.sheet[pk] = value
	}

	return nil
}

// apply credits or debits the accounts touched by the transaction. An
// account that is both sender and receiver is only credited, matching the
// receiver first rule used when a single account is accounted.
func apply(sheet map[signature.PublicKey]uint64, tx database.Tx) error {
	value := uint64(tx.Value)

	if !tx.IsCoinbase && tx.Sender != tx.Receiver {
		if value > sheet[tx.Sender] {
			return fmt.Errorf("%w: can't subtract %d from %d for %s", ErrInsufficientFunds, value, sheet[tx.Sender], tx.Sender)
		}
		sheet[tx.Sender] -= value
	}

	sheet[tx.Receiver] += value

	return nil
}
