package ledger

import (
	"fmt"

	"github.com/vxoid/rbc/foundation/blockchain/database"
)

// Validate checks the whole chain in two passes. The first checks every
// block on its own: its transactions follow the rules and its stored hash is
// the hash of its content. The second checks every block points at the one
// before it. The first problem found is returned.
func (l *Ledger) Validate() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.validate()
}

// IsValid is the predicate form of Validate. When verbose is set the reason
// a chain is invalid is narrated.
func (l *Ledger) IsValid(verbose bool) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.validate(); err != nil {
		if verbose {
			l.evHandler("ledger: IsValid: %s", err)
		}
		return false
	}

	return true
}

func (l *Ledger) validate() error {
	var pos uint64
	err := l.log.ForEach(func(block database.Block) error {
		defer func() { pos++ }()

		if err := block.ValidateTransactions(); err != nil {
			return fmt.Errorf("%w: block[%d]: %w", ErrInvalidTransactions, pos, err)
		}

		hash := block.CreateHash()
		if hash != block.Header.Hash {
			return fmt.Errorf("%w: block[%d] (%s): stored[%s] computed[%s]", ErrHashMismatch, pos, database.FormatTime(block.Header.TimeStamp), block.Header.Hash, hash)
		}

		if !database.IsHashSolved(block.Header.Difficulty, hash) {
			return fmt.Errorf("%w: block[%d] (%s): hash[%s] difficulty[%d]", ErrNotSolved, pos, database.FormatTime(block.Header.TimeStamp), hash, block.Header.Difficulty)
		}

		return nil
	})
	if err != nil {
		return err
	}

	var prev database.Block
	pos = 0
	err = l.log.ForEach(func(block database.Block) error {
		defer func() {
			prev = block
			pos++
		}()

		if pos == 0 {
			return nil
		}

		if block.Header.PrevBlockHash != prev.Header.Hash {
			return fmt.Errorf("%w: block[%d] (%s): prev[%s] exp[%s]", ErrBrokenLink, pos, database.FormatTime(block.Header.TimeStamp), block.Header.PrevBlockHash, prev.Header.Hash)
		}

		return nil
	})
	if err != nil {
		return err
	}

	if pos == 0 {
		return ErrNoGenesis
	}

	return nil
}
