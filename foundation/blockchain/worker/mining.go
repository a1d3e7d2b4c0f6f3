package worker

import (
	"errors"
	"fmt"
	"time"

	"github.com/vxoid/rbc/foundation/blockchain/database"
)

// Set of error variables for mining requests.
var (
	ErrTooManyTransactions = errors.New("too many transactions for one block")
	ErrInvalidTransaction  = errors.New("invalid transaction")
)

// Mine writes a new block holding the coinbase for the miner followed by
// the specified transactions. Requests are mined one at a time in the order
// they arrive. The whole request is rejected when any transaction is not
// signed properly or can't be afforded on top of the current balances.
func (w *Worker) Mine(trans []database.Tx) (database.Block, error) {
	if len(trans) > w.maxTxPerBlock {
		return database.Block{}, fmt.Errorf("%w: got %d, max %d", ErrTooManyTransactions, len(trans), w.maxTxPerBlock)
	}

	for i, tx := range trans {
		if tx.IsCoinbase || !tx.IsValid() {
			return database.Block{}, fmt.Errorf("%w: tx[%d]: %s", ErrInvalidTransaction, i, tx)
		}
	}

	return w.runMiningOperation(trans)
}

// mintOperations mines a coinbase only block on every tick of the mint
// interval.
func (w *Worker) mintOperations() {
	w.evHandler("worker: mintOperations: G started")
	defer w.evHandler("worker: mintOperations: G completed")

	ticker := time.NewTicker(w.mintInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if w.isShutdown() {
				continue
			}

			if _, err := w.runMiningOperation(nil); err != nil {
				w.evHandler("worker: mintOperations: MINING: ERROR: %s", err)
			}

		case <-w.shut:
			w.evHandler("worker: mintOperations: received shut signal")
			return
		}
	}
}

// runMiningOperation checks the transactions against the current balances
// and writes a new block to the ledger.
func (w *Worker) runMiningOperation(trans []database.Tx) (database.Block, error) {
	w.mining.Lock()
	defer w.mining.Unlock()

	w.evHandler("worker: runMiningOperation: MINING: started: Txs[%d]", len(trans))
	defer w.evHandler("worker: runMiningOperation: MINING: completed")

	if err := w.affordable(trans); err != nil {
		return database.Block{}, err
	}

	t := time.Now()
	block, err := w.ledger.Mine(w.miner, trans)
	w.evHandler("worker: runMiningOperation: MINING: mining duration[%v]", time.Since(t))

	if err != nil {
		return database.Block{}, err
	}

	return block, nil
}

// affordable applies the coinbase the miner will receive and then each
// transaction in order on top of the current balances.
func (w *Worker) affordable(trans []database.Tx) error {
	if len(trans) == 0 {
		return nil
	}

	sheet, err := w.ledger.Balances()
	if err != nil {
		return err
	}

	if err := sheet.ApplyTransaction(database.NewCoinbaseTx(w.miner, database.MiningReward)); err != nil {
		return err
	}

	for i, tx := range trans {
		if err := sheet.ApplyTransaction(tx); err != nil {
			w.evHandler("worker: runMiningOperation: MINING: WARNING: tx[%d]: %s", i, err)
			return fmt.Errorf("tx[%d]: %w", i, err)
		}
	}

	return nil
}
