// Package worker serializes the mining for a node. Mining requests are
// handled one block at a time and, when configured, blocks are minted on an
// interval.
package worker

import (
	"sync"
	"time"

	"github.com/vxoid/rbc/foundation/blockchain/database"
	"github.com/vxoid/rbc/foundation/blockchain/ledger"
	"github.com/vxoid/rbc/foundation/blockchain/signature"
)

// DefaultMaxTxPerBlock is used when no limit is configured.
const DefaultMaxTxPerBlock = 100

// Config represents the configuration required to run a worker.
type Config struct {
	Ledger *ledger.Ledger

	// Miner receives the coinbase of every block this worker mines.
	Miner signature.PublicKey

	MaxTxPerBlock int

	// MintInterval mines a coinbase only block every interval. Zero turns
	// it off.
	MintInterval time.Duration

	EvHandler database.EventHandler
}

// Worker manages the POW workflows for the node.
type Worker struct {
	ledger        *ledger.Ledger
	miner         signature.PublicKey
	maxTxPerBlock int
	mintInterval  time.Duration
	evHandler     database.EventHandler

	wg     sync.WaitGroup
	mining sync.Mutex
	shut   chan struct{}
}

// Run creates a worker and starts up all the background processes.
func Run(cfg Config) *Worker {
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	maxTx := cfg.MaxTxPerBlock
	if maxTx <= 0 {
		maxTx = DefaultMaxTxPerBlock
	}

	w := Worker{
		ledger:        cfg.Ledger,
		miner:         cfg.Miner,
		maxTxPerBlock: maxTx,
		mintInterval:  cfg.MintInterval,
		evHandler:     ev,
		shut:          make(chan struct{}),
	}

	// Load the set of operations we need to run.
	var operations []func()
	if w.mintInterval > 0 {
		operations = append(operations, w.mintOperations)
	}

	// Set waitgroup to match the number of G's we need for the set
	// of operations we have.
	g := len(operations)
	w.wg.Add(g)

	// We don't want to return until we know all the G's are up and running.
	hasStarted := make(chan bool)

	for _, op := range operations {
		go func(op func()) {
			defer w.wg.Done()
			hasStarted <- true
			op()
		}(op)
	}

	for i := 0; i < g; i++ {
		<-hasStarted
	}

	return &w
}

// Shutdown terminates the goroutines performing work. A block being mined
// is finished first.
func (w *Worker) Shutdown() {
	w.evHandler("worker: shutdown: started")
	defer w.evHandler("worker: shutdown: completed")

	w.evHandler("worker: shutdown: terminate goroutines")
	close(w.shut)
	w.wg.Wait()
}

// =============================================================================

// isShutdown is used to test if a shutdown has been signaled.
func (w *Worker) isShutdown() bool {
	select {
	case <-w.shut:
		return true
	default:
		return false
	}
}
