package worker_test

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/vxoid/rbc/foundation/blockchain/database"
	"github.com/vxoid/rbc/foundation/blockchain/ledger"
	"github.com/vxoid/rbc/foundation/blockchain/wallet"
	"github.com/vxoid/rbc/foundation/blockchain/worker"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Mine(t *testing.T) {
	miner := newWallet(t, 1)
	bob := newWallet(t, 2)

	l, err := ledger.Load(ledger.Config{Path: filepath.Join(t.TempDir(), "blocks.db"), Difficulty: 1})
	if err != nil {
		t.Fatalf("Should be able to load the ledger: %s", err)
	}
	defer l.Close()

	w := worker.Run(worker.Config{Ledger: l, Miner: miner.PublicKey(), MaxTxPerBlock: 2})
	defer w.Shutdown()

	t.Log("Given the need to mine requested transactions.")
	{
		// The miner can spend the reward of the block the transaction lands in.
		block, err := w.Mine([]database.Tx{database.NewTx(miner, bob.PublicKey(), 30)})
		if err != nil {
			t.Fatalf("\t%s\tShould be able to mine: %s", failed, err)
		}
		t.Logf("\t%s\tShould be able to mine.", success)

		if len(block.Trans) != 2 || !block.Trans[0].IsCoinbase {
			t.Fatalf("\t%s\tShould mine the coinbase and the transaction, got %d.", failed, len(block.Trans))
		}
		t.Logf("\t%s\tShould mine the coinbase and the transaction.", success)

		bal, err := l.BalanceOf(bob.PublicKey())
		if err != nil || bal != 30 {
			t.Fatalf("\t%s\tShould credit the receiver: %d %v", failed, bal, err)
		}
		t.Logf("\t%s\tShould credit the receiver.", success)

		if _, err := w.Mine(nil); err != nil {
			t.Fatalf("\t%s\tShould be able to mine a coinbase only block: %s", failed, err)
		}
		t.Logf("\t%s\tShould be able to mine a coinbase only block.", success)

		if !l.IsValid(false) {
			t.Fatalf("\t%s\tShould leave a valid chain.", failed)
		}
		t.Logf("\t%s\tShould leave a valid chain.", success)
	}

	t.Log("Given the need to reject bad mining requests.")
	{
		length := l.Len()

		_, err := w.Mine([]database.Tx{database.NewTx(bob, miner.PublicKey(), 100)})
		if !errors.Is(err, ledger.ErrInsufficientFunds) {
			t.Fatalf("\t%s\tShould reject an overdraft: %v", failed, err)
		}
		t.Logf("\t%s\tShould reject an overdraft.", success)

		forged := database.NewTx(bob, miner.PublicKey(), 5)
		forged.Value = 6
		if _, err := w.Mine([]database.Tx{forged}); !errors.Is(err, worker.ErrInvalidTransaction) {
			t.Fatalf("\t%s\tShould reject a forged transaction: %v", failed, err)
		}
		t.Logf("\t%s\tShould reject a forged transaction.", success)

		coinbase := database.NewCoinbaseTx(bob.PublicKey(), database.MiningReward)
		if _, err := w.Mine([]database.Tx{coinbase}); !errors.Is(err, worker.ErrInvalidTransaction) {
			t.Fatalf("\t%s\tShould reject a requested coinbase: %v", failed, err)
		}
		t.Logf("\t%s\tShould reject a requested coinbase.", success)

		trans := []database.Tx{
			database.NewTx(bob, miner.PublicKey(), 1),
			database.NewTx(bob, miner.PublicKey(), 2),
			database.NewTx(bob, miner.PublicKey(), 3),
		}
		if _, err := w.Mine(trans); !errors.Is(err, worker.ErrTooManyTransactions) {
			t.Fatalf("\t%s\tShould reject too many transactions: %v", failed, err)
		}
		t.Logf("\t%s\tShould reject too many transactions.", success)

		if l.Len() != length {
			t.Fatalf("\t%s\tShould not write rejected blocks, got %d.", failed, l.Len())
		}
		t.Logf("\t%s\tShould not write rejected blocks.", success)
	}
}

func Test_Mint(t *testing.T) {
	miner := newWallet(t, 1)

	l, err := ledger.Load(ledger.Config{Path: filepath.Join(t.TempDir(), "blocks.db"), Difficulty: 1})
	if err != nil {
		t.Fatalf("Should be able to load the ledger: %s", err)
	}
	defer l.Close()

	t.Log("Given the need to mint blocks on an interval.")
	{
		w := worker.Run(worker.Config{
			Ledger:       l,
			Miner:        miner.PublicKey(),
			MintInterval: 10 * time.Millisecond,
		})

		ok := waitFor(func() bool { return l.Len() >= 3 })
		w.Shutdown()

		if !ok {
			t.Fatalf("\t%s\tShould mint blocks, got %d.", failed, l.Len())
		}
		t.Logf("\t%s\tShould mint blocks.", success)

		length := l.Len()
		time.Sleep(50 * time.Millisecond)
		if l.Len() != length {
			t.Fatalf("\t%s\tShould stop minting after shutdown.", failed)
		}
		t.Logf("\t%s\tShould stop minting after shutdown.", success)
	}
}

// =============================================================================

func waitFor(fn func() bool) bool {
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if fn() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

func newWallet(t *testing.T, seed byte) *wallet.Wallet {
	t.Helper()

	w, err := wallet.FromSeed(bytes.Repeat([]byte{seed}, wallet.SeedLength))
	if err != nil {
		t.Fatalf("Should be able to create a wallet: %s", err)
	}

	return w
}
