package commands

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/vxoid/rbc/foundation/blockchain/database"
	"github.com/vxoid/rbc/foundation/blockchain/ledger"
	"github.com/vxoid/rbc/foundation/blockchain/wallet"
)

// mintValue is what the miner of each minted block sends to a new account.
const mintValue = 10

// Mint mines blocks until the chain stops being valid or n blocks have been
// added. Zero means no limit. Each block is mined by a new wallet that
// sends part of its reward to another new wallet.
func Mint(n uint64, l *ledger.Ledger) error {
	for i := uint64(0); n == 0 || i < n; i++ {
		owner, err := wallet.New(wallet.RandomSeed())
		if err != nil {
			return fmt.Errorf("creating wallet: %w", err)
		}

		receiver, err := wallet.New(wallet.RandomSeed())
		if err != nil {
			return fmt.Errorf("creating wallet: %w", err)
		}

		tx := database.NewTx(owner, receiver.PublicKey(), mintValue)

		block, err := l.Mine(owner.PublicKey(), []database.Tx{tx})
		if err != nil {
			return fmt.Errorf("mining block: %w", err)
		}

		pterm.Info.Printfln("block %d: %s (%s)", l.Len()-1, block.Header.Hash, database.FormatTime(block.Header.TimeStamp))
		pterm.Printfln("  %s", tx)

		if err := l.Validate(); err != nil {
			pterm.Error.Printfln("blockchain is invalid: %s", err)
			return ErrInvalidChain
		}
	}

	pterm.Success.Printfln("blockchain is valid: %d blocks", l.Len())
	return nil
}
