package commands

import (
	"fmt"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/vxoid/rbc/foundation/blockchain/database"
	"github.com/vxoid/rbc/foundation/blockchain/ledger"
	"github.com/vxoid/rbc/foundation/nameservice"
)

// Blocks prints the blocks between from and to inclusive. An empty bound
// means the latest block.
func Blocks(from string, to string, l *ledger.Ledger, ns *nameservice.NameService) error {
	start, err := position(from)
	if err != nil {
		return err
	}

	end, err := position(to)
	if err != nil {
		return err
	}

	blocks, err := l.QueryBlocks(start, end)
	if err != nil {
		return err
	}

	if start == ledger.QueryLatest {
		start = l.Len() - 1
	}

	for i, block := range blocks {
		h := block.Header
		pterm.DefaultSection.Printfln("Block %d", start+uint64(i))
		pterm.Printfln("Hash:       %s", h.Hash)
		pterm.Printfln("Prev:       %s", h.PrevBlockHash)
		pterm.Printfln("Time:       %s", database.FormatTime(h.TimeStamp))
		pterm.Printfln("Difficulty: %d  Nonce: %d", h.Difficulty, h.Nonce)

		if len(block.Trans) == 0 {
			continue
		}

		data := pterm.TableData{{"From", "To", "Value"}}
		for _, tx := range block.Trans {
			from := "coinbase"
			if !tx.IsCoinbase {
				from = name(tx.Sender.String(), lookup(ns, tx.Sender))
			}
			data = append(data, []string{from, name(tx.Receiver.String(), lookup(ns, tx.Receiver)), fmt.Sprint(tx.Value)})
		}

		if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
			return err
		}
	}

	return nil
}

// =============================================================================

func position(s string) (uint64, error) {
	if s == "" || s == "latest" {
		return ledger.QueryLatest, nil
	}

	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid block number %q", s)
	}

	return n, nil
}

func name(account string, known string) string {
	if known != "" {
		return known
	}
	return account
}
