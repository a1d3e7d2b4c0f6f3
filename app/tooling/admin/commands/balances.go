// Package commands contains the functionality for the set of commands
// currently supported by the admin tool.
package commands

import (
	"fmt"
	"sort"

	"github.com/pterm/pterm"
	"github.com/vxoid/rbc/foundation/blockchain/ledger"
	"github.com/vxoid/rbc/foundation/blockchain/signature"
	"github.com/vxoid/rbc/foundation/nameservice"
)

// Balances prints the current balance of every account, or of the one
// specified by name or public key.
func Balances(account string, l *ledger.Ledger, ns *nameservice.NameService) error {
	latest, err := l.LatestBlock()
	if err != nil {
		return err
	}

	pterm.Info.Printfln("Latest block: %s  Blocks: %d", latest.Header.Hash, l.Len())

	bals := make(map[signature.PublicKey]uint64)
	switch account {
	case "":
		sheet, err := l.Balances()
		if err != nil {
			return err
		}
		bals = sheet.Copy()

	default:
		pk, err := resolve(ns, account)
		if err != nil {
			return err
		}

		bal, err := l.BalanceOf(pk)
		if err != nil {
			return err
		}
		bals[pk] = bal
	}

	data := pterm.TableData{{"Account", "Name", "Balance"}}
	for pk, bal := range bals {
		data = append(data, []string{pk.String(), lookup(ns, pk), fmt.Sprint(bal)})
	}
	sort.Slice(data[1:], func(i, j int) bool { return data[i+1][0] < data[j+1][0] })

	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

// =============================================================================

func lookup(ns *nameservice.NameService, pk signature.PublicKey) string {
	if ns == nil {
		return ""
	}
	if name := ns.Lookup(pk); name != pk.String() {
		return name
	}
	return ""
}

func resolve(ns *nameservice.NameService, account string) (signature.PublicKey, error) {
	if ns == nil {
		return signature.ToPublicKey(account)
	}
	return ns.Resolve(account)
}
