package commands

import (
	"errors"

	"github.com/pterm/pterm"
	"github.com/vxoid/rbc/foundation/blockchain/ledger"
)

// ErrInvalidChain is returned when validation fails so the tool exits with
// an error.
var ErrInvalidChain = errors.New("chain is invalid")

// Validate walks the whole chain and prints the result.
func Validate(l *ledger.Ledger) error {
	if err := l.Validate(); err != nil {
		pterm.Error.Printfln("blockchain is invalid: %s", err)
		return ErrInvalidChain
	}

	pterm.Success.Printfln("blockchain is valid: %d blocks", l.Len())
	return nil
}
