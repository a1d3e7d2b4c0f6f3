// Package nameservice reads a folder of key files and creates a name
// service lookup for the accounts they hold.
package nameservice

import (
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/vxoid/rbc/foundation/blockchain/signature"
	"github.com/vxoid/rbc/foundation/blockchain/wallet"
)

// KeyExt is the extension of the key files that are read.
const KeyExt = ".key"

// NameService maintains a map of accounts for name lookup.
type NameService struct {
	accounts map[signature.PublicKey]string
	names    map[string]signature.PublicKey
}

// New constructs a name service with the accounts from the key files under
// root. A file's name without its extension is the account's name.
func New(root string) (*NameService, error) {
	ns := NameService{
		accounts: make(map[signature.PublicKey]string),
		names:    make(map[string]signature.PublicKey),
	}

	fn := func(fileName string, info fs.FileInfo, err error) error {
		if err != nil {
			return fmt.Errorf("walkdir failure: %w", err)
		}

		if path.Ext(fileName) != KeyExt {
			return nil
		}

		w, err := wallet.Load(fileName)
		if err != nil {
			return fmt.Errorf("%s: %w", fileName, err)
		}

		name := strings.TrimSuffix(path.Base(fileName), KeyExt)
		ns.accounts[w.PublicKey()] = name
		ns.names[name] = w.PublicKey()

		return nil
	}

	if err := filepath.Walk(root, fn); err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	return &ns, nil
}

// Lookup returns the name for the specified account, or the account itself
// when it has no name.
func (ns *NameService) Lookup(pk signature.PublicKey) string {
	name, exists := ns.accounts[pk]
	if !exists {
		return pk.String()
	}
	return name
}

// Resolve returns the account for a name. Anything that isn't a known name
// is parsed as a public key.
func (ns *NameService) Resolve(name string) (signature.PublicKey, error) {
	if pk, exists := ns.names[name]; exists {
		return pk, nil
	}

	pk, err := signature.ToPublicKey(name)
	if err != nil {
		return signature.PublicKey{}, fmt.Errorf("%q is not a known name or a public key: %w", name, err)
	}

	return pk, nil
}

// Copy returns a copy of the map of names and accounts.
func (ns *NameService) Copy() map[signature.PublicKey]string {
	cpy := make(map[signature.PublicKey]string, len(ns.accounts))
	for account, name := range ns.accounts {
		cpy[account] = name
	}
	return cpy
}
