// Package cmd contains wallet app
package cmd

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vxoid/rbc/foundation/blockchain/wallet"
	"github.com/vxoid/rbc/foundation/nameservice"
)

var (
	accountName string
	accountPath string
	passphrase  string
)

// encryptedExtension marks key files protected by a passphrase.
const encryptedExtension = ".json"

func init() {
	rootCmd.PersistentFlags().StringVarP(&accountName, "account", "a", "private", "Name of the key file.")
	rootCmd.PersistentFlags().StringVarP(&accountPath, "account-path", "p", "zblock/accounts/", "Path to the directory with key files.")
	rootCmd.PersistentFlags().StringVarP(&passphrase, "passphrase", "s", "", "Passphrase protecting the key file.")
}

var rootCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Your simple wallet",
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// getKeyPath returns the key file for the account. Accounts protected by a
// passphrase are kept apart from the plain files the name service reads.
func getKeyPath() string {
	ext := nameservice.KeyExt
	if passphrase != "" {
		ext = encryptedExtension
	}

	name := strings.TrimSuffix(strings.TrimSuffix(accountName, nameservice.KeyExt), encryptedExtension)
	return filepath.Join(accountPath, name+ext)
}

// loadWallet reads the account's key file.
func loadWallet() (*wallet.Wallet, error) {
	if passphrase != "" {
		return wallet.LoadEncrypted(getKeyPath(), passphrase)
	}
	return wallet.Load(getKeyPath())
}
