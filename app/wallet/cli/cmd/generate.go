package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/vxoid/rbc/foundation/blockchain/wallet"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate new key pair",
	Run:   generateRun,
}

func init() {
	rootCmd.AddCommand(generateCmd)
}

func generateRun(cmd *cobra.Command, args []string) {
	path := getKeyPath()
	if _, err := os.Stat(path); err == nil {
		log.Fatalf("key file %s already exists", path)
	}

	if err := os.MkdirAll(accountPath, 0700); err != nil {
		log.Fatal(err)
	}

	w, err := wallet.New(wallet.RandomSeed())
	if err != nil {
		log.Fatal(err)
	}

	switch passphrase {
	case "":
		err = w.Save(path)
	default:
		err = w.SaveEncrypted(path, passphrase)
	}
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(w.PublicKey())
}
