package cmd

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/spf13/cobra"
	"github.com/vxoid/rbc/foundation/blockchain/signature"
)

type balance struct {
	Account signature.PublicKey `json:"account"`
	Name    string              `json:"name"`
	Balance uint64              `json:"balance"`
}

type balances struct {
	LatestBlock string    `json:"latest_block"`
	Balances    []balance `json:"balances"`
}

type errorResponse struct {
	Error string `json:"error"`
}

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Print your balance.",
	Run:   balanceRun,
}

func init() {
	rootCmd.AddCommand(balanceCmd)
	balanceCmd.Flags().StringVarP(&url, "url", "u", "http://localhost:8080", "Url of the node.")
}

func balanceRun(cmd *cobra.Command, args []string) {
	w, err := loadWallet()
	if err != nil {
		log.Fatal(err)
	}

	account := w.PublicKey()
	fmt.Println("For Account:", account)

	resp, err := http.Get(fmt.Sprintf("%s/v1/balances/list/%s", url, account))
	if err != nil {
		log.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var er errorResponse
		json.NewDecoder(resp.Body).Decode(&er)
		log.Fatalf("node responded %s: %s", resp.Status, er.Error)
	}

	var bals balances
	if err := json.NewDecoder(resp.Body).Decode(&bals); err != nil {
		log.Fatal(err)
	}

	if len(bals.Balances) > 0 {
		fmt.Println(bals.Balances[0].Balance)
	}
}
