package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/spf13/cobra"
	"github.com/vxoid/rbc/foundation/blockchain/database"
	"github.com/vxoid/rbc/foundation/blockchain/signature"
	"github.com/vxoid/rbc/foundation/nameservice"
)

var (
	url   string
	to    string
	value uint32
)

// signedTx is a transaction the node mines on request.
type signedTx struct {
	Value     uint32              `json:"value"`
	Sender    signature.PublicKey `json:"sender"`
	Receiver  signature.PublicKey `json:"receiver"`
	Signature signature.Signature `json:"signature"`
}

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send transaction",
	Run:   sendRun,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&url, "url", "u", "http://localhost:8080", "Url of the node.")
	sendCmd.Flags().StringVarP(&to, "to", "t", "", "Name or public key of the receiver.")
	sendCmd.Flags().Uint32VarP(&value, "value", "v", 0, "Value to send.")
}

func sendRun(cmd *cobra.Command, args []string) {
	w, err := loadWallet()
	if err != nil {
		log.Fatal(err)
	}

	ns, err := nameservice.New(accountPath)
	if err != nil {
		log.Fatal(err)
	}

	receiver, err := ns.Resolve(to)
	if err != nil {
		log.Fatal(err)
	}

	tx := database.NewTx(w, receiver, value)

	req := struct {
		Transactions []signedTx `json:"txs"`
	}{
		Transactions: []signedTx{{
			Value:     tx.Value,
			Sender:    tx.Sender,
			Receiver:  tx.Receiver,
			Signature: tx.Signature,
		}},
	}

	data, err := json.Marshal(req)
	if err != nil {
		log.Fatal(err)
	}

	resp, err := http.Post(fmt.Sprintf("%s/v1/blocks/mine", url), "application/json", bytes.NewBuffer(data))
	if err != nil {
		log.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var er errorResponse
		json.NewDecoder(resp.Body).Decode(&er)
		log.Fatalf("node responded %s: %s", resp.Status, er.Error)
	}

	fmt.Println(tx)
}
