package public

import (
	"github.com/vxoid/rbc/foundation/blockchain/database"
	"github.com/vxoid/rbc/foundation/blockchain/signature"
	"github.com/vxoid/rbc/foundation/nameservice"
)

type status struct {
	LatestBlock signature.Digest `json:"latest_block"`
	Blocks      uint64           `json:"blocks"`
	Difficulty  uint64           `json:"difficulty"`
}

type validation struct {
	Valid  bool   `json:"valid"`
	Blocks uint64 `json:"blocks"`
	Error  string `json:"error,omitempty"`
}

type accountBalance struct {
	Account signature.PublicKey `json:"account"`
	Name    string              `json:"name"`
	Balance uint64              `json:"balance"`
}

type balances struct {
	LatestBlock signature.Digest `json:"latest_block"`
	Balances    []accountBalance `json:"balances"`
}

type tx struct {
	Sender       signature.PublicKey `json:"sender"`
	SenderName   string              `json:"sender_name,omitempty"`
	Receiver     signature.PublicKey `json:"receiver"`
	ReceiverName string              `json:"receiver_name"`
	Value        uint32              `json:"value"`
	Signature    signature.Signature `json:"signature"`
	IsCoinbase   bool                `json:"is_coinbase"`
}

type block struct {
	Number        uint64           `json:"number"`
	PrevBlockHash signature.Digest `json:"prev_block_hash"`
	TimeStamp     uint64           `json:"timestamp"`
	Time          string           `json:"time"`
	Hash          signature.Digest `json:"hash"`
	Difficulty    uint64           `json:"difficulty"`
	Nonce         uint64           `json:"nonce"`
	Transactions  []tx             `json:"txs"`
}

// newTx is the signed transaction a wallet submits.
type newTx struct {
	Value     uint32              `json:"value" validate:"gt=0"`
	Sender    signature.PublicKey `json:"sender" validate:"required"`
	Receiver  signature.PublicKey `json:"receiver" validate:"required"`
	Signature signature.Signature `json:"signature" validate:"required"`
}

// mineRequest carries the transactions to mine into the next block.
type mineRequest struct {
	Transactions []newTx `json:"txs" validate:"dive"`
}

func (req mineRequest) toDatabase() []database.Tx {
	if len(req.Transactions) == 0 {
		return nil
	}

	trans := make([]database.Tx, len(req.Transactions))
	for i, ntx := range req.Transactions {
		trans[i] = database.Tx{
			Value:     ntx.Value,
			Sender:    ntx.Sender,
			Receiver:  ntx.Receiver,
			Signature: ntx.Signature,
		}
	}
	return trans
}

// =============================================================================

func toTx(ns *nameservice.NameService, dbTx database.Tx) tx {
	t := tx{
		Sender:       dbTx.Sender,
		Receiver:     dbTx.Receiver,
		ReceiverName: ns.Lookup(dbTx.Receiver),
		Value:        dbTx.Value,
		Signature:    dbTx.Signature,
		IsCoinbase:   dbTx.IsCoinbase,
	}
	if !dbTx.IsCoinbase {
		t.SenderName = ns.Lookup(dbTx.Sender)
	}
	return t
}

func toBlock(ns *nameservice.NameService, number uint64, dbBlock database.Block) block {
	trans := make([]tx, len(dbBlock.Trans))
	for i, dbTx := range dbBlock.Trans {
		trans[i] = toTx(ns, dbTx)
	}

	h := dbBlock.Header
	return block{
		Number:        number,
		PrevBlockHash: h.PrevBlockHash,
		TimeStamp:     h.TimeStamp,
		Time:          database.FormatTime(h.TimeStamp),
		Hash:          h.Hash,
		Difficulty:    h.Difficulty,
		Nonce:         h.Nonce,
		Transactions:  trans,
	}
}
