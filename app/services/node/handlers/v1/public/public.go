// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vxoid/rbc/business/web/errs"
	"github.com/vxoid/rbc/foundation/blockchain/balance"
	"github.com/vxoid/rbc/foundation/blockchain/ledger"
	"github.com/vxoid/rbc/foundation/blockchain/worker"
	"github.com/vxoid/rbc/foundation/events"
	"github.com/vxoid/rbc/foundation/nameservice"
	"github.com/vxoid/rbc/foundation/web"
	"go.uber.org/zap"
)

// Handlers manages the set of node endpoints.
type Handlers struct {
	Log    *zap.SugaredLogger
	Ledger *ledger.Ledger
	Worker *worker.Worker
	NS     *nameservice.NameService
	WS     websocket.Upgrader
	Evts   *events.Events
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	id, ch := h.Evts.Acquire()
	defer h.Evts.Release(id)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return err
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// Status returns the current state of the chain.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	latest, err := h.Ledger.LatestBlock()
	if err != nil {
		return err
	}

	st := status{
		LatestBlock: latest.Header.Hash,
		Blocks:      h.Ledger.Len(),
		Difficulty:  h.Ledger.Difficulty(),
	}

	return web.Respond(ctx, w, st, http.StatusOK)
}

// Validate walks the whole chain and reports whether it's valid.
func (h Handlers) Validate(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	resp := validation{
		Valid:  true,
		Blocks: h.Ledger.Len(),
	}

	if err := h.Ledger.Validate(); err != nil {
		resp.Valid = false
		resp.Error = err.Error()
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Balances returns the current balances for all accounts or the one
// specified by name or public key.
func (h Handlers) Balances(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	latest, err := h.Ledger.LatestBlock()
	if err != nil {
		return err
	}

	var bals []accountBalance
	switch account := web.Param(r, "account"); account {
	case "":
		sheet, err := h.Ledger.Balances()
		if err != nil {
			return ledgerError(err)
		}

		for pk, value := range sheet.Copy() {
			bals = append(bals, accountBalance{
				Account: pk,
				Name:    h.NS.Lookup(pk),
				Balance: value,
			})
		}

	default:
		pk, err := h.NS.Resolve(account)
		if err != nil {
			return errs.NewTrusted(err, http.StatusBadRequest)
		}

		value, err := h.Ledger.BalanceOf(pk)
		if err != nil {
			return ledgerError(err)
		}

		bals = append(bals, accountBalance{
			Account: pk,
			Name:    h.NS.Lookup(pk),
			Balance: value,
		})
	}

	resp := balances{
		LatestBlock: latest.Header.Hash,
		Balances:    bals,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// BlocksByNumber returns the blocks in the specified range. Either bound can
// be "latest".
func (h Handlers) BlocksByNumber(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	from, err := blockNumber(web.Param(r, "from"))
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	to, err := blockNumber(web.Param(r, "to"))
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	if from != ledger.QueryLatest && to != ledger.QueryLatest && from > to {
		return errs.NewTrusted(fmt.Errorf("from %d is after to %d", from, to), http.StatusBadRequest)
	}

	dbBlocks, err := h.Ledger.QueryBlocks(from, to)
	if err != nil {
		return err
	}

	if len(dbBlocks) == 0 {
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}

	start := from
	if from == ledger.QueryLatest {
		start = h.Ledger.Len() - 1
	}

	blocks := make([]block, len(dbBlocks))
	for i, dbBlock := range dbBlocks {
		blocks[i] = toBlock(h.NS, start+uint64(i), dbBlock)
	}

	return web.Respond(ctx, w, blocks, http.StatusOK)
}

// MineBlock mines a block right away holding the signed transactions in the
// request body, if any, after the coinbase for the node's miner.
func (h Handlers) MineBlock(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var req mineRequest
	if r.ContentLength != 0 {
		if err := web.Decode(r, &req); err != nil {
			return err
		}
	}

	trans := req.toDatabase()
	for _, dbTx := range trans {
		h.Log.Infow("mine tran", "traceid", web.GetTraceID(ctx), "tx", dbTx)
	}

	dbBlock, err := h.Worker.Mine(trans)
	if err != nil {
		return mineError(err)
	}

	return web.Respond(ctx, w, toBlock(h.NS, h.Ledger.Len()-1, dbBlock), http.StatusOK)
}

// =============================================================================

// blockNumber parses a block position from the path.
func blockNumber(s string) (uint64, error) {
	if s == "latest" {
		return ledger.QueryLatest, nil
	}

	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid block number %q", s)
	}

	return n, nil
}

// mineError marks the rejected mining requests as trusted.
func mineError(err error) error {
	if errors.Is(err, worker.ErrInvalidTransaction) || errors.Is(err, worker.ErrTooManyTransactions) {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}
	return ledgerError(err)
}

// ledgerError marks the errors caused by the content of the chain as
// trusted so the client learns why the request can't be served.
func ledgerError(err error) error {
	if errors.Is(err, balance.ErrInsufficientFunds) || errors.Is(err, ledger.ErrNoGenesis) {
		return errs.NewTrusted(err, http.StatusConflict)
	}
	return err
}
