// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ardanlabs/minichain/business/sys/validate"
	"github.com/ardanlabs/minichain/business/web/errs"
	"github.com/ardanlabs/minichain/foundation/blockchain/state"
	"github.com/ardanlabs/minichain/foundation/events"
	"github.com/ardanlabs/minichain/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of ledger endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	WS    websocket.Upgrader
	Evts  *events.Events
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	// The upgrader writes its own response on failure.
	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		h.Log.Infow("events", "traceid", v.TraceID, "ERROR", err)
		return nil
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return nil
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// Chain returns the full chain and whether it is valid.
func (h Handlers) Chain(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	blocks := h.State.RetrieveChain()
	valid, _ := h.State.Validate()

	resp := chain{
		Chain:   blocks,
		Length:  len(blocks),
		IsValid: valid,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// AddBlock mines a new block carrying the data onto the chain.
func (h Handlers) AddBlock(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var nd newData
	if err := web.Decode(r, &nd); err != nil {
		return errs.NewTrusted(fmt.Errorf("unable to decode payload: %w", err), http.StatusBadRequest)
	}

	if err := validate.Check(nd); err != nil {
		return err
	}

	h.Log.Infow("add block", "traceid", v.TraceID, "size", len(nd.Data))

	block, err := h.State.AddBlock(nd.Data)
	if err != nil {
		return errs.FromLedger(err)
	}

	resp := addedBlock{
		Block:   block,
		Message: fmt.Sprintf("block %d mined", block.Index),
	}

	return web.Respond(ctx, w, resp, http.StatusCreated)
}

// Block returns the block at the specified index.
func (h Handlers) Block(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	index, err := strconv.ParseUint(web.Param(r, "index"), 10, 64)
	if err != nil {
		return errs.NewTrusted(fmt.Errorf("invalid index: %w", err), http.StatusBadRequest)
	}

	block, err := h.State.RetrieveBlock(index)
	if err != nil {
		return errs.FromLedger(fmt.Errorf("block %d: %w", index, err))
	}

	return web.Respond(ctx, w, block, http.StatusOK)
}

// Validate walks the chain and reports whether it is valid.
func (h Handlers) Validate(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	resp := validation{
		IsValid:     true,
		ChainLength: h.State.RetrieveChainLength(),
	}

	if err := h.State.ValidateChain(); err != nil {
		resp.IsValid = false
		resp.Error = err.Error()
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// SubmitTransaction adds new data to the mempool to be mined.
func (h Handlers) SubmitTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var nd newData
	if err := web.Decode(r, &nd); err != nil {
		return errs.NewTrusted(fmt.Errorf("unable to decode payload: %w", err), http.StatusBadRequest)
	}

	if err := validate.Check(nd); err != nil {
		return err
	}

	tx, err := h.State.SubmitTransaction(nd.Data)
	if err != nil {
		return errs.FromLedger(err)
	}

	h.Log.Infow("submit tx", "traceid", v.TraceID, "txid", tx.TxID)

	return web.Respond(ctx, w, tx, http.StatusOK)
}

// Mempool returns the set of transactions waiting to be mined.
func (h Handlers) Mempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.RetrieveMempool(), http.StatusOK)
}

// Peers returns the registered peers.
func (h Handlers) Peers(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, ToPeerInfos(h.State.RetrievePeers()), http.StatusOK)
}
