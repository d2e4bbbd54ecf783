// Package private maintains the group of handlers for node to node access.
package private

import (
	"context"
	"net/http"

	"github.com/ardanlabs/minichain/foundation/blockchain/p2p"
	"github.com/ardanlabs/minichain/foundation/blockchain/state"
	"github.com/ardanlabs/minichain/foundation/events"
	"github.com/ardanlabs/minichain/foundation/web"
	"go.uber.org/zap"
)

// Handlers manages the set of node endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	P2P   *p2p.Transport
	Evts  *events.Events
}

// Status returns the current status of the node.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	latestBlock := h.State.RetrieveLatestBlock()
	connected := len(h.State.RetrieveConnectedPeers())

	status := struct {
		NodeID          string   `json:"node_id"`
		Host            string   `json:"host"`
		Difficulty      uint     `json:"difficulty"`
		LatestBlockHash string   `json:"latest_block_hash"`
		LatestBlockNum  uint64   `json:"latest_block_number"`
		KnownPeers      []string `json:"known_peers"`
		Peers           int      `json:"peers"`
		ConnectedPeers  int      `json:"connected_peers"`
		Connections     int      `json:"connections"`
		EventListeners  int      `json:"event_listeners"`
		EventsDropped   uint64   `json:"events_dropped"`
	}{
		NodeID:          h.State.RetrieveNodeID(),
		Host:            h.State.RetrieveHost(),
		Difficulty:      h.State.RetrieveDifficulty(),
		LatestBlockHash: latestBlock.Hash,
		LatestBlockNum:  latestBlock.Index,
		KnownPeers:      h.State.RetrieveKnownPeers(),
		Peers:           len(h.State.RetrievePeers()),
		ConnectedPeers:  connected,
		Connections:     h.P2P.Count(),
		EventListeners:  h.Evts.Count(),
		EventsDropped:   h.Evts.Dropped(),
	}

	return web.Respond(ctx, w, status, http.StatusOK)
}

// Connect upgrades a peer's request to a websocket and serves the peer
// protocol on it until the connection closes.
func (h Handlers) Connect(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	// Once upgraded the connection is no longer an http response, so any
	// error is only logged.
	if err := h.P2P.Accept(w, r); err != nil {
		h.Log.Infow("p2p connect", "traceid", v.TraceID, "remoteaddr", r.RemoteAddr, "ERROR", err)
	}

	return nil
}

// Mempool returns the set of transactions waiting to be mined.
func (h Handlers) Mempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.RetrieveMempool(), http.StatusOK)
}
