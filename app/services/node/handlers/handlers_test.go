package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/ardanlabs/minichain/app/services/node/handlers"
	"github.com/ardanlabs/minichain/business/web/errs"
	"github.com/ardanlabs/minichain/foundation/blockchain/database"
	"github.com/ardanlabs/minichain/foundation/blockchain/p2p"
	"github.com/ardanlabs/minichain/foundation/blockchain/state"
	"github.com/ardanlabs/minichain/foundation/events"
	"go.uber.org/zap"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_PublicAPI(t *testing.T) {
	log := zap.NewNop().Sugar()

	st := state.New(state.Config{
		NodeID:     "node",
		Host:       "node:9080",
		Difficulty: 1,
	})

	mux := handlers.PublicMux(handlers.MuxConfig{
		Shutdown: make(chan os.Signal, 1),
		Log:      log,
		State:    st,
		Evts:     events.New(),
	})

	do := func(method string, path string, body string) *httptest.ResponseRecorder {
		var r *http.Request
		switch body {
		case "":
			r = httptest.NewRequest(method, path, nil)
		default:
			r = httptest.NewRequest(method, path, strings.NewReader(body))
		}
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, r)
		return w
	}

	t.Log("Given the need to drive the ledger over http.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen adding a block.", testID)
		{
			w := do(http.MethodPost, "/v1/blocks", `{"data":"hello"}`)
			if w.Code != http.StatusCreated {
				t.Fatalf("\t%s\tTest %d:\tShould get 201, got %d: %s", failed, testID, w.Code, w.Body)
			}

			var resp struct {
				Block   database.Block `json:"block"`
				Message string         `json:"message"`
			}
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould decode the response: %s", failed, testID, err)
			}
			if resp.Block.Index != 1 || resp.Block.Data != "hello" || !strings.HasPrefix(resp.Block.Hash, "0") {
				t.Fatalf("\t%s\tTest %d:\tShould return the mined block, got %+v.", failed, testID, resp.Block)
			}
			t.Logf("\t%s\tTest %d:\tShould return the mined block.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen adding a block without data.", testID)
		{
			w := do(http.MethodPost, "/v1/blocks", `{"data":""}`)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("\t%s\tTest %d:\tShould get 400, got %d.", failed, testID, w.Code)
			}

			var resp errs.Response
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould decode the error: %s", failed, testID, err)
			}
			if _, exists := resp.Fields["data"]; !exists {
				t.Fatalf("\t%s\tTest %d:\tShould name the data field, got %+v.", failed, testID, resp)
			}
			t.Logf("\t%s\tTest %d:\tShould reject empty data.", success, testID)

			if st.RetrieveChainLength() != 2 {
				t.Fatalf("\t%s\tTest %d:\tShould leave the chain unchanged.", failed, testID)
			}
		}

		tt := []struct {
			path   string
			status int
		}{
			{"/v1/blocks/1", http.StatusOK},
			{"/v1/blocks/9", http.StatusNotFound},
			{"/v1/blocks/abc", http.StatusBadRequest},
			{"/v1/chain", http.StatusOK},
			{"/v1/validate", http.StatusOK},
			{"/v1/peers", http.StatusOK},
		}

		for _, tst := range tt {
			testID++
			t.Logf("\tTest %d:\tWhen requesting %s.", testID, tst.path)
			{
				w := do(http.MethodGet, tst.path, "")
				if w.Code != tst.status {
					t.Fatalf("\t%s\tTest %d:\tShould get %d, got %d: %s", failed, testID, tst.status, w.Code, w.Body)
				}
				t.Logf("\t%s\tTest %d:\tShould get %d.", success, testID, tst.status)
			}
		}

		testID++
		t.Logf("\tTest %d:\tWhen reading the chain.", testID)
		{
			w := do(http.MethodGet, "/v1/chain", "")

			var resp struct {
				Chain   []database.Block `json:"chain"`
				Length  int              `json:"length"`
				IsValid bool             `json:"is_valid"`
			}
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould decode the chain: %s", failed, testID, err)
			}
			if resp.Length != 2 || len(resp.Chain) != 2 || !resp.IsValid {
				t.Fatalf("\t%s\tTest %d:\tShould get a valid chain of 2, got %d valid[%t].", failed, testID, resp.Length, resp.IsValid)
			}
			if resp.Chain[0].Data != database.GenesisData {
				t.Fatalf("\t%s\tTest %d:\tShould start with genesis, got %q.", failed, testID, resp.Chain[0].Data)
			}
			t.Logf("\t%s\tTest %d:\tShould get a valid chain.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen submitting a transaction.", testID)
		{
			w := do(http.MethodPost, "/v1/tx", `{"data":"pending"}`)
			if w.Code != http.StatusOK {
				t.Fatalf("\t%s\tTest %d:\tShould get 200, got %d: %s", failed, testID, w.Code, w.Body)
			}

			w = do(http.MethodGet, "/v1/tx/list", "")

			var txs []database.Transaction
			if err := json.NewDecoder(w.Body).Decode(&txs); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould decode the mempool: %s", failed, testID, err)
			}
			if len(txs) != 1 || txs[0].Data != "pending" {
				t.Fatalf("\t%s\tTest %d:\tShould list the pending transaction, got %d.", failed, testID, len(txs))
			}
			t.Logf("\t%s\tTest %d:\tShould list the pending transaction.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen sending an unknown field.", testID)
		{
			w := do(http.MethodPost, "/v1/tx", `{"payload":"x"}`)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("\t%s\tTest %d:\tShould get 400, got %d.", failed, testID, w.Code)
			}
			t.Logf("\t%s\tTest %d:\tShould reject the payload.", success, testID)
		}
	}
}

func Test_PrivateAPI(t *testing.T) {
	st := state.New(state.Config{NodeID: "node", Host: "node:9080"})

	evts := events.New()
	evts.Acquire("listener")

	mux := handlers.PrivateMux(handlers.MuxConfig{
		Shutdown: make(chan os.Signal, 1),
		Log:      zap.NewNop().Sugar(),
		State:    st,
		P2P:      p2p.New(p2p.Config{Node: st}),
		Evts:     evts,
	})

	t.Log("Given the need to report the status of the node.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen requesting the status.", testID)
		{
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/node/status", nil))

			if w.Code != http.StatusOK {
				t.Fatalf("\t%s\tTest %d:\tShould get 200, got %d.", failed, testID, w.Code)
			}
			t.Logf("\t%s\tTest %d:\tShould get 200.", success, testID)

			var status struct {
				NodeID         string `json:"node_id"`
				LatestBlockNum uint64 `json:"latest_block_number"`
				EventListeners int    `json:"event_listeners"`
				EventsDropped  uint64 `json:"events_dropped"`
			}
			if err := json.NewDecoder(w.Body).Decode(&status); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to decode the status: %s", failed, testID, err)
			}

			if status.NodeID != "node" || status.LatestBlockNum != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould describe the node, got %+v.", failed, testID, status)
			}
			if status.EventListeners != 1 || status.EventsDropped != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould report the event listeners, got %+v.", failed, testID, status)
			}
			t.Logf("\t%s\tTest %d:\tShould describe the node.", success, testID)
		}
	}
}

func Test_DebugAPI(t *testing.T) {
	st := state.New(state.Config{NodeID: "node"})
	mux := handlers.DebugMux("test", zap.NewNop().Sugar(), st)

	vars := func() map[string]any {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/debug/vars", nil))

		var got map[string]any
		if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
			t.Fatalf("Should be able to decode the metrics: %s", err)
		}
		return got
	}

	t.Log("Given the need to check the health of the node.")
	{
		for testID, path := range []string{"/debug/readiness", "/debug/liveness"} {
			t.Logf("\tTest %d:\tWhen requesting %s.", testID, path)
			{
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))

				if w.Code != http.StatusOK {
					t.Fatalf("\t%s\tTest %d:\tShould get 200, got %d.", failed, testID, w.Code)
				}
				t.Logf("\t%s\tTest %d:\tShould get 200.", success, testID)
			}
		}

		testID := 2
		t.Logf("\tTest %d:\tWhen the chain grows between metric reads.", testID)
		{
			if got := vars()["blocks"]; got != float64(1) {
				t.Fatalf("\t%s\tTest %d:\tShould report 1 block, got %v.", failed, testID, got)
			}

			if _, err := st.AddBlock("counted"); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to add a block: %s", failed, testID, err)
			}

			if got := vars()["blocks"]; got != float64(2) {
				t.Fatalf("\t%s\tTest %d:\tShould report 2 blocks, got %v.", failed, testID, got)
			}
			t.Logf("\t%s\tTest %d:\tShould report the current chain length.", success, testID)
		}
	}
}
