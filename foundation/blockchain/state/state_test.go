package state_test

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ardanlabs/minichain/foundation/blockchain/database"
	"github.com/ardanlabs/minichain/foundation/blockchain/peer"
	"github.com/ardanlabs/minichain/foundation/blockchain/protocol"
	"github.com/ardanlabs/minichain/foundation/blockchain/signature"
	"github.com/ardanlabs/minichain/foundation/blockchain/state"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

var genesisTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// =============================================================================

// delivery is a message in flight to a node from one of its peers.
type delivery struct {
	to   *state.State
	from string
	msg  protocol.Message
}

// route tells a node how to reach a peer and the id that peer knows the
// node by.
type route struct {
	node *state.State
	as   string
}

// harness moves messages between nodes in the same process.
type harness struct {
	t     *testing.T
	mu    sync.Mutex
	queue []delivery
	nets  map[*state.State]*fakeNet
	logs  []string
}

func newHarness(t *testing.T) *harness {
	return &harness{
		t:    t,
		nets: make(map[*state.State]*fakeNet),
	}
}

func (h *harness) push(d delivery) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.queue = append(h.queue, d)
}

func (h *harness) pop() (delivery, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.queue) == 0 {
		return delivery{}, false
	}

	d := h.queue[0]
	h.queue = h.queue[1:]

	return d, true
}

// pump delivers messages until the network is quiet.
func (h *harness) pump() {
	for i := 0; ; i++ {
		if i > 10_000 {
			h.t.Fatalf("Should reach a quiet network.")
		}

		d, ok := h.pop()
		if !ok {
			return
		}

		replies, err := d.to.HandleMessage(d.from, d.msg)
		if err != nil {
			h.t.Logf("\t\tpeer[%s]: %s: %s", d.from, d.msg.Command(), err)
		}

		for _, reply := range replies {
			h.nets[d.to].Send(d.from, reply)
		}
	}
}

func (h *harness) newNode(host string, difficulty uint) *state.State {
	s := state.New(state.Config{
		NodeID:      host,
		Host:        host,
		Difficulty:  difficulty,
		GenesisTime: genesisTime,
		EvHandler:   h.log,
	})

	net := fakeNet{
		h:      h,
		routes: make(map[string]route),
	}

	s.Network = &net
	h.nets[s] = &net

	return s
}

func (h *harness) log(v string, args ...any) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.logs = append(h.logs, fmt.Sprintf(v, args...))
}

// logged reports whether any node logged a line containing all the parts.
func (h *harness) logged(parts ...string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

next:
	for _, line := range h.logs {
		for _, part := range parts {
			if !strings.Contains(line, part) {
				continue next
			}
		}
		return true
	}

	return false
}

// link opens an outbound connection from a to b and runs the handshake.
func (h *harness) link(a *state.State, b *state.State) {
	aID, bID := a.RetrieveHost(), b.RetrieveHost()

	h.nets[a].routes[bID] = route{node: b, as: aID}
	h.nets[b].routes[aID] = route{node: a, as: bID}

	if err := b.AcceptPeer(aID, ""); err != nil {
		h.t.Fatalf("Should be able to accept the peer: %s", err)
	}

	version, err := a.StartHandshake(bID, bID)
	if err != nil {
		h.t.Fatalf("Should be able to start the handshake: %s", err)
	}

	h.nets[a].Send(bID, version)
	h.pump()
}

// =============================================================================

type fakeNet struct {
	h      *harness
	routes map[string]route

	mu     sync.Mutex
	dialed []string
	closed []string
}

func (n *fakeNet) Connect(address string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.dialed = append(n.dialed, address)
	return nil
}

func (n *fakeNet) Send(peerID string, msg protocol.Message) error {
	r, exists := n.routes[peerID]
	if !exists {
		return errors.New("no route")
	}

	n.h.push(delivery{to: r.node, from: r.as, msg: msg})
	return nil
}

func (n *fakeNet) Disconnect(peerID string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.closed = append(n.closed, peerID)
}

func (n *fakeNet) Shutdown() {}

// =============================================================================

func Test_Handshake(t *testing.T) {
	t.Log("Given the need to connect two nodes.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen running the version handshake.", testID)
		{
			h := newHarness(t)
			a := h.newNode("node-a:9080", 0)
			b := h.newNode("node-b:9080", 0)

			h.link(a, b)

			for _, tst := range []struct {
				node   *state.State
				peerID string
				addr   string
			}{
				{a, "node-b:9080", "node-b:9080"},
				{b, "node-a:9080", "node-a:9080"},
			} {
				peers := tst.node.RetrieveConnectedPeers()
				if len(peers) != 1 {
					t.Fatalf("\t%s\tTest %d:\tShould have one connected peer on %s, got %d.", failed, testID, tst.node.RetrieveHost(), len(peers))
				}

				p := peers[0]
				if p.ID != tst.peerID || p.Address != tst.addr {
					t.Fatalf("\t%s\tTest %d:\tShould know the peer as %s at %s, got %s at %s.", failed, testID, tst.peerID, tst.addr, p.ID, p.Address)
				}
				if p.UserAgent != peer.UserAgent || p.ProtocolVersion != peer.ProtocolVersion {
					t.Fatalf("\t%s\tTest %d:\tShould record the advertised agent and version, got %s %d.", failed, testID, p.UserAgent, p.ProtocolVersion)
				}
			}
			t.Logf("\t%s\tTest %d:\tShould have both sides connected.", success, testID)
		}
	}
}

func Test_SyncOnConnect(t *testing.T) {
	t.Log("Given the need to catch up with a longer chain.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen a new node connects to a node with blocks.", testID)
		{
			h := newHarness(t)
			a := h.newNode("node-a:9080", 1)
			b := h.newNode("node-b:9080", 1)

			for _, data := range []string{"one", "two", "three"} {
				if _, err := a.AddBlock(data); err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to add a block: %s", failed, testID, err)
				}
			}

			h.link(b, a)

			if b.RetrieveChainLength() != 4 {
				t.Fatalf("\t%s\tTest %d:\tShould have synced 4 blocks, got %d.", failed, testID, b.RetrieveChainLength())
			}
			if b.RetrieveLatestBlock().Hash != a.RetrieveLatestBlock().Hash {
				t.Fatalf("\t%s\tTest %d:\tShould share the same tip.", failed, testID)
			}
			if valid, _ := b.Validate(); !valid {
				t.Fatalf("\t%s\tTest %d:\tShould have a valid chain.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould have synced the chain.", success, testID)
		}
	}
}

func Test_Relay(t *testing.T) {
	t.Log("Given the need to share new data between connected nodes.")
	{
		h := newHarness(t)
		a := h.newNode("node-a:9080", 1)
		b := h.newNode("node-b:9080", 1)
		h.link(a, b)

		testID := 0
		t.Logf("\tTest %d:\tWhen a node mines a block.", testID)
		{
			block, err := a.AddBlock("relay me")
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to add a block: %s", failed, testID, err)
			}
			h.pump()

			got, err := b.RetrieveBlockByHash(block.Hash)
			if err != nil || got.Data != "relay me" {
				t.Fatalf("\t%s\tTest %d:\tShould receive the block: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould receive the block.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen a transaction is submitted.", testID)
		{
			tx, err := a.SubmitTransaction("pending")
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to submit: %s", failed, testID, err)
			}
			h.pump()

			pool := b.RetrieveMempool()
			if len(pool) != 1 || pool[0].TxID != tx.TxID {
				t.Fatalf("\t%s\tTest %d:\tShould relay the transaction, got %d.", failed, testID, len(pool))
			}
			t.Logf("\t%s\tTest %d:\tShould relay the transaction.", success, testID)

			if b.HasPendingTx() {
				t.Fatalf("\t%s\tTest %d:\tShould not mine a relayed transaction.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould not mine a relayed transaction.", success, testID)

			block, err := a.MinePendingTx()
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould mine the transaction: %s", failed, testID, err)
			}
			h.pump()

			if b.RetrieveLatestBlock().Hash != block.Hash {
				t.Fatalf("\t%s\tTest %d:\tShould receive the mined block.", failed, testID)
			}
			if len(a.RetrieveMempool()) != 0 || len(b.RetrieveMempool()) != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould clear the transaction from both mempools.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould clear the mined transaction.", success, testID)

			if _, err := a.MinePendingTx(); !errors.Is(err, state.ErrNoTransactions) {
				t.Fatalf("\t%s\tTest %d:\tShould have nothing left to mine: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould have nothing left to mine.", success, testID)
		}
	}
}

func Test_PingPong(t *testing.T) {
	t.Log("Given the need to measure peer latency.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen pinging connected peers.", testID)
		{
			h := newHarness(t)
			a := h.newNode("node-a:9080", 0)
			b := h.newNode("node-b:9080", 0)
			h.link(a, b)

			if n := a.PingPeers(); n != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould ping one peer, got %d.", failed, testID, n)
			}
			h.pump()

			peers := a.RetrievePeers()
			if _, ok := peers[0].Latency(); !ok {
				t.Fatalf("\t%s\tTest %d:\tShould have measured the latency.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould have measured the latency.", success, testID)
		}
	}
}

func Test_PongBookkeeping(t *testing.T) {
	t.Log("Given the need to match pongs to pings.")
	{
		h := newHarness(t)
		a := h.newNode("node-a:9080", 0)
		b := h.newNode("node-b:9080", 0)
		h.link(a, b)

		testID := 0
		t.Logf("\tTest %d:\tWhen a connected peer sends an unexpected pong.", testID)
		{
			if _, err := a.HandleMessage("node-b:9080", protocol.Pong{Nonce: 999}); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould accept the pong: %s", failed, testID, err)
			}

			if !h.logged("handlePong", "node-b:9080", "unexpected nonce[999]") {
				t.Fatalf("\t%s\tTest %d:\tShould log the unexpected nonce.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould log the unexpected nonce.", success, testID)

			if _, ok := a.RetrievePeers()[0].Latency(); ok {
				t.Fatalf("\t%s\tTest %d:\tShould not measure a latency.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould not measure a latency.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen the pong comes from a peer that is gone.", testID)
		{
			a.DisconnectPeer("node-b:9080")

			if _, err := a.HandleMessage("node-b:9080", protocol.Pong{Nonce: 1}); !errors.Is(err, peer.ErrPeerNotFound) {
				t.Fatalf("\t%s\tTest %d:\tShould report the peer is not found: %v", failed, testID, err)
			}

			if h.logged("handlePong", "unexpected nonce[1]") {
				t.Fatalf("\t%s\tTest %d:\tShould not report a missing peer as an unexpected nonce.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould report the peer is not found.", success, testID)
		}
	}
}

func Test_Refusals(t *testing.T) {
	t.Log("Given the need to refuse bad traffic.")
	{
		h := newHarness(t)
		a := h.newNode("node-a:9080", 1)
		b := h.newNode("node-b:9080", 1)
		h.link(a, b)

		genesis, _ := b.RetrieveBlock(0)

		tampered := database.NewBlock(1, "tampered", genesis.Hash)
		database.Mine(&tampered, 1)
		tampered.Data = "changed"

		ahead := database.NewBlock(5, "ahead", genesis.Hash)
		database.Mine(&ahead, 1)

		unlinked := ahead.Header(1)

		tt := []struct {
			name   string
			peerID string
			msg    protocol.Message
			err    error
			code   uint8
			reply  protocol.Command
		}{
			{name: "unknown", peerID: "nobody", msg: protocol.Ping{Nonce: 1}, err: peer.ErrPeerNotFound},
			{name: "tampered", peerID: "node-a:9080", msg: protocol.Block{Block: tampered}, err: database.ErrInvalidHash, code: protocol.RejectInvalid, reply: protocol.CmdReject},
			{name: "ahead", peerID: "node-a:9080", msg: protocol.Block{Block: ahead}, reply: protocol.CmdGetHeaders},
			{name: "headers", peerID: "node-a:9080", msg: protocol.Headers{Headers: []database.BlockHeader{{PrevBlockHash: signature.Hash("missing"), Hash: unlinked.Hash}}}, err: state.ErrHeadersNotLinked, code: protocol.RejectInvalid, reply: protocol.CmdReject},
			{name: "malformed headers", peerID: "node-a:9080", msg: protocol.Headers{Headers: []database.BlockHeader{{PrevBlockHash: genesis.Hash, Hash: "missing"}}}, err: state.ErrMalformedHash, code: protocol.RejectMalformed, reply: protocol.CmdReject},
			{name: "getdata", peerID: "node-a:9080", msg: protocol.GetData{Vectors: []protocol.InventoryVector{{Type: protocol.InvBlock, Hash: signature.Hash("missing")}}}, code: protocol.RejectInvalid, reply: protocol.CmdReject},
			{name: "malformed getdata", peerID: "node-a:9080", msg: protocol.GetData{Vectors: []protocol.InventoryVector{{Type: protocol.InvBlock, Hash: "missing"}}}, code: protocol.RejectMalformed, reply: protocol.CmdReject},
			{name: "malformed inv", peerID: "node-a:9080", msg: protocol.Inv{Vectors: []protocol.InventoryVector{{Type: protocol.InvTx, Hash: "XYZ"}}}, err: state.ErrMalformedHash, code: protocol.RejectMalformed, reply: protocol.CmdReject},
		}

		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling a %s message.", testID, tst.name)
			{
				replies, err := b.HandleMessage(tst.peerID, tst.msg)
				if tst.err != nil && !errors.Is(err, tst.err) {
					t.Fatalf("\t%s\tTest %d:\tShould get %v, got %v.", failed, testID, tst.err, err)
				}
				if tst.err == nil && err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould not get an error, got %v.", failed, testID, err)
				}

				if tst.reply == "" {
					if len(replies) != 0 {
						t.Fatalf("\t%s\tTest %d:\tShould not reply, got %d.", failed, testID, len(replies))
					}
					t.Logf("\t%s\tTest %d:\tShould refuse the message.", success, testID)
					continue
				}

				if len(replies) != 1 || replies[0].Command() != tst.reply {
					t.Fatalf("\t%s\tTest %d:\tShould reply with %s, got %v.", failed, testID, tst.reply, replies)
				}
				if rej, ok := replies[0].(protocol.Reject); ok && rej.CCode != tst.code {
					t.Fatalf("\t%s\tTest %d:\tShould reject with code %#x, got %#x.", failed, testID, tst.code, rej.CCode)
				}
				t.Logf("\t%s\tTest %d:\tShould reply with %s.", success, testID, tst.reply)
			}
		}

		if b.RetrieveChainLength() != 1 {
			t.Fatalf("\t%s\tShould not have changed the chain, got %d blocks.", failed, b.RetrieveChainLength())
		}
	}
}

func Test_HandshakeRules(t *testing.T) {
	t.Log("Given the need to enforce the handshake.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen a peer skips the handshake.", testID)
		{
			h := newHarness(t)
			s := h.newNode("node-a:9080", 0)

			if err := s.AcceptPeer("early", ""); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould accept the peer: %s", failed, testID, err)
			}

			replies, err := s.HandleMessage("early", protocol.GetAddr{})
			if !errors.Is(err, state.ErrNotConnected) {
				t.Fatalf("\t%s\tTest %d:\tShould refuse traffic before the handshake: %v", failed, testID, err)
			}
			rej, ok := replies[0].(protocol.Reject)
			if !ok || rej.CCode != protocol.RejectNotConnected {
				t.Fatalf("\t%s\tTest %d:\tShould reply with a not connected reject, got %v.", failed, testID, replies)
			}
			t.Logf("\t%s\tTest %d:\tShould refuse traffic before the handshake.", success, testID)

			replies, err = s.HandleMessage("early", protocol.Verack{})
			if err != nil || len(replies) != 1 || replies[0].Command() != protocol.CmdReject {
				t.Fatalf("\t%s\tTest %d:\tShould reject a verack before a version: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould reject a verack before a version.", success, testID)

			replies, err = s.HandleMessage("early", protocol.Ping{Nonce: 7})
			if err != nil || len(replies) != 1 || replies[0] != (protocol.Pong{Nonce: 7}) {
				t.Fatalf("\t%s\tTest %d:\tShould answer a ping at any time: %v", failed, testID, replies)
			}
			t.Logf("\t%s\tTest %d:\tShould answer a ping at any time.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen a node connects to itself.", testID)
		{
			h := newHarness(t)
			s := h.newNode("node-a:9080", 0)

			version, err := s.StartHandshake("out", "node-a:9080")
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould start the handshake: %s", failed, testID, err)
			}
			if err := s.AcceptPeer("in", ""); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould accept the peer: %s", failed, testID, err)
			}

			if _, err := s.HandleMessage("in", version); !errors.Is(err, state.ErrSelfConnection) {
				t.Fatalf("\t%s\tTest %d:\tShould detect the self connection: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould detect the self connection.", success, testID)

			s.DisconnectPeer("in")
			s.DisconnectPeer("out")
			if n := len(s.RetrievePeers()); n != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould have no peers left, got %d.", failed, testID, n)
			}
			t.Logf("\t%s\tTest %d:\tShould remove disconnected peers.", success, testID)
		}
	}
}

func Test_Discovery(t *testing.T) {
	t.Log("Given the need to discover new peers.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen a peer shares addresses.", testID)
		{
			h := newHarness(t)
			a := h.newNode("node-a:9080", 0)
			b := h.newNode("node-b:9080", 0)
			h.link(a, b)

			addrs := protocol.Addr{Addresses: []string{"node-a:9080", "node-b:9080", "node-c:9080"}}
			if _, err := a.HandleMessage("node-b:9080", addrs); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould accept the addresses: %s", failed, testID, err)
			}

			net := h.nets[a]
			deadline := time.Now().Add(time.Second)
			for {
				net.mu.Lock()
				dialed := append([]string(nil), net.dialed...)
				net.mu.Unlock()

				if len(dialed) == 1 {
					if dialed[0] != "node-c:9080" {
						t.Fatalf("\t%s\tTest %d:\tShould dial only the new address, got %v.", failed, testID, dialed)
					}
					break
				}
				if time.Now().After(deadline) {
					t.Fatalf("\t%s\tTest %d:\tShould dial the new address, got %v.", failed, testID, dialed)
				}
				time.Sleep(10 * time.Millisecond)
			}
			t.Logf("\t%s\tTest %d:\tShould dial only the new address.", success, testID)
		}
	}
}

func Test_SyncManyBatches(t *testing.T) {
	t.Log("Given the need to catch up with a chain longer than one headers batch.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen a new node connects to a node with %d blocks.", testID, protocol.MaxHeaders+5)
		{
			h := newHarness(t)
			a := h.newNode("node-a:9080", 0)
			b := h.newNode("node-b:9080", 0)

			for i := 0; i < protocol.MaxHeaders+5; i++ {
				if _, err := a.AddBlock(fmt.Sprintf("block %d", i)); err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to add a block: %s", failed, testID, err)
				}
			}

			h.link(b, a)

			exp := protocol.MaxHeaders + 6
			if b.RetrieveChainLength() != exp {
				t.Fatalf("\t%s\tTest %d:\tShould have synced %d blocks, got %d.", failed, testID, exp, b.RetrieveChainLength())
			}
			if b.RetrieveLatestBlock().Hash != a.RetrieveLatestBlock().Hash {
				t.Fatalf("\t%s\tTest %d:\tShould share the same tip.", failed, testID)
			}
			if err := b.ValidateChain(); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould have a valid chain: %s", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould have synced past the first batch.", success, testID)
		}
	}
}

func Test_Inventory(t *testing.T) {
	t.Log("Given the need to announce what a node holds.")
	{
		h := newHarness(t)
		a := h.newNode("node-a:9080", 0)
		b := h.newNode("node-b:9080", 0)
		h.link(a, b)

		var blocks []database.Block
		for _, data := range []string{"one", "two", "three"} {
			block, err := a.AddBlock(data)
			if err != nil {
				t.Fatalf("\t%s\tShould be able to add a block: %s", failed, err)
			}
			blocks = append(blocks, block)
		}
		h.pump()

		genesis, _ := a.RetrieveBlock(0)

		testID := 0
		t.Logf("\tTest %d:\tWhen a peer asks for blocks after genesis.", testID)
		{
			getBlocks := protocol.GetBlocks{
				Version:            peer.ProtocolVersion,
				BlockLocatorHashes: []string{genesis.Hash},
				HashStop:           signature.ZeroHash,
			}

			replies, err := a.HandleMessage("node-b:9080", getBlocks)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould accept the request: %s", failed, testID, err)
			}

			if len(replies) != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould reply with one inv, got %v.", failed, testID, replies)
			}
			inv, ok := replies[0].(protocol.Inv)
			if !ok || len(inv.Vectors) != len(blocks) {
				t.Fatalf("\t%s\tTest %d:\tShould announce %d blocks, got %v.", failed, testID, len(blocks), replies[0])
			}
			for i, iv := range inv.Vectors {
				if iv.Type != protocol.InvBlock || iv.Hash != blocks[i].Hash {
					t.Fatalf("\t%s\tTest %d:\tShould announce block %d in order, got %v.", failed, testID, i+1, iv)
				}
			}
			t.Logf("\t%s\tTest %d:\tShould announce the blocks in chain order.", success, testID)

			getBlocks.HashStop = blocks[1].Hash
			replies, _ = a.HandleMessage("node-b:9080", getBlocks)
			if inv, ok := replies[0].(protocol.Inv); !ok || len(inv.Vectors) != 2 {
				t.Fatalf("\t%s\tTest %d:\tShould stop at the hash stop, got %v.", failed, testID, replies)
			}
			t.Logf("\t%s\tTest %d:\tShould stop at the hash stop.", success, testID)

			getBlocks.BlockLocatorHashes = []string{blocks[2].Hash}
			getBlocks.HashStop = signature.ZeroHash
			if replies, _ := a.HandleMessage("node-b:9080", getBlocks); len(replies) != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould not reply when the peer is at the tip, got %v.", failed, testID, replies)
			}
			t.Logf("\t%s\tTest %d:\tShould not reply when the peer is at the tip.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen a peer asks for the mempool.", testID)
		{
			if replies, _ := a.HandleMessage("node-b:9080", protocol.MemPool{}); len(replies) != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould not reply for an empty mempool, got %v.", failed, testID, replies)
			}
			t.Logf("\t%s\tTest %d:\tShould not reply for an empty mempool.", success, testID)

			tx1, err := a.SubmitTransaction("first")
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to submit: %s", failed, testID, err)
			}
			tx2, err := a.SubmitTransaction("second")
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to submit: %s", failed, testID, err)
			}
			h.pump()

			replies, err := a.HandleMessage("node-b:9080", protocol.MemPool{})
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould accept the request: %s", failed, testID, err)
			}

			if len(replies) != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould reply with one inv, got %v.", failed, testID, replies)
			}
			inv, ok := replies[0].(protocol.Inv)
			if !ok || len(inv.Vectors) != 2 {
				t.Fatalf("\t%s\tTest %d:\tShould announce 2 transactions, got %v.", failed, testID, replies[0])
			}

			got := map[string]bool{}
			for _, iv := range inv.Vectors {
				if iv.Type != protocol.InvTx {
					t.Fatalf("\t%s\tTest %d:\tShould announce transactions, got %v.", failed, testID, iv)
				}
				got[iv.Hash] = true
			}
			if !got[tx1.TxID] || !got[tx2.TxID] {
				t.Fatalf("\t%s\tTest %d:\tShould announce both transactions, got %v.", failed, testID, inv.Vectors)
			}
			t.Logf("\t%s\tTest %d:\tShould announce the pending transactions.", success, testID)
		}
	}
}
