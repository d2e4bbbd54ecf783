// Package state is the core API for the blockchain and implements all the
// business rules and processing.
package state

import (
	"errors"
	"sync"
	"time"

	"github.com/ardanlabs/minichain/foundation/blockchain/database"
	"github.com/ardanlabs/minichain/foundation/blockchain/mempool"
	"github.com/ardanlabs/minichain/foundation/blockchain/peer"
	"github.com/ardanlabs/minichain/foundation/blockchain/protocol"
)

// Set of error variables for node processing.
var (
	ErrNoTransactions = errors.New("no transactions in mempool")
	ErrSelfConnection = errors.New("connected to self")
	ErrNotConnected   = errors.New("peer handshake not complete")
)

// DefaultMaxPeers is used when the configuration does not bound the number
// of registered peers.
const DefaultMaxPeers = 8

// =============================================================================

// EventHandler defines a function that is called when events
// occur in the processing of persisting blocks.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing support for mining and peer maintenance.
type Worker interface {
	Shutdown()
	SignalStartMining()
}

// Network interface represents the behavior required to be implemented by
// any package moving protocol messages between peers.
type Network interface {
	Connect(address string) error
	Send(peerID string, msg protocol.Message) error
	Disconnect(peerID string)
	Shutdown()
}

// =============================================================================

// Config represents the configuration required to start
// the blockchain node.
type Config struct {
	NodeID      string
	Host        string
	Difficulty  uint
	GenesisTime time.Time
	KnownPeers  []string
	MaxPeers    int
	EvHandler   EventHandler
}

// State manages the blockchain database and the set of peers.
type State struct {
	nodeID     string
	host       string
	knownPeers []string
	maxPeers   int
	evHandler  EventHandler

	db       *database.Database
	registry *peer.Registry
	mempool  *mempool.Mempool

	mu      sync.Mutex
	nonces  map[string]uint64
	pending map[string]protocol.Version

	Worker  Worker
	Network Network
}

// New constructs a new blockchain for data management.
func New(cfg Config) *State {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	// A zero genesis time gives this node a chain nobody else shares.
	genesisTime := cfg.GenesisTime
	if genesisTime.IsZero() {
		genesisTime = time.Now()
	}
	db := database.NewWithGenesis(cfg.Difficulty, genesisTime, database.EventHandler(ev))

	maxPeers := cfg.MaxPeers
	if maxPeers <= 0 {
		maxPeers = DefaultMaxPeers
	}

	state := State{
		nodeID:     cfg.NodeID,
		host:       cfg.Host,
		knownPeers: cfg.KnownPeers,
		maxPeers:   maxPeers,
		evHandler:  ev,

		db:       db,
		registry: peer.NewRegistry(),
		mempool:  mempool.New(),

		nonces:  make(map[string]uint64),
		pending: make(map[string]protocol.Version),
	}

	// The Worker and Network are not set here. The calls to worker.Run and
	// p2p.Run will assign themselves.

	return &state
}

// Shutdown cleanly brings the node down.
func (s *State) Shutdown() error {
	s.evHandler("state: shutdown: started")
	defer s.evHandler("state: shutdown: completed")

	// Stop all blockchain writing activity.
	if s.Worker != nil {
		s.Worker.Shutdown()
	}

	// Close every peer connection.
	if s.Network != nil {
		s.Network.Shutdown()
	}

	return nil
}

// =============================================================================

// send delivers a message to a single peer when a network is registered.
func (s *State) send(peerID string, msg protocol.Message) {
	if s.Network == nil {
		return
	}

	if err := s.Network.Send(peerID, msg); err != nil {
		s.evHandler("state: send: %s: peer[%s]: ERROR: %s", msg.Command(), peerID, err)
	}
}

// broadcast delivers a message to every connected peer except the one
// specified, which is usually the peer the data came from.
func (s *State) broadcast(msg protocol.Message, exceptPeerID string) {
	if s.Network == nil {
		return
	}

	for _, p := range s.registry.GetConnectedPeers() {
		if p.ID != exceptPeerID {
			s.send(p.ID, msg)
		}
	}
}

// connect dials a new peer in the background.
func (s *State) connect(address string) {
	if s.Network == nil {
		return
	}

	go func() {
		if err := s.Network.Connect(address); err != nil {
			s.evHandler("state: connect: addr[%s]: ERROR: %s", address, err)
		}
	}()
}

// signalMining asks the worker to look for work.
func (s *State) signalMining() {
	if s.Worker != nil {
		s.Worker.SignalStartMining()
	}
}
