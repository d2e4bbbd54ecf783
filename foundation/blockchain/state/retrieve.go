package state

import (
	"github.com/ardanlabs/minichain/foundation/blockchain/database"
	"github.com/ardanlabs/minichain/foundation/blockchain/peer"
)

// RetrieveHost returns a copy of host information.
func (s *State) RetrieveHost() string {
	return s.host
}

// RetrieveNodeID returns the identity this node advertises.
func (s *State) RetrieveNodeID() string {
	return s.nodeID
}

// RetrieveDifficulty returns the proof of work difficulty of the chain.
func (s *State) RetrieveDifficulty() uint {
	return s.db.Difficulty()
}

// RetrieveChain returns a copy of every block in the chain.
func (s *State) RetrieveChain() []database.Block {
	return s.db.Copy()
}

// RetrieveBlock returns the block at the specified index.
func (s *State) RetrieveBlock(index uint64) (database.Block, error) {
	return s.db.Get(index)
}

// RetrieveBlockByHash returns the block with the specified hash.
func (s *State) RetrieveBlockByHash(hash string) (database.Block, error) {
	return s.db.BlockByHash(hash)
}

// RetrieveLatestBlock returns a copy the current latest block.
func (s *State) RetrieveLatestBlock() database.Block {
	return s.db.Latest()
}

// RetrieveChainLength returns the number of blocks in the chain.
func (s *State) RetrieveChainLength() int {
	return s.db.Length()
}

// RetrieveMempool returns a copy of the mempool ordered oldest first.
func (s *State) RetrieveMempool() []database.Transaction {
	return s.mempool.Copy()
}

// RetrieveKnownPeers retrieves a copy of the configured peer addresses.
func (s *State) RetrieveKnownPeers() []string {
	peers := make([]string, len(s.knownPeers))
	copy(peers, s.knownPeers)
	return peers
}

// RetrievePeers returns a copy of every registered peer.
func (s *State) RetrievePeers() []peer.Peer {
	return s.registry.Copy()
}

// RetrieveConnectedPeers returns the peers that completed the handshake.
func (s *State) RetrieveConnectedPeers() []peer.Peer {
	return s.registry.GetConnectedPeers()
}

// Validate reports whether the chain is valid along with its length.
func (s *State) Validate() (bool, int) {
	return s.db.Validate(), s.db.Length()
}

// ValidateChain returns the first reason the chain is invalid, if any.
func (s *State) ValidateChain() error {
	return s.db.ValidateChain()
}
