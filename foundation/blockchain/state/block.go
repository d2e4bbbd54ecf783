package state

import (
	"github.com/ardanlabs/minichain/foundation/blockchain/database"
	"github.com/ardanlabs/minichain/foundation/blockchain/protocol"
)

// AddBlock mines a block carrying the data onto the chain and announces it
// to the connected peers.
func (s *State) AddBlock(data string) (database.Block, error) {
	s.evHandler("state: AddBlock: started: data[%d bytes]", len(data))

	block, err := s.db.Append(data)
	if err != nil {
		return database.Block{}, err
	}

	s.evHandler("state: AddBlock: completed: blk[%d]: hash[%s]", block.Index, block.Hash)

	s.broadcast(protocol.Inv{Vectors: []protocol.InventoryVector{protocol.BlockInv(block)}}, "")

	return block, nil
}

// MinePendingTx mines the oldest transaction submitted to this node into a
// new block and removes it from the mempool.
func (s *State) MinePendingTx() (database.Block, error) {
	tx, ok := s.mempool.PickOldestLocal()
	if !ok {
		return database.Block{}, ErrNoTransactions
	}

	s.evHandler("state: MinePendingTx: MINING: tx[%s]", tx.TxID)

	block, err := s.AddBlock(tx.Data)
	if err != nil {
		return database.Block{}, err
	}

	s.mempool.Delete(tx.TxID)

	return block, nil
}

// HasPendingTx reports whether there is local work left for the miner.
func (s *State) HasPendingTx() bool {
	_, ok := s.mempool.PickOldestLocal()
	return ok
}
