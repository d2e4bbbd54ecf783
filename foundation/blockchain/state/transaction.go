package state

import (
	"github.com/ardanlabs/minichain/foundation/blockchain/database"
	"github.com/ardanlabs/minichain/foundation/blockchain/protocol"
)

// SubmitTransaction accepts data from a client, places it in the mempool
// for this node to mine and announces it to the connected peers.
func (s *State) SubmitTransaction(data string) (database.Transaction, error) {
	tx, err := database.NewTransaction(data)
	if err != nil {
		return database.Transaction{}, err
	}

	added, err := s.mempool.UpsertLocal(tx)
	if err != nil {
		return database.Transaction{}, err
	}

	s.evHandler("state: SubmitTransaction: tx[%s]: new[%t]", tx.TxID, added)

	if added {
		s.broadcast(protocol.Inv{Vectors: []protocol.InventoryVector{protocol.TxInv(tx)}}, "")
	}

	s.signalMining()

	return tx, nil
}
