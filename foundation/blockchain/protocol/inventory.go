package protocol

import "github.com/ardanlabs/minichain/foundation/blockchain/database"

// InvType identifies the kind of content an inventory vector announces.
type InvType uint32

// Set of inventory types.
const (
	InvError InvType = 0
	InvTx    InvType = 1
	InvBlock InvType = 2
)

// String implements the Stringer interface.
func (it InvType) String() string {
	switch it {
	case InvTx:
		return "tx"
	case InvBlock:
		return "block"
	}
	return "error"
}

// InventoryVector announces content by type and hash.
type InventoryVector struct {
	Type InvType
	Hash string
}

// BlockInv constructs the inventory vector for a block.
func BlockInv(b database.Block) InventoryVector {
	return InventoryVector{Type: InvBlock, Hash: b.Hash}
}

// TxInv constructs the inventory vector for a transaction.
func TxInv(tx database.Transaction) InventoryVector {
	return InventoryVector{Type: InvTx, Hash: tx.TxID}
}

// HeadersFor derives the headers for a sequence of blocks.
func HeadersFor(blocks []database.Block, difficulty uint) []database.BlockHeader {
	headers := make([]database.BlockHeader, len(blocks))
	for i, b := range blocks {
		headers[i] = b.Header(difficulty)
	}

	return headers
}
