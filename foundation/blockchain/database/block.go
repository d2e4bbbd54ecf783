package database

import (
	"fmt"
	"time"

	"github.com/ardanlabs/minichain/foundation/blockchain/signature"
)

// Fixed values for the genesis block.
const (
	GenesisData     = "Genesis Block"
	GenesisPrevHash = "0"
)

// =============================================================================

// Block represents a single entry in the ledger. A block is immutable once
// it has been mined.
type Block struct {
	Index     uint64    `json:"index"`         // Height of the block in the chain.
	TimeStamp time.Time `json:"timestamp"`     // Time the block was created.
	Data      string    `json:"data"`          // Opaque payload for this block.
	PrevHash  string    `json:"previous_hash"` // Hash of the previous block in the chain.
	Hash      string    `json:"hash"`          // Empty until the block is mined.
	Nonce     uint64    `json:"nonce"`         // Value identified to solve the hash solution.
}

// NewBlock constructs an unmined block for the specified position.
func NewBlock(index uint64, data string, prevHash string) Block {
	return Block{
		Index:     index,
		TimeStamp: time.Now().UTC(),
		Data:      data,
		PrevHash:  prevHash,
	}
}

// Genesis constructs the first block of a chain. The genesis block is not
// mined, its hash is whatever its fixed fields produce.
func Genesis(timeStamp time.Time) Block {
	b := Block{
		Index:     0,
		TimeStamp: timeStamp.UTC(),
		Data:      GenesisData,
		PrevHash:  GenesisPrevHash,
	}
	b.Hash = b.CalculateHash()

	return b
}

// CalculateHash recomputes the hash from the current field values. The fields
// are concatenated in a fixed order: index, timestamp, data, previous hash
// and nonce.
func (b Block) CalculateHash() string {
	return signature.Hash(b.hashInput())
}

// IsGenesis reports whether the block has the shape of a genesis block.
func (b Block) IsGenesis() bool {
	return b.Index == 0 && b.PrevHash == GenesisPrevHash && b.Data == GenesisData
}

// String implements the Stringer interface for logging.
func (b Block) String() string {
	return fmt.Sprintf("blk[%d]: hash[%s]: prev[%s]: nonce[%d]", b.Index, b.Hash, b.PrevHash, b.Nonce)
}

func (b Block) hashInput() string {
	return fmt.Sprintf("%d%s%s%s%d", b.Index, FormatTime(b.TimeStamp), b.Data, b.PrevHash, b.Nonce)
}

// =============================================================================

// FormatTime renders a block timestamp in the canonical RFC3339 form used
// for hashing and for the wire.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ParseTime parses a timestamp produced by FormatTime.
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}

	return t.UTC(), nil
}
