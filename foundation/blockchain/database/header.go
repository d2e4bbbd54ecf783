package database

import "github.com/ardanlabs/minichain/foundation/blockchain/signature"

// HeaderVersion is the version stamped on every derived header.
const HeaderVersion = 1

// BlockHeader is the lightweight view of a block exchanged during headers
// first sync. It is always derived from a block and never stored.
type BlockHeader struct {
	Index         uint64 `json:"index"`
	Version       uint32 `json:"version"`
	PrevBlockHash string `json:"prev_block_hash"`
	MerkleRoot    string `json:"merkle_root"` // Hash of the block's data.
	TimeStamp     uint64 `json:"timestamp"`   // Unix seconds.
	Difficulty    uint32 `json:"difficulty"`
	Nonce         uint64 `json:"nonce"`
	Hash          string `json:"hash"`
}

// Header derives the header for the block. The difficulty is the one the
// ledger mines at since blocks do not carry it.
func (b Block) Header(difficulty uint) BlockHeader {
	return BlockHeader{
		Index:         b.Index,
		Version:       HeaderVersion,
		PrevBlockHash: b.PrevHash,
		MerkleRoot:    MerkleRoot(b.Data),
		TimeStamp:     uint64(b.TimeStamp.Unix()),
		Difficulty:    uint32(difficulty),
		Nonce:         b.Nonce,
		Hash:          b.Hash,
	}
}

// MerkleRoot returns the summary hash of a block's payload. A block carries
// a single data blob so the root is the hash of that blob.
func MerkleRoot(data string) string {
	return signature.Hash(data)
}
