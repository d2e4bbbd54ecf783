// Package database maintains the in memory ledger: an append only sequence
// of hash linked blocks secured by proof of work.
package database

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ardanlabs/minichain/foundation/blockchain/signature"
)

// Set of error variables for ledger operations.
var (
	ErrEmptyData           = errors.New("empty data")
	ErrInvalidHash         = errors.New("invalid block hash")
	ErrInvalidPreviousHash = errors.New("invalid previous hash")
	ErrInvalidIndex        = errors.New("invalid block index")
	ErrInvalidGenesis      = errors.New("invalid genesis block")
	ErrNotFound            = errors.New("block not found")
	ErrBlockExists         = errors.New("block already exists")
	ErrChainAhead          = errors.New("block is ahead of the chain, start resync")

	// ErrMiningFailed is reserved. Mining runs until it succeeds.
	ErrMiningFailed = errors.New("mining failed")
)

// locatorDense is the number of most recent hashes a locator lists before
// it starts stepping back exponentially.
const locatorDense = 10

// =============================================================================

// EventHandler defines a function that is called when events
// occur in the processing of the ledger.
type EventHandler func(v string, args ...any)

// Database manages the ordered chain of blocks. The chain always starts with
// the genesis block and is only ever extended at the tail.
type Database struct {
	mu         sync.RWMutex
	difficulty uint
	chain      []Block
	hashes     map[string]uint64
	evHandler  EventHandler
}

// New constructs a ledger whose genesis block is stamped with the current
// time. Two ledgers constructed this way have different genesis hashes.
func New(difficulty uint, evHandler EventHandler) *Database {
	return NewWithGenesis(difficulty, time.Now(), evHandler)
}

// NewWithGenesis constructs a ledger with a genesis block stamped with the
// specified time. Nodes that need to share a chain use the same time.
func NewWithGenesis(difficulty uint, genesisTime time.Time, evHandler EventHandler) *Database {
	ev := func(v string, args ...any) {
		if evHandler != nil {
			evHandler(v, args...)
		}
	}

	genesis := Genesis(genesisTime)

	db := Database{
		difficulty: difficulty,
		chain:      []Block{genesis},
		hashes:     map[string]uint64{genesis.Hash: 0},
		evHandler:  ev,
	}

	return &db
}

// Difficulty returns the number of leading zeros a mined hash requires.
func (db *Database) Difficulty() uint {
	return db.difficulty
}

// Append mines a new block holding the data and adds it to the tail of the
// chain. The exclusive lock is held for the entire mining duration, so all
// readers wait while mining is in progress.
func (db *Database) Append(data string) (Block, error) {
	if data == "" {
		return Block{}, ErrEmptyData
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	latest := db.chain[len(db.chain)-1]
	nb := NewBlock(latest.Index+1, data, latest.Hash)

	db.evHandler("database: Append: MINING: started: blk[%d]: difficulty[%d]", nb.Index, db.difficulty)

	t := time.Now()
	attempts := Mine(&nb, db.difficulty)

	db.evHandler("database: Append: MINING: SOLVED: %s: attempts[%d]: duration[%v]", nb, attempts, time.Since(t))

	db.push(nb)

	return nb, nil
}

// AcceptBlock validates a block mined by another node and adds it to the
// tail of the chain. The block must be the next block, link to the current
// tail, carry its own recomputed hash and satisfy the difficulty.
func (db *Database) AcceptBlock(b Block) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.hashes[b.Hash]; exists {
		return ErrBlockExists
	}

	latest := db.chain[len(db.chain)-1]
	nextIndex := latest.Index + 1

	switch {
	case b.Index > nextIndex:
		return fmt.Errorf("%w: got %d, latest %d", ErrChainAhead, b.Index, latest.Index)

	case b.Index < nextIndex:
		return fmt.Errorf("%w: got %d, exp %d", ErrInvalidIndex, b.Index, nextIndex)
	}

	if b.PrevHash != latest.Hash {
		return fmt.Errorf("%w: got %s, exp %s", ErrInvalidPreviousHash, b.PrevHash, latest.Hash)
	}

	if hash := b.CalculateHash(); b.Hash != hash {
		return fmt.Errorf("%w: got %s, exp %s", ErrInvalidHash, b.Hash, hash)
	}

	if !VerifyPOW(b.Hash, db.difficulty) {
		return fmt.Errorf("%w: %s does not satisfy difficulty %d", ErrInvalidHash, b.Hash, db.difficulty)
	}

	db.push(b)

	db.evHandler("database: AcceptBlock: accepted: %s", b)

	return nil
}

// Validate walks the chain and reports whether every invariant holds. The
// first violation is logged and the walk stops.
func (db *Database) Validate() bool {
	if err := db.ValidateChain(); err != nil {
		db.evHandler("database: Validate: INVALID: %s", err)
		return false
	}

	return true
}

// ValidateChain walks the chain and returns the first invariant violation
// found. The genesis shape and hash are checked first, then the hash, link
// and index of every following block.
func (db *Database) ValidateChain() error {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return validateChain(db.chain)
}

// Get returns the block at the specified index.
func (db *Database) Get(index uint64) (Block, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if index >= uint64(len(db.chain)) {
		return Block{}, ErrNotFound
	}

	return db.chain[index], nil
}

// BlockByHash returns the block with the specified hash.
func (db *Database) BlockByHash(hash string) (Block, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	index, exists := db.hashes[hash]
	if !exists {
		return Block{}, ErrNotFound
	}

	return db.chain[index], nil
}

// HasBlock reports whether a block with the hash is part of the chain.
func (db *Database) HasBlock(hash string) bool {
	db.mu.RLock()
	defer db.mu.RUnlock()

	_, exists := db.hashes[hash]
	return exists
}

// Latest returns the tail block of the chain.
func (db *Database) Latest() Block {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.chain[len(db.chain)-1]
}

// Length returns the number of blocks in the chain, genesis included.
func (db *Database) Length() int {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return len(db.chain)
}

// Copy returns a copy of the full chain.
func (db *Database) Copy() []Block {
	db.mu.RLock()
	defer db.mu.RUnlock()

	blocks := make([]Block, len(db.chain))
	copy(blocks, db.chain)

	return blocks
}

// Locator returns the block locator for the chain: the most recent hashes
// first, then hashes stepping back exponentially, always ending with the
// genesis hash.
func (db *Database) Locator() []string {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var locator []string
	step := 1
	for i := len(db.chain) - 1; i > 0; i -= step {
		locator = append(locator, db.chain[i].Hash)
		if len(locator) >= locatorDense {
			step *= 2
		}
	}

	return append(locator, db.chain[0].Hash)
}

// BlocksAfter finds the most recent block named in the locator and returns
// the blocks that follow it. The reply stops after the block matching
// hashStop or once max blocks are collected. An empty or zero hashStop means
// no bound. When no locator hash is known, the blocks after genesis are
// returned.
func (db *Database) BlocksAfter(locator []string, hashStop string, max int) []Block {
	db.mu.RLock()
	defer db.mu.RUnlock()

	start := uint64(1)
	for _, hash := range locator {
		if index, exists := db.hashes[hash]; exists {
			start = index + 1
			break
		}
	}

	if hashStop == signature.ZeroHash {
		hashStop = ""
	}

	var blocks []Block
	for i := start; i < uint64(len(db.chain)) && len(blocks) < max; i++ {
		blocks = append(blocks, db.chain[i])
		if hashStop != "" && db.chain[i].Hash == hashStop {
			break
		}
	}

	return blocks
}

// =============================================================================

// push adds the block to the tail. The caller must hold the exclusive lock.
func (db *Database) push(b Block) {
	db.chain = append(db.chain, b)
	db.hashes[b.Hash] = b.Index
}

// validateChain checks the chain invariants in order and returns the first
// violation.
func validateChain(chain []Block) error {
	if len(chain) == 0 {
		return fmt.Errorf("%w: chain is empty", ErrInvalidGenesis)
	}

	genesis := chain[0]
	switch {
	case genesis.Index != 0:
		return fmt.Errorf("%w: genesis index %d", ErrInvalidIndex, genesis.Index)

	case genesis.PrevHash != GenesisPrevHash:
		return fmt.Errorf("%w: genesis previous hash %q", ErrInvalidPreviousHash, genesis.PrevHash)

	case genesis.Data != GenesisData:
		return fmt.Errorf("%w: genesis data %q", ErrInvalidGenesis, genesis.Data)
	}

	if hash := genesis.CalculateHash(); genesis.Hash != hash {
		return fmt.Errorf("%w: genesis got %s, exp %s", ErrInvalidHash, genesis.Hash, hash)
	}

	for i := 1; i < len(chain); i++ {
		current := chain[i]
		previous := chain[i-1]

		if hash := current.CalculateHash(); current.Hash != hash {
			return fmt.Errorf("%w: blk[%d]: got %s, exp %s", ErrInvalidHash, i, current.Hash, hash)
		}

		if current.PrevHash != previous.Hash {
			return fmt.Errorf("%w: blk[%d]: got %s, exp %s", ErrInvalidPreviousHash, i, current.PrevHash, previous.Hash)
		}

		if current.Index != previous.Index+1 {
			return fmt.Errorf("%w: blk[%d]: got %d, exp %d", ErrInvalidIndex, i, current.Index, previous.Index+1)
		}
	}

	return nil
}
