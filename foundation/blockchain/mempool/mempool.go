// Package mempool maintains the set of transactions relayed to this node
// that have not been mined into a block.
package mempool

import (
	"sort"
	"sync"

	"github.com/ardanlabs/minichain/foundation/blockchain/database"
)

// entry is a pooled transaction. Local transactions were submitted to this
// node and are the only ones this node mines.
type entry struct {
	tx    database.Transaction
	local bool
}

// Mempool represents a cache of transactions keyed by transaction id.
type Mempool struct {
	mu   sync.RWMutex
	pool map[string]entry
}

// New constructs a new mempool.
func New() *Mempool {
	return &Mempool{
		pool: make(map[string]entry),
	}
}

// Count returns the current number of transaction in the pool.
func (mp *Mempool) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return len(mp.pool)
}

// Upsert adds or replaces a transaction relayed by a peer. It reports
// whether the transaction was new to the pool.
func (mp *Mempool) Upsert(tx database.Transaction) (bool, error) {
	return mp.upsert(tx, false)
}

// UpsertLocal adds or replaces a transaction submitted to this node. It
// reports whether the transaction was new to the pool.
func (mp *Mempool) UpsertLocal(tx database.Transaction) (bool, error) {
	return mp.upsert(tx, true)
}

// Get returns the transaction for the specified id.
func (mp *Mempool) Get(txID string) (database.Transaction, bool) {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	e, exists := mp.pool[txID]
	return e.tx, exists
}

// Delete removes a transaction from the mempool.
func (mp *Mempool) Delete(txID string) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	delete(mp.pool, txID)
}

// DeleteByData removes every transaction carrying the data, which happens
// when another node mined it into a block. The number removed is returned.
func (mp *Mempool) DeleteByData(data string) int {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	var n int
	for id, e := range mp.pool {
		if e.tx.Data == data {
			delete(mp.pool, id)
			n++
		}
	}

	return n
}

// Copy returns the transactions in the pool ordered oldest first.
func (mp *Mempool) Copy() []database.Transaction {
	return mp.sorted(false)
}

// PickOldestLocal returns the oldest transaction submitted to this node
// without removing it.
func (mp *Mempool) PickOldestLocal() (database.Transaction, bool) {
	txs := mp.sorted(true)
	if len(txs) == 0 {
		return database.Transaction{}, false
	}

	return txs[0], true
}

// =============================================================================

func (mp *Mempool) upsert(tx database.Transaction, local bool) (bool, error) {
	if err := tx.Validate(); err != nil {
		return false, err
	}

	mp.mu.Lock()
	defer mp.mu.Unlock()

	e, exists := mp.pool[tx.TxID]
	mp.pool[tx.TxID] = entry{tx: tx, local: local || e.local}

	return !exists, nil
}

func (mp *Mempool) sorted(localOnly bool) []database.Transaction {
	mp.mu.RLock()
	txs := make([]database.Transaction, 0, len(mp.pool))
	for _, e := range mp.pool {
		if localOnly && !e.local {
			continue
		}
		txs = append(txs, e.tx)
	}
	mp.mu.RUnlock()

	sort.Slice(txs, func(i, j int) bool {
		if txs[i].TimeStamp == txs[j].TimeStamp {
			return txs[i].TxID < txs[j].TxID
		}
		return txs[i].TimeStamp < txs[j].TimeStamp
	})

	return txs
}
