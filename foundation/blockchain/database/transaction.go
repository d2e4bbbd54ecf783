package database

import (
	"fmt"
	"time"

	"github.com/ardanlabs/minichain/foundation/blockchain/signature"
)

// Transaction is a unit of data relayed between nodes before it is mined
// into a block.
type Transaction struct {
	TxID      string `json:"txid"`
	Data      string `json:"data"`
	TimeStamp uint64 `json:"timestamp"` // Unix seconds.
}

// NewTransaction constructs a transaction for the data stamped with the
// current time.
func NewTransaction(data string) (Transaction, error) {
	if data == "" {
		return Transaction{}, ErrEmptyData
	}

	tx := Transaction{
		Data:      data,
		TimeStamp: uint64(time.Now().UTC().Unix()),
	}
	tx.TxID = tx.CalculateID()

	return tx, nil
}

// CalculateID recomputes the transaction id from the data and timestamp.
func (tx Transaction) CalculateID() string {
	return signature.Hash(fmt.Sprintf("%s%d", tx.Data, tx.TimeStamp))
}

// Validate checks the transaction carries data and the id matches.
func (tx Transaction) Validate() error {
	if tx.Data == "" {
		return ErrEmptyData
	}

	if id := tx.CalculateID(); tx.TxID != id {
		return fmt.Errorf("%w: txid got %s, exp %s", ErrInvalidHash, tx.TxID, id)
	}

	return nil
}
