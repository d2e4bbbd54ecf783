// Package signature provides helper functions for handling the blockchain
// hashing and node identity needs.
package signature

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ZeroHash represents a hash code of zeros. In a GetHeaders or GetBlocks
// request it means there is no stop hash.
const ZeroHash string = "0000000000000000000000000000000000000000000000000000000000000000"

// HashLength is the number of hex characters in a rendered hash.
const HashLength = 64

// =============================================================================

// Hash returns the SHA-256 digest of the value rendered as 64 lowercase
// hex characters.
func Hash(value string) string {
	hash := sha256.Sum256([]byte(value))
	return common.Bytes2Hex(hash[:])
}

// IsHash reports whether the string looks like a rendered hash.
func IsHash(s string) bool {
	if len(s) != HashLength {
		return false
	}

	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		default:
			return false
		}
	}

	return true
}

// =============================================================================

// NodeID converts the public key of a node into the identifier used in the
// logs and the status API.
func NodeID(pk ecdsa.PublicKey) string {
	return crypto.PubkeyToAddress(pk).Hex()
}

// LoadOrCreateKey loads the node's private key from the specified path. If
// the file does not exist, a new key is generated and written to the path.
func LoadOrCreateKey(path string) (*ecdsa.PrivateKey, error) {
	privateKey, err := crypto.LoadECDSA(path)
	if err == nil {
		return privateKey, nil
	}

	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading key: %w", err)
	}

	privateKey, err = crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("generating key: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating key folder: %w", err)
		}
	}

	if err := crypto.SaveECDSA(path, privateKey); err != nil {
		return nil, fmt.Errorf("saving key: %w", err)
	}

	return privateKey, nil
}
