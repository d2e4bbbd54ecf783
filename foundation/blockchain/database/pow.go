package database

import "strings"

// Mine performs the proof of work for the block. The nonce is incremented
// until the hash of the block has difficulty leading '0' characters, then
// the hash is committed to the block. There is no attempt limit and no
// cancellation. The number of attempts is returned.
func Mine(b *Block, difficulty uint) uint64 {
	target := strings.Repeat("0", int(difficulty))

	var attempts uint64
	for {
		attempts++

		hash := b.CalculateHash()
		if strings.HasPrefix(hash, target) {
			b.Hash = hash
			return attempts
		}

		b.Nonce++
	}
}

// VerifyPOW checks the hash has difficulty leading '0' characters. The hash
// is not recomputed.
func VerifyPOW(hash string, difficulty uint) bool {
	if int(difficulty) > len(hash) {
		return false
	}

	for i := 0; i < int(difficulty); i++ {
		if hash[i] != '0' {
			return false
		}
	}

	return true
}
