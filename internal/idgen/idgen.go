// Package idgen generates the short opaque identifiers the original C++
// core produced with random_id(n) (common.hpp) — cron job ids, tool-call
// ids synthesized when a provider omits one, subagent task ids.
package idgen

import (
	"crypto/rand"
	"math/big"
)

const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// Random returns a random opaque id of length n drawn from a lowercase
// alphanumeric alphabet, matching the original's random_id.
func Random(n int) string {
	b := make([]byte, n)
	max := big.NewInt(int64(len(alphabet)))
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand failure is treated as fatal-adjacent elsewhere in
			// the codebase; here we fall back to a fixed low-entropy char
			// rather than panicking a long-lived worker over id generation.
			b[i] = alphabet[0]
			continue
		}
		b[i] = alphabet[idx.Int64()]
	}
	return string(b)
}
