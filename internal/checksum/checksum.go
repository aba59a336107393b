// Package checksum computes the content digests used for optimistic
// concurrency on note updates.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Matches reports whether data hashes to want. An empty want matches
// anything, so callers can treat the precondition as optional.
func Matches(data []byte, want string) bool {
	return want == "" || Sum(data) == want
}
