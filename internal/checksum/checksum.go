// Package checksum computes content digests used for change detection
// and for storing opaque tokens without keeping them in clear text.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// String is Sum for string input.
func String(s string) string {
	return Sum([]byte(s))
}
