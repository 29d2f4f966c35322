// Package sha256 derives fixed-length keys from source URLs.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hasher hex-encodes SHA-256 digests.
type Hasher struct{}

// New returns a SHA-256 hasher.
func New() *Hasher {
	return &Hasher{}
}

// Key returns the hex digest of s. Lock keys use it so arbitrarily long
// source URLs map to bounded Redis keys.
func (*Hasher) Key(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
