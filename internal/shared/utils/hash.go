package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// HashAlgorithm represents the hashing algorithm to use
type HashAlgorithm string

const (
	SHA256 HashAlgorithm = "sha256"
)

// Hasher provides content hashing for cache keys
type Hasher struct {
	algorithm HashAlgorithm
}

// NewHasher creates a new hasher with the specified algorithm
func NewHasher(algorithm HashAlgorithm) *Hasher {
	return &Hasher{
		algorithm: algorithm,
	}
}

// DefaultHasher returns a hasher with the default algorithm
func DefaultHasher() *Hasher {
	return NewHasher(SHA256)
}

// Hash computes a hash of the input data
func (h *Hasher) Hash(data []byte) string {
	switch h.algorithm {
	case SHA256:
		hash := sha256.Sum256(data)
		return hex.EncodeToString(hash[:])
	default:
		hash := sha256.Sum256(data)
		return hex.EncodeToString(hash[:])
	}
}

// HashString computes a hash of a string
func (h *Hasher) HashString(s string) string {
	return h.Hash([]byte(s))
}

// HashFields computes a hash from multiple fields in the given order.
// Field order is significant: ("a", "b") and ("b", "a") differ.
func (h *Hasher) HashFields(fields ...string) string {
	return h.HashString(strings.Join(fields, "\x00"))
}

// Short returns the first 8 characters of a hash for display
func Short(hash string) string {
	if len(hash) < 8 {
		return hash
	}
	return hash[:8]
}
