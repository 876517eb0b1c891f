package core

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Hasher performs one-way salted password hashing. bcrypt embeds a random
// per-hash salt in its output, so two hashes of the same password differ while
// both still verify.
type Hasher struct {
	cost int
}

// NewHasher builds a Hasher with the given work factor. Costs below
// MinBcryptCost are raised to it.
func NewHasher(cost int) *Hasher {
	if cost < MinBcryptCost {
		cost = MinBcryptCost
	}
	return &Hasher{cost: cost}
}

// Hash derives an opaque digest from the plaintext. The digest is safe to
// persist; the plaintext is not recoverable from it.
func (h *Hasher) Hash(plaintext string) (string, error) {
	out, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(out), nil
}

// Verify reports whether plaintext matches the stored digest. Comparison is
// delegated to bcrypt, which compares in constant time; never compare digests
// byte-by-byte yourself.
func (h *Hasher) Verify(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}
