package random

import (
	"crypto/rand"
	"fmt"
)

// Random provides entropy that can be mocked for testing
type Random interface {
	// Bytes returns n random bytes
	Bytes(n int) ([]byte, error)
}

// CryptoRandom implements Random using crypto/rand
type CryptoRandom struct{}

// New creates a new CryptoRandom
func New() *CryptoRandom {
	return &CryptoRandom{}
}

// Bytes returns n cryptographically random bytes
func (r *CryptoRandom) Bytes(n int) ([]byte, error) {
	if n <= 0 {
		return nil, fmt.Errorf("invalid byte count %d", n)
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}
