package session

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
)

// TokenBytes is the number of random bytes in a session id (256 bits).
const TokenBytes = 32

// IDGenerator produces unguessable session ids.
type IDGenerator interface {
	NewID() (string, error)
}

// RandomIDGenerator reads TokenBytes from a cryptographically secure source
// and hex encodes them (64 chars).
type RandomIDGenerator struct {
	// Reader defaults to crypto/rand.Reader.
	Reader io.Reader
}

// NewID returns a fresh hex-encoded id.
func (g RandomIDGenerator) NewID() (string, error) {
	r := g.Reader
	if r == nil {
		r = rand.Reader
	}

	b := make([]byte, TokenBytes)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", fmt.Errorf("%w: %v", ErrIDGeneration, err)
	}
	return hex.EncodeToString(b), nil
}

// maxIDAttempts bounds collision retries. A collision of 256-bit ids means the
// generator is broken, not unlucky.
const maxIDAttempts = 4
