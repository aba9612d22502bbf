package security

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/mhmdrz22/enginner/internal/core/port"
)

// TokenKeyBytes is the entropy of an auth token key; hex encoding doubles it to 40 characters.
const TokenKeyBytes = 20

// RandomKeyGenerator produces opaque hex token keys from crypto/rand.
type RandomKeyGenerator struct{}

// NewKey returns a fresh 40 character hex key.
func (RandomKeyGenerator) NewKey() (string, error) {
	buf := make([]byte, TokenKeyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token key: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

var _ port.KeyGenerator = RandomKeyGenerator{}
