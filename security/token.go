package security

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// DefaultTokenBytes is the entropy of GenerateSecureToken's default token.
const DefaultTokenBytes = 32

// GenerateSecureToken returns n random bytes hex encoded, so the token is 2n
// characters long. n <= 0 uses DefaultTokenBytes.
func GenerateSecureToken(n int) (string, error) {
	if n <= 0 {
		n = DefaultTokenBytes
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
