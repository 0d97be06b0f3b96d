package security

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// SessionTokenBytes is the amount of randomness in a session token.
const SessionTokenBytes = 32

// GenerateSessionToken returns an opaque URL-safe token read from crypto/rand,
// which is safe for concurrent use.
func GenerateSessionToken() (string, error) {
	buf := make([]byte, SessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
