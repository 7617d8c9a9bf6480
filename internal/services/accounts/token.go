package accounts

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

const tokenByteLength = 32 // 256 bits

// tokenPair couples the bearer token handed to the client with the
// hash persisted in storage. The raw token is never stored.
type tokenPair struct {
	Token string
	Hash  string
}

func generateSessionToken() (*tokenPair, error) {
	bytes := make([]byte, tokenByteLength)
	if _, err := rand.Read(bytes); err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	token := base64.RawURLEncoding.EncodeToString(bytes)
	hash := sha256.Sum256([]byte(token))

	return &tokenPair{
		Token: token,
		Hash:  hex.EncodeToString(hash[:]),
	}, nil
}

// hashToken maps a presented bearer token to its storage hash
func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
