package vault

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/parlo-ai/parlo/internal/common"
	"github.com/ternarybob/arbor"
	"golang.org/x/crypto/chacha20poly1305"
)

// ErrInvalidCiphertext is returned when a sealed blob cannot be opened,
// either because it was tampered with or sealed under a different key.
var ErrInvalidCiphertext = errors.New("invalid ciphertext")

// Service seals and opens credential blobs with an AEAD cipher.
// Stored credentials are opaque to every other component; only this
// service touches the encoding.
type Service struct {
	key    []byte
	logger arbor.ILogger
}

// NewService creates a vault from the configured key. The key may be
// given as 64 hex characters or as a raw 32-byte string.
func NewService(config *common.VaultConfig, logger arbor.ILogger) (*Service, error) {
	key, err := decodeKey(config.Key)
	if err != nil {
		return nil, err
	}

	return &Service{
		key:    key,
		logger: logger,
	}, nil
}

func decodeKey(raw string) ([]byte, error) {
	if raw == "" {
		return nil, fmt.Errorf("vault key is required")
	}

	if len(raw) == 2*chacha20poly1305.KeySize {
		if decoded, err := hex.DecodeString(raw); err == nil {
			return decoded, nil
		}
	}

	if len(raw) == chacha20poly1305.KeySize {
		return []byte(raw), nil
	}

	return nil, fmt.Errorf("vault key must be %d bytes (raw or hex encoded), got %d characters", chacha20poly1305.KeySize, len(raw))
}

// Seal encrypts a credential blob and returns it base64 encoded
func (s *Service) Seal(plaintext []byte) (string, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", fmt.Errorf("failed to initialize cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := aead.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open decrypts a sealed credential blob
func (s *Service) Open(sealed string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return nil, ErrInvalidCiphertext
	}

	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cipher: %w", err)
	}

	if len(raw) < aead.NonceSize() {
		return nil, ErrInvalidCiphertext
	}

	nonce, ciphertext := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrInvalidCiphertext
	}

	return plaintext, nil
}
