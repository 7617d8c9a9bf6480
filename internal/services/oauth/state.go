package oauth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ErrInvalidState is returned when a callback state fails verification:
// bad signature, expired, malformed, or already consumed.
var ErrInvalidState = errors.New("invalid state parameter")

// stateSigner issues and verifies the OAuth state parameter.
// A state is an HMAC-signed tuple of (user id, nonce, expiry) so the
// callback can recover the user without trusting the raw value, and each
// state is single-use.
type stateSigner struct {
	secret []byte
	ttl    time.Duration

	mu   sync.Mutex
	used map[string]time.Time // nonce -> expiry, pruned on issue
}

func newStateSigner(secret string, ttl time.Duration) *stateSigner {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &stateSigner{
		secret: []byte(secret),
		ttl:    ttl,
		used:   make(map[string]time.Time),
	}
}

// Issue creates a signed state carrying the user id
func (s *stateSigner) Issue(userID string) (string, error) {
	if len(s.secret) == 0 {
		return "", fmt.Errorf("state secret is not configured")
	}

	nonceBytes := make([]byte, 16)
	if _, err := rand.Read(nonceBytes); err != nil {
		return "", fmt.Errorf("failed to generate state nonce: %w", err)
	}
	nonce := hex.EncodeToString(nonceBytes)

	expires := time.Now().UTC().Add(s.ttl).Unix()
	payload := fmt.Sprintf("%s|%s|%d", userID, nonce, expires)
	sig := s.sign(payload)

	s.prune()

	return base64.RawURLEncoding.EncodeToString([]byte(payload + "|" + sig)), nil
}

// Verify checks a state and returns the user id it carries.
// A state verifies at most once.
func (s *stateSigner) Verify(state string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(state)
	if err != nil {
		return "", ErrInvalidState
	}

	parts := strings.Split(string(raw), "|")
	if len(parts) != 4 {
		return "", ErrInvalidState
	}
	userID, nonce, expiresStr, sig := parts[0], parts[1], parts[2], parts[3]

	payload := fmt.Sprintf("%s|%s|%s", userID, nonce, expiresStr)
	if !hmac.Equal([]byte(s.sign(payload)), []byte(sig)) {
		return "", ErrInvalidState
	}

	expires, err := strconv.ParseInt(expiresStr, 10, 64)
	if err != nil || time.Now().UTC().Unix() > expires {
		return "", ErrInvalidState
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, seen := s.used[nonce]; seen {
		return "", ErrInvalidState
	}
	s.used[nonce] = time.Unix(expires, 0)

	return userID, nil
}

func (s *stateSigner) sign(payload string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// prune drops consumed nonces whose states have expired anyway
func (s *stateSigner) prune() {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for nonce, expiry := range s.used {
		if now.After(expiry) {
			delete(s.used, nonce)
		}
	}
}
