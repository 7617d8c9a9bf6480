package oauth

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateRoundTrip(t *testing.T) {
	signer := newStateSigner("test-secret", 10*time.Minute)

	state, err := signer.Issue("usr_123")
	require.NoError(t, err)

	userID, err := signer.Verify(state)
	require.NoError(t, err)
	assert.Equal(t, "usr_123", userID)
}

func TestStateIsSingleUse(t *testing.T) {
	signer := newStateSigner("test-secret", 10*time.Minute)

	state, err := signer.Issue("usr_123")
	require.NoError(t, err)

	_, err = signer.Verify(state)
	require.NoError(t, err)

	_, err = signer.Verify(state)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestStateRejectsTampering(t *testing.T) {
	signer := newStateSigner("test-secret", 10*time.Minute)

	state, err := signer.Issue("usr_123")
	require.NoError(t, err)

	raw, err := base64.RawURLEncoding.DecodeString(state)
	require.NoError(t, err)

	// Swap the embedded user id for another
	forged := strings.Replace(string(raw), "usr_123", "usr_999", 1)
	forgedState := base64.RawURLEncoding.EncodeToString([]byte(forged))

	_, err = signer.Verify(forgedState)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestStateRejectsWrongSecret(t *testing.T) {
	issuer := newStateSigner("secret-a", 10*time.Minute)
	verifier := newStateSigner("secret-b", 10*time.Minute)

	state, err := issuer.Issue("usr_123")
	require.NoError(t, err)

	_, err = verifier.Verify(state)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestStateRejectsExpired(t *testing.T) {
	signer := newStateSigner("test-secret", 10*time.Minute)
	signer.ttl = -1 * time.Second // constructor clamps non-positive TTLs, so set directly

	state, err := signer.Issue("usr_123")
	require.NoError(t, err)

	_, err = signer.Verify(state)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestStateRejectsGarbage(t *testing.T) {
	signer := newStateSigner("test-secret", 10*time.Minute)

	for _, state := range []string{"", "not-base64!!!", base64.RawURLEncoding.EncodeToString([]byte("a|b"))} {
		_, err := signer.Verify(state)
		assert.ErrorIs(t, err, ErrInvalidState)
	}
}

func TestIssueRequiresSecret(t *testing.T) {
	signer := newStateSigner("", 10*time.Minute)

	_, err := signer.Issue("usr_123")
	assert.Error(t, err)
}
