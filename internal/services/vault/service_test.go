package vault

import (
	"encoding/base64"
	"testing"

	"github.com/parlo-ai/parlo/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

const testKey = "0123456789abcdef0123456789abcdef" // 32 bytes raw

func newTestVault(t *testing.T, key string) *Service {
	t.Helper()
	svc, err := NewService(&common.VaultConfig{Key: key}, arbor.NewLogger())
	require.NoError(t, err)
	return svc
}

func TestSealOpenRoundTrip(t *testing.T) {
	svc := newTestVault(t, testKey)

	plaintext := []byte(`{"access_token":"ya29.test","refresh_token":"1//refresh","expires_in":3599,"token_type":"Bearer","scope":"email"}`)

	sealed, err := svc.Seal(plaintext)
	require.NoError(t, err)
	assert.NotContains(t, sealed, "ya29.test")

	opened, err := svc.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, plaintext, opened)
}

func TestSealProducesDistinctCiphertexts(t *testing.T) {
	svc := newTestVault(t, testKey)

	first, err := svc.Seal([]byte("secret"))
	require.NoError(t, err)
	second, err := svc.Seal([]byte("secret"))
	require.NoError(t, err)

	// Random nonces mean identical plaintexts never seal identically
	assert.NotEqual(t, first, second)
}

func TestOpenRejectsTamperedBlob(t *testing.T) {
	svc := newTestVault(t, testKey)

	sealed, err := svc.Seal([]byte("secret"))
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(sealed)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xff
	tampered := base64.StdEncoding.EncodeToString(raw)

	_, err = svc.Open(tampered)
	assert.ErrorIs(t, err, ErrInvalidCiphertext)
}

func TestOpenRejectsWrongKey(t *testing.T) {
	svc := newTestVault(t, testKey)
	other := newTestVault(t, "fedcba9876543210fedcba9876543210")

	sealed, err := svc.Seal([]byte("secret"))
	require.NoError(t, err)

	_, err = other.Open(sealed)
	assert.ErrorIs(t, err, ErrInvalidCiphertext)
}

func TestOpenRejectsGarbage(t *testing.T) {
	svc := newTestVault(t, testKey)

	_, err := svc.Open("not base64!!!")
	assert.ErrorIs(t, err, ErrInvalidCiphertext)

	_, err = svc.Open(base64.StdEncoding.EncodeToString([]byte("short")))
	assert.ErrorIs(t, err, ErrInvalidCiphertext)
}

func TestNewServiceRejectsBadKeys(t *testing.T) {
	_, err := NewService(&common.VaultConfig{Key: ""}, arbor.NewLogger())
	assert.Error(t, err)

	_, err = NewService(&common.VaultConfig{Key: "tooshort"}, arbor.NewLogger())
	assert.Error(t, err)
}

func TestHexKeyAccepted(t *testing.T) {
	hexKey := "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"
	svc := newTestVault(t, hexKey)

	sealed, err := svc.Seal([]byte("payload"))
	require.NoError(t, err)
	opened, err := svc.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), opened)
}
