package security

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestVault(t *testing.T) *Vault {
	t.Helper()
	v, err := NewVault("correct horse battery staple")
	require.NoError(t, err)
	return v
}

func TestNewVaultRequiresSecret(t *testing.T) {
	_, err := NewVault("  ")
	assert.ErrorIs(t, err, ErrEmptySecret)
}

func TestDeriveKeyIsDeterministic(t *testing.T) {
	salt, err := GenerateSalt()
	require.NoError(t, err)

	a, err := DeriveKey("secret", salt)
	require.NoError(t, err)
	b, err := DeriveKey("secret", salt)
	require.NoError(t, err)
	c, err := DeriveKey("other", salt)
	require.NoError(t, err)

	assert.Len(t, a, 32)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestDeriveKeyRejectsBadSalt(t *testing.T) {
	_, err := DeriveKey("secret", "%%%")
	assert.Error(t, err)
}

func TestGenerateSalt(t *testing.T) {
	salt, err := GenerateSalt()
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(salt)
	require.NoError(t, err)
	assert.Len(t, raw, 16)

	other, err := GenerateSalt()
	require.NoError(t, err)
	assert.NotEqual(t, salt, other)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	v := newTestVault(t)
	inputs := []string{"n8n_api_key", "x", strings.Repeat("long-key-", 40), "ünïcödé 🔑"}

	for _, input := range inputs {
		sealed, err := Encrypt(input, v.masterKey)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(sealed, sealedPrefix))

		plain, err := Decrypt(sealed, v.masterKey)
		require.NoError(t, err)
		assert.Equal(t, input, plain)
	}
}

func TestEncryptUsesFreshNonce(t *testing.T) {
	v := newTestVault(t)
	a, err := v.Seal("same")
	require.NoError(t, err)
	b, err := v.Seal("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestDecryptWithWrongKeyFails(t *testing.T) {
	v := newTestVault(t)
	sealed, err := v.Seal("secret")
	require.NoError(t, err)

	other, err := NewVault("another master")
	require.NoError(t, err)

	_, err = Decrypt(sealed, other.masterKey)
	assert.Error(t, err)
}

func TestOpenFallsBackToPlaintext(t *testing.T) {
	v := newTestVault(t)

	plain, reseal := v.Open("n8n_plain_api_key")
	assert.Equal(t, "n8n_plain_api_key", plain)
	assert.True(t, reseal)
}

func TestOpenReadsLegacyCiphertext(t *testing.T) {
	v := newTestVault(t)
	legacy, err := encryptLegacy("legacy-key", v.masterKey)
	require.NoError(t, err)

	plain, reseal := v.Open(legacy)
	assert.Equal(t, "legacy-key", plain)
	assert.True(t, reseal)
}

func TestOpenSealedValue(t *testing.T) {
	v := newTestVault(t)
	sealed, err := v.Seal("current-key")
	require.NoError(t, err)

	plain, reseal := v.Open(sealed)
	assert.Equal(t, "current-key", plain)
	assert.False(t, reseal)
}

func TestOpenEmpty(t *testing.T) {
	v := newTestVault(t)
	plain, reseal := v.Open("")
	assert.Empty(t, plain)
	assert.False(t, reseal)
}

func TestLegacyPadding(t *testing.T) {
	padded := pad([]byte("0123456789abcdef"), 16)
	assert.Len(t, padded, 32)

	out, err := unpad(padded, 16)
	require.NoError(t, err)
	assert.Equal(t, "0123456789abcdef", string(out))

	_, err = unpad([]byte{1, 2, 3, 0}, 16)
	assert.ErrorIs(t, err, ErrInvalidPadding)
}

func TestTenantKeyCache(t *testing.T) {
	cache := NewTenantKeyCache()
	_, ok := cache.Get("acme")
	assert.False(t, ok)

	cache.Put("acme", []byte{1})
	cache.Put("acme", []byte{2})
	key, ok := cache.Get("acme")
	assert.True(t, ok)
	assert.Equal(t, []byte{2}, key)

	cache.Remove("acme")
	_, ok = cache.Get("acme")
	assert.False(t, ok)
}
