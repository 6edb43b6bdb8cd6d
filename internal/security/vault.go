// Credential vault for remote instance API keys.
//
// Environment:
//   - CONTROLA_MASTER_KEY: operator secret the master key is derived from
//
// Stored formats:
//   - "v2:" + base64(nonce | AES-256-GCM ciphertext)  (written by Seal)
//   - base64(AES-256 single block, PKCS#5 padded)     (legacy, read only)
//   - plaintext                                       (legacy, read only)

package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	keyLength  = 32
	iterations = 65536
	saltLength = 16

	sealedPrefix = "v2:"
)

// The master secret is the entropy source; the salt only has to be stable.
var masterSalt = base64.StdEncoding.EncodeToString([]byte("FixedSaltForMasterKey"))

var (
	ErrEmptySecret      = errors.New("empty secret")
	ErrInvalidPadding   = errors.New("invalid padding")
	ErrCiphertextLength = errors.New("ciphertext has invalid length")
)

// Vault seals and opens instance credentials with a process-wide master key.
type Vault struct {
	masterKey []byte
}

// NewVault derives the master key from secret. The key is read-only afterwards.
func NewVault(secret string) (*Vault, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("%w: CONTROLA_MASTER_KEY", ErrEmptySecret)
	}
	key, err := DeriveKey(secret, masterSalt)
	if err != nil {
		return nil, err
	}
	return &Vault{masterKey: key}, nil
}

// Seal encrypts a credential for storage.
func (v *Vault) Seal(plaintext string) (string, error) {
	return Encrypt(plaintext, v.masterKey)
}

// Open returns the plaintext credential for a stored value. Values that are
// not in the current format are tried as legacy ciphertext and finally
// returned unchanged. needsReseal reports that either fallback was used.
func (v *Vault) Open(stored string) (plaintext string, needsReseal bool) {
	if stored == "" {
		return "", false
	}
	if strings.HasPrefix(stored, sealedPrefix) {
		plain, err := Decrypt(stored, v.masterKey)
		if err == nil {
			return plain, false
		}
		return stored, false
	}
	if plain, err := decryptLegacy(stored, v.masterKey); err == nil {
		return plain, true
	}
	return stored, true
}

// DeriveKey runs PBKDF2-HMAC-SHA256 over secret with a base64 salt.
func DeriveKey(secret, saltBase64 string) ([]byte, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	salt, err := base64.StdEncoding.DecodeString(saltBase64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode salt: %w", err)
	}
	return pbkdf2.Key([]byte(secret), salt, iterations, keyLength, sha256.New), nil
}

// GenerateSalt returns 16 random bytes, base64 encoded.
func GenerateSalt() (string, error) {
	salt := make([]byte, saltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	return base64.StdEncoding.EncodeToString(salt), nil
}

// Encrypt seals plaintext with AES-GCM and a random nonce.
func Encrypt(plaintext string, key []byte) (string, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return sealedPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt.
func Decrypt(ciphertext string, key []byte) (string, error) {
	if !strings.HasPrefix(ciphertext, sealedPrefix) {
		return "", fmt.Errorf("unsupported ciphertext format")
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(ciphertext, sealedPrefix))
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext: %w", err)
	}
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}
	if len(data) < gcm.NonceSize() {
		return "", ErrCiphertextLength
	}
	nonce, body := data[:gcm.NonceSize()], data[gcm.NonceSize():]
	plain, err := gcm.Open(nil, nonce, body, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}
	return string(plain), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	return cipher.NewGCM(block)
}
