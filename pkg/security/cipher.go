package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/tradeforgehq/tradeforge-backend/pkg/config"
)

// ErrCipher signals a malformed ciphertext or one produced under a different key.
var ErrCipher = fmt.Errorf("credential cipher failure")

// SecretCipher encrypts exchange API secrets at rest with AES-256-GCM.
// The key is derived once from process-wide configuration.
type SecretCipher struct {
	aead cipher.AEAD
}

// NewSecretCipher derives the AEAD from the configured key material.
func NewSecretCipher(cfg config.CryptoConfig) (*SecretCipher, error) {
	if strings.TrimSpace(cfg.CredentialKey) == "" {
		return nil, fmt.Errorf("credential key is required")
	}

	key := sha256.Sum256([]byte(cfg.CredentialKey))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("init credential cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init credential cipher: %w", err)
	}
	return &SecretCipher{aead: aead}, nil
}

// Encrypt seals the plaintext and returns a base64 string with the nonce prefixed.
func (c *SecretCipher) Encrypt(plaintext string) (string, error) {
	if c == nil || c.aead == nil {
		return "", fmt.Errorf("cipher not initialized")
	}
	if plaintext == "" {
		return "", fmt.Errorf("plaintext cannot be empty")
	}

	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.RawStdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a ciphertext produced by Encrypt. Malformed input and
// ciphertexts sealed under a different key both fail with ErrCipher.
func (c *SecretCipher) Decrypt(ciphertext string) (string, error) {
	if c == nil || c.aead == nil {
		return "", fmt.Errorf("cipher not initialized")
	}

	raw, err := base64.RawStdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", ErrCipher
	}
	if len(raw) < c.aead.NonceSize() {
		return "", ErrCipher
	}

	nonce, sealed := raw[:c.aead.NonceSize()], raw[c.aead.NonceSize():]
	plaintext, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrCipher
	}
	return string(plaintext), nil
}
