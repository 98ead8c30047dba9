package security_test

import (
	"errors"
	"testing"

	"github.com/tradeforgehq/tradeforge-backend/pkg/config"
	"github.com/tradeforgehq/tradeforge-backend/pkg/security"
)

func newCipher(t *testing.T, key string) *security.SecretCipher {
	t.Helper()
	c, err := security.NewSecretCipher(config.CryptoConfig{CredentialKey: key})
	if err != nil {
		t.Fatalf("NewSecretCipher: %v", err)
	}
	return c
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	c := newCipher(t, "unit-test-key")

	for _, secret := range []string{
		"a",
		"binance-api-secret-9f8e7d",
		"secrets can contain spaces and unicode ∆",
	} {
		ciphertext, err := c.Encrypt(secret)
		if err != nil {
			t.Fatalf("Encrypt(%q): %v", secret, err)
		}
		if ciphertext == secret {
			t.Fatalf("ciphertext must differ from plaintext")
		}
		got, err := c.Decrypt(ciphertext)
		if err != nil {
			t.Fatalf("Decrypt round trip: %v", err)
		}
		if got != secret {
			t.Fatalf("round trip mismatch: got %q want %q", got, secret)
		}
	}
}

func TestEncryptIsNonDeterministic(t *testing.T) {
	c := newCipher(t, "unit-test-key")
	first, err := c.Encrypt("same-secret")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	second, err := c.Encrypt("same-secret")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if first == second {
		t.Fatal("expected fresh nonce per encryption")
	}
}

func TestDecryptRejectsForeignKey(t *testing.T) {
	ciphertext, err := newCipher(t, "key-one").Encrypt("secret")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if _, err := newCipher(t, "key-two").Decrypt(ciphertext); !errors.Is(err, security.ErrCipher) {
		t.Fatalf("expected ErrCipher for foreign key, got %v", err)
	}
}

func TestDecryptRejectsMalformedInput(t *testing.T) {
	c := newCipher(t, "unit-test-key")
	for _, input := range []string{"", "!!!not-base64!!!", "c2hvcnQ"} {
		if _, err := c.Decrypt(input); !errors.Is(err, security.ErrCipher) {
			t.Fatalf("expected ErrCipher for %q, got %v", input, err)
		}
	}
}

func TestEncryptRejectsEmptyPlaintext(t *testing.T) {
	c := newCipher(t, "unit-test-key")
	if _, err := c.Encrypt(""); err == nil {
		t.Fatal("expected error for empty plaintext")
	}
}
