// Package vault provides AES-256-GCM encryption for file contents. One Vault
// is constructed at startup from the configured key and injected into every
// component that touches stored bytes; plaintext never reaches disk.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

// ErrKeyMissing is returned when no encryption key is configured. The server
// must not fall back to a generated key: every file encrypted under it would
// be orphaned on the next restart.
var ErrKeyMissing = errors.New("encryption key not configured")

// Vault encrypts and decrypts attachment contents with a process-wide key.
type Vault struct {
	aead cipher.AEAD
}

// New creates a Vault with the given 32-byte AES-256 key.
func New(key []byte) (*Vault, error) {
	if len(key) == 0 {
		return nil, ErrKeyMissing
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("vault: key must be 32 bytes, got %d", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("vault: create cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("vault: create GCM: %w", err)
	}

	return &Vault{aead: aead}, nil
}

// GenerateKey returns a fresh random 32-byte key as a hex string, suitable for
// the ENCRYPTION_KEY setting. Used by the keygen command and logged as a
// candidate when the server refuses to start without a key.
func GenerateKey() (string, error) {
	key := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return "", fmt.Errorf("vault: generate key: %w", err)
	}
	return hex.EncodeToString(key), nil
}

// Encrypt seals the plaintext and returns the nonce prepended to the
// ciphertext.
func (v *Vault) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, v.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("vault encrypt: generate nonce: %w", err)
	}

	// Seal appends the ciphertext to nonce, so the result is nonce + ciphertext.
	return v.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt extracts the nonce from the front of data and opens the remainder.
// A wrong key or tampered ciphertext fails the GCM authentication check and
// returns an error; it never yields garbage bytes.
func (v *Vault) Decrypt(data []byte) ([]byte, error) {
	nonceSize := v.aead.NonceSize()
	if len(data) < nonceSize {
		return nil, fmt.Errorf("vault decrypt: ciphertext too short")
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := v.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("vault decrypt: %w", err)
	}
	return plaintext, nil
}
