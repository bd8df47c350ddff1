package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"

	dErrors "vaultid/pkg/domain-errors"
)

const (
	// KeySize is the AES-256 key length.
	KeySize   = 32
	nonceSize = 12
)

// Key is the process-wide payload encryption key. It is loaded once at start-up and
// handed to the service; nothing reads it from ambient configuration.
type Key struct {
	aead cipher.AEAD
}

// ParseKey decodes a base64 encoded 32 byte key.
func ParseKey(encoded string) (*Key, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "encryption key is not base64")
	}
	return NewKey(raw)
}

func NewKey(raw []byte) (*Key, error) {
	if len(raw) != KeySize {
		return nil, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("encryption key must be %d bytes", KeySize))
	}
	block, err := aes.NewCipher(raw)
	if err != nil {
		return nil, fmt.Errorf("aes cipher: %w", err)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, nonceSize)
	if err != nil {
		return nil, fmt.Errorf("gcm: %w", err)
	}
	return &Key{aead: aead}, nil
}

// GenerateKey returns a fresh random key in the encoding ParseKey accepts.
func GenerateKey() (string, error) {
	raw := make([]byte, KeySize)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// Seal encrypts plaintext under a fresh random nonce and frames it as
// base64(nonce || ciphertext).
func (k *Key) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	sealed := k.aead.Seal(nonce, nonce, plaintext, nil)
	out := make([]byte, base64.StdEncoding.EncodedLen(len(sealed)))
	base64.StdEncoding.Encode(out, sealed)
	return out, nil
}

// Open reverses Seal. Any failure, including a wrong key, tampering or truncation,
// is CodeDataCorrupted. There is no second attempt.
func (k *Key) Open(framed []byte) ([]byte, error) {
	sealed := make([]byte, base64.StdEncoding.DecodedLen(len(framed)))
	n, err := base64.StdEncoding.Decode(sealed, framed)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeDataCorrupted, "stored payload is not valid base64")
	}
	sealed = sealed[:n]
	if len(sealed) < nonceSize+k.aead.Overhead() {
		return nil, dErrors.New(dErrors.CodeDataCorrupted, "stored payload is truncated")
	}
	plaintext, err := k.aead.Open(nil, sealed[:nonceSize], sealed[nonceSize:], nil)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeDataCorrupted, "stored payload failed authentication")
	}
	return plaintext, nil
}
