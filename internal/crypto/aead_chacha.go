package crypto

import (
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

const (
	KeySize   = chacha20poly1305.KeySize
	NonceSize = chacha20poly1305.NonceSize
	TagSize   = chacha20poly1305.Overhead
)

var (
	ErrAuthFailure        = errors.New("crypto: message authentication failed")
	ErrCiphertextTooShort = errors.New("crypto: ciphertext too short")
)

// Encrypt seals plaintext with ChaCha20-Poly1305 under the given key and
// 12-byte nonce. Output is ciphertext || 16-byte tag. The nonce must be
// fresh per encryption under a given key; callers store it alongside the
// ciphertext.
func Encrypt(key, nonce, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: %w", err)
	}
	if len(nonce) != NonceSize {
		return nil, fmt.Errorf("crypto: nonce must be %d bytes", NonceSize)
	}
	return aead.Seal(nil, nonce, plaintext, nil), nil
}

// Decrypt opens ciphertext||tag. Any corruption of ciphertext, tag, key or
// nonce yields ErrAuthFailure; no plaintext is ever released unverified.
func Decrypt(key, nonce, ciphertext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: %w", err)
	}
	if len(nonce) != NonceSize {
		return nil, fmt.Errorf("crypto: nonce must be %d bytes", NonceSize)
	}
	pt, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrAuthFailure
	}
	return pt, nil
}

// NewNonce draws a fresh 12-byte nonce from the CSPRNG.
func NewNonce() ([]byte, error) {
	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return nonce, nil
}

// SealBlob encrypts with a fresh random nonce and returns the stored
// layout nonce(12) || ciphertext || tag(16).
func SealBlob(key, plaintext []byte) ([]byte, error) {
	nonce, err := NewNonce()
	if err != nil {
		return nil, err
	}
	ct, err := Encrypt(key, nonce, plaintext)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(nonce)+len(ct))
	out = append(out, nonce...)
	out = append(out, ct...)
	return out, nil
}

// OpenBlob splits and decrypts the nonce(12) || ciphertext || tag layout.
func OpenBlob(key, blob []byte) ([]byte, error) {
	if len(blob) < NonceSize {
		return nil, ErrCiphertextTooShort
	}
	return Decrypt(key, blob[:NonceSize], blob[NonceSize:])
}
