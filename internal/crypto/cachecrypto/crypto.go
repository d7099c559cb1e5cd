// Package cachecrypto contains the AEAD primitives behind the encrypted
// client cache: a session-scoped symmetric key and nonce-prefixed
// XChaCha20-Poly1305 blobs.
package cachecrypto

import (
	"crypto/rand"
	"errors"

	"golang.org/x/crypto/chacha20poly1305"
)

// KeyLen is the session key size in bytes.
const KeyLen = chacha20poly1305.KeySize

// ErrDecrypt is returned when a blob cannot be authenticated: wrong or
// rotated key, truncated record, or tampered ciphertext.
var ErrDecrypt = errors.New("cachecrypto: decryption failed")

// Rand returns n cryptographically secure random bytes.
func Rand(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}

// NewKey generates a fresh session key.
func NewKey() ([]byte, error) { return Rand(KeyLen) }

// Seal encrypts plaintext under key with a fresh random nonce. The nonce is
// prepended to the ciphertext; it is not secret and is never reused with the
// same key for two different plaintexts.
func Seal(key, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	nonce, err := Rand(chacha20poly1305.NonceSizeX)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(nonce)+len(plaintext)+aead.Overhead())
	out = append(out, nonce...)
	out = append(out, aead.Seal(nil, nonce, plaintext, nil)...)
	return out, nil
}

// Open splits the nonce off a sealed blob and decrypts the remainder. Any
// authentication failure is reported as ErrDecrypt.
func Open(key, blob []byte) ([]byte, error) {
	if len(blob) < chacha20poly1305.NonceSizeX {
		return nil, ErrDecrypt
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	nonce := blob[:chacha20poly1305.NonceSizeX]
	ct := blob[chacha20poly1305.NonceSizeX:]
	pt, err := aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return nil, ErrDecrypt
	}
	return pt, nil
}
