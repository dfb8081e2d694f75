// Package cryptox seals small secrets (the stored token pair) at rest.
//
// The sealing key is derived from an operator-supplied secret with Argon2id
// and a per-store random salt; values are encrypted with AES-256-GCM and
// stored as nonce||ciphertext.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// SaltSize is the length of the random salt fed to DeriveKey.
const SaltSize = 16

const (
	keySize     = 32
	argonTime   = 1
	argonMemory = 64 * 1024
	argonLanes  = 4
)

// ErrMalformed is returned by Open when the sealed value is too short to hold
// a nonce.
var ErrMalformed = errors.New("malformed sealed value")

// DeriveKey stretches secret into a 32-byte AES key.
func DeriveKey(secret, salt []byte) []byte {
	return argon2.IDKey(secret, salt, argonTime, argonMemory, argonLanes, keySize)
}

// Sealer encrypts and decrypts values with a fixed key.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer builds a Sealer from a secret and salt.
func NewSealer(secret, salt []byte) (*Sealer, error) {
	block, err := aes.NewCipher(DeriveKey(secret, salt))
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}
	return &Sealer{aead: aead}, nil
}

// Seal returns nonce||ciphertext for plaintext.
func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return s.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open reverses Seal.
func (s *Sealer) Open(sealed []byte) ([]byte, error) {
	n := s.aead.NonceSize()
	if len(sealed) < n {
		return nil, ErrMalformed
	}
	return s.aead.Open(nil, sealed[:n], sealed[n:], nil)
}
