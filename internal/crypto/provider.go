package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
	"io"

	qxerrors "QuantumX/internal/errors"
)

// Provider is the set of primitives the chunk pipeline needs. Tests swap
// in providers with deterministic randomness or injected failures.
type Provider interface {
	DeriveKey(password string) ([]byte, error)
	// Seal appends nonce-bound ciphertext||tag of plaintext to dst.
	Seal(dst, key, nonce, plaintext []byte) ([]byte, error)
	// Open appends the plaintext of ciphertext||tag to dst, failing with
	// ErrAuthFailed when the tag does not verify.
	Open(dst, key, nonce, ciphertext []byte) ([]byte, error)
	RandomBytes(n int) ([]byte, error)
}

// Standard is the default Provider: PBKDF2 key derivation, AES-256-GCM and
// crypto/rand. Rand overrides the random source when non-nil.
type Standard struct {
	Rand io.Reader
}

// NewStandard returns a Standard provider backed by crypto/rand.
func NewStandard() *Standard {
	return &Standard{}
}

func (s *Standard) DeriveKey(password string) ([]byte, error) {
	return DeriveKey(password)
}

func (s *Standard) RandomBytes(n int) ([]byte, error) {
	return RandomBytes(s.Rand, n)
}

func (s *Standard) Seal(dst, key, nonce, plaintext []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != aead.NonceSize() {
		return nil, qxerrors.NewCryptoError("aead", fmt.Errorf("%w: nonce must be %d bytes", qxerrors.ErrCipherFailure, aead.NonceSize()))
	}
	return aead.Seal(dst, nonce, plaintext, nil), nil
}

func (s *Standard) Open(dst, key, nonce, ciphertext []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != aead.NonceSize() || len(ciphertext) < aead.Overhead() {
		return nil, qxerrors.ErrAuthFailed
	}
	out, err := aead.Open(dst, nonce, ciphertext, nil)
	if err != nil {
		return nil, qxerrors.ErrAuthFailed
	}
	return out, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, qxerrors.NewCryptoError("aead", fmt.Errorf("%w: %w", qxerrors.ErrCipherFailure, err))
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, qxerrors.NewCryptoError("aead", fmt.Errorf("%w: %w", qxerrors.ErrCipherFailure, err))
	}
	return aead, nil
}
