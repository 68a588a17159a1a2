// Package crypto holds the key derivation and per-chunk AEAD used by
// QuantumX containers. Everything in here is format-critical: changing a
// constant makes existing containers undecryptable.
package crypto

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"

	qxerrors "QuantumX/internal/errors"
)

// Key derivation parameters.
//
// CRITICAL: These MUST NOT change or existing containers cannot be decrypted.
const (
	KDFSalt       = "cipher-chunk-share-flow-salt"
	KDFIterations = 100000
	KeySize       = 32 // AES-256
)

// RandomBytes reads n bytes from r, which is crypto/rand.Reader when nil.
// An all-zero result is treated as a broken generator.
func RandomBytes(r io.Reader, n int) ([]byte, error) {
	if r == nil {
		r = rand.Reader
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, qxerrors.NewCryptoError("rand", fmt.Errorf("%w: %w", qxerrors.ErrRandFailure, err))
	}

	if n > 0 && bytes.Equal(b, make([]byte, n)) {
		return nil, qxerrors.NewCryptoError("rand", fmt.Errorf("%w: produced zero bytes", qxerrors.ErrRandFailure))
	}

	return b, nil
}

// PasswordHash returns the lowercase hex SHA-256 of the UTF-8 password.
// It is stored in the metadata as a fast wrong-password check only; the
// AEAD tag is the real authentication.
func PasswordHash(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// DeriveKey derives the AES-256 key from password with PBKDF2-HMAC-SHA256
// over the fixed format salt. Identical passwords give identical keys
// across files; the salt is part of the container format.
func DeriveKey(password string) ([]byte, error) {
	if password == "" {
		return nil, qxerrors.ErrEmptyPassword
	}

	key := pbkdf2.Key([]byte(password), []byte(KDFSalt), KDFIterations, KeySize, sha256.New)

	if bytes.Equal(key, make([]byte, KeySize)) {
		return nil, qxerrors.NewCryptoError("pbkdf2", fmt.Errorf("%w: produced zero key", qxerrors.ErrKeyDerivation))
	}

	return key, nil
}
