package crypto

import (
	qxerrors "QuantumX/internal/errors"
)

// Chunk envelope layout: nonce || ciphertext || tag.
//
// CRITICAL: ChunkSize fixes the plaintext boundaries of every container and
// EnvelopeStride the ciphertext boundaries. They MUST NOT change.
const (
	ChunkSize      = 4 << 20 // 4 MiB of plaintext per chunk
	NonceSize      = 12
	TagSize        = 16
	Overhead       = NonceSize + TagSize
	EnvelopeStride = ChunkSize + Overhead
)

// ChunkCodec seals and opens chunk envelopes under one derived key.
// It is safe for concurrent use as long as the Provider is.
type ChunkCodec struct {
	provider Provider
	key      *KeyMaterial
}

// NewChunkCodec copies key into codec-owned memory; the caller may zero
// its own copy right away. A nil provider means NewStandard().
func NewChunkCodec(p Provider, key []byte) (*ChunkCodec, error) {
	if len(key) != KeySize {
		return nil, qxerrors.NewValidationError("key", "must be 32 bytes")
	}
	if p == nil {
		p = NewStandard()
	}
	return &ChunkCodec{provider: p, key: NewKeyMaterial(key)}, nil
}

// EncryptChunk returns a freshly allocated envelope for plaintext.
func (c *ChunkCodec) EncryptChunk(plaintext []byte) ([]byte, error) {
	return c.SealTo(make([]byte, 0, len(plaintext)+Overhead), plaintext)
}

// SealTo appends the envelope for plaintext to dst using a fresh random
// nonce. Passing dst with enough capacity avoids an allocation.
func (c *ChunkCodec) SealTo(dst, plaintext []byte) ([]byte, error) {
	if c.key.IsClosed() {
		return nil, qxerrors.NewCryptoError("aead", qxerrors.ErrCipherFailure)
	}

	nonce, err := c.provider.RandomBytes(NonceSize)
	if err != nil {
		return nil, err
	}

	dst = append(dst, nonce...)
	return c.provider.Seal(dst, c.key.Bytes(), nonce, plaintext)
}

// DecryptChunk opens one envelope. Short envelopes and tag mismatches both
// fail with ErrAuthFailed and never yield partial plaintext.
func (c *ChunkCodec) DecryptChunk(envelope []byte) ([]byte, error) {
	return c.OpenTo(nil, envelope)
}

// OpenTo appends the plaintext of envelope to dst.
func (c *ChunkCodec) OpenTo(dst, envelope []byte) ([]byte, error) {
	if len(envelope) < Overhead {
		return nil, qxerrors.ErrAuthFailed
	}
	if c.key.IsClosed() {
		return nil, qxerrors.NewCryptoError("aead", qxerrors.ErrCipherFailure)
	}
	return c.provider.Open(dst, c.key.Bytes(), envelope[:NonceSize], envelope[NonceSize:])
}

// Close zeroes the codec's key copy. The codec is unusable afterwards.
func (c *ChunkCodec) Close() {
	c.key.Close()
}
