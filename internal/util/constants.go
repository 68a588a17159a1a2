// Package util provides shared helpers for QuantumX:
// size constants, progress and size formatting, pooled chunk buffers and
// the password generator. Everything here is stateless or safe for
// concurrent use.
package util

// Size constants for byte calculations
const (
	KiB = 1 << 10
	MiB = 1 << 20
	GiB = 1 << 30
	TiB = 1 << 40
)
