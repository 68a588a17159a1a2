// Package errors provides typed errors for QuantumX operations.
// Callers use errors.Is() and errors.As() to pick user messaging, or KindOf()
// when only the broad category matters.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors. Every error returned by the core matches exactly one of the
// category sentinels (ErrInput, ErrFormat, ErrPasswordMismatch, ErrAuthFailed,
// ErrIO, ErrCancelled) through errors.Is.
var (
	// Categories
	ErrInput            = errors.New("invalid input")
	ErrFormat           = errors.New("not a QuantumX container")
	ErrPasswordMismatch = errors.New("incorrect password")
	ErrAuthFailed       = errors.New("authentication failed")
	ErrIO               = errors.New("i/o failure")
	ErrCancelled        = errors.New("operation cancelled")

	// Input errors, checked before the core runs
	ErrNoInput             = fmt.Errorf("%w: no file selected", ErrInput)
	ErrEmptyPassword       = fmt.Errorf("%w: password cannot be empty", ErrInput)
	ErrPasswordConfirm     = fmt.Errorf("%w: passwords do not match", ErrInput)
	ErrSeparatorInMetadata = fmt.Errorf("%w: metadata contains the container separator", ErrInput)

	// Format error kinds
	ErrMissingSeparator      = errors.New("missing separator")
	ErrInvalidMetadata       = errors.New("invalid metadata")
	ErrUnrecognizedContainer = errors.New("unrecognized container")

	// Crypto failures that are neither authentication nor input problems
	ErrRandFailure   = errors.New("crypto/rand failure")
	ErrKeyDerivation = errors.New("key derivation failed")
	ErrCipherFailure = errors.New("cipher operation failed")
)

// Kind is the coarse error category a caller needs for user messaging.
type Kind int

const (
	KindUnknown Kind = iota
	KindInput
	KindFormat
	KindPasswordMismatch
	KindAuthentication
	KindIO
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "InputError"
	case KindFormat:
		return "FormatError"
	case KindPasswordMismatch:
		return "PasswordMismatch"
	case KindAuthentication:
		return "AuthenticationError"
	case KindIO:
		return "IOError"
	case KindCancelled:
		return "Cancelled"
	default:
		return "UnknownError"
	}
}

// KindOf classifies err. Cancellation wins over everything else because a
// cancelled run often surfaces a secondary I/O error as well.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrCancelled):
		return KindCancelled
	case errors.Is(err, ErrAuthFailed):
		return KindAuthentication
	case errors.Is(err, ErrPasswordMismatch):
		return KindPasswordMismatch
	case errors.Is(err, ErrFormat):
		return KindFormat
	case errors.Is(err, ErrInput):
		return KindInput
	case errors.Is(err, ErrIO):
		return KindIO
	default:
		return KindUnknown
	}
}

// FormatError reports an artifact that is not a valid container.
// Kind is one of ErrMissingSeparator, ErrInvalidMetadata or ErrUnrecognizedContainer.
type FormatError struct {
	Kind error
	Err  error // Underlying parse error, may be nil
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: %v: %v", ErrFormat, e.Kind, e.Err)
	}
	return fmt.Sprintf("%v: %v", ErrFormat, e.Kind)
}

func (e *FormatError) Unwrap() []error {
	errs := []error{ErrFormat, e.Kind}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// NewFormatError creates a new FormatError.
func NewFormatError(kind, err error) *FormatError {
	return &FormatError{Kind: kind, Err: err}
}

// ChunkError attaches the chunk index and pipeline stage to a failure.
type ChunkError struct {
	Index int    // Zero-based chunk index
	Stage string // "read", "encrypt", "decrypt", "write"
	Err   error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("chunk %d: %s: %v", e.Index, e.Stage, e.Err)
}

func (e *ChunkError) Unwrap() error {
	return e.Err
}

// NewChunkError creates a new ChunkError.
func NewChunkError(index int, stage string, err error) *ChunkError {
	return &ChunkError{Index: index, Stage: stage, Err: err}
}

// CryptoError represents an error during cryptographic operations.
type CryptoError struct {
	Op  string // Operation name: "rand", "pbkdf2", "aead"
	Err error
}

func (e *CryptoError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("crypto %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("crypto %s failed", e.Op)
}

func (e *CryptoError) Unwrap() error {
	return e.Err
}

// NewCryptoError creates a new CryptoError.
func NewCryptoError(op string, err error) *CryptoError {
	return &CryptoError{Op: op, Err: err}
}

// FileError represents a failed read or write of the underlying byte source or sink.
// It always matches ErrIO.
type FileError struct {
	Op   string // Operation: "open", "read", "write", "stat", "rename"
	Path string
	Err  error
}

func (e *FileError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s %s failed", e.Op, e.Path)
}

func (e *FileError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrIO, e.Err}
	}
	return []error{ErrIO}
}

// NewFileError creates a new FileError.
func NewFileError(op, path string, err error) *FileError {
	return &FileError{Op: op, Path: path, Err: err}
}

// ValidationError represents an input validation error. It matches ErrInput.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInput
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// IsCancelled checks if the error indicates a cancelled operation.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}

// IsAuthFailed checks if the error indicates an AEAD verification failure.
func IsAuthFailed(err error) bool {
	return errors.Is(err, ErrAuthFailed)
}

// IsWrongPassword reports whether err is either signal of a wrong password.
func IsWrongPassword(err error) bool {
	return errors.Is(err, ErrPasswordMismatch) || errors.Is(err, ErrAuthFailed)
}
