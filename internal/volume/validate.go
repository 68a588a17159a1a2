package volume

import (
	qxerrors "QuantumX/internal/errors"
)

// MaxWorkers caps EncryptRequest.Workers and DecryptRequest.Workers.
const MaxWorkers = 64

func validateWorkers(n int) error {
	if n < 0 || n > MaxWorkers {
		return qxerrors.NewValidationError("Workers", "must be between 0 and 64")
	}
	return nil
}

// Validate checks that the EncryptRequest has an input, a password and a
// file name to record.
func (req *EncryptRequest) Validate() error {
	if req.Source == nil && req.InputFile == "" {
		return qxerrors.ErrNoInput
	}
	if req.Password == "" {
		return qxerrors.ErrEmptyPassword
	}
	if req.FileName == "" && req.InputFile == "" {
		return qxerrors.NewValidationError("FileName", "file name is required")
	}
	return validateWorkers(req.Workers)
}

// Validate checks that the DecryptRequest has a container to read and,
// unless only the header is wanted, a password.
func (req *DecryptRequest) Validate() error {
	if req.Source == nil && req.InputFile == "" {
		return qxerrors.ErrNoInput
	}
	if req.Password == "" {
		return qxerrors.ErrEmptyPassword
	}
	return validateWorkers(req.Workers)
}
