// Package fileops writes QuantumX output files.
//
// Output is written to "<path>.incomplete" and renamed into place only
// after the operation succeeds. A failed or cancelled run removes the
// temporary file, so no partial container or plaintext is left under the
// final name.
package fileops

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	qxerrors "QuantumX/internal/errors"
)

// IncompleteSuffix marks an output that is still being written.
const IncompleteSuffix = ".incomplete"

// ErrExists is returned by Create when the destination exists and
// overwriting was not requested.
var ErrExists = qxerrors.NewValidationError("output", "file already exists")

// ErrSameFile is returned when the destination or its temporary file is
// one of the inputs being read.
var ErrSameFile = qxerrors.NewValidationError("output", "refers to the input file")

// Output is a destination file that only appears under its final name
// once Commit succeeds.
type Output struct {
	f    *os.File
	path string
	tmp  string
	done bool
}

// Create opens path+IncompleteSuffix for writing. Unless overwrite is set,
// an existing file at path is an error. Neither path nor its temporary file
// may be one of inputs.
func Create(path string, overwrite bool, inputs ...string) (*Output, error) {
	if err := CheckDistinct(path, inputs...); err != nil {
		return nil, err
	}
	if !overwrite && Exists(path) {
		return nil, ErrExists
	}

	tmp := path + IncompleteSuffix
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, qxerrors.NewFileError("create", tmp, err)
	}
	return &Output{f: f, path: path, tmp: tmp}, nil
}

// Path returns the final destination path.
func (o *Output) Path() string {
	return o.path
}

// TempPath returns the path being written until Commit.
func (o *Output) TempPath() string {
	return o.tmp
}

func (o *Output) Write(p []byte) (int, error) {
	if o.done {
		return 0, qxerrors.NewFileError("write", o.tmp, fs.ErrClosed)
	}
	n, err := o.f.Write(p)
	if err != nil {
		return n, qxerrors.NewFileError("write", o.tmp, err)
	}
	return n, nil
}

// Commit flushes the file and renames it to its final name.
func (o *Output) Commit() error {
	if o.done {
		return qxerrors.NewFileError("commit", o.tmp, fs.ErrClosed)
	}
	o.done = true

	// Sync to ensure data is flushed before renaming
	if err := o.f.Sync(); err != nil {
		o.f.Close()
		os.Remove(o.tmp)
		return qxerrors.NewFileError("sync", o.tmp, err)
	}
	if err := o.f.Close(); err != nil {
		os.Remove(o.tmp)
		return qxerrors.NewFileError("close", o.tmp, err)
	}
	if err := os.Rename(o.tmp, o.path); err != nil {
		os.Remove(o.tmp)
		return qxerrors.NewFileError("rename", o.path, err)
	}
	return nil
}

// Abort closes and removes the temporary file. It is a no-op after Commit
// or a previous Abort, so it can be deferred unconditionally.
func (o *Output) Abort() error {
	if o.done {
		return nil
	}
	o.done = true

	closeErr := o.f.Close()
	if err := os.Remove(o.tmp); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return qxerrors.NewFileError("remove", o.tmp, err)
	}
	if closeErr != nil {
		return qxerrors.NewFileError("close", o.tmp, closeErr)
	}
	return nil
}

// CheckDistinct returns ErrSameFile if path or path+IncompleteSuffix
// names the same file as any of inputs. Symlinks and hard links count.
func CheckDistinct(path string, inputs ...string) error {
	tmp := path + IncompleteSuffix
	for _, in := range inputs {
		if SameFile(path, in) || SameFile(tmp, in) {
			return ErrSameFile
		}
	}
	return nil
}

// SameFile reports whether a and b both exist and are the same file.
func SameFile(a, b string) bool {
	ai, err := os.Stat(a)
	if err != nil {
		return false
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ai, bi)
}

// Exists reports whether anything exists at path.
func Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// SiblingPath returns name placed in the directory of ref.
func SiblingPath(ref, name string) string {
	return filepath.Join(filepath.Dir(ref), name)
}
