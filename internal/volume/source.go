package volume

import (
	"errors"
	"fmt"
	"io"
	"os"

	qxerrors "QuantumX/internal/errors"
)

// ByteSource is random access to the bytes being encrypted or decrypted.
// Chunks are pulled lazily so the whole input never has to be resident.
type ByteSource interface {
	Size() int64
	// ReadRange returns bytes [start, end). The slice may alias internal
	// storage and must not be modified.
	ReadRange(start, end int64) ([]byte, error)
}

// rangeFiller is implemented by sources that can read into a caller's
// buffer, letting the sequential pipeline reuse one pooled read buffer.
type rangeFiller interface {
	// FillRange reads len(dst) bytes starting at start into dst.
	FillRange(dst []byte, start int64) error
}

// readRange returns [start, end) of src, read into buf when src is a
// rangeFiller and buf is large enough.
func readRange(src ByteSource, start, end int64, buf []byte) ([]byte, error) {
	f, ok := src.(rangeFiller)
	if !ok || int64(cap(buf)) < end-start {
		return src.ReadRange(start, end)
	}
	buf = buf[:end-start]
	if err := f.FillRange(buf, start); err != nil {
		return nil, err
	}
	return buf, nil
}

func checkRange(size, start, end int64) error {
	if start < 0 || end < start || end > size {
		return fmt.Errorf("range [%d, %d) outside source of %d bytes", start, end, size)
	}
	return nil
}

type bytesSource struct {
	data []byte
}

// NewBytesSource wraps an in-memory buffer without copying it.
func NewBytesSource(data []byte) ByteSource {
	return &bytesSource{data: data}
}

func (s *bytesSource) Size() int64 {
	return int64(len(s.data))
}

func (s *bytesSource) ReadRange(start, end int64) ([]byte, error) {
	if err := checkRange(s.Size(), start, end); err != nil {
		return nil, qxerrors.NewFileError("read", "memory", err)
	}
	return s.data[start:end], nil
}

// FileSource reads ranges of a file with ReadAt. The size is fixed when
// the file is opened.
type FileSource struct {
	f    *os.File
	path string
	size int64
}

// OpenFileSource opens path for ranged reads. The caller must Close it.
func OpenFileSource(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, qxerrors.NewFileError("open", path, err)
	}
	stat, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, qxerrors.NewFileError("stat", path, err)
	}
	if stat.IsDir() {
		_ = f.Close()
		return nil, qxerrors.NewValidationError("input", path+" is a directory")
	}
	return &FileSource{f: f, path: path, size: stat.Size()}, nil
}

// Path returns the file path the source was opened with.
func (s *FileSource) Path() string {
	return s.path
}

func (s *FileSource) Size() int64 {
	return s.size
}

func (s *FileSource) ReadRange(start, end int64) ([]byte, error) {
	if err := checkRange(s.size, start, end); err != nil {
		return nil, qxerrors.NewFileError("read", s.path, err)
	}
	buf := make([]byte, end-start)
	if err := s.FillRange(buf, start); err != nil {
		return nil, err
	}
	return buf, nil
}

// FillRange reads len(dst) bytes at start into dst.
func (s *FileSource) FillRange(dst []byte, start int64) error {
	if err := checkRange(s.size, start, start+int64(len(dst))); err != nil {
		return qxerrors.NewFileError("read", s.path, err)
	}
	n, err := s.f.ReadAt(dst, start)
	if n == len(dst) {
		return nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return qxerrors.NewFileError("read", s.path, err)
}

// Close closes the underlying file.
func (s *FileSource) Close() error {
	return s.f.Close()
}

type sectionSource struct {
	src    ByteSource
	offset int64
}

// NewSectionSource is a view of src from offset to its end. Decryption
// uses it to expose the ciphertext stream that follows the header.
func NewSectionSource(src ByteSource, offset int64) ByteSource {
	offset = min(max(offset, 0), src.Size())
	return &sectionSource{src: src, offset: offset}
}

func (s *sectionSource) Size() int64 {
	return s.src.Size() - s.offset
}

func (s *sectionSource) ReadRange(start, end int64) ([]byte, error) {
	if err := checkRange(s.Size(), start, end); err != nil {
		return nil, qxerrors.NewFileError("read", "section", err)
	}
	return s.src.ReadRange(s.offset+start, s.offset+end)
}

func (s *sectionSource) FillRange(dst []byte, start int64) error {
	end := start + int64(len(dst))
	if err := checkRange(s.Size(), start, end); err != nil {
		return qxerrors.NewFileError("read", "section", err)
	}
	if f, ok := s.src.(rangeFiller); ok {
		return f.FillRange(dst, s.offset+start)
	}
	in, err := s.src.ReadRange(s.offset+start, s.offset+end)
	if err != nil {
		return err
	}
	copy(dst, in)
	return nil
}
