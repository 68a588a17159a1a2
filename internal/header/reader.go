package header

import (
	"bytes"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	qxerrors "QuantumX/internal/errors"
	"QuantumX/internal/log"
)

// RangeReader is the random-access view of a container the Reader needs.
type RangeReader interface {
	Size() int64
	// ReadRange returns bytes [start, end).
	ReadRange(start, end int64) ([]byte, error)
}

// ParseOptions controls container recognition.
type ParseOptions struct {
	// Strict rejects any record whose appIdentifier does not match.
	// Otherwise a record with a non-empty fileName is accepted with a
	// warning.
	Strict bool
}

// ReadResult is a parsed header and where the ciphertext stream starts.
type ReadResult struct {
	Metadata      *Metadata
	Raw           []byte // Metadata record as stored, before the separator
	PayloadOffset int64
}

// Reader locates and decodes the header of a container.
type Reader struct {
	src  RangeReader
	opts ParseOptions
}

// NewReader creates a header reader over src.
func NewReader(src RangeReader, opts ParseOptions) *Reader {
	return &Reader{src: src, opts: opts}
}

// ReadHeader searches a growing window from the start of the source for
// the separator, then decodes and validates the metadata before it.
func (r *Reader) ReadHeader() (*ReadResult, error) {
	size := r.src.Size()
	window := int64(InitialSearchWindow)

	for {
		n := min(window, size)
		buf, err := r.src.ReadRange(0, n)
		if err != nil {
			return nil, fmt.Errorf("read header window: %w", err)
		}

		if idx := bytes.Index(buf, separatorBytes); idx >= 0 {
			m, err := decodeMetadata(buf[:idx], r.opts)
			if err != nil {
				return nil, err
			}
			return &ReadResult{
				Metadata:      m,
				Raw:           bytes.Clone(buf[:idx]),
				PayloadOffset: int64(idx + len(Separator)),
			}, nil
		}

		if n >= size {
			return nil, qxerrors.NewFormatError(qxerrors.ErrMissingSeparator, nil)
		}
		log.Debug("separator not in window, growing", log.Int64("window", n))
		window *= 2
	}
}

// Parse splits an in-memory container into its metadata and ciphertext
// stream. The returned slice aliases artifact.
func Parse(artifact []byte, opts ParseOptions) (*Metadata, []byte, error) {
	res, err := NewReader(bytesRange(artifact), opts).ReadHeader()
	if err != nil {
		return nil, nil, err
	}
	return res.Metadata, artifact[res.PayloadOffset:], nil
}

func decodeMetadata(prefix []byte, opts ParseOptions) (*Metadata, error) {
	if !utf8.Valid(prefix) {
		return nil, qxerrors.NewFormatError(qxerrors.ErrInvalidMetadata, fmt.Errorf("metadata is not valid UTF-8"))
	}

	m, err := unmarshalExact(prefix)
	if err != nil {
		return nil, qxerrors.NewFormatError(qxerrors.ErrInvalidMetadata, err)
	}

	if m.Recognized() {
		return m, nil
	}
	if opts.Strict || m.FileName == "" {
		return nil, qxerrors.NewFormatError(qxerrors.ErrUnrecognizedContainer,
			fmt.Errorf("appIdentifier %q", m.AppIdentifier))
	}

	log.Warn("accepting container with unexpected appIdentifier",
		log.String("appIdentifier", m.AppIdentifier),
		log.String("fileName", m.FileName))
	return m, nil
}

// unmarshalExact decodes a metadata record matching keys case-sensitively.
// json.Unmarshal into a struct would also accept "FILENAME" for fileName.
func unmarshalExact(prefix []byte) (*Metadata, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(prefix, &raw); err != nil {
		return nil, err
	}

	var m Metadata
	fields := []struct {
		key string
		dst any
	}{
		{"fileName", &m.FileName},
		{"fileType", &m.FileType},
		{"fileSize", &m.FileSize},
		{"passwordHash", &m.PasswordHash},
		{"encryptionDate", &m.EncryptionDate},
		{"appIdentifier", &m.AppIdentifier},
	}
	for _, f := range fields {
		v, ok := raw[f.key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(v, f.dst); err != nil {
			return nil, fmt.Errorf("%s: %w", f.key, err)
		}
	}
	return &m, nil
}

// bytesRange adapts a byte slice to RangeReader without copying.
type bytesRange []byte

func (b bytesRange) Size() int64 { return int64(len(b)) }

func (b bytesRange) ReadRange(start, end int64) ([]byte, error) {
	if start < 0 || end > int64(len(b)) || start > end {
		return nil, qxerrors.NewFileError("read", "memory", fmt.Errorf("range [%d, %d) out of bounds", start, end))
	}
	return b[start:end], nil
}
