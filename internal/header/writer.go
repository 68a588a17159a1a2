package header

import (
	"fmt"
	"io"
)

// Writer writes a container header to an output stream. Chunk envelopes
// are written to the same stream afterwards.
type Writer struct {
	w io.Writer
}

// NewWriter creates a header writer for the given output stream
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteHeader writes serialize(m) || Separator and returns the byte count,
// which is also the payload offset a reader will compute.
func (w *Writer) WriteHeader(m *Metadata) (int, error) {
	meta, err := m.Marshal()
	if err != nil {
		return 0, err
	}

	var total int
	n, err := w.w.Write(meta)
	total += n
	if err != nil {
		return total, fmt.Errorf("write metadata: %w", err)
	}

	n, err = io.WriteString(w.w, Separator)
	total += n
	if err != nil {
		return total, fmt.Errorf("write separator: %w", err)
	}

	return total, nil
}

// Build assembles a complete container in memory.
func Build(m *Metadata, ciphertext []byte) ([]byte, error) {
	meta, err := m.Marshal()
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(meta)+len(Separator)+len(ciphertext))
	out = append(out, meta...)
	out = append(out, Separator...)
	out = append(out, ciphertext...)
	return out, nil
}
