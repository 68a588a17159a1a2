// Package header reads and writes the QuantumX container header: a JSON
// metadata record followed by a fixed separator, with the chunk envelope
// stream appended after it.
//
// CRITICAL: the byte layout here must stay compatible with containers
// produced by the web application.
package header

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	qxerrors "QuantumX/internal/errors"
)

// Format constants
const (
	AppIdentifier   = "QuantumX-Encryption-v1"
	Separator       = "---QUANTUMX-METADATA-SEPARATOR---"
	DefaultFileType = "application/octet-stream"

	// DateLayout renders a UTC time the way ISO-8601 with milliseconds does
	// (2024-05-01T12:00:00.000Z).
	DateLayout = "2006-01-02T15:04:05.000Z07:00"

	// InitialSearchWindow is the first window searched for the separator.
	// It doubles until the separator is found or the source is exhausted.
	InitialSearchWindow = 8 << 10
)

var separatorBytes = []byte(Separator)

// Metadata is the plaintext record at the front of every container.
// Field order is the serialization order.
type Metadata struct {
	FileName       string `json:"fileName"`
	FileType       string `json:"fileType"`
	FileSize       int64  `json:"fileSize"`
	PasswordHash   string `json:"passwordHash,omitempty"`
	EncryptionDate string `json:"encryptionDate"`
	AppIdentifier  string `json:"appIdentifier"`
}

// NewMetadata builds a record stamped with now (converted to UTC).
// passwordHash may be empty to leave the advisory check out.
func NewMetadata(fileName, fileType string, fileSize int64, passwordHash string, now time.Time) *Metadata {
	return &Metadata{
		FileName:       fileName,
		FileType:       fileType,
		FileSize:       fileSize,
		PasswordHash:   passwordHash,
		EncryptionDate: now.UTC().Format(DateLayout),
		AppIdentifier:  AppIdentifier,
	}
}

// Marshal serializes the record compactly with no trailing newline and
// without HTML escaping. A record whose encoding contains the separator
// is rejected, since a reader would split it at the wrong place.
func (m *Metadata) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(m); err != nil {
		return nil, qxerrors.NewValidationError("metadata", err.Error())
	}
	out := unescapeLineSeparators(bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}))

	if bytes.Contains(out, separatorBytes) {
		return nil, qxerrors.ErrSeparatorInMetadata
	}
	return out, nil
}

// unescapeLineSeparators turns the \u2028 and \u2029 escapes encoding/json
// emits back into raw UTF-8, which is what other JSON producers write.
// Every backslash inside a JSON string starts an escape, so escapes are
// consumed in pairs to avoid touching an escaped backslash.
func unescapeLineSeparators(b []byte) []byte {
	if !bytes.Contains(b, []byte(`\u202`)) {
		return b
	}
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		if b[i] != '\\' || i+1 >= len(b) {
			out = append(out, b[i])
			continue
		}
		if i+5 < len(b) && b[i+1] == 'u' && string(b[i+2:i+5]) == "202" && (b[i+5] == '8' || b[i+5] == '9') {
			r := '\u2028'
			if b[i+5] == '9' {
				r = '\u2029'
			}
			out = utf8.AppendRune(out, r)
			i += 5
			continue
		}
		out = append(out, b[i], b[i+1])
		i++
	}
	return out
}

// Recognized reports whether the record carries the expected identifier.
func (m *Metadata) Recognized() bool {
	return m.AppIdentifier == AppIdentifier
}

// MIMEType returns FileType, or DefaultFileType when it is empty.
func (m *Metadata) MIMEType() string {
	if m.FileType == "" {
		return DefaultFileType
	}
	return m.FileType
}

// Time parses EncryptionDate.
func (m *Metadata) Time() (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, m.EncryptionDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("encryption date %q: %w", m.EncryptionDate, err)
	}
	return t, nil
}

// HasPasswordHash reports whether the advisory password check can run.
func (m *Metadata) HasPasswordHash() bool {
	return m.PasswordHash != ""
}
