package header

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	qxerrors "QuantumX/internal/errors"
)

// countingRange records the windows requested by the Reader.
type countingRange struct {
	data  []byte
	reads []int64
}

func (c *countingRange) Size() int64 { return int64(len(c.data)) }

func (c *countingRange) ReadRange(start, end int64) ([]byte, error) {
	c.reads = append(c.reads, end-start)
	return bytes.Clone(c.data[start:end]), nil
}

func buildContainer(t *testing.T, m *Metadata, payload []byte) []byte {
	t.Helper()
	out, err := Build(m, payload)
	if err != nil {
		t.Fatal(err)
	}
	return out
}

func TestParseRoundTrip(t *testing.T) {
	m := NewMetadata("report.pdf", "application/pdf", 10_000_000, "abc", testDate)
	payload := bytes.Repeat([]byte{7}, 100)
	artifact := buildContainer(t, m, payload)

	got, rest, err := Parse(artifact, ParseOptions{})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if *got != *m {
		t.Errorf("metadata = %+v; want %+v", got, m)
	}
	if !bytes.Equal(rest, payload) {
		t.Error("payload mismatch")
	}
}

func TestReaderPayloadOffset(t *testing.T) {
	m := NewMetadata("a.bin", "", 0, "", testDate)
	artifact := buildContainer(t, m, nil)
	meta, _ := m.Marshal()

	res, err := NewReader(bytesRange(artifact), ParseOptions{}).ReadHeader()
	if err != nil {
		t.Fatal(err)
	}
	if want := int64(len(meta) + len(Separator)); res.PayloadOffset != want {
		t.Errorf("PayloadOffset = %d; want %d", res.PayloadOffset, want)
	}
	if res.PayloadOffset != int64(len(artifact)) {
		t.Error("empty payload should leave nothing after the separator")
	}
	if !bytes.Equal(res.Raw, meta) {
		t.Errorf("Raw = %s; want %s", res.Raw, meta)
	}
}

func TestReaderGrowsWindow(t *testing.T) {
	// Metadata larger than the first window forces at least one doubling.
	longName := strings.Repeat("n", 3*InitialSearchWindow) + ".txt"
	m := NewMetadata(longName, "", 1, "", testDate)
	src := &countingRange{data: buildContainer(t, m, []byte{1, 2, 3})}

	res, err := NewReader(src, ParseOptions{}).ReadHeader()
	if err != nil {
		t.Fatalf("ReadHeader failed: %v", err)
	}
	if res.Metadata.FileName != longName {
		t.Error("fileName mismatch after window growth")
	}

	if len(src.reads) < 2 {
		t.Fatalf("expected multiple windows, got %v", src.reads)
	}
	if src.reads[0] != InitialSearchWindow {
		t.Errorf("first window = %d; want %d", src.reads[0], InitialSearchWindow)
	}
	for i := 1; i < len(src.reads); i++ {
		if src.reads[i] != min(2*src.reads[i-1], src.Size()) {
			t.Errorf("window %d = %d; want double of %d", i, src.reads[i], src.reads[i-1])
		}
	}
}

func TestReaderSmallSourceSingleRead(t *testing.T) {
	src := &countingRange{data: buildContainer(t, NewMetadata("a", "", 1, "", testDate), []byte{9})}
	if _, err := NewReader(src, ParseOptions{}).ReadHeader(); err != nil {
		t.Fatal(err)
	}
	if len(src.reads) != 1 || src.reads[0] != src.Size() {
		t.Errorf("reads = %v; want one read of %d", src.reads, src.Size())
	}
}

func TestParseSeparatorAcrossWindowBoundary(t *testing.T) {
	// Place the separator so it straddles the first window edge.
	pad := InitialSearchWindow - len(`{"fileName":"`) - len(`","fileType":"","fileSize":1,"encryptionDate":"2024-05-01T12:00:00.123Z","appIdentifier":"QuantumX-Encryption-v1"}`) - 5
	m := NewMetadata(strings.Repeat("p", pad), "", 1, "", testDate)
	artifact := buildContainer(t, m, []byte("tail"))

	got, rest, err := Parse(artifact, ParseOptions{})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got.FileName != m.FileName || string(rest) != "tail" {
		t.Error("straddling separator was not handled")
	}
}

func TestParseFormatErrors(t *testing.T) {
	tests := []struct {
		name     string
		artifact []byte
		opts     ParseOptions
		kind     error
	}{
		{"empty", nil, ParseOptions{}, qxerrors.ErrMissingSeparator},
		{"no separator", bytes.Repeat([]byte("x"), 20000), ParseOptions{}, qxerrors.ErrMissingSeparator},
		{"plain file", []byte("%PDF-1.7 hello"), ParseOptions{}, qxerrors.ErrMissingSeparator},
		{"bad json", []byte(`{"fileName":` + Separator), ParseOptions{}, qxerrors.ErrInvalidMetadata},
		{"trailing garbage", []byte(`{"fileName":"a"} x` + Separator), ParseOptions{}, qxerrors.ErrInvalidMetadata},
		{"wrong type", []byte(`{"fileName":5}` + Separator), ParseOptions{}, qxerrors.ErrInvalidMetadata},
		{"invalid utf8", append([]byte{'{', '"', 0xff, '"', ':', '1', '}'}, Separator...), ParseOptions{}, qxerrors.ErrInvalidMetadata},
		{"foreign no name", []byte(`{"appIdentifier":"Other-v2"}` + Separator), ParseOptions{}, qxerrors.ErrUnrecognizedContainer},
		{"name in wrong case", []byte(`{"FILENAME":"x","AppIdentifier":"QuantumX-Encryption-v1"}` + Separator), ParseOptions{}, qxerrors.ErrUnrecognizedContainer},
		{"null record", []byte(`null` + Separator), ParseOptions{}, qxerrors.ErrUnrecognizedContainer},
		{"foreign strict", []byte(`{"fileName":"a.txt","appIdentifier":"Other-v2"}` + Separator), ParseOptions{Strict: true}, qxerrors.ErrUnrecognizedContainer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Parse(tt.artifact, tt.opts)
			if !errors.Is(err, qxerrors.ErrFormat) {
				t.Fatalf("error = %v; want FormatError", err)
			}
			if !errors.Is(err, tt.kind) {
				t.Errorf("error = %v; want kind %v", err, tt.kind)
			}
			var fe *qxerrors.FormatError
			if !errors.As(err, &fe) || fe.Kind != tt.kind {
				t.Errorf("errors.As FormatError kind mismatch: %v", err)
			}
		})
	}
}

func TestParseLenientAcceptsNamedRecord(t *testing.T) {
	artifact := []byte(`{"fileName":"legacy.txt","fileType":"text/plain","fileSize":3}` + Separator + "abc")

	m, rest, err := Parse(artifact, ParseOptions{})
	if err != nil {
		t.Fatalf("lenient Parse failed: %v", err)
	}
	if m.FileName != "legacy.txt" || m.Recognized() {
		t.Errorf("unexpected metadata %+v", m)
	}
	if string(rest) != "abc" {
		t.Errorf("payload = %q", rest)
	}
}

func TestParseFirstSeparatorWins(t *testing.T) {
	m := NewMetadata("a", "", 1, "", testDate)
	payload := []byte("xx" + Separator + "yy")
	_, rest, err := Parse(buildContainer(t, m, payload), ParseOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(rest, payload) {
		t.Errorf("payload = %q; separator bytes inside ciphertext must be kept", rest)
	}
}

func TestParseIgnoresUnknownFields(t *testing.T) {
	artifact := []byte(`{"fileName":"a","extra":{"k":[1,2]},"appIdentifier":"QuantumX-Encryption-v1"}` + Separator)
	m, _, err := Parse(artifact, ParseOptions{Strict: true})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if m.PasswordHash != "" {
		t.Error("missing passwordHash should decode as empty")
	}
}

func TestParseKeysAreCaseSensitive(t *testing.T) {
	artifact := []byte(`{"fileName":"a.txt","FileType":"text/plain","FILESIZE":9,"appIdentifier":"QuantumX-Encryption-v1"}` + Separator)
	m, _, err := Parse(artifact, ParseOptions{Strict: true})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if m.FileName != "a.txt" || m.FileType != "" || m.FileSize != 0 {
		t.Errorf("mis-cased keys should be ignored: %+v", m)
	}
}

func TestReaderRawKeepsRecord(t *testing.T) {
	record := `{"fileName":"a","extra":true,"appIdentifier":"QuantumX-Encryption-v1"}`
	res, err := NewReader(bytesRange(record+Separator+"payload"), ParseOptions{}).ReadHeader()
	if err != nil {
		t.Fatal(err)
	}
	if string(res.Raw) != record {
		t.Errorf("Raw = %s; want %s", res.Raw, record)
	}
}

type errRange struct{}

func (errRange) Size() int64 { return 100 }
func (errRange) ReadRange(start, end int64) ([]byte, error) {
	return nil, qxerrors.NewFileError("read", "broken", errors.New("device gone"))
}

func TestReaderSourceError(t *testing.T) {
	_, err := NewReader(errRange{}, ParseOptions{}).ReadHeader()
	if !errors.Is(err, qxerrors.ErrIO) {
		t.Errorf("error = %v; want ErrIO", err)
	}
}

func TestBytesRangeBounds(t *testing.T) {
	b := bytesRange("hello")
	if _, err := b.ReadRange(2, 10); err == nil {
		t.Error("out of range read should fail")
	}
	if _, err := b.ReadRange(3, 2); err == nil {
		t.Error("inverted range should fail")
	}
	got, err := b.ReadRange(1, 4)
	if err != nil || string(got) != "ell" {
		t.Errorf("ReadRange(1, 4) = %q, %v", got, err)
	}
}
