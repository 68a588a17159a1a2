package volume

import (
	"bytes"
	"encoding/binary"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"QuantumX/internal/crypto"
	"QuantumX/internal/header"
)

// testReporter records what an operation reports.
type testReporter struct {
	mu        sync.Mutex
	statuses  []string
	progress  []float32
	canCancel bool
	cancelled bool
}

func (r *testReporter) SetStatus(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, text)
}

func (r *testReporter) SetProgress(fraction float32, info string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, fraction)
}

func (r *testReporter) SetCanCancel(can bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.canCancel = can
}

func (r *testReporter) Update() {}

func (r *testReporter) IsCancelled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancelled
}

// counterReader yields a big-endian counter per read, starting at 1, so
// every nonce it produces is distinct and non-zero.
type counterReader struct {
	mu sync.Mutex
	n  uint64
}

func (r *counterReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.n++
	clear(p)
	if len(p) >= 8 {
		binary.BigEndian.PutUint64(p[len(p)-8:], r.n)
	} else {
		for i := range p {
			p[i] = byte(r.n)
		}
	}
	return len(p), nil
}

var fixedDate = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return fixedDate }

// testPlaintext returns n reproducible pseudo-random bytes.
func testPlaintext(n int) []byte {
	r := rand.New(rand.NewPCG(uint64(n), 42))
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(r.Uint32())
	}
	return b
}

func encryptForTest(t *testing.T, req *EncryptRequest) []byte {
	t.Helper()
	var buf bytes.Buffer
	if _, err := Encrypt(t.Context(), req, &buf); err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	return buf.Bytes()
}

// envelopes splits the ciphertext stream of artifact at the envelope stride.
func envelopes(t *testing.T, artifact []byte) [][]byte {
	t.Helper()
	_, payload, err := header.Parse(artifact, header.ParseOptions{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	var out [][]byte
	for len(payload) > 0 {
		n := min(len(payload), crypto.EnvelopeStride)
		out = append(out, payload[:n])
		payload = payload[n:]
	}
	return out
}
