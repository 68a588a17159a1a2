// Package cli implements the quantumx command-line interface.
package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"QuantumX/internal/util"
	"QuantumX/internal/volume"
)

var _ volume.ProgressReporter = (*Reporter)(nil)

// Reporter implements volume.ProgressReporter for terminal output.
// Progress is drawn on a single line that gets overwritten.
type Reporter struct {
	mu        sync.Mutex
	out       io.Writer
	status    string
	progress  float32
	info      string
	quiet     bool
	cancelled atomic.Bool
	lastLine  int // Length of last printed line (for clearing)

	total int64 // Bytes being processed, for speed and ETA
	start time.Time
}

// NewReporter creates a reporter writing to out.
// If quiet is true, only errors are printed.
func NewReporter(out io.Writer, quiet bool) *Reporter {
	return &Reporter{out: out, quiet: quiet}
}

// Begin records the size of the input and starts the clock used for the
// speed and ETA display.
func (r *Reporter) Begin(total int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.total = total
	r.start = time.Now()
}

// SetStatus updates the status message.
func (r *Reporter) SetStatus(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = text
}

// SetProgress updates the progress bar and info text.
func (r *Reporter) SetProgress(fraction float32, info string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = fraction
	r.info = info
}

// SetCanCancel is a no-op; the CLI is always cancellable with Ctrl+C.
func (r *Reporter) SetCanCancel(can bool) {}

// Update redraws the progress line.
func (r *Reporter) Update() {
	if r.quiet {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	barWidth := 30
	filled := min(max(int(r.progress*float32(barWidth)), 0), barWidth)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)

	// [████████░░░░░░░░░░░░░░░░░░░░░░]  25% 1/4 chunks | Encrypting... 150.00 MiB/s (ETA: 00:00:05)
	line := fmt.Sprintf("\r[%s] %3.0f%% %s | %s", bar, r.progress*100, r.info, r.status)
	if r.total > 0 {
		done := int64(float64(r.progress) * float64(r.total))
		_, speed, eta := util.Statify(done, r.total, r.start)
		line += fmt.Sprintf(" %.2f MiB/s (ETA: %s)", speed, eta)
	}

	// Clear previous line if it was longer
	if len(line) < r.lastLine {
		line += strings.Repeat(" ", r.lastLine-len(line))
	}
	r.lastLine = len(line)

	fmt.Fprint(r.out, line)
}

// IsCancelled checks if the operation was cancelled.
func (r *Reporter) IsCancelled() bool {
	return r.cancelled.Load()
}

// Cancel marks the operation as cancelled. The commands call it once their
// context is done.
func (r *Reporter) Cancel() {
	r.cancelled.Store(true)
}

// Finish moves past the progress line.
func (r *Reporter) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.quiet && r.lastLine > 0 {
		fmt.Fprintln(r.out)
		r.lastLine = 0
	}
}

// Printf prints an informational line unless quiet.
func (r *Reporter) Printf(format string, args ...any) {
	if r.quiet {
		return
	}
	fmt.Fprintf(r.out, format+"\n", args...)
}

// Fail prints err and returns it marked as already reported.
func (r *Reporter) Fail(err error) error {
	r.Finish()
	fmt.Fprintf(r.out, "Error: %s\n", describe(err))
	return &reportedError{err: err}
}
