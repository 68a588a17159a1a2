package util

import (
	"fmt"
	"math"
	"time"

	"github.com/dustin/go-humanize"
)

// ChunkPercent returns the completion percentage after chunk index i
// (zero-based) of total has finished. total <= 0 counts as complete.
func ChunkPercent(i, total int) float64 {
	if total <= 0 {
		return 100
	}
	p := float64(i+1) / float64(total) * 100
	return math.Min(p, 100)
}

// Statify converts done bytes, total bytes, and starting time to progress, speed (MiB/s), and ETA string.
// Returns: progress (0.0-1.0), speed in MiB/s, ETA as "HH:MM:SS"
func Statify(done int64, total int64, start time.Time) (float32, float64, string) {
	if total <= 0 {
		return 0, 0, "00:00:00"
	}

	progress := float32(done) / float32(total)

	elapsed := time.Since(start).Seconds()
	if elapsed <= 0 {
		return float32(math.Min(float64(progress), 1)), 0, "00:00:00"
	}

	speed := float64(done) / elapsed / float64(MiB)

	var eta int
	if speed > 0 {
		eta = int(math.Floor(float64(total-done) / (speed * float64(MiB))))
	}

	return float32(math.Min(float64(progress), 1)), speed, Timeify(eta)
}

// Timeify converts seconds to "HH:MM:SS" format.
func Timeify(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	hours := seconds / 3600
	minutes := seconds % 3600 / 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds%60)
}

// Sizeify converts bytes to a human-readable IEC string ("9.5 MiB").
func Sizeify(size int64) string {
	return humanize.IBytes(uint64(max(0, size)))
}

// Commafy renders an exact byte count with thousands separators.
func Commafy(n int64) string {
	return humanize.Comma(n)
}
