// Package volume runs QuantumX encryption and decryption: it derives the
// key, drives the chunk pipeline over a byte source and reads or writes
// the container header around it.
//
// Encryption pipeline:
//  1. Open: resolve the byte source and build the metadata record
//  2. Derive key: PBKDF2 over the password
//  3. Write header: metadata JSON and separator
//  4. Encrypt payload: one AES-GCM envelope per 4 MiB chunk, in order
//
// Decryption pipeline:
//  1. Read header: locate the separator and decode the metadata
//  2. Check password: compare the advisory hash when present
//  3. Derive key
//  4. Decrypt payload: open each envelope, in order
//
// Always Close the OperationContext so the derived key is zeroed.
package volume

import (
	"time"

	"QuantumX/internal/crypto"
	"QuantumX/internal/header"
	"QuantumX/internal/log"
)

// ProgressReporter receives status and progress from a running operation.
// Implementations must be safe for concurrent use.
type ProgressReporter interface {
	SetStatus(text string)
	SetProgress(fraction float32, info string) // fraction in [0, 1]
	SetCanCancel(can bool)
	Update()
	IsCancelled() bool
}

// ProgressFunc receives completion as a percentage in [0, 100]. Calls are
// made after each chunk completes and never decrease.
type ProgressFunc func(percent float64)

// OperationContext holds the state of one Encrypt or Decrypt call.
type OperationContext struct {
	Op       string // "encrypt" or "decrypt"
	Source   ByteSource
	Metadata *header.Metadata
	Codec    *crypto.ChunkCodec

	Reporter   ProgressReporter
	OnProgress ProgressFunc
	Started    time.Time

	logger log.Logger
	closer func() error // closes a source opened by the operation itself
}

func newOperationContext(op string, reporter ProgressReporter, onProgress ProgressFunc) *OperationContext {
	return &OperationContext{
		Op:         op,
		Reporter:   reporter,
		OnProgress: onProgress,
		Started:    time.Now(),
		logger:     log.GetLogger().WithFields(log.String("op", op)),
	}
}

// UpdateProgress forwards chunk progress to the reporter and callback.
func (ctx *OperationContext) UpdateProgress(percent float64, info string) {
	if ctx.OnProgress != nil {
		ctx.OnProgress(percent)
	}
	if ctx.Reporter != nil {
		ctx.Reporter.SetProgress(float32(percent/100), info)
		ctx.Reporter.Update()
	}
}

// SetStatus updates the status reporter if available
func (ctx *OperationContext) SetStatus(status string) {
	ctx.logger.Debug(status)
	if ctx.Reporter != nil {
		ctx.Reporter.SetStatus(status)
		ctx.Reporter.Update()
	}
}

// SetCanCancel toggles cancellation on the reporter, if any.
func (ctx *OperationContext) SetCanCancel(can bool) {
	if ctx.Reporter != nil {
		ctx.Reporter.SetCanCancel(can)
	}
}

// IsCancelled checks if the operation has been cancelled
func (ctx *OperationContext) IsCancelled() bool {
	if ctx.Reporter != nil {
		return ctx.Reporter.IsCancelled()
	}
	return false
}

// Close zeroes the derived key and releases a source the operation opened.
func (ctx *OperationContext) Close() {
	if ctx == nil {
		return
	}
	if ctx.Codec != nil {
		ctx.Codec.Close()
		ctx.Codec = nil
	}
	if ctx.closer != nil {
		if err := ctx.closer(); err != nil {
			ctx.logger.Warn("close source", log.Err(err))
		}
		ctx.closer = nil
	}
}
