package volume

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"QuantumX/internal/crypto"
	qxerrors "QuantumX/internal/errors"
	"QuantumX/internal/log"
	"QuantumX/internal/util"
)

// Direction selects what the Processor does to each chunk.
type Direction int

const (
	Encrypting Direction = iota
	Decrypting
)

func (d Direction) String() string {
	if d == Decrypting {
		return "decrypt"
	}
	return "encrypt"
}

// State is the Processor's position in its lifecycle.
type State int32

const (
	StateIdle State = iota
	StateDividing
	StateProcessing
	StateCombining
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateDividing:
		return "Dividing"
	case StateProcessing:
		return "Processing"
	case StateCombining:
		return "Combining"
	case StateDone:
		return "Done"
	case StateFailed:
		return "Failed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// envelopePool holds buffers large enough for one full envelope, which
// also covers one full plaintext chunk.
var envelopePool = util.NewBufferPool(crypto.EnvelopeStride)

// Processor splits a ByteSource into fixed-size chunks, runs each through
// the codec and writes the results in source order.
//
// With Workers <= 1 chunks are handled one at a time. With more, up to
// Workers chunks are processed concurrently in windows; output order and
// progress order are unchanged.
type Processor struct {
	Source    ByteSource
	Codec     *crypto.ChunkCodec
	Direction Direction
	Workers   int

	// Op receives progress and cancellation checks. May be nil.
	Op *OperationContext

	state atomic.Int32
}

// NewProcessor creates an idle Processor.
func NewProcessor(src ByteSource, codec *crypto.ChunkCodec, dir Direction) *Processor {
	return &Processor{Source: src, Codec: codec, Direction: dir}
}

// State returns the current lifecycle state.
func (p *Processor) State() State {
	return State(p.state.Load())
}

func (p *Processor) setState(s State) {
	p.state.Store(int32(s))
	log.Debug("processor state", log.String("direction", p.Direction.String()), log.String("state", s.String()))
}

// Stride is the number of source bytes consumed per chunk.
func (p *Processor) Stride() int64 {
	if p.Direction == Decrypting {
		return crypto.EnvelopeStride
	}
	return crypto.ChunkSize
}

// TotalChunks is ceil(size / stride).
func (p *Processor) TotalChunks() int {
	stride := p.Stride()
	return int((p.Source.Size() + stride - 1) / stride)
}

// OutputSize predicts the number of bytes Run will write for a
// well-formed source.
func (p *Processor) OutputSize() int64 {
	overhead := int64(p.TotalChunks()) * crypto.Overhead
	if p.Direction == Decrypting {
		return max(p.Source.Size()-overhead, 0)
	}
	return p.Source.Size() + overhead
}

// Run processes every chunk and writes the output to w. On error nothing
// more is written; bytes already written must be discarded by the caller.
func (p *Processor) Run(ctx context.Context, w io.Writer) error {
	if p.State() != StateIdle {
		return fmt.Errorf("processor already used (state %s)", p.State())
	}

	p.setState(StateDividing)
	total := p.TotalChunks()
	log.Debug("divided source",
		log.Int64("size", p.Source.Size()),
		log.Int("chunks", total),
		log.Int("workers", max(p.Workers, 1)))

	p.setState(StateProcessing)
	var err error
	if p.Workers > 1 && total > 1 {
		err = p.runWindowed(ctx, w, total)
	} else {
		err = p.runSequential(ctx, w, total)
	}
	if err != nil {
		p.setState(StateFailed)
		return err
	}

	p.setState(StateCombining)
	if total == 0 {
		p.progress(0, 0)
	}
	p.setState(StateDone)
	return nil
}

// Process runs the pipeline into memory and returns the assembled output,
// or nil and the error.
func (p *Processor) Process(ctx context.Context) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(int(p.OutputSize()))
	if err := p.Run(ctx, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (p *Processor) runSequential(ctx context.Context, w io.Writer, total int) error {
	scratch := envelopePool.Get()
	defer envelopePool.Put(scratch)
	readBuf := envelopePool.Get()
	defer envelopePool.Put(readBuf)

	for i := range total {
		if err := p.checkCancelled(ctx); err != nil {
			return err
		}

		out, err := p.chunk(i, readBuf, scratch[:0])
		if err != nil {
			return err
		}
		if err := p.write(w, i, out); err != nil {
			return err
		}
		p.progress(i, total)
	}
	return nil
}

// runWindowed processes chunks Workers at a time into an indexed slot
// array, then flushes the window in index order before starting the next.
func (p *Processor) runWindowed(ctx context.Context, w io.Writer, total int) error {
	workers := p.Workers
	slots := make([][]byte, workers)

	for base := 0; base < total; base += workers {
		if err := p.checkCancelled(ctx); err != nil {
			return err
		}

		n := min(workers, total-base)
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for j := range n {
			g.Go(func() error {
				if err := p.checkCancelled(gctx); err != nil {
					return err
				}
				out, err := p.chunk(base+j, nil, nil)
				if err != nil {
					return err
				}
				slots[j] = out
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			p.release(slots)
			return err
		}

		for j := range n {
			if err := p.write(w, base+j, slots[j]); err != nil {
				p.release(slots)
				return err
			}
			p.progress(base+j, total)
		}
		p.release(slots)
	}
	return nil
}

// release drops the window's results, zeroing recovered plaintext first.
func (p *Processor) release(slots [][]byte) {
	if p.Direction == Decrypting {
		crypto.SecureZeroMultiple(slots...)
	}
	clear(slots)
}

// chunk reads chunk i, into readBuf when possible, and applies the codec,
// appending to dst.
func (p *Processor) chunk(i int, readBuf, dst []byte) ([]byte, error) {
	stride := p.Stride()
	start := int64(i) * stride
	end := min(start+stride, p.Source.Size())

	in, err := readRange(p.Source, start, end, readBuf)
	if err != nil {
		if !qxerrors.Is(err, qxerrors.ErrIO) {
			err = qxerrors.NewFileError("read", "source", err)
		}
		return nil, qxerrors.NewChunkError(i, "read", err)
	}

	var out []byte
	if p.Direction == Decrypting {
		out, err = p.Codec.OpenTo(dst, in)
	} else {
		out, err = p.Codec.SealTo(dst, in)
	}
	if err != nil {
		return nil, qxerrors.NewChunkError(i, p.Direction.String(), err)
	}
	return out, nil
}

func (p *Processor) write(w io.Writer, i int, out []byte) error {
	if _, err := w.Write(out); err != nil {
		return qxerrors.NewChunkError(i, "write", qxerrors.NewFileError("write", "output", err))
	}
	return nil
}

func (p *Processor) progress(i, total int) {
	if p.Op == nil {
		return
	}
	p.Op.UpdateProgress(util.ChunkPercent(i, total), fmt.Sprintf("%d/%d chunks", min(i+1, total), total))
}

func (p *Processor) checkCancelled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", qxerrors.ErrCancelled, err)
	}
	if p.Op != nil && p.Op.IsCancelled() {
		return qxerrors.ErrCancelled
	}
	return nil
}
