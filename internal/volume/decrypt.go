package volume

import (
	"bytes"
	"context"
	"crypto/subtle"
	"io"
	"strings"
	"time"

	"QuantumX/internal/crypto"
	qxerrors "QuantumX/internal/errors"
	"QuantumX/internal/header"
	"QuantumX/internal/log"
)

// FallbackFileName is used when a container records no usable file name.
const FallbackFileName = "decrypted-file"

// DecryptRequest describes one decryption. Either Source or InputFile
// supplies the container.
type DecryptRequest struct {
	Source    ByteSource
	InputFile string

	Password string

	// SkipPasswordCheck ignores the advisory passwordHash and relies on
	// chunk authentication alone.
	SkipPasswordCheck bool

	// Strict rejects containers without the expected appIdentifier.
	Strict bool

	Workers  int
	Provider crypto.Provider

	Reporter   ProgressReporter
	OnProgress ProgressFunc
}

// DecryptResult describes the recovered file.
type DecryptResult struct {
	Metadata *header.Metadata
	FileName string // Base name safe to create in a directory
	FileType string // Never empty
	Size     int64  // Plaintext bytes written
}

// Decrypt writes the recovered plaintext of the container in req to w.
// On error w may hold partial plaintext, which the caller must discard.
func Decrypt(ctx context.Context, req *DecryptRequest, w io.Writer) (*DecryptResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	oc := newOperationContext("decrypt", req.Reporter, req.OnProgress)
	defer oc.Close()

	payload, err := decryptReadHeader(oc, req)
	if err != nil {
		return nil, err
	}
	if err := decryptCheckPassword(oc, req); err != nil {
		return nil, err
	}
	if err := decryptDeriveKey(oc, req); err != nil {
		return nil, err
	}

	cw := &countingWriter{w: w}
	if err := decryptPayload(ctx, oc, req, payload, cw); err != nil {
		return nil, err
	}

	if cw.n != oc.Metadata.FileSize {
		oc.logger.Warn("recovered size differs from recorded fileSize",
			log.Int64("recorded", oc.Metadata.FileSize),
			log.Int64("actual", cw.n))
	}
	oc.logger.Info("decrypted",
		log.String("file", oc.Metadata.FileName),
		log.Int64("size", cw.n),
		log.Duration("elapsed", time.Since(oc.Started)))

	return &DecryptResult{
		Metadata: oc.Metadata,
		FileName: SafeFileName(oc.Metadata.FileName),
		FileType: oc.Metadata.MIMEType(),
		Size:     cw.n,
	}, nil
}

// DecryptBytes decrypts an in-memory container and returns the plaintext
// with its recovered file name and type.
func DecryptBytes(artifact []byte, password string, onProgress ProgressFunc) ([]byte, string, string, error) {
	var buf bytes.Buffer
	req := &DecryptRequest{
		Source:     NewBytesSource(artifact),
		Password:   password,
		OnProgress: onProgress,
	}
	res, err := Decrypt(context.Background(), req, &buf)
	if err != nil {
		return nil, "", "", err
	}
	return buf.Bytes(), res.FileName, res.FileType, nil
}

// Inspect reads only the metadata of a container. No key is derived.
func Inspect(src ByteSource, strict bool) (*header.Metadata, error) {
	res, err := header.NewReader(src, header.ParseOptions{Strict: strict}).ReadHeader()
	if err != nil {
		return nil, err
	}
	return res.Metadata, nil
}

// SafeFileName reduces a recorded name to its last path element so it
// can never escape the output directory.
func SafeFileName(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." {
		return FallbackFileName
	}
	return name
}

func decryptReadHeader(oc *OperationContext, req *DecryptRequest) (ByteSource, error) {
	oc.SetStatus("Reading header...")

	src := req.Source
	if src == nil {
		fs, err := OpenFileSource(req.InputFile)
		if err != nil {
			return nil, err
		}
		oc.closer = fs.Close
		src = fs
	}
	oc.Source = src

	res, err := header.NewReader(src, header.ParseOptions{Strict: req.Strict}).ReadHeader()
	if err != nil {
		return nil, err
	}
	oc.Metadata = res.Metadata

	oc.logger.Debug("header read",
		log.String("file", res.Metadata.FileName),
		log.Int64("payloadOffset", res.PayloadOffset),
		log.Bool("passwordHash", res.Metadata.HasPasswordHash()))
	return NewSectionSource(src, res.PayloadOffset), nil
}

// decryptCheckPassword compares the advisory hash so a wrong password
// fails before the KDF runs. Chunk authentication still follows.
func decryptCheckPassword(oc *OperationContext, req *DecryptRequest) error {
	if req.SkipPasswordCheck || !oc.Metadata.HasPasswordHash() {
		return nil
	}
	want := strings.ToLower(oc.Metadata.PasswordHash)
	got := crypto.PasswordHash(req.Password)
	if subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
		return qxerrors.ErrPasswordMismatch
	}
	return nil
}

func decryptDeriveKey(oc *OperationContext, req *DecryptRequest) error {
	oc.SetStatus("Deriving key...")

	provider := req.Provider
	if provider == nil {
		provider = crypto.NewStandard()
	}

	key, err := provider.DeriveKey(req.Password)
	if err != nil {
		return err
	}
	defer crypto.SecureZero(key)

	oc.Codec, err = crypto.NewChunkCodec(provider, key)
	return err
}

func decryptPayload(ctx context.Context, oc *OperationContext, req *DecryptRequest, payload ByteSource, w io.Writer) error {
	oc.SetStatus("Decrypting...")
	oc.SetCanCancel(true)
	defer oc.SetCanCancel(false)

	p := NewProcessor(payload, oc.Codec, Decrypting)
	p.Workers = req.Workers
	p.Op = oc
	return p.Run(ctx, w)
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
