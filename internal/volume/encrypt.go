package volume

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"time"

	"QuantumX/internal/crypto"
	qxerrors "QuantumX/internal/errors"
	"QuantumX/internal/header"
	"QuantumX/internal/log"
	"QuantumX/internal/util"
)

// EncryptRequest describes one encryption. Either Source or InputFile
// supplies the plaintext.
type EncryptRequest struct {
	Source    ByteSource // Plaintext; takes precedence over InputFile
	InputFile string     // Opened with OpenFileSource when Source is nil

	FileName string // Recorded name; defaults to the base name of InputFile
	FileType string // Recorded MIME type; may be empty

	Password         string
	OmitPasswordHash bool // Leave the advisory passwordHash out of the metadata

	Workers  int             // >1 enables concurrent chunk processing
	Provider crypto.Provider // nil means crypto.NewStandard()
	Now      func() time.Time

	Reporter   ProgressReporter
	OnProgress ProgressFunc
}

// Encrypt writes a complete container for req to w and returns the
// metadata it recorded. On error w may hold a partial container, which
// the caller must discard.
func Encrypt(ctx context.Context, req *EncryptRequest, w io.Writer) (*header.Metadata, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	oc := newOperationContext("encrypt", req.Reporter, req.OnProgress)
	defer oc.Close()

	if err := encryptOpen(oc, req); err != nil {
		return nil, err
	}
	if err := encryptDeriveKey(oc, req); err != nil {
		return nil, err
	}
	if err := encryptWriteHeader(oc, w); err != nil {
		return nil, err
	}
	if err := encryptPayload(ctx, oc, req, w); err != nil {
		return nil, err
	}

	oc.logger.Info("encrypted",
		log.String("file", oc.Metadata.FileName),
		log.Int64("size", oc.Metadata.FileSize),
		log.Duration("elapsed", time.Since(oc.Started)))
	return oc.Metadata, nil
}

// EncryptBytes encrypts an in-memory file and returns the container.
func EncryptBytes(fileBytes []byte, fileName, fileType, password string, onProgress ProgressFunc) ([]byte, error) {
	var buf bytes.Buffer
	req := &EncryptRequest{
		Source:     NewBytesSource(fileBytes),
		FileName:   fileName,
		FileType:   fileType,
		Password:   password,
		OnProgress: onProgress,
	}
	if _, err := Encrypt(context.Background(), req, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encryptOpen(oc *OperationContext, req *EncryptRequest) error {
	oc.SetStatus("Reading input...")

	src := req.Source
	if src == nil {
		fs, err := OpenFileSource(req.InputFile)
		if err != nil {
			return err
		}
		oc.closer = fs.Close
		src = fs
	}
	oc.Source = src

	name := req.FileName
	if name == "" {
		name = filepath.Base(req.InputFile)
	}

	var hash string
	if !req.OmitPasswordHash {
		hash = crypto.PasswordHash(req.Password)
	}

	now := time.Now
	if req.Now != nil {
		now = req.Now
	}

	oc.Metadata = header.NewMetadata(name, req.FileType, src.Size(), hash, now())

	// Reject an unserializable record before spending time on the KDF.
	_, err := oc.Metadata.Marshal()
	return err
}

func encryptDeriveKey(oc *OperationContext, req *EncryptRequest) error {
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

func encryptWriteHeader(oc *OperationContext, w io.Writer) error {
	if _, err := header.NewWriter(w).WriteHeader(oc.Metadata); err != nil {
		return wrapWriteError(err)
	}
	return nil
}

func encryptPayload(ctx context.Context, oc *OperationContext, req *EncryptRequest, w io.Writer) error {
	oc.SetStatus("Encrypting...")
	oc.SetCanCancel(true)
	defer oc.SetCanCancel(false)

	p := NewProcessor(oc.Source, oc.Codec, Encrypting)
	p.Workers = req.Workers
	p.Op = oc

	oc.logger.Debug("encrypting payload",
		log.String("size", util.Sizeify(oc.Source.Size())),
		log.Int("chunks", p.TotalChunks()))
	return p.Run(ctx, w)
}

// wrapWriteError reports a failed write to the output as an I/O error,
// leaving input errors from the header encoder untouched.
func wrapWriteError(err error) error {
	if qxerrors.Is(err, qxerrors.ErrInput) || qxerrors.Is(err, qxerrors.ErrIO) {
		return err
	}
	return qxerrors.NewFileError("write", "output", err)
}
