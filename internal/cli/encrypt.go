package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/cobra"

	qxerrors "QuantumX/internal/errors"
	"QuantumX/internal/fileops"
	"QuantumX/internal/log"
	"QuantumX/internal/util"
	"QuantumX/internal/volume"
)

// EncryptedSuffix is appended to the input name when -o is not given.
const EncryptedSuffix = ".encrypted"

var encryptCmd = &cobra.Command{
	Use:   "encrypt",
	Short: "Encrypt a file into a QuantumX container",
	Long: `Encrypt a file into a QuantumX container (<file>.encrypted by default).

If no password is provided, you will be prompted to enter one interactively
(with confirmation). The password is hidden while typing.

Examples:
  # Encrypt interactively (prompts for password)
  quantumx encrypt -i report.pdf

  # Encrypt with a generated password, printed once to stdout
  quantumx encrypt -i report.pdf -g

  # Read password from stdin (for scripts)
  echo "mypassword" | quantumx encrypt -i report.pdf -o report.qx -P

  # Use 4 workers and record an explicit MIME type
  quantumx encrypt -i dump.bin --workers 4 --type application/x-sqlite3`,
	RunE: runEncrypt,
}

// Encrypt flags
var (
	encInput          string
	encOutput         string
	encPassword       string
	encPasswordStdin  bool
	encGenerate       bool
	encType           string
	encNoPasswordHash bool
	encWorkers        int
	encQuiet          bool
	encYes            bool
)

func init() {
	rootCmd.AddCommand(encryptCmd)

	// Input/Output
	encryptCmd.Flags().StringVarP(&encInput, "input", "i", "", "File to encrypt")
	encryptCmd.Flags().StringVarP(&encOutput, "output", "o", "", "Output container path (default <input>.encrypted)")

	// Credentials
	encryptCmd.Flags().StringVarP(&encPassword, "password", "p", "", "Encryption password (visible in shell history)")
	encryptCmd.Flags().BoolVarP(&encPasswordStdin, "password-stdin", "P", false, "Read password from stdin")
	encryptCmd.Flags().BoolVarP(&encGenerate, "generate-password", "g", false, "Generate a random password and print it")
	encryptCmd.MarkFlagsMutuallyExclusive("password", "password-stdin", "generate-password")

	// Container options
	encryptCmd.Flags().StringVar(&encType, "type", "", "MIME type to record (detected from content if empty)")
	encryptCmd.Flags().BoolVar(&encNoPasswordHash, "no-password-hash", false, "Do not store the password check hash in the metadata")
	encryptCmd.Flags().IntVarP(&encWorkers, "workers", "w", 0, "Chunks to process in parallel (0 or 1 is sequential)")

	// Other
	encryptCmd.Flags().BoolVarP(&encQuiet, "quiet", "q", false, "Suppress progress output")
	encryptCmd.Flags().BoolVarP(&encYes, "yes", "y", false, "Overwrite output file without prompting")
}

func runEncrypt(cmd *cobra.Command, args []string) error {
	if encInput == "" {
		return qxerrors.ErrNoInput
	}
	info, err := os.Stat(encInput)
	if err != nil {
		return qxerrors.NewFileError("stat", encInput, err)
	}
	if info.IsDir() {
		return qxerrors.NewValidationError("input", encInput+" is a directory")
	}

	outputFile := encOutput
	if outputFile == "" {
		outputFile = encInput + EncryptedSuffix
	}

	if err := fileops.CheckDistinct(outputFile, encInput); err != nil {
		return err
	}

	stdin, stderr := cmd.InOrStdin(), cmd.ErrOrStderr()
	if fileops.Exists(outputFile) && !encYes && !confirmOverwrite(stdin, stderr, outputFile) {
		return qxerrors.ErrCancelled
	}

	password, err := encryptPassword(cmd)
	if err != nil {
		return err
	}

	reporter := NewReporter(stderr, encQuiet)
	if !encGenerate {
		if score := PasswordStrength(password); score < weakScore {
			reporter.Printf("Warning: weak password (strength %d/4)", score)
		}
	}

	fileType := encType
	if fileType == "" {
		fileType = detectFileType(encInput)
	}

	out, err := fileops.Create(outputFile, true, encInput)
	if err != nil {
		return err
	}
	defer out.Abort()
	log.Debug("writing output", log.String("temp", out.TempPath()))

	req := &volume.EncryptRequest{
		InputFile:        encInput,
		FileType:         fileType,
		Password:         password,
		OmitPasswordHash: encNoPasswordHash,
		Workers:          encWorkers,
		Reporter:         reporter,
	}

	reporter.Printf("Encrypting %s (%s, %s) to %s", encInput, util.Sizeify(info.Size()), displayType(fileType), outputFile)

	ctx := commandContext(cmd)
	defer context.AfterFunc(ctx, reporter.Cancel)()

	reporter.Begin(info.Size())
	meta, err := volume.Encrypt(ctx, req, out)
	reporter.Finish()
	if err != nil {
		return reporter.Fail(err)
	}
	if err := out.Commit(); err != nil {
		return reporter.Fail(err)
	}

	reporter.Printf("Encryption completed successfully: %s (%s bytes of plaintext)", out.Path(), util.Commafy(meta.FileSize))
	return nil
}

// encryptPassword resolves the password from flags, stdin, the generator
// or an interactive prompt, in that order.
func encryptPassword(cmd *cobra.Command) (string, error) {
	switch {
	case encGenerate:
		pw, err := util.GenPassword(util.DefaultPassgenOptions())
		if err != nil {
			return "", err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Generated password: %s\n", pw)
		return pw, nil
	case encPasswordStdin:
		return ReadPasswordFromStdin(cmd.InOrStdin())
	case encPassword != "":
		return encPassword, nil
	default:
		return ReadPasswordInteractive(cmd.InOrStdin(), cmd.ErrOrStderr(), true)
	}
}

// detectFileType sniffs the MIME type of path, without parameters.
// Unknown content is recorded as an empty type.
func detectFileType(path string) string {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return ""
	}
	mediaType, _, _ := strings.Cut(mt.String(), ";")
	mediaType = strings.TrimSpace(mediaType)
	if mediaType == "application/octet-stream" {
		return ""
	}
	return mediaType
}

func displayType(t string) string {
	if t == "" {
		return "unknown type"
	}
	return t
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
