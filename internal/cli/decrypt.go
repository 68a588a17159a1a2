package cli

import (
	"context"

	"github.com/spf13/cobra"

	qxerrors "QuantumX/internal/errors"
	"QuantumX/internal/fileops"
	"QuantumX/internal/log"
	"QuantumX/internal/util"
	"QuantumX/internal/volume"
)

var decryptCmd = &cobra.Command{
	Use:   "decrypt",
	Short: "Decrypt a QuantumX container",
	Long: `Decrypt a QuantumX container back to the original file.

By default the file is restored next to the container under the name
recorded in its metadata.

Examples:
  # Decrypt interactively (prompts for password)
  quantumx decrypt -i report.pdf.encrypted

  # Decrypt to an explicit path
  quantumx decrypt -i report.pdf.encrypted -o ~/restored.pdf

  # Read password from stdin (for scripts)
  echo "mypassword" | quantumx decrypt -i report.pdf.encrypted -P -y`,
	RunE: runDecrypt,
}

// Decrypt flags
var (
	decInput         string
	decOutput        string
	decPassword      string
	decPasswordStdin bool
	decSkipCheck     bool
	decStrict        bool
	decWorkers       int
	decQuiet         bool
	decYes           bool
)

func init() {
	rootCmd.AddCommand(decryptCmd)

	// Input/Output
	decryptCmd.Flags().StringVarP(&decInput, "input", "i", "", "Container to decrypt")
	decryptCmd.Flags().StringVarP(&decOutput, "output", "o", "", "Output file path (default: recorded name next to the input)")

	// Credentials
	decryptCmd.Flags().StringVarP(&decPassword, "password", "p", "", "Decryption password (visible in shell history)")
	decryptCmd.Flags().BoolVarP(&decPasswordStdin, "password-stdin", "P", false, "Read password from stdin")
	decryptCmd.MarkFlagsMutuallyExclusive("password", "password-stdin")

	// Decryption options
	decryptCmd.Flags().BoolVar(&decSkipCheck, "skip-password-check", false, "Ignore the stored password hash and rely on chunk authentication")
	decryptCmd.Flags().BoolVar(&decStrict, "strict", false, "Reject containers without the QuantumX identifier")
	decryptCmd.Flags().IntVarP(&decWorkers, "workers", "w", 0, "Chunks to process in parallel (0 or 1 is sequential)")

	// Other
	decryptCmd.Flags().BoolVarP(&decQuiet, "quiet", "q", false, "Suppress progress output")
	decryptCmd.Flags().BoolVarP(&decYes, "yes", "y", false, "Overwrite output file without prompting")
}

func runDecrypt(cmd *cobra.Command, args []string) error {
	if decInput == "" {
		return qxerrors.ErrNoInput
	}

	src, err := volume.OpenFileSource(decInput)
	if err != nil {
		return err
	}
	defer src.Close()

	// Read the header first so a non-container fails before any prompt.
	meta, err := volume.Inspect(src, decStrict)
	if err != nil {
		return err
	}

	outputFile := decOutput
	if outputFile == "" {
		outputFile = fileops.SiblingPath(decInput, volume.SafeFileName(meta.FileName))
		if outputFile == decInput {
			outputFile = decInput + ".decrypted"
		}
	}

	// The recorded name comes from the container, so it may point back at it.
	if err := fileops.CheckDistinct(outputFile, decInput); err != nil {
		return err
	}

	stdin, stderr := cmd.InOrStdin(), cmd.ErrOrStderr()
	if fileops.Exists(outputFile) && !decYes && !confirmOverwrite(stdin, stderr, outputFile) {
		return qxerrors.ErrCancelled
	}

	password := decPassword
	switch {
	case decPasswordStdin:
		password, err = ReadPasswordFromStdin(stdin)
	case password == "":
		password, err = ReadPasswordInteractive(stdin, stderr, false)
	}
	if err != nil {
		return err
	}

	out, err := fileops.Create(outputFile, true, decInput)
	if err != nil {
		return err
	}
	defer out.Abort()
	log.Debug("writing output", log.String("temp", out.TempPath()))

	reporter := NewReporter(stderr, decQuiet)
	req := &volume.DecryptRequest{
		Source:            src,
		Password:          password,
		SkipPasswordCheck: decSkipCheck,
		Strict:            decStrict,
		Workers:           decWorkers,
		Reporter:          reporter,
	}

	reporter.Printf("Decrypting %s (%s, %s)", src.Path(), meta.FileName, util.Sizeify(meta.FileSize))

	ctx := commandContext(cmd)
	defer context.AfterFunc(ctx, reporter.Cancel)()

	reporter.Begin(meta.FileSize)
	res, err := volume.Decrypt(ctx, req, out)
	reporter.Finish()
	if err != nil {
		return reporter.Fail(err)
	}
	if err := out.Commit(); err != nil {
		return reporter.Fail(err)
	}

	reporter.Printf("Decryption completed successfully: %s (%s, %s bytes)", out.Path(), res.FileType, util.Commafy(res.Size))
	return nil
}
