package cli

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"QuantumX/internal/crypto"
	"QuantumX/internal/header"
	"QuantumX/internal/util"
	"QuantumX/internal/volume"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <container>",
	Short: "Show the metadata of a QuantumX container",
	Long: `Print the plaintext metadata stored at the front of a container.
No password is needed and nothing is decrypted.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

var (
	inspectStrict bool
	inspectRaw    bool
)

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().BoolVar(&inspectStrict, "strict", false, "Reject containers without the QuantumX identifier")
	inspectCmd.Flags().BoolVar(&inspectRaw, "raw", false, "Print the metadata record exactly as stored")
}

func runInspect(cmd *cobra.Command, args []string) error {
	src, err := volume.OpenFileSource(args[0])
	if err != nil {
		return err
	}
	defer src.Close()

	res, err := header.NewReader(src, header.ParseOptions{Strict: inspectStrict}).ReadHeader()
	if err != nil {
		return err
	}
	meta := res.Metadata

	out := cmd.OutOrStdout()
	if inspectRaw {
		fmt.Fprintf(out, "%s\n", res.Raw)
		return nil
	}

	chunks := (meta.FileSize + crypto.ChunkSize - 1) / crypto.ChunkSize

	fmt.Fprintf(out, "File:       %s\n", meta.FileName)
	fmt.Fprintf(out, "Type:       %s\n", meta.MIMEType())
	fmt.Fprintf(out, "Size:       %s (%s bytes)\n", util.Sizeify(meta.FileSize), util.Commafy(meta.FileSize))
	fmt.Fprintf(out, "Chunks:     %d\n", chunks)
	fmt.Fprintf(out, "Encrypted:  %s\n", encryptedAt(meta))
	fmt.Fprintf(out, "Identifier: %s\n", identifier(meta))
	fmt.Fprintf(out, "Password:   %s\n", passwordCheck(meta))
	fmt.Fprintf(out, "Container:  %s\n", util.Sizeify(src.Size()))
	return nil
}

func encryptedAt(meta *header.Metadata) string {
	t, err := meta.Time()
	if err != nil {
		return meta.EncryptionDate
	}
	return fmt.Sprintf("%s (%s)", t.UTC().Format(time.RFC3339), humanize.Time(t))
}

func identifier(meta *header.Metadata) string {
	if meta.Recognized() {
		return meta.AppIdentifier
	}
	if meta.AppIdentifier == "" {
		return "(missing)"
	}
	return meta.AppIdentifier + " (unrecognized)"
}

func passwordCheck(meta *header.Metadata) string {
	if meta.HasPasswordHash() {
		return "hash stored"
	}
	return "no hash, verified by decryption only"
}
