package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	qxerrors "QuantumX/internal/errors"
	"QuantumX/internal/log"
)

// Version is set by main.go
var Version = "dev"

// rootCmd is the base command when called without subcommands
var rootCmd = &cobra.Command{
	Use:   "quantumx",
	Short: "Password-based chunked file encryption",
	Long: `QuantumX encrypts a file into a self-describing container:
  - PBKDF2-HMAC-SHA256 (100,000 iterations) derives a 256-bit key from the password
  - The file is split into 4 MiB chunks, each sealed with AES-256-GCM under a fresh nonce
  - A JSON metadata record (name, type, size, date) precedes the ciphertext

Containers are interchangeable with the QuantumX web application.`,
	Version:           Version,
	SilenceErrors:     true,
	SilenceUsage:      true,
	PersistentPreRunE: setupLogging,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = log.Close()
	},
}

// Global flags
var (
	verbose bool
	logFile string
)

func init() {
	// Disable default completion command
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Print debug logging to stderr")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Append JSON log lines to this file")
}

func setupLogging(cmd *cobra.Command, args []string) error {
	switch {
	case logFile != "":
		if err := log.EnableFileLogging(logFile, log.LevelInfo, verbose); err != nil {
			return qxerrors.Wrap(err, "open log file")
		}
	case verbose:
		log.EnableDebugLogging()
	}
	log.Debug("starting", log.String("command", cmd.Name()), log.String("version", Version))
	return nil
}

// Exit codes by error kind.
const (
	exitOK        = 0
	exitFailure   = 1
	exitInput     = 2
	exitFormat    = 3
	exitPassword  = 4
	exitCancelled = 130
)

// ExitCode maps an error returned by a command to a process exit status.
func ExitCode(err error) int {
	if err == nil {
		return exitOK
	}
	switch qxerrors.KindOf(err) {
	case qxerrors.KindInput:
		return exitInput
	case qxerrors.KindFormat:
		return exitFormat
	case qxerrors.KindPasswordMismatch, qxerrors.KindAuthentication:
		return exitPassword
	case qxerrors.KindCancelled:
		return exitCancelled
	default:
		return exitFailure
	}
}

// Execute runs the CLI and returns the process exit status. SIGINT and
// SIGTERM cancel the running operation.
func Execute(version string) int {
	Version = version
	rootCmd.Version = version

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	_ = log.Close()
	if err != nil && !reported(err) {
		fmt.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
	}
	return ExitCode(err)
}

// reportedError marks an error the command already printed.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

func reported(err error) bool {
	var re *reportedError
	return qxerrors.As(err, &re)
}

// describe turns an operation error into the message shown to the user.
func describe(err error) string {
	switch {
	case qxerrors.IsCancelled(err):
		return "operation cancelled"
	case qxerrors.IsAuthFailed(err):
		return fmt.Sprintf("decryption failed, the password is wrong or the file is corrupted (%v)", err)
	case qxerrors.IsWrongPassword(err):
		return "incorrect password"
	default:
		return err.Error()
	}
}
