package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Picocrypt/zxcvbn-go"
	"golang.org/x/term"

	qxerrors "QuantumX/internal/errors"
)

// weakScore is the zxcvbn score below which encrypt warns.
const weakScore = 3

// isTerminal returns true if f is a terminal (not piped/redirected).
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// readLine reads one line a byte at a time, so that a following prompt
// can read the next line from the same reader, and strips the line ending.
func readLine(r io.Reader) (string, error) {
	var sb strings.Builder
	b := make([]byte, 1)
	for {
		n, err := r.Read(b)
		if n > 0 {
			if b[0] == '\n' {
				break
			}
			sb.WriteByte(b[0])
		}
		if err == io.EOF {
			if sb.Len() == 0 {
				return "", io.ErrUnexpectedEOF
			}
			break
		}
		if err != nil {
			return "", err
		}
	}
	return strings.TrimSuffix(sb.String(), "\r"), nil
}

// readPasswordSecure prompts on out and reads a password from in without
// echo when in is a terminal.
func readPasswordSecure(in io.Reader, out io.Writer, prompt string) (string, error) {
	fmt.Fprint(out, prompt)

	f, ok := in.(*os.File)
	if !ok || !isTerminal(f) {
		pw, err := readLine(in)
		if err != nil {
			return "", qxerrors.Wrap(err, "reading password")
		}
		return pw, nil
	}

	pw, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(out) // newline after hidden input
	if err != nil {
		return "", qxerrors.Wrap(err, "reading password")
	}
	return string(pw), nil
}

// ReadPasswordInteractive prompts for a password. With confirm set it is
// asked for twice, as encrypt does.
func ReadPasswordInteractive(in io.Reader, out io.Writer, confirm bool) (string, error) {
	password, err := readPasswordSecure(in, out, "Password: ")
	if err != nil {
		return "", err
	}
	if password == "" {
		return "", qxerrors.ErrEmptyPassword
	}

	if confirm {
		again, err := readPasswordSecure(in, out, "Confirm password: ")
		if err != nil {
			return "", err
		}
		if password != again {
			return "", qxerrors.ErrPasswordConfirm
		}
	}

	return password, nil
}

// ReadPasswordFromStdin reads the first line of in as the password.
func ReadPasswordFromStdin(in io.Reader) (string, error) {
	pw, err := readLine(in)
	if err != nil {
		return "", qxerrors.Wrap(err, "reading password from stdin")
	}
	if pw == "" {
		return "", qxerrors.ErrEmptyPassword
	}
	return pw, nil
}

// PasswordStrength returns the zxcvbn score (0-4) of password.
func PasswordStrength(password string) int {
	return zxcvbn.PasswordStrength(password, nil).Score
}

// confirmOverwrite asks whether path may be replaced.
func confirmOverwrite(in io.Reader, out io.Writer, path string) bool {
	fmt.Fprintf(out, "Output file %s already exists. Overwrite? [y/N]: ", path)
	response, _ := readLine(in)
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
