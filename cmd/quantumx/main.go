// QuantumX encrypts files into password-protected containers:
//   - PBKDF2-HMAC-SHA256 derives a 256-bit key from the password
//   - Files are processed in 4 MiB chunks, each sealed with AES-256-GCM
//   - A JSON metadata record ahead of the ciphertext restores the file name and type
//
// Containers are byte-compatible with the QuantumX web application.

package main

import (
	"os"

	"QuantumX/internal/cli"
)

// version is reported by `quantumx --version`.
const version = "v1.0.0"

func main() {
	os.Exit(cli.Execute(version))
}
