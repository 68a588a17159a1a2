package util

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

const (
	upperChars  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowerChars  = "abcdefghijklmnopqrstuvwxyz"
	digitChars  = "1234567890"
	symbolChars = "-=_+!@#$^&()?<>"
)

// PassgenOptions configures the password generator.
// At least one character set must be enabled.
type PassgenOptions struct {
	Length  int
	Upper   bool
	Lower   bool
	Numbers bool
	Symbols bool
}

// DefaultPassgenOptions is what `encrypt --generate-password` uses.
func DefaultPassgenOptions() PassgenOptions {
	return PassgenOptions{Length: 24, Upper: true, Lower: true, Numbers: true, Symbols: true}
}

func (o PassgenOptions) alphabet() string {
	var sb strings.Builder
	if o.Upper {
		sb.WriteString(upperChars)
	}
	if o.Lower {
		sb.WriteString(lowerChars)
	}
	if o.Numbers {
		sb.WriteString(digitChars)
	}
	if o.Symbols {
		sb.WriteString(symbolChars)
	}
	return sb.String()
}

// GenPassword generates a password drawn uniformly from the enabled
// character sets using crypto/rand. It returns "" when no set is enabled
// or Length <= 0.
func GenPassword(opts PassgenOptions) (string, error) {
	chars := opts.alphabet()
	if len(chars) == 0 || opts.Length <= 0 {
		return "", nil
	}

	limit := big.NewInt(int64(len(chars)))
	tmp := make([]byte, opts.Length)
	for i := range opts.Length {
		j, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("fatal crypto/rand error: %w", err)
		}
		tmp[i] = chars[j.Int64()]
	}
	return string(tmp), nil
}
