package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"unicode/utf16"
)

// MaxSourceLength is the maximum number of characters accepted for a submission.
const MaxSourceLength = 50000

// Language is the language of a submitted source.
type Language string

const (
	// LanguageSolidity is compiled, never executed.
	LanguageSolidity Language = "solidity"
	// LanguageJavaScript is executed in the sandboxed interpreter.
	LanguageJavaScript Language = "javascript"
)

// SourceLength returns the length of a source in characters, counted as UTF-16
// code units like the editor frontend does. Characters outside the basic
// multilingual plane count twice.
func SourceLength(code string) int {
	n := 0
	for _, r := range code {
		n += utf16.RuneLen(r)
	}
	return n
}

// ValidateSource checks the limits every submission must satisfy.
func ValidateSource(code string) error {
	if code == "" {
		return fmt.Errorf("source code is empty: %w", ErrNotValid)
	}

	if l := SourceLength(code); l > MaxSourceLength {
		return fmt.Errorf("source code has %d characters, max is %d: %w", l, MaxSourceLength, ErrNotValid)
	}

	return nil
}

// SourceHash returns the hex encoded sha256 of a source.
func SourceHash(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}
