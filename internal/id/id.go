// Package id mints identifiers for libraries, categories and prompts.
package id

import (
	"fmt"

	"github.com/google/uuid"
)

// Generate returns a time-ordered unique token (UUIDv7), so ids sort by creation time
func Generate() (string, error) {
	u, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate uuid: %w", err)
	}
	return u.String(), nil
}

// MustGenerate is like Generate but panics if the system has no entropy available.
func MustGenerate() string {
	s, err := Generate()
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return s
}
