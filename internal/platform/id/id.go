// Package id generates opaque identifiers for artifacts and requests.
package id

import (
	"encoding/base32"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// NewID returns a random v4 UUID encoded as 26 lowercase base32 characters.
func NewID() (string, error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	return strings.ToLower(encoding.EncodeToString(u[:])), nil
}

// Short returns the first n characters of a fresh id, for human-facing
// suffixes where full uniqueness is checked by the caller.
func Short(n int) (string, error) {
	value, err := NewID()
	if err != nil {
		return "", err
	}
	if n <= 0 || n > len(value) {
		return value, nil
	}
	return value[:n], nil
}
