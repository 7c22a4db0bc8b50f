// Package id generates compact, URL-safe identifiers.
package id

import (
	"encoding/base32"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// NewID returns a new random identifier: a UUIDv4 encoded as 26 lowercase
// base32 characters. The decoded bytes retain the UUID version and variant
// bits so the value can be mapped back to a canonical UUID when needed.
func NewID() (string, error) {
	value, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate uuid: %w", err)
	}
	return strings.ToLower(encoding.EncodeToString(value[:])), nil
}
