// Package reqid generates short, URL-safe correlation IDs backed by nanoid,
// used to tag inbound HTTP requests and the log lines they produce.
package reqid

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// DefaultPrefix is prepended to every generated ID.
var DefaultPrefix = "req-"

// Alphabet defines the character set used for the random portion of the ID.
var Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Length is the number of random characters generated (excluding the prefix).
var Length = 10

// New returns a new correlation ID using the default prefix.
func New() (string, error) {
	return NewWithPrefix(DefaultPrefix)
}

// NewWithPrefix returns a new correlation ID with the given prefix.
func NewWithPrefix(prefix string) (string, error) {
	id, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("reqid: %w", err)
	}
	return prefix + id, nil
}
