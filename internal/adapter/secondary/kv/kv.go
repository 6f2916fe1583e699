// Package kv provides durable key/value backends for domain.KVStore.
package kv

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrInvalidKey indicates a key outside [A-Za-z0-9_-]+.
var ErrInvalidKey = errors.New("kv: invalid key")

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

func validateKey(key string) error {
	if !keyPattern.MatchString(key) {
		return fmt.Errorf("%w %q", ErrInvalidKey, key)
	}
	return nil
}
