// Package storage defines the durable key-value store used for user state.
package storage

import (
	"context"
	"fmt"
	"strings"
)

// Store is a durable string key-value store. Get reports absence with
// ok == false and a nil error.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

// ValidateKey rejects keys that cannot be used as a single path segment.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("storage key is empty")
	}
	if key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return fmt.Errorf("invalid storage key %q", key)
	}
	return nil
}
