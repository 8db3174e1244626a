// Package kvstore provides named single-value slots. A slot is always read
// entirely and replaced entirely; there is no partial access.
package kvstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Store holds named slots.
type Store interface {
	// Get returns ("", nil) when the slot has never been written.
	Get(ctx context.Context, key string) (string, error)
	// Set replaces the slot content in one step. Readers observe either the
	// old or the new value, never a mix.
	Set(ctx context.Context, key, value string) error
}

// Locker is implemented by stores that can serialize a read-modify-write
// cycle on a slot across processes.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func() error, err error)
}

var ErrInvalidKey = errors.New("kvstore: invalid slot key")

func validateKey(key string) error {
	if strings.TrimSpace(key) == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}
