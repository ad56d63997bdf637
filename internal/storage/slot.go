// Package storage provides the flat key/value slot that backs the
// conversation transcript, in the manner of browser local storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

var (
	ErrNotFound   = errors.New("storage: key not found")
	ErrInvalidKey = errors.New("storage: invalid key")
)

// Slot is a flat key/value store. Values are opaque bytes; each Set
// replaces the whole value for the key.
type Slot interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

type Options struct {
	Backend string
	Dir     string // file backend
	DSN     string // sqlite backend
}

// Open returns the slot implementation named by opts.Backend.
func Open(ctx context.Context, opts Options) (Slot, error) {
	switch opts.Backend {
	case BackendFile, "":
		return NewFileSlot(opts.Dir)
	case BackendSQLite:
		return OpenSQLite(ctx, opts.DSN)
	case BackendMemory:
		return NewMemorySlot(), nil
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", opts.Backend)
	}
}

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,128}$`)

// ValidateKey reports whether key is usable by every backend.
func ValidateKey(key string) error {
	if !keyPattern.MatchString(key) || key == "." || key == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}
