// Package kv holds the key/value backends the persistence layer writes
// collections into. Each key stores one JSON document.
package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get for keys that were never written or have
// been deleted.
var ErrNotFound = errors.New("kv: key not found")

// Backend is a flat string key to byte value store.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}
