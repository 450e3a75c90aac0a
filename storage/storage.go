// Package storage implements the uniform key→bytes storage backend of
// spec.md section 4.4: a small polymorphic interface with Memory and
// FileSystem implementations. Session-storage/indexed-db style backends
// are explicitly out of scope for the core; a host embedding statecore
// supplies its own Backend for anything beyond these two.
package storage

import (
	"context"
	"time"
)

// Backend is the storage capability the persistence and backup managers
// depend on. Every method is safe for concurrent use.
type Backend interface {
	Store(ctx context.Context, key string, data []byte) error
	Retrieve(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	ListKeys(ctx context.Context, prefix string) ([]string, error)
	Flush(ctx context.Context) error
	Info(ctx context.Context) (Info, error)
}

// Info reports operational counters for a backend, mirroring the
// teacher's appendlog Stats shape adapted to a key/value store rather
// than an append-only log.
type Info struct {
	Kind       string
	KeyCount   int
	TotalBytes int64
	LastWrite  time.Time
}

// ErrNotFound is returned by Retrieve/Delete for an unknown key.
var ErrNotFound = notFoundError{}

type notFoundError struct{}

func (notFoundError) Error() string { return "storage: key not found" }
