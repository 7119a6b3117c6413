// Package storage declares the store capabilities the pipeline consumes.
// Backends live in the sub-packages.
package storage

import (
	"context"
	"errors"

	"go-cloud-etl/internal/model"
)

// ErrNotFound is returned when a named object does not exist
var ErrNotFound = errors.New("object not found")

// ObjectStore is a flat object container holding source extracts. Copy
// targets another container reachable through the same account.
type ObjectStore interface {
	List(ctx context.Context, prefix string) ([]model.SourceObject, error)
	Read(ctx context.Context, name string) ([]byte, error)
	Copy(ctx context.Context, name, destContainer string, tier model.StorageTier) error
	Delete(ctx context.Context, name string, includeSnapshots bool) error
}

// OutputStore is a hierarchical store addressed by slash separated paths
type OutputStore interface {
	Write(ctx context.Context, path string, data []byte, overwrite bool) error
}
