// Package repository persists realtime database records.
package repository

import (
	"context"

	"github.com/okian/vivaran/internal/domain/model"
)

// Store provides read/write access to collection records.
type Store interface {
	// Put creates or replaces collection/key. A replaced record keeps its
	// original position in the collection.
	Put(ctx context.Context, collection, key string, value []byte) error

	// Get returns the stored value. Returns ErrNotFound if the key is unknown.
	Get(ctx context.Context, collection, key string) ([]byte, error)

	// List returns every record of a collection in first-write order.
	List(ctx context.Context, collection string) (model.Snapshot, error)

	// Delete removes a record and reports whether it existed.
	Delete(ctx context.Context, collection, key string) (bool, error)

	// Count returns the number of records in a collection.
	Count(ctx context.Context, collection string) (int, error)

	Close() error
}
