// Package store implements the collection storage engine.
// Each collection is one JSON array in {data_dir}/{collection}.json; every
// operation reloads the file, and every mutation rewrites it whole through a
// temp file and an atomic rename while holding the collection's write lock.
package store

import (
	"context"

	"github.com/arthur-debert/static-api/types"
)

// Store is the contract the HTTP layer and CLI call into.
type Store interface {
	// List returns one page of the collection in file order together with
	// the total record count. A missing collection is created as [].
	List(ctx context.Context, collection string, opts types.ListOptions) (types.Page, error)

	// Get returns the first record whose numeric id equals id.
	// A missing collection is created as [] and then reported as not found.
	Get(ctx context.Context, collection string, id uint64) (types.Record, error)

	// Insert appends payload, assigning an unused id when payload has none,
	// and returns the stored record.
	Insert(ctx context.Context, collection string, payload types.Record) (types.Record, error)

	// Update replaces the first record with a matching id by payload, as is.
	// The payload's own id is not checked against id, so an update can change
	// a record's id. Returns false without writing when nothing matched or
	// the collection does not exist.
	Update(ctx context.Context, collection string, id uint64, payload types.Record) (bool, error)

	// Delete removes every record whose numeric id equals id and reports
	// whether anything was removed. An existing collection file is rewritten
	// even when nothing matched.
	Delete(ctx context.Context, collection string, id uint64) (bool, error)

	// Replace overwrites the whole collection with items, creating the file
	// when it does not exist. Elements are written as given.
	Replace(ctx context.Context, collection string, items types.Collection) error

	// DeleteCollection removes the collection file.
	DeleteCollection(ctx context.Context, collection string) error

	// Collections returns the names of all collections, sorted
	Collections(ctx context.Context) ([]string, error)

	// Close releases any resources held by the store
	Close() error
}
