package testutil

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/arthur-debert/static-api/staticapi/store"
	"github.com/arthur-debert/static-api/types"
)

// Universe is the seed data written by NewUniverse, keyed by collection.
// Ids are fixed so tests can address records directly.
var Universe = map[string]string{
	"widgets": `[
  {"id": 1, "name": "bolt", "size": 10},
  {"id": 2, "name": "nut", "size": 4},
  {"id": 3, "name": "washer", "tags": ["flat", "steel"]}
]`,
	"users": `[
  {"id": 100, "name": "ada"},
  {"name": "no id"},
  {"id": "legacy-7", "name": "string id"},
  {"id": 101, "name": "grace", "address": {"city": "Arlington"}}
]`,
	"empty": `[]`,
}

// NewDataDir creates a temp data directory holding the given collection files.
func NewDataDir(t *testing.T, collections map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range collections {
		path := filepath.Join(dir, name+store.FileExtension)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write fixture %s: %v", name, err)
		}
	}
	return dir
}

// NewStore opens a store over dataDir with default settings.
func NewStore(t *testing.T, dataDir string) store.Store {
	t.Helper()
	s, err := store.New(store.Config{DataDir: dataDir})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// NewUniverse returns a store seeded with Universe and its data directory.
func NewUniverse(t *testing.T) (store.Store, string) {
	t.Helper()
	dir := NewDataDir(t, Universe)
	return NewStore(t, dir), dir
}

// ReadCollectionFile decodes a collection file straight from disk.
func ReadCollectionFile(t *testing.T, dataDir, collection string) []any {
	t.Helper()
	content, err := os.ReadFile(filepath.Join(dataDir, collection+store.FileExtension))
	if err != nil {
		t.Fatalf("failed to read %s: %v", collection, err)
	}
	var arr []any
	if err := json.Unmarshal(content, &arr); err != nil {
		t.Fatalf("%s is not a JSON array: %v", collection, err)
	}
	return arr
}

// AllRecords lists the whole collection, failing the test on error.
func AllRecords(t *testing.T, s store.Store, collection string) []any {
	t.Helper()
	limit := 1 << 30
	page, err := s.List(context.Background(), collection, types.ListOptions{Limit: &limit})
	if err != nil {
		t.Fatalf("failed to list %s: %v", collection, err)
	}
	return page.Items
}
