package store

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/arthur-debert/static-api/internal/validation"
	"github.com/arthur-debert/static-api/types"
)

// File name suffixes used inside the data directory
const (
	FileExtension = ".json"
	lockSuffix    = ".lock"
	tempSuffix    = ".tmp"
)

// ResolvePath maps a collection name to {dataDir}/{collection}.json.
// Names that could escape dataDir are rejected with ErrInvalidCollection.
func ResolvePath(dataDir, collection string) (string, error) {
	if err := validation.ValidateCollectionName(collection); err != nil {
		return "", err
	}

	path := filepath.Join(dataDir, collection+FileExtension)

	// The name checks above already exclude separators; this guards against
	// platform-specific path forms slipping through.
	rel, err := filepath.Rel(dataDir, path)
	if err != nil || rel != filepath.Base(path) || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("%w %q: resolves outside the data directory", types.ErrInvalidCollection, collection)
	}
	return path, nil
}

// collectionName returns the collection stored in a data directory entry,
// or false when the entry is not a collection file.
func collectionName(fileName string) (string, bool) {
	if !strings.HasSuffix(fileName, FileExtension) {
		return "", false
	}
	name := strings.TrimSuffix(fileName, FileExtension)
	if validation.ValidateCollectionName(name) != nil {
		return "", false
	}
	return name, true
}
