// Package imports loads collections from a data directory or a zip archive,
// such as one written by the export package, into a store.
package imports

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/arthur-debert/static-api/staticapi/store"
)

// ImportFromPath imports collections from a file path (directory or zip).
// It detects the source type and calls the matching reader.
func ImportFromPath(ctx context.Context, s store.Store, path string, options ImportOptions) (*ImportResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat path: %w", err)
	}

	var importData *ImportData
	switch {
	case info.IsDir():
		importData, err = ReadImportDataFromDirectory(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read from directory: %w", err)
		}
	case strings.HasSuffix(strings.ToLower(path), ".zip"):
		importData, err = ReadImportDataFromZip(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read from zip: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported file type: %s", path)
	}

	return ProcessImportData(ctx, s, *importData, options)
}

// DefaultImportOptions returns options that import everything and leave
// existing collections untouched
func DefaultImportOptions() ImportOptions {
	return ImportOptions{}
}
