// Package export builds zip archives holding a snapshot of every collection.
package export

import (
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/arthur-debert/static-api/staticapi/store"
	"github.com/arthur-debert/static-api/types"
)

// GenerateExportData reads the selected collections through the store and
// serializes each one. Collections are read one at a time, each under its
// own read lock, so the snapshot is consistent per collection only.
func GenerateExportData(ctx context.Context, s store.Store, options ExportOptions) (*ExportData, error) {
	if options.Format == "" {
		options.Format = FormatJSON
	}

	names, err := collectionsToExport(ctx, s, options.Collections)
	if err != nil {
		return nil, fmt.Errorf("failed to get collections to export: %w", err)
	}

	now := time.Now()
	manifest := Manifest{
		CreatedAt: now.UTC(),
		Format:    options.Format,
		Counts:    make(map[string]int, len(names)),
	}

	files := make([]CollectionFile, 0, len(names))
	for _, name := range names {
		items, err := readAll(ctx, s, name)
		if err != nil {
			return nil, fmt.Errorf("failed to read collection %s: %w", name, err)
		}

		content, err := EncodeCollection(items, options.Format)
		if err != nil {
			return nil, fmt.Errorf("failed to encode collection %s: %w", name, err)
		}

		manifest.Counts[name] = len(items)
		files = append(files, CollectionFile{
			Name:     name,
			Filename: name + options.Format.Extension(),
			Records:  len(items),
			Modified: now,
			Content:  content,
		})
	}

	// Generate archive filename with timestamp
	timestamp := now.Format("2006-01-02T15-04-05")
	return &ExportData{
		ArchiveFilename: fmt.Sprintf("static-api-export-%s.zip", timestamp),
		Contents: ExportContent{
			Manifest:    manifest,
			Collections: files,
		},
	}, nil
}

// collectionsToExport resolves the requested names against the collections
// that exist. Requesting a missing collection is an error rather than a
// silent auto-vivify.
func collectionsToExport(ctx context.Context, s store.Store, requested []string) ([]string, error) {
	existing, err := s.Collections(ctx)
	if err != nil {
		return nil, err
	}
	if len(requested) == 0 {
		return existing, nil
	}

	names := make([]string, 0, len(requested))
	for _, name := range requested {
		if !slices.Contains(existing, name) {
			return nil, fmt.Errorf("collection %q: %w", name, types.ErrNotFound)
		}
		if !slices.Contains(names, name) {
			names = append(names, name)
		}
	}
	return names, nil
}

func readAll(ctx context.Context, s store.Store, collection string) ([]any, error) {
	opts := types.NewListOptions(0, math.MaxInt)
	page, err := s.List(ctx, collection, opts)
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}
