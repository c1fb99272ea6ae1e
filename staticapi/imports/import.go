package imports

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/arthur-debert/static-api/internal/validation"
	"github.com/arthur-debert/static-api/staticapi/store"
	"github.com/arthur-debert/static-api/types"
)

// errCollectionExists marks a collection skipped because Overwrite is off
var errCollectionExists = errors.New("collection already exists")

// ProcessImportData writes the collections of data into the store.
// Collections that cannot be imported are recorded in the result's Failed
// list; store failures other than invalid names stop the import.
func ProcessImportData(ctx context.Context, s store.Store, data ImportData, options ImportOptions) (*ImportResult, error) {
	startTime := time.Now()

	if err := validateImportData(data); err != nil {
		return nil, fmt.Errorf("import validation failed: %w", err)
	}

	selected, err := selectCollections(data.Collections, options.Collections)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{
		Imported: make([]ImportedCollection, 0),
		Failed:   make([]FailedCollection, 0),
		Warnings: make([]string, 0),
		Summary: ImportSummary{
			TotalCollections: len(selected),
			StartedAt:        startTime,
		},
	}

	existing, err := existingCollections(ctx, s)
	if err != nil {
		return nil, fmt.Errorf("failed to list existing collections: %w", err)
	}

	for _, coll := range selected {
		if err := processCollection(ctx, s, coll, options, existing, result); err != nil {
			// If it's a critical error, stop processing
			if !isContinuableError(err) {
				return result, err
			}
			result.Failed = append(result.Failed, FailedCollection{
				Name:       coll.Name,
				SourceFile: coll.SourceFile,
				Error:      err.Error(),
			})
		}
	}

	result.Summary.SuccessfulImports = len(result.Imported)
	result.Summary.FailedImports = len(result.Failed)
	result.Summary.WarningsCount = len(result.Warnings)
	result.Summary.CompletedAt = time.Now()
	result.Summary.ProcessingTime = result.Summary.CompletedAt.Sub(startTime).String()

	return result, nil
}

// processCollection imports a single collection
func processCollection(ctx context.Context, s store.Store, coll ImportCollection, options ImportOptions,
	existing map[string]bool, result *ImportResult) error {

	if err := validation.ValidateCollectionName(coll.Name); err != nil {
		return types.NewStoreError("import", coll.Name, types.KindInvalid, err)
	}

	replaced := existing[coll.Name]
	if replaced && !options.Overwrite {
		return fmt.Errorf("%w: %s", errCollectionExists, coll.Name)
	}

	for _, dup := range duplicateIDs(coll.Items) {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Collection %s contains id %d more than once", coll.Name, dup))
	}

	if !options.DryRun {
		if err := s.Replace(ctx, coll.Name, coll.Items); err != nil {
			return err
		}
	}

	result.Imported = append(result.Imported, ImportedCollection{
		Name:       coll.Name,
		Records:    len(coll.Items),
		Replaced:   replaced,
		SourceFile: coll.SourceFile,
		DryRun:     options.DryRun,
	})
	result.Summary.TotalRecords += len(coll.Items)
	return nil
}

// validateImportData validates the entire import data structure
func validateImportData(data ImportData) error {
	if len(data.Collections) == 0 {
		return fmt.Errorf("no collections to import")
	}

	// The same collection may not come from two files
	sources := make(map[string][]string)
	for _, coll := range data.Collections {
		sources[coll.Name] = append(sources[coll.Name], coll.SourceFile)
	}
	for name, files := range sources {
		if len(files) > 1 {
			return fmt.Errorf("collection %s found in files: %s", name, strings.Join(files, ", "))
		}
	}
	return nil
}

// selectCollections applies the Collections option. Every requested name
// must be present in the import data.
func selectCollections(all []ImportCollection, requested []string) ([]ImportCollection, error) {
	if len(requested) == 0 {
		return all, nil
	}

	byName := make(map[string]ImportCollection, len(all))
	for _, coll := range all {
		byName[coll.Name] = coll
	}

	selected := make([]ImportCollection, 0, len(requested))
	seen := make(map[string]bool, len(requested))
	for _, name := range requested {
		if seen[name] {
			continue
		}
		seen[name] = true
		coll, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("collection %q is not in the import source: %w", name, types.ErrNotFound)
		}
		selected = append(selected, coll)
	}
	return selected, nil
}

func existingCollections(ctx context.Context, s store.Store) (map[string]bool, error) {
	names, err := s.Collections(ctx)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(names))
	for _, name := range names {
		set[name] = true
	}
	return set, nil
}

// duplicateIDs returns the numeric ids that occur more than once, in order
// of their second occurrence
func duplicateIDs(items types.Collection) []uint64 {
	seen := make(map[uint64]int, len(items))
	var dups []uint64
	for _, el := range items {
		id, ok := types.ElementID(el)
		if !ok {
			continue
		}
		seen[id]++
		if seen[id] == 2 {
			dups = append(dups, id)
		}
	}
	return dups
}

// isContinuableError determines if an error allows import to continue.
// Existing collections and invalid names are; store errors are not.
func isContinuableError(err error) bool {
	return errors.Is(err, errCollectionExists) || types.KindOf(err) == types.KindInvalid
}
