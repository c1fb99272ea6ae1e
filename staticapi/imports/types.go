package imports

import (
	"time"

	"github.com/arthur-debert/static-api/types"
)

// ImportData represents the collections read from an import source
type ImportData struct {
	Collections []ImportCollection `json:"collections"`
	Metadata    ImportMetadata     `json:"metadata"`
}

// ImportCollection is one collection to be written to the store
type ImportCollection struct {
	Name  string           `json:"name"`
	Items types.Collection `json:"items"`

	// For tracking source during import
	SourceFile string `json:"source_file"`
}

// ImportMetadata contains metadata about the import source
type ImportMetadata struct {
	ImportedFrom string    `json:"imported_from"` // "directory", "zip", "export"
	ImportedAt   time.Time `json:"imported_at"`

	// ExportedAt is the manifest creation time when the source is an export
	ExportedAt *time.Time `json:"exported_at,omitempty"`
}

// ImportOptions configures the import behavior
type ImportOptions struct {
	// Collections restricts the import to the named collections.
	// Empty means every collection in the source.
	Collections []string `json:"collections,omitempty"`

	// Overwrite replaces collections that already exist in the store.
	// Without it existing collections are reported as failed and left alone.
	Overwrite bool `json:"overwrite,omitempty"`

	// DryRun performs validation without writing anything
	DryRun bool `json:"dry_run,omitempty"`
}

// ImportResult contains the results of an import operation
type ImportResult struct {
	Imported []ImportedCollection `json:"imported"`
	Failed   []FailedCollection   `json:"failed"`

	// Warnings contains non-fatal issues encountered during import
	Warnings []string `json:"warnings"`

	Summary ImportSummary `json:"summary"`
}

// ImportedCollection represents a successfully imported collection
type ImportedCollection struct {
	Name       string `json:"name"`
	Records    int    `json:"records"`
	Replaced   bool   `json:"replaced"`
	SourceFile string `json:"source_file"`
	DryRun     bool   `json:"dry_run,omitempty"`
}

// FailedCollection represents a collection that could not be imported
type FailedCollection struct {
	Name       string `json:"name"`
	SourceFile string `json:"source_file"`
	Error      string `json:"error"`
}

// ImportSummary provides statistics about the import operation
type ImportSummary struct {
	TotalCollections  int       `json:"total_collections"`
	SuccessfulImports int       `json:"successful_imports"`
	FailedImports     int       `json:"failed_imports"`
	TotalRecords      int       `json:"total_records"`
	WarningsCount     int       `json:"warnings_count"`
	ProcessingTime    string    `json:"processing_time"`
	StartedAt         time.Time `json:"started_at"`
	CompletedAt       time.Time `json:"completed_at"`
}
