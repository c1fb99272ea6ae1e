package export

import (
	"fmt"
	"strings"
	"time"
)

// Format selects how collection files are serialized inside an export
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts "json", "yaml" or "yml", case-insensitively.
// An empty string means FormatJSON.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported format %q (want json or yaml)", s)
	}
}

// Extension returns the file extension used for the format, with the dot
func (f Format) Extension() string {
	if f == FormatYAML {
		return ".yaml"
	}
	return ".json"
}

// ManifestFilename is the name of the manifest entry in every archive
const ManifestFilename = "manifest.json"

// ExportData represents the complete export structure with all information
// needed to write the archive
type ExportData struct {
	ArchiveFilename string        `json:"archive-filename"`
	Contents        ExportContent `json:"contents"`
}

// ExportContent contains the manifest and one file per collection
type ExportContent struct {
	Manifest    Manifest         `json:"manifest"`
	Collections []CollectionFile `json:"collections"`
}

// Manifest describes the archive. Counts maps each collection to the number
// of array elements exported.
type Manifest struct {
	CreatedAt time.Time      `json:"created_at"`
	Format    Format         `json:"format"`
	Counts    map[string]int `json:"counts"`
}

// CollectionFile is one serialized collection inside the archive
type CollectionFile struct {
	Name     string    `json:"name"`
	Filename string    `json:"filename"`
	Records  int       `json:"records"`
	Modified time.Time `json:"modified"`
	Content  []byte    `json:"-"`
}

// ExportOptions configures what data to export
type ExportOptions struct {
	// Collections restricts the export to the named collections.
	// Empty means every collection in the data directory.
	Collections []string

	// Format of the collection files. Empty means FormatJSON.
	Format Format
}
