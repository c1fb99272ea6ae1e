package imports

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/arthur-debert/static-api/staticapi/export"
	"github.com/arthur-debert/static-api/staticapi/store"
	"github.com/arthur-debert/static-api/types"
	"gopkg.in/yaml.v3"
)

// ReadImportDataFromDirectory reads every .json, .yaml and .yml file at the
// top level of dirPath as a collection. Lock and temp files are ignored.
func ReadImportDataFromDirectory(dirPath string) (*ImportData, error) {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	importData := &ImportData{
		Collections: make([]ImportCollection, 0),
		Metadata: ImportMetadata{
			ImportedFrom: "directory",
			ImportedAt:   time.Now(),
		},
	}

	for _, entry := range entries {
		// Skip directories and files that are not collections
		if entry.IsDir() || entry.Name() == export.ManifestFilename || !isCollectionFile(entry.Name()) {
			continue
		}

		content, err := os.ReadFile(filepath.Join(dirPath, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read file %s: %w", entry.Name(), err)
		}

		coll, err := decodeCollectionFile(entry.Name(), content)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", entry.Name(), err)
		}
		importData.Collections = append(importData.Collections, coll)
	}

	sortCollections(importData.Collections)
	return importData, nil
}

// ReadImportDataFromZip reads the collections of a zip archive. Archives
// written by the export command carry a manifest, which marks the source as
// an export and records when it was taken.
func ReadImportDataFromZip(zipPath string) (*ImportData, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open zip file: %w", err)
	}
	defer func() { _ = r.Close() }()

	importData := &ImportData{
		Collections: make([]ImportCollection, 0),
		Metadata: ImportMetadata{
			ImportedFrom: "zip",
			ImportedAt:   time.Now(),
		},
	}

	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}

		if f.Name == export.ManifestFilename {
			content, err := readZipFile(f)
			if err != nil {
				return nil, fmt.Errorf("failed to read manifest: %w", err)
			}
			var manifest export.Manifest
			if err := json.Unmarshal(content, &manifest); err != nil {
				return nil, fmt.Errorf("failed to parse manifest: %w", err)
			}
			importData.Metadata.ImportedFrom = "export"
			importData.Metadata.ExportedAt = &manifest.CreatedAt
			continue
		}

		// Nested entries are not collections
		if strings.Contains(f.Name, "/") || !isCollectionFile(f.Name) {
			continue
		}

		content, err := readZipFile(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", f.Name, err)
		}

		coll, err := decodeCollectionFile(f.Name, content)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", f.Name, err)
		}
		importData.Collections = append(importData.Collections, coll)
	}

	sortCollections(importData.Collections)
	return importData, nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return io.ReadAll(rc)
}

// isCollectionFile reports whether the file name has a collection extension
func isCollectionFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}

// decodeCollectionFile parses a collection file by its extension. YAML
// content is converted to the same representation the store reads from
// disk, so numbers become json.Number.
func decodeCollectionFile(fileName string, content []byte) (ImportCollection, error) {
	ext := filepath.Ext(fileName)
	coll := ImportCollection{
		Name:       strings.TrimSuffix(filepath.Base(fileName), ext),
		SourceFile: filepath.Base(fileName),
	}

	var err error
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		coll.Items, err = decodeYAML(content)
	default:
		coll.Items, err = store.DecodeCollection(content)
	}
	if err != nil {
		return ImportCollection{}, err
	}
	return coll, nil
}

func decodeYAML(content []byte) (types.Collection, error) {
	var root any
	if err := yaml.Unmarshal(content, &root); err != nil {
		return nil, fmt.Errorf("%w: failed to parse YAML: %w", types.ErrParse, err)
	}
	if root == nil {
		return types.Collection{}, nil
	}
	if _, ok := root.([]any); !ok {
		return nil, fmt.Errorf("%w: collection root is not a sequence", types.ErrParse)
	}

	data, err := json.Marshal(stringKeys(root))
	if err != nil {
		return nil, fmt.Errorf("%w: value has no JSON form: %w", types.ErrParse, err)
	}
	return store.DecodeCollection(data)
}

// stringKeys converts mappings with non-string keys, which encoding/json
// cannot marshal, into string-keyed maps.
func stringKeys(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for k, el := range val {
			val[k] = stringKeys(el)
		}
		return val
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, el := range val {
			out[fmt.Sprint(k)] = stringKeys(el)
		}
		return out
	case []any:
		for i, el := range val {
			val[i] = stringKeys(el)
		}
		return val
	default:
		return v
	}
}

func sortCollections(colls []ImportCollection) {
	sort.SliceStable(colls, func(i, j int) bool {
		return colls[i].Name < colls[j].Name
	})
}
