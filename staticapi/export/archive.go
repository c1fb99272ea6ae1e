package export

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// CreateExportArchive takes export data and creates a zip file at outputPath.
// A partially written file is removed on failure.
func CreateExportArchive(exportData *ExportData, outputPath string) (err error) {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close archive file: %w", cerr)
		}
		if err != nil {
			_ = os.Remove(outputPath)
		}
	}()

	return WriteArchive(file, exportData)
}

// CreateExportArchiveToTempDir creates an export archive in a temporary directory
// Returns the path to the created archive
func CreateExportArchiveToTempDir(exportData *ExportData) (string, error) {
	tempDir, err := os.MkdirTemp("", "static-api-export-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp directory: %w", err)
	}

	archivePath := filepath.Join(tempDir, exportData.ArchiveFilename)
	if err := CreateExportArchive(exportData, archivePath); err != nil {
		_ = os.RemoveAll(tempDir)
		return "", err
	}
	return archivePath, nil
}

// WriteArchive streams the zip archive to w: the manifest first, then one
// entry per collection in export order.
func WriteArchive(w io.Writer, exportData *ExportData) error {
	zipWriter := zip.NewWriter(w)

	if err := addManifestToZip(zipWriter, exportData.Contents.Manifest); err != nil {
		_ = zipWriter.Close()
		return fmt.Errorf("failed to add manifest to zip: %w", err)
	}

	for _, file := range exportData.Contents.Collections {
		if err := addCollectionToZip(zipWriter, file); err != nil {
			_ = zipWriter.Close()
			return fmt.Errorf("failed to add collection %s to zip: %w", file.Name, err)
		}
	}

	if err := zipWriter.Close(); err != nil {
		return fmt.Errorf("failed to close zip writer: %w", err)
	}
	return nil
}

// addManifestToZip adds the manifest JSON file to the zip archive
func addManifestToZip(zipWriter *zip.Writer, manifest Manifest) error {
	header := &zip.FileHeader{
		Name:     ManifestFilename,
		Method:   zip.Deflate,
		Modified: manifest.CreatedAt,
	}

	writer, err := zipWriter.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("failed to create manifest in zip: %w", err)
	}

	jsonData, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	if _, err := writer.Write(jsonData); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// addCollectionToZip adds a collection file to the zip archive
func addCollectionToZip(zipWriter *zip.Writer, file CollectionFile) error {
	modified := file.Modified
	if modified.IsZero() {
		modified = time.Now()
	}
	header := &zip.FileHeader{
		Name:     file.Filename,
		Method:   zip.Deflate,
		Modified: modified,
	}

	writer, err := zipWriter.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("failed to create collection file in zip: %w", err)
	}

	if _, err := writer.Write(file.Content); err != nil {
		return fmt.Errorf("failed to write collection content: %w", err)
	}
	return nil
}

// ExtractExportArchive reads an archive written by CreateExportArchive back
// into an ExportData.
func ExtractExportArchive(archivePath string) (*ExportData, error) {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer func() { _ = reader.Close() }()

	exportData := &ExportData{
		ArchiveFilename: filepath.Base(archivePath),
		Contents: ExportContent{
			Collections: make([]CollectionFile, 0, len(reader.File)),
		},
	}

	for _, file := range reader.File {
		content, err := readZipEntry(file)
		if err != nil {
			return nil, fmt.Errorf("failed to extract %s: %w", file.Name, err)
		}

		if file.Name == ManifestFilename {
			if err := json.Unmarshal(content, &exportData.Contents.Manifest); err != nil {
				return nil, fmt.Errorf("failed to parse manifest: %w", err)
			}
			continue
		}

		exportData.Contents.Collections = append(exportData.Contents.Collections, CollectionFile{
			Name:     strings.TrimSuffix(file.Name, filepath.Ext(file.Name)),
			Filename: file.Name,
			Modified: file.Modified,
			Content:  content,
		})
	}

	for i := range exportData.Contents.Collections {
		cf := &exportData.Contents.Collections[i]
		cf.Records = exportData.Contents.Manifest.Counts[cf.Name]
	}

	return exportData, nil
}

func readZipEntry(file *zip.File) ([]byte, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return io.ReadAll(rc)
}
