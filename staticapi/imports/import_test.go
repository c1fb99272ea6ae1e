package imports

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/arthur-debert/static-api/staticapi/export"
	"github.com/arthur-debert/static-api/testutil"
	"github.com/arthur-debert/static-api/types"
	"github.com/google/go-cmp/cmp"
)

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatalf("failed to create test file %s: %v", name, err)
		}
	}
}

func names(colls []ImportCollection) []string {
	out := make([]string, 0, len(colls))
	for _, c := range colls {
		out = append(out, c.Name)
	}
	return out
}

func TestReadImportDataFromDirectory(t *testing.T) {
	tempDir := t.TempDir()
	writeFiles(t, tempDir, map[string]string{
		"widgets.json":      `[{"id": 1, "name": "bolt"}]`,
		"widgets.json.lock": "",
		"parts.yaml": `- id: 7
  name: gear
  dims: {w: 2.5, h: 18446744073709551615}
- plain string
`,
		"blank.yml":     "",
		"notes.txt":     "not a collection",
		"manifest.json": `{"counts": {}}`,
	})
	if err := os.Mkdir(filepath.Join(tempDir, "nested"), 0755); err != nil {
		t.Fatal(err)
	}

	importData, err := ReadImportDataFromDirectory(tempDir)
	if err != nil {
		t.Fatalf("ReadImportDataFromDirectory() error = %v", err)
	}

	if diff := cmp.Diff([]string{"blank", "parts", "widgets"}, names(importData.Collections)); diff != "" {
		t.Errorf("unexpected collections (-want +got):\n%s", diff)
	}
	if importData.Metadata.ImportedFrom != "directory" {
		t.Errorf("expected directory source, got %q", importData.Metadata.ImportedFrom)
	}

	parts := importData.Collections[1]
	want := types.Collection{
		map[string]any{
			"id":   json.Number("7"),
			"name": "gear",
			"dims": map[string]any{"w": json.Number("2.5"), "h": json.Number("18446744073709551615")},
		},
		"plain string",
	}
	if diff := cmp.Diff(want, parts.Items); diff != "" {
		t.Errorf("yaml not converted to store values (-want +got):\n%s", diff)
	}
	if parts.SourceFile != "parts.yaml" {
		t.Errorf("expected source parts.yaml, got %q", parts.SourceFile)
	}
	if len(importData.Collections[0].Items) != 0 {
		t.Errorf("expected blank file to be empty, got %v", importData.Collections[0].Items)
	}
}

func TestReadImportDataRejectsNonArrays(t *testing.T) {
	testCases := map[string]string{
		"object.json": `{"id": 1}`,
		"object.yaml": "id: 1\n",
		"broken.yaml": "- [unclosed\n",
	}
	for file, content := range testCases {
		t.Run(file, func(t *testing.T) {
			dir := t.TempDir()
			writeFiles(t, dir, map[string]string{file: content})

			_, err := ReadImportDataFromDirectory(dir)
			if !errors.Is(err, types.ErrParse) {
				t.Errorf("expected ErrParse, got %v", err)
			}
		})
	}
}

func TestReadImportDataFromZip(t *testing.T) {
	ctx := context.Background()
	s, _ := testutil.NewUniverse(t)

	for _, format := range []export.Format{export.FormatJSON, export.FormatYAML} {
		t.Run(string(format), func(t *testing.T) {
			data, err := export.GenerateExportData(ctx, s, export.ExportOptions{Format: format})
			if err != nil {
				t.Fatalf("export failed: %v", err)
			}
			archive := filepath.Join(t.TempDir(), data.ArchiveFilename)
			if err := export.CreateExportArchive(data, archive); err != nil {
				t.Fatalf("archive failed: %v", err)
			}

			importData, err := ReadImportDataFromZip(archive)
			if err != nil {
				t.Fatalf("ReadImportDataFromZip() error = %v", err)
			}
			if importData.Metadata.ImportedFrom != "export" || importData.Metadata.ExportedAt == nil {
				t.Errorf("expected export metadata, got %+v", importData.Metadata)
			}
			if diff := cmp.Diff([]string{"empty", "users", "widgets"}, names(importData.Collections)); diff != "" {
				t.Errorf("unexpected collections (-want +got):\n%s", diff)
			}

			users, err := s.List(ctx, "users", types.NewListOptions(0, 100))
			if err != nil {
				t.Fatalf("list failed: %v", err)
			}
			if diff := cmp.Diff(types.Collection(users.Items), importData.Collections[1].Items); diff != "" {
				t.Errorf("users changed through the archive (-want +got):\n%s", diff)
			}
		})
	}
}

func TestProcessImportData(t *testing.T) {
	ctx := context.Background()

	source := func() ImportData {
		return ImportData{Collections: []ImportCollection{
			{Name: "parts", SourceFile: "parts.json", Items: types.Collection{
				map[string]any{"id": json.Number("1"), "name": "gear"},
				map[string]any{"id": json.Number("1"), "name": "copy"},
			}},
			{Name: "widgets", SourceFile: "widgets.yaml", Items: types.Collection{
				map[string]any{"id": json.Number("5"), "name": "spring"},
			}},
		}}
	}

	t.Run("into an empty store", func(t *testing.T) {
		dir := t.TempDir()
		s := testutil.NewStore(t, dir)

		result, err := ProcessImportData(ctx, s, source(), DefaultImportOptions())
		if err != nil {
			t.Fatalf("ProcessImportData() error = %v", err)
		}
		if result.Summary.SuccessfulImports != 2 || result.Summary.FailedImports != 0 {
			t.Errorf("unexpected summary %+v", result.Summary)
		}
		if result.Summary.TotalRecords != 3 {
			t.Errorf("expected 3 records, got %d", result.Summary.TotalRecords)
		}
		if len(result.Warnings) != 1 {
			t.Errorf("expected a duplicate id warning, got %v", result.Warnings)
		}

		rec, err := s.Get(ctx, "widgets", 5)
		if err != nil || rec["name"] != "spring" {
			t.Errorf("expected imported widget, got %v (%v)", rec, err)
		}
		if _, err := os.Stat(filepath.Join(dir, "parts.json")); err != nil {
			t.Errorf("expected parts.json: %v", err)
		}
	})

	t.Run("existing collections are kept without overwrite", func(t *testing.T) {
		s, _ := testutil.NewUniverse(t)

		result, err := ProcessImportData(ctx, s, source(), ImportOptions{})
		if err != nil {
			t.Fatalf("ProcessImportData() error = %v", err)
		}
		if len(result.Failed) != 1 || result.Failed[0].Name != "widgets" {
			t.Fatalf("expected widgets to fail, got %+v", result.Failed)
		}
		if _, err := s.Get(ctx, "widgets", 2); err != nil {
			t.Errorf("existing widgets were modified: %v", err)
		}
	})

	t.Run("overwrite replaces existing collections", func(t *testing.T) {
		s, _ := testutil.NewUniverse(t)

		result, err := ProcessImportData(ctx, s, source(), ImportOptions{Overwrite: true})
		if err != nil {
			t.Fatalf("ProcessImportData() error = %v", err)
		}
		if len(result.Failed) != 0 {
			t.Fatalf("unexpected failures %+v", result.Failed)
		}
		if !result.Imported[1].Replaced || result.Imported[0].Replaced {
			t.Errorf("unexpected replaced flags %+v", result.Imported)
		}
		if _, err := s.Get(ctx, "widgets", 2); !errors.Is(err, types.ErrNotFound) {
			t.Errorf("expected old widget to be gone, got %v", err)
		}
	})

	t.Run("dry run writes nothing", func(t *testing.T) {
		s := testutil.NewStore(t, t.TempDir())

		result, err := ProcessImportData(ctx, s, source(), ImportOptions{DryRun: true})
		if err != nil {
			t.Fatalf("ProcessImportData() error = %v", err)
		}
		if len(result.Imported) != 2 || !result.Imported[0].DryRun {
			t.Errorf("expected dry run results, got %+v", result.Imported)
		}
		got, err := s.Collections(ctx)
		if err != nil {
			t.Fatalf("collections failed: %v", err)
		}
		if len(got) != 0 {
			t.Errorf("dry run created %v", got)
		}
	})

	t.Run("selected collections", func(t *testing.T) {
		s := testutil.NewStore(t, t.TempDir())

		result, err := ProcessImportData(ctx, s, source(), ImportOptions{Collections: []string{"widgets", "widgets"}})
		if err != nil {
			t.Fatalf("ProcessImportData() error = %v", err)
		}
		if result.Summary.TotalCollections != 1 || result.Imported[0].Name != "widgets" {
			t.Errorf("expected only widgets, got %+v", result.Imported)
		}

		_, err = ProcessImportData(ctx, s, source(), ImportOptions{Collections: []string{"ghosts"}})
		if !errors.Is(err, types.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("invalid names fail and the rest continue", func(t *testing.T) {
		s := testutil.NewStore(t, t.TempDir())
		data := source()
		data.Collections = append(data.Collections, ImportCollection{Name: ".hidden", SourceFile: ".hidden.json"})

		result, err := ProcessImportData(ctx, s, data, ImportOptions{})
		if err != nil {
			t.Fatalf("ProcessImportData() error = %v", err)
		}
		if len(result.Failed) != 1 || result.Failed[0].SourceFile != ".hidden.json" {
			t.Errorf("expected .hidden to fail, got %+v", result.Failed)
		}
		if len(result.Imported) != 2 {
			t.Errorf("expected 2 imported, got %d", len(result.Imported))
		}
	})

	t.Run("invalid import data", func(t *testing.T) {
		s := testutil.NewStore(t, t.TempDir())

		if _, err := ProcessImportData(ctx, s, ImportData{}, ImportOptions{}); err == nil {
			t.Error("expected error for empty import data")
		}

		data := source()
		data.Collections = append(data.Collections, ImportCollection{Name: "parts", SourceFile: "parts.yaml"})
		if _, err := ProcessImportData(ctx, s, data, ImportOptions{}); err == nil {
			t.Error("expected error for a collection in two files")
		}
	})
}

func TestImportFromPath(t *testing.T) {
	ctx := context.Background()
	srcDir := testutil.NewDataDir(t, testutil.Universe)
	s := testutil.NewStore(t, t.TempDir())

	result, err := ImportFromPath(ctx, s, srcDir, DefaultImportOptions())
	if err != nil {
		t.Fatalf("ImportFromPath() error = %v", err)
	}
	if result.Summary.SuccessfulImports != 3 || result.Summary.TotalRecords != 7 {
		t.Errorf("unexpected summary %+v", result.Summary)
	}

	textFile := filepath.Join(t.TempDir(), "notes.txt")
	writeFiles(t, filepath.Dir(textFile), map[string]string{"notes.txt": "x"})
	if _, err := ImportFromPath(ctx, s, textFile, DefaultImportOptions()); err == nil {
		t.Error("expected unsupported file type error")
	}
	if _, err := ImportFromPath(ctx, s, filepath.Join(srcDir, "missing"), DefaultImportOptions()); err == nil {
		t.Error("expected stat error")
	}
}
