package store

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/arthur-debert/static-api/types"
	"github.com/google/go-cmp/cmp"
)

const testDataDir = "data"

func newMockStore(t *testing.T, opts ...Option) (*collectionStore, *MockFileSystem, *MockFileLockFactory) {
	t.Helper()
	mockFS := NewMockFileSystem()
	mockLocks := NewMockFileLockFactory()
	opts = append([]Option{WithFileSystem(mockFS), WithFileLockFactory(mockLocks)}, opts...)

	s, err := newCollectionStore(Config{DataDir: testDataDir, LockTimeout: 200 * time.Millisecond}, opts...)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return s, mockFS, mockLocks
}

func collectionPath(name string) string {
	return filepath.Join(testDataDir, name+FileExtension)
}

func seed(t *testing.T, mockFS *MockFileSystem, name, content string) {
	t.Helper()
	if err := mockFS.WriteFile(collectionPath(name), []byte(content), 0o644); err != nil {
		t.Fatalf("failed to seed %s: %v", name, err)
	}
	mockFS.Writes = 0
}

func readArray(t *testing.T, mockFS *MockFileSystem, name string) []any {
	t.Helper()
	content, ok := mockFS.GetFileContent(collectionPath(name))
	if !ok {
		t.Fatalf("expected %s to exist", name)
	}
	var arr []any
	if err := json.Unmarshal(content, &arr); err != nil {
		t.Fatalf("file root is not an array: %v\n%s", err, content)
	}
	return arr
}

func TestCollectionStoreWithMockFS(t *testing.T) {
	ctx := context.Background()

	t.Run("list auto-creates an empty collection", func(t *testing.T) {
		s, mockFS, _ := newMockStore(t)

		page, err := s.List(ctx, "widgets", types.ListOptions{})
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if page.Total != 0 || len(page.Items) != 0 {
			t.Errorf("expected empty page, got %+v", page)
		}
		if page.Limit != types.DefaultLimit || page.Skip != 0 {
			t.Errorf("expected default bounds, got skip=%d limit=%d", page.Skip, page.Limit)
		}
		if got := readArray(t, mockFS, "widgets"); len(got) != 0 {
			t.Errorf("expected [] on disk, got %v", got)
		}
	})

	t.Run("get on a new collection creates it and reports not found", func(t *testing.T) {
		s, mockFS, _ := newMockStore(t)

		_, err := s.Get(ctx, "widgets", 1)
		if !errors.Is(err, types.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		var nf *types.RecordNotFoundError
		if !errors.As(err, &nf) || nf.ID != 1 {
			t.Errorf("expected RecordNotFoundError for id 1, got %v", err)
		}
		if !mockFS.FileExists(collectionPath("widgets")) {
			t.Error("expected collection file to be created")
		}
	})

	t.Run("write goes through a temp file and rename", func(t *testing.T) {
		s, mockFS, _ := newMockStore(t, WithTempName(func(path string) string { return path + ".tmp" }))

		if _, err := s.Insert(ctx, "widgets", types.Record{"name": "bolt"}); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
		if mockFS.Renames != 1 {
			t.Errorf("expected 1 rename, got %d", mockFS.Renames)
		}
		if mockFS.FileExists(collectionPath("widgets") + ".tmp") {
			t.Error("temp file left behind")
		}
	})

	t.Run("rename failure surfaces as io error and cleans up", func(t *testing.T) {
		s, mockFS, _ := newMockStore(t, WithTempName(func(path string) string { return path + ".tmp" }))
		seed(t, mockFS, "widgets", `[{"id": 1}]`)
		mockFS.RenameError = errors.New("disk full")

		_, err := s.Insert(ctx, "widgets", types.Record{"name": "bolt"})
		if !errors.Is(err, types.ErrIO) {
			t.Fatalf("expected ErrIO, got %v", err)
		}
		if !errors.Is(err, mockFS.RenameError) {
			t.Errorf("expected cause to be kept, got %v", err)
		}
		if mockFS.FileExists(collectionPath("widgets") + ".tmp") {
			t.Error("temp file left behind")
		}
		if got := readArray(t, mockFS, "widgets"); len(got) != 1 {
			t.Errorf("original content should be untouched, got %v", got)
		}
	})

	t.Run("read errors other than not-exist propagate", func(t *testing.T) {
		s, mockFS, _ := newMockStore(t)
		seed(t, mockFS, "widgets", `[]`)
		mockFS.ReadFileError = errors.New("permission denied")

		_, err := s.List(ctx, "widgets", types.ListOptions{})
		if !errors.Is(err, types.ErrIO) {
			t.Errorf("expected ErrIO, got %v", err)
		}
		if types.KindOf(err) != types.KindIO {
			t.Errorf("expected KindIO, got %s", types.KindOf(err))
		}
	})

	t.Run("invalid json is a parse error", func(t *testing.T) {
		s, mockFS, _ := newMockStore(t)
		seed(t, mockFS, "widgets", `[{"id": 1},`)

		for name, run := range map[string]func() error{
			"list":   func() error { _, err := s.List(ctx, "widgets", types.ListOptions{}); return err },
			"get":    func() error { _, err := s.Get(ctx, "widgets", 1); return err },
			"insert": func() error { _, err := s.Insert(ctx, "widgets", types.Record{}); return err },
			"update": func() error { _, err := s.Update(ctx, "widgets", 1, types.Record{}); return err },
			"delete": func() error { _, err := s.Delete(ctx, "widgets", 1); return err },
		} {
			if err := run(); !errors.Is(err, types.ErrParse) {
				t.Errorf("%s: expected ErrParse, got %v", name, err)
			}
		}
		if mockFS.Writes != 0 {
			t.Errorf("expected no writes on a corrupt file, got %d", mockFS.Writes)
		}
	})

	t.Run("object root is a parse error", func(t *testing.T) {
		s, mockFS, _ := newMockStore(t)
		seed(t, mockFS, "widgets", `{"id": 1}`)

		_, err := s.List(ctx, "widgets", types.ListOptions{})
		if !errors.Is(err, types.ErrParse) {
			t.Errorf("expected ErrParse, got %v", err)
		}
	})

	t.Run("trailing data is a parse error", func(t *testing.T) {
		s, mockFS, _ := newMockStore(t)
		seed(t, mockFS, "widgets", `[] []`)

		_, err := s.List(ctx, "widgets", types.ListOptions{})
		if !errors.Is(err, types.ErrParse) {
			t.Errorf("expected ErrParse, got %v", err)
		}
	})

	t.Run("blank file reads as empty", func(t *testing.T) {
		s, mockFS, _ := newMockStore(t)
		seed(t, mockFS, "widgets", "  \n")

		page, err := s.List(ctx, "widgets", types.ListOptions{})
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if page.Total != 0 {
			t.Errorf("expected 0 records, got %d", page.Total)
		}
	})

	t.Run("update on missing collection does not create it", func(t *testing.T) {
		s, mockFS, _ := newMockStore(t)

		found, err := s.Update(ctx, "widgets", 999, types.Record{"name": "x"})
		if err != nil {
			t.Fatalf("update failed: %v", err)
		}
		if found {
			t.Error("expected found=false")
		}
		if mockFS.FileExists(collectionPath("widgets")) {
			t.Error("update must not create the collection")
		}
	})

	t.Run("update without match performs no write", func(t *testing.T) {
		s, mockFS, _ := newMockStore(t)
		seed(t, mockFS, "widgets", `[{"id": 1, "name": "bolt"}]`)
		before, _ := mockFS.GetFileContent(collectionPath("widgets"))

		found, err := s.Update(ctx, "widgets", 999, types.Record{"name": "x"})
		if err != nil || found {
			t.Fatalf("expected found=false, nil; got %v, %v", found, err)
		}
		after, _ := mockFS.GetFileContent(collectionPath("widgets"))
		if mockFS.Writes != 0 || string(before) != string(after) {
			t.Error("file changed on a missed update")
		}
	})

	t.Run("delete on missing collection returns false", func(t *testing.T) {
		s, mockFS, _ := newMockStore(t)

		found, err := s.Delete(ctx, "widgets", 1)
		if err != nil || found {
			t.Fatalf("expected false, nil; got %v, %v", found, err)
		}
		if mockFS.FileExists(collectionPath("widgets")) {
			t.Error("delete must not create the collection")
		}
	})

	t.Run("delete without match still rewrites", func(t *testing.T) {
		s, mockFS, _ := newMockStore(t)
		seed(t, mockFS, "widgets", `[{"id": 1, "name": "bolt"}]`)

		found, err := s.Delete(ctx, "widgets", 2)
		if err != nil || found {
			t.Fatalf("expected false, nil; got %v, %v", found, err)
		}
		if mockFS.Writes != 1 {
			t.Errorf("expected the file to be rewritten once, got %d writes", mockFS.Writes)
		}
		want := []any{map[string]any{"id": float64(1), "name": "bolt"}}
		if diff := cmp.Diff(want, readArray(t, mockFS, "widgets")); diff != "" {
			t.Errorf("content changed (-want +got):\n%s", diff)
		}
	})

	t.Run("delete removes every match", func(t *testing.T) {
		s, mockFS, _ := newMockStore(t)
		seed(t, mockFS, "widgets", `[{"id": 1}, {"id": 2}, {"id": 1, "dup": true}, {"name": "no id"}]`)

		found, err := s.Delete(ctx, "widgets", 1)
		if err != nil || !found {
			t.Fatalf("expected true, nil; got %v, %v", found, err)
		}
		want := []any{map[string]any{"id": float64(2)}, map[string]any{"name": "no id"}}
		if diff := cmp.Diff(want, readArray(t, mockFS, "widgets")); diff != "" {
			t.Errorf("unexpected content (-want +got):\n%s", diff)
		}
	})

	t.Run("non-numeric ids never match", func(t *testing.T) {
		s, mockFS, _ := newMockStore(t)
		seed(t, mockFS, "widgets", `[{"id": "1"}, {"id": 1.5}, {"id": -1}, {"id": 1.0}, "scalar", {"id": 3}]`)

		if _, err := s.Get(ctx, "widgets", 1); !errors.Is(err, types.ErrNotFound) {
			t.Errorf("expected not found, got %v", err)
		}
		page, err := s.List(ctx, "widgets", types.ListOptions{})
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if page.Total != 6 {
			t.Errorf("records without ids must still be counted, got total %d", page.Total)
		}

		rec, err := s.Insert(ctx, "widgets", types.Record{})
		if err != nil {
			t.Fatalf("insert failed: %v", err)
		}
		if id, _ := rec.ID(); id != 4 {
			t.Errorf("expected next id 4, got %d", id)
		}
	})

	t.Run("large ids keep full precision", func(t *testing.T) {
		s, mockFS, _ := newMockStore(t)
		seed(t, mockFS, "widgets", `[{"id": 18446744073709551614}]`)

		rec, err := s.Get(ctx, "widgets", 18446744073709551614)
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if id, _ := rec.ID(); id != 18446744073709551614 {
			t.Errorf("id lost precision: %d", id)
		}

		inserted, err := s.Insert(ctx, "widgets", types.Record{})
		if err != nil {
			t.Fatalf("insert failed: %v", err)
		}
		if id, _ := inserted.ID(); id != 18446744073709551615 {
			t.Errorf("expected max uint64, got %d", id)
		}

		_, err = s.Insert(ctx, "widgets", types.Record{})
		if types.KindOf(err) != types.KindConflict {
			t.Errorf("expected id exhaustion conflict, got %v", err)
		}
	})

	t.Run("insert rejects a duplicate explicit id", func(t *testing.T) {
		s, mockFS, _ := newMockStore(t)
		seed(t, mockFS, "widgets", `[{"id": 5}]`)

		_, err := s.Insert(ctx, "widgets", types.Record{"id": json.Number("5")})
		if !errors.Is(err, types.ErrDuplicateID) {
			t.Errorf("expected ErrDuplicateID, got %v", err)
		}
		if mockFS.Writes != 0 {
			t.Error("rejected insert must not write")
		}
	})

	t.Run("insert keeps a non-numeric explicit id", func(t *testing.T) {
		s, _, _ := newMockStore(t)

		rec, err := s.Insert(ctx, "widgets", types.Record{"id": "abc"})
		if err != nil {
			t.Fatalf("insert failed: %v", err)
		}
		if rec["id"] != "abc" {
			t.Errorf("expected id to be kept, got %v", rec["id"])
		}
	})

	t.Run("insert rejects nil payload", func(t *testing.T) {
		s, _, _ := newMockStore(t)

		_, err := s.Insert(ctx, "widgets", nil)
		if !errors.Is(err, types.ErrInvalidPayload) {
			t.Errorf("expected ErrInvalidPayload, got %v", err)
		}
	})

	t.Run("invalid collection names are rejected before touching disk", func(t *testing.T) {
		s, mockFS, _ := newMockStore(t)

		_, err := s.List(ctx, "../secrets", types.ListOptions{})
		if !errors.Is(err, types.ErrInvalidCollection) {
			t.Errorf("expected ErrInvalidCollection, got %v", err)
		}
		if types.KindOf(err) != types.KindInvalid {
			t.Errorf("expected KindInvalid, got %s", types.KindOf(err))
		}
		if mockFS.Writes != 0 {
			t.Error("expected no writes")
		}
	})

	t.Run("delete collection", func(t *testing.T) {
		s, mockFS, _ := newMockStore(t)
		seed(t, mockFS, "widgets", `[]`)

		if err := s.DeleteCollection(ctx, "widgets"); err != nil {
			t.Fatalf("delete collection failed: %v", err)
		}
		if mockFS.FileExists(collectionPath("widgets")) {
			t.Error("expected file to be removed")
		}
		err := s.DeleteCollection(ctx, "widgets")
		if !errors.Is(err, types.ErrNotFound) {
			t.Errorf("expected ErrNotFound on second delete, got %v", err)
		}
	})

	t.Run("held file lock times out", func(t *testing.T) {
		s, mockFS, mockLocks := newMockStore(t)
		seed(t, mockFS, "widgets", `[]`)
		mockLocks.GetLock(collectionPath("widgets") + lockSuffix).Hold()

		_, err := s.Insert(ctx, "widgets", types.Record{"name": "bolt"})
		if !errors.Is(err, types.ErrLockTimeout) {
			t.Fatalf("expected ErrLockTimeout, got %v", err)
		}
		if mockFS.Writes != 0 {
			t.Error("expected no write without the lock")
		}

		// Other collections are unaffected
		if _, err := s.Insert(ctx, "gadgets", types.Record{"name": "gear"}); err != nil {
			t.Errorf("insert into another collection failed: %v", err)
		}
	})

	t.Run("file lock is released after errors", func(t *testing.T) {
		s, mockFS, mockLocks := newMockStore(t)
		seed(t, mockFS, "widgets", `not json`)

		_, _ = s.Insert(ctx, "widgets", types.Record{})
		if mockLocks.GetLock(collectionPath("widgets") + lockSuffix).IsLocked() {
			t.Error("file lock still held after a failed insert")
		}
	})

	t.Run("collections lists only collection files", func(t *testing.T) {
		s, mockFS, _ := newMockStore(t)
		seed(t, mockFS, "widgets", `[]`)
		seed(t, mockFS, "gadgets", `[]`)
		_ = mockFS.WriteFile(filepath.Join(testDataDir, "widgets.json.lock"), nil, 0o644)
		_ = mockFS.WriteFile(filepath.Join(testDataDir, "notes.txt"), nil, 0o644)
		_ = mockFS.WriteFile(filepath.Join(testDataDir, ".hidden.json"), nil, 0o644)

		names, err := s.Collections(ctx)
		if err != nil {
			t.Fatalf("collections failed: %v", err)
		}
		if diff := cmp.Diff([]string{"gadgets", "widgets"}, names); diff != "" {
			t.Errorf("unexpected collections (-want +got):\n%s", diff)
		}
	})
}
